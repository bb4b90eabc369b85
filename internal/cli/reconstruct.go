package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// ReconstructOptions holds flags shared by the reconstruct subcommands.
type ReconstructOptions struct {
	*RootOptions
	AtTimestamp string
}

// NewReconstructCommand creates the reconstruct parent command, with
// "state" and "source" subcommands for reconstruct_state (spec.md
// §4.8) and reconstruct_source (spec.md §4.15).
func NewReconstructCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReconstructOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "reconstruct",
		Short: "Reconstruct reduced state or AST source for a space",
	}
	cmd.PersistentFlags().StringVar(&opts.AtTimestamp, "at", "", "reconstruct as of this ISO-8601 instant; omit for current")

	cmd.AddCommand(&cobra.Command{
		Use:           "state <space-id>",
		Short:         "Fold the reducer over a space's events, starting from the nearest snapshot",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReconstructState(opts, cmd, args[0])
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:           "source <space-id>",
		Short:         "Replay AST diffs to rebuild a space's source, verifying each step's hash",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReconstructSource(opts, cmd, args[0])
		},
	})

	return cmd
}

func atTimestampPtr(opts *ReconstructOptions) *string {
	if opts.AtTimestamp == "" {
		return nil
	}
	return &opts.AtTimestamp
}

func runReconstructState(opts *ReconstructOptions, cmd *cobra.Command, spaceID string) error {
	formatter := formatterFor(opts.RootOptions, cmd)

	log, err := openLog(cmd.Context(), opts.RootOptions)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer log.Close()

	state, err := log.ReconstructState(cmd.Context(), spaceID, atTimestampPtr(opts))
	if err != nil {
		_ = formatter.Error("E_RECONSTRUCT", err.Error(), nil)
		return NewExitError(ExitFailure, fmt.Sprintf("reconstruct state failed: %v", err))
	}

	return formatter.Success(state)
}

func runReconstructSource(opts *ReconstructOptions, cmd *cobra.Command, spaceID string) error {
	formatter := formatterFor(opts.RootOptions, cmd)

	log, err := openLog(cmd.Context(), opts.RootOptions)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer log.Close()

	result, err := log.ReconstructSource(cmd.Context(), spaceID, atTimestampPtr(opts))
	if err != nil {
		_ = formatter.Error("E_RECONSTRUCT", err.Error(), nil)
		return NewExitError(ExitFailure, fmt.Sprintf("reconstruct source failed: %v", err))
	}

	return formatter.Success(result)
}
