package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// VerifyOptions holds flags for the verify command.
type VerifyOptions struct {
	*RootOptions
	SpaceID string
}

// NewVerifyCommand creates the verify command.
func NewVerifyCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &VerifyOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:           "verify",
		Short:         "Verify the hash chain of one space, or every space",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVerify(opts, cmd)
		},
	}
	cmd.Flags().StringVar(&opts.SpaceID, "space", "", "space id; omit to verify every space")

	return cmd
}

func runVerify(opts *VerifyOptions, cmd *cobra.Command) error {
	formatter := formatterFor(opts.RootOptions, cmd)

	log, err := openLog(cmd.Context(), opts.RootOptions)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer log.Close()

	var spaceID *string
	if opts.SpaceID != "" {
		spaceID = &opts.SpaceID
	}

	report, err := log.VerifyIntegrity(cmd.Context(), spaceID)
	if err != nil {
		_ = formatter.Error("E_VERIFY", err.Error(), nil)
		return NewExitError(ExitCommandError, fmt.Sprintf("verify failed: %v", err))
	}

	if err := formatter.Success(report); err != nil {
		return err
	}
	if !report.Valid {
		return NewExitError(ExitFailure, "integrity violation detected")
	}
	return nil
}
