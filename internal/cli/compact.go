package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewCompactCommand creates the compact command.
func NewCompactCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "compact <space-id>",
		Short:         "Snapshot a space and report how many events it newly covers",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompact(rootOpts, cmd, args[0])
		},
	}
}

func runCompact(rootOpts *RootOptions, cmd *cobra.Command, spaceID string) error {
	formatter := formatterFor(rootOpts, cmd)

	log, err := openLog(cmd.Context(), rootOpts)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer log.Close()

	report, err := log.Compact(cmd.Context(), spaceID)
	if err != nil {
		_ = formatter.Error("E_COMPACT", err.Error(), nil)
		return NewExitError(ExitFailure, fmt.Sprintf("compact failed: %v", err))
	}

	return formatter.Success(report)
}
