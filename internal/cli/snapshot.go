package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewSnapshotCommand creates the snapshot command.
func NewSnapshotCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "snapshot <space-id>",
		Short:         "Create a new checkpoint of a space's reducer-produced state",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSnapshot(rootOpts, cmd, args[0])
		},
	}
}

func runSnapshot(rootOpts *RootOptions, cmd *cobra.Command, spaceID string) error {
	formatter := formatterFor(rootOpts, cmd)

	log, err := openLog(cmd.Context(), rootOpts)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer log.Close()

	snap, err := log.CreateSnapshot(cmd.Context(), spaceID)
	if err != nil {
		_ = formatter.Error("E_SNAPSHOT", err.Error(), nil)
		return NewExitError(ExitFailure, fmt.Sprintf("snapshot failed: %v", err))
	}

	return formatter.Success(snap)
}
