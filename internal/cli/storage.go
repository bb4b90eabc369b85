package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Robust-infrastructure/ri-event-log/internal/storage"
)

// StorageOptions holds flags for the storage command.
type StorageOptions struct {
	*RootOptions
	AvailableBytes int64
}

// NewStorageCommand creates the storage command: byte accounting plus
// an optional pressure classification against --available.
func NewStorageCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &StorageOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:           "storage",
		Short:         "Report estimated storage usage, and pressure if --available is set",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStorage(opts, cmd)
		},
	}
	cmd.Flags().Int64Var(&opts.AvailableBytes, "available", 0, "available byte budget, for pressure classification")

	return cmd
}

func runStorage(opts *StorageOptions, cmd *cobra.Command) error {
	formatter := formatterFor(opts.RootOptions, cmd)

	log, err := openLog(cmd.Context(), opts.RootOptions)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer log.Close()

	report, err := log.StorageUsage(cmd.Context())
	if err != nil {
		_ = formatter.Error("E_STORAGE", err.Error(), nil)
		return NewExitError(ExitFailure, fmt.Sprintf("storage usage failed: %v", err))
	}

	if opts.AvailableBytes <= 0 {
		return formatter.Success(report)
	}

	pressure := storage.ClassifyPressure(report, opts.AvailableBytes)

	return formatter.Success(map[string]any{"usage": report, "pressure": pressure})
}
