package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// ExportOptions holds flags for the export command.
type ExportOptions struct {
	*RootOptions
	SpaceID    string
	BeforeDate string
	Output     string
}

// NewExportCommand creates the export command.
func NewExportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ExportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:           "export",
		Short:         "Export a space's chain-verified history to a .rblogs archive",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(opts, cmd)
		},
	}
	cmd.Flags().StringVar(&opts.SpaceID, "space", "", "space id to export (required)")
	cmd.Flags().StringVar(&opts.BeforeDate, "before", "", "export only events strictly before this ISO-8601 instant (required)")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output file path (required)")
	_ = cmd.MarkFlagRequired("space")
	_ = cmd.MarkFlagRequired("before")
	_ = cmd.MarkFlagRequired("output")

	return cmd
}

func runExport(opts *ExportOptions, cmd *cobra.Command) error {
	formatter := formatterFor(opts.RootOptions, cmd)

	log, err := openLog(cmd.Context(), opts.RootOptions)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer log.Close()

	data, err := log.ExportArchive(cmd.Context(), opts.SpaceID, opts.BeforeDate)
	if err != nil {
		_ = formatter.Error("E_EXPORT", err.Error(), nil)
		return NewExitError(ExitFailure, fmt.Sprintf("export failed: %v", err))
	}

	if err := os.WriteFile(opts.Output, data, 0o644); err != nil {
		return WrapExitError(ExitCommandError, "failed to write archive file", err)
	}

	return formatter.Success(map[string]any{"path": opts.Output, "bytes": len(data)})
}
