package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// ImportOptions holds flags for the import command.
type ImportOptions struct {
	*RootOptions
	Input string
}

// NewImportCommand creates the import command.
func NewImportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ImportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:           "import",
		Short:         "Import events from a .rblogs archive, deduping by event id",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(opts, cmd)
		},
	}
	cmd.Flags().StringVarP(&opts.Input, "input", "i", "", "archive file path (required)")
	_ = cmd.MarkFlagRequired("input")

	return cmd
}

func runImport(opts *ImportOptions, cmd *cobra.Command) error {
	formatter := formatterFor(opts.RootOptions, cmd)

	data, err := os.ReadFile(opts.Input)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read archive file", err)
	}

	log, err := openLog(cmd.Context(), opts.RootOptions)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer log.Close()

	report, err := log.ImportArchive(cmd.Context(), data)
	if err != nil {
		_ = formatter.Error("E_IMPORT", err.Error(), nil)
		return NewExitError(ExitFailure, fmt.Sprintf("import failed: %v", err))
	}

	return formatter.Success(report)
}
