// Package cli implements the rblogs command-line tool: a thin cobra
// wrapper around the eventlog facade, adapted from the teacher's
// internal/cli layout (ExitError, OutputFormatter, JSON/text dual
// output) for a single embedded database rather than a running
// engine.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// RootOptions holds global flags shared by every subcommand.
type RootOptions struct {
	Verbose  bool
	Format   string // "json" | "text"
	Database string
}

// ValidFormats defines the allowed --format values.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root rblogs command.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "rblogs",
		Short: "rblogs - embedded, cryptographically chained event log",
		Long:  "A command-line tool for writing, querying, verifying, and archiving an rblogs event log.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.Database, "db", "event-log.db", "path to the SQLite database")

	cmd.AddCommand(NewWriteCommand(opts))
	cmd.AddCommand(NewQueryCommand(opts))
	cmd.AddCommand(NewVerifyCommand(opts))
	cmd.AddCommand(NewSnapshotCommand(opts))
	cmd.AddCommand(NewCompactCommand(opts))
	cmd.AddCommand(NewStorageCommand(opts))
	cmd.AddCommand(NewExportCommand(opts))
	cmd.AddCommand(NewImportCommand(opts))
	cmd.AddCommand(NewReconstructCommand(opts))

	return cmd
}

func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}

func formatterFor(rootOpts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    rootOpts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   rootOpts.Verbose,
	}
}
