package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	eventlog "github.com/Robust-infrastructure/ri-event-log"
)

// QueryOptions holds flags shared by the query subcommands.
type QueryOptions struct {
	*RootOptions
	Limit  int
	Cursor string
	Order  string
}

// NewQueryCommand creates the query command group: by-space, by-type,
// and by-time, each sharing the cursor/limit/order pagination flags.
func NewQueryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &QueryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "query",
		Short: "Query events by space, type, or time range",
	}
	cmd.PersistentFlags().IntVar(&opts.Limit, "limit", 100, "page size, clamped to [1, 1000]")
	cmd.PersistentFlags().StringVar(&opts.Cursor, "cursor", "", "opaque pagination cursor")
	cmd.PersistentFlags().StringVar(&opts.Order, "order", "asc", "sort order (asc|desc)")

	cmd.AddCommand(newQueryBySpaceCommand(opts))
	cmd.AddCommand(newQueryByTypeCommand(opts))
	cmd.AddCommand(newQueryByTimeCommand(opts))

	return cmd
}

func (o *QueryOptions) toQueryOptions() eventlog.QueryOptions {
	return eventlog.QueryOptions{
		Limit:  o.Limit,
		Cursor: o.Cursor,
		Order:  eventlog.Order(o.Order),
	}
}

func newQueryBySpaceCommand(opts *QueryOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "by-space <space-id>",
		Short:         "Query events in one space",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(opts, cmd, func(log *eventlog.Log) (eventlog.Page, error) {
				return log.QueryBySpace(cmd.Context(), args[0], opts.toQueryOptions())
			})
		},
	}
}

func newQueryByTypeCommand(opts *QueryOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "by-type <event-type>",
		Short:         "Query events of one type across all spaces",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(opts, cmd, func(log *eventlog.Log) (eventlog.Page, error) {
				return log.QueryByType(cmd.Context(), eventlog.EventType(args[0]), opts.toQueryOptions())
			})
		},
	}
}

func newQueryByTimeCommand(opts *QueryOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "by-time <from> <to>",
		Short:         "Query events with timestamp in [from, to)",
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(opts, cmd, func(log *eventlog.Log) (eventlog.Page, error) {
				return log.QueryByTime(cmd.Context(), args[0], args[1], opts.toQueryOptions())
			})
		},
	}
}

func runQuery(opts *QueryOptions, cmd *cobra.Command, do func(*eventlog.Log) (eventlog.Page, error)) error {
	formatter := formatterFor(opts.RootOptions, cmd)

	log, err := openLog(cmd.Context(), opts.RootOptions)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer log.Close()

	page, err := do(log)
	if err != nil {
		_ = formatter.Error("E_QUERY", err.Error(), nil)
		return NewExitError(ExitFailure, fmt.Sprintf("query failed: %v", err))
	}

	return formatter.Success(page)
}
