package cli

import (
	"context"

	eventlog "github.com/Robust-infrastructure/ri-event-log"
)

// openLog opens the database named by opts.Database with default
// configuration. Every command opens and closes its own Log — this
// CLI is a one-shot tool, not a long-running process.
func openLog(ctx context.Context, opts *RootOptions) (*eventlog.Log, error) {
	return eventlog.Open(ctx, eventlog.Config{DatabaseName: opts.Database})
}
