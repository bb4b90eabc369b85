package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	eventlog "github.com/Robust-infrastructure/ri-event-log"
)

// WriteOptions holds flags for the write command.
type WriteOptions struct {
	*RootOptions
	SpaceID   string
	Type      string
	Timestamp string
	Version   int
	Payload   string
}

// NewWriteCommand creates the write command.
func NewWriteCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &WriteOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:           "write",
		Short:         "Append a new event to a space",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWrite(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.SpaceID, "space", "", "space id (required)")
	cmd.Flags().StringVar(&opts.Type, "type", "", "event type (required)")
	cmd.Flags().StringVar(&opts.Timestamp, "timestamp", "", "ISO-8601 timestamp (required)")
	cmd.Flags().IntVar(&opts.Version, "version", 1, "schema version tag")
	cmd.Flags().StringVar(&opts.Payload, "payload", "{}", "JSON object payload")
	_ = cmd.MarkFlagRequired("space")
	_ = cmd.MarkFlagRequired("type")
	_ = cmd.MarkFlagRequired("timestamp")

	return cmd
}

func runWrite(opts *WriteOptions, cmd *cobra.Command) error {
	formatter := formatterFor(opts.RootOptions, cmd)

	var payload map[string]any
	if err := json.Unmarshal([]byte(opts.Payload), &payload); err != nil {
		return WrapExitError(ExitCommandError, "payload must be a JSON object", err)
	}

	log, err := openLog(cmd.Context(), opts.RootOptions)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer log.Close()

	event, err := log.WriteEvent(cmd.Context(), eventlog.EventInput{
		Type:      eventlog.EventType(opts.Type),
		SpaceID:   opts.SpaceID,
		Timestamp: opts.Timestamp,
		Version:   opts.Version,
		Payload:   payload,
	})
	if err != nil {
		formatter.VerboseLog("write failed: %v", err)
		_ = formatter.Error("E_WRITE", err.Error(), nil)
		return NewExitError(ExitFailure, fmt.Sprintf("write failed: %v", err))
	}

	return formatter.Success(event)
}
