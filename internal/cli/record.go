package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/audiojournal/internal/journal"
)

// NewRecordCommand creates the record command.
func NewRecordCommand(rootOpts *RootOptions) *cobra.Command {
	var duration time.Duration

	cmd := &cobra.Command{
		Use:   "record",
		Short: "Record a journal entry",
		Long: `Record a journal entry.

Recording stops after --for, at the maxRecordingTimeMinutes setting, or on
Ctrl-C, whichever comes first. The audio is then saved and an entry titled
"Recording <id>" is created for it.

Example:
  journal record --for 2m`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.withService(cmd, func(ctx context.Context, svc *journal.Service, out *OutputFormatter) error {
				ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
				defer stop()

				limit := svc.Settings().MaxRecordingTime()
				if duration <= 0 || duration > limit {
					out.VerboseLog("recording for at most %s", limit)
				}

				res, err := svc.Record(ctx, duration)
				if err != nil {
					return err
				}
				return out.Render(res, func(w io.Writer) error {
					_, err := fmt.Fprintf(w, "Saved recording %s as entry %d (%s)\n%s\n",
						res.RecordingID, res.EntryID, formatSeconds(res.Duration), res.Path)
					return err
				})
			})
		},
	}

	cmd.Flags().DurationVar(&duration, "for", 0, "recording length (default: maxRecordingTimeMinutes setting)")

	return cmd
}

// NewPlayCommand creates the play command.
func NewPlayCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "play <recording-id>",
		Short: "Play a stored recording",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.withService(cmd, func(ctx context.Context, svc *journal.Service, out *OutputFormatter) error {
				if err := svc.PlayRecording(ctx, args[0]); err != nil {
					return err
				}
				return out.Render(map[string]string{"recordingId": args[0]}, func(w io.Writer) error {
					_, err := fmt.Fprintf(w, "Playing %s\n", args[0])
					return err
				})
			})
		},
	}
}
