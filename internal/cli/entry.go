package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/audiojournal/internal/journal"
	"github.com/roach88/audiojournal/internal/repository"
)

// NewEntryCommand creates the entry command group.
func NewEntryCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "entry",
		Short: "Create, list, show, update, delete and search journal entries",
	}

	cmd.AddCommand(newEntryCreateCommand(rootOpts))
	cmd.AddCommand(newEntryListCommand(rootOpts))
	cmd.AddCommand(newEntryShowCommand(rootOpts))
	cmd.AddCommand(newEntryUpdateCommand(rootOpts))
	cmd.AddCommand(newEntryDeleteCommand(rootOpts))
	cmd.AddCommand(newEntrySearchCommand(rootOpts))

	return cmd
}

func newEntryCreateCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		title, audio, transcript string
		duration                 float64
		tags                     []string
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an entry for an existing audio file",
		Long: `Create an entry for an existing audio file.

With --tag, the entry and its tags are stored together or not at all;
missing tags are created.

Example:
  journal entry create --audio ~/memo.wav --title "Standup" --tag work --tag daily`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			in := repository.NewEntry{AudioPath: audio}
			if cmd.Flags().Changed("title") {
				in.Title = &title
			}
			if cmd.Flags().Changed("transcript") {
				in.Transcript = &transcript
			}
			if cmd.Flags().Changed("duration") {
				in.Duration = &duration
			}

			return rootOpts.withService(cmd, func(ctx context.Context, svc *journal.Service, out *OutputFormatter) error {
				var (
					id  int64
					err error
				)
				if len(tags) > 0 {
					id, err = svc.AddEntryWithTags(ctx, in, tags)
				} else {
					id, err = svc.CreateEntry(ctx, in)
				}
				if err != nil {
					return err
				}
				return out.Render(map[string]int64{"id": id}, func(w io.Writer) error {
					_, err := fmt.Fprintf(w, "Created entry %d\n", id)
					return err
				})
			})
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "entry title")
	cmd.Flags().StringVar(&audio, "audio", "", "path to the audio file (required)")
	cmd.Flags().StringVar(&transcript, "transcript", "", "entry transcript")
	cmd.Flags().Float64Var(&duration, "duration", 0, "duration in seconds")
	cmd.Flags().StringArrayVar(&tags, "tag", nil, "tag name (repeatable)")

	return cmd
}

func newEntryListCommand(rootOpts *RootOptions) *cobra.Command {
	var opts repository.ListOptions

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List entries",
		Long: `List entries, newest first by default.

Sort fields: createdAt, modifiedAt, title, duration. Unknown fields sort
by createdAt.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.withService(cmd, func(ctx context.Context, svc *journal.Service, out *OutputFormatter) error {
				entries, err := svc.GetAllEntries(ctx, opts)
				if err != nil {
					return err
				}
				return out.Render(entries, func(w io.Writer) error { return writeEntries(w, entries) })
			})
		},
	}

	cmd.Flags().StringVar(&opts.SortBy, "sort", repository.SortCreatedAt, "sort field")
	cmd.Flags().StringVar(&opts.Order, "order", repository.OrderDesc, "sort order (asc|desc)")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "maximum number of entries (0 = all)")

	return cmd
}

func newEntryShowCommand(rootOpts *RootOptions) *cobra.Command {
	var noTags bool

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show one entry with its tags",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("show entry", args[0])
			if err != nil {
				return err
			}
			return rootOpts.withService(cmd, func(ctx context.Context, svc *journal.Service, out *OutputFormatter) error {
				entry, err := svc.GetEntry(ctx, id, !noTags)
				if err != nil {
					return err
				}
				if entry == nil {
					return journal.NotFound("show entry", id)
				}
				return out.Render(entry, func(w io.Writer) error { return writeEntry(w, entry) })
			})
		},
	}

	cmd.Flags().BoolVar(&noTags, "no-tags", false, "do not load tags")

	return cmd
}

func newEntryUpdateCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		title, transcript string
		clearTranscript   bool
	)

	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Change an entry's title or transcript",
		Long: `Change an entry's title or transcript.

Fields whose flag is not given keep their current value.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("update entry", args[0])
			if err != nil {
				return err
			}
			return rootOpts.withService(cmd, func(ctx context.Context, svc *journal.Service, out *OutputFormatter) error {
				current, err := svc.GetEntry(ctx, id, false)
				if err != nil {
					return err
				}
				if current == nil {
					return journal.NotFound("update entry", id)
				}

				upd := repository.EntryUpdate{Title: current.Title, Transcript: current.Transcript}
				if cmd.Flags().Changed("title") {
					upd.Title = &title
				}
				if cmd.Flags().Changed("transcript") {
					upd.Transcript = &transcript
				}
				if clearTranscript {
					upd.Transcript = nil
				}

				res, err := svc.UpdateEntry(ctx, id, upd)
				if err != nil {
					return err
				}
				return out.Render(res, func(w io.Writer) error {
					_, err := fmt.Fprintf(w, "Updated entry %d\n", id)
					return err
				})
			})
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "new title")
	cmd.Flags().StringVar(&transcript, "transcript", "", "new transcript")
	cmd.Flags().BoolVar(&clearTranscript, "clear-transcript", false, "remove the transcript")
	cmd.MarkFlagsMutuallyExclusive("transcript", "clear-transcript")

	return cmd
}

func newEntryDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an entry",
		Long: `Delete an entry and its tag associations.

The audio file is not removed.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("delete entry", args[0])
			if err != nil {
				return err
			}
			return rootOpts.withService(cmd, func(ctx context.Context, svc *journal.Service, out *OutputFormatter) error {
				res, err := svc.DeleteEntry(ctx, id)
				if err != nil {
					return err
				}
				return out.Render(res, func(w io.Writer) error {
					msg := fmt.Sprintf("Deleted entry %d", id)
					if res.Changed == 0 {
						msg = fmt.Sprintf("No entry %d; nothing deleted", id)
					}
					_, err := fmt.Fprintln(w, msg)
					return err
				})
			})
		},
	}
}

func newEntrySearchCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "search <keyword>",
		Short: "Find entries whose title or transcript contains a keyword",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.withService(cmd, func(ctx context.Context, svc *journal.Service, out *OutputFormatter) error {
				entries, err := svc.SearchEntries(ctx, args[0])
				if err != nil {
					return err
				}
				return out.Render(entries, func(w io.Writer) error { return writeEntries(w, entries) })
			})
		},
	}
}
