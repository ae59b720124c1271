package cli

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/roach88/audiojournal/internal/apperr"
	"github.com/roach88/audiojournal/internal/journal"
	"github.com/roach88/audiojournal/internal/repository"
)

// NewTagCommand creates the tag command group.
func NewTagCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tag",
		Short: "Manage tags and attach them to entries",
		Long: `Manage tags and attach them to entries.

Where a command takes <tag>, it accepts either a tag id or a tag name.`,
	}

	cmd.AddCommand(newTagCreateCommand(rootOpts))
	cmd.AddCommand(newTagListCommand(rootOpts))
	cmd.AddCommand(newTagAttachCommand(rootOpts))
	cmd.AddCommand(newTagDetachCommand(rootOpts))
	cmd.AddCommand(newTagEntriesCommand(rootOpts))

	return cmd
}

func newTagCreateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "create <name>",
		Short: "Create a tag (existing names return the existing tag)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.withService(cmd, func(ctx context.Context, svc *journal.Service, out *OutputFormatter) error {
				id, err := svc.CreateTag(ctx, args[0])
				if err != nil {
					return err
				}
				tag := repository.Tag{ID: id, Name: args[0]}
				return out.Render(tag, func(w io.Writer) error {
					_, err := fmt.Fprintf(w, "Tag %q has id %d\n", tag.Name, tag.ID)
					return err
				})
			})
		},
	}
}

func newTagListCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List tags",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.withService(cmd, func(ctx context.Context, svc *journal.Service, out *OutputFormatter) error {
				tags, err := svc.GetAllTags(ctx)
				if err != nil {
					return err
				}
				return out.Render(tags, func(w io.Writer) error { return writeTags(w, tags) })
			})
		},
	}
}

func newTagAttachCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "attach <entry-id> <tag>",
		Short: "Attach a tag to an entry, creating the tag if needed",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			entryID, err := parseID("tag entry", args[0])
			if err != nil {
				return err
			}
			return rootOpts.withService(cmd, func(ctx context.Context, svc *journal.Service, out *OutputFormatter) error {
				tagID, err := resolveTag(ctx, svc, args[1], true)
				if err != nil {
					return err
				}
				if err := svc.TagEntry(ctx, entryID, tagID); err != nil {
					return err
				}
				return out.Render(map[string]int64{"entryId": entryID, "tagId": tagID}, func(w io.Writer) error {
					_, err := fmt.Fprintf(w, "Tagged entry %d with %s\n", entryID, args[1])
					return err
				})
			})
		},
	}
}

func newTagDetachCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "detach <entry-id> <tag>",
		Short: "Remove a tag from an entry",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			entryID, err := parseID("untag entry", args[0])
			if err != nil {
				return err
			}
			return rootOpts.withService(cmd, func(ctx context.Context, svc *journal.Service, out *OutputFormatter) error {
				tagID, err := resolveTag(ctx, svc, args[1], false)
				if err != nil {
					return err
				}
				if err := svc.UntagEntry(ctx, entryID, tagID); err != nil {
					return err
				}
				return out.Render(map[string]int64{"entryId": entryID, "tagId": tagID}, func(w io.Writer) error {
					_, err := fmt.Fprintf(w, "Removed %s from entry %d\n", args[1], entryID)
					return err
				})
			})
		},
	}
}

func newTagEntriesCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "entries <tag>",
		Short: "List the entries carrying a tag",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.withService(cmd, func(ctx context.Context, svc *journal.Service, out *OutputFormatter) error {
				tagID, err := resolveTag(ctx, svc, args[0], false)
				if err != nil {
					return err
				}
				entries, err := svc.GetEntriesWithTag(ctx, tagID)
				if err != nil {
					return err
				}
				return out.Render(entries, func(w io.Writer) error { return writeEntries(w, entries) })
			})
		},
	}
}

// resolveTag maps a tag id or name to an id. With create, an unknown name
// becomes a new tag; otherwise it is not found.
func resolveTag(ctx context.Context, svc *journal.Service, arg string, create bool) (int64, error) {
	if id, err := strconv.ParseInt(arg, 10, 64); err == nil {
		return id, nil
	}
	if create {
		return svc.CreateTag(ctx, arg)
	}

	tags, err := svc.GetAllTags(ctx)
	if err != nil {
		return 0, err
	}
	for _, t := range tags {
		if t.Name == arg {
			return t.ID, nil
		}
	}
	return 0, apperr.New(apperr.KindNotFound, "resolve tag", fmt.Sprintf("no tag named %q", arg))
}
