package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/audiojournal/internal/apperr"
	"github.com/roach88/audiojournal/internal/blob"
	"github.com/roach88/audiojournal/internal/journal"
)

// NewAudioCommand creates the audio command group.
func NewAudioCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audio",
		Short: "Read, store, list and export recording files",
	}

	cmd.AddCommand(newAudioGetCommand(rootOpts))
	cmd.AddCommand(newAudioSaveCommand(rootOpts))
	cmd.AddCommand(newAudioListCommand(rootOpts))
	cmd.AddCommand(newAudioExportCommand(rootOpts))

	return cmd
}

// audioPayload is the JSON form of a recording's bytes (base64 encoded).
type audioPayload struct {
	ID   string `json:"id"`
	Size int    `json:"size"`
	Data []byte `json:"data,omitempty"`
	Path string `json:"path,omitempty"`
}

func newAudioGetCommand(rootOpts *RootOptions) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "get <recording-id>",
		Short: "Write a recording's bytes to stdout or a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.withService(cmd, func(ctx context.Context, svc *journal.Service, out *OutputFormatter) error {
				data, err := svc.GetAudioFile(ctx, args[0])
				if err != nil {
					return err
				}

				if output != "" {
					if err := os.WriteFile(output, data, 0o644); err != nil {
						return apperr.Wrapf(apperr.KindIO, "get audio", err, "write %s", output)
					}
					payload := audioPayload{ID: args[0], Size: len(data), Path: output}
					return out.Render(payload, func(w io.Writer) error {
						_, err := fmt.Fprintf(w, "Wrote %d bytes to %s\n", len(data), output)
						return err
					})
				}

				payload := audioPayload{ID: args[0], Size: len(data), Data: data}
				return out.Render(payload, func(w io.Writer) error {
					_, err := w.Write(data)
					return err
				})
			})
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "write to this file instead of stdout")

	return cmd
}

func newAudioSaveCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "save <recording-id> <file|->",
		Short: "Store audio bytes under a recording id",
		Long: `Store audio bytes under a recording id.

Reads from the given file, or from stdin when the file is "-". An existing
recording with the same id is replaced.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, src := args[0], args[1]
			if err := blob.ValidID(id); err != nil {
				return err
			}

			var (
				data []byte
				err  error
			)
			if src == "-" {
				data, err = io.ReadAll(cmd.InOrStdin())
			} else {
				data, err = os.ReadFile(src)
			}
			if err != nil {
				return apperr.Wrapf(apperr.KindIO, "save audio", err, "read %s", src)
			}

			return rootOpts.withService(cmd, func(ctx context.Context, svc *journal.Service, out *OutputFormatter) error {
				path, err := svc.SaveAudioFile(ctx, id, data)
				if err != nil {
					return err
				}
				return out.Render(audioPayload{ID: id, Size: len(data), Path: path}, func(w io.Writer) error {
					_, err := fmt.Fprintf(w, "Saved %s\n", path)
					return err
				})
			})
		},
	}
}

func newAudioListCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored recordings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.withService(cmd, func(ctx context.Context, svc *journal.Service, out *OutputFormatter) error {
				infos, err := svc.ListAudioFiles(ctx)
				if err != nil {
					return err
				}
				return out.Render(infos, func(w io.Writer) error {
					if len(infos) == 0 {
						_, err := fmt.Fprintln(w, "No recordings.")
						return err
					}
					for _, info := range infos {
						if _, err := fmt.Fprintf(w, "%s  %s\n", info.ID, info.Path); err != nil {
							return err
						}
					}
					return nil
				})
			})
		},
	}
}

func newAudioExportCommand(rootOpts *RootOptions) *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "export <recording-id>",
		Short: "Copy a recording to another directory",
		Long: `Copy a recording to another directory.

Without --dir the saveLocation setting is used.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.withService(cmd, func(ctx context.Context, svc *journal.Service, out *OutputFormatter) error {
				path, err := svc.ExportRecording(ctx, args[0], dir)
				if err != nil {
					return err
				}
				return out.Render(audioPayload{ID: args[0], Path: path}, func(w io.Writer) error {
					_, err := fmt.Fprintf(w, "Exported to %s\n", path)
					return err
				})
			})
		},
	}

	cmd.Flags().StringVar(&dir, "dir", "", "destination directory (default: saveLocation setting)")

	return cmd
}
