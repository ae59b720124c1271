package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/audiojournal/internal/journal"
	"github.com/roach88/audiojournal/internal/settings"
)

// NewSettingsCommand creates the settings command group.
func NewSettingsCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show and change user settings",
	}

	cmd.AddCommand(newSettingsShowCommand(rootOpts))
	cmd.AddCommand(newSettingsSetCommand(rootOpts))
	cmd.AddCommand(newSettingsResetCommand(rootOpts))

	return cmd
}

func newSettingsShowCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show [key]",
		Short: "Show all settings, or one",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.withService(cmd, func(ctx context.Context, svc *journal.Service, out *OutputFormatter) error {
				if len(args) == 1 {
					v, err := svc.SettingValue(args[0])
					if err != nil {
						return err
					}
					return out.Render(map[string]any{args[0]: v}, func(w io.Writer) error {
						_, err := fmt.Fprintln(w, v)
						return err
					})
				}
				s := svc.Settings()
				return out.Render(s, func(w io.Writer) error { return writeSettings(w, s) })
			})
		},
	}
}

func newSettingsSetCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Change one setting",
		Long: `Change one setting.

Keys: audioQuality (low|medium|high), saveLocation, autoSave (true|false),
maxRecordingTimeMinutes, theme (light|dark).`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.withService(cmd, func(ctx context.Context, svc *journal.Service, out *OutputFormatter) error {
				s, err := svc.UpdateSetting(args[0], args[1])
				if err != nil {
					return err
				}
				return out.Render(s, func(w io.Writer) error { return writeSettings(w, s) })
			})
		},
	}
}

func newSettingsResetCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Restore default settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.withService(cmd, func(ctx context.Context, svc *journal.Service, out *OutputFormatter) error {
				s, err := svc.ResetSettings()
				if err != nil {
					return err
				}
				return out.Render(s, func(w io.Writer) error { return writeSettings(w, s) })
			})
		},
	}
}

func writeSettings(w io.Writer, s settings.Settings) error {
	_, err := fmt.Fprintf(w,
		"audioQuality:             %s\n"+
			"autoSave:                 %t\n"+
			"maxRecordingTimeMinutes:  %d\n"+
			"saveLocation:             %s\n"+
			"theme:                    %s\n",
		s.AudioQuality, s.AutoSave, s.MaxRecordingTimeMinutes, s.SaveLocation, s.Theme)
	return err
}
