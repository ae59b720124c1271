package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/roach88/audiojournal/internal/config"
	"github.com/roach88/audiojournal/internal/journal"
	"github.com/roach88/audiojournal/internal/logging"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"
	DataDir string

	// EnvFiles are loaded before the environment is read. Empty means
	// ".env" in the working directory.
	EnvFiles []string

	// ServiceOptions are appended when opening the journal (for testing).
	ServiceOptions []journal.Option
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the journal CLI.
func NewRootCommand() *cobra.Command {
	return NewRootCommandWithOptions(&RootOptions{})
}

// NewRootCommandWithOptions creates the root command bound to opts.
func NewRootCommandWithOptions(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "journal",
		Short: "Audio journal",
		Long: `A local audio journal: recordings paired with titles, transcripts and tags.

Entries and tags live in a SQLite database; audio lives in a recordings
directory beside it. Both are kept under the data directory
($JOURNAL_DATA_DIR, or the user config directory by default).`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Validate format flag
			if !isValidFormat(opts.Format) {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			return nil
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.DataDir, "data-dir", "", "data directory (overrides JOURNAL_DATA_DIR)")

	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return WrapExitError(ExitCommandError, "invalid arguments", err)
	})

	// Add subcommands
	cmd.AddCommand(NewEntryCommand(opts))
	cmd.AddCommand(NewTagCommand(opts))
	cmd.AddCommand(NewAudioCommand(opts))
	cmd.AddCommand(NewRecordCommand(opts))
	cmd.AddCommand(NewPlayCommand(opts))
	cmd.AddCommand(NewSettingsCommand(opts))

	return cmd
}

// Execute runs the CLI with args and returns the process exit code.
// Errors are rendered in the selected format before returning.
func Execute(ctx context.Context, opts *RootOptions, args []string, stdout, stderr io.Writer) int {
	cmd := NewRootCommandWithOptions(opts)
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	err := cmd.ExecuteContext(ctx)
	if err == nil {
		return ExitSuccess
	}

	formatter := &OutputFormatter{Format: opts.Format, Writer: stdout, ErrWriter: stderr, Verbose: opts.Verbose}
	_ = formatter.Error(err)
	return GetExitCode(err)
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}

func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   o.Verbose,
	}
}

func (o *RootOptions) logger(cmd *cobra.Command, cfg *config.Config) zerolog.Logger {
	level := logging.ParseLevel(cfg.LogLevel)
	if o.Verbose {
		level = zerolog.DebugLevel
	}
	if o.Format == "json" {
		return logging.New(cmd.ErrOrStderr(), level)
	}
	return logging.NewConsole(cmd.ErrOrStderr(), level)
}

// withService opens the journal, runs fn, and closes the journal.
func (o *RootOptions) withService(cmd *cobra.Command, fn func(ctx context.Context, svc *journal.Service, out *OutputFormatter) error) error {
	cfg, err := config.Read(o.EnvFiles...)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load configuration", err)
	}
	if o.DataDir != "" {
		cfg.DataDir = o.DataDir
	}
	if err := cfg.ResolveDefaults(); err != nil {
		return WrapExitError(ExitCommandError, "failed to load configuration", err)
	}

	log := o.logger(cmd, cfg)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	svcOpts := append([]journal.Option{journal.WithLogger(log)}, o.ServiceOptions...)
	svc, err := journal.Open(ctx, cfg, svcOpts...)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := svc.Close(); closeErr != nil {
			log.Error().Err(closeErr).Msg("error closing journal")
		}
	}()

	return fn(ctx, svc, o.formatter(cmd))
}
