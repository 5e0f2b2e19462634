package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/zobject/internal/config"
	"github.com/roach88/zobject/internal/document"
	"github.com/roach88/zobject/internal/logging"
	"github.com/roach88/zobject/internal/store"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"
	Config  string // path to a YAML config file
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the zobject CLI.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&RootOptions{})
}

func newRootCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "zobject",
		Short: "zobject - persistent object store",
		Long: `Inspect and maintain zobject store files.

A store file is a SQLite database holding one table of archived objects
with reference counts. Documents are Contents objects made of layers of
shapes.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return NewExitError(ExitCommandError,
					fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.Config, "config", "", "path to config file")

	cmd.AddCommand(NewInitCommand(opts))
	cmd.AddCommand(NewNewCommand(opts))
	cmd.AddCommand(NewStatsCommand(opts))
	cmd.AddCommand(NewLsCommand(opts))
	cmd.AddCommand(NewDumpCommand(opts))
	cmd.AddCommand(NewKeepCommand(opts))
	cmd.AddCommand(NewWasteCommand(opts))
	cmd.AddCommand(NewDeleteCommand(opts))
	cmd.AddCommand(NewDemoCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))

	return cmd
}

// Execute runs the CLI with args and returns the process exit code.
// Errors are reported on stderr, or on stdout as a JSON response when
// --format json is in effect.
func Execute(args []string, stdout, stderr io.Writer) int {
	opts := &RootOptions{}
	cmd := newRootCommand(opts)
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	err := cmd.Execute()
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) && exitErr.Reported {
		return exitErr.Code
	}

	f := &OutputFormatter{Format: "text", Writer: stderr, Verbose: opts.Verbose}
	if opts.Format == "json" {
		f.Format = "json"
		f.Writer = stdout
	}
	_ = f.Error(ErrorCode(err), err.Error(), nil)
	return GetExitCode(err)
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}

func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   o.Verbose,
	}
}

// loadConfig reads --config, or returns the defaults when none is given.
func (o *RootOptions) loadConfig() (config.Config, error) {
	if o.Config == "" {
		return config.Default(), nil
	}
	cfg, err := config.Load(o.Config)
	if err != nil {
		return config.Config{}, WrapExitError(ExitCommandError, "failed to load config", err)
	}
	return cfg, nil
}

// session is an open store plus the logger writing on its behalf.
type session struct {
	cfg    config.Config
	logger *slog.Logger
	store  *store.Store
	closer io.Closer
}

// Open modes for openSession.
const (
	mustExist = false
	mayCreate = true
)

// openSession resolves the database path from dbFlag or the config file,
// builds the logger and opens the store. With mustExist a missing file is
// a command error instead of a new store.
func (o *RootOptions) openSession(cmd *cobra.Command, dbFlag string, create bool) (*session, error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, err
	}
	path := dbFlag
	if path == "" {
		path = cfg.Database.Path
	}
	if path == "" {
		return nil, NewExitError(ExitCommandError, "no database given: use --db or set database.path in the config file")
	}
	if !create {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return nil, NewExitError(ExitCommandError, fmt.Sprintf("database not found: %s", path))
		}
	}

	logger, closer, err := logging.New(cfg.Log, cmd.ErrOrStderr(), o.Verbose)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to set up logging", err)
	}

	st, err := store.Open(path,
		store.FromConfig(cfg.Database),
		store.WithRegistry(document.NewRegistry()),
		store.WithLogger(logger),
	)
	if err != nil {
		closer.Close()
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	logger.Debug("database ready", "path", path)
	return &session{cfg: cfg, logger: logger, store: st, closer: closer}, nil
}

func (s *session) Close() {
	if err := s.store.Close(); err != nil {
		s.logger.Error("error closing database", "error", err)
	}
	s.closer.Close()
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
