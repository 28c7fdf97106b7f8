package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/proofcheck/internal/admission"
	"github.com/roach88/proofcheck/internal/capture"
	"github.com/roach88/proofcheck/internal/config"
	"github.com/roach88/proofcheck/internal/ledger"
	"github.com/roach88/proofcheck/internal/store"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	ConfigPath string

	// Recognizers overrides the OCR engine (for testing).
	// If nil, Tesseract is started per image.
	Recognizers capture.RecognizerFactory

	// Clock overrides the wall clock (for testing).
	Clock admission.Clock
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the proofcheck CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "proofcheck",
		Short: "proofcheck - proof-of-completion photo verification",
		Long: `Decide whether a photo is acceptable evidence that a task was done today.

A photo is accepted when its bytes were never used before by the same user
and its capture time (from EXIF metadata or a burned-in date watermark)
falls on the current local day.`,
		SilenceErrors: true, // main reports errors once, after exit code mapping
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Validate format flag
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "proofcheck.yaml", "path to YAML config (missing file means defaults)")

	// Add subcommands
	cmd.AddCommand(NewVerifyCommand(opts))
	cmd.AddCommand(NewHashCommand(opts))
	cmd.AddCommand(NewLedgerCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))

	return cmd
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}

func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   o.Verbose,
	}
}

// setupLogging installs the default slog handler. Logs always go to the
// error stream so JSON output stays parseable.
func (o *RootOptions) setupLogging(w io.Writer) {
	logLevel := slog.LevelWarn
	if o.Verbose {
		logLevel = slog.LevelDebug
	}
	handler := slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: logLevel,
	})
	slog.SetDefault(slog.New(handler))
}

func (o *RootOptions) loadConfig() (config.Config, error) {
	cfg, err := config.Load(o.ConfigPath)
	if err != nil {
		return config.Config{}, WrapExitError(ExitCommandError, "failed to load config", err)
	}
	return cfg, nil
}

func (o *RootOptions) clock() admission.Clock {
	if o.Clock != nil {
		return o.Clock
	}
	return admission.SystemClock{}
}

// openLedger opens the SQLite store at dbPath (falling back to the
// configured path) and returns a ledger over it. The caller closes the store.
func openLedger(cfg config.Config, dbPath string) (*store.Store, *ledger.Ledger, error) {
	if dbPath == "" {
		dbPath = cfg.Ledger.DBPath
	}
	slog.Debug("opening database", "path", dbPath)
	st, err := store.Open(dbPath, store.WithBusyTimeout(cfg.Ledger.BusyTimeout))
	if err != nil {
		return nil, nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	l := ledger.New(st,
		ledger.WithNamespace(cfg.Ledger.Namespace),
		ledger.WithMaxRecords(cfg.Ledger.MaxRecords),
	)
	return st, l, nil
}

func closeStore(st *store.Store) {
	if err := st.Close(); err != nil {
		slog.Error("error closing database", "error", err)
	}
}

// commandContext returns the command's context, or Background when the
// command was executed without one.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
