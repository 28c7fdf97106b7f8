package cli

import (
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/proofcheck/internal/hashing"
	"github.com/roach88/proofcheck/internal/proof"
	"github.com/roach88/proofcheck/internal/store"
)

// LedgerOptions holds flags shared by the ledger subcommands.
type LedgerOptions struct {
	*RootOptions
	Database string
	User     string
}

// LedgerRecord is one ledger entry in CLI output.
type LedgerRecord struct {
	Hash       string     `json:"hash"`
	UsedAt     time.Time  `json:"used_at"`
	CapturedAt *time.Time `json:"captured_at,omitempty"`
	Context    string     `json:"context,omitempty"`
}

// LedgerListOutput is the history of one scope.
type LedgerListOutput struct {
	Scope   string         `json:"scope"`
	Records []LedgerRecord `json:"records"`
}

func (o LedgerListOutput) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Ledger %s: %d record(s)", o.Scope, len(o.Records))
	for _, r := range o.Records {
		fmt.Fprintf(&b, "\n  %s  used %s", r.Hash, r.UsedAt.Format(time.RFC3339))
		if r.Context != "" {
			fmt.Fprintf(&b, "  [%s]", r.Context)
		}
	}
	return b.String()
}

// LedgerMarkOutput reports a manual append.
type LedgerMarkOutput struct {
	Scope string `json:"scope"`
	Hash  string `json:"hash"`
	Added bool   `json:"added"`
}

func (o LedgerMarkOutput) String() string {
	if !o.Added {
		return fmt.Sprintf("%s already recorded in %s", o.Hash, o.Scope)
	}
	return fmt.Sprintf("Recorded %s in %s", o.Hash, o.Scope)
}

// LedgerScopesOutput lists the scopes that have history.
type LedgerScopesOutput struct {
	Namespace string   `json:"namespace"`
	Scopes    []string `json:"scopes"`
}

func (o LedgerScopesOutput) String() string {
	if len(o.Scopes) == 0 {
		return "No ledgers in " + o.Namespace
	}
	return strings.Join(o.Scopes, "\n")
}

// NewLedgerCommand creates the ledger command group.
func NewLedgerCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &LedgerOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "ledger",
		Short: "Inspect and edit the used-proof ledger",
		Long: `Inspect and edit the per-user ledger of photo fingerprints already
spent as proof. Each user keeps at most the configured number of
records, newest first.`,
	}

	cmd.PersistentFlags().StringVar(&opts.Database, "db", "", "path to SQLite ledger database (default from config)")
	cmd.PersistentFlags().StringVarP(&opts.User, "user", "u", "", "user whose ledger is used (empty means anonymous)")

	cmd.AddCommand(newLedgerListCommand(opts))
	cmd.AddCommand(newLedgerMarkCommand(opts))
	cmd.AddCommand(newLedgerScopesCommand(opts))

	return cmd
}

func newLedgerListCommand(opts *LedgerOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "list",
		Short:         "List a user's used proofs, newest first",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLedgerList(opts, cmd)
		},
	}
}

func runLedgerList(opts *LedgerOptions, cmd *cobra.Command) error {
	opts.setupLogging(cmd.ErrOrStderr())
	formatter := opts.formatter(cmd)

	cfg, err := opts.loadConfig()
	if err != nil {
		return err
	}
	st, led, err := openLedger(cfg, opts.Database)
	if err != nil {
		return err
	}
	defer closeStore(st)

	records, err := led.Records(commandContext(cmd), opts.User)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read ledger", err)
	}

	out := LedgerListOutput{Scope: led.Key(opts.User), Records: make([]LedgerRecord, 0, len(records))}
	for _, r := range records {
		out.Records = append(out.Records, toLedgerRecord(r))
	}
	return formatter.Success(out)
}

func toLedgerRecord(r proof.UsedProofRecord) LedgerRecord {
	rec := LedgerRecord{Hash: r.Hash, UsedAt: r.UsedAt, Context: r.Context}
	if !r.CapturedAt.IsZero() {
		captured := r.CapturedAt
		rec.CapturedAt = &captured
	}
	return rec
}

// ledgerMarkOptions holds flags for ledger mark.
type ledgerMarkOptions struct {
	*LedgerOptions
	Context    string
	CapturedAt string
}

func newLedgerMarkCommand(ledgerOpts *LedgerOptions) *cobra.Command {
	opts := &ledgerMarkOptions{LedgerOptions: ledgerOpts}

	cmd := &cobra.Command{
		Use:   "mark <hash>",
		Short: "Record a fingerprint as used",
		Long: `Record a fingerprint as used without verifying a photo.

The hash is the output of "proofcheck hash". Marking a hash that is
already recorded is a no-op.

Example:
  proofcheck ledger mark --user alice --context vibe:7 $(proofcheck hash ./run.jpg | cut -d' ' -f1)`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLedgerMark(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Context, "context", "", "context tag stored with the record")
	cmd.Flags().StringVar(&opts.CapturedAt, "captured-at", "", "capture time of the photo (RFC 3339)")

	return cmd
}

func runLedgerMark(opts *ledgerMarkOptions, hash string, cmd *cobra.Command) error {
	opts.setupLogging(cmd.ErrOrStderr())
	formatter := opts.formatter(cmd)

	hash = strings.ToLower(strings.TrimSpace(hash))
	if err := validateDigest(hash); err != nil {
		return WrapExitError(ExitCommandError, "invalid hash", err)
	}

	var capturedAt time.Time
	if opts.CapturedAt != "" {
		t, err := time.Parse(time.RFC3339, opts.CapturedAt)
		if err != nil {
			return WrapExitError(ExitCommandError, "invalid --captured-at", err)
		}
		capturedAt = t
	}

	cfg, err := opts.loadConfig()
	if err != nil {
		return err
	}
	st, led, err := openLedger(cfg, opts.Database)
	if err != nil {
		return err
	}
	defer closeStore(st)

	added, err := led.Append(commandContext(cmd), opts.User, proof.UsedProofRecord{
		Hash:       hash,
		UsedAt:     opts.clock().Now(),
		CapturedAt: capturedAt,
		Context:    opts.Context,
	})
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to record hash", err)
	}
	return formatter.Success(LedgerMarkOutput{Scope: led.Key(opts.User), Hash: hash, Added: added})
}

func validateDigest(hash string) error {
	if len(hash) != hashing.DigestLen {
		return fmt.Errorf("want %d hex characters, got %d", hashing.DigestLen, len(hash))
	}
	if _, err := hex.DecodeString(hash); err != nil {
		return fmt.Errorf("not hex: %w", err)
	}
	return nil
}

func newLedgerScopesCommand(opts *LedgerOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "scopes",
		Short:         "List users that have ledger history, most recently written first",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLedgerScopes(opts, cmd)
		},
	}
}

func runLedgerScopes(opts *LedgerOptions, cmd *cobra.Command) error {
	opts.setupLogging(cmd.ErrOrStderr())
	formatter := opts.formatter(cmd)

	cfg, err := opts.loadConfig()
	if err != nil {
		return err
	}
	st, _, err := openLedger(cfg, opts.Database)
	if err != nil {
		return err
	}
	defer closeStore(st)

	ns := cfg.Ledger.Namespace
	keys, err := st.Keys(commandContext(cmd), ns+":")
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list ledgers", err)
	}
	return formatter.Success(LedgerScopesOutput{Namespace: ns, Scopes: store.ScopeIDs(keys, ns)})
}
