package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/proofcheck/internal/ledger"
	"github.com/roach88/proofcheck/internal/proof"
	"github.com/roach88/proofcheck/internal/verify"
)

// VerifyOptions holds flags for the verify command.
type VerifyOptions struct {
	*RootOptions
	Database string
	User     string
	Commit   bool
	Context  string
}

// VerifyOutput describes an accepted proof.
type VerifyOutput struct {
	File       string    `json:"file"`
	Hash       string    `json:"hash"`
	CapturedAt time.Time `json:"captured_at"`
	Source     string    `json:"source"`
	Detail     string    `json:"detail,omitempty"`
	Committed  bool      `json:"committed"`
}

func (o VerifyOutput) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "✓ Accepted: %s\n", o.File)
	fmt.Fprintf(&b, "  Hash: %s\n", o.Hash)
	if o.Detail != "" {
		fmt.Fprintf(&b, "  Captured: %s (%s, %s)", o.CapturedAt.Format(time.RFC3339), o.Source, o.Detail)
	} else {
		fmt.Fprintf(&b, "  Captured: %s (%s)", o.CapturedAt.Format(time.RFC3339), o.Source)
	}
	if o.Committed {
		b.WriteString("\n  Recorded in ledger")
	}
	return b.String()
}

// RejectionDetails accompanies a rejected verdict.
type RejectionDetails struct {
	File     string `json:"file"`
	Guidance string `json:"guidance,omitempty"`
}

// NewVerifyCommand creates the verify command.
func NewVerifyCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &VerifyOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "verify <image>",
		Short: "Check a photo as proof of a task done today",
		Long: `Check a photo as proof of a task done today.

The photo is rejected when its bytes were already used by the same user,
when no capture time can be found, or when it was not taken today.
With --commit an accepted photo is recorded so it cannot be reused.

Exit codes: 0 accepted, 1 rejected, 2 command error.

Example:
  proofcheck verify --user alice ./run.jpg
  proofcheck verify --user alice --commit --context challenge:42 ./run.jpg`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVerify(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite ledger database (default from config)")
	cmd.Flags().StringVarP(&opts.User, "user", "u", "", "user whose ledger is consulted (empty means anonymous)")
	cmd.Flags().BoolVar(&opts.Commit, "commit", false, "record an accepted photo in the ledger")
	cmd.Flags().StringVar(&opts.Context, "context", "", "context tag stored with a committed record")

	return cmd
}

func runVerify(opts *VerifyOptions, path string, cmd *cobra.Command) error {
	opts.setupLogging(cmd.ErrOrStderr())
	formatter := opts.formatter(cmd)

	cfg, err := opts.loadConfig()
	if err != nil {
		return err
	}

	clock := opts.clock()
	verifier, err := verify.FromConfig(cfg, opts.Recognizers, verify.WithClock(clock))
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to build verifier", err)
	}

	st, led, err := openLedger(cfg, opts.Database)
	if err != nil {
		return err
	}
	defer closeStore(st)

	ctx := commandContext(cmd)
	formatter.VerboseLog("Verifying %s for %s", path, led.Key(opts.User))

	result, err := verifier.Verify(ctx, proof.PathFile(path), led.Lookup(ctx, opts.User))
	if err != nil {
		return WrapExitError(ExitCommandError, "verification aborted", err)
	}
	formatter.TraceID = result.AttemptID

	if !result.Accepted() {
		return outputRejection(formatter, path, result.Rejection)
	}

	payload := result.Payload
	out := VerifyOutput{
		File:       path,
		Hash:       payload.Hash,
		CapturedAt: payload.CapturedAt,
		Source:     string(payload.Source),
		Detail:     payload.Detail,
	}

	if opts.Commit {
		committed, err := commitProof(cmd, led, opts, payload, clock.Now())
		if err != nil {
			return err
		}
		if !committed {
			// Another submission recorded the same bytes between check and commit.
			return outputRejection(formatter, path, &proof.Rejection{
				Reason:   proof.ReasonAlreadyUsed,
				Message:  verify.MessageAlreadyUsed,
				Guidance: verify.GuidanceAlreadyUsed,
			})
		}
		out.Committed = true
	}

	return formatter.Success(out)
}

func commitProof(cmd *cobra.Command, led *ledger.Ledger, opts *VerifyOptions, payload *proof.ProofPayload, now time.Time) (bool, error) {
	added, err := led.Append(commandContext(cmd), opts.User, proof.UsedProofRecord{
		Hash:       payload.Hash,
		UsedAt:     now,
		CapturedAt: payload.CapturedAt,
		Context:    opts.Context,
	})
	if err != nil {
		return false, WrapExitError(ExitCommandError, "failed to record proof", err)
	}
	return added, nil
}

// outputRejection prints the verdict and returns the failure exit code.
func outputRejection(formatter *OutputFormatter, path string, rej *proof.Rejection) error {
	if formatter.Format == "json" {
		details := RejectionDetails{File: path, Guidance: rej.Guidance}
		if err := formatter.Error(string(rej.Reason), rej.Message, details); err != nil {
			return err
		}
	} else {
		fmt.Fprintf(formatter.Writer, "✗ Rejected [%s]: %s\n", rej.Reason, rej.Message)
		if rej.Guidance != "" {
			fmt.Fprintf(formatter.Writer, "  %s\n", rej.Guidance)
		}
	}
	return NewExitError(ExitFailure, rej.String())
}
