package cli

import (
	"github.com/spf13/cobra"

	"github.com/roach88/proofcheck/internal/hashing"
	"github.com/roach88/proofcheck/internal/proof"
)

// HashOutput is the content fingerprint of a file.
type HashOutput struct {
	File string `json:"file"`
	Hash string `json:"hash"`
}

func (o HashOutput) String() string {
	return o.Hash + "  " + o.File
}

// NewHashCommand creates the hash command.
func NewHashCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hash <file>",
		Short: "Print the content fingerprint used for replay detection",
		Long: `Print the lowercase hex SHA-256 of a file's bytes.

This is the identity the ledger records: two files with the same bytes
are the same proof regardless of name.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHash(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runHash(opts *RootOptions, path string, cmd *cobra.Command) error {
	opts.setupLogging(cmd.ErrOrStderr())
	formatter := opts.formatter(cmd)

	ctx := commandContext(cmd)
	select {
	case res := <-hashing.Start(ctx, proof.PathFile(path)):
		if res.Err != nil {
			return WrapExitError(ExitCommandError, "failed to hash file", res.Err)
		}
		return formatter.Success(HashOutput{File: path, Hash: res.Digest})
	case <-ctx.Done():
		return WrapExitError(ExitCommandError, "hash interrupted", ctx.Err())
	}
}
