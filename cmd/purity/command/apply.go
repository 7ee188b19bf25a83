package command

import (
	"context"
	stderrors "errors"
	"fmt"

	"github.com/spf13/cobra"

	purity "github.com/wagiedev/purity-go"
)

func newApplyCmd(flags *rootFlags) *cobra.Command {
	var confirm bool

	cmd := &cobra.Command{
		Use:   "apply <patch-file|->",
		Short: "Apply a FUDI patch file",
		Long: `Connect and send every message of a FUDI patch file in order, one message
per ';'. Sending stops at the first failure; messages already sent stay in
the patch. Use "-" to read the patch from stdin.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			patch, err := readPatch(cmd, args[0])
			if err != nil {
				return err
			}

			return flags.withClient(cmd, func(ctx context.Context, c purity.Client) error {
				if confirm {
					if err := c.EnableConfirm(ctx); err != nil {
						return err
					}
				}

				n, err := c.ApplyPatch(ctx, patch)
				if err != nil {
					if patchErr, ok := stderrors.AsType[*purity.PatchError](err); ok {
						return fmt.Errorf("%d of %d messages sent: %w", patchErr.Sent, len(patch), err)
					}

					return err
				}

				fmt.Fprintf(cmd.OutOrStdout(), "applied %d messages\n", n)

				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&confirm, "confirm", false, "ask the patch to acknowledge each message with __confirm__")

	return cmd
}

func readPatch(cmd *cobra.Command, path string) (purity.MessageList, error) {
	if path == "-" {
		return purity.ParsePatch(cmd.InOrStdin())
	}

	return purity.ReadPatchFile(path)
}
