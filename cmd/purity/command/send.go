package command

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	purity "github.com/wagiedev/purity-go"
)

func newSendCmd(flags *rootFlags) *cobra.Command {
	var unsynchronized bool

	cmd := &cobra.Command{
		Use:   "send <selector> [atoms...]",
		Short: "Send one message",
		Long: `Connect, send one FUDI message and disconnect.

Atoms are typed the way Pd would read them: integers become numbers,
everything else is sent as written.

  purity send obj 10 10 osc~ 440
  purity send pd dsp 1`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			msg, err := purity.Decode([]byte(strings.Join(args, " ")))
			if err != nil {
				return fmt.Errorf("parse message: %w", err)
			}

			return flags.withClient(cmd, func(ctx context.Context, c purity.Client) error {
				if unsynchronized {
					if err := c.SendUnsynchronized(ctx, msg.Selector, msg.Atoms...); err != nil {
						return err
					}
				} else if err := c.SendMessage(ctx, msg); err != nil {
					return err
				}

				fmt.Fprintf(cmd.OutOrStdout(), "sent: %s\n", msg)

				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&unsynchronized, "unsynchronized", false, "send without checking readiness")

	return cmd
}
