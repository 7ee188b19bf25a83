package command

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	purity "github.com/wagiedev/purity-go"
)

func newPingCmd(flags *rootFlags) *cobra.Command {
	var count int

	cmd := &cobra.Command{
		Use:   "ping [atoms...]",
		Short: "Check that the patch answers",
		Long: `Connect, send __ping__ with the given atoms and print the atoms of each
__pong__ reply with its round-trip time.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			msg, err := purity.Decode([]byte(strings.Join(append([]string{purity.SelectorPing}, args...), " ")))
			if err != nil {
				return fmt.Errorf("parse atoms: %w", err)
			}

			return flags.withClient(cmd, func(ctx context.Context, c purity.Client) error {
				for range count {
					start := time.Now()

					reply, err := c.Ping(ctx, msg.Atoms...)
					if err != nil {
						return err
					}

					fmt.Fprintf(cmd.OutOrStdout(), "%s time=%s\n",
						purity.NewMessage(purity.SelectorPong, reply...), time.Since(start).Round(time.Microsecond))
				}

				return nil
			})
		},
	}

	cmd.Flags().IntVarP(&count, "count", "c", 1, "number of pings")

	return cmd
}
