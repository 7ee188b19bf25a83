package command

import (
	"context"
	"errors"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	purity "github.com/wagiedev/purity-go"
)

func newMCPCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the session as MCP tools over stdio",
		Long: `Connect to Pd, then serve the send_message, apply_patch, ping and
session_state tools over stdio until the MCP client disconnects, the session
ends or the process is interrupted.

Logs go to stderr; stdout carries the MCP protocol.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return flags.withClient(cmd, func(ctx context.Context, c purity.Client) error {
				ctx, cancel := context.WithCancel(ctx)
				defer cancel()

				go func() {
					select {
					case <-c.Done():
						cancel()
					case <-ctx.Done():
					}
				}()

				err := purity.ServeMCP(ctx, flags.log, c, &mcp.StdioTransport{})
				if errors.Is(err, context.Canceled) {
					return c.Err()
				}

				return err
			})
		},
	}
}
