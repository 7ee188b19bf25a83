package purity

import (
	"context"
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	internalmcp "github.com/wagiedev/purity-go/internal/mcp"
)

// Version is the purity-go release reported to MCP clients.
const Version = "0.1.0"

// mcpSession adapts a Client to the session the control tools drive.
type mcpSession struct {
	Client
}

var _ internalmcp.Session = mcpSession{}

func (s mcpSession) ApplyPatch(ctx context.Context, messages []Message) (int, error) {
	return s.Client.ApplyPatch(ctx, MessageList(messages))
}

// NewMCPServer returns an MCP server exposing the client as tools:
// send_message, apply_patch, ping and session_state.
//
// The client should already be started. Serve it with Run on any MCP
// transport, e.g. &mcp.StdioTransport{}.
func NewMCPServer(log *slog.Logger, client Client) *mcp.Server {
	if log == nil {
		log = NopLogger()
	}

	return internalmcp.NewSessionServer(log, mcpSession{client}, Version).Server()
}

// ServeMCP serves the client's control tools over transport until ctx is
// done or the MCP peer disconnects.
func ServeMCP(ctx context.Context, log *slog.Logger, client Client, transport mcp.Transport) error {
	if log == nil {
		log = NopLogger()
	}

	return internalmcp.NewSessionServer(log, mcpSession{client}, Version).Run(ctx, transport)
}
