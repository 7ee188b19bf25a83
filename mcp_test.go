package purity

import (
	"context"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	internalmcp "github.com/wagiedev/purity-go/internal/mcp"
)

func connectMCP(t *testing.T, server *mcp.Server) *mcp.ClientSession {
	t.Helper()

	ctx, cancel := context.WithCancel(t.Context())
	t.Cleanup(cancel)

	serverTransport, clientTransport := mcp.NewInMemoryTransports()

	serverSession, err := server.Connect(ctx, serverTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = serverSession.Close() })

	mcpClient := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "v0.0.1"}, nil)

	clientSession, err := mcpClient.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = clientSession.Close() })

	return clientSession
}

func TestNewMCPServer_DrivesClient(t *testing.T) {
	pd := newFakePd(t)

	client := startedClient(t, pd)

	cs := connectMCP(t, NewMCPServer(nil, client))

	result, err := cs.CallTool(t.Context(), &mcp.CallToolParams{
		Name: internalmcp.ToolApplyPatch,
		Arguments: map[string]any{
			"patch": "obj 10 10 osc~ 440;\nobj 10 50 dac~;\nconnect 0 0 1 0;",
		},
	})
	require.NoError(t, err)
	require.False(t, result.IsError, internalmcp.ResultText(result))
	assert.Equal(t, "applied 3 messages", internalmcp.ResultText(result))

	assert.Equal(t, "obj 10 10 osc~ 440", pd.expect().String())
	assert.Equal(t, "obj 10 50 dac~", pd.expect().String())
	assert.Equal(t, "connect 0 0 1 0", pd.expect().String())

	result, err = cs.CallTool(t.Context(), &mcp.CallToolParams{
		Name: internalmcp.ToolSessionState,
	})
	require.NoError(t, err)
	assert.Contains(t, internalmcp.ResultText(result), `"state": "ready"`)
	assert.Contains(t, internalmcp.ResultText(result), client.ID())
}
