package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// ControlServer is a named set of MCP tools.
type ControlServer struct {
	log     *slog.Logger
	name    string
	version string

	mu    sync.RWMutex
	tools map[string]*registeredTool
}

type registeredTool struct {
	tool    *mcp.Tool
	handler mcp.ToolHandler
}

// NewControlServer creates a server with no tools.
func NewControlServer(log *slog.Logger, name, version string) *ControlServer {
	return &ControlServer{
		log:     log.With("component", "mcp"),
		name:    name,
		version: version,
		tools:   make(map[string]*registeredTool, 4),
	}
}

// Name returns the server name.
func (s *ControlServer) Name() string {
	return s.name
}

// Version returns the server version.
func (s *ControlServer) Version() string {
	return s.version
}

// AddTool registers a tool. A tool with the same name is replaced.
func (s *ControlServer) AddTool(tool *mcp.Tool, handler mcp.ToolHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tools[tool.Name] = &registeredTool{tool: tool, handler: handler}
}

// ListTools returns the registered tools sorted by name.
func (s *ControlServer) ListTools() []*mcp.Tool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tools := make([]*mcp.Tool, 0, len(s.tools))
	for _, t := range s.tools {
		tools = append(tools, t.tool)
	}

	slices.SortFunc(tools, func(a, b *mcp.Tool) int { return strings.Compare(a.Name, b.Name) })

	return tools
}

// CallTool invokes a tool directly. Unknown tools and handler failures are
// reported in the result, not as an error.
func (s *ControlServer) CallTool(ctx context.Context, name string, input map[string]any) (*mcp.CallToolResult, error) {
	s.mu.RLock()
	t, exists := s.tools[name]
	s.mu.RUnlock()

	if !exists {
		return ErrorResult("tool not found: " + name), nil
	}

	args, err := json.Marshal(input)
	if err != nil {
		return nil, fmt.Errorf("marshal input: %w", err)
	}

	req := &mcp.CallToolRequest{
		Params: &mcp.CallToolParamsRaw{
			Name:      name,
			Arguments: args,
		},
	}

	result, err := t.handler(ctx, req)
	if err != nil {
		s.log.Warn("Tool failed", "tool", name, "error", err)

		//nolint:nilerr // the failure is carried by the result
		return ErrorResult("tool execution failed: " + err.Error()), nil
	}

	return result, nil
}

// Server builds an SDK server carrying every registered tool.
func (s *ControlServer) Server() *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{Name: s.name, Version: s.version}, nil)

	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, t := range s.tools {
		server.AddTool(t.tool, t.handler)
	}

	return server
}

// Run serves the tools over transport until ctx is done or the client
// disconnects.
func (s *ControlServer) Run(ctx context.Context, transport mcp.Transport) error {
	s.log.Info("Serving MCP control tools", "name", s.name, "tools", len(s.ListTools()))

	return s.Server().Run(ctx, transport)
}
