// Package mcp exposes a running purity session as an MCP server.
//
// ControlServer keeps its own tool registry so tools can be invoked directly
// (CallTool) as well as served over any MCP transport (Run). The session
// tools registered by RegisterSessionTools are:
//   - send_message: send one FUDI message
//   - apply_patch: send a FUDI patch, stopping at the first failure
//   - ping: round-trip __ping__/__pong__
//   - session_state: report state and counters
package mcp
