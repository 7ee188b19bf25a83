package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/wagiedev/purity-go/internal/errors"
	"github.com/wagiedev/purity-go/internal/fudi"
	"github.com/wagiedev/purity-go/internal/protocol"
)

// Tool names registered by RegisterSessionTools.
const (
	ToolSendMessage  = "send_message"
	ToolApplyPatch   = "apply_patch"
	ToolPing         = "ping"
	ToolSessionState = "session_state"
)

// Session is the part of *protocol.Session the tools drive.
type Session interface {
	ID() string
	Stats() protocol.Stats
	SendMessage(ctx context.Context, msg fudi.Message) error
	ApplyPatch(ctx context.Context, messages []fudi.Message) (int, error)
	Ping(ctx context.Context, atoms ...fudi.Atom) ([]fudi.Atom, error)
}

var _ Session = (*protocol.Session)(nil)

// SessionState is the payload of the session_state tool.
type SessionState struct {
	ID    string         `json:"id"`
	Stats protocol.Stats `json:"stats"`
}

// NewSessionServer creates a control server named "purity" carrying the
// session tools.
func NewSessionServer(log *slog.Logger, session Session, version string) *ControlServer {
	s := NewControlServer(log, "purity", version)
	RegisterSessionTools(s, session)

	return s
}

// RegisterSessionTools adds the send_message, apply_patch, ping and
// session_state tools for session.
func RegisterSessionTools(s *ControlServer, session Session) {
	s.AddTool(
		NewTool(ToolSendMessage, "Send one FUDI message to Pd.", ObjectSchema(
			map[string]*jsonschema.Schema{
				"selector": {Type: "string", Description: "Message selector, e.g. obj or connect"},
				"atoms":    atomsSchema("Message arguments; integers and floats keep their JSON type"),
			},
			"selector",
		)),
		func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			var in struct {
				Selector string `json:"selector"`
			}

			atoms, err := decodeArgs(req, &in)
			if err != nil {
				return ErrorResult(err.Error()), nil
			}

			msg := fudi.NewMessage(in.Selector, atoms...)
			if err := session.SendMessage(ctx, msg); err != nil {
				return ErrorResult(fmt.Sprintf("send %q: %v", in.Selector, err)), nil
			}

			return TextResult("sent: " + msg.String()), nil
		},
	)

	s.AddTool(
		NewTool(ToolApplyPatch, "Send a patch given as FUDI text, one message per ';'. Stops at the first failure.", ObjectSchema(
			map[string]*jsonschema.Schema{
				"patch": {Type: "string", Description: "FUDI text, e.g. \"obj 10 10 osc~ 440; obj 10 40 dac~;\""},
			},
			"patch",
		)),
		func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			var in struct {
				Patch string `json:"patch"`
			}

			if _, err := decodeArgs(req, &in); err != nil {
				return ErrorResult(err.Error()), nil
			}

			messages, err := fudi.ReadAll(strings.NewReader(in.Patch))
			if err != nil {
				return ErrorResult("parse patch: " + err.Error()), nil
			}

			sent, err := session.ApplyPatch(ctx, messages)
			if perr, ok := stderrors.AsType[*errors.PatchError](err); ok {
				return ErrorResult(fmt.Sprintf("%v (%d of %d sent)", perr, sent, len(messages))), nil
			}

			if err != nil {
				return ErrorResult(err.Error()), nil
			}

			return TextResult(fmt.Sprintf("applied %d messages", sent)), nil
		},
	)

	s.AddTool(
		NewTool(ToolPing, "Send __ping__ and wait for Pd's __pong__.", ObjectSchema(
			map[string]*jsonschema.Schema{
				"atoms": atomsSchema("Payload echoed back by the patch"),
			},
		)),
		func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			var in struct{}

			atoms, err := decodeArgs(req, &in)
			if err != nil {
				return ErrorResult(err.Error()), nil
			}

			reply, err := session.Ping(ctx, atoms...)
			if err != nil {
				return ErrorResult("ping: " + err.Error()), nil
			}

			return TextResult(fudi.NewMessage(protocol.SelectorPong, reply...).String()), nil
		},
	)

	s.AddTool(
		NewTool(ToolSessionState, "Report the session state and traffic counters.", ObjectSchema(nil)),
		func(context.Context, *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return JSONResult(SessionState{
				ID:    session.ID(),
				Stats: session.Stats(),
			})
		},
	)
}

// decodeArgs unmarshals the request arguments into dst and converts an
// optional "atoms" array into FUDI atoms.
func decodeArgs(req *mcp.CallToolRequest, dst any) ([]fudi.Atom, error) {
	if req == nil || req.Params == nil || len(req.Params.Arguments) == 0 {
		return nil, nil
	}

	raw := req.Params.Arguments

	if err := json.Unmarshal(raw, dst); err != nil {
		return nil, fmt.Errorf("invalid arguments: %w", err)
	}

	var envelope struct {
		Atoms []any `json:"atoms"`
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	if err := dec.Decode(&envelope); err != nil {
		return nil, fmt.Errorf("invalid arguments: %w", err)
	}

	atoms := make([]fudi.Atom, 0, len(envelope.Atoms))

	for i, v := range envelope.Atoms {
		atom, err := jsonAtom(v)
		if err != nil {
			return nil, fmt.Errorf("atom %d: %w", i, err)
		}

		atoms = append(atoms, atom)
	}

	return atoms, nil
}

// jsonAtom maps a decoded JSON value to an atom: integral numbers become
// Int, other numbers Float, strings String.
func jsonAtom(v any) (fudi.Atom, error) {
	switch x := v.(type) {
	case json.Number:
		if n, err := x.Int64(); err == nil {
			return fudi.Int(n), nil
		}

		f, err := x.Float64()
		if err != nil {
			return fudi.Atom{}, fmt.Errorf("%w: %s", errors.ErrInvalidAtom, x)
		}

		return fudi.Float(f), nil

	case string:
		return fudi.String(x), nil

	default:
		return fudi.Atom{}, fmt.Errorf("%w: unsupported JSON value %v", errors.ErrInvalidAtom, v)
	}
}
