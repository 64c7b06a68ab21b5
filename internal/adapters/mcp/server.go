// Package mcp exposes the notebook operations as Model Context Protocol
// tools over stdio. Framing is JSON-RPC 2.0, one message per line; anything
// that is not protocol-level trouble is reported inside the tool result so
// the model can read it.
package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/bnema/notebooklm-cli/internal/application"
)

const protocolVersion = "2024-11-05"

type Server struct {
	session *application.Session
	logger  *zap.Logger
	name    string
	version string
}

func NewServer(session *application.Session, name, version string, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		session: session,
		logger:  logger,
		name:    name,
		version: version,
	}
}

type jsonRPCRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      any             `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

type jsonRPCResponse struct {
	JSONRPC string    `json:"jsonrpc"`
	ID      any       `json:"id"`
	Result  any       `json:"result,omitempty"`
	Error   *rpcError `json:"error,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Serve reads requests from r until EOF or context cancellation, writing one
// response line per request to w. Notifications (requests without an id)
// get no response.
func (s *Server) Serve(ctx context.Context, r io.Reader, w io.Writer) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 1024*1024), 4*1024*1024)

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}

		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var req jsonRPCRequest
		if err := json.Unmarshal(line, &req); err != nil {
			s.writeResponse(w, jsonRPCResponse{
				JSONRPC: "2.0",
				ID:      nil,
				Error:   &rpcError{Code: -32700, Message: "parse error"},
			})
			continue
		}

		resp, reply := s.dispatch(ctx, req)
		if reply {
			s.writeResponse(w, resp)
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read requests: %w", err)
	}
	return nil
}

func (s *Server) writeResponse(w io.Writer, resp jsonRPCResponse) {
	data, err := json.Marshal(resp)
	if err != nil {
		s.logger.Error("encode response", zap.Error(err))
		return
	}
	data = append(data, '\n')
	if _, err := w.Write(data); err != nil {
		s.logger.Error("write response", zap.Error(err))
	}
}

func (s *Server) dispatch(ctx context.Context, req jsonRPCRequest) (jsonRPCResponse, bool) {
	base := jsonRPCResponse{JSONRPC: "2.0", ID: req.ID}

	switch req.Method {
	case "initialize":
		base.Result = map[string]any{
			"protocolVersion": protocolVersion,
			"capabilities":    map[string]any{"tools": map[string]any{"listChanged": false}},
			"serverInfo":      map[string]any{"name": s.name, "version": s.version},
		}
		return base, true

	case "notifications/initialized":
		return jsonRPCResponse{}, false

	case "ping":
		base.Result = map[string]any{}
		return base, true

	case "tools/list":
		base.Result = map[string]any{"tools": toolDefinitions()}
		return base, true

	case "tools/call":
		return s.handleToolCall(ctx, req, base), true

	default:
		if req.ID == nil {
			// Unknown notification: stay quiet.
			return jsonRPCResponse{}, false
		}
		base.Error = &rpcError{Code: -32601, Message: fmt.Sprintf("method not found: %s", req.Method)}
		return base, true
	}
}

type toolCallParams struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

func (s *Server) handleToolCall(ctx context.Context, req jsonRPCRequest, base jsonRPCResponse) jsonRPCResponse {
	var params toolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		base.Error = &rpcError{Code: -32602, Message: "invalid params: " + err.Error()}
		return base
	}

	handler, ok := s.toolHandler(params.Name)
	if !ok {
		base.Error = &rpcError{Code: -32602, Message: fmt.Sprintf("unknown tool: %s", params.Name)}
		return base
	}

	args := params.Arguments
	if len(args) == 0 {
		args = json.RawMessage("{}")
	}

	payload := handler(ctx, args)
	s.logger.Debug("tool call",
		zap.String("tool", params.Name),
		zap.String("status", payload.status()))

	result, err := toolResult(payload)
	if err != nil {
		base.Error = &rpcError{Code: -32603, Message: err.Error()}
		return base
	}

	base.Result = result
	return base
}

// toolResult wraps a tool payload as MCP content: one JSON text block, with
// isError mirroring the payload's own status field.
func toolResult(payload toolPayload) (map[string]any, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode tool result: %w", err)
	}
	return map[string]any{
		"content": []map[string]any{
			{"type": "text", "text": string(data)},
		},
		"isError": payload.status() == "error",
	}, nil
}
