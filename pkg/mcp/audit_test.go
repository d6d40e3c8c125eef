package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newAuditedServer(t *testing.T) (*Server, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	audit := NewAuditLogger(zap.New(core))
	s := NewServer("test-server", "1.0.0", zap.NewNop(), server.WithHooks(audit.Hooks()))

	s.RegisterTool(mcplib.NewTool("ok"), func(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
		return mcplib.NewToolResultText("fine"), nil
	})
	s.RegisterTool(mcplib.NewTool("rejected"), func(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
		return mcplib.NewToolResultError("bad input"), nil
	})
	s.RegisterTool(mcplib.NewTool("broken"), func(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
		return nil, errors.New("storage unreachable: AccountKey=c2VjcmV0")
	})
	return s, logs
}

func call(t *testing.T, s *Server, name string, args map[string]any) {
	t.Helper()
	msg, err := json.Marshal(map[string]any{
		"jsonrpc": "2.0", "id": 1, "method": "tools/call",
		"params": map[string]any{"name": name, "arguments": args},
	})
	require.NoError(t, err)
	s.MCP().HandleMessage(context.Background(), msg)
}

func TestAuditLogger_SuccessfulCall(t *testing.T) {
	s, logs := newAuditedServer(t)

	call(t, s, "ok", map[string]any{"datasource": "lake", "sql": "SELECT * FROM s3_secret WHERE key='x' AND password=hunter2"})

	entries := logs.FilterMessage("Tool call").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "ok", fields["tool"])
	assert.Contains(t, fields["arguments"], `"datasource":"lake"`)
	assert.NotContains(t, fields["arguments"], "hunter2")
	assert.Contains(t, fields, "duration")
}

func TestAuditLogger_ErrorResult(t *testing.T) {
	s, logs := newAuditedServer(t)

	call(t, s, "rejected", nil)

	entries := logs.FilterMessage("Tool call returned error result").All()
	require.Len(t, entries, 1)
	assert.Equal(t, zapcore.WarnLevel, entries[0].Level)
}

func TestAuditLogger_HandlerError(t *testing.T) {
	s, logs := newAuditedServer(t)

	call(t, s, "broken", nil)

	entries := logs.FilterMessage("Tool call failed").All()
	require.Len(t, entries, 1)
	errText, _ := entries[0].ContextMap()["error"].(string)
	assert.Contains(t, errText, "storage unreachable")
	assert.NotContains(t, errText, "c2VjcmV0")
}

func TestRequestFields_NoArguments(t *testing.T) {
	req := &mcplib.CallToolRequest{}
	req.Params.Name = "health"

	fields := requestFields(req)
	require.Len(t, fields, 1)
	assert.Equal(t, "tool", fields[0].Key)
}
