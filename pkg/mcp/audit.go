package mcp

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-lake/pkg/logging"
)

// AuditLogger writes one structured log entry per tool call.
type AuditLogger struct {
	logger *zap.Logger

	// startTimes tracks when tool calls begin, keyed by request ID.
	startTimes sync.Map
}

// NewAuditLogger creates an AuditLogger that records MCP events.
func NewAuditLogger(logger *zap.Logger) *AuditLogger {
	return &AuditLogger{logger: logger.Named("mcp-audit")}
}

// Hooks returns mcp-go Hooks configured to capture tool call events.
func (a *AuditLogger) Hooks() *server.Hooks {
	hooks := &server.Hooks{}
	hooks.AddBeforeCallTool(a.beforeCallTool)
	hooks.AddAfterCallTool(a.afterCallTool)
	hooks.AddOnError(a.onError)
	return hooks
}

func (a *AuditLogger) beforeCallTool(_ context.Context, id any, _ *mcplib.CallToolRequest) {
	a.startTimes.Store(id, time.Now())
}

func (a *AuditLogger) afterCallTool(_ context.Context, id any, req *mcplib.CallToolRequest, result *mcplib.CallToolResult) {
	duration := a.elapsed(id)
	fields := append(requestFields(req), zap.Duration("duration", duration))

	if result != nil && result.IsError {
		a.logger.Warn("Tool call returned error result", fields...)
		return
	}
	a.logger.Info("Tool call", fields...)
}

func (a *AuditLogger) onError(_ context.Context, id any, method mcplib.MCPMethod, message any, err error) {
	if method != mcplib.MethodToolsCall {
		return
	}
	req, ok := message.(*mcplib.CallToolRequest)
	if !ok {
		return
	}

	fields := append(requestFields(req),
		zap.Duration("duration", a.elapsed(id)),
		zap.String("error", logging.SanitizeError(err)))
	a.logger.Error("Tool call failed", fields...)
}

func (a *AuditLogger) elapsed(id any) time.Duration {
	if v, ok := a.startTimes.LoadAndDelete(id); ok {
		return time.Since(v.(time.Time))
	}
	return 0
}

// requestFields returns the tool name and its sanitized arguments. SQL is
// redacted and truncated; other values are logged as given.
func requestFields(req *mcplib.CallToolRequest) []zap.Field {
	fields := []zap.Field{zap.String("tool", req.Params.Name)}

	args, ok := req.Params.Arguments.(map[string]any)
	if !ok || len(args) == 0 {
		return fields
	}
	sanitized := make(map[string]any, len(args))
	for k, v := range args {
		if s, ok := v.(string); ok && k == "sql" {
			sanitized[k] = logging.SanitizeQuery(s)
			continue
		}
		sanitized[k] = v
	}
	if data, err := json.Marshal(sanitized); err == nil {
		fields = append(fields, zap.String("arguments", string(data)))
	}
	return fields
}
