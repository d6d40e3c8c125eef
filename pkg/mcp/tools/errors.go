package tools

import (
	"encoding/json"
	"errors"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/ekaya-inc/ekaya-lake/pkg/apperrors"
)

// ErrorResponse represents a structured error in tool results.
// This is used to return actionable error information to the agent
// as a successful tool result, ensuring error details are visible
// rather than being swallowed by the MCP client.
type ErrorResponse struct {
	Error   bool   `json:"error"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// NewErrorResult creates a tool result containing a structured error.
// Use this for recoverable/actionable errors the agent can fix
// (e.g., invalid parameters, unknown datasource, rejected SQL).
//
// Do NOT use this for system failures (storage unreachable, engine
// errors) - those should still return Go errors.
func NewErrorResult(code, message string) *mcp.CallToolResult {
	return NewErrorResultWithDetails(code, message, nil)
}

// NewErrorResultWithDetails creates an error result with additional context.
func NewErrorResultWithDetails(code, message string, details any) *mcp.CallToolResult {
	resp := ErrorResponse{
		Error:   true,
		Code:    code,
		Message: message,
		Details: details,
	}
	jsonBytes, _ := json.Marshal(resp)
	result := mcp.NewToolResultText(string(jsonBytes))
	result.IsError = true
	return result
}

// UserErrorCode classifies errors the caller can act on. Returns "" for
// failures that should surface as protocol errors.
func UserErrorCode(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, apperrors.ErrNotFound):
		return "datasource_not_found"
	case apperrors.IsValidation(err):
		return "invalid_query"
	case apperrors.IsConfiguration(err):
		return "configuration_error"
	}
	return ""
}

// AsErrorResult converts an actionable error into a tool result, or
// returns nil when err should be returned to the MCP client as-is.
func AsErrorResult(err error) *mcp.CallToolResult {
	code := UserErrorCode(err)
	if code == "" {
		return nil
	}
	return NewErrorResult(code, err.Error())
}
