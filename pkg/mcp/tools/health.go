package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/ekaya-inc/ekaya-lake/pkg/services"
)

type healthResult struct {
	Status      string `json:"status"`
	Version     string `json:"version"`
	Datasources int    `json:"datasources"`
}

// RegisterHealthTool adds a health check tool to the MCP server.
// The tool returns the server status, version and datasource count.
func RegisterHealthTool(s *server.MCPServer, version string, datasources services.DatasourceService) {
	tool := mcp.NewTool(
		"health",
		mcp.WithDescription("Returns server health status and version"),
		mcp.WithReadOnlyHintAnnotation(true),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		result := healthResult{Status: "ok", Version: version}
		if datasources != nil {
			sources, err := datasources.List(ctx)
			if err != nil {
				return nil, err
			}
			result.Datasources = len(sources)
		}
		return jsonResult(result)
	})
}
