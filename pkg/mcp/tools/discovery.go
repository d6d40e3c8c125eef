package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-lake/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-lake/pkg/logging"
	"github.com/ekaya-inc/ekaya-lake/pkg/services"
)

// DiscoveryToolDeps contains dependencies for the discovery tools.
type DiscoveryToolDeps struct {
	Datasources services.DatasourceService
	Discovery   services.DiscoveryService
	Logger      *zap.Logger
}

// DiscoveryToolNames lists every tool registered by RegisterDiscoveryTools.
var DiscoveryToolNames = []string{
	"list_datasources",
	"test_connection",
	"list_databases",
	"list_schemas",
	"list_tables",
	"get_columns",
	"sample_data",
	"column_stats",
	"value_overlap",
	"query",
}

// RegisterDiscoveryTools registers the read-only discovery tools. All of
// them are safe to call repeatedly; none modify storage.
func RegisterDiscoveryTools(s *server.MCPServer, deps *DiscoveryToolDeps) {
	registerListDatasourcesTool(s, deps)
	registerTestConnectionTool(s, deps)
	registerListDatabasesTool(s, deps)
	registerListSchemasTool(s, deps)
	registerListTablesTool(s, deps)
	registerGetColumnsTool(s, deps)
	registerSampleDataTool(s, deps)
	registerColumnStatsTool(s, deps)
	registerValueOverlapTool(s, deps)
	registerQueryTool(s, deps)
}

// readOnlyTool builds a tool with the annotations shared by every discovery tool.
func readOnlyTool(name, description string, opts ...mcp.ToolOption) mcp.Tool {
	opts = append([]mcp.ToolOption{
		mcp.WithDescription(description),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(true),
	}, opts...)
	return mcp.NewTool(name, opts...)
}

func datasourceParam() mcp.ToolOption {
	return mcp.WithString("datasource", mcp.Required(), mcp.Description("Name of the configured datasource"))
}

func databaseParam() mcp.ToolOption {
	return mcp.WithString("database", mcp.Description("Optional: bucket or container; defaults to the one the datasource pins"))
}

func tableParams() []mcp.ToolOption {
	return []mcp.ToolOption{
		datasourceParam(),
		databaseParam(),
		mcp.WithString("schema", mcp.Description("Top-level folder; _root for files at the root (default)")),
		mcp.WithString("table", mcp.Required(), mcp.Description("Parquet file name without extension, or partitioned folder name")),
	}
}

// requireDatasource returns the trimmed datasource argument.
func requireDatasource(req mcp.CallToolRequest) (string, error) {
	name, err := req.RequireString("datasource")
	if err != nil {
		return "", err
	}
	return trimString(name), nil
}

func tableRefFromRequest(req mcp.CallToolRequest, prefix string) (datasource.TableRef, error) {
	table, err := req.RequireString(prefix + "table")
	if err != nil {
		return datasource.TableRef{}, err
	}
	return datasource.TableRef{
		Database: getOptionalString(req, prefix+"database"),
		Schema:   getOptionalString(req, prefix+"schema"),
		Table:    trimString(table),
	}, nil
}

// respond turns a service result into a tool result. Actionable errors
// become structured error results; others are returned to the client.
func respond(deps *DiscoveryToolDeps, tool string, v any, err error) (*mcp.CallToolResult, error) {
	if err != nil {
		if result := AsErrorResult(err); result != nil {
			return result, nil
		}
		deps.Logger.Error("Tool failed", zap.String("tool", tool), zap.Error(err))
		return nil, err
	}
	return jsonResult(v)
}

type datasourceSummary struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Description string `json:"description,omitempty"`
}

func registerListDatasourcesTool(s *server.MCPServer, deps *DiscoveryToolDeps) {
	tool := readOnlyTool("list_datasources", "List the configured datasources and the backend types this server supports")

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		sources, err := deps.Datasources.List(ctx)
		if err != nil {
			return respond(deps, "list_datasources", nil, err)
		}
		summaries := make([]datasourceSummary, len(sources))
		for i, ds := range sources {
			summaries[i] = datasourceSummary{Name: ds.Name, Type: ds.DatasourceType, Description: ds.Description}
		}
		return jsonResult(struct {
			Datasources []datasourceSummary                `json:"datasources"`
			Types       []datasource.DatasourceAdapterInfo `json:"types"`
		}{summaries, deps.Datasources.ListTypes()})
	})
}

func registerTestConnectionTool(s *server.MCPServer, deps *DiscoveryToolDeps) {
	tool := readOnlyTool("test_connection", "Check that a datasource's storage is reachable with its credentials", datasourceParam())

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		name, err := requireDatasource(req)
		if err != nil {
			return nil, err
		}
		result, err := deps.Discovery.TestConnection(ctx, name)
		return respond(deps, "test_connection", result, err)
	})
}

func registerListDatabasesTool(s *server.MCPServer, deps *DiscoveryToolDeps) {
	tool := readOnlyTool("list_databases",
		"List databases (buckets or containers). Returns only the configured one when the datasource pins it",
		datasourceParam())

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		name, err := requireDatasource(req)
		if err != nil {
			return nil, err
		}
		dbs, err := deps.Discovery.ListDatabases(ctx, name)
		return respond(deps, "list_databases", dbs, err)
	})
}

func registerListSchemasTool(s *server.MCPServer, deps *DiscoveryToolDeps) {
	tool := readOnlyTool("list_schemas",
		"List schemas (top-level folders). _root is listed first when Parquet files sit at the root",
		datasourceParam(), databaseParam())

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		name, err := requireDatasource(req)
		if err != nil {
			return nil, err
		}
		schemas, err := deps.Discovery.ListSchemas(ctx, name, getOptionalString(req, "database"))
		return respond(deps, "list_schemas", schemas, err)
	})
}

func registerListTablesTool(s *server.MCPServer, deps *DiscoveryToolDeps) {
	tool := readOnlyTool("list_tables",
		"List tables in a schema: Parquet files and folders of partitioned Parquet files",
		datasourceParam(), databaseParam(),
		mcp.WithString("schema", mcp.Required(), mcp.Description("Schema name from list_schemas")))

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		name, err := requireDatasource(req)
		if err != nil {
			return nil, err
		}
		schema, err := req.RequireString("schema")
		if err != nil {
			return nil, err
		}
		tables, err := deps.Discovery.ListTables(ctx, name, getOptionalString(req, "database"), trimString(schema))
		return respond(deps, "list_tables", tables, err)
	})
}

func registerGetColumnsTool(s *server.MCPServer, deps *DiscoveryToolDeps) {
	tool := readOnlyTool("get_columns", "Describe a table's columns with normalized types", tableParams()...)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		name, err := requireDatasource(req)
		if err != nil {
			return nil, err
		}
		ref, err := tableRefFromRequest(req, "")
		if err != nil {
			return nil, err
		}
		columns, err := deps.Discovery.ListColumns(ctx, name, ref)
		return respond(deps, "get_columns", columns, err)
	})
}

func registerSampleDataTool(s *server.MCPServer, deps *DiscoveryToolDeps) {
	opts := append(tableParams(),
		mcp.WithNumber("limit", mcp.Description("Optional: rows to return (default 100, max 1000)")))
	tool := readOnlyTool("sample_data", "Return sample rows from a table", opts...)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		name, err := requireDatasource(req)
		if err != nil {
			return nil, err
		}
		ref, err := tableRefFromRequest(req, "")
		if err != nil {
			return nil, err
		}
		rows, err := deps.Discovery.GetSampleData(ctx, name, ref, getOptionalInt(req, "limit"))
		return respond(deps, "sample_data", rows, err)
	})
}

func registerColumnStatsTool(s *server.MCPServer, deps *DiscoveryToolDeps) {
	opts := append(tableParams(),
		mcp.WithString("column", mcp.Required(), mcp.Description("Column to profile")))
	tool := readOnlyTool("column_stats", "Distinct, null and total counts with min, max and sample values for one column", opts...)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		name, err := requireDatasource(req)
		if err != nil {
			return nil, err
		}
		ref, err := tableRefFromRequest(req, "")
		if err != nil {
			return nil, err
		}
		column, err := req.RequireString("column")
		if err != nil {
			return nil, err
		}
		stats, err := deps.Discovery.GetColumnStats(ctx, name, ref, trimString(column))
		return respond(deps, "column_stats", stats, err)
	})
}

func registerValueOverlapTool(s *server.MCPServer, deps *DiscoveryToolDeps) {
	tool := readOnlyTool("value_overlap",
		"Measure how many distinct child column values occur in a parent column. Use to test candidate join keys",
		datasourceParam(),
		mcp.WithString("child_database", mcp.Description("Optional: child bucket or container")),
		mcp.WithString("child_schema", mcp.Description("Child schema (default _root)")),
		mcp.WithString("child_table", mcp.Required(), mcp.Description("Child table")),
		mcp.WithString("child_column", mcp.Required(), mcp.Description("Child column, e.g. a foreign key candidate")),
		mcp.WithString("parent_database", mcp.Description("Optional: parent bucket or container")),
		mcp.WithString("parent_schema", mcp.Description("Parent schema (default _root)")),
		mcp.WithString("parent_table", mcp.Required(), mcp.Description("Parent table")),
		mcp.WithString("parent_column", mcp.Required(), mcp.Description("Parent column, e.g. a primary key")),
		mcp.WithNumber("sample_size", mcp.Description("Optional: rows sampled from each side (default 1000)")),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		name, err := requireDatasource(req)
		if err != nil {
			return nil, err
		}
		child, err := tableRefFromRequest(req, "child_")
		if err != nil {
			return nil, err
		}
		parent, err := tableRefFromRequest(req, "parent_")
		if err != nil {
			return nil, err
		}
		childColumn, err := req.RequireString("child_column")
		if err != nil {
			return nil, err
		}
		parentColumn, err := req.RequireString("parent_column")
		if err != nil {
			return nil, err
		}
		overlap, err := deps.Discovery.GetColumnValueOverlap(ctx, name,
			child, trimString(childColumn), parent, trimString(parentColumn), getOptionalInt(req, "sample_size"))
		return respond(deps, "value_overlap", overlap, err)
	})
}

func registerQueryTool(s *server.MCPServer, deps *DiscoveryToolDeps) {
	tool := readOnlyTool("query",
		"Run a read-only SELECT across the datasource's Parquet tables. "+
			"Tables are referenced by name; pass a manifest to map names to URIs explicitly, "+
			"otherwise names resolve against the default schema.",
		datasourceParam(),
		mcp.WithString("sql", mcp.Required(), mcp.Description("SELECT or WITH statement")),
		mcp.WithNumber("limit", mcp.Description("Optional: max rows (default and max 1000)")),
		mcp.WithObject("manifest", mcp.Description(
			"Optional: {\"orders\": {\"uri\": \"s3://lake/sales/orders.parquet\", \"partitioned\": false}}")),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		name, err := requireDatasource(req)
		if err != nil {
			return nil, err
		}
		sqlQuery, err := req.RequireString("sql")
		if err != nil {
			return nil, err
		}
		manifest, err := getManifest(req, "manifest")
		if err != nil {
			return NewErrorResult("invalid_manifest", err.Error()), nil
		}

		deps.Logger.Debug("Executing query",
			zap.String("datasource", name),
			zap.String("sql", logging.SanitizeQuery(sqlQuery)))

		result, err := deps.Discovery.ExecuteQuery(ctx, name, sqlQuery, getOptionalInt(req, "limit"), manifest)
		return respond(deps, "query", result, err)
	})
}
