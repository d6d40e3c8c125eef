package tools

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/mark3labs/mcp-go/server"

	"github.com/ekaya-inc/ekaya-lake/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-lake/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-lake/pkg/models"
)

type mockDatasourceService struct {
	sources []*models.Datasource
	err     error
}

func (m *mockDatasourceService) GetByName(ctx context.Context, name string) (*models.Datasource, error) {
	for _, ds := range m.sources {
		if ds.Name == name {
			return ds, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (m *mockDatasourceService) List(ctx context.Context) ([]*models.Datasource, error) {
	return m.sources, m.err
}

func (m *mockDatasourceService) TestConnection(ctx context.Context, dsType string, config map[string]any) (*datasource.ConnectionTestResult, error) {
	return &datasource.ConnectionTestResult{Success: true}, nil
}

func (m *mockDatasourceService) ListTypes() []datasource.DatasourceAdapterInfo {
	return datasource.SupportedAdapters()
}

// mockDiscoveryService records the last arguments and returns canned results.
type mockDiscoveryService struct {
	err error

	name         string
	database     string
	schema       string
	ref          datasource.TableRef
	parent       datasource.TableRef
	column       string
	parentColumn string
	limit        int
	sql          string
	manifest     datasource.TableManifest
}

func (m *mockDiscoveryService) TestConnection(ctx context.Context, name string) (*datasource.ConnectionTestResult, error) {
	m.name = name
	return &datasource.ConnectionTestResult{Success: true, Message: "Connected to bucket lake"}, m.err
}

func (m *mockDiscoveryService) ListDatabases(ctx context.Context, name string) ([]datasource.DatabaseInfo, error) {
	m.name = name
	if m.err != nil {
		return nil, m.err
	}
	return []datasource.DatabaseInfo{{Name: "lake"}}, nil
}

func (m *mockDiscoveryService) ListSchemas(ctx context.Context, name, database string) ([]datasource.SchemaInfo, error) {
	m.name, m.database = name, database
	return []datasource.SchemaInfo{{Name: "_root", Database: "lake"}, {Name: "sales", Database: "lake"}}, m.err
}

func (m *mockDiscoveryService) ListTables(ctx context.Context, name, database, schema string) ([]datasource.TableInfo, error) {
	m.name, m.database, m.schema = name, database, schema
	return []datasource.TableInfo{{Name: "orders", Schema: schema, Database: "lake", Kind: datasource.TableKind}}, m.err
}

func (m *mockDiscoveryService) ListColumns(ctx context.Context, name string, ref datasource.TableRef) ([]datasource.ColumnInfo, error) {
	m.name, m.ref = name, ref
	return []datasource.ColumnInfo{{Name: "id", DataType: "bigint", NativeType: "BIGINT", OrdinalPosition: 1}}, m.err
}

func (m *mockDiscoveryService) ListForeignKeys(ctx context.Context, name, database, schema string) ([]datasource.ForeignKeyInfo, error) {
	return []datasource.ForeignKeyInfo{}, m.err
}

func (m *mockDiscoveryService) GetSampleData(ctx context.Context, name string, ref datasource.TableRef, limit int) (*datasource.QueryResult, error) {
	m.name, m.ref, m.limit = name, ref, limit
	return &datasource.QueryResult{RowCount: 0, Rows: []map[string]any{}}, m.err
}

func (m *mockDiscoveryService) GetColumnStats(ctx context.Context, name string, ref datasource.TableRef, column string) (*datasource.ColumnStatsResult, error) {
	m.name, m.ref, m.column = name, ref, column
	return &datasource.ColumnStatsResult{ColumnName: column, DistinctCount: 3}, m.err
}

func (m *mockDiscoveryService) GetColumnValueOverlap(ctx context.Context, name string, child datasource.TableRef, childColumn string,
	parent datasource.TableRef, parentColumn string, sampleSize int) (*datasource.ColumnValueOverlapResult, error) {
	m.name, m.ref, m.column, m.parent, m.parentColumn, m.limit = name, child, childColumn, parent, parentColumn, sampleSize
	return datasource.NewColumnValueOverlapResult(4, 4, 0, 3, 3), m.err
}

func (m *mockDiscoveryService) ExecuteQuery(ctx context.Context, name, sqlQuery string, maxRows int, manifest datasource.TableManifest) (*datasource.QueryResult, error) {
	m.name, m.sql, m.limit, m.manifest = name, sqlQuery, maxRows, manifest
	if m.err != nil {
		return nil, m.err
	}
	return &datasource.QueryResult{
		Columns:  []datasource.QueryColumn{{Name: "n", Type: "bigint"}},
		Rows:     []map[string]any{{"n": int64(1)}},
		RowCount: 1,
	}, nil
}

// toolResponse is the decoded JSON-RPC reply to tools/call.
type toolResponse struct {
	Result *struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
		IsError bool `json:"isError"`
	} `json:"result"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func callTool(t *testing.T, s *server.MCPServer, name string, args map[string]any) toolResponse {
	t.Helper()
	request, err := json.Marshal(map[string]any{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  "tools/call",
		"params":  map[string]any{"name": name, "arguments": args},
	})
	if err != nil {
		t.Fatalf("failed to marshal request: %v", err)
	}

	reply, err := json.Marshal(s.HandleMessage(context.Background(), request))
	if err != nil {
		t.Fatalf("failed to marshal reply: %v", err)
	}
	var resp toolResponse
	if err := json.Unmarshal(reply, &resp); err != nil {
		t.Fatalf("failed to unmarshal reply: %v", err)
	}
	return resp
}

// text returns the first text content of a successful reply.
func (r toolResponse) text(t *testing.T) string {
	t.Helper()
	if r.Error != nil {
		t.Fatalf("unexpected JSON-RPC error: %s", r.Error.Message)
	}
	if r.Result == nil || len(r.Result.Content) == 0 {
		t.Fatal("expected content in response")
	}
	return r.Result.Content[0].Text
}
