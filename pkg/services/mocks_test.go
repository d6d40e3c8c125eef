package services

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/ekaya-inc/ekaya-lake/pkg/adapters/datasource"
)

// fakeDriver records the arguments of the last call.
type fakeDriver struct {
	mu       sync.Mutex
	calls    []string
	limit    int
	ref      datasource.TableRef
	closed   int
	failWith error
	test     datasource.ConnectionTestResult
}

func (d *fakeDriver) record(call string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls = append(d.calls, call)
}

func (d *fakeDriver) TestConnection(ctx context.Context) datasource.ConnectionTestResult {
	d.record("test")
	return d.test
}

func (d *fakeDriver) ListDatabases(ctx context.Context) ([]datasource.DatabaseInfo, error) {
	d.record("databases")
	if d.failWith != nil {
		return nil, d.failWith
	}
	return []datasource.DatabaseInfo{{Name: "lake"}}, nil
}

func (d *fakeDriver) ListSchemas(ctx context.Context, database string) ([]datasource.SchemaInfo, error) {
	d.record("schemas:" + database)
	return []datasource.SchemaInfo{{Name: "sales", Database: database}}, nil
}

func (d *fakeDriver) ListTables(ctx context.Context, database, schema string) ([]datasource.TableInfo, error) {
	d.record("tables:" + database + "/" + schema)
	return []datasource.TableInfo{{Name: "orders", Schema: schema, Database: database, Kind: datasource.TableKind}}, nil
}

func (d *fakeDriver) ListColumns(ctx context.Context, database, schema, table string) ([]datasource.ColumnInfo, error) {
	d.record("columns:" + table)
	return []datasource.ColumnInfo{{Name: "id", DataType: "bigint", OrdinalPosition: 1}}, nil
}

func (d *fakeDriver) ListForeignKeys(ctx context.Context, database, schema string) ([]datasource.ForeignKeyInfo, error) {
	d.record("fks")
	return []datasource.ForeignKeyInfo{}, nil
}

func (d *fakeDriver) GetSampleData(ctx context.Context, database, schema, table string, limit int) (*datasource.QueryResult, error) {
	d.record("sample")
	d.limit = limit
	d.ref = datasource.TableRef{Database: database, Schema: schema, Table: table}
	return &datasource.QueryResult{}, nil
}

func (d *fakeDriver) GetColumnStats(ctx context.Context, database, schema, table, column string) (*datasource.ColumnStatsResult, error) {
	d.record("stats:" + column)
	return &datasource.ColumnStatsResult{ColumnName: column, DistinctCount: 3}, nil
}

func (d *fakeDriver) GetColumnValueOverlap(ctx context.Context, child datasource.TableRef, childColumn string,
	parent datasource.TableRef, parentColumn string, sampleSize int) (*datasource.ColumnValueOverlapResult, error) {
	d.record("overlap:" + childColumn + "->" + parentColumn)
	return datasource.NewColumnValueOverlapResult(4, 4, 0, 3, 3), nil
}

func (d *fakeDriver) ExecuteReadOnlyQuery(ctx context.Context, sqlQuery string, maxRows int, manifest datasource.TableManifest) (*datasource.QueryResult, error) {
	d.record("query")
	d.limit = maxRows
	if d.failWith != nil {
		return nil, d.failWith
	}
	return &datasource.QueryResult{RowCount: 1}, nil
}

func (d *fakeDriver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed++
	return errors.New("close failures are ignored")
}

// fakeFactory hands out one shared fakeDriver.
type fakeFactory struct {
	driver  *fakeDriver
	err     error
	dsTypes []string
	ids     []uuid.UUID
}

func (f *fakeFactory) NewDriver(ctx context.Context, dsType string, config map[string]any, datasourceID uuid.UUID) (datasource.Driver, error) {
	f.dsTypes = append(f.dsTypes, dsType)
	f.ids = append(f.ids, datasourceID)
	if f.err != nil {
		return nil, f.err
	}
	return f.driver, nil
}

func (f *fakeFactory) ListTypes() []datasource.DatasourceAdapterInfo {
	return datasource.SupportedAdapters()
}
