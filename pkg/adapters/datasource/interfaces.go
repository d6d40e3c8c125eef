package datasource

import "context"

// MaxQueryLimit is the hard cap on rows returned by sample and query methods.
// This protects against unbounded queries that could crash the server.
const MaxQueryLimit = 1000

// DefaultSampleLimit is used when a sample is requested without a limit.
const DefaultSampleLimit = 100

// RootSchema names the virtual schema holding files that sit directly at the
// listing root (under the optional path prefix).
const RootSchema = "_root"

// ConnectionTester checks reachability of the configured backend.
type ConnectionTester interface {
	// TestConnection never returns an error; failures are captured in the result.
	TestConnection(ctx context.Context) ConnectionTestResult
}

// SchemaDiscoverer browses the relational namespace a backend exposes.
type SchemaDiscoverer interface {
	ListDatabases(ctx context.Context) ([]DatabaseInfo, error)
	ListSchemas(ctx context.Context, database string) ([]SchemaInfo, error)
	ListTables(ctx context.Context, database, schema string) ([]TableInfo, error)
	ListColumns(ctx context.Context, database, schema, table string) ([]ColumnInfo, error)

	// ListForeignKeys returns declared relationships. Backends without
	// constraint metadata return an empty slice.
	ListForeignKeys(ctx context.Context, database, schema string) ([]ForeignKeyInfo, error)
}

// DataProfiler samples data and computes the statistics consumed by
// relationship inference.
type DataProfiler interface {
	// GetSampleData returns up to limit rows. limit <= 0 uses DefaultSampleLimit
	// and anything above MaxQueryLimit is capped.
	GetSampleData(ctx context.Context, database, schema, table string, limit int) (*QueryResult, error)

	GetColumnStats(ctx context.Context, database, schema, table, column string) (*ColumnStatsResult, error)

	// GetColumnValueOverlap measures how many distinct child values also occur
	// in the parent column. Both sides are bounded by sampleSize.
	GetColumnValueOverlap(ctx context.Context, child TableRef, childColumn string,
		parent TableRef, parentColumn string, sampleSize int) (*ColumnValueOverlapResult, error)
}

// QueryExecutor runs caller SQL after the read-only guard.
type QueryExecutor interface {
	// ExecuteReadOnlyQuery rejects write/DDL keywords, resolves referenced tables
	// from manifest (or heuristically from the SQL when manifest is empty) and
	// always wraps the statement as:
	//   SELECT * FROM (query) AS _q LIMIT n
	//
	// Limit behavior:
	//   - maxRows <= 0: uses MaxQueryLimit (1000)
	//   - maxRows > MaxQueryLimit: capped to MaxQueryLimit (1000)
	ExecuteReadOnlyQuery(ctx context.Context, sqlQuery string, maxRows int, manifest TableManifest) (*QueryResult, error)
}

// Driver is the discovery-driver contract every backend implements.
// Each implementation must be closed when done.
type Driver interface {
	ConnectionTester
	SchemaDiscoverer
	DataProfiler
	QueryExecutor

	Close() error
}

// ClampLimit applies the sample/query limit rules.
func ClampLimit(limit, fallback int) int {
	if limit <= 0 {
		limit = fallback
	}
	if limit > MaxQueryLimit {
		limit = MaxQueryLimit
	}
	return limit
}
