package datasource

// TableKind is always TABLE for flat-file backends.
const TableKind = "TABLE"

// DatabaseInfo is a bucket or container.
type DatabaseInfo struct {
	Name string `json:"name"`
}

// SchemaInfo is a virtual schema derived from a top-level folder.
type SchemaInfo struct {
	Name     string `json:"name"`
	Database string `json:"database"`
}

// TableInfo is one dataset: a single file or a partitioned folder.
type TableInfo struct {
	Name        string `json:"name"`
	Schema      string `json:"schema"`
	Database    string `json:"database"`
	Kind        string `json:"kind"`
	RowEstimate *int64 `json:"row_estimate,omitempty"`
}

// ColumnInfo describes a dataset column. DataType is the normalized type,
// NativeType the engine's own spelling.
type ColumnInfo struct {
	Name            string `json:"name"`
	DataType        string `json:"data_type"`
	NativeType      string `json:"native_type"`
	IsNullable      bool   `json:"is_nullable"`
	IsPrimaryKey    bool   `json:"is_primary_key"`
	OrdinalPosition int    `json:"ordinal_position"`
}

// ForeignKeyInfo represents a declared foreign key relationship.
type ForeignKeyInfo struct {
	ConstraintName string `json:"constraint_name"`
	SourceSchema   string `json:"source_schema"`
	SourceTable    string `json:"source_table"`
	SourceColumn   string `json:"source_column"`
	TargetSchema   string `json:"target_schema"`
	TargetTable    string `json:"target_table"`
	TargetColumn   string `json:"target_column"`
}

// TableRef addresses one dataset.
type TableRef struct {
	Database string `json:"database"`
	Schema   string `json:"schema"`
	Table    string `json:"table"`
}

// TableManifestEntry maps a table name used in SQL to its physical location.
type TableManifestEntry struct {
	URI         string `json:"uri"`
	Partitioned bool   `json:"partitioned"`
}

// TableManifest is keyed by the table name referenced in the SQL.
type TableManifest map[string]TableManifestEntry

// QueryColumn describes a result column with its normalized type.
type QueryColumn struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// QueryResult holds the results from executing a query.
type QueryResult struct {
	Columns  []QueryColumn    `json:"columns"`
	Rows     []map[string]any `json:"rows"`
	RowCount int              `json:"row_count"`
}

// ColumnStatsResult contains statistics for a column.
type ColumnStatsResult struct {
	ColumnName    string   `json:"column_name"`
	DistinctCount int64    `json:"distinct_count"`
	NullCount     int64    `json:"null_count"`
	TotalCount    int64    `json:"total_count"`
	MinValue      *string  `json:"min_value,omitempty"`
	MaxValue      *string  `json:"max_value,omitempty"`
	SampleValues  []string `json:"sample_values"`
}

// ColumnValueOverlapResult contains results from value overlap analysis.
type ColumnValueOverlapResult struct {
	ChildSampleSize     int64   `json:"child_sample_size"`
	ChildDistinctCount  int64   `json:"child_distinct_count"`
	ChildNullCount      int64   `json:"child_null_count"`
	ParentDistinctCount int64   `json:"parent_distinct_count"`
	OverlapCount        int64   `json:"overlap_count"`
	OverlapRatio        float64 `json:"overlap_ratio"`
	NullRatio           float64 `json:"null_ratio"`
}

// NewColumnValueOverlapResult derives both ratios from the raw counts.
func NewColumnValueOverlapResult(childSampleSize, childDistinct, childNulls, parentDistinct, overlap int64) *ColumnValueOverlapResult {
	return &ColumnValueOverlapResult{
		ChildSampleSize:     childSampleSize,
		ChildDistinctCount:  childDistinct,
		ChildNullCount:      childNulls,
		ParentDistinctCount: parentDistinct,
		OverlapCount:        overlap,
		OverlapRatio:        float64(overlap) / float64(max(childDistinct, 1)),
		NullRatio:           float64(childNulls) / float64(max(childSampleSize, 1)),
	}
}

// ConnectionTestResult is the outcome of a connectivity probe.
type ConnectionTestResult struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	LatencyMs int64  `json:"latency_ms"`
}
