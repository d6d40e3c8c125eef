// Package duckdb manages single-use embedded DuckDB sessions that read
// Parquet directly from object storage.
package duckdb

import (
	"context"
	"database/sql"
	"fmt"
	"math/big"
	"sync"
	"time"

	_ "github.com/marcboeker/go-duckdb/v2"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-lake/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-lake/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-lake/pkg/logging"
)

// Session is one in-memory engine instance. It is not safe for concurrent
// use and lives for exactly one operation.
type Session struct {
	db        *sql.DB
	logger    *zap.Logger
	closeOnce sync.Once
}

// Open creates a session and applies engine settings, extensions and
// storage credentials. A session that fails configuration is closed before
// the error is returned.
func Open(ctx context.Context, cfg SessionConfig, opts EngineOptions, logger *zap.Logger) (*Session, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	stmts, err := cfg.Statements(opts)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("duckdb", "")
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}

	s, err := configure(ctx, db, stmts, logger)
	if err != nil {
		return nil, err
	}

	logger.Debug("DuckDB session opened",
		zap.String("storage_type", string(cfg.Type)),
		zap.Int("setup_statements", len(stmts)))
	return s, nil
}

// configure runs the setup statements on db. On failure db is closed and the
// first setup error is returned.
func configure(ctx context.Context, db *sql.DB, stmts []string, logger *zap.Logger) (*Session, error) {
	// Views and secrets are connection-local; keep everything on one connection.
	db.SetMaxOpenConns(1)

	s := &Session{db: db, logger: logger}

	for i, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			s.Close()
			logger.Debug("DuckDB session closed after failed setup", zap.Int("statement", i+1))
			return nil, apperrors.Connectivity("configure session", fmt.Errorf("%s", logging.SanitizeError(err)))
		}
	}
	return s, nil
}

// RegisterView creates a view over a single Parquet file.
func (s *Session) RegisterView(ctx context.Context, name, uri string) error {
	stmt := fmt.Sprintf("CREATE OR REPLACE VIEW %s AS SELECT * FROM read_parquet(%s)", QuoteIdent(name), QuoteString(uri))
	if _, err := s.db.ExecContext(ctx, stmt); err != nil {
		return apperrors.Connectivity(fmt.Sprintf("register view %q", name), err)
	}
	return nil
}

// RegisterPartitionedView creates a view over every Parquet file matched by
// globURI, inferring partition columns from key=value path segments.
func (s *Session) RegisterPartitionedView(ctx context.Context, name, globURI string) error {
	stmt := fmt.Sprintf("CREATE OR REPLACE VIEW %s AS SELECT * FROM read_parquet(%s, hive_partitioning = true, union_by_name = true)",
		QuoteIdent(name), QuoteString(globURI))
	if _, err := s.db.ExecContext(ctx, stmt); err != nil {
		return apperrors.Connectivity(fmt.Sprintf("register partitioned view %q", name), err)
	}
	return nil
}

// Exec runs a statement that produces no result set.
func (s *Session) Exec(ctx context.Context, stmt string) error {
	if _, err := s.db.ExecContext(ctx, stmt); err != nil {
		return apperrors.Connectivity("exec", err)
	}
	return nil
}

// Query runs sqlQuery and returns all rows. An empty result set yields empty
// columns and rows rather than an error.
func (s *Session) Query(ctx context.Context, sqlQuery string) (*datasource.QueryResult, error) {
	start := time.Now()

	rows, err := s.db.QueryContext(ctx, sqlQuery)
	if err != nil {
		return nil, apperrors.Connectivity("execute query", err)
	}
	defer func() { _ = rows.Close() }()

	colTypes, err := rows.ColumnTypes()
	if err != nil {
		return nil, apperrors.Connectivity("query columns", err)
	}

	columns := make([]datasource.QueryColumn, len(colTypes))
	for i, ct := range colTypes {
		columns[i] = datasource.QueryColumn{Name: ct.Name(), Type: MapType(ct.DatabaseTypeName())}
	}

	resultRows := make([]map[string]any, 0)
	for rows.Next() {
		values := make([]any, len(columns))
		scanTargets := make([]any, len(columns))
		for i := range values {
			scanTargets[i] = &values[i]
		}
		if err := rows.Scan(scanTargets...); err != nil {
			return nil, apperrors.Connectivity("scan row", err)
		}

		row := make(map[string]any, len(columns))
		for i, col := range columns {
			row[col.Name] = normalizeValue(values[i])
		}
		resultRows = append(resultRows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Connectivity("iterate rows", err)
	}

	if len(resultRows) == 0 {
		columns = []datasource.QueryColumn{}
	}

	s.logger.Debug("DuckDB query finished",
		zap.String("query", logging.SanitizeQuery(sqlQuery)),
		zap.Int("rows", len(resultRows)),
		zap.Duration("elapsed", time.Since(start)))

	return &datasource.QueryResult{
		Columns:  columns,
		Rows:     resultRows,
		RowCount: len(resultRows),
	}, nil
}

// Close releases the engine. It is safe to call more than once and never
// reports an error; teardown failures are only logged.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		if err := s.db.Close(); err != nil {
			s.logger.Debug("DuckDB session close failed", zap.Error(err))
		}
	})
}

func normalizeValue(value any) any {
	switch typed := value.(type) {
	case nil:
		return nil
	case []byte:
		return string(typed)
	case time.Time:
		return typed
	case *big.Int:
		return typed.String()
	case fmt.Stringer:
		return typed.String()
	default:
		return typed
	}
}
