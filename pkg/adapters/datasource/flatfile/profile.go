package flatfile

import (
	"context"
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-lake/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-lake/pkg/adapters/datasource/duckdb"
	"github.com/ekaya-inc/ekaya-lake/pkg/apperrors"
)

// View names used by the overlap check so a table can be compared with itself.
const (
	childView  = "child_dataset"
	parentView = "parent_dataset"
)

// ListColumns describes a dataset. Flat files carry no constraints, so every
// column is nullable and none is a primary key.
func (d *Discoverer) ListColumns(ctx context.Context, database, schema, table string) ([]datasource.ColumnInfo, error) {
	ref, err := d.resolveRef(database, schema, table)
	if err != nil {
		return nil, err
	}
	entry, err := d.classify(ctx, ref)
	if err != nil {
		return nil, err
	}

	var columns []datasource.ColumnInfo
	err = d.withSession(ctx, func(s Session) error {
		if err := registerDataset(ctx, s, ref.Table, entry); err != nil {
			return err
		}
		res, err := s.Query(ctx, "DESCRIBE "+duckdb.QuoteIdent(ref.Table))
		if err != nil {
			return err
		}

		columns = make([]datasource.ColumnInfo, 0, len(res.Rows))
		for i, row := range res.Rows {
			native := stringValue(row["column_type"])
			columns = append(columns, datasource.ColumnInfo{
				Name:            stringValue(row["column_name"]),
				DataType:        duckdb.MapType(native),
				NativeType:      native,
				IsNullable:      true,
				IsPrimaryKey:    false,
				OrdinalPosition: i + 1,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	d.logger.Debug("Listed columns",
		zap.String("table", ref.Table),
		zap.Bool("partitioned", entry.Partitioned),
		zap.Int("count", len(columns)))
	return columns, nil
}

// GetSampleData returns up to limit rows from a view named after the table.
func (d *Discoverer) GetSampleData(ctx context.Context, database, schema, table string, limit int) (*datasource.QueryResult, error) {
	ref, err := d.resolveRef(database, schema, table)
	if err != nil {
		return nil, err
	}
	entry, err := d.classify(ctx, ref)
	if err != nil {
		return nil, err
	}

	limit = datasource.ClampLimit(limit, datasource.DefaultSampleLimit)

	var result *datasource.QueryResult
	err = d.withSession(ctx, func(s Session) error {
		if err := registerDataset(ctx, s, ref.Table, entry); err != nil {
			return err
		}
		result, err = s.Query(ctx, fmt.Sprintf("SELECT * FROM %s LIMIT %d", duckdb.QuoteIdent(ref.Table), limit))
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// GetColumnStats computes counts and min/max in one aggregate, plus a few
// distinct non-null sample values. Min, max and samples are rendered as text.
func (d *Discoverer) GetColumnStats(ctx context.Context, database, schema, table, column string) (*datasource.ColumnStatsResult, error) {
	ref, err := d.resolveRef(database, schema, table)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(column) == "" {
		return nil, apperrors.Validation("column name is required")
	}
	entry, err := d.classify(ctx, ref)
	if err != nil {
		return nil, err
	}

	view := duckdb.QuoteIdent(ref.Table)
	col := duckdb.QuoteIdent(column)

	statsSQL := fmt.Sprintf(`SELECT
	count(DISTINCT %[1]s) AS distinct_count,
	count(*) - count(%[1]s) AS null_count,
	count(*) AS total_count,
	CAST(min(%[1]s) AS VARCHAR) AS min_value,
	CAST(max(%[1]s) AS VARCHAR) AS max_value
FROM %[2]s`, col, view)

	samplesSQL := fmt.Sprintf(`SELECT DISTINCT CAST(%[1]s AS VARCHAR) AS sample_value
FROM %[2]s
WHERE %[1]s IS NOT NULL
ORDER BY 1
LIMIT %[3]d`, col, view, d.opts.StatsSampleValues)

	stats := &datasource.ColumnStatsResult{ColumnName: column, SampleValues: []string{}}
	err = d.withSession(ctx, func(s Session) error {
		if err := registerDataset(ctx, s, ref.Table, entry); err != nil {
			return err
		}

		res, err := s.Query(ctx, statsSQL)
		if err != nil {
			return err
		}
		if len(res.Rows) > 0 {
			row := res.Rows[0]
			stats.DistinctCount = int64Value(row["distinct_count"])
			stats.NullCount = int64Value(row["null_count"])
			stats.TotalCount = int64Value(row["total_count"])
			stats.MinValue = optionalString(row["min_value"])
			stats.MaxValue = optionalString(row["max_value"])
		}

		samples, err := s.Query(ctx, samplesSQL)
		if err != nil {
			return err
		}
		for _, row := range samples.Rows {
			stats.SampleValues = append(stats.SampleValues, stringValue(row["sample_value"]))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return stats, nil
}

// GetColumnValueOverlap samples up to sampleSize child rows and up to
// sampleSize distinct parent values, then counts distinct child values that
// appear in the parent set. Both datasets are classified independently; the
// first failure aborts without a partial result.
func (d *Discoverer) GetColumnValueOverlap(ctx context.Context, child datasource.TableRef, childColumn string,
	parent datasource.TableRef, parentColumn string, sampleSize int) (*datasource.ColumnValueOverlapResult, error) {
	childRef, err := d.resolveRef(child.Database, child.Schema, child.Table)
	if err != nil {
		return nil, err
	}
	parentRef, err := d.resolveRef(parent.Database, parent.Schema, parent.Table)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(childColumn) == "" || strings.TrimSpace(parentColumn) == "" {
		return nil, apperrors.Validation("child and parent column names are required")
	}
	if sampleSize <= 0 {
		sampleSize = d.opts.OverlapSampleSize
	}

	childEntry, err := d.classify(ctx, childRef)
	if err != nil {
		return nil, err
	}
	parentEntry, err := d.classify(ctx, parentRef)
	if err != nil {
		return nil, err
	}

	overlapSQL := fmt.Sprintf(`WITH child_sample AS MATERIALIZED (
	SELECT CAST(%[1]s AS VARCHAR) AS v FROM %[2]s LIMIT %[5]d
), child_distinct AS (
	SELECT DISTINCT v FROM child_sample WHERE v IS NOT NULL
), parent_distinct AS MATERIALIZED (
	SELECT DISTINCT CAST(%[3]s AS VARCHAR) AS v FROM %[4]s WHERE %[3]s IS NOT NULL LIMIT %[5]d
)
SELECT
	(SELECT count(*) FROM child_sample) AS child_sample_size,
	(SELECT count(*) FROM child_sample WHERE v IS NULL) AS child_null_count,
	(SELECT count(*) FROM child_distinct) AS child_distinct_count,
	(SELECT count(*) FROM parent_distinct) AS parent_distinct_count,
	(SELECT count(*) FROM child_distinct c WHERE c.v IN (SELECT v FROM parent_distinct)) AS overlap_count`,
		duckdb.QuoteIdent(childColumn), duckdb.QuoteIdent(childView),
		duckdb.QuoteIdent(parentColumn), duckdb.QuoteIdent(parentView),
		sampleSize)

	var result *datasource.ColumnValueOverlapResult
	err = d.withSession(ctx, func(s Session) error {
		if err := registerDataset(ctx, s, childView, childEntry); err != nil {
			return err
		}
		if err := registerDataset(ctx, s, parentView, parentEntry); err != nil {
			return err
		}

		res, err := s.Query(ctx, overlapSQL)
		if err != nil {
			return err
		}
		if len(res.Rows) == 0 {
			return fmt.Errorf("overlap query returned no rows")
		}
		row := res.Rows[0]
		result = datasource.NewColumnValueOverlapResult(
			int64Value(row["child_sample_size"]),
			int64Value(row["child_distinct_count"]),
			int64Value(row["child_null_count"]),
			int64Value(row["parent_distinct_count"]),
			int64Value(row["overlap_count"]),
		)
		return nil
	})
	if err != nil {
		return nil, err
	}

	d.logger.Debug("Computed value overlap",
		zap.String("child", childRef.Schema+"."+childRef.Table+"."+childColumn),
		zap.String("parent", parentRef.Schema+"."+parentRef.Table+"."+parentColumn),
		zap.Float64("overlap_ratio", result.OverlapRatio))
	return result, nil
}

func stringValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	default:
		return fmt.Sprint(val)
	}
}

func optionalString(v any) *string {
	if v == nil {
		return nil
	}
	s := stringValue(v)
	return &s
}

func int64Value(v any) int64 {
	switch val := v.(type) {
	case int64:
		return val
	case int32:
		return int64(val)
	case int:
		return int64(val)
	case uint64:
		return int64(val)
	case uint32:
		return int64(val)
	case float64:
		return int64(val)
	case *big.Int:
		return val.Int64()
	case string:
		n, _ := strconv.ParseInt(val, 10, 64)
		return n
	default:
		return 0
	}
}
