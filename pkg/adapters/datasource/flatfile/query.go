package flatfile

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-lake/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-lake/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-lake/pkg/logging"
	sqlutil "github.com/ekaya-inc/ekaya-lake/pkg/sql"
)

// ExecuteReadOnlyQuery guards, resolves and runs caller SQL.
//
// Tables come from manifest when it is non-empty. Otherwise names are
// extracted from the SQL and classified against the configured bucket or
// container and the default schema. The statement is always wrapped as:
//
//	SELECT * FROM (query) AS _q LIMIT n
func (d *Discoverer) ExecuteReadOnlyQuery(ctx context.Context, sqlQuery string, maxRows int, manifest datasource.TableManifest) (*datasource.QueryResult, error) {
	if err := sqlutil.ValidateReadOnly(sqlQuery); err != nil {
		return nil, err
	}
	normalized, err := sqlutil.NormalizeStatement(sqlQuery)
	if err != nil {
		return nil, err
	}

	if len(manifest) == 0 {
		manifest, err = d.inferManifest(ctx, normalized)
		if err != nil {
			return nil, err
		}
	}

	limit := datasource.ClampLimit(maxRows, d.opts.MaxQueryRows)
	wrapped := fmt.Sprintf("SELECT * FROM (%s) AS _q LIMIT %d", normalized, limit)

	start := time.Now()
	var result *datasource.QueryResult
	err = d.withSession(ctx, func(s Session) error {
		for name, entry := range manifest {
			if err := registerDataset(ctx, s, name, entry); err != nil {
				return err
			}
		}
		result, err = s.Query(ctx, wrapped)
		return err
	})
	if err != nil {
		d.logger.Warn("Read-only query failed",
			zap.String("query", logging.SanitizeQuery(normalized)),
			zap.String("error", logging.SanitizeError(err)))
		return nil, err
	}

	d.logger.Info("Read-only query executed",
		zap.String("query", logging.SanitizeQuery(normalized)),
		zap.Int("tables", len(manifest)),
		zap.Int("rows", result.RowCount),
		zap.Duration("elapsed", time.Since(start)))
	return result, nil
}

// inferManifest maps table names found in the SQL to datasets in the default
// database and schema.
func (d *Discoverer) inferManifest(ctx context.Context, sqlQuery string) (datasource.TableManifest, error) {
	names := sqlutil.ExtractTableNames(sqlQuery)
	manifest := make(datasource.TableManifest, len(names))
	if len(names) == 0 {
		return manifest, nil
	}

	database := d.storage.PinnedDatabase()
	if database == "" {
		return nil, apperrors.Configuration("no table manifest supplied and no default bucket or container configured")
	}

	for _, name := range names {
		entry, err := d.classify(ctx, datasource.TableRef{Database: database, Schema: d.opts.DefaultSchema, Table: name})
		if err != nil {
			return nil, err
		}
		manifest[name] = entry
	}
	return manifest, nil
}
