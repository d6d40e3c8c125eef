// Package flatfile exposes Parquet datasets held in object storage through
// the discovery-driver contract. Buckets or containers are databases,
// top-level folders are schemas and files or partitioned folders are tables.
// Every operation lists storage afresh and runs its SQL in a new DuckDB
// session.
package flatfile

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-lake/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-lake/pkg/adapters/datasource/duckdb"
)

// Page is one delimiter-level listing page. Folders are full prefixes ending
// in "/" and Files are full object keys, both in the order the backend
// returned them.
type Page struct {
	Folders   []string
	Files     []string
	NextToken string
}

// Storage is implemented by each object-storage backend family.
type Storage interface {
	// Scheme is the URI scheme the analytic engine uses for this backend.
	Scheme() string

	// PathPrefix is the optional folder under which schemas live.
	PathPrefix() string

	// PinnedDatabase is the bucket or container named in configuration, or "".
	PinnedDatabase() string

	// Probe checks that database is reachable, or the account when database is "".
	Probe(ctx context.Context, database string) error

	// ListDatabaseNames enumerates all buckets or containers across every page.
	ListDatabaseNames(ctx context.Context) ([]string, error)

	// ListPage lists one level below prefix starting at token ("" for the first page).
	ListPage(ctx context.Context, database, prefix, token string) (Page, error)

	// HasQualifyingFile reports whether any Parquet file exists anywhere below
	// prefix, examining at most limit keys.
	HasQualifyingFile(ctx context.Context, database, prefix string, limit int) (bool, error)

	// SessionConfig returns the credentials a session needs to read this backend.
	SessionConfig() duckdb.SessionConfig
}

// Session is the part of an analytic session the engine depends on.
type Session interface {
	RegisterView(ctx context.Context, name, uri string) error
	RegisterPartitionedView(ctx context.Context, name, globURI string) error
	Query(ctx context.Context, sqlQuery string) (*datasource.QueryResult, error)
	Close()
}

// SessionFactory opens a fresh session for one operation.
type SessionFactory func(ctx context.Context, cfg duckdb.SessionConfig) (Session, error)

// DuckDBSessions returns a SessionFactory backed by embedded DuckDB.
func DuckDBSessions(opts duckdb.EngineOptions, logger *zap.Logger) SessionFactory {
	return func(ctx context.Context, cfg duckdb.SessionConfig) (Session, error) {
		s, err := duckdb.Open(ctx, cfg, opts, logger)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
}

// maxPages guards against a backend that never stops returning tokens.
const maxPages = 100000

// CollectPages follows continuation tokens until the listing is exhausted and
// returns the concatenation of every page in order.
func CollectPages(ctx context.Context, fetch func(ctx context.Context, token string) (Page, error)) (Page, error) {
	var all Page
	token := ""
	seen := make(map[string]bool)

	for i := 0; i < maxPages; i++ {
		page, err := fetch(ctx, token)
		if err != nil {
			return Page{}, err
		}
		all.Folders = append(all.Folders, page.Folders...)
		all.Files = append(all.Files, page.Files...)

		if page.NextToken == "" {
			return all, nil
		}
		if seen[page.NextToken] {
			return Page{}, fmt.Errorf("listing returned continuation token %q twice", page.NextToken)
		}
		seen[page.NextToken] = true
		token = page.NextToken
	}
	return Page{}, fmt.Errorf("listing exceeded %d pages", maxPages)
}
