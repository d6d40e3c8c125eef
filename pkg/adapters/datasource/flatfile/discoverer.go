package flatfile

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ekaya-inc/ekaya-lake/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-lake/pkg/apperrors"
)

// Options tune the engine. Zero values fall back to the defaults below.
type Options struct {
	// DefaultSchema resolves tables named in SQL when no manifest is given.
	DefaultSchema string
	// PartitionProbeLimit caps the keys examined when probing a sub-folder.
	PartitionProbeLimit int
	// ProbeConcurrency bounds concurrent sub-folder probes; 0 means one
	// goroutine per sub-folder.
	ProbeConcurrency int
	// OverlapSampleSize bounds each side of an overlap check when the caller passes 0.
	OverlapSampleSize int
	// StatsSampleValues is the number of distinct sample values in column stats.
	StatsSampleValues int
	// MaxQueryRows bounds ad-hoc queries; never above datasource.MaxQueryLimit.
	MaxQueryRows int
}

const (
	defaultPartitionProbeLimit = 5
	defaultOverlapSampleSize   = 1000
	defaultStatsSampleValues   = 10
)

func (o Options) withDefaults() Options {
	if o.DefaultSchema == "" {
		o.DefaultSchema = datasource.RootSchema
	}
	if o.PartitionProbeLimit <= 0 {
		o.PartitionProbeLimit = defaultPartitionProbeLimit
	}
	if o.OverlapSampleSize <= 0 {
		o.OverlapSampleSize = defaultOverlapSampleSize
	}
	if o.StatsSampleValues <= 0 {
		o.StatsSampleValues = defaultStatsSampleValues
	}
	if o.MaxQueryRows <= 0 || o.MaxQueryRows > datasource.MaxQueryLimit {
		o.MaxQueryRows = datasource.MaxQueryLimit
	}
	return o
}

// Discoverer implements datasource.Driver over any Storage backend.
// It holds no per-call state and is safe for concurrent use.
type Discoverer struct {
	storage  Storage
	sessions SessionFactory
	opts     Options
	logger   *zap.Logger
}

// NewDiscoverer wires a storage backend to a session factory.
func NewDiscoverer(storage Storage, sessions SessionFactory, opts Options, logger *zap.Logger) *Discoverer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Discoverer{
		storage:  storage,
		sessions: sessions,
		opts:     opts.withDefaults(),
		logger:   logger.With(zap.String("scheme", storage.Scheme())),
	}
}

// TestConnection probes the pinned bucket/container, or account-level listing
// when none is pinned.
func (d *Discoverer) TestConnection(ctx context.Context) datasource.ConnectionTestResult {
	start := time.Now()
	pinned := d.storage.PinnedDatabase()

	err := d.storage.Probe(ctx, pinned)
	latency := time.Since(start).Milliseconds()

	if err != nil {
		d.logger.Warn("Connection test failed",
			zap.String("database", pinned),
			zap.Int64("latency_ms", latency),
			zap.Error(err))
		return datasource.ConnectionTestResult{Success: false, Message: err.Error(), LatencyMs: latency}
	}

	msg := "connected to storage account"
	if pinned != "" {
		msg = fmt.Sprintf("connected to %q", pinned)
	}
	return datasource.ConnectionTestResult{Success: true, Message: msg, LatencyMs: latency}
}

// ListDatabases returns the pinned database without calling the backend, or
// every bucket/container otherwise.
func (d *Discoverer) ListDatabases(ctx context.Context) ([]datasource.DatabaseInfo, error) {
	if pinned := d.storage.PinnedDatabase(); pinned != "" {
		return []datasource.DatabaseInfo{{Name: pinned}}, nil
	}

	names, err := d.storage.ListDatabaseNames(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]datasource.DatabaseInfo, 0, len(names))
	for _, name := range names {
		if name = strings.TrimSpace(name); name != "" {
			out = append(out, datasource.DatabaseInfo{Name: name})
		}
	}
	return out, nil
}

// ListSchemas lists top-level folders under the path prefix. The root schema
// is reported first when Parquet files sit directly at that level.
func (d *Discoverer) ListSchemas(ctx context.Context, database string) ([]datasource.SchemaInfo, error) {
	db, err := d.resolveDatabase(database)
	if err != nil {
		return nil, err
	}

	page, err := d.listAll(ctx, db, SchemaPrefix(d.storage.PathPrefix(), datasource.RootSchema))
	if err != nil {
		return nil, err
	}

	out := []datasource.SchemaInfo{}
	seen := map[string]bool{}

	for _, key := range page.Files {
		if IsQualifyingFile(key) {
			out = append(out, datasource.SchemaInfo{Name: datasource.RootSchema, Database: db})
			seen[datasource.RootSchema] = true
			break
		}
	}

	for _, folder := range page.Folders {
		name := FolderName(folder)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, datasource.SchemaInfo{Name: name, Database: db})
	}

	d.logger.Debug("Listed schemas", zap.String("database", db), zap.Int("count", len(out)))
	return out, nil
}

// ListTables lists the datasets of one schema. Parquet files at the schema
// level are single-file tables. Sub-folders are probed concurrently and
// become partitioned tables when any Parquet file exists beneath them.
func (d *Discoverer) ListTables(ctx context.Context, database, schema string) ([]datasource.TableInfo, error) {
	db, err := d.resolveDatabase(database)
	if err != nil {
		return nil, err
	}
	if schema == "" {
		schema = datasource.RootSchema
	}

	page, err := d.listAll(ctx, db, SchemaPrefix(d.storage.PathPrefix(), schema))
	if err != nil {
		return nil, err
	}

	out := []datasource.TableInfo{}
	seen := map[string]bool{}
	add := func(name string) {
		if name == "" || seen[name] {
			return
		}
		seen[name] = true
		out = append(out, datasource.TableInfo{Name: name, Schema: schema, Database: db, Kind: datasource.TableKind})
	}

	for _, key := range page.Files {
		if IsQualifyingFile(key) {
			add(TableNameFromFile(key))
		}
	}

	partitioned, err := d.probeFolders(ctx, db, page.Folders)
	if err != nil {
		return nil, err
	}
	for i, folder := range page.Folders {
		if partitioned[i] {
			add(FolderName(folder))
		}
	}

	d.logger.Debug("Listed tables",
		zap.String("database", db),
		zap.String("schema", schema),
		zap.Int("count", len(out)))
	return out, nil
}

// ListForeignKeys always returns an empty slice: flat files declare no
// relationships. GetColumnValueOverlap is the substitute signal.
func (d *Discoverer) ListForeignKeys(ctx context.Context, database, schema string) ([]datasource.ForeignKeyInfo, error) {
	return []datasource.ForeignKeyInfo{}, nil
}

// Close releases nothing; every operation owns its own session.
func (d *Discoverer) Close() error {
	return nil
}

// probeFolders checks each folder concurrently and returns one flag per
// folder, in input order.
func (d *Discoverer) probeFolders(ctx context.Context, database string, folders []string) ([]bool, error) {
	found := make([]bool, len(folders))
	if len(folders) == 0 {
		return found, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	if d.opts.ProbeConcurrency > 0 {
		g.SetLimit(d.opts.ProbeConcurrency)
	}
	for i, folder := range folders {
		if FolderName(folder) == "" {
			continue
		}
		g.Go(func() error {
			ok, err := d.storage.HasQualifyingFile(gctx, database, folder, d.opts.PartitionProbeLimit)
			if err != nil {
				return err
			}
			found[i] = ok
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return found, nil
}

func (d *Discoverer) listAll(ctx context.Context, database, prefix string) (Page, error) {
	return CollectPages(ctx, func(ctx context.Context, token string) (Page, error) {
		return d.storage.ListPage(ctx, database, prefix, token)
	})
}

// classify decides between a partitioned folder and a single file. The
// answer is never cached because storage content can change between calls.
func (d *Discoverer) classify(ctx context.Context, ref datasource.TableRef) (datasource.TableManifestEntry, error) {
	prefix := d.storage.PathPrefix()
	partitioned, err := d.storage.HasQualifyingFile(ctx, ref.Database, TablePrefix(prefix, ref.Schema, ref.Table), d.opts.PartitionProbeLimit)
	if err != nil {
		return datasource.TableManifestEntry{}, err
	}
	return datasource.TableManifestEntry{
		URI:         BuildURI(d.storage.Scheme(), ref.Database, prefix, ref.Schema, ref.Table, partitioned),
		Partitioned: partitioned,
	}, nil
}

// resolveRef fills the database from configuration and validates the names.
func (d *Discoverer) resolveRef(database, schema, table string) (datasource.TableRef, error) {
	db, err := d.resolveDatabase(database)
	if err != nil {
		return datasource.TableRef{}, err
	}
	if strings.TrimSpace(table) == "" {
		return datasource.TableRef{}, apperrors.Validation("table name is required")
	}
	if schema == "" {
		schema = datasource.RootSchema
	}
	return datasource.TableRef{Database: db, Schema: schema, Table: table}, nil
}

func (d *Discoverer) resolveDatabase(database string) (string, error) {
	if database = strings.TrimSpace(database); database != "" {
		return database, nil
	}
	if pinned := d.storage.PinnedDatabase(); pinned != "" {
		return pinned, nil
	}
	return "", apperrors.Configuration("database is required when no bucket or container is configured")
}

// withSession runs fn inside a fresh session that is always closed.
func (d *Discoverer) withSession(ctx context.Context, fn func(Session) error) error {
	session, err := d.sessions(ctx, d.storage.SessionConfig())
	if err != nil {
		return err
	}
	defer session.Close()
	return fn(session)
}

func registerDataset(ctx context.Context, session Session, name string, entry datasource.TableManifestEntry) error {
	if entry.Partitioned {
		return session.RegisterPartitionedView(ctx, name, entry.URI)
	}
	return session.RegisterView(ctx, name, entry.URI)
}

var _ datasource.Driver = (*Discoverer)(nil)
