package flatfile

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/ekaya-inc/ekaya-lake/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-lake/pkg/adapters/datasource/duckdb"
)

// memStorage lists an in-memory key set the way a delimiter listing does,
// paginated by pageSize entries.
type memStorage struct {
	mu        sync.Mutex
	scheme    string
	prefix    string
	pinned    string
	buckets   map[string][]string
	pageSize  int
	probeErr  error
	listErr   error
	listCalls int
	dbCalls   int
	hasCalls  []string
}

func newMemStorage(keys ...string) *memStorage {
	return &memStorage{
		scheme:   "s3",
		buckets:  map[string][]string{"lake": keys},
		pageSize: 1000,
	}
}

func (m *memStorage) Scheme() string         { return m.scheme }
func (m *memStorage) PathPrefix() string     { return m.prefix }
func (m *memStorage) PinnedDatabase() string { return m.pinned }

func (m *memStorage) SessionConfig() duckdb.SessionConfig {
	return duckdb.SessionConfig{Type: duckdb.StorageLocal}
}

func (m *memStorage) Probe(ctx context.Context, database string) error {
	return m.probeErr
}

func (m *memStorage) ListDatabaseNames(ctx context.Context) ([]string, error) {
	m.mu.Lock()
	m.dbCalls++
	m.mu.Unlock()

	names := make([]string, 0, len(m.buckets))
	for name := range m.buckets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

type entry struct {
	name     string
	isFolder bool
}

func (m *memStorage) ListPage(ctx context.Context, database, prefix, token string) (Page, error) {
	m.mu.Lock()
	m.listCalls++
	m.mu.Unlock()
	if m.listErr != nil {
		return Page{}, m.listErr
	}

	keys, ok := m.buckets[database]
	if !ok {
		return Page{}, errors.New("NoSuchBucket: The specified bucket does not exist")
	}

	seen := map[string]bool{}
	var entries []entry
	for _, key := range keys {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		rest := key[len(prefix):]
		if i := strings.Index(rest, "/"); i >= 0 {
			folder := prefix + rest[:i+1]
			if !seen[folder] {
				seen[folder] = true
				entries = append(entries, entry{name: folder, isFolder: true})
			}
			continue
		}
		entries = append(entries, entry{name: key})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].name < entries[j].name })

	start := 0
	if token != "" {
		start, _ = strconv.Atoi(token)
	}
	end := min(start+m.pageSize, len(entries))

	var page Page
	for _, e := range entries[start:end] {
		if e.isFolder {
			page.Folders = append(page.Folders, e.name)
		} else {
			page.Files = append(page.Files, e.name)
		}
	}
	if end < len(entries) {
		page.NextToken = strconv.Itoa(end)
	}
	return page, nil
}

func (m *memStorage) HasQualifyingFile(ctx context.Context, database, prefix string, limit int) (bool, error) {
	m.mu.Lock()
	m.hasCalls = append(m.hasCalls, prefix)
	m.mu.Unlock()

	checked := 0
	for _, key := range m.buckets[database] {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		if IsQualifyingFile(key) {
			return true, nil
		}
		checked++
		if checked >= limit {
			return false, nil
		}
	}
	return false, nil
}

// fakeSession records registrations and answers queries from a callback.
type fakeSession struct {
	mu         sync.Mutex
	views      map[string]datasource.TableManifestEntry
	queries    []string
	closed     int
	respond    func(sql string) (*datasource.QueryResult, error)
	registerFn func(name string) error
}

func (s *fakeSession) RegisterView(ctx context.Context, name, uri string) error {
	return s.register(name, datasource.TableManifestEntry{URI: uri})
}

func (s *fakeSession) RegisterPartitionedView(ctx context.Context, name, globURI string) error {
	return s.register(name, datasource.TableManifestEntry{URI: globURI, Partitioned: true})
}

func (s *fakeSession) register(name string, e datasource.TableManifestEntry) error {
	if s.registerFn != nil {
		if err := s.registerFn(name); err != nil {
			return err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.views == nil {
		s.views = map[string]datasource.TableManifestEntry{}
	}
	s.views[name] = e
	return nil
}

func (s *fakeSession) Query(ctx context.Context, sql string) (*datasource.QueryResult, error) {
	s.mu.Lock()
	s.queries = append(s.queries, sql)
	s.mu.Unlock()
	if s.respond == nil {
		return &datasource.QueryResult{Columns: []datasource.QueryColumn{}, Rows: []map[string]any{}}, nil
	}
	return s.respond(sql)
}

func (s *fakeSession) Close() {
	s.mu.Lock()
	s.closed++
	s.mu.Unlock()
}

func sessionsOf(s *fakeSession) SessionFactory {
	return func(ctx context.Context, cfg duckdb.SessionConfig) (Session, error) {
		return s, nil
	}
}
