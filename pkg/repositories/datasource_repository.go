package repositories

import (
	"context"
	"fmt"
	"sort"

	"github.com/ekaya-inc/ekaya-lake/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-lake/pkg/models"
)

// DatasourceRepository defines the interface for datasource lookup.
// Configs are returned with secrets already decrypted.
type DatasourceRepository interface {
	// GetByName retrieves a datasource by name. Returns apperrors.ErrNotFound
	// when no datasource has that name.
	GetByName(ctx context.Context, name string) (*models.Datasource, error)

	// List retrieves all datasources ordered by name.
	List(ctx context.Context) ([]*models.Datasource, error)
}

// datasourceRepository implements DatasourceRepository over the datasources
// loaded from the configuration file. It is read-only after construction.
type datasourceRepository struct {
	byName  map[string]*models.Datasource
	ordered []*models.Datasource
}

// NewDatasourceRepository creates a repository holding sources. Later
// entries with a duplicate name replace earlier ones.
func NewDatasourceRepository(sources []*models.Datasource) DatasourceRepository {
	r := &datasourceRepository{byName: make(map[string]*models.Datasource, len(sources))}
	for _, ds := range sources {
		if ds == nil {
			continue
		}
		r.byName[ds.Name] = ds
	}
	r.ordered = make([]*models.Datasource, 0, len(r.byName))
	for _, ds := range r.byName {
		r.ordered = append(r.ordered, ds)
	}
	sort.Slice(r.ordered, func(i, j int) bool { return r.ordered[i].Name < r.ordered[j].Name })
	return r
}

func (r *datasourceRepository) GetByName(ctx context.Context, name string) (*models.Datasource, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ds, ok := r.byName[name]
	if !ok {
		return nil, fmt.Errorf("datasource %q: %w", name, apperrors.ErrNotFound)
	}
	return copyDatasource(ds), nil
}

func (r *datasourceRepository) List(ctx context.Context) ([]*models.Datasource, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([]*models.Datasource, len(r.ordered))
	for i, ds := range r.ordered {
		out[i] = copyDatasource(ds)
	}
	return out, nil
}

// copyDatasource returns a copy whose top-level config map can be changed
// by the caller without affecting the repository.
func copyDatasource(ds *models.Datasource) *models.Datasource {
	c := *ds
	c.Config = make(map[string]any, len(ds.Config))
	for k, v := range ds.Config {
		c.Config[k] = v
	}
	return &c
}
