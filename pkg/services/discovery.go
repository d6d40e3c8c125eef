package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-lake/pkg/adapters"
	"github.com/ekaya-inc/ekaya-lake/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-lake/pkg/repositories"
)

// DiscoveryService runs driver operations against a named datasource.
// Every call builds a fresh driver and closes it before returning.
type DiscoveryService interface {
	TestConnection(ctx context.Context, name string) (*datasource.ConnectionTestResult, error)
	ListDatabases(ctx context.Context, name string) ([]datasource.DatabaseInfo, error)
	ListSchemas(ctx context.Context, name, database string) ([]datasource.SchemaInfo, error)
	ListTables(ctx context.Context, name, database, schema string) ([]datasource.TableInfo, error)
	ListColumns(ctx context.Context, name string, ref datasource.TableRef) ([]datasource.ColumnInfo, error)
	ListForeignKeys(ctx context.Context, name, database, schema string) ([]datasource.ForeignKeyInfo, error)
	GetSampleData(ctx context.Context, name string, ref datasource.TableRef, limit int) (*datasource.QueryResult, error)
	GetColumnStats(ctx context.Context, name string, ref datasource.TableRef, column string) (*datasource.ColumnStatsResult, error)
	GetColumnValueOverlap(ctx context.Context, name string, child datasource.TableRef, childColumn string,
		parent datasource.TableRef, parentColumn string, sampleSize int) (*datasource.ColumnValueOverlapResult, error)
	ExecuteQuery(ctx context.Context, name, sqlQuery string, maxRows int, manifest datasource.TableManifest) (*datasource.QueryResult, error)
}

type discoveryService struct {
	repo               repositories.DatasourceRepository
	adapterFactory     adapters.DatasourceAdapterFactory
	defaultSampleLimit int
	logger             *zap.Logger
}

// NewDiscoveryService creates a discovery service. defaultSampleLimit is
// used when GetSampleData is called without a positive limit.
func NewDiscoveryService(
	repo repositories.DatasourceRepository,
	adapterFactory adapters.DatasourceAdapterFactory,
	defaultSampleLimit int,
	logger *zap.Logger,
) DiscoveryService {
	if defaultSampleLimit <= 0 {
		defaultSampleLimit = datasource.DefaultSampleLimit
	}
	return &discoveryService{
		repo:               repo,
		adapterFactory:     adapterFactory,
		defaultSampleLimit: defaultSampleLimit,
		logger:             logger.Named("discovery"),
	}
}

// withDriver resolves name, builds its driver, runs fn and closes the driver.
func withDriver[T any](ctx context.Context, s *discoveryService, name, op string, fn func(datasource.Driver) (T, error)) (T, error) {
	var zero T

	ds, err := s.repo.GetByName(ctx, name)
	if err != nil {
		return zero, err
	}

	logger := s.logger.With(
		zap.String("operation_id", uuid.NewString()),
		zap.String("operation", op),
		zap.String("datasource", ds.Name),
		zap.String("datasource_type", ds.DatasourceType),
	)

	driver, err := s.adapterFactory.NewDriver(ctx, ds.DatasourceType, ds.Config, ds.ID)
	if err != nil {
		logger.Error("Failed to create driver", zap.Error(err))
		return zero, err
	}
	defer func() {
		if cerr := driver.Close(); cerr != nil {
			logger.Debug("Driver close failed", zap.Error(cerr))
		}
	}()

	start := time.Now()
	result, err := fn(driver)
	elapsed := time.Since(start)
	if err != nil {
		logger.Error("Discovery operation failed", zap.Duration("duration", elapsed), zap.Error(err))
		return zero, err
	}
	logger.Debug("Discovery operation completed", zap.Duration("duration", elapsed))
	return result, nil
}

func (s *discoveryService) TestConnection(ctx context.Context, name string) (*datasource.ConnectionTestResult, error) {
	return withDriver(ctx, s, name, "test_connection", func(d datasource.Driver) (*datasource.ConnectionTestResult, error) {
		result := d.TestConnection(ctx)
		return &result, nil
	})
}

func (s *discoveryService) ListDatabases(ctx context.Context, name string) ([]datasource.DatabaseInfo, error) {
	return withDriver(ctx, s, name, "list_databases", func(d datasource.Driver) ([]datasource.DatabaseInfo, error) {
		return d.ListDatabases(ctx)
	})
}

func (s *discoveryService) ListSchemas(ctx context.Context, name, database string) ([]datasource.SchemaInfo, error) {
	return withDriver(ctx, s, name, "list_schemas", func(d datasource.Driver) ([]datasource.SchemaInfo, error) {
		return d.ListSchemas(ctx, database)
	})
}

func (s *discoveryService) ListTables(ctx context.Context, name, database, schema string) ([]datasource.TableInfo, error) {
	return withDriver(ctx, s, name, "list_tables", func(d datasource.Driver) ([]datasource.TableInfo, error) {
		return d.ListTables(ctx, database, schema)
	})
}

func (s *discoveryService) ListColumns(ctx context.Context, name string, ref datasource.TableRef) ([]datasource.ColumnInfo, error) {
	return withDriver(ctx, s, name, "list_columns", func(d datasource.Driver) ([]datasource.ColumnInfo, error) {
		return d.ListColumns(ctx, ref.Database, ref.Schema, ref.Table)
	})
}

func (s *discoveryService) ListForeignKeys(ctx context.Context, name, database, schema string) ([]datasource.ForeignKeyInfo, error) {
	return withDriver(ctx, s, name, "list_foreign_keys", func(d datasource.Driver) ([]datasource.ForeignKeyInfo, error) {
		return d.ListForeignKeys(ctx, database, schema)
	})
}

func (s *discoveryService) GetSampleData(ctx context.Context, name string, ref datasource.TableRef, limit int) (*datasource.QueryResult, error) {
	if limit <= 0 {
		limit = s.defaultSampleLimit
	}
	return withDriver(ctx, s, name, "sample_data", func(d datasource.Driver) (*datasource.QueryResult, error) {
		return d.GetSampleData(ctx, ref.Database, ref.Schema, ref.Table, limit)
	})
}

func (s *discoveryService) GetColumnStats(ctx context.Context, name string, ref datasource.TableRef, column string) (*datasource.ColumnStatsResult, error) {
	return withDriver(ctx, s, name, "column_stats", func(d datasource.Driver) (*datasource.ColumnStatsResult, error) {
		return d.GetColumnStats(ctx, ref.Database, ref.Schema, ref.Table, column)
	})
}

func (s *discoveryService) GetColumnValueOverlap(ctx context.Context, name string, child datasource.TableRef, childColumn string,
	parent datasource.TableRef, parentColumn string, sampleSize int) (*datasource.ColumnValueOverlapResult, error) {
	return withDriver(ctx, s, name, "value_overlap", func(d datasource.Driver) (*datasource.ColumnValueOverlapResult, error) {
		return d.GetColumnValueOverlap(ctx, child, childColumn, parent, parentColumn, sampleSize)
	})
}

func (s *discoveryService) ExecuteQuery(ctx context.Context, name, sqlQuery string, maxRows int, manifest datasource.TableManifest) (*datasource.QueryResult, error) {
	return withDriver(ctx, s, name, "query", func(d datasource.Driver) (*datasource.QueryResult, error) {
		return d.ExecuteReadOnlyQuery(ctx, sqlQuery, maxRows, manifest)
	})
}
