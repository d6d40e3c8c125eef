// Package adapters builds discovery drivers for the object-storage backends.
package adapters

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-lake/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-lake/pkg/adapters/datasource/azureblob"
	"github.com/ekaya-inc/ekaya-lake/pkg/adapters/datasource/duckdb"
	"github.com/ekaya-inc/ekaya-lake/pkg/adapters/datasource/flatfile"
	"github.com/ekaya-inc/ekaya-lake/pkg/adapters/datasource/s3"
	"github.com/ekaya-inc/ekaya-lake/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-lake/pkg/config"
	"github.com/ekaya-inc/ekaya-lake/pkg/retry"
)

// DatasourceAdapterFactory creates drivers for a datasource type.
type DatasourceAdapterFactory interface {
	// NewDriver builds a driver from a datasource's config map. The caller
	// must Close it.
	NewDriver(ctx context.Context, dsType string, config map[string]any, datasourceID uuid.UUID) (datasource.Driver, error)

	// ListTypes returns info for all supported backend types.
	ListTypes() []datasource.DatasourceAdapterInfo
}

// driverBuilder constructs one backend's driver.
type driverBuilder func(params *datasource.ConnectionParams, sessions flatfile.SessionFactory, opts flatfile.Options, retryCfg *retry.Config, logger *zap.Logger) (*flatfile.Discoverer, error)

var builders = map[string]driverBuilder{
	datasource.TypeS3:        s3.New,
	datasource.TypeAzureBlob: azureblob.New,
}

type storageFactory struct {
	sessions flatfile.SessionFactory
	options  flatfile.Options
	retry    *retry.Config
	logger   *zap.Logger
}

// NewDatasourceAdapterFactory returns a factory configured from cfg. The
// DuckDB engine options, discovery limits and retry policy are shared by
// every driver it builds.
func NewDatasourceAdapterFactory(cfg *config.Config, logger *zap.Logger) DatasourceAdapterFactory {
	return &storageFactory{
		sessions: flatfile.DuckDBSessions(EngineOptions(cfg), logger),
		options:  DiscoveryOptions(cfg),
		retry:    RetryConfig(cfg),
		logger:   logger.Named("adapters"),
	}
}

// EngineOptions maps the engine section of cfg to DuckDB session options.
func EngineOptions(cfg *config.Config) duckdb.EngineOptions {
	return duckdb.EngineOptions{
		ExtensionDirectory: cfg.Engine.ExtensionDirectory,
		MemoryLimit:        cfg.Engine.MemoryLimit,
		Threads:            cfg.Engine.Threads,
		AllowInstall:       !cfg.Engine.OfflineExtensions,
	}
}

// DiscoveryOptions maps the discovery section of cfg to driver options.
func DiscoveryOptions(cfg *config.Config) flatfile.Options {
	return flatfile.Options{
		PartitionProbeLimit: cfg.Discovery.PartitionProbeLimit,
		ProbeConcurrency:    cfg.Discovery.ProbeConcurrency,
		OverlapSampleSize:   cfg.Discovery.OverlapSampleSize,
		StatsSampleValues:   cfg.Discovery.StatsSampleValues,
		MaxQueryRows:        cfg.Discovery.MaxQueryRows,
	}
}

// RetryConfig overlays the configured retry budget on the default policy.
func RetryConfig(cfg *config.Config) *retry.Config {
	rc := retry.DefaultConfig()
	rc.MaxRetries = cfg.Retry.MaxRetries
	if cfg.Retry.InitialDelay > 0 {
		rc.InitialDelay = cfg.Retry.InitialDelay
	}
	if cfg.Retry.MaxDelay > 0 {
		rc.MaxDelay = cfg.Retry.MaxDelay
	}
	return rc
}

func (f *storageFactory) NewDriver(ctx context.Context, dsType string, config map[string]any, datasourceID uuid.UUID) (datasource.Driver, error) {
	canonical, ok := datasource.CanonicalType(dsType)
	if !ok {
		if datasource.IsNativeCatalogType(dsType) {
			return nil, apperrors.Configuration("datasource type %q is served by the native catalog driver", dsType)
		}
		return nil, fmt.Errorf("%w: %w: %s", apperrors.ErrConfiguration, apperrors.ErrUnsupportedType, dsType)
	}

	params, err := datasource.ParamsFromMap(config)
	if err != nil {
		return nil, apperrors.Configuration("%s", err.Error())
	}

	logger := f.logger.With(
		zap.String("datasource_id", datasourceID.String()),
		zap.String("datasource_type", canonical),
	)

	driver, err := builders[canonical](params, f.sessions, f.options, f.retry, logger)
	if err != nil {
		return nil, err
	}
	logger.Debug("Driver created")
	return driver, nil
}

func (f *storageFactory) ListTypes() []datasource.DatasourceAdapterInfo {
	return datasource.SupportedAdapters()
}

// Ensure storageFactory implements DatasourceAdapterFactory at compile time.
var _ DatasourceAdapterFactory = (*storageFactory)(nil)
