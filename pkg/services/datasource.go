package services

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-lake/pkg/adapters"
	"github.com/ekaya-inc/ekaya-lake/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-lake/pkg/models"
	"github.com/ekaya-inc/ekaya-lake/pkg/repositories"
)

// DatasourceService defines the interface for datasource operations.
type DatasourceService interface {
	// GetByName retrieves a datasource by name with decrypted config.
	GetByName(ctx context.Context, name string) (*models.Datasource, error)

	// List retrieves all configured datasources.
	List(ctx context.Context) ([]*models.Datasource, error)

	// TestConnection tests connectivity to an unsaved datasource config.
	// Failures are reported in the result; the error is only set when no
	// driver could be built.
	TestConnection(ctx context.Context, dsType string, config map[string]any) (*datasource.ConnectionTestResult, error)

	// ListTypes returns the supported backend types.
	ListTypes() []datasource.DatasourceAdapterInfo
}

// datasourceService implements DatasourceService.
type datasourceService struct {
	repo           repositories.DatasourceRepository
	adapterFactory adapters.DatasourceAdapterFactory
	logger         *zap.Logger
}

// NewDatasourceService creates a new datasource service with dependencies.
func NewDatasourceService(
	repo repositories.DatasourceRepository,
	adapterFactory adapters.DatasourceAdapterFactory,
	logger *zap.Logger,
) DatasourceService {
	return &datasourceService{
		repo:           repo,
		adapterFactory: adapterFactory,
		logger:         logger,
	}
}

func (s *datasourceService) GetByName(ctx context.Context, name string) (*models.Datasource, error) {
	return s.repo.GetByName(ctx, name)
}

func (s *datasourceService) List(ctx context.Context) ([]*models.Datasource, error) {
	return s.repo.List(ctx)
}

func (s *datasourceService) TestConnection(ctx context.Context, dsType string, config map[string]any) (*datasource.ConnectionTestResult, error) {
	driver, err := s.adapterFactory.NewDriver(ctx, dsType, config, uuid.Nil)
	if err != nil {
		return nil, err
	}
	defer driver.Close()

	result := driver.TestConnection(ctx)
	if result.Success {
		s.logger.Info("Connection test successful", zap.String("type", dsType), zap.Int64("latency_ms", result.LatencyMs))
	} else {
		s.logger.Warn("Connection test failed", zap.String("type", dsType), zap.String("message", result.Message))
	}
	return &result, nil
}

func (s *datasourceService) ListTypes() []datasource.DatasourceAdapterInfo {
	return s.adapterFactory.ListTypes()
}
