// Package azureblob lists Parquet datasets in Azure Blob Storage containers.
package azureblob

import (
	"context"
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-lake/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-lake/pkg/adapters/datasource/duckdb"
	"github.com/ekaya-inc/ekaya-lake/pkg/adapters/datasource/flatfile"
	"github.com/ekaya-inc/ekaya-lake/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-lake/pkg/retry"
)

// Scheme is the engine URI scheme for blobs.
const Scheme = "az"

// Storage implements flatfile.Storage on top of the Blob service API.
type Storage struct {
	cfg    *Config
	client client
	retry  *retry.Config
	logger *zap.Logger
}

// NewStorage creates a Storage with an SDK client for cfg.
func NewStorage(cfg *Config, retryCfg *retry.Config, logger *zap.Logger) (*Storage, error) {
	c, err := newSDKClient(cfg)
	if err != nil {
		return nil, apperrors.Configuration("%v", err)
	}
	return newStorageWithClient(cfg, c, retryCfg, logger), nil
}

func newStorageWithClient(cfg *Config, c client, retryCfg *retry.Config, logger *zap.Logger) *Storage {
	if logger == nil {
		logger = zap.NewNop()
	}
	if retryCfg == nil {
		retryCfg = retry.DefaultConfig()
	}
	return &Storage{
		cfg:    cfg,
		client: c,
		retry:  retryCfg,
		logger: logger.Named("azureblob").With(zap.String("account", cfg.AccountName)),
	}
}

// New builds a driver for Azure Blob Storage from connection parameters.
func New(params *datasource.ConnectionParams, sessions flatfile.SessionFactory, opts flatfile.Options, retryCfg *retry.Config, logger *zap.Logger) (*flatfile.Discoverer, error) {
	cfg, err := FromParams(params)
	if err != nil {
		return nil, err
	}
	storage, err := NewStorage(cfg, retryCfg, logger)
	if err != nil {
		return nil, err
	}
	if opts.DefaultSchema == "" {
		opts.DefaultSchema = cfg.DefaultSchema
	}
	return flatfile.NewDiscoverer(storage, sessions, opts, logger), nil
}

func (s *Storage) Scheme() string         { return Scheme }
func (s *Storage) PathPrefix() string     { return s.cfg.PathPrefix }
func (s *Storage) PinnedDatabase() string { return s.cfg.Container }

// Probe reads container properties, or account properties when database is empty.
func (s *Storage) Probe(ctx context.Context, database string) error {
	if database == "" {
		err := retry.DoIfRetryable(ctx, s.retry, func() error {
			return s.client.AccountProperties(ctx)
		})
		return apperrors.Connectivity(fmt.Sprintf("read account %q", s.cfg.AccountName), err)
	}

	err := retry.DoIfRetryable(ctx, s.retry, func() error {
		return s.client.ContainerProperties(ctx, database)
	})
	if bloberror.HasCode(err, bloberror.ContainerNotFound) {
		err = fmt.Errorf("%w: container does not exist", err)
	}
	return apperrors.Connectivity(fmt.Sprintf("read container %q", database), err)
}

// ListDatabaseNames lists every container of the account.
func (s *Storage) ListDatabaseNames(ctx context.Context) ([]string, error) {
	page, err := flatfile.CollectPages(ctx, func(ctx context.Context, token string) (flatfile.Page, error) {
		type result struct {
			names []string
			next  string
		}
		r, err := retry.DoWithResultIfRetryable(ctx, s.retry, func() (result, error) {
			n, next, err := s.client.ListContainers(ctx, token)
			return result{names: n, next: next}, err
		})
		if err != nil {
			return flatfile.Page{}, err
		}
		return flatfile.Page{Files: r.names, NextToken: r.next}, nil
	})
	if err != nil {
		return nil, apperrors.Connectivity("list containers", err)
	}
	return page.Files, nil
}

// ListPage lists one "/"-delimited level below prefix.
func (s *Storage) ListPage(ctx context.Context, database, prefix, token string) (flatfile.Page, error) {
	res, err := retry.DoWithResultIfRetryable(ctx, s.retry, func() (listResult, error) {
		return s.client.ListHierarchy(ctx, database, prefix, token)
	})
	if err != nil {
		return flatfile.Page{}, apperrors.Connectivity(fmt.Sprintf("list az://%s/%s", database, prefix), err)
	}

	s.logger.Debug("Listed page",
		zap.String("container", database),
		zap.String("prefix", prefix),
		zap.Int("folders", len(res.Prefixes)),
		zap.Int("files", len(res.Names)),
		zap.Bool("more", res.NextToken != ""))

	return flatfile.Page{Folders: res.Prefixes, Files: res.Names, NextToken: res.NextToken}, nil
}

// HasQualifyingFile lists flat below prefix, fetching at most limit blobs.
func (s *Storage) HasQualifyingFile(ctx context.Context, database, prefix string, limit int) (bool, error) {
	names, err := retry.DoWithResultIfRetryable(ctx, s.retry, func() ([]string, error) {
		return s.client.ListFlat(ctx, database, prefix, limit)
	})
	if err != nil {
		return false, apperrors.Connectivity(fmt.Sprintf("probe az://%s/%s", database, prefix), err)
	}
	for _, name := range names {
		if flatfile.IsQualifyingFile(name) {
			return true, nil
		}
	}
	return false, nil
}

// SessionConfig maps the connection to azure extension secret settings.
func (s *Storage) SessionConfig() duckdb.SessionConfig {
	return duckdb.SessionConfig{
		Type: duckdb.StorageAzure,
		Azure: &duckdb.AzureCredentials{
			AccountName:        s.cfg.AccountName,
			AccountURL:         s.cfg.AccountURL,
			AccountKey:         s.cfg.AccountKey,
			SASToken:           s.cfg.SASToken,
			UseCredentialChain: s.cfg.AuthMethod == AuthCredentialChain,
		},
	}
}

var _ flatfile.Storage = (*Storage)(nil)
