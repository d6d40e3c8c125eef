// Package s3 lists Parquet datasets in Amazon S3 and S3-compatible stores.
package s3

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-lake/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-lake/pkg/adapters/datasource/duckdb"
	"github.com/ekaya-inc/ekaya-lake/pkg/adapters/datasource/flatfile"
	"github.com/ekaya-inc/ekaya-lake/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-lake/pkg/retry"
)

// Scheme is the engine URI scheme for S3 objects.
const Scheme = "s3"

// listPageSize is the maximum number of keys requested per listing page.
const listPageSize = 1000

// Storage implements flatfile.Storage on top of the S3 API.
type Storage struct {
	cfg    *Config
	client client
	retry  *retry.Config
	logger *zap.Logger
}

// NewStorage creates a Storage with a MinIO client for cfg.
func NewStorage(cfg *Config, retryCfg *retry.Config, logger *zap.Logger) (*Storage, error) {
	c, err := newMinioClient(cfg)
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
		logger: logger.Named("s3").With(zap.String("endpoint", cfg.Endpoint)),
	}
}

// New builds a driver for S3 from connection parameters.
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
func (s *Storage) PinnedDatabase() string { return s.cfg.Bucket }

// Probe checks the bucket exists, or that buckets can be listed when
// database is empty.
func (s *Storage) Probe(ctx context.Context, database string) error {
	if database == "" {
		_, err := s.ListDatabaseNames(ctx)
		return err
	}

	exists, err := retry.DoWithResultIfRetryable(ctx, s.retry, func() (bool, error) {
		return s.client.BucketExists(ctx, database)
	})
	if err != nil {
		return apperrors.Connectivity(fmt.Sprintf("check bucket %q", database), err)
	}
	if !exists {
		return apperrors.Connectivity(fmt.Sprintf("check bucket %q", database), fmt.Errorf("NoSuchBucket: bucket does not exist"))
	}
	return nil
}

// ListDatabaseNames lists every bucket visible to the credentials.
func (s *Storage) ListDatabaseNames(ctx context.Context) ([]string, error) {
	names, err := retry.DoWithResultIfRetryable(ctx, s.retry, func() ([]string, error) {
		return s.client.ListBuckets(ctx)
	})
	if err != nil {
		return nil, apperrors.Connectivity("list buckets", err)
	}
	return names, nil
}

// ListPage lists one delimiter level below prefix.
func (s *Storage) ListPage(ctx context.Context, database, prefix, token string) (flatfile.Page, error) {
	res, err := retry.DoWithResultIfRetryable(ctx, s.retry, func() (listResult, error) {
		return s.client.ListObjectsV2(ctx, database, prefix, token, "/", listPageSize)
	})
	if err != nil {
		return flatfile.Page{}, apperrors.Connectivity(fmt.Sprintf("list s3://%s/%s", database, prefix), err)
	}

	s.logger.Debug("Listed page",
		zap.String("bucket", database),
		zap.String("prefix", prefix),
		zap.Int("folders", len(res.Prefixes)),
		zap.Int("files", len(res.Keys)),
		zap.Bool("more", res.NextToken != ""))

	return flatfile.Page{Folders: res.Prefixes, Files: res.Keys, NextToken: res.NextToken}, nil
}

// HasQualifyingFile lists recursively below prefix, fetching at most limit keys.
func (s *Storage) HasQualifyingFile(ctx context.Context, database, prefix string, limit int) (bool, error) {
	res, err := retry.DoWithResultIfRetryable(ctx, s.retry, func() (listResult, error) {
		return s.client.ListObjectsV2(ctx, database, prefix, "", "", limit)
	})
	if err != nil {
		return false, apperrors.Connectivity(fmt.Sprintf("probe s3://%s/%s", database, prefix), err)
	}
	for _, key := range res.Keys {
		if flatfile.IsQualifyingFile(key) {
			return true, nil
		}
	}
	return false, nil
}

// SessionConfig maps the connection to httpfs secret settings. The AWS
// endpoint is left to the engine so regional routing still applies.
func (s *Storage) SessionConfig() duckdb.SessionConfig {
	creds := &duckdb.S3Credentials{
		Region:          s.cfg.Region,
		AccessKeyID:     s.cfg.AccessKeyID,
		SecretAccessKey: s.cfg.SecretAccessKey,
		SessionToken:    s.cfg.SessionToken,
		URLStyle:        s.cfg.URLStyle,
		UseSSL:          s.cfg.UseSSL,
	}
	if s.cfg.IsCustomEndpoint() {
		creds.Endpoint = s.cfg.Endpoint
	}
	return duckdb.SessionConfig{Type: duckdb.StorageS3, S3: creds}
}

var _ flatfile.Storage = (*Storage)(nil)
