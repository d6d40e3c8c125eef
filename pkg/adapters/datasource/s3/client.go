package s3

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// listResult is one ListObjectsV2 page reduced to what the listing needs.
type listResult struct {
	Prefixes  []string
	Keys      []string
	NextToken string
}

type client interface {
	ListObjectsV2(ctx context.Context, bucket, prefix, token, delimiter string, maxKeys int) (listResult, error)
	ListBuckets(ctx context.Context) ([]string, error)
	BucketExists(ctx context.Context, bucket string) (bool, error)
}

// responseError carries the S3 error code and HTTP status so transient
// failures can be retried and permanent ones surfaced verbatim.
type responseError struct {
	Code       string
	Message    string
	StatusCode int
}

func (e *responseError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("%s (HTTP %d)", e.Message, e.StatusCode)
	}
	return fmt.Sprintf("%s: %s (HTTP %d)", e.Code, e.Message, e.StatusCode)
}

func (e *responseError) IsRetryable() bool {
	switch e.Code {
	case "SlowDown", "InternalError", "ServiceUnavailable", "RequestTimeout", "RequestTimeTooSkewed":
		return true
	}
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= http.StatusInternalServerError
}

type minioClient struct {
	core *minio.Core
}

func newMinioClient(cfg *Config) (*minioClient, error) {
	opts := &minio.Options{
		Creds:  credentialsFor(cfg),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	}
	switch cfg.URLStyle {
	case "path":
		opts.BucketLookup = minio.BucketLookupPath
	case "vhost":
		opts.BucketLookup = minio.BucketLookupDNS
	}

	core, err := minio.NewCore(cfg.Endpoint, opts)
	if err != nil {
		return nil, fmt.Errorf("create s3 client: %w", err)
	}
	return &minioClient{core: core}, nil
}

func credentialsFor(cfg *Config) *credentials.Credentials {
	if !cfg.CredentialChain {
		return credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, cfg.SessionToken)
	}
	return credentials.NewChainCredentials([]credentials.Provider{
		&credentials.EnvAWS{},
		&credentials.FileAWSCredentials{},
		&credentials.IAM{Client: &http.Client{Transport: http.DefaultTransport}},
	})
}

func (m *minioClient) ListObjectsV2(ctx context.Context, bucket, prefix, token, delimiter string, maxKeys int) (listResult, error) {
	if err := ctx.Err(); err != nil {
		return listResult{}, err
	}
	res, err := m.core.ListObjectsV2(bucket, prefix, "", token, delimiter, maxKeys)
	if err != nil {
		return listResult{}, mapMinioErr(err)
	}

	out := listResult{
		Prefixes: make([]string, 0, len(res.CommonPrefixes)),
		Keys:     make([]string, 0, len(res.Contents)),
	}
	for _, p := range res.CommonPrefixes {
		out.Prefixes = append(out.Prefixes, p.Prefix)
	}
	for _, obj := range res.Contents {
		out.Keys = append(out.Keys, obj.Key)
	}
	if res.IsTruncated {
		out.NextToken = res.NextContinuationToken
	}
	return out, nil
}

func (m *minioClient) ListBuckets(ctx context.Context) ([]string, error) {
	buckets, err := m.core.ListBuckets(ctx)
	if err != nil {
		return nil, mapMinioErr(err)
	}
	names := make([]string, 0, len(buckets))
	for _, b := range buckets {
		names = append(names, b.Name)
	}
	return names, nil
}

func (m *minioClient) BucketExists(ctx context.Context, bucket string) (bool, error) {
	exists, err := m.core.BucketExists(ctx, bucket)
	if err != nil {
		return false, mapMinioErr(err)
	}
	return exists, nil
}

func mapMinioErr(err error) error {
	if err == nil {
		return nil
	}
	var response minio.ErrorResponse
	if errors.As(err, &response) {
		return &responseError{Code: response.Code, Message: response.Message, StatusCode: response.StatusCode}
	}
	return err
}
