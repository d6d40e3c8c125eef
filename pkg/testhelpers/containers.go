// Package testhelpers provides object-storage containers and Parquet
// fixtures for ekaya-lake integration tests.
package testhelpers

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	MinIOImage    = "minio/minio:RELEASE.2024-11-07T00-52-20Z"
	AzuriteImage  = "mcr.microsoft.com/azure-storage/azurite:3.33.0"
	minioUser     = "minioadmin"
	minioPassword = "minioadmin"

	// AzuriteAccountName and AzuriteAccountKey are the emulator's published
	// development credentials.
	AzuriteAccountName = "devstoreaccount1"
	AzuriteAccountKey  = "Eby8vdM02xNOcqFlqUwJPLlmEtlCDXJ1OUzFT50uSRZ6IFsuFq2UVErCz4I6tq/K1SZFPTOtr/KBHBeksoGMGw=="
)

// MinIOServer is a shared S3-compatible server.
type MinIOServer struct {
	Container testcontainers.Container
	Endpoint  string // host:port
	AccessKey string
	SecretKey string
	client    *minio.Client
}

// AzuriteServer is a shared Azure Blob emulator.
type AzuriteServer struct {
	Container   testcontainers.Container
	AccountURL  string // http://host:port/devstoreaccount1
	AccountName string
	AccountKey  string
	client      *azblob.Client
}

var (
	sharedMinIO     *MinIOServer
	sharedMinIOOnce sync.Once
	sharedMinIOErr  error

	sharedAzurite     *AzuriteServer
	sharedAzuriteOnce sync.Once
	sharedAzuriteErr  error
)

// GetMinIO returns a MinIO container shared by every test in the run.
func GetMinIO(t *testing.T) *MinIOServer {
	t.Helper()

	if testing.Short() {
		t.Skip("Skipping integration test in short mode (requires Docker)")
	}

	sharedMinIOOnce.Do(func() {
		sharedMinIO, sharedMinIOErr = setupMinIO()
	})
	if sharedMinIOErr != nil {
		t.Fatalf("Failed to setup MinIO: %v", sharedMinIOErr)
	}
	return sharedMinIO
}

func setupMinIO() (*MinIOServer, error) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        MinIOImage,
		ExposedPorts: []string{"9000/tcp"},
		Env: map[string]string{
			"MINIO_ROOT_USER":     minioUser,
			"MINIO_ROOT_PASSWORD": minioPassword,
		},
		Cmd: []string{"server", "/data"},
		WaitingFor: wait.ForHTTP("/minio/health/live").WithPort("9000/tcp").
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start minio container: %w", err)
	}

	endpoint, err := container.PortEndpoint(ctx, "9000/tcp", "")
	if err != nil {
		return nil, fmt.Errorf("failed to get minio endpoint: %w", err)
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(minioUser, minioPassword, ""),
		Secure: false,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	return &MinIOServer{
		Container: container,
		Endpoint:  endpoint,
		AccessKey: minioUser,
		SecretKey: minioPassword,
		client:    client,
	}, nil
}

// CreateBucket creates bucket if it does not exist yet.
func (m *MinIOServer) CreateBucket(t *testing.T, bucket string) {
	t.Helper()
	ctx := context.Background()

	exists, err := m.client.BucketExists(ctx, bucket)
	if err != nil {
		t.Fatalf("failed to check bucket %s: %v", bucket, err)
	}
	if exists {
		return
	}
	if err := m.client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
		t.Fatalf("failed to create bucket %s: %v", bucket, err)
	}
}

// PutObject uploads data under key.
func (m *MinIOServer) PutObject(t *testing.T, bucket, key string, data []byte) {
	t.Helper()
	_, err := m.client.PutObject(context.Background(), bucket, key, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: "application/octet-stream"})
	if err != nil {
		t.Fatalf("failed to put %s/%s: %v", bucket, key, err)
	}
}

// DatasourceConfig returns a datasource config map for bucket.
func (m *MinIOServer) DatasourceConfig(bucket string) map[string]any {
	return map[string]any{
		"endpoint": "http://" + m.Endpoint,
		"user":     m.AccessKey,
		"password": m.SecretKey,
		"options":  map[string]any{"bucket": bucket},
	}
}

// GetAzurite returns an Azurite blob emulator shared by every test in the run.
func GetAzurite(t *testing.T) *AzuriteServer {
	t.Helper()

	if testing.Short() {
		t.Skip("Skipping integration test in short mode (requires Docker)")
	}

	sharedAzuriteOnce.Do(func() {
		sharedAzurite, sharedAzuriteErr = setupAzurite()
	})
	if sharedAzuriteErr != nil {
		t.Fatalf("Failed to setup Azurite: %v", sharedAzuriteErr)
	}
	return sharedAzurite
}

func setupAzurite() (*AzuriteServer, error) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        AzuriteImage,
		ExposedPorts: []string{"10000/tcp"},
		Cmd:          []string{"azurite-blob", "--blobHost", "0.0.0.0", "--blobPort", "10000", "--skipApiVersionCheck"},
		WaitingFor: wait.ForListeningPort("10000/tcp").
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start azurite container: %w", err)
	}

	endpoint, err := container.PortEndpoint(ctx, "10000/tcp", "http")
	if err != nil {
		return nil, fmt.Errorf("failed to get azurite endpoint: %w", err)
	}
	accountURL := endpoint + "/" + AzuriteAccountName

	cred, err := azblob.NewSharedKeyCredential(AzuriteAccountName, AzuriteAccountKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create azurite credential: %w", err)
	}
	client, err := azblob.NewClientWithSharedKeyCredential(accountURL, cred, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create azurite client: %w", err)
	}

	return &AzuriteServer{
		Container:   container,
		AccountURL:  accountURL,
		AccountName: AzuriteAccountName,
		AccountKey:  AzuriteAccountKey,
		client:      client,
	}, nil
}

// CreateContainer creates container if it does not exist yet.
func (a *AzuriteServer) CreateContainer(t *testing.T, container string) {
	t.Helper()
	_, err := a.client.CreateContainer(context.Background(), container, nil)
	if err != nil && !bloberror.HasCode(err, bloberror.ContainerAlreadyExists) {
		t.Fatalf("failed to create container %s: %v", container, err)
	}
}

// UploadBlob uploads data under name.
func (a *AzuriteServer) UploadBlob(t *testing.T, container, name string, data []byte) {
	t.Helper()
	if _, err := a.client.UploadBuffer(context.Background(), container, name, data, nil); err != nil {
		t.Fatalf("failed to upload %s/%s: %v", container, name, err)
	}
}

// DatasourceConfig returns a datasource config map for container.
func (a *AzuriteServer) DatasourceConfig(container string) map[string]any {
	return map[string]any{
		"options": map[string]any{
			"account_name": a.AccountName,
			"account_key":  a.AccountKey,
			"account_url":  a.AccountURL,
			"container":    container,
		},
	}
}
