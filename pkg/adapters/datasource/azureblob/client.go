package azureblob

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/container"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/service"
)

// listResult is one listing page reduced to names.
type listResult struct {
	Prefixes  []string
	Names     []string
	NextToken string
}

type client interface {
	ListContainers(ctx context.Context, marker string) (names []string, next string, err error)
	ListHierarchy(ctx context.Context, containerName, prefix, marker string) (listResult, error)
	ListFlat(ctx context.Context, containerName, prefix string, maxResults int) ([]string, error)
	ContainerProperties(ctx context.Context, containerName string) error
	AccountProperties(ctx context.Context) error
}

// responseError keeps the storage error code, message and status of a failed call.
type responseError struct {
	Code       string
	Message    string
	StatusCode int
	Err        error
}

func (e *responseError) Error() string {
	switch {
	case e.Message == "":
		return fmt.Sprintf("%s (HTTP %d)", e.Code, e.StatusCode)
	case e.Code == "":
		return fmt.Sprintf("%s (HTTP %d)", e.Message, e.StatusCode)
	}
	return fmt.Sprintf("%s: %s (HTTP %d)", e.Code, e.Message, e.StatusCode)
}

func (e *responseError) Unwrap() error { return e.Err }

func (e *responseError) IsRetryable() bool {
	switch bloberror.Code(e.Code) {
	case bloberror.ServerBusy, bloberror.InternalError, bloberror.OperationTimedOut:
		return true
	}
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= http.StatusInternalServerError
}

type sdkClient struct {
	service *service.Client
}

func newSDKClient(cfg *Config) (*sdkClient, error) {
	var (
		c   *azblob.Client
		err error
	)
	switch cfg.AuthMethod {
	case AuthSharedKey:
		cred, credErr := azblob.NewSharedKeyCredential(cfg.AccountName, cfg.AccountKey)
		if credErr != nil {
			return nil, fmt.Errorf("create shared key credential: %w", credErr)
		}
		c, err = azblob.NewClientWithSharedKeyCredential(cfg.AccountURL+"/", cred, nil)
	case AuthSAS:
		c, err = azblob.NewClientWithNoCredential(cfg.AccountURL+"/?"+cfg.SASToken, nil)
	default:
		cred, credErr := azidentity.NewDefaultAzureCredential(nil)
		if credErr != nil {
			return nil, fmt.Errorf("create azure credential chain: %w", credErr)
		}
		c, err = azblob.NewClient(cfg.AccountURL+"/", cred, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("create azure blob client: %w", err)
	}
	return &sdkClient{service: c.ServiceClient()}, nil
}

func (s *sdkClient) ListContainers(ctx context.Context, marker string) ([]string, string, error) {
	opts := &service.ListContainersOptions{}
	if marker != "" {
		opts.Marker = to.Ptr(marker)
	}
	resp, err := s.service.NewListContainersPager(opts).NextPage(ctx)
	if err != nil {
		return nil, "", mapAzureErr(err)
	}

	names := make([]string, 0, len(resp.ContainerItems))
	for _, item := range resp.ContainerItems {
		if item != nil && item.Name != nil {
			names = append(names, *item.Name)
		}
	}
	return names, deref(resp.NextMarker), nil
}

func (s *sdkClient) ListHierarchy(ctx context.Context, containerName, prefix, marker string) (listResult, error) {
	opts := &container.ListBlobsHierarchyOptions{Prefix: to.Ptr(prefix)}
	if marker != "" {
		opts.Marker = to.Ptr(marker)
	}
	resp, err := s.service.NewContainerClient(containerName).NewListBlobsHierarchyPager("/", opts).NextPage(ctx)
	if err != nil {
		return listResult{}, mapAzureErr(err)
	}

	var out listResult
	if resp.Segment != nil {
		for _, p := range resp.Segment.BlobPrefixes {
			if p != nil && p.Name != nil {
				out.Prefixes = append(out.Prefixes, *p.Name)
			}
		}
		for _, b := range resp.Segment.BlobItems {
			if b != nil && b.Name != nil {
				out.Names = append(out.Names, *b.Name)
			}
		}
	}
	out.NextToken = deref(resp.NextMarker)
	return out, nil
}

func (s *sdkClient) ListFlat(ctx context.Context, containerName, prefix string, maxResults int) ([]string, error) {
	opts := &container.ListBlobsFlatOptions{Prefix: to.Ptr(prefix)}
	if maxResults > 0 {
		opts.MaxResults = to.Ptr(int32(maxResults))
	}
	resp, err := s.service.NewContainerClient(containerName).NewListBlobsFlatPager(opts).NextPage(ctx)
	if err != nil {
		return nil, mapAzureErr(err)
	}

	var names []string
	if resp.Segment != nil {
		for _, b := range resp.Segment.BlobItems {
			if b != nil && b.Name != nil {
				names = append(names, *b.Name)
			}
		}
	}
	return names, nil
}

func (s *sdkClient) ContainerProperties(ctx context.Context, containerName string) error {
	_, err := s.service.NewContainerClient(containerName).GetProperties(ctx, nil)
	return mapAzureErr(err)
}

func (s *sdkClient) AccountProperties(ctx context.Context) error {
	_, err := s.service.GetProperties(ctx, nil)
	return mapAzureErr(err)
}

func mapAzureErr(err error) error {
	if err == nil {
		return nil
	}
	var respErr *azcore.ResponseError
	if errors.As(err, &respErr) {
		return &responseError{
			Code:       respErr.ErrorCode,
			Message:    serviceMessage(respErr),
			StatusCode: respErr.StatusCode,
			Err:        err,
		}
	}
	return err
}

var (
	xmlMessage  = regexp.MustCompile(`(?s)<Message>(.*?)</Message>`)
	jsonMessage = regexp.MustCompile(`"message"\s*:\s*"((?:[^"\\]|\\.)*)"`)
)

// serviceMessage extracts the service's own message from the error body. The
// RequestId and Time lines Azure appends to it are dropped.
func serviceMessage(respErr *azcore.ResponseError) string {
	text := respErr.Error()
	var msg string
	if m := xmlMessage.FindStringSubmatch(text); m != nil {
		msg = m[1]
	} else if m := jsonMessage.FindStringSubmatch(text); m != nil {
		msg = m[1]
	}
	msg, _, _ = strings.Cut(strings.TrimSpace(msg), "\n")
	return strings.TrimSpace(msg)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
