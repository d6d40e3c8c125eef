package duckdb

import (
	"fmt"
	"strings"

	"github.com/ekaya-inc/ekaya-lake/pkg/apperrors"
)

// StorageType discriminates the credential bag carried by a SessionConfig.
type StorageType string

const (
	StorageS3    StorageType = "s3"
	StorageAzure StorageType = "azure"
	// StorageLocal reads local paths and needs no extension or secret.
	StorageLocal StorageType = "local"
)

// SessionConfig tells a new session how to reach object storage.
// Exactly one of S3 and Azure is set, matching Type.
type SessionConfig struct {
	Type  StorageType
	S3    *S3Credentials
	Azure *AzureCredentials
}

// S3Credentials configures the httpfs extension. Without an access key the
// session falls back to the AWS credential chain.
type S3Credentials struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
	// Endpoint is host[:port] of a non-AWS S3 implementation.
	Endpoint string
	// URLStyle is "path" or "vhost"; empty lets the engine decide.
	URLStyle string
	UseSSL   bool
}

// AzureCredentials configures the azure extension. Either AccountKey or
// SASToken is used; UseCredentialChain delegates to the Azure identity chain.
type AzureCredentials struct {
	AccountName        string
	AccountURL         string
	AccountKey         string
	SASToken           string
	UseCredentialChain bool
}

// EngineOptions are process-wide engine settings applied to every session.
type EngineOptions struct {
	ExtensionDirectory string
	MemoryLimit        string
	Threads            int
	// AllowInstall downloads missing extensions. When false extensions must
	// already be present in ExtensionDirectory.
	AllowInstall bool
}

const secretName = "lake_storage"

// Validate checks the discriminated union is consistent.
func (c SessionConfig) Validate() error {
	switch c.Type {
	case StorageLocal:
		return nil
	case StorageS3:
		if c.S3 == nil {
			return apperrors.Configuration("s3 session requires s3 credentials")
		}
		if (c.S3.AccessKeyID == "") != (c.S3.SecretAccessKey == "") {
			return apperrors.Configuration("s3 access key id and secret access key must be provided together")
		}
		return nil
	case StorageAzure:
		if c.Azure == nil {
			return apperrors.Configuration("azure session requires azure credentials")
		}
		if c.Azure.AccountName == "" && c.Azure.AccountURL == "" {
			return apperrors.Configuration("azure account name is required")
		}
		return nil
	default:
		return apperrors.Configuration("unknown storage type %q", c.Type)
	}
}

// Statements returns the SQL that prepares a session for this storage:
// engine settings, extension install/load and one secret.
func (c SessionConfig) Statements(opts EngineOptions) ([]string, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	stmts := opts.statements()

	switch c.Type {
	case StorageS3:
		stmts = append(stmts, extensionStatements("httpfs", opts.AllowInstall)...)
		stmts = append(stmts, c.S3.secret())
	case StorageAzure:
		stmts = append(stmts, extensionStatements("azure", opts.AllowInstall)...)
		stmts = append(stmts, c.Azure.secret())
	}
	return stmts, nil
}

func (o EngineOptions) statements() []string {
	var stmts []string
	if o.ExtensionDirectory != "" {
		stmts = append(stmts, fmt.Sprintf("SET extension_directory = %s", QuoteString(o.ExtensionDirectory)))
	}
	if o.MemoryLimit != "" {
		stmts = append(stmts, fmt.Sprintf("SET memory_limit = %s", QuoteString(o.MemoryLimit)))
	}
	if o.Threads > 0 {
		stmts = append(stmts, fmt.Sprintf("SET threads = %d", o.Threads))
	}
	return stmts
}

func extensionStatements(name string, install bool) []string {
	if install {
		return []string{"INSTALL " + name, "LOAD " + name}
	}
	return []string{"LOAD " + name}
}

func (s *S3Credentials) secret() string {
	parts := []string{"TYPE s3"}
	if s.AccessKeyID != "" {
		parts = append(parts,
			"KEY_ID "+QuoteString(s.AccessKeyID),
			"SECRET "+QuoteString(s.SecretAccessKey),
		)
		if s.SessionToken != "" {
			parts = append(parts, "SESSION_TOKEN "+QuoteString(s.SessionToken))
		}
	} else {
		parts = append(parts, "PROVIDER credential_chain")
	}
	if s.Region != "" {
		parts = append(parts, "REGION "+QuoteString(s.Region))
	}
	if s.Endpoint != "" {
		parts = append(parts, "ENDPOINT "+QuoteString(s.Endpoint))
		parts = append(parts, fmt.Sprintf("USE_SSL %t", s.UseSSL))
	}
	if s.URLStyle != "" {
		parts = append(parts, "URL_STYLE "+QuoteString(s.URLStyle))
	}
	return fmt.Sprintf("CREATE OR REPLACE SECRET %s (%s)", secretName, strings.Join(parts, ", "))
}

func (a *AzureCredentials) secret() string {
	if a.UseCredentialChain || (a.AccountKey == "" && a.SASToken == "") {
		parts := []string{"TYPE azure", "PROVIDER credential_chain"}
		if a.AccountName != "" {
			parts = append(parts, "ACCOUNT_NAME "+QuoteString(a.AccountName))
		}
		return fmt.Sprintf("CREATE OR REPLACE SECRET %s (%s)", secretName, strings.Join(parts, ", "))
	}
	return fmt.Sprintf("CREATE OR REPLACE SECRET %s (TYPE azure, CONNECTION_STRING %s)",
		secretName, QuoteString(a.ConnectionString()))
}

// ConnectionString renders the Azure storage connection string for key or SAS auth.
func (a *AzureCredentials) ConnectionString() string {
	endpoint := a.AccountURL
	if endpoint == "" {
		endpoint = fmt.Sprintf("https://%s.blob.core.windows.net", a.AccountName)
	}
	endpoint = strings.TrimRight(endpoint, "/")

	if a.AccountKey != "" {
		parts := []string{"DefaultEndpointsProtocol=https"}
		if a.AccountName != "" {
			parts = append(parts, "AccountName="+a.AccountName)
		}
		parts = append(parts, "AccountKey="+a.AccountKey, "BlobEndpoint="+endpoint)
		return strings.Join(parts, ";")
	}
	return "BlobEndpoint=" + endpoint + ";SharedAccessSignature=" + strings.TrimPrefix(a.SASToken, "?")
}
