package azureblob

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ekaya-inc/ekaya-lake/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-lake/pkg/adapters/datasource/flatfile"
	"github.com/ekaya-inc/ekaya-lake/pkg/apperrors"
)

// Authentication methods.
const (
	AuthSharedKey       = "shared_key"
	AuthSAS             = "sas"
	AuthCredentialChain = "credential_chain"
)

// Config contains Azure Blob Storage connection options.
type Config struct {
	AccountName   string
	AccountURL    string
	Container     string
	PathPrefix    string
	AuthMethod    string
	AccountKey    string
	SASToken      string // without the leading "?"
	DefaultSchema string
}

// DefaultAccountURL returns the public-cloud blob endpoint of an account.
func DefaultAccountURL(accountName string) string {
	return fmt.Sprintf("https://%s.blob.core.windows.net", accountName)
}

// FromParams creates a Config from backend-neutral connection parameters.
// Username/Password stand in for account_name/account_key. Without an
// explicit auth_method the first available of key, SAS and the Azure
// credential chain is used.
func FromParams(p *datasource.ConnectionParams) (*Config, error) {
	if p == nil {
		return nil, apperrors.Configuration("azure connection parameters are required")
	}

	cfg := &Config{
		AccountName:   p.Option(datasource.OptionAccountName),
		AccountURL:    strings.TrimSuffix(p.Option(datasource.OptionAccountURL), "/"),
		Container:     p.Option(datasource.OptionContainer),
		PathPrefix:    flatfile.NormalizePrefix(p.Option(datasource.OptionPathPrefix)),
		AuthMethod:    strings.ToLower(p.Option(datasource.OptionAuthMethod)),
		AccountKey:    p.Option(datasource.OptionAccountKey),
		SASToken:      strings.TrimPrefix(p.Option(datasource.OptionSASToken), "?"),
		DefaultSchema: p.Option(datasource.OptionDefaultSchema),
	}
	if cfg.AccountName == "" {
		cfg.AccountName = strings.TrimSpace(p.Username)
	}
	if cfg.AccountKey == "" {
		cfg.AccountKey = p.Password
	}
	if cfg.Container == "" {
		cfg.Container = p.Option(datasource.OptionBucket)
	}

	if cfg.AccountName == "" {
		return nil, apperrors.Configuration("azure account name is required")
	}

	if cfg.AccountURL == "" {
		cfg.AccountURL = strings.TrimSuffix(p.Option(datasource.OptionEndpoint), "/")
	}
	if cfg.AccountURL == "" && p.Host != "" {
		scheme := "https"
		if !p.SSL {
			scheme = "http"
		}
		host := p.Host
		if p.Port > 0 {
			host += ":" + strconv.Itoa(p.Port)
		}
		// Emulators address accounts by path rather than subdomain.
		cfg.AccountURL = fmt.Sprintf("%s://%s/%s", scheme, host, cfg.AccountName)
	}
	if cfg.AccountURL == "" {
		cfg.AccountURL = DefaultAccountURL(cfg.AccountName)
	}

	if cfg.AuthMethod == "" {
		switch {
		case cfg.AccountKey != "":
			cfg.AuthMethod = AuthSharedKey
		case cfg.SASToken != "":
			cfg.AuthMethod = AuthSAS
		default:
			cfg.AuthMethod = AuthCredentialChain
		}
	}

	switch cfg.AuthMethod {
	case AuthSharedKey:
		if cfg.AccountKey == "" {
			return nil, apperrors.Configuration("azure shared_key authentication requires an account key")
		}
		cfg.SASToken = ""
	case AuthSAS:
		if cfg.SASToken == "" {
			return nil, apperrors.Configuration("azure sas authentication requires a sas_token")
		}
		cfg.AccountKey = ""
	case AuthCredentialChain:
		cfg.AccountKey, cfg.SASToken = "", ""
	default:
		return nil, apperrors.Configuration("unsupported azure auth_method %q", cfg.AuthMethod)
	}
	return cfg, nil
}
