package s3

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/ekaya-inc/ekaya-lake/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-lake/pkg/adapters/datasource/flatfile"
	"github.com/ekaya-inc/ekaya-lake/pkg/apperrors"
)

// Config contains S3-specific connection options.
type Config struct {
	Bucket          string
	PathPrefix      string
	Region          string
	Endpoint        string // host[:port], never a URL
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
	UseSSL          bool
	URLStyle        string // "path" or "vhost"
	DefaultSchema   string
	// CredentialChain defers to the AWS environment/profile/instance chain.
	CredentialChain bool
}

// DefaultRegion returns the region used when none is configured.
func DefaultRegion() string {
	return "us-east-1"
}

// DefaultEndpoint returns the AWS S3 endpoint.
func DefaultEndpoint() string {
	return "s3.amazonaws.com"
}

// IsCustomEndpoint reports whether the endpoint points at a non-AWS store.
func (c *Config) IsCustomEndpoint() bool {
	return c.Endpoint != DefaultEndpoint() && !strings.HasSuffix(c.Endpoint, ".amazonaws.com")
}

// FromParams creates a Config from backend-neutral connection parameters.
//
// The endpoint is taken from options.endpoint, else host[:port], else AWS.
// Access keys come from username/password. Custom endpoints default to
// path-style addressing, which MinIO and most S3 clones require.
func FromParams(p *datasource.ConnectionParams) (*Config, error) {
	if p == nil {
		return nil, apperrors.Configuration("s3 connection parameters are required")
	}

	cfg := &Config{
		Bucket:          p.Option(datasource.OptionBucket),
		PathPrefix:      flatfile.NormalizePrefix(p.Option(datasource.OptionPathPrefix)),
		Region:          p.Option(datasource.OptionRegion),
		AccessKeyID:     strings.TrimSpace(p.Username),
		SecretAccessKey: p.Password,
		SessionToken:    p.Option(datasource.OptionSessionToken),
		UseSSL:          p.SSL,
		URLStyle:        strings.ToLower(p.Option(datasource.OptionURLStyle)),
		DefaultSchema:   p.Option(datasource.OptionDefaultSchema),
	}
	if cfg.Region == "" {
		cfg.Region = DefaultRegion()
	}

	endpoint := p.Option(datasource.OptionEndpoint)
	if endpoint == "" && p.Host != "" {
		endpoint = p.Host
		if p.Port > 0 {
			endpoint += ":" + strconv.Itoa(p.Port)
		}
	}
	if endpoint == "" {
		endpoint = DefaultEndpoint()
	}
	host, secure, err := parseEndpoint(endpoint, cfg.UseSSL)
	if err != nil {
		return nil, err
	}
	cfg.Endpoint = host
	cfg.UseSSL = secure

	switch cfg.URLStyle {
	case "":
		if cfg.IsCustomEndpoint() {
			cfg.URLStyle = "path"
		}
	case "path", "vhost":
	default:
		return nil, apperrors.Configuration("invalid url_style %q: expected path or vhost", cfg.URLStyle)
	}

	switch strings.ToLower(p.Option(datasource.OptionAuthMethod)) {
	case "", "access_key", "static":
	case "credential_chain":
		cfg.CredentialChain = true
		cfg.AccessKeyID, cfg.SecretAccessKey, cfg.SessionToken = "", "", ""
	default:
		return nil, apperrors.Configuration("unsupported s3 auth_method %q", p.Option(datasource.OptionAuthMethod))
	}

	if !cfg.CredentialChain && (cfg.AccessKeyID == "") != (cfg.SecretAccessKey == "") {
		return nil, apperrors.Configuration("s3 access key id and secret access key must be provided together")
	}
	if cfg.AccessKeyID == "" {
		cfg.CredentialChain = true
	}
	return cfg, nil
}

// parseEndpoint accepts host[:port] or an http(s) URL. The URL scheme, when
// present, decides TLS.
func parseEndpoint(raw string, useSSL bool) (string, bool, error) {
	raw = strings.TrimSpace(raw)
	if !strings.HasPrefix(raw, "http://") && !strings.HasPrefix(raw, "https://") {
		return strings.TrimSuffix(raw, "/"), useSSL, nil
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return "", false, apperrors.Configuration("invalid s3 endpoint %q: %v", raw, err)
	}
	if parsed.Host == "" {
		return "", false, apperrors.Configuration("s3 endpoint %q has no host", raw)
	}
	return parsed.Host, parsed.Scheme == "https", nil
}
