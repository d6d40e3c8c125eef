package s3

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ekaya-inc/ekaya-lake/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-lake/pkg/apperrors"
)

func mustParams(t *testing.T, m map[string]any) *datasource.ConnectionParams {
	t.Helper()
	p, err := datasource.ParamsFromMap(m)
	require.NoError(t, err)
	return p
}

func TestFromParams(t *testing.T) {
	tests := []struct {
		name     string
		config   map[string]any
		expected Config
	}{
		{
			name: "aws defaults",
			config: map[string]any{
				"user": "AKIAEXAMPLE", "password": "secret",
				"options": map[string]any{"bucket": "lake"},
			},
			expected: Config{
				Bucket: "lake", Region: "us-east-1", Endpoint: "s3.amazonaws.com",
				AccessKeyID: "AKIAEXAMPLE", SecretAccessKey: "secret", UseSSL: true,
			},
		},
		{
			name: "minio from host and port",
			config: map[string]any{
				"host": "localhost", "port": float64(9000), "ssl": false,
				"user": "minio", "password": "minio123",
				"bucket": "lake", "path_prefix": "/raw/",
			},
			expected: Config{
				Bucket: "lake", PathPrefix: "raw", Region: "us-east-1", Endpoint: "localhost:9000",
				AccessKeyID: "minio", SecretAccessKey: "minio123", URLStyle: "path",
			},
		},
		{
			name: "endpoint url decides tls",
			config: map[string]any{
				"ssl": false,
				"options": map[string]any{
					"endpoint": "https://abc.r2.cloudflarestorage.com", "region": "auto",
					"url_style": "vhost", "default_schema": "sales",
				},
			},
			expected: Config{
				Region: "auto", Endpoint: "abc.r2.cloudflarestorage.com", UseSSL: true,
				URLStyle: "vhost", DefaultSchema: "sales", CredentialChain: true,
			},
		},
		{
			name: "credential chain drops keys",
			config: map[string]any{
				"user": "AKIAEXAMPLE", "password": "secret",
				"options": map[string]any{"auth_method": "credential_chain", "session_token": "tok"},
			},
			expected: Config{
				Region: "us-east-1", Endpoint: "s3.amazonaws.com", UseSSL: true, CredentialChain: true,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := FromParams(mustParams(t, tt.config))
			require.NoError(t, err)
			assert.Equal(t, tt.expected, *cfg)
		})
	}
}

func TestFromParams_Errors(t *testing.T) {
	tests := []struct {
		name   string
		config map[string]any
	}{
		{name: "key without secret", config: map[string]any{"user": "AKIAEXAMPLE"}},
		{name: "bad url style", config: map[string]any{"url_style": "virtual"}},
		{name: "bad auth method", config: map[string]any{"auth_method": "kerberos"}},
		{name: "endpoint without host", config: map[string]any{"endpoint": "https://"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromParams(mustParams(t, tt.config))
			require.Error(t, err)
			assert.True(t, apperrors.IsConfiguration(err))
		})
	}

	_, err := FromParams(nil)
	assert.True(t, apperrors.IsConfiguration(err))
}

func TestConfig_IsCustomEndpoint(t *testing.T) {
	assert.False(t, (&Config{Endpoint: "s3.amazonaws.com"}).IsCustomEndpoint())
	assert.False(t, (&Config{Endpoint: "s3.eu-west-1.amazonaws.com"}).IsCustomEndpoint())
	assert.True(t, (&Config{Endpoint: "localhost:9000"}).IsCustomEndpoint())
}
