package azureblob

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ekaya-inc/ekaya-lake/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-lake/pkg/apperrors"
)

func TestFromParams(t *testing.T) {
	tests := []struct {
		name     string
		config   map[string]any
		expected Config
	}{
		{
			name: "shared key from username and password",
			config: map[string]any{
				"user": "lakeacct", "password": "a2V5",
				"options": map[string]any{"container": "lake", "path_prefix": "raw/"},
			},
			expected: Config{
				AccountName: "lakeacct", AccountURL: "https://lakeacct.blob.core.windows.net",
				Container: "lake", PathPrefix: "raw", AuthMethod: AuthSharedKey, AccountKey: "a2V5",
			},
		},
		{
			name: "sas token strips question mark",
			config: map[string]any{
				"account_name": "lakeacct", "sas_token": "?sv=2022-11-02&sig=abc",
			},
			expected: Config{
				AccountName: "lakeacct", AccountURL: "https://lakeacct.blob.core.windows.net",
				AuthMethod: AuthSAS, SASToken: "sv=2022-11-02&sig=abc",
			},
		},
		{
			name: "credential chain by default",
			config: map[string]any{
				"options": map[string]any{"account_name": "lakeacct", "bucket": "lake", "default_schema": "sales"},
			},
			expected: Config{
				AccountName: "lakeacct", AccountURL: "https://lakeacct.blob.core.windows.net",
				Container: "lake", AuthMethod: AuthCredentialChain, DefaultSchema: "sales",
			},
		},
		{
			name: "emulator host is path addressed",
			config: map[string]any{
				"host": "127.0.0.1", "port": 10000, "ssl": false,
				"user": "devstoreaccount1", "password": "key",
			},
			expected: Config{
				AccountName: "devstoreaccount1", AccountURL: "http://127.0.0.1:10000/devstoreaccount1",
				AuthMethod: AuthSharedKey, AccountKey: "key",
			},
		},
		{
			name: "explicit account url and chain drop secrets",
			config: map[string]any{
				"user": "lakeacct", "password": "key",
				"account_url": "https://lakeacct.blob.core.usgovcloudapi.net/", "auth_method": "credential_chain",
			},
			expected: Config{
				AccountName: "lakeacct", AccountURL: "https://lakeacct.blob.core.usgovcloudapi.net",
				AuthMethod: AuthCredentialChain,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := datasource.ParamsFromMap(tt.config)
			require.NoError(t, err)
			cfg, err := FromParams(p)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, *cfg)
		})
	}
}

func TestFromParams_Errors(t *testing.T) {
	tests := []struct {
		name    string
		config  map[string]any
		message string
	}{
		{name: "missing account name", config: map[string]any{"container": "lake"}, message: "account name is required"},
		{name: "shared key without key", config: map[string]any{"account_name": "a", "auth_method": "shared_key"}, message: "account key"},
		{name: "sas without token", config: map[string]any{"account_name": "a", "auth_method": "sas"}, message: "sas_token"},
		{name: "unknown method", config: map[string]any{"account_name": "a", "auth_method": "oauth"}, message: "unsupported"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := datasource.ParamsFromMap(tt.config)
			require.NoError(t, err)
			_, err = FromParams(p)
			require.Error(t, err)
			assert.True(t, apperrors.IsConfiguration(err))
			assert.Contains(t, err.Error(), tt.message)
		})
	}
}
