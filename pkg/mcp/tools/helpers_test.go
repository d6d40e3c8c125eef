package tools

import (
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ekaya-inc/ekaya-lake/pkg/adapters/datasource"
)

func requestWith(args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	return req
}

func TestTrimString(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"empty string", "", ""},
		{"whitespace only", "   ", ""},
		{"both sides whitespace", "  test  ", "test"},
		{"mixed whitespace", " \t\ntest\n\t ", "test"},
		{"no whitespace", "test", "test"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, trimString(tt.input))
		})
	}
}

func TestOptionalArguments(t *testing.T) {
	req := requestWith(map[string]any{"schema": " sales ", "limit": float64(25), "flag": true})

	assert.Equal(t, "sales", getOptionalString(req, "schema"))
	assert.Equal(t, "", getOptionalString(req, "missing"))
	assert.Equal(t, "", getOptionalString(req, "flag"))
	assert.Equal(t, 25, getOptionalInt(req, "limit"))
	assert.Equal(t, 0, getOptionalInt(req, "schema"))

	assert.Equal(t, "", getOptionalString(mcp.CallToolRequest{}, "schema"))
}

func TestGetManifest(t *testing.T) {
	t.Run("absent", func(t *testing.T) {
		manifest, err := getManifest(requestWith(map[string]any{}), "manifest")
		require.NoError(t, err)
		assert.Nil(t, manifest)
	})

	t.Run("object", func(t *testing.T) {
		manifest, err := getManifest(requestWith(map[string]any{
			"manifest": map[string]any{
				"orders": map[string]any{"uri": "s3://lake/sales/orders.parquet"},
				"events": map[string]any{"uri": "s3://lake/sales/events/**/*.parquet", "partitioned": true},
			},
		}), "manifest")
		require.NoError(t, err)
		assert.Equal(t, datasource.TableManifest{
			"orders": {URI: "s3://lake/sales/orders.parquet"},
			"events": {URI: "s3://lake/sales/events/**/*.parquet", Partitioned: true},
		}, manifest)
	})

	t.Run("wrong shape", func(t *testing.T) {
		_, err := getManifest(requestWith(map[string]any{"manifest": []any{"orders"}}), "manifest")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid manifest")
	})
}
