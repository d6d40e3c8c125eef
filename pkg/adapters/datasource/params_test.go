package datasource

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParamsFromMap(t *testing.T) {
	params, err := ParamsFromMap(map[string]any{
		"host":        "minio.local",
		"port":        float64(9000),
		"user":        "AKIA",
		"password":    "secret",
		"ssl":         "false",
		"bucket":      "top-level",
		"path_prefix": "raw",
		"options": map[string]any{
			"bucket": "lake",
			"region": "eu-west-1",
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "minio.local", params.Host)
	assert.Equal(t, 9000, params.Port)
	assert.Equal(t, "AKIA", params.Username)
	assert.Equal(t, "secret", params.Password)
	assert.False(t, params.SSL)
	assert.Equal(t, "lake", params.Option(OptionBucket), "nested options win")
	assert.Equal(t, "raw", params.Option(OptionPathPrefix))
	assert.Equal(t, "eu-west-1", params.Option(OptionRegion))
	assert.Equal(t, "", params.Option(OptionContainer))
}

func TestParamsFromMap_Defaults(t *testing.T) {
	params, err := ParamsFromMap(map[string]any{"username": "acct", "port": 443})
	require.NoError(t, err)

	assert.True(t, params.SSL)
	assert.Equal(t, 443, params.Port)
	assert.Equal(t, "acct", params.Username)
	assert.NotNil(t, params.Options)
}

func TestParamsFromMap_InvalidValues(t *testing.T) {
	_, err := ParamsFromMap(map[string]any{"port": "nine"})
	assert.Error(t, err)

	_, err = ParamsFromMap(map[string]any{"ssl": []string{"yes"}})
	assert.Error(t, err)
}

func TestClampLimit(t *testing.T) {
	assert.Equal(t, DefaultSampleLimit, ClampLimit(0, DefaultSampleLimit))
	assert.Equal(t, MaxQueryLimit, ClampLimit(-5, MaxQueryLimit))
	assert.Equal(t, 25, ClampLimit(25, DefaultSampleLimit))
	assert.Equal(t, MaxQueryLimit, ClampLimit(50000, DefaultSampleLimit))
}

func TestNewColumnValueOverlapResult(t *testing.T) {
	res := NewColumnValueOverlapResult(10, 4, 2, 7, 3)
	assert.InDelta(t, 0.75, res.OverlapRatio, 1e-9)
	assert.InDelta(t, 0.2, res.NullRatio, 1e-9)

	empty := NewColumnValueOverlapResult(0, 0, 0, 0, 0)
	assert.Equal(t, 0.0, empty.OverlapRatio)
	assert.Equal(t, 0.0, empty.NullRatio)
}
