package datasource

import "strings"

// Backend type discriminators.
const (
	TypeS3        = "s3"
	TypeAzureBlob = "azure_blob"
)

var typeAliases = map[string]string{
	"s3":         TypeS3,
	"minio":      TypeS3,
	"azure_blob": TypeAzureBlob,
	"azure":      TypeAzureBlob,
	"azblob":     TypeAzureBlob,
}

// Native-catalog backends are handled by a different driver family.
var nativeCatalogTypes = map[string]bool{
	"postgres":  true,
	"mssql":     true,
	"sqlserver": true,
	"mysql":     true,
	"snowflake": true,
}

// DatasourceAdapterInfo describes a supported backend for discovery UIs and the CLI.
type DatasourceAdapterInfo struct {
	Type        string `json:"type"`
	DisplayName string `json:"display_name"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
	URIScheme   string `json:"uri_scheme"`
}

var supportedAdapters = []DatasourceAdapterInfo{
	{
		Type:        TypeS3,
		DisplayName: "Amazon S3",
		Description: "Parquet files in S3 or any S3-compatible store (MinIO, R2)",
		Icon:        "s3",
		URIScheme:   "s3",
	},
	{
		Type:        TypeAzureBlob,
		DisplayName: "Azure Blob Storage",
		Description: "Parquet files in Azure Blob Storage containers",
		Icon:        "azure",
		URIScheme:   "az",
	},
}

// SupportedAdapters returns the closed set of object-storage backends.
func SupportedAdapters() []DatasourceAdapterInfo {
	out := make([]DatasourceAdapterInfo, len(supportedAdapters))
	copy(out, supportedAdapters)
	return out
}

// CanonicalType resolves aliases; ok is false for unknown types.
func CanonicalType(dsType string) (string, bool) {
	t, ok := typeAliases[strings.ToLower(strings.TrimSpace(dsType))]
	return t, ok
}

// IsNativeCatalogType reports whether dsType names a relational backend
// whose own catalog is queried directly.
func IsNativeCatalogType(dsType string) bool {
	return nativeCatalogTypes[strings.ToLower(strings.TrimSpace(dsType))]
}
