package models

import (
	"github.com/google/uuid"
)

// datasourceNamespace seeds stable datasource IDs derived from names.
var datasourceNamespace = uuid.NewSHA1(uuid.NameSpaceOID, []byte("ekaya-lake/datasources"))

// Datasource is one named object-storage connection.
// Config holds connection parameters with secrets already decrypted.
type Datasource struct {
	ID             uuid.UUID      `json:"id"`
	Name           string         `json:"name"`
	DatasourceType string         `json:"datasource_type"` // "s3", "azure_blob" or an alias
	Description    string         `json:"description,omitempty"`
	Config         map[string]any `json:"config"`
}

// DatasourceID returns the stable ID of a datasource name.
func DatasourceID(name string) uuid.UUID {
	return uuid.NewSHA1(datasourceNamespace, []byte(name))
}
