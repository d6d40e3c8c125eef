package flatfile

import (
	"path"
	"strings"

	"github.com/ekaya-inc/ekaya-lake/pkg/adapters/datasource"
)

// FileExtension marks a qualifying file. Matching is case-insensitive.
const FileExtension = ".parquet"

// BuildURI returns the engine URI of a dataset.
//
//	single file: scheme://database/[prefix/]schema/table.parquet
//	partitioned: scheme://database/[prefix/]schema/table/**/*.parquet
//
// The schema segment is omitted for the root schema.
func BuildURI(scheme, database, pathPrefix, schema, table string, partitioned bool) string {
	var b strings.Builder
	b.WriteString(scheme)
	b.WriteString("://")
	b.WriteString(database)
	b.WriteString("/")
	b.WriteString(SchemaPrefix(pathPrefix, schema))
	b.WriteString(table)
	if partitioned {
		b.WriteString("/**/*")
	}
	b.WriteString(FileExtension)
	return b.String()
}

// NormalizePrefix trims surrounding slashes and whitespace.
func NormalizePrefix(pathPrefix string) string {
	return strings.Trim(strings.TrimSpace(pathPrefix), "/")
}

// SchemaPrefix is the listing prefix of a schema: "" or "prefix/" for the
// root schema, otherwise "[prefix/]schema/".
func SchemaPrefix(pathPrefix, schema string) string {
	base := NormalizePrefix(pathPrefix)
	if base != "" {
		base += "/"
	}
	if schema == datasource.RootSchema || schema == "" {
		return base
	}
	return base + schema + "/"
}

// TablePrefix is the folder a partitioned table would occupy.
func TablePrefix(pathPrefix, schema, table string) string {
	return SchemaPrefix(pathPrefix, schema) + table + "/"
}

// IsQualifyingFile reports whether key names a Parquet file.
func IsQualifyingFile(key string) bool {
	return !strings.HasSuffix(key, "/") && strings.HasSuffix(strings.ToLower(key), FileExtension)
}

// TableNameFromFile returns the file name without directories and extension.
func TableNameFromFile(key string) string {
	name := path.Base(key)
	return name[:len(name)-len(FileExtension)]
}

// FolderName returns the final segment of a folder prefix such as
// "raw/sales/". A prefix ending in "//" has an empty final segment.
func FolderName(prefix string) string {
	trimmed := strings.TrimSuffix(prefix, "/")
	if i := strings.LastIndex(trimmed, "/"); i >= 0 {
		return trimmed[i+1:]
	}
	return trimmed
}
