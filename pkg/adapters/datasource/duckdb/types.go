package duckdb

import "strings"

// typeNames maps native spellings to the normalized vocabulary. Entries
// are matched against the type name with its parameter list removed, so
// DECIMAL(18,2) and decimal both land on numeric.
var typeNames = map[string]string{
	"boolean": "boolean",
	"bool":    "boolean",
	"logical": "boolean",

	"tinyint":  "tinyint",
	"int1":     "tinyint",
	"utinyint": "smallint",

	"smallint":  "smallint",
	"int2":      "smallint",
	"short":     "smallint",
	"usmallint": "integer",

	"integer":  "integer",
	"int":      "integer",
	"int4":     "integer",
	"signed":   "integer",
	"uinteger": "bigint",

	"bigint":  "bigint",
	"int8":    "bigint",
	"long":    "bigint",
	"ubigint": "hugeint",

	"hugeint":  "hugeint",
	"uhugeint": "hugeint",
	"int128":   "hugeint",

	"real":   "real",
	"float":  "real",
	"float4": "real",

	"double":           "double precision",
	"double precision": "double precision",
	"float8":           "double precision",

	"decimal": "numeric",
	"numeric": "numeric",

	"varchar": "text",
	"text":    "text",
	"string":  "text",
	"char":    "text",
	"bpchar":  "text",
	"enum":    "text",

	"date":                        "date",
	"time":                        "time",
	"time with time zone":         "time",
	"timetz":                      "time",
	"timestamp":                   "timestamp",
	"datetime":                    "timestamp",
	"timestamp_s":                 "timestamp",
	"timestamp_ms":                "timestamp",
	"timestamp_ns":                "timestamp",
	"timestamp without time zone": "timestamp",
	"timestamp with time zone":    "timestamptz",
	"timestamptz":                 "timestamptz",
	"interval":                    "interval",

	"blob":      "bytea",
	"bytea":     "bytea",
	"binary":    "bytea",
	"varbinary": "bytea",

	"json": "json",
	"uuid": "uuid",
}

// MapType maps a native engine type spelling to the normalized vocabulary.
// Matching is case-insensitive and ignores type parameters. Unknown types
// (including nested LIST/STRUCT/MAP spellings) pass through lower-cased.
// The function is idempotent: every normalized name maps to itself.
func MapType(nativeType string) string {
	t := strings.ToLower(strings.TrimSpace(nativeType))
	if t == "" {
		return t
	}

	base := t
	if i := strings.IndexByte(base, '('); i >= 0 {
		base = strings.TrimSpace(base[:i])
	}
	if mapped, ok := typeNames[base]; ok {
		return mapped
	}
	return t
}
