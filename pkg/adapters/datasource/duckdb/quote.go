package duckdb

import "strings"

// QuoteIdent quotes an identifier, doubling embedded quotes.
func QuoteIdent(value string) string {
	return `"` + strings.ReplaceAll(value, `"`, `""`) + `"`
}

// QuoteString renders a single-quoted SQL string literal.
func QuoteString(value string) string {
	return `'` + strings.ReplaceAll(value, `'`, `''`) + `'`
}
