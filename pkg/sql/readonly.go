package sql

import (
	"regexp"
	"strings"

	"github.com/ekaya-inc/ekaya-lake/pkg/apperrors"
)

// WriteKeywords are the statement keywords that make a query non read-only.
var WriteKeywords = []string{
	"INSERT", "UPDATE", "DELETE", "DROP", "CREATE", "ALTER", "TRUNCATE",
	"COPY", "GRANT", "REVOKE", "MERGE", "REPLACE", "CALL", "EXECUTE",
}

var writeKeywordPattern = regexp.MustCompile(`(?i)\b(` + strings.Join(WriteKeywords, "|") + `)\b`)

// ValidateReadOnly rejects a statement containing any write or DDL keyword,
// wherever it occurs (nested subqueries and CTEs included). The check is
// lexical: identifiers or literals spelled like a keyword are rejected too.
func ValidateReadOnly(sqlQuery string) error {
	if strings.TrimSpace(sqlQuery) == "" {
		return apperrors.Validation("empty SQL statement")
	}
	if match := writeKeywordPattern.FindString(sqlQuery); match != "" {
		return apperrors.Validation("query contains forbidden keyword %s; only read-only queries are allowed", strings.ToUpper(match))
	}
	return nil
}
