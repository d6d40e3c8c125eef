package sql

import (
	"regexp"
	"strings"
)

const identPattern = `(?:"[^"]+"|` + "`[^`]+`" + `|[A-Za-z_][A-Za-z0-9_$]*)`

var (
	tableRefPattern = regexp.MustCompile(`(?i)\b(?:FROM|JOIN)\s+(` + identPattern + `(?:\s*\.\s*` + identPattern + `)*)`)
	segmentPattern  = regexp.MustCompile(`"([^"]+)"|` + "`([^`]+)`" + `|([A-Za-z_][A-Za-z0-9_$]*)`)
	ctePattern      = regexp.MustCompile(`(?i)(?:\bWITH(?:\s+RECURSIVE)?|,)\s*(` + identPattern + `)\s*(?:\([^)]*\)\s*)?AS\s*(?:NOT\s+)?(?:MATERIALIZED\s*)?\(`)
)

// Keywords that may legally follow FROM or JOIN and are never table names.
var nonTableKeywords = map[string]bool{
	"select": true, "where": true, "group": true, "order": true, "having": true,
	"limit": true, "offset": true, "join": true, "inner": true, "left": true,
	"right": true, "full": true, "outer": true, "cross": true, "natural": true,
	"on": true, "using": true, "as": true, "lateral": true, "unnest": true,
	"values": true, "union": true, "intersect": true, "except": true,
	"window": true, "qualify": true, "table": true, "only": true,
}

// ExtractTableNames returns the table names referenced after FROM or JOIN, in
// first-seen order without duplicates. Only the last segment of a dotted name
// is kept. Table functions (`FROM read_parquet(...)`) and names declared as
// CTEs in the same statement are skipped.
//
// This is a heuristic for callers that do not supply an explicit manifest and
// it does not understand every SQL construct.
func ExtractTableNames(sqlQuery string) []string {
	cleaned := stripComments(sqlQuery)

	ctes := make(map[string]bool)
	for _, m := range ctePattern.FindAllStringSubmatch(cleaned, -1) {
		ctes[strings.ToLower(lastSegment(m[1]))] = true
	}

	seen := make(map[string]bool)
	names := []string{}
	for _, loc := range tableRefPattern.FindAllStringSubmatchIndex(cleaned, -1) {
		ref := cleaned[loc[2]:loc[3]]
		if isFunctionCall(cleaned[loc[3]:]) {
			continue
		}

		quoted := strings.HasPrefix(ref, `"`) || strings.HasPrefix(ref, "`")
		if !quoted && !strings.Contains(ref, ".") && nonTableKeywords[strings.ToLower(ref)] {
			continue
		}

		name := lastSegment(ref)
		key := strings.ToLower(name)
		if name == "" || ctes[key] || seen[key] {
			continue
		}
		seen[key] = true
		names = append(names, name)
	}
	return names
}

func lastSegment(ref string) string {
	segments := segmentPattern.FindAllStringSubmatch(ref, -1)
	if len(segments) == 0 {
		return ""
	}
	last := segments[len(segments)-1]
	for _, group := range last[1:] {
		if group != "" {
			return group
		}
	}
	return ""
}

func isFunctionCall(rest string) bool {
	return strings.HasPrefix(strings.TrimLeft(rest, " \t\r\n"), "(")
}
