// Package sql provides lexical SQL checks used before a statement reaches the
// analytic engine: statement normalization, the read-only keyword guard and a
// best-effort table-name extractor.
package sql

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/ekaya-inc/ekaya-lake/pkg/apperrors"
)

var (
	// ErrMultipleStatements indicates the query contains multiple SQL statements.
	ErrMultipleStatements = errors.New("multiple SQL statements not allowed; only single statements are permitted")

	// ErrEmptyStatement indicates the query is blank once comments are removed.
	ErrEmptyStatement = errors.New("empty SQL statement")
)

// NormalizeStatement prepares a caller statement for wrapping in a bounding
// subquery. Comments are removed, trailing semicolons stripped and any
// remaining semicolon outside a quoted literal rejected.
//
// In a standard literal only a doubled quote escapes a quote and a backslash
// is an ordinary character. E-prefixed literals honour backslash escapes. The
// result is re-scanned under both readings of E-prefixed literals and rejected
// when either finds a semicolon or comment marker outside a literal.
//
// Both returned errors wrap apperrors.ErrValidation.
func NormalizeStatement(sqlQuery string) (string, error) {
	normalized := strings.TrimSpace(stripComments(sqlQuery))
	normalized = stripTrailingSemicolons(normalized)

	if normalized == "" {
		return "", fmt.Errorf("%w: %w", apperrors.ErrValidation, ErrEmptyStatement)
	}
	if hasSemicolonOutsideStrings(normalized) || hasCommentOutsideStrings(normalized) {
		return "", fmt.Errorf("%w: %w", apperrors.ErrValidation, ErrMultipleStatements)
	}
	return normalized, nil
}

const (
	stateNormal = iota
	stateSingleQuote
	stateEscapeString
	stateDoubleQuote
	stateBacktick
	stateLineComment
	stateBlockComment
)

// opensEscapeString reports whether the quote at runes[i] starts an E'...'
// literal: it follows a lone E or e that is not the tail of an identifier.
func opensEscapeString(runes []rune, i int) bool {
	if i < 1 || (runes[i-1] != 'E' && runes[i-1] != 'e') {
		return false
	}
	if i < 2 {
		return true
	}
	prev := runes[i-2]
	return !(unicode.IsLetter(prev) || unicode.IsDigit(prev) || prev == '_' || prev == '$')
}

// quoteState returns the state entered at runes[i] from stateNormal, or
// stateNormal when runes[i] opens nothing. With escapes false, E'...' is
// scanned as a standard literal.
func quoteState(runes []rune, i int, escapes bool) int {
	switch runes[i] {
	case '\'':
		if escapes && opensEscapeString(runes, i) {
			return stateEscapeString
		}
		return stateSingleQuote
	case '"':
		return stateDoubleQuote
	case '`':
		return stateBacktick
	}
	return stateNormal
}

// stripComments replaces `--` and `/* */` comments with a single space while
// leaving quoted literals and identifiers untouched.
func stripComments(sqlQuery string) string {
	var b strings.Builder
	b.Grow(len(sqlQuery))

	runes := []rune(sqlQuery)
	state := stateNormal

	for i := 0; i < len(runes); i++ {
		char := runes[i]
		next := rune(0)
		if i+1 < len(runes) {
			next = runes[i+1]
		}

		switch state {
		case stateNormal:
			switch {
			case char == '-' && next == '-':
				state = stateLineComment
				i++
				continue
			case char == '/' && next == '*':
				state = stateBlockComment
				i++
				continue
			}
			state = quoteState(runes, i, true)
			b.WriteRune(char)
		case stateLineComment:
			if char == '\n' {
				state = stateNormal
				b.WriteRune('\n')
			}
		case stateBlockComment:
			if char == '*' && next == '/' {
				state = stateNormal
				i++
				b.WriteRune(' ')
			}
		default:
			b.WriteRune(char)
			if state == stateEscapeString && char == '\\' && next != 0 {
				b.WriteRune(next)
				i++
				continue
			}
			state = quotedNext(state, char)
		}
	}

	return b.String()
}

// quotedNext advances a quoted state by one rune. A doubled quote closes and
// immediately reopens the literal, which leaves the scan inside it.
func quotedNext(state int, char rune) int {
	switch {
	case (state == stateSingleQuote || state == stateEscapeString) && char == '\'',
		state == stateDoubleQuote && char == '"',
		state == stateBacktick && char == '`':
		return stateNormal
	}
	return state
}

// scanOutsideStrings calls match for every rune outside literals and quoted
// identifiers and returns true on the first match.
func scanOutsideStrings(sqlQuery string, escapes bool, match func(char, next rune) bool) bool {
	runes := []rune(sqlQuery)
	state := stateNormal

	for i := 0; i < len(runes); i++ {
		char := runes[i]
		next := rune(0)
		if i+1 < len(runes) {
			next = runes[i+1]
		}

		if state == stateNormal {
			if match(char, next) {
				return true
			}
			state = quoteState(runes, i, escapes)
			continue
		}
		if state == stateEscapeString && char == '\\' {
			i++
			continue
		}
		state = quotedNext(state, char)
	}
	return false
}

// hasSemicolonOutsideStrings returns true if the SQL contains any semicolon
// outside of string literals and quoted identifiers under either reading of
// E'...' literals.
func hasSemicolonOutsideStrings(sqlQuery string) bool {
	semicolon := func(char, _ rune) bool { return char == ';' }
	return scanOutsideStrings(sqlQuery, true, semicolon) || scanOutsideStrings(sqlQuery, false, semicolon)
}

// hasCommentOutsideStrings returns true if a comment marker survives outside
// literals under either reading of E'...' literals.
func hasCommentOutsideStrings(sqlQuery string) bool {
	comment := func(char, next rune) bool {
		return (char == '-' && next == '-') || (char == '/' && next == '*')
	}
	return scanOutsideStrings(sqlQuery, true, comment) || scanOutsideStrings(sqlQuery, false, comment)
}

// stripTrailingSemicolons removes every trailing semicolon and the whitespace around them.
func stripTrailingSemicolons(sqlQuery string) string {
	sqlQuery = strings.TrimRight(sqlQuery, " \t\n\r")
	for strings.HasSuffix(sqlQuery, ";") {
		sqlQuery = strings.TrimRight(strings.TrimSuffix(sqlQuery, ";"), " \t\n\r")
	}
	return sqlQuery
}
