package logging

import (
	"regexp"
)

const (
	// MaxQueryLogLength is the maximum length of a query to log
	MaxQueryLogLength = 100
	// RedactedText is the replacement text for sensitive data
	RedactedText = "[REDACTED]"
)

var (
	// password=xxx, pwd=xxx, pass=xxx (until next delimiter)
	passwordPattern = regexp.MustCompile(`(?i)(password|pwd|pass)=[^;&\s]+`)

	// Azure connection-string and SAS credentials: AccountKey=..., SharedAccessSignature=..., sig=...
	azureKeyPattern = regexp.MustCompile(`(?i)(AccountKey|SharedAccessSignature|sig)=[^;&\s']+`)

	// Secret values inside CREATE SECRET statements: KEY_ID '...', SECRET '...'
	secretOptionPattern = regexp.MustCompile(`(?i)\b(KEY_ID|SECRET|SESSION_TOKEN|CONNECTION_STRING)\s+'(?:[^']|'')*'`)

	// S3 access key ids (AKIA/ASIA followed by 16 upper-case alphanumerics)
	accessKeyIDPattern = regexp.MustCompile(`\b(AKIA|ASIA)[A-Z0-9]{16}\b`)

	// Potential API keys
	apiKeyPattern = regexp.MustCompile(`(?i)(api[_-]?key|apikey|key)=[A-Za-z0-9-_]{20,}`)

	// user:pass@host format
	connStringPattern = regexp.MustCompile(`://[^:/\s]+:[^@\s]+@[^/\s]+`)
)

// SanitizeConnectionString removes sensitive data from connection strings and endpoints.
func SanitizeConnectionString(connStr string) string {
	if connStr == "" {
		return ""
	}

	sanitized := passwordPattern.ReplaceAllString(connStr, "${1}="+RedactedText)
	sanitized = azureKeyPattern.ReplaceAllString(sanitized, "${1}="+RedactedText)
	sanitized = connStringPattern.ReplaceAllString(sanitized, "://"+RedactedText+"@"+RedactedText)

	return sanitized
}

// SanitizeError sanitizes error messages from storage and engine calls,
// which may echo credentials back.
func SanitizeError(err error) string {
	if err == nil {
		return ""
	}
	return redact(err.Error())
}

// SanitizeQuery redacts and truncates a SQL statement for logging.
func SanitizeQuery(query string) string {
	if query == "" {
		return ""
	}
	return TruncateString(redact(query), MaxQueryLogLength)
}

// TruncateString truncates a string to maxLen and adds ellipsis if needed
func TruncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

func redact(s string) string {
	s = secretOptionPattern.ReplaceAllString(s, "${1} '"+RedactedText+"'")
	s = passwordPattern.ReplaceAllString(s, "${1}="+RedactedText)
	s = azureKeyPattern.ReplaceAllString(s, "${1}="+RedactedText)
	s = apiKeyPattern.ReplaceAllString(s, "${1}="+RedactedText)
	s = accessKeyIDPattern.ReplaceAllString(s, RedactedText)
	s = connStringPattern.ReplaceAllString(s, "://"+RedactedText+"@"+RedactedText)
	return s
}
