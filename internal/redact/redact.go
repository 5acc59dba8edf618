// Package redact strips credentials, personal data and internal details from
// strings before they are logged or returned to clients.
package redact

import "regexp"

// Placeholders substituted for redacted content.
const (
	RedactionPlaceholder          = "[REDACTED]"
	RedactedPathPlaceholder       = "[REDACTED_PATH]"
	RedactedCredentialPlaceholder = "[REDACTED_CREDENTIAL]"
	RedactedKeyPlaceholder        = "[REDACTED_KEY]"
	RedactedEmailPlaceholder      = "[REDACTED_EMAIL]"
	RedactedJWTPlaceholder        = "[REDACTED_JWT]"
	RedactedSQLPlaceholder        = "[REDACTED_SQL]"
	RedactedStackPlaceholder      = "[STACK_TRACE_REDACTED]"
)

type rule struct {
	pattern     *regexp.Regexp
	replacement string
}

// Rules run in order; earlier rules consume text later ones would otherwise
// match only partially.
var rules = []rule{
	{regexp.MustCompile(`(?s)(?:panic:|goroutine \d+ \[).*`), RedactedStackPlaceholder},

	// userinfo in postgres://, redis://, smtp:// style URLs
	{
		regexp.MustCompile(`(?i)\b(postgres(?:ql)?|rediss?|smtps?|mysql|mongodb|amqp)://[^@\s/]+@`),
		"${1}://" + RedactedCredentialPlaceholder + "@",
	},

	{regexp.MustCompile(`eyJ[A-Za-z0-9_-]+\.eyJ[A-Za-z0-9_-]+\.[A-Za-z0-9_-]+`), RedactedJWTPlaceholder},
	{regexp.MustCompile(`SG\.[A-Za-z0-9_-]{16,}\.[A-Za-z0-9_-]{16,}`), RedactedKeyPlaceholder},
	{regexp.MustCompile(`(?i)\bbearer\s+[A-Za-z0-9_\-.~+/=]{8,}`), "Bearer " + RedactedCredentialPlaceholder},
	{regexp.MustCompile(`(?i)(?:password|passwd|pwd)\s*[=:]\s*['"]?[^'"&\s]{3,}['"]?`), RedactedCredentialPlaceholder},
	{
		regexp.MustCompile(`(?i)(?:api[_-]?key|secret|token)\s*[=:]\s*['"]?[A-Za-z0-9_\-.~+/]{8,}['"]?`),
		RedactedKeyPlaceholder,
	},
	{regexp.MustCompile(`(AKIA|AccessKey(?:Id)?)[^A-Za-z0-9]?[A-Z0-9]{8,}`), RedactedKeyPlaceholder},

	// statements carry literal values; drop everything from the verb on
	{
		regexp.MustCompile(`(?is)\b(?:SELECT\s.+?\sFROM|INSERT\s+INTO|UPDATE\s+\w+\s+SET|DELETE\s+FROM)\b.*`),
		RedactedSQLPlaceholder,
	},

	{regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`), RedactedEmailPlaceholder},
	{regexp.MustCompile(`(/[\w.-]+){2,}`), RedactedPathPlaceholder},
	{regexp.MustCompile(`[A-Za-z]:\\[^\\]+(\\[^\\\s]+)+`), RedactedPathPlaceholder},
}

// String redacts sensitive information from the input string.
func String(input string) string {
	if input == "" {
		return input
	}

	result := input
	for _, r := range rules {
		result = r.pattern.ReplaceAllString(result, r.replacement)
	}
	return result
}

// Error redacts sensitive information from an error's Error() output.
func Error(err error) string {
	if err == nil {
		return ""
	}
	return String(err.Error())
}
