package policy

import (
	"regexp"
	"strings"
)

var (
	bearerPattern   = regexp.MustCompile(`(?i)(bearer\s+)[A-Za-z0-9._~+/\-]+=*`)
	queryKeyPattern = regexp.MustCompile(`(?i)((?:api_?key|token|access_token)=)[^&\s"']+`)
)

const redacted = "[REDACTED]"

// RedactCredentials masks bearer tokens, credential query parameters and
// any of the given secret values before text reaches a log line.
func RedactCredentials(input string, secrets ...string) (out string, changed bool) {
	out = input

	for _, secret := range secrets {
		// Very short values would mask unrelated text.
		if len(strings.TrimSpace(secret)) < 4 {
			continue
		}
		next := strings.ReplaceAll(out, secret, redacted)
		changed = changed || next != out
		out = next
	}

	next := bearerPattern.ReplaceAllString(out, "${1}"+redacted)
	changed = changed || next != out
	out = next

	next = queryKeyPattern.ReplaceAllString(out, "${1}"+redacted)
	changed = changed || next != out
	out = next

	return out, changed
}
