package utils

import (
	"regexp"
)

// sensitivePatterns match credentials that may end up in log lines: bearer
// headers, token query parameters and key=value secrets. Group 1 is kept.
var sensitivePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(authorization:\s*bearer\s+)[A-Za-z0-9_\-+/=.]{8,}`),
	regexp.MustCompile(`(?i)(bearer\s+)[A-Za-z0-9_\-+/=.]{16,}`),
	regexp.MustCompile(`(?i)([?&](?:token|api_key|access_token)=)[^&\s"]+`),
	regexp.MustCompile(`(?i)((?:api[_-]?key|api[_-]?token|secret|password)"?\s*[:=]\s*"?)[A-Za-z0-9_\-+/=.]{6,}`),
}

const redacted = "***REDACTED***"

// SanitizeLog replaces credential values in message, keeping their labels.
func SanitizeLog(message string) string {
	result := message
	for _, pattern := range sensitivePatterns {
		result = pattern.ReplaceAllString(result, "${1}"+redacted)
	}
	return result
}
