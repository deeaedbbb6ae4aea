package logger

import (
	"regexp"
	"strings"
)

// SensitiveDataPatterns match credentials embedded in free text. The first
// capture group is kept.
var SensitiveDataPatterns = []*regexp.Regexp{
	// Bearer tokens
	regexp.MustCompile(`(?i)(bearer\s+)([A-Za-z0-9\-._~+/]+=*)`),
	// user:password@ in database DSNs and broker URLs
	regexp.MustCompile(`([A-Za-z0-9_.\-]+:)([^@\s/:]+)(@)`),
	// key=value style secrets
	regexp.MustCompile(`(?i)((password|passwd|secret|token|access[_-]?key|api[_-]?key)[\s:=]+)([^;,\s&]{3,})`),
	// X-Amz-Signature and friends in presigned URLs
	regexp.MustCompile(`(?i)(x-amz-(signature|credential|security-token)=)([^&\s]+)`),
}

// SensitiveKeywords mark field keys whose string values are always redacted.
var SensitiveKeywords = []string{
	"password", "passwd", "secret", "credential", "token", "api_key",
	"apikey", "access_key", "authorization", "cookie",
}

const redacted = "[REDACTED]"

// RedactSensitiveData replaces credentials found in input with [REDACTED].
func RedactSensitiveData(input string) string {
	if input == "" {
		return input
	}
	for i, pattern := range SensitiveDataPatterns {
		if i == 1 {
			input = pattern.ReplaceAllString(input, "${1}"+redacted+"${3}")
			continue
		}
		input = pattern.ReplaceAllString(input, "${1}"+redacted)
	}
	return input
}

// RedactSensitiveValue redacts value entirely when key names a secret and
// otherwise scrubs credentials embedded in it.
func RedactSensitiveValue(key, value string) string {
	if value == "" {
		return value
	}
	keyLower := strings.ToLower(key)
	for _, sensitive := range SensitiveKeywords {
		if strings.Contains(keyLower, sensitive) {
			return redacted
		}
	}
	if !strings.ContainsAny(value, "@=") && !strings.Contains(strings.ToLower(value), "bearer") {
		return value
	}
	return RedactSensitiveData(value)
}
