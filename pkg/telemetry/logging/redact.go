package logging

import (
	"log/slog"
	"strings"
)

// sensitiveKeySubstrings flags attribute keys whose values must not
// reach log output in plaintext. Matching is case-insensitive and by
// substring, so "auth_token" and "authentication_token" both hit
// "token".
var sensitiveKeySubstrings = []string{
	"token",
	"password",
	"secret",
	"authorization",
	"api_key",
	"apikey",
}

// redactAttr masks the value of sensitive attributes. Wired into every
// handler built by New; handlers call it for attributes inside groups
// too, so nesting does not bypass it.
func redactAttr(groups []string, a slog.Attr) slog.Attr {
	if a.Value.Kind() == slog.KindGroup {
		return a
	}
	if !isSensitiveKey(a.Key) {
		return a
	}
	a.Value = slog.StringValue(maskValue(a.Value.String()))
	return a
}

// isSensitiveKey checks whether a key names credential-bearing data.
func isSensitiveKey(key string) bool {
	lower := strings.ToLower(key)
	for _, s := range sensitiveKeySubstrings {
		if strings.Contains(lower, s) {
			return true
		}
	}
	return false
}

// maskValue hides a sensitive value, keeping a short prefix so operators
// can tell distinct credentials apart.
func maskValue(v string) string {
	if v == "" {
		return ""
	}
	if len(v) <= 4 {
		return "***"
	}
	return v[:4] + "***"
}
