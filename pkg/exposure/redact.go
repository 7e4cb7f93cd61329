package exposure

import (
	"crypto/sha256"
	"encoding/hex"
)

// sensitiveContextFields are evaluation-context fields that must not
// leave the process in plaintext inside an exposure event.
var sensitiveContextFields = map[string]struct{}{
	"authentication_token": {},
}

// RedactToken redacts a credential by hashing it with SHA-256. The hash
// cannot be reversed but stays stable, so events from the same session
// remain correlatable.
//
// Returns an empty string if the token is empty.
func RedactToken(token string) string {
	if token == "" {
		return ""
	}
	hash := sha256.Sum256([]byte(token))
	return "sha256:" + hex.EncodeToString(hash[:])
}

// RedactContext returns a copy of the evaluation-context mapping with
// sensitive string fields redacted and non-string sensitive fields
// dropped. The input map is never modified; the decision path still
// needs the real values.
func RedactContext(evalContext map[string]any) map[string]any {
	if evalContext == nil {
		return nil
	}

	out := make(map[string]any, len(evalContext))
	for k, v := range evalContext {
		if _, sensitive := sensitiveContextFields[k]; !sensitive {
			out[k] = v
			continue
		}
		if s, ok := v.(string); ok {
			out[k] = RedactToken(s)
		}
	}
	return out
}
