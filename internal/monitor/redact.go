package monitor

import "strings"

// redactedPlaceholder replaces every sensitive value.
const redactedPlaceholder = "[REDACTED]"

// sensitiveKeyFragments match field names whose values must never reach a
// log line. Matching is case-insensitive substring on the key.
var sensitiveKeyFragments = []string{
	"password",
	"token",
	"secret",
	"api_key",
	"apikey",
	"authorization",
	"email",
}

func sensitiveKey(key string) bool {
	lower := strings.ToLower(key)
	for _, frag := range sensitiveKeyFragments {
		if strings.Contains(lower, frag) {
			return true
		}
	}
	return false
}

// Redact returns a copy of payload with every value under a sensitive key
// replaced by a fixed placeholder, recursively, preserving structure and
// non-sensitive values. Idempotent: redacting an already-redacted payload
// changes nothing. The input is never mutated.
func Redact(payload map[string]any) map[string]any {
	if payload == nil {
		return nil
	}
	out := make(map[string]any, len(payload))
	for key, value := range payload {
		if sensitiveKey(key) {
			out[key] = redactedPlaceholder
			continue
		}
		out[key] = redactValue(value)
	}
	return out
}

func redactValue(value any) any {
	switch v := value.(type) {
	case map[string]any:
		return Redact(v)
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = redactValue(item)
		}
		return out
	default:
		return value
	}
}
