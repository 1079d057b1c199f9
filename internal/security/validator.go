// Package security classifies requests for risk before they reach any
// handler. Hard failures (wrong method, oversize payload, malformed JSON,
// shape violations) invalidate the request; content heuristics only raise
// the risk level and are logged, not blocked, unless escalated to malicious.
package security

import (
	"encoding/json"
	"fmt"
	"regexp"
	"slices"
	"strings"
)

// RiskLevel classifies how hostile a request looks.
type RiskLevel string

const (
	RiskSafe       RiskLevel = "safe"
	RiskSuspicious RiskLevel = "suspicious"
	RiskMalicious  RiskLevel = "malicious"
)

// Finding is the outcome of validating one request or body. Ephemeral,
// computed once per request.
type Finding struct {
	Valid    bool
	Risk     RiskLevel
	Errors   []string
	Warnings []string
}

// Blocked reports whether the pipeline must reject the request outright.
func (f Finding) Blocked() bool {
	return !f.Valid || f.Risk == RiskMalicious
}

// injectionPatterns are heuristics for script/SQL injection content inside
// string fields. A match contributes to the risk level; it is not a hard
// block on its own.
var injectionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)<\s*script`),
	regexp.MustCompile(`(?i)javascript\s*:`),
	regexp.MustCompile(`(?i)on(error|load|click|mouseover)\s*=`),
	regexp.MustCompile(`(?i)union\s+select`),
	regexp.MustCompile(`(?i)(;|')\s*(drop|delete|insert|update)\s`),
	regexp.MustCompile(`(?i)\.\./\.\.`),
	regexp.MustCompile("(?i)`\\s*(rm|curl|wget)\\s"),
}

// Validator performs the security and shape checks of the gating pipeline.
type Validator struct {
	maxBodyBytes   int64
	allowedOrigins map[string]struct{}
}

// NewValidator creates a Validator. maxBodyBytes caps mutating payload
// sizes; allowedOrigins is the CORS origin set used for the origin check.
func NewValidator(maxBodyBytes int64, allowedOrigins []string) *Validator {
	origins := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		origins[strings.ToLower(o)] = struct{}{}
	}
	return &Validator{maxBodyBytes: maxBodyBytes, allowedOrigins: origins}
}

// MaxBodyBytes exposes the configured payload ceiling.
func (v *Validator) MaxBodyBytes() int64 {
	return v.maxBodyBytes
}

// OriginAllowed reports whether origin is in the configured CORS set.
func (v *Validator) OriginAllowed(origin string) bool {
	_, ok := v.allowedOrigins[strings.ToLower(origin)]
	return ok
}

// ValidateRequest checks method allow-list, declared payload size, and
// origin. Method and size failures are hard; an unrecognized origin is a
// warning (the CORS headers already refuse it to browsers).
func (v *Validator) ValidateRequest(method string, contentLength int64, origin string, allowedMethods []string) Finding {
	f := Finding{Valid: true, Risk: RiskSafe}

	if !slices.Contains(allowedMethods, method) {
		f.Valid = false
		f.Risk = RiskSuspicious
		f.Errors = append(f.Errors, fmt.Sprintf("method %s not allowed", method))
	}

	if v.maxBodyBytes > 0 && contentLength > v.maxBodyBytes {
		f.Valid = false
		f.Risk = RiskMalicious
		f.Errors = append(f.Errors, fmt.Sprintf("payload of %d bytes exceeds limit of %d", contentLength, v.maxBodyBytes))
	}

	if origin != "" && !v.OriginAllowed(origin) {
		f.Warnings = append(f.Warnings, fmt.Sprintf("origin %s not in allowed set", origin))
		if f.Risk == RiskSafe {
			f.Risk = RiskSuspicious
		}
	}

	return f
}

// ValidateBody parses raw as JSON and checks it against schema. Oversize
// and malformed payloads are hard failures with escalated risk. Shape
// violations (missing required fields, wrong primitive types, nested
// objects where scalars are expected) invalidate the request. Injection
// heuristics on string content populate warnings and raise the risk level
// without invalidating a well-shaped request.
func (v *Validator) ValidateBody(raw []byte, schema *Schema) Finding {
	f := Finding{Valid: true, Risk: RiskSafe}

	if v.maxBodyBytes > 0 && int64(len(raw)) > v.maxBodyBytes {
		f.Valid = false
		f.Risk = RiskMalicious
		f.Errors = append(f.Errors, fmt.Sprintf("payload of %d bytes exceeds limit of %d", len(raw), v.maxBodyBytes))
		return f
	}

	var body map[string]any
	if err := json.Unmarshal(raw, &body); err != nil {
		f.Valid = false
		f.Risk = RiskSuspicious
		f.Errors = append(f.Errors, "malformed JSON body")
		return f
	}

	if schema != nil {
		for name, rule := range schema.Required {
			value, present := body[name]
			if !present {
				f.Errors = append(f.Errors, fmt.Sprintf("%s: required field missing", name))
				continue
			}
			f.Errors = append(f.Errors, checkField(name, rule, value)...)
		}
		for name, value := range body {
			rule, declared := schema.rule(name)
			if !declared {
				f.Warnings = append(f.Warnings, fmt.Sprintf("%s: unexpected field", name))
				continue
			}
			if _, required := schema.Required[name]; required {
				continue // already checked above
			}
			f.Errors = append(f.Errors, checkField(name, rule, value)...)
		}
	}

	if len(f.Errors) > 0 {
		f.Valid = false
		f.Risk = RiskSuspicious
	}

	hits := scanStrings(body)
	if hits > 0 {
		f.Warnings = append(f.Warnings, fmt.Sprintf("%d injection-like pattern(s) in string fields", hits))
		if hits >= 3 {
			f.Valid = false
			f.Risk = RiskMalicious
		} else if f.Risk == RiskSafe {
			f.Risk = RiskSuspicious
		}
	}

	return f
}

// scanStrings walks the decoded body and counts injection heuristic hits
// across all string values, recursively.
func scanStrings(value any) int {
	switch v := value.(type) {
	case string:
		hits := 0
		for _, p := range injectionPatterns {
			if p.MatchString(v) {
				hits++
			}
		}
		return hits
	case map[string]any:
		hits := 0
		for _, inner := range v {
			hits += scanStrings(inner)
		}
		return hits
	case []any:
		hits := 0
		for _, inner := range v {
			hits += scanStrings(inner)
		}
		return hits
	default:
		return 0
	}
}
