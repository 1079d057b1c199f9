package security

import (
	"strings"
	"testing"
)

func newTestValidator() *Validator {
	return NewValidator(1024, []string{"http://localhost:3000"})
}

func meetingSchema() *Schema {
	return &Schema{
		Required: map[string]FieldRule{
			"profile_id":      StringRule{Min: 1, Max: 64},
			"requester_name":  StringRule{Min: 1, Max: 120},
			"requester_email": StringRule{Min: 3, Max: 254},
			"message":         StringRule{Min: 1, Max: 2000},
			"request_type":    EnumRule{Values: []string{"appointment", "quote", "meeting"}},
		},
		Optional: map[string]FieldRule{
			"preferred_time": StringRule{Max: 64},
		},
	}
}

func TestValidateRequest(t *testing.T) {
	v := newTestValidator()
	allowed := []string{"GET", "POST"}

	tests := []struct {
		name      string
		method    string
		length    int64
		origin    string
		wantValid bool
		wantRisk  RiskLevel
	}{
		{"allowed method", "GET", 0, "", true, RiskSafe},
		{"disallowed method", "DELETE", 0, "", false, RiskSuspicious},
		{"oversize declared payload", "POST", 4096, "", false, RiskMalicious},
		{"known origin", "POST", 10, "http://localhost:3000", true, RiskSafe},
		{"unknown origin", "POST", 10, "http://evil.example", true, RiskSuspicious},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := v.ValidateRequest(tt.method, tt.length, tt.origin, allowed)
			if f.Valid != tt.wantValid {
				t.Errorf("Valid = %v, want %v (errors: %v)", f.Valid, tt.wantValid, f.Errors)
			}
			if f.Risk != tt.wantRisk {
				t.Errorf("Risk = %q, want %q", f.Risk, tt.wantRisk)
			}
		})
	}
}

func TestValidateBody_Shape(t *testing.T) {
	v := newTestValidator()
	schema := meetingSchema()

	tests := []struct {
		name      string
		body      string
		wantValid bool
		wantErr   string
	}{
		{
			name:      "well formed",
			body:      `{"profile_id":"p1","requester_name":"Ann","requester_email":"a@b.co","message":"hello","request_type":"meeting"}`,
			wantValid: true,
		},
		{
			name:      "missing required field",
			body:      `{"profile_id":"p1"}`,
			wantValid: false,
			wantErr:   "required field missing",
		},
		{
			name:      "nested object where scalar expected",
			body:      `{"profile_id":{"$ne":null},"requester_name":"Ann","requester_email":"a@b.co","message":"hi","request_type":"quote"}`,
			wantValid: false,
			wantErr:   "expected string",
		},
		{
			name:      "enum violation",
			body:      `{"profile_id":"p1","requester_name":"Ann","requester_email":"a@b.co","message":"hi","request_type":"party"}`,
			wantValid: false,
			wantErr:   "must be one of",
		},
		{
			name:      "string too long",
			body:      `{"profile_id":"p1","requester_name":"` + strings.Repeat("x", 200) + `","requester_email":"a@b.co","message":"hi","request_type":"quote"}`,
			wantValid: false,
			wantErr:   "longer than",
		},
		{
			name:      "malformed json",
			body:      `{"profile_id":`,
			wantValid: false,
			wantErr:   "malformed JSON",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := v.ValidateBody([]byte(tt.body), schema)
			if f.Valid != tt.wantValid {
				t.Errorf("Valid = %v, want %v (errors: %v)", f.Valid, tt.wantValid, f.Errors)
			}
			if tt.wantErr != "" {
				found := false
				for _, e := range f.Errors {
					if strings.Contains(e, tt.wantErr) {
						found = true
					}
				}
				if !found {
					t.Errorf("errors %v missing %q", f.Errors, tt.wantErr)
				}
			}
		})
	}
}

func TestValidateBody_OversizeIsMalicious(t *testing.T) {
	v := newTestValidator()
	big := `{"message":"` + strings.Repeat("a", 2048) + `"}`

	f := v.ValidateBody([]byte(big), nil)
	if f.Valid {
		t.Fatal("oversize body accepted")
	}
	if f.Risk != RiskMalicious {
		t.Errorf("Risk = %q, want malicious", f.Risk)
	}
	if !f.Blocked() {
		t.Error("oversize finding must block")
	}
}

func TestValidateBody_HeuristicsWarnWithoutBlocking(t *testing.T) {
	v := newTestValidator()
	schema := &Schema{
		Required: map[string]FieldRule{"message": StringRule{Min: 1, Max: 500}},
	}

	f := v.ValidateBody([]byte(`{"message":"check out <script>alert(1)</script>"}`), schema)
	if !f.Valid {
		t.Fatalf("single heuristic hit should not invalidate, errors: %v", f.Errors)
	}
	if f.Risk != RiskSuspicious {
		t.Errorf("Risk = %q, want suspicious", f.Risk)
	}
	if len(f.Warnings) == 0 {
		t.Error("expected a warning for injection-like content")
	}
	if f.Blocked() {
		t.Error("suspicious-but-valid finding must not block")
	}
}

func TestValidateBody_ManyHeuristicHitsEscalate(t *testing.T) {
	v := NewValidator(8192, nil)
	payload := `{"a":"<script>x</script>","b":"javascript:void(0)","c":"1 UNION SELECT password"}`

	f := v.ValidateBody([]byte(payload), nil)
	if f.Valid || f.Risk != RiskMalicious {
		t.Errorf("Valid=%v Risk=%q, want invalid/malicious", f.Valid, f.Risk)
	}
}

func TestValidateBody_UnexpectedFieldWarns(t *testing.T) {
	v := newTestValidator()
	schema := &Schema{Required: map[string]FieldRule{"name": StringRule{Min: 1, Max: 50}}}

	f := v.ValidateBody([]byte(`{"name":"ok","surprise":true}`), schema)
	if !f.Valid {
		t.Fatalf("unexpected field should not invalidate, errors: %v", f.Errors)
	}
	if len(f.Warnings) == 0 {
		t.Error("expected unexpected-field warning")
	}
}

func TestCheckFieldVariants(t *testing.T) {
	tests := []struct {
		name    string
		rule    FieldRule
		value   any
		wantErr bool
	}{
		{"number in range", NumberRule{Min: 0, Max: 10}, float64(5), false},
		{"number out of range", NumberRule{Min: 0, Max: 10}, float64(11), true},
		{"number wrong type", NumberRule{Min: 0, Max: 10}, "5", true},
		{"bool ok", BoolRule{}, true, false},
		{"bool wrong type", BoolRule{}, "true", true},
		{"array ok", ArrayRule{Item: StringRule{Min: 1, Max: 10}, MaxItems: 3}, []any{"a", "b"}, false},
		{"array too long", ArrayRule{Item: StringRule{Max: 10}, MaxItems: 1}, []any{"a", "b"}, true},
		{"array bad element", ArrayRule{Item: StringRule{Min: 1, Max: 10}, MaxItems: 5}, []any{"a", 3.0}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := checkField("f", tt.rule, tt.value)
			if (len(errs) > 0) != tt.wantErr {
				t.Errorf("errors = %v, wantErr = %v", errs, tt.wantErr)
			}
		})
	}
}
