package clientctx

import (
	"context"
	"net/http/httptest"
	"testing"
)

func TestFromRequest(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		wantIP  string
	}{
		{
			name:   "remote addr only",
			remote: "203.0.113.7:51234",
			wantIP: "203.0.113.7",
		},
		{
			name:    "x-forwarded-for single",
			headers: map[string]string{"X-Forwarded-For": "198.51.100.4"},
			remote:  "10.0.0.1:1234",
			wantIP:  "198.51.100.4",
		},
		{
			name:    "x-forwarded-for chain takes first hop",
			headers: map[string]string{"X-Forwarded-For": "198.51.100.4, 10.0.0.2, 10.0.0.3"},
			remote:  "10.0.0.1:1234",
			wantIP:  "198.51.100.4",
		},
		{
			name:    "x-real-ip fallback",
			headers: map[string]string{"X-Real-IP": "192.0.2.9"},
			remote:  "10.0.0.1:1234",
			wantIP:  "192.0.2.9",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/profiles", nil)
			req.RemoteAddr = tt.remote
			req.Header.Set("User-Agent", "test-agent/1.0")
			req.Header.Set("Origin", "http://localhost:3000")
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}

			cc := FromRequest(req)
			if cc.IP != tt.wantIP {
				t.Errorf("IP = %q, want %q", cc.IP, tt.wantIP)
			}
			if cc.UserAgent != "test-agent/1.0" {
				t.Errorf("UserAgent = %q", cc.UserAgent)
			}
			if cc.Origin != "http://localhost:3000" {
				t.Errorf("Origin = %q", cc.Origin)
			}
			if !cc.Anonymous() {
				t.Error("expected anonymous context")
			}
		})
	}
}

func TestKey(t *testing.T) {
	anon := ClientContext{IP: "1.2.3.4"}
	if anon.Key() != "ip:1.2.3.4" {
		t.Errorf("anonymous key = %q", anon.Key())
	}

	authed := ClientContext{IP: "1.2.3.4", UserID: "u1"}
	if authed.Key() != "user:u1" {
		t.Errorf("authenticated key = %q", authed.Key())
	}
}

func TestUserIDRoundTrip(t *testing.T) {
	ctx := context.Background()
	if UserID(ctx) != "" {
		t.Error("expected empty user id on bare context")
	}

	ctx = WithUserID(ctx, "u42")
	if UserID(ctx) != "u42" {
		t.Errorf("UserID = %q, want u42", UserID(ctx))
	}

	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "1.2.3.4:80"
	cc := FromRequest(req.WithContext(ctx))
	if cc.UserID != "u42" {
		t.Errorf("FromRequest UserID = %q, want u42", cc.UserID)
	}
}
