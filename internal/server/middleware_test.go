package server

import (
	"bytes"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"
)

func TestRequestIDMiddleware(t *testing.T) {
	var ctxID string
	handler := RequestIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctxID = GetRequestID(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))

	headerID := rec.Header().Get("X-Request-ID")
	if headerID == "" || headerID != ctxID {
		t.Errorf("header id %q, context id %q", headerID, ctxID)
	}
	if ok, _ := regexp.MatchString(`^req_\d+_[0-9a-f]{8}$`, headerID); !ok {
		t.Errorf("request id %q does not match req_<ms>_<rand8>", headerID)
	}
}

func TestLoggingMiddlewareEmitsCustomFields(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	handler := LoggingMiddleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		AddLogField(r.Context(), "profile_id", "p42")
		AddError(r.Context(), errors.New("boom"))
		w.WriteHeader(http.StatusTeapot)
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/x", nil))

	out := buf.String()
	for _, want := range []string{`"profile_id":"p42"`, `"error":"boom"`, `"status":418`} {
		if !bytes.Contains([]byte(out), []byte(want)) {
			t.Errorf("log output missing %s:\n%s", want, out)
		}
	}
}

func TestCORSMiddleware(t *testing.T) {
	handler := CORSMiddleware([]string{"http://localhost:3000"})(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))

	// Allowed origin gets the headers.
	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Errorf("Allow-Origin = %q", got)
	}

	// Unknown origin gets none.
	req = httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Origin", "http://evil.example")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("unknown origin got Allow-Origin = %q", got)
	}
}

func TestVersionMiddleware(t *testing.T) {
	handler := VersionMiddleware("v9")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))
	if got := rec.Header().Get("X-Service-Version"); got != "v9" {
		t.Errorf("X-Service-Version = %q", got)
	}
}
