package logging

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestNewLevel(t *testing.T) {
	tests := []struct {
		level     string
		debugSeen bool
	}{
		{level: "debug", debugSeen: true},
		{level: "info", debugSeen: false},
		{level: "bogus", debugSeen: false},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			var buf bytes.Buffer
			logger := New(&buf, tt.level)
			logger.Debug("hidden?")
			if got := strings.Contains(buf.String(), "hidden?"); got != tt.debugSeen {
				t.Errorf("debug output present = %v, want %v", got, tt.debugSeen)
			}
		})
	}
}

func TestMiddleware(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, "info")

	handler := Middleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ratings/", nil))

	out := buf.String()
	for _, want := range []string{"/ratings/", "418", "GET"} {
		if !strings.Contains(out, want) {
			t.Errorf("log output %q missing %q", out, want)
		}
	}
}
