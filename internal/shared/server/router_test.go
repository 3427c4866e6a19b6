package server

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"jobpilot-backend/internal/shared/config"
)

func newTestRouter() http.Handler {
	return NewRouter(RouterDeps{
		Config: config.Config{APIRateLimit: 10, APIRateBurst: 20},
	})
}

func TestMetricsScrapeNeedsNoIdentity(t *testing.T) {
	r := newTestRouter()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 from anonymous scrape, got %d: %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "matches_scored_total") {
		t.Fatalf("metrics output missing counters: %q", w.Body.String())
	}
}

func TestHealthNeedsNoIdentity(t *testing.T) {
	r := newTestRouter()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

func TestAPIRoutesStillRequireIdentity(t *testing.T) {
	r := newTestRouter()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without identity, got %d", w.Code)
	}
}

func TestAddr(t *testing.T) {
	cases := map[string]string{"": ":8080", "9090": ":9090", ":7000": ":7000"}
	for in, want := range cases {
		if got := Addr(in); got != want {
			t.Fatalf("Addr(%q) = %q, want %q", in, got, want)
		}
	}
}
