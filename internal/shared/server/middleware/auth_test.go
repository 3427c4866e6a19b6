package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func newIdentityRouter(exempt ...string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Identity(exempt...))
	r.GET("/api/v1/matches", func(c *gin.Context) {
		c.String(http.StatusOK, UserIDFromContext(c))
	})
	r.POST("/api/v1/tracking/email", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return r
}

func TestIdentityRejectsMissingHeader(t *testing.T) {
	r := newIdentityRouter()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/matches", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestIdentitySetsUserID(t *testing.T) {
	r := newIdentityRouter()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/matches", nil)
	req.Header.Set("X-User-Id", "user-42")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if w.Body.String() != "user-42" {
		t.Fatalf("expected user id in context, got %q", w.Body.String())
	}
}

func TestIdentityExemptPrefix(t *testing.T) {
	r := newIdentityRouter("/api/v1/tracking/")

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/tracking/email", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 for exempt path, got %d", w.Code)
	}
}
