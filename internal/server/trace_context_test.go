package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

func TestAttachTraceContextMintsIDs(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(AttachTraceContext())
	r.GET("/ping", func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("unexpected status: got=%d want=%d", rec.Code, http.StatusNoContent)
	}
	traceID := rec.Header().Get("X-Trace-Id")
	reqID := rec.Header().Get("X-Request-Id")
	if traceID == "" {
		t.Fatalf("expected a minted X-Trace-Id header")
	}
	if _, err := uuid.Parse(reqID); err != nil {
		t.Fatalf("expected a minted uuid X-Request-Id, got %q: %v", reqID, err)
	}
}

func TestAttachTraceContextEchoesCallerIDs(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(AttachTraceContext())
	r.GET("/ping", func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("X-Trace-Id", "trace-from-caller")
	req.Header.Set("X-Request-Id", "req-from-caller")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if got := rec.Header().Get("X-Trace-Id"); got != "trace-from-caller" {
		t.Fatalf("trace id not echoed: got=%q", got)
	}
	if got := rec.Header().Get("X-Request-Id"); got != "req-from-caller" {
		t.Fatalf("request id not echoed: got=%q", got)
	}
}
