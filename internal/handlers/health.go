package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/docstream/docstream-backend/internal/clients/extractor"
)

type HealthHandler struct {
	extractor extractor.Client
}

func NewHealthHandler(ext extractor.Client) *HealthHandler {
	return &HealthHandler{extractor: ext}
}

// HealthCheck always answers 200 when the process is up; the extractor's
// reachability is reported but does not fail the check.
func (hh *HealthHandler) HealthCheck(c *gin.Context) {
	extractorStatus := "ok"
	if err := hh.extractor.Health(c.Request.Context()); err != nil {
		extractorStatus = "unreachable"
	}
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"timestamp": time.Now().UTC(),
		"collaborators": gin.H{
			"extractor": extractorStatus,
		},
	})
}
