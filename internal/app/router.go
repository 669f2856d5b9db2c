package app

import (
	"github.com/gin-gonic/gin"

	"github.com/docstream/docstream-backend/internal/server"
)

func wireRouter(cfg Config, h Handlers) *gin.Engine {
	return server.NewRouter(server.RouterConfig{
		Mode:            cfg.LogMode,
		ServiceName:     cfg.ServiceName,
		AllowOrigins:    cfg.AllowOrigins,
		HealthHandler:   h.Health,
		DocumentHandler: h.Document,
		PipelineHandler: h.Pipeline,
	})
}
