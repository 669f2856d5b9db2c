package server

import (
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/docstream/docstream-backend/internal/handlers"
)

type RouterConfig struct {
	Mode         string
	ServiceName  string
	AllowOrigins []string

	HealthHandler   *handlers.HealthHandler
	DocumentHandler *handlers.DocumentHandler
	PipelineHandler *handlers.PipelineHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	if strings.EqualFold(cfg.Mode, "prod") || strings.EqualFold(cfg.Mode, "production") {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()

	serviceName := strings.TrimSpace(cfg.ServiceName)
	if serviceName == "" {
		serviceName = "docstream-backend"
	}
	router.Use(otelgin.Middleware(serviceName))
	router.Use(AttachTraceContext())

	// Cors
	origins := cfg.AllowOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000", "http://localhost:5173"}
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
	}))

	router.GET("/healthcheck", cfg.HealthHandler.HealthCheck)

	api := router.Group("/api")
	{
		// Documents
		api.POST("/documents", cfg.DocumentHandler.Upload)
		api.GET("/documents", cfg.DocumentHandler.List)
		api.GET("/documents/:id", cfg.DocumentHandler.Get)
		api.DELETE("/documents/:id", cfg.DocumentHandler.Delete)

		// Pipeline stages
		api.POST("/documents/:id/reduce", cfg.PipelineHandler.Reduce)
		api.POST("/documents/:id/chunk", cfg.PipelineHandler.Chunk)
		api.POST("/documents/:id/translate", cfg.PipelineHandler.Translate)
		api.POST("/documents/:id/publish", cfg.PipelineHandler.Publish)
		api.POST("/documents/:id/published/:entryID/unpublish", cfg.PipelineHandler.Unpublish)
	}

	return router
}
