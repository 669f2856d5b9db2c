package app

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/docstream/docstream-backend/internal/data/db"
	"github.com/docstream/docstream-backend/internal/pkg/logger"
	"github.com/docstream/docstream-backend/internal/platform/observability"
	"github.com/docstream/docstream-backend/internal/platform/storage"
)

// App owns the process-wide singletons: database, storage provider, clients,
// services and the HTTP router. Everything is wired once here and passed by
// reference; there is no global mutable state.
type App struct {
	Log      *logger.Logger
	Cfg      Config
	DB       *gorm.DB
	Storage  storage.Provider
	Clients  Clients
	Repos    Repos
	Services Services
	Router   *gin.Engine

	traceShutdown func(context.Context) error
}

func New() (*App, error) {
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	log.Info("Loading environment variables...")
	cfg := LoadConfig(log)

	traceShutdown := observability.InitTracing(context.Background(), log, observability.TracingConfig{
		ServiceName: cfg.ServiceName,
		Environment: cfg.LogMode,
		Version:     os.Getenv("SERVICE_VERSION"),
	})

	pg, err := db.NewPostgresService(log)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("init postgres: %w", err)
	}
	if err := pg.AutoMigrateAll(); err != nil {
		log.Sync()
		return nil, fmt.Errorf("postgres automigrate: %w", err)
	}
	theDB := pg.DB()

	store, err := wireStorage(log, cfg)
	if err != nil {
		log.Sync()
		return nil, err
	}

	clientset := wireClients(log, cfg)
	reposet := wireRepos(theDB, log)
	serviceset := wireServices(log, cfg, reposet, store, clientset)
	handlerset := wireHandlers(serviceset, clientset)
	router := wireRouter(cfg, handlerset)

	return &App{
		Log:      log,
		Cfg:      cfg,
		DB:       theDB,
		Storage:  store,
		Clients:  clientset,
		Repos:    reposet,
		Services: serviceset,
		Router:   router,

		traceShutdown: traceShutdown,
	}, nil
}

func (a *App) Run() error {
	if a == nil || a.Router == nil {
		return fmt.Errorf("app not initialized")
	}
	a.Log.Info("Server listening", "port", a.Cfg.Port)
	return a.Router.Run(":" + a.Cfg.Port)
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.traceShutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := a.traceShutdown(ctx); err != nil {
			a.Log.Warn("Trace provider shutdown failed", "error", err)
		}
		cancel()
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}
