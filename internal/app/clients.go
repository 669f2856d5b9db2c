package app

import (
	"github.com/docstream/docstream-backend/internal/clients/aiengine"
	"github.com/docstream/docstream-backend/internal/clients/catalog"
	"github.com/docstream/docstream-backend/internal/clients/extractor"
	"github.com/docstream/docstream-backend/internal/pkg/logger"
)

type Clients struct {
	Extractor extractor.Client
	AIEngine  aiengine.Engine
	Catalog   catalog.Client
}

func wireClients(log *logger.Logger, cfg Config) Clients {
	var engine aiengine.Engine
	if cfg.AIEngineMock {
		log.Info("Using deterministic mock AI engine")
		engine = aiengine.NewMockEngine()
	} else {
		engine = aiengine.NewHTTPEngine(log, cfg.AIEngineURL)
	}
	return Clients{
		Extractor: extractor.NewClient(log, cfg.ExtractorURL),
		AIEngine:  engine,
		Catalog:   catalog.NewClient(log, cfg.CatalogURL),
	}
}
