package app

import (
	"github.com/docstream/docstream-backend/internal/pkg/logger"
	"github.com/docstream/docstream-backend/internal/platform/storage"
	"github.com/docstream/docstream-backend/internal/services"
)

type Services struct {
	Ingest    services.IngestService
	Reduce    services.ReduceService
	Chunk     services.ChunkService
	Translate services.TranslateService
	Publish   services.PublishService
	Documents services.DocumentService
}

func wireServices(log *logger.Logger, cfg Config, repos Repos, store storage.Provider, clients Clients) Services {
	return Services{
		Ingest:    services.NewIngestService(log, repos.Documents, store, clients.Extractor, cfg.MaxUploadBytes, cfg.AllowedMIMETypes),
		Reduce:    services.NewReduceService(log, repos.Documents, store, clients.AIEngine),
		Chunk:     services.NewChunkService(log, repos.Documents, store, clients.AIEngine),
		Translate: services.NewTranslateService(log, repos.Documents, store, clients.AIEngine),
		Publish:   services.NewPublishService(log, repos.Documents, store, clients.Catalog),
		Documents: services.NewDocumentService(log, repos.Documents, store),
	}
}
