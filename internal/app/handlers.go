package app

import (
	"github.com/docstream/docstream-backend/internal/handlers"
)

type Handlers struct {
	Health   *handlers.HealthHandler
	Document *handlers.DocumentHandler
	Pipeline *handlers.PipelineHandler
}

func wireHandlers(svcs Services, clients Clients) Handlers {
	return Handlers{
		Health:   handlers.NewHealthHandler(clients.Extractor),
		Document: handlers.NewDocumentHandler(svcs.Ingest, svcs.Documents),
		Pipeline: handlers.NewPipelineHandler(svcs.Reduce, svcs.Chunk, svcs.Translate, svcs.Publish),
	}
}
