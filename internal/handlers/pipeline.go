package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/docstream/docstream-backend/internal/pkg/apierr"
	"github.com/docstream/docstream-backend/internal/services"
)

// PipelineHandler exposes the stage triggers. Every route is synchronous:
// the response carries the record after the stage ran, and clients poll GET
// /documents/:id for anything longer-lived.
type PipelineHandler struct {
	reduceService    services.ReduceService
	chunkService     services.ChunkService
	translateService services.TranslateService
	publishService   services.PublishService
}

func NewPipelineHandler(reduce services.ReduceService, chunk services.ChunkService, translate services.TranslateService, publish services.PublishService) *PipelineHandler {
	return &PipelineHandler{
		reduceService:    reduce,
		chunkService:     chunk,
		translateService: translate,
		publishService:   publish,
	}
}

func (ph *PipelineHandler) Reduce(c *gin.Context) {
	id, err := parseDocumentID(c)
	if err != nil {
		RespondAPIError(c, err)
		return
	}
	doc, err := ph.reduceService.Reduce(c.Request.Context(), id)
	if err != nil {
		RespondAPIError(c, err)
		return
	}
	RespondDocument(c, http.StatusOK, "document reduced", doc)
}

func (ph *PipelineHandler) Chunk(c *gin.Context) {
	id, err := parseDocumentID(c)
	if err != nil {
		RespondAPIError(c, err)
		return
	}
	// ?language= switches to translation-specific chunking.
	if language := strings.TrimSpace(c.Query("language")); language != "" {
		doc, err := ph.chunkService.ChunkTranslation(c.Request.Context(), id, language)
		if err != nil {
			RespondAPIError(c, err)
			return
		}
		RespondDocument(c, http.StatusOK, fmt.Sprintf("translation %s chunked", strings.ToLower(language)), doc)
		return
	}
	doc, err := ph.chunkService.Chunk(c.Request.Context(), id)
	if err != nil {
		RespondAPIError(c, err)
		return
	}
	RespondDocument(c, http.StatusOK, "document chunked", doc)
}

type translateRequest struct {
	Language  string   `json:"language"`
	Languages []string `json:"languages"`
}

func (ph *PipelineHandler) Translate(c *gin.Context) {
	id, err := parseDocumentID(c)
	if err != nil {
		RespondAPIError(c, err)
		return
	}
	var req translateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondAPIError(c, apierr.Validation("invalid_request_body", err))
		return
	}
	languages := req.Languages
	if req.Language != "" {
		languages = append(languages, req.Language)
	}
	doc, err := ph.translateService.Translate(c.Request.Context(), id, languages)
	if err != nil {
		RespondAPIError(c, err)
		return
	}
	RespondDocument(c, http.StatusOK, "document translated", doc)
}

type publishRequest struct {
	Language  string `json:"language"`
	Version   string `json:"version"`
	ProductID string `json:"product_id"`
}

func (ph *PipelineHandler) Publish(c *gin.Context) {
	id, err := parseDocumentID(c)
	if err != nil {
		RespondAPIError(c, err)
		return
	}
	var req publishRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondAPIError(c, apierr.Validation("invalid_request_body", err))
		return
	}
	doc, err := ph.publishService.Publish(c.Request.Context(), id, services.PublishInput{
		Language:  req.Language,
		Version:   req.Version,
		ProductID: req.ProductID,
	})
	if err != nil {
		RespondAPIError(c, err)
		return
	}
	RespondDocument(c, http.StatusOK, "document published", doc)
}

func (ph *PipelineHandler) Unpublish(c *gin.Context) {
	id, err := parseDocumentID(c)
	if err != nil {
		RespondAPIError(c, err)
		return
	}
	rawEntry := c.Param("entryID")
	entryID, err := uuid.Parse(rawEntry)
	if err != nil {
		RespondAPIError(c, apierr.Validationf("invalid_entry_id", "invalid published entry id %q", rawEntry))
		return
	}
	doc, err := ph.publishService.Unpublish(c.Request.Context(), id, entryID)
	if err != nil {
		RespondAPIError(c, err)
		return
	}
	RespondDocument(c, http.StatusOK, "variant unpublished", doc)
}
