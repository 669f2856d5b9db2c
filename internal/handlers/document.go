package handlers

import (
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/docstream/docstream-backend/internal/data/repos/documents"
	"github.com/docstream/docstream-backend/internal/domain"
	"github.com/docstream/docstream-backend/internal/pkg/apierr"
	"github.com/docstream/docstream-backend/internal/services"
)

type DocumentHandler struct {
	ingestService   services.IngestService
	documentService services.DocumentService
}

func NewDocumentHandler(ingestService services.IngestService, documentService services.DocumentService) *DocumentHandler {
	return &DocumentHandler{ingestService: ingestService, documentService: documentService}
}

func (dh *DocumentHandler) Upload(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		RespondAPIError(c, apierr.Validationf("missing_file", "multipart field %q is required", "file"))
		return
	}
	f, err := fileHeader.Open()
	if err != nil {
		RespondAPIError(c, apierr.Validation("unreadable_file", err))
		return
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		RespondAPIError(c, apierr.Validation("unreadable_file", err))
		return
	}

	mimeType := fileHeader.Header.Get("Content-Type")
	doc, err := dh.ingestService.Upload(c.Request.Context(), services.UploadInput{
		Filename: fileHeader.Filename,
		MimeType: mimeType,
		Data:     data,
	})
	if err != nil {
		RespondAPIError(c, err)
		return
	}
	RespondDocument(c, http.StatusCreated, "document uploaded and processed", doc)
}

func (dh *DocumentHandler) Get(c *gin.Context) {
	id, err := parseDocumentID(c)
	if err != nil {
		RespondAPIError(c, err)
		return
	}
	doc, err := dh.documentService.Get(c.Request.Context(), id)
	if err != nil {
		RespondAPIError(c, err)
		return
	}
	RespondOK(c, gin.H{"document": doc})
}

func (dh *DocumentHandler) List(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	status := domain.Status(c.Query("status"))
	if status != "" && !domain.IsValidStatus(status) {
		RespondAPIError(c, apierr.Validationf("invalid_status", "unknown status filter %q", status))
		return
	}

	result, err := dh.documentService.List(c.Request.Context(), documents.ListParams{
		Page:   page,
		Limit:  limit,
		Status: status,
	})
	if err != nil {
		RespondAPIError(c, err)
		return
	}
	RespondOK(c, result)
}

func (dh *DocumentHandler) Delete(c *gin.Context) {
	id, err := parseDocumentID(c)
	if err != nil {
		RespondAPIError(c, err)
		return
	}
	if err := dh.documentService.Delete(c.Request.Context(), id); err != nil {
		RespondAPIError(c, err)
		return
	}
	RespondOK(c, gin.H{"ok": true, "message": "document deleted"})
}

func parseDocumentID(c *gin.Context) (uuid.UUID, error) {
	raw := c.Param("id")
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, apierr.Validation("invalid_document_id", fmt.Errorf("invalid document id %q", raw))
	}
	return id, nil
}
