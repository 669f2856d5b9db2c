package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/docstream/docstream-backend/internal/clients/extractor"
	"github.com/docstream/docstream-backend/internal/data/repos/documents"
	"github.com/docstream/docstream-backend/internal/domain"
	"github.com/docstream/docstream-backend/internal/handlers"
	"github.com/docstream/docstream-backend/internal/pkg/apierr"
	"github.com/docstream/docstream-backend/internal/server"
	"github.com/docstream/docstream-backend/internal/services"
)

// stubServices answers every operation from canned values so routing and
// error mapping can be tested without storage or collaborators.
type stubServices struct {
	doc *domain.Document
	err error
}

func (s *stubServices) Upload(context.Context, services.UploadInput) (*domain.Document, error) {
	return s.doc, s.err
}
func (s *stubServices) Get(context.Context, uuid.UUID) (*domain.Document, error) {
	return s.doc, s.err
}
func (s *stubServices) List(context.Context, documents.ListParams) (*services.DocumentPage, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &services.DocumentPage{Documents: []*domain.Document{s.doc}, Total: 1, Page: 1, Limit: 20}, nil
}
func (s *stubServices) Delete(context.Context, uuid.UUID) error { return s.err }
func (s *stubServices) Reduce(context.Context, uuid.UUID) (*domain.Document, error) {
	return s.doc, s.err
}
func (s *stubServices) Chunk(context.Context, uuid.UUID) (*domain.Document, error) {
	return s.doc, s.err
}
func (s *stubServices) ChunkTranslation(context.Context, uuid.UUID, string) (*domain.Document, error) {
	return s.doc, s.err
}
func (s *stubServices) Translate(context.Context, uuid.UUID, []string) (*domain.Document, error) {
	return s.doc, s.err
}
func (s *stubServices) Publish(context.Context, uuid.UUID, services.PublishInput) (*domain.Document, error) {
	return s.doc, s.err
}
func (s *stubServices) Unpublish(context.Context, uuid.UUID, uuid.UUID) (*domain.Document, error) {
	return s.doc, s.err
}

type healthClient struct{ healthy bool }

func (h *healthClient) Extract(context.Context, string, []byte) (*extractor.Result, error) {
	return nil, fmt.Errorf("not implemented")
}

func (h *healthClient) Health(context.Context) error {
	if h.healthy {
		return nil
	}
	return fmt.Errorf("down")
}

func newTestRouter(stub *stubServices, healthy bool) *gin.Engine {
	gin.SetMode(gin.TestMode)
	return server.NewRouter(server.RouterConfig{
		Mode:            "test",
		HealthHandler:   handlers.NewHealthHandler(&healthClient{healthy: healthy}),
		DocumentHandler: handlers.NewDocumentHandler(stub, stub),
		PipelineHandler: handlers.NewPipelineHandler(stub, stub, stub, stub),
	})
}

func sampleDocument() *domain.Document {
	doc := &domain.Document{
		ID:           uuid.New(),
		OriginalName: "manual.pdf",
		Status:       domain.StatusProcessed,
		UploadedAt:   time.Now().UTC(),
	}
	doc.SetSlot(domain.SlotAnalysis, domain.ArtifactRef{URI: "mem://private/a", Key: "a"})
	return doc
}

func TestUploadRequiresFile(t *testing.T) {
	router := newTestRouter(&stubServices{doc: sampleDocument()}, true)

	req := httptest.NewRequest(http.MethodPost, "/api/documents", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
	var env handlers.ErrorEnvelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	require.False(t, env.OK)
	require.Equal(t, "missing_file", env.Error.Code)
}

func TestUploadReturnsDocumentEnvelope(t *testing.T) {
	doc := sampleDocument()
	router := newTestRouter(&stubServices{doc: doc}, true)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", "manual.pdf")
	require.NoError(t, err)
	_, err = fw.Write([]byte("%PDF-1.7"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/documents", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)
	var env handlers.DocumentEnvelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	require.True(t, env.OK)
	require.False(t, env.Timestamp.IsZero())
	require.NotNil(t, env.Document)
	require.Equal(t, doc.ID, env.Document.ID)
}

func TestGetRejectsMalformedID(t *testing.T) {
	router := newTestRouter(&stubServices{doc: sampleDocument()}, true)

	req := httptest.NewRequest(http.MethodGet, "/api/documents/not-a-uuid", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestErrorKindsMapToStatuses(t *testing.T) {
	id := uuid.New()
	cases := []struct {
		name   string
		err    error
		status int
	}{
		{"not found", apierr.NotFound("document_not_found", fmt.Errorf("nope")), http.StatusNotFound},
		{"precondition", apierr.Precondition("missing_prerequisite_artifact", fmt.Errorf("no analysis")), http.StatusPreconditionFailed},
		{"collaborator", apierr.Collaborator("reduce_failed", fmt.Errorf("engine down")), http.StatusBadGateway},
		{"conflict", apierr.Conflict("concurrent_update", fmt.Errorf("raced")), http.StatusConflict},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			router := newTestRouter(&stubServices{err: tc.err}, true)
			req := httptest.NewRequest(http.MethodPost, "/api/documents/"+id.String()+"/reduce", nil)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)
			require.Equal(t, tc.status, w.Code)

			var env handlers.ErrorEnvelope
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
			require.Equal(t, apierr.CodeOf(tc.err), env.Error.Code)
		})
	}
}

func TestTranslateAcceptsSingleOrMultipleLanguages(t *testing.T) {
	doc := sampleDocument()
	router := newTestRouter(&stubServices{doc: doc}, true)
	id := uuid.New()

	for _, payload := range []string{`{"language":"fr"}`, `{"languages":["fr","de"]}`} {
		req := httptest.NewRequest(http.MethodPost, "/api/documents/"+id.String()+"/translate", strings.NewReader(payload))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		require.Equal(t, http.StatusOK, w.Code, "payload %s", payload)
	}
}

func TestHealthcheckReportsCollaborator(t *testing.T) {
	router := newTestRouter(&stubServices{doc: sampleDocument()}, false)

	req := httptest.NewRequest(http.MethodGet, "/healthcheck", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "unreachable")
}
