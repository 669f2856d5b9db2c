package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/docstream/docstream-backend/internal/domain"
	"github.com/docstream/docstream-backend/internal/pkg/apierr"
)

type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type ErrorEnvelope struct {
	OK        bool      `json:"ok"`
	Timestamp time.Time `json:"timestamp"`
	Error     APIError  `json:"error"`
}

// DocumentEnvelope is the uniform mutating-operation response: a success
// flag, an optional message, a timestamp and the current document record for
// the client to poll against.
type DocumentEnvelope struct {
	OK        bool             `json:"ok"`
	Message   string           `json:"message,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
	Document  *domain.Document `json:"document,omitempty"`
}

func RespondError(c *gin.Context, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	c.JSON(status, ErrorEnvelope{
		Timestamp: time.Now().UTC(),
		Error: APIError{
			Message: msg,
			Code:    code,
		},
	})
}

// RespondAPIError maps the error taxonomy onto HTTP statuses. A polling
// client can tell "not ready yet" (412) from "permanently failed" (502).
func RespondAPIError(c *gin.Context, err error) {
	kind := apierr.KindOf(err)
	RespondError(c, apierr.HTTPStatus(kind), apierr.CodeOf(err), err)
}

func RespondDocument(c *gin.Context, status int, message string, doc *domain.Document) {
	c.JSON(status, DocumentEnvelope{
		OK:        true,
		Message:   message,
		Timestamp: time.Now().UTC(),
		Document:  doc,
	})
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}
