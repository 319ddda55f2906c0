// Package api provides the HTTP surface over the session orchestrator.
package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/hsaleh/chequeflow/internal/common"
	"github.com/hsaleh/chequeflow/internal/normalize"
	"github.com/hsaleh/chequeflow/internal/orchestrator"
)

// Handler handles HTTP requests.
type Handler struct {
	orch     *orchestrator.Orchestrator
	maxBytes int64
}

// NewHandler creates a new handler. maxBytes caps uploaded artifacts; zero
// means the normalizer default.
func NewHandler(orch *orchestrator.Orchestrator, maxBytes int64) *Handler {
	if maxBytes <= 0 {
		maxBytes = normalize.DefaultMaxArtifactBytes
	}
	return &Handler{orch: orch, maxBytes: maxBytes}
}

// RegisterRoutes registers routes with the echo server.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.POST("/v1/turns", h.Turn)
	e.GET("/v1/sessions/:key", h.GetSession)
	e.POST("/v1/sessions/:key/confirm", h.Confirm)
	e.POST("/v1/sessions/:key/cancel", h.Cancel)
	e.GET("/health", h.Health)
}

// Health returns health status.
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "healthy"})
}

// Turn accepts a caller turn: multipart form with optional "artifact" file,
// optional "text" field and optional "session_key". An absent session key
// creates a new session.
func (h *Handler) Turn(c echo.Context) error {
	key := c.FormValue("session_key")
	text := c.FormValue("text")

	var artifact []byte
	var declaredMIME string
	if file, err := c.FormFile("artifact"); err == nil {
		if file.Size > h.maxBytes {
			return h.fail(c, common.NewUserError("artifact exceeds size ceiling", common.ErrTooLarge))
		}
		src, err := file.Open()
		if err != nil {
			return h.fail(c, err)
		}
		defer func() { _ = src.Close() }()

		artifact, err = io.ReadAll(io.LimitReader(src, h.maxBytes+1))
		if err != nil {
			return h.fail(c, err)
		}
		if int64(len(artifact)) > h.maxBytes {
			return h.fail(c, common.NewUserError("artifact exceeds size ceiling", common.ErrTooLarge))
		}
		declaredMIME = file.Header.Get("Content-Type")
	}

	ctx := c.Request().Context()

	if key == "" {
		started, err := h.orch.StartSession(ctx)
		if err != nil {
			return h.fail(c, err)
		}
		key = started.Session.Key

		// A bare create with no material returns the greeting.
		if len(artifact) == 0 && text == "" {
			return c.JSON(http.StatusOK, viewResult(started, verbose(c)))
		}
	}

	result, err := h.orch.HandleTurn(ctx, key, orchestrator.TurnInput{
		Artifact: artifact,
		MIMEType: declaredMIME,
		Text:     text,
	})
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, viewResult(result, verbose(c)))
}

// GetSession returns the current session state.
func (h *Handler) GetSession(c echo.Context) error {
	sess, err := h.orch.GetSession(c.Param("key"))
	if err != nil {
		return h.fail(c, err)
	}

	var message string
	if n := len(sess.Turns); n > 0 {
		message = sess.Turns[n-1].Text
	}
	return c.JSON(http.StatusOK, TurnResponse{
		SessionKey: sess.Key,
		State:      string(sess.State),
		Message:    message,
		Candidate:  viewCandidate(sess.Candidate, verbose(c)),
	})
}

// Confirm commits the session's draft, optionally applying corrections first.
// Returns the committed transaction or the next-step prompt.
func (h *Handler) Confirm(c echo.Context) error {
	var req ConfirmRequest
	if err := c.Bind(&req); err != nil && c.Request().ContentLength > 0 {
		return h.fail(c, common.NewUserError("malformed confirm body", common.ErrValidation))
	}

	result, err := h.orch.Confirm(c.Request().Context(), c.Param("key"), req.Corrections)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, viewResult(result, verbose(c)))
}

// Cancel terminates the session; idempotent.
func (h *Handler) Cancel(c echo.Context) error {
	result, err := h.orch.Cancel(c.Request().Context(), c.Param("key"))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, viewResult(result, verbose(c)))
}

func verbose(c echo.Context) bool {
	return c.QueryParam("verbose") == "1"
}

// fail maps the error taxonomy onto HTTP statuses.
func (h *Handler) fail(c echo.Context, err error) error {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, common.ErrValidation), errors.Is(err, common.ErrSessionClosed):
		status = http.StatusBadRequest
	case errors.Is(err, common.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, common.ErrTooLarge):
		status = http.StatusRequestEntityTooLarge
	case errors.Is(err, common.ErrConversion),
		errors.Is(err, common.ErrExtraction),
		errors.Is(err, common.ErrMaxRetries):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, common.ErrInvalidTransition):
		status = http.StatusConflict
	case errors.Is(err, common.ErrPersistence):
		status = http.StatusBadGateway
	}

	msg := err.Error()
	var userErr *common.UserError
	if errors.As(err, &userErr) {
		msg = userErr.UserMessage
	}
	return c.JSON(status, ErrorResponse{Error: msg})
}
