// Package server exposes the engine over HTTP: one endpoint to run a turn,
// plus read-only endpoints for conversation state and the audit ledger.
package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/hupe1980/agentloop/core"
	"github.com/hupe1980/agentloop/engine"
	"github.com/hupe1980/agentloop/logging"
)

// maxRequestBodySize caps chat request bodies (1MB).
const maxRequestBodySize = 1 << 20

// Options configures the HTTP handler.
type Options struct {
	Logger logging.Logger

	// RequestTimeout bounds a single turn end to end. Zero disables it.
	RequestTimeout time.Duration
}

// Handler serves the agent HTTP API.
type Handler struct {
	engine *engine.Engine
	logger logging.Logger
	router chi.Router
}

// New wires the engine into a chi router.
func New(e *engine.Engine, optFns ...func(o *Options)) *Handler {
	opts := Options{
		Logger: logging.NewDefaultSlogLogger(),
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}

	h := &Handler{engine: e, logger: opts.Logger}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	if opts.RequestTimeout > 0 {
		r.Use(middleware.Timeout(opts.RequestTimeout))
	}

	r.Get("/healthz", h.Health)
	r.Route("/v1", func(r chi.Router) {
		r.Post("/chat", h.Chat)
		r.Get("/sessions/{sessionID}", h.GetSession)
		r.Get("/audit", h.GetAudit)
	})

	h.router = r

	return h
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

// ChatRequest is the body of POST /v1/chat.
type ChatRequest struct {
	SessionID string `json:"session_id"`
	Input     string `json:"input"`
}

// ChatResponse is the result of a completed turn.
type ChatResponse struct {
	SessionID   string        `json:"session_id"`
	FinalAnswer string        `json:"final_answer,omitempty"`
	Outcome     *core.Outcome `json:"outcome,omitempty"`
	Messages    int           `json:"messages"`
}

// Chat runs one turn and returns the terminal snapshot. Concurrent turns
// for the same session are rejected with 409.
func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest

	body := http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if strings.TrimSpace(req.SessionID) == "" {
		Error(w, http.StatusBadRequest, "session_id must not be empty")
		return
	}
	if strings.TrimSpace(req.Input) == "" {
		Error(w, http.StatusBadRequest, "input must not be empty")
		return
	}

	conv, err := h.engine.StartOrContinueTurn(r.Context(), req.SessionID, req.Input)
	if err != nil {
		if errors.Is(err, engine.ErrSessionBusy) {
			Error(w, http.StatusConflict, "a turn is already running for this session")
			return
		}

		h.logger.Error("chat.turn.failed", "session_id", req.SessionID, "error", err)
		Error(w, http.StatusInternalServerError, "turn failed")
		return
	}

	resp := ChatResponse{
		SessionID: conv.SessionID,
		Outcome:   conv.Outcome,
		Messages:  len(conv.Messages),
	}
	if conv.FinalAnswer != nil {
		resp.FinalAnswer = *conv.FinalAnswer
	}

	JSON(w, http.StatusOK, resp)
}

// GetSession returns the full conversation snapshot.
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	conv, err := h.engine.GetState(sessionID)
	if err != nil {
		if errors.Is(err, core.ErrSessionNotFound) {
			Error(w, http.StatusNotFound, "session not found")
			return
		}

		h.logger.Error("session.get.failed", "session_id", sessionID, "error", err)
		Error(w, http.StatusInternalServerError, "failed to load session")
		return
	}

	JSON(w, http.StatusOK, conv)
}

// GetAudit returns tool invocation records, newest first. An empty
// session_id returns the global tail.
func (h *Handler) GetAudit(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session_id")

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			Error(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	recs, err := h.engine.GetAudit(r.Context(), sessionID, limit)
	if err != nil {
		h.logger.Error("audit.list.failed", "session_id", sessionID, "error", err)
		Error(w, http.StatusInternalServerError, "failed to read audit ledger")
		return
	}

	JSON(w, http.StatusOK, map[string]any{"records": recs})
}

// Health reports liveness.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}
