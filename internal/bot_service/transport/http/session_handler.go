package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chi_middleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
)

type SessionCache interface {
	GetSession(ctx context.Context, phone string) (map[string]any, error)
	SetSession(ctx context.Context, phone string, session map[string]any) error
	DeleteSession(ctx context.Context, phone string) error
}

// SessionHandler lets operators inspect and seed per-user session state.
type SessionHandler struct {
	sessions SessionCache
	logger   *slog.Logger
	validate *validator.Validate
}

func NewSessionHandler(sessions SessionCache, logger *slog.Logger, validate *validator.Validate) *SessionHandler {
	return &SessionHandler{sessions: sessions, logger: logger.With("handler", "session"), validate: validate}
}

func (h *SessionHandler) RegisterRoutes(r chi.Router) {
	r.Route("/bot/session", func(r chi.Router) {
		r.Post("/", h.HandleSetSession)
		r.Post("/get", h.HandleGetSession)
		r.Post("/delete", h.HandleDeleteSession)
	})
}

func (h *SessionHandler) HandleSetSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.logger.With("request_id", chi_middleware.GetReqID(ctx))

	var req SetSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid JSON format", err.Error())
		return
	}
	if err := h.validate.StructCtx(ctx, req); err != nil {
		respondError(w, http.StatusBadRequest, "Phone and data are required", err.Error())
		return
	}

	if err := h.sessions.SetSession(ctx, req.Phone, req.Data); err != nil {
		logger.ErrorContext(ctx, "Failed to set session", "phone", req.Phone, "error", err)
		respondError(w, http.StatusInternalServerError, "Failed to set session", "")
		return
	}
	respondJSON(w, http.StatusOK, StatusOKResponse{Status: "ok", Message: "Session set"})
}

func (h *SessionHandler) HandleGetSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.logger.With("request_id", chi_middleware.GetReqID(ctx))

	var req GetSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid JSON format", err.Error())
		return
	}
	if err := h.validate.StructCtx(ctx, req); err != nil {
		respondError(w, http.StatusBadRequest, "Phone is required", err.Error())
		return
	}

	session, err := h.sessions.GetSession(ctx, req.Phone)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to get session", "phone", req.Phone, "error", err)
		respondError(w, http.StatusInternalServerError, "Failed to get session", "")
		return
	}
	respondJSON(w, http.StatusOK, SessionResponse{Status: "ok", Session: session})
}

func (h *SessionHandler) HandleDeleteSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.logger.With("request_id", chi_middleware.GetReqID(ctx))

	var req DeleteSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid JSON format", err.Error())
		return
	}
	if err := h.validate.StructCtx(ctx, req); err != nil {
		respondError(w, http.StatusBadRequest, "Phone is required", err.Error())
		return
	}

	if err := h.sessions.DeleteSession(ctx, req.Phone); err != nil {
		logger.ErrorContext(ctx, "Failed to delete session", "phone", req.Phone, "error", err)
		respondError(w, http.StatusInternalServerError, "Failed to delete session", "")
		return
	}
	respondJSON(w, http.StatusOK, StatusOKResponse{Status: "ok", Message: "Session deleted"})
}
