package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chi_middleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"

	"github.com/ChirchirMeshack/SomaBot/internal/bot_service/domain"
	"github.com/ChirchirMeshack/SomaBot/internal/bot_service/ingress"
)

type SignatureVerifier interface {
	Verify(fullURL string, params map[string]string, signature string) bool
}

type MessageHandler interface {
	Handle(ctx context.Context, msg domain.NormalizedMessage) error
}

type StatusTracker interface {
	ApplyCallback(ctx context.Context, providerID, status string) bool
	Get(providerID string) (domain.MessageStatusRecord, bool)
}

// WebhookHandler serves the messaging provider's inbound and status callbacks
// and the status lookup.
type WebhookHandler struct {
	verifier      SignatureVerifier
	router        MessageHandler
	statuses      StatusTracker
	publicBaseURL string
	now           func() time.Time
	logger        *slog.Logger
	validate      *validator.Validate
}

func NewWebhookHandler(verifier SignatureVerifier, router MessageHandler, statuses StatusTracker, publicBaseURL string, logger *slog.Logger, validate *validator.Validate) *WebhookHandler {
	return &WebhookHandler{
		verifier:      verifier,
		router:        router,
		statuses:      statuses,
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
		now:           time.Now,
		logger:        logger.With("handler", "webhook"),
		validate:      validate,
	}
}

func (h *WebhookHandler) RegisterRoutes(r chi.Router) {
	r.Post("/webhook", h.HandleInbound)
	r.Post("/status-callback", h.HandleStatusCallback)
	r.Get("/status/{id}", h.HandleGetStatus)
}

// HandleInbound verifies, normalizes and routes one inbound message. Once the
// signature is accepted the provider always gets 200, whatever happens next.
func (h *WebhookHandler) HandleInbound(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.logger.With("request_id", chi_middleware.GetReqID(ctx))

	params := h.formParams(r, logger)
	if !h.verifier.Verify(h.fullURL(r), params, r.Header.Get(ingress.SignatureHeader)) {
		logger.WarnContext(ctx, "Rejected webhook with invalid signature", "remote_addr", r.RemoteAddr)
		respondError(w, http.StatusForbidden, "Forbidden", domain.ErrInvalidSignature.Error())
		return
	}

	msg := ingress.Normalize(params, h.now())
	logger.InfoContext(ctx, "Received inbound message", "message_id", msg.ID, "from", msg.From, "kind", msg.Kind)

	if err := h.router.Handle(ctx, msg); err != nil {
		logger.ErrorContext(ctx, "Inbound message handling failed", "message_id", msg.ID, "error", err)
	}
	respondOK(w)
}

// HandleStatusCallback applies a delivery status update. Unknown ids and
// incomplete callbacks are acknowledged and ignored.
func (h *WebhookHandler) HandleStatusCallback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.logger.With("request_id", chi_middleware.GetReqID(ctx))

	params := h.formParams(r, logger)
	if sig := r.Header.Get(ingress.SignatureHeader); sig != "" && !h.verifier.Verify(h.fullURL(r), params, sig) {
		logger.WarnContext(ctx, "Rejected status callback with invalid signature", "remote_addr", r.RemoteAddr)
		respondError(w, http.StatusForbidden, "Forbidden", domain.ErrInvalidSignature.Error())
		return
	}

	req := StatusCallbackRequest{MessageSid: params["MessageSid"], MessageStatus: params["MessageStatus"]}
	if err := h.validate.StructCtx(ctx, req); err != nil {
		logger.WarnContext(ctx, "Ignoring incomplete status callback", "error", err)
		respondOK(w)
		return
	}

	if !h.statuses.ApplyCallback(ctx, req.MessageSid, req.MessageStatus) {
		logger.DebugContext(ctx, "Status callback for unknown message", "message_sid", req.MessageSid)
	}
	respondOK(w)
}

func (h *WebhookHandler) HandleGetStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	rec, ok := h.statuses.Get(id)
	if !ok {
		respondError(w, http.StatusNotFound, "Message not found", "")
		return
	}
	respondJSON(w, http.StatusOK, rec)
}

// formParams returns the first value of every form field. A body that cannot
// be parsed yields no fields.
func (h *WebhookHandler) formParams(r *http.Request, logger *slog.Logger) map[string]string {
	params := make(map[string]string)
	if err := r.ParseForm(); err != nil {
		logger.WarnContext(r.Context(), "Failed to parse form body", "error", err)
		return params
	}
	for k, v := range r.PostForm {
		if len(v) > 0 {
			params[k] = v[0]
		}
	}
	return params
}

// fullURL rebuilds the URL the provider signed.
func (h *WebhookHandler) fullURL(r *http.Request) string {
	if h.publicBaseURL != "" {
		return h.publicBaseURL + r.URL.RequestURI()
	}
	scheme := "http"
	if r.TLS != nil || strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https") {
		scheme = "https"
	}
	return scheme + "://" + r.Host + r.URL.RequestURI()
}
