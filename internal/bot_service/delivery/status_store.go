package delivery

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/ChirchirMeshack/SomaBot/internal/bot_service/domain"
	"github.com/ChirchirMeshack/SomaBot/internal/bot_service/provider"
)

// StatusSubjectPrefix prefixes the subject status events are published on,
// e.g. "message.status.delivered".
const StatusSubjectPrefix = "message.status."

// EventPublisher is satisfied by messagebroker.NatsClient.
type EventPublisher interface {
	Publish(ctx context.Context, subject string, data []byte) error
}

// StatusStore is the process-wide table of sent messages keyed by provider id.
type StatusStore struct {
	mu        sync.RWMutex
	records   map[string]*domain.MessageStatusRecord
	publisher EventPublisher
	now       func() time.Time
	logger    *slog.Logger
}

// NewStatusStore creates an empty store. publisher may be nil.
func NewStatusStore(publisher EventPublisher, logger *slog.Logger) *StatusStore {
	return &StatusStore{
		records:   make(map[string]*domain.MessageStatusRecord),
		publisher: publisher,
		now:       time.Now,
		logger:    logger.With("component", "status_store"),
	}
}

// Record creates the entry for a successful send. Results without a provider
// id are not tracked.
func (s *StatusStore) Record(ctx context.Context, msg domain.OutboundMessage, res *provider.SendResult) {
	if res == nil || res.ProviderMessageID == "" {
		return
	}
	now := s.now()
	rec := &domain.MessageStatusRecord{
		ProviderID:          res.ProviderMessageID,
		To:                  msg.To,
		Body:                msg.Body,
		MediaURL:            msg.MediaURL,
		Status:              domain.StatusSent,
		Timestamps:          map[string]time.Time{domain.StatusSent: now},
		RawProviderResponse: res.Raw,
	}

	s.mu.Lock()
	if _, exists := s.records[rec.ProviderID]; exists {
		s.mu.Unlock()
		s.logger.WarnContext(ctx, "duplicate provider id on send; keeping existing record", "provider_id", rec.ProviderID)
		return
	}
	s.records[rec.ProviderID] = rec
	s.mu.Unlock()

	s.publish(ctx, domain.StatusEvent{ProviderID: rec.ProviderID, To: rec.To, Status: rec.Status, OccurredAt: now})
}

// ApplyCallback records a provider status update. It returns false for ids
// that were never recorded, which are otherwise ignored. A status that ranks
// below the current one only gains a timestamp.
func (s *StatusStore) ApplyCallback(ctx context.Context, providerID, status string) bool {
	now := s.now()

	s.mu.Lock()
	rec, ok := s.records[providerID]
	if !ok {
		s.mu.Unlock()
		statusCallbacksTotal.WithLabelValues("unknown_id").Inc()
		s.logger.DebugContext(ctx, "status callback for unknown message", "provider_id", providerID, "status", status)
		return false
	}

	if _, seen := rec.Timestamps[status]; !seen {
		rec.Timestamps[status] = now
	}
	advanced := advances(rec.Status, status)
	if advanced {
		rec.Status = status
	}
	event := domain.StatusEvent{ProviderID: rec.ProviderID, To: rec.To, Status: status, OccurredAt: now}
	s.mu.Unlock()

	if !advanced {
		statusCallbacksTotal.WithLabelValues("stale").Inc()
		s.logger.InfoContext(ctx, "out-of-order status callback", "provider_id", providerID, "status", status)
		return true
	}
	statusCallbacksTotal.WithLabelValues("applied").Inc()
	s.publish(ctx, event)
	return true
}

// Get returns a copy of the record for providerID.
func (s *StatusStore) Get(providerID string) (domain.MessageStatusRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[providerID]
	if !ok {
		return domain.MessageStatusRecord{}, false
	}
	return rec.Clone(), true
}

func (s *StatusStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// advances reports whether next should replace current. Statuses outside the
// known set always apply since they cannot be ordered.
func advances(current, next string) bool {
	cur, curKnown := domain.StatusRank(current)
	nxt, nextKnown := domain.StatusRank(next)
	if !curKnown || !nextKnown {
		return true
	}
	return nxt >= cur
}

func (s *StatusStore) publish(ctx context.Context, event domain.StatusEvent) {
	if s.publisher == nil {
		return
	}
	data, err := json.Marshal(event)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to encode status event", "error", err)
		return
	}
	if err := s.publisher.Publish(ctx, StatusSubjectPrefix+event.Status, data); err != nil {
		s.logger.WarnContext(ctx, "failed to publish status event", "provider_id", event.ProviderID, "error", err)
	}
}
