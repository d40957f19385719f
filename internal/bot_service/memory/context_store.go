package memory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ChirchirMeshack/SomaBot/internal/bot_service/domain"
	"github.com/ChirchirMeshack/SomaBot/internal/platform/cache"
)

// Cache is the key-value store the memory stores persist into.
// Get must return cache.ErrMiss for absent keys.
type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

const contextKeyPrefix = "ai_context:"

func contextKey(phone string) string { return contextKeyPrefix + phone }

// ContextStore keeps the rolling conversation per phone number. It has no
// locking of its own; callers serialize read-modify-write per user.
type ContextStore struct {
	cache  Cache
	logger *slog.Logger
}

func NewContextStore(c Cache, logger *slog.Logger) *ContextStore {
	return &ContextStore{cache: c, logger: logger.With("component", "context_store")}
}

// Get returns the stored turns, or an empty slice if none exist.
func (s *ContextStore) Get(ctx context.Context, phone string) ([]domain.Turn, error) {
	raw, err := s.cache.Get(ctx, contextKey(phone))
	if errors.Is(err, cache.ErrMiss) {
		return []domain.Turn{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load context for %s: %w", phone, err)
	}

	var turns []domain.Turn
	if err := json.Unmarshal([]byte(raw), &turns); err != nil {
		s.logger.WarnContext(ctx, "discarding unreadable conversation context", "phone", phone, "error", err)
		return []domain.Turn{}, nil
	}
	if turns == nil {
		turns = []domain.Turn{}
	}
	return turns, nil
}

// Set persists the newest domain.MaxContextTurns turns without expiry.
func (s *ContextStore) Set(ctx context.Context, phone string, turns []domain.Turn) error {
	if turns == nil {
		turns = []domain.Turn{}
	}
	data, err := json.Marshal(domain.TrimTurns(turns))
	if err != nil {
		return fmt.Errorf("encode context: %w", err)
	}
	if err := s.cache.Set(ctx, contextKey(phone), string(data), 0); err != nil {
		return fmt.Errorf("save context for %s: %w", phone, err)
	}
	return nil
}

// Clear stores an empty conversation.
func (s *ContextStore) Clear(ctx context.Context, phone string) error {
	return s.Set(ctx, phone, []domain.Turn{})
}

// Append adds turns to the stored conversation and returns what was saved.
func (s *ContextStore) Append(ctx context.Context, phone string, turns ...domain.Turn) ([]domain.Turn, error) {
	current, err := s.Get(ctx, phone)
	if err != nil {
		return nil, err
	}
	next := domain.TrimTurns(append(current, turns...))
	if err := s.Set(ctx, phone, next); err != nil {
		return nil, err
	}
	return next, nil
}
