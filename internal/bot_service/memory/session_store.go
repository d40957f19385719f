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

const (
	sessionKeyPrefix  = "user_session:"
	lastQuizKeyPrefix = "last_quiz:"

	DefaultSessionTTL = time.Hour
)

// SessionStore owns a user's interaction state: the free-form session map,
// which expires, and the last quiz sent, which does not.
type SessionStore struct {
	cache  Cache
	ttl    time.Duration
	logger *slog.Logger
}

func NewSessionStore(c Cache, ttl time.Duration, logger *slog.Logger) *SessionStore {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &SessionStore{cache: c, ttl: ttl, logger: logger.With("component", "session_store")}
}

// GetSession returns nil when no session exists.
func (s *SessionStore) GetSession(ctx context.Context, phone string) (map[string]any, error) {
	raw, err := s.cache.Get(ctx, sessionKeyPrefix+phone)
	if errors.Is(err, cache.ErrMiss) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load session for %s: %w", phone, err)
	}
	var session map[string]any
	if err := json.Unmarshal([]byte(raw), &session); err != nil {
		return nil, fmt.Errorf("decode session for %s: %w", phone, err)
	}
	return session, nil
}

// SetSession replaces the session and restarts its TTL.
func (s *SessionStore) SetSession(ctx context.Context, phone string, session map[string]any) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := s.cache.Set(ctx, sessionKeyPrefix+phone, string(data), s.ttl); err != nil {
		return fmt.Errorf("save session for %s: %w", phone, err)
	}
	return nil
}

func (s *SessionStore) DeleteSession(ctx context.Context, phone string) error {
	if err := s.cache.Delete(ctx, sessionKeyPrefix+phone); err != nil {
		return fmt.Errorf("delete session for %s: %w", phone, err)
	}
	return nil
}

// LastQuiz returns nil when the user has no pending quiz.
func (s *SessionStore) LastQuiz(ctx context.Context, phone string) (*domain.LastQuiz, error) {
	raw, err := s.cache.Get(ctx, lastQuizKeyPrefix+phone)
	if errors.Is(err, cache.ErrMiss) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load last quiz for %s: %w", phone, err)
	}
	var q domain.LastQuiz
	if err := json.Unmarshal([]byte(raw), &q); err != nil {
		s.logger.WarnContext(ctx, "discarding unreadable last quiz", "phone", phone, "error", err)
		return nil, nil
	}
	return &q, nil
}

func (s *SessionStore) RememberQuiz(ctx context.Context, phone string, q domain.LastQuiz) error {
	data, err := json.Marshal(q)
	if err != nil {
		return fmt.Errorf("encode last quiz: %w", err)
	}
	if err := s.cache.Set(ctx, lastQuizKeyPrefix+phone, string(data), 0); err != nil {
		return fmt.Errorf("save last quiz for %s: %w", phone, err)
	}
	return nil
}

func (s *SessionStore) ForgetQuiz(ctx context.Context, phone string) error {
	if err := s.cache.Delete(ctx, lastQuizKeyPrefix+phone); err != nil {
		return fmt.Errorf("delete last quiz for %s: %w", phone, err)
	}
	return nil
}
