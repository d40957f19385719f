package app

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/mock"

	"github.com/ChirchirMeshack/SomaBot/internal/bot_service/domain"
	"github.com/ChirchirMeshack/SomaBot/internal/bot_service/memory"
	"github.com/ChirchirMeshack/SomaBot/internal/platform/cache"
)

type MockLearningRepository struct {
	mock.Mock
}

func (m *MockLearningRepository) GetUserByPhone(ctx context.Context, phone string) (*domain.User, error) {
	args := m.Called(ctx, phone)
	u, _ := args.Get(0).(*domain.User)
	return u, args.Error(1)
}

func (m *MockLearningRepository) ListLessons(ctx context.Context) ([]domain.Lesson, error) {
	args := m.Called(ctx)
	l, _ := args.Get(0).([]domain.Lesson)
	return l, args.Error(1)
}

func (m *MockLearningRepository) GetLatestCompletedLesson(ctx context.Context, userID int64) (*domain.Lesson, error) {
	args := m.Called(ctx, userID)
	l, _ := args.Get(0).(*domain.Lesson)
	return l, args.Error(1)
}

func (m *MockLearningRepository) ListQuizzes(ctx context.Context) ([]domain.Quiz, error) {
	args := m.Called(ctx)
	q, _ := args.Get(0).([]domain.Quiz)
	return q, args.Error(1)
}

func (m *MockLearningRepository) ListQuizzesByLesson(ctx context.Context, lessonID int64) ([]domain.Quiz, error) {
	args := m.Called(ctx, lessonID)
	q, _ := args.Get(0).([]domain.Quiz)
	return q, args.Error(1)
}

func (m *MockLearningRepository) ListSubmissionsForQuizzes(ctx context.Context, userID int64, quizIDs []int64) ([]domain.QuizSubmission, error) {
	args := m.Called(ctx, userID, quizIDs)
	s, _ := args.Get(0).([]domain.QuizSubmission)
	return s, args.Error(1)
}

func (m *MockLearningRepository) ListRecentSubmissions(ctx context.Context, userID int64, limit int) ([]domain.QuizSubmission, error) {
	args := m.Called(ctx, userID, limit)
	s, _ := args.Get(0).([]domain.QuizSubmission)
	return s, args.Error(1)
}

func (m *MockLearningRepository) ListProgress(ctx context.Context, userID int64) ([]domain.Progress, error) {
	args := m.Called(ctx, userID)
	p, _ := args.Get(0).([]domain.Progress)
	return p, args.Error(1)
}

func (m *MockLearningRepository) ListPendingScheduledQuizzes(ctx context.Context) ([]domain.ScheduledQuiz, error) {
	args := m.Called(ctx)
	s, _ := args.Get(0).([]domain.ScheduledQuiz)
	return s, args.Error(1)
}

type MockAssistant struct {
	mock.Mock
}

func (m *MockAssistant) Chat(ctx context.Context, turns []domain.Turn) (string, error) {
	args := m.Called(ctx, turns)
	return args.String(0), args.Error(1)
}

func (m *MockAssistant) GenerateQuiz(ctx context.Context, lesson domain.Lesson, band domain.DifficultyBand) (string, error) {
	args := m.Called(ctx, lesson, band)
	return args.String(0), args.Error(1)
}

func (m *MockAssistant) QuizFeedback(ctx context.Context, question, correctAnswer, userAnswer string) (string, error) {
	args := m.Called(ctx, question, correctAnswer, userAnswer)
	return args.String(0), args.Error(1)
}

func (m *MockAssistant) ProgressInsights(ctx context.Context, progress []domain.Progress) (string, error) {
	args := m.Called(ctx, progress)
	return args.String(0), args.Error(1)
}

type recordingReplier struct {
	mu   sync.Mutex
	sent []domain.OutboundMessage
}

func (r *recordingReplier) Reply(_ context.Context, msg domain.OutboundMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, msg)
	return nil
}

func (r *recordingReplier) ReplyAll(ctx context.Context, msgs []domain.OutboundMessage) error {
	for _, m := range msgs {
		if err := r.Reply(ctx, m); err != nil {
			return err
		}
	}
	return nil
}

func (r *recordingReplier) bodies() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.sent))
	for i, m := range r.sent {
		out[i] = m.Body
	}
	return out
}

type routerFixture struct {
	router   *MessageRouter
	repo     *MockLearningRepository
	llm      *MockAssistant
	replies  *recordingReplier
	contexts *memory.ContextStore
	sessions *memory.SessionStore
	redis    *miniredis.Miniredis
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newRouterFixture(t *testing.T) *routerFixture {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	c := cache.NewRedisCacheFromClient(client)

	f := &routerFixture{
		repo:     new(MockLearningRepository),
		llm:      new(MockAssistant),
		replies:  &recordingReplier{},
		contexts: memory.NewContextStore(c, discardLogger()),
		sessions: memory.NewSessionStore(c, memory.DefaultSessionTTL, discardLogger()),
		redis:    mr,
	}
	f.router = NewMessageRouter(RouterDeps{
		Repo:          f.repo,
		Conversations: f.contexts,
		Quizzes:       f.sessions,
		Assistant:     f.llm,
		Replier:       f.replies,
	}, discardLogger())
	return f
}

func textFrom(phone, body string) domain.NormalizedMessage {
	return domain.NormalizedMessage{ID: "SM1", From: phone, Body: body, Kind: domain.KindText}
}
