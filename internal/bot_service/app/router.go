// Package app holds the bot's conversational core: intent classification and
// the handlers that turn an inbound text message into replies.
package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/ChirchirMeshack/SomaBot/internal/bot_service/domain"
	"github.com/ChirchirMeshack/SomaBot/internal/bot_service/ingress"
	"github.com/ChirchirMeshack/SomaBot/internal/bot_service/memory"
	"github.com/ChirchirMeshack/SomaBot/internal/bot_service/quiz"
)

const (
	MsgNoQuizFound       = "I couldn't find a recent quiz for you. Send \"quiz me\" to get a new question!"
	MsgNoCompletedLesson = "You haven't completed any lessons yet. Finish a lesson first, then ask me to quiz you on it."
	MsgNoProgress        = "I don't have any progress for you yet. Complete a lesson and I'll tell you how you're doing."
	MsgTopicReset        = "Sure, let's start fresh. What would you like to talk about?"
)

// Assistant is the language model the router delegates text generation to.
type Assistant interface {
	Chat(ctx context.Context, turns []domain.Turn) (string, error)
	GenerateQuiz(ctx context.Context, lesson domain.Lesson, band domain.DifficultyBand) (string, error)
	QuizFeedback(ctx context.Context, question, correctAnswer, userAnswer string) (string, error)
	ProgressInsights(ctx context.Context, progress []domain.Progress) (string, error)
}

type ConversationStore interface {
	Get(ctx context.Context, phone string) ([]domain.Turn, error)
	Append(ctx context.Context, phone string, turns ...domain.Turn) ([]domain.Turn, error)
	Clear(ctx context.Context, phone string) error
}

type QuizStateStore interface {
	LastQuiz(ctx context.Context, phone string) (*domain.LastQuiz, error)
	RememberQuiz(ctx context.Context, phone string, q domain.LastQuiz) error
	ForgetQuiz(ctx context.Context, phone string) error
}

// Replier hands replies to the outbound pipeline. ReplyAll keeps the order
// of msgs.
type Replier interface {
	Reply(ctx context.Context, msg domain.OutboundMessage) error
	ReplyAll(ctx context.Context, msgs []domain.OutboundMessage) error
}

type RouterDeps struct {
	Repo          domain.LearningRepository
	Conversations ConversationStore
	Quizzes       QuizStateStore
	Assistant     Assistant
	Replier       Replier
	Locks         *memory.KeyedMutex
	Now           func() time.Time
}

type handlerFunc func(ctx context.Context, msg domain.NormalizedMessage) error

// MessageRouter classifies inbound text and runs the matching handler.
// Messages from the same phone number are handled one at a time.
type MessageRouter struct {
	repo          domain.LearningRepository
	conversations ConversationStore
	quizzes       QuizStateStore
	assistant     Assistant
	replier       Replier
	recommender   *RecommendationEngine
	locks         *memory.KeyedMutex
	now           func() time.Time
	handlers      map[IntentName]handlerFunc
	logger        *slog.Logger
}

func NewMessageRouter(deps RouterDeps, logger *slog.Logger) *MessageRouter {
	r := &MessageRouter{
		repo:          deps.Repo,
		conversations: deps.Conversations,
		quizzes:       deps.Quizzes,
		assistant:     deps.Assistant,
		replier:       deps.Replier,
		recommender:   NewRecommendationEngine(deps.Repo),
		locks:         deps.Locks,
		now:           deps.Now,
		logger:        logger.With("component", "message_router"),
	}
	if r.locks == nil {
		r.locks = memory.NewKeyedMutex()
	}
	if r.now == nil {
		r.now = time.Now
	}
	r.handlers = map[IntentName]handlerFunc{
		IntentQuizAnswer:       r.handleQuizAnswer,
		IntentQuizRequest:      r.handleQuizRequest,
		IntentRecommendation:   r.handleRecommendation,
		IntentProgressInsights: r.handleProgressInsights,
		IntentTopicReset:       r.handleTopicReset,
		IntentChat:             r.handleChat,
	}
	return r
}

// Handle processes one normalized inbound message. Non-text messages are
// logged and skipped. The returned error is for logging only; webhook callers
// acknowledge the provider regardless.
func (r *MessageRouter) Handle(ctx context.Context, msg domain.NormalizedMessage) error {
	inboundMessagesTotal.WithLabelValues(string(msg.Kind)).Inc()

	if msg.Kind != domain.KindText {
		meta := ingress.ExtractMetadata(msg)
		r.logger.InfoContext(ctx, "Received non-text message",
			"message_id", msg.ID, "from", msg.From, "kind", msg.Kind, "metadata", meta)
		return nil
	}
	if msg.From == "" {
		r.logger.WarnContext(ctx, "Dropping text message without sender", "message_id", msg.ID)
		return nil
	}

	unlock := r.locks.Lock(msg.From)
	defer unlock()

	intent := ClassifyIntent(msg.Body)
	logger := r.logger.With("message_id", msg.ID, "from", msg.From, "intent", intent)
	logger.DebugContext(ctx, "Routing message")

	timer := prometheus.NewTimer(intentDurationHist.WithLabelValues(string(intent)))
	err := r.handlers[intent](ctx, msg)
	timer.ObserveDuration()

	if err != nil {
		intentsHandledTotal.WithLabelValues(string(intent), "error").Inc()
		logger.ErrorContext(ctx, "Failed to handle message", "error", err)
		return fmt.Errorf("handle %s: %w", intent, err)
	}
	intentsHandledTotal.WithLabelValues(string(intent), "ok").Inc()
	return nil
}

func (r *MessageRouter) reply(ctx context.Context, to, body string) error {
	return r.replier.Reply(ctx, domain.OutboundMessage{To: to, Body: body})
}

func (r *MessageRouter) handleQuizAnswer(ctx context.Context, msg domain.NormalizedMessage) error {
	last, err := r.quizzes.LastQuiz(ctx, msg.From)
	if err != nil {
		return err
	}
	if last == nil {
		return r.reply(ctx, msg.From, MsgNoQuizFound)
	}

	feedback, err := r.assistant.QuizFeedback(ctx, last.Question, last.CorrectAnswer, ExtractAnswer(msg.Body))
	if err != nil {
		return fmt.Errorf("quiz feedback: %w", err)
	}
	return r.reply(ctx, msg.From, feedback)
}

func (r *MessageRouter) handleQuizRequest(ctx context.Context, msg domain.NormalizedMessage) error {
	user, err := r.repo.GetUserByPhone(ctx, msg.From)
	if err != nil {
		return err
	}
	var lesson *domain.Lesson
	if user != nil {
		if lesson, err = r.repo.GetLatestCompletedLesson(ctx, user.ID); err != nil {
			return err
		}
	}
	if lesson == nil {
		return r.reply(ctx, msg.From, MsgNoCompletedLesson)
	}

	recent, err := r.repo.ListRecentSubmissions(ctx, user.ID, quiz.RecentWindow)
	if err != nil {
		return err
	}
	band := quiz.GeneratedQuizDifficulty(recent)

	text, err := r.assistant.GenerateQuiz(ctx, *lesson, band)
	if err != nil {
		return fmt.Errorf("generate quiz: %w", err)
	}

	question := text
	if answer := ParseCorrectAnswer(text); answer != "" {
		question = StripAnswerLine(text)
		err := r.quizzes.RememberQuiz(ctx, msg.From, domain.LastQuiz{
			Question:      question,
			CorrectAnswer: answer,
			AskedAt:       r.now(),
		})
		if err != nil {
			return err
		}
	} else {
		r.logger.WarnContext(ctx, "Generated quiz has no answer marker; answers cannot be scored",
			"from", msg.From, "lesson_id", lesson.ID)
	}
	return r.reply(ctx, msg.From, question)
}

func (r *MessageRouter) handleRecommendation(ctx context.Context, msg domain.NormalizedMessage) error {
	user, err := r.repo.GetUserByPhone(ctx, msg.From)
	if err != nil {
		return err
	}
	var userID int64
	if user != nil {
		userID = user.ID
	}

	rec, err := r.recommender.Next(ctx, userID)
	if err != nil {
		return err
	}
	return r.replier.ReplyAll(ctx, renderRecommendation(msg.From, rec))
}

func (r *MessageRouter) handleProgressInsights(ctx context.Context, msg domain.NormalizedMessage) error {
	user, err := r.repo.GetUserByPhone(ctx, msg.From)
	if err != nil {
		return err
	}
	var progress []domain.Progress
	if user != nil {
		if progress, err = r.repo.ListProgress(ctx, user.ID); err != nil {
			return err
		}
	}
	if len(progress) == 0 {
		return r.reply(ctx, msg.From, MsgNoProgress)
	}

	summary, err := r.assistant.ProgressInsights(ctx, progress)
	if err != nil {
		return fmt.Errorf("progress insights: %w", err)
	}
	return r.reply(ctx, msg.From, summary)
}

func (r *MessageRouter) handleTopicReset(ctx context.Context, msg domain.NormalizedMessage) error {
	if err := r.conversations.Clear(ctx, msg.From); err != nil {
		return err
	}
	if err := r.quizzes.ForgetQuiz(ctx, msg.From); err != nil {
		return err
	}
	return r.reply(ctx, msg.From, MsgTopicReset)
}

func (r *MessageRouter) handleChat(ctx context.Context, msg domain.NormalizedMessage) error {
	history, err := r.conversations.Get(ctx, msg.From)
	if err != nil {
		return err
	}
	system, err := r.systemTurns(ctx, msg.From)
	if err != nil {
		return err
	}

	userTurn := domain.Turn{Role: domain.RoleUser, Content: msg.Body}
	prompt := make([]domain.Turn, 0, len(system)+len(history)+1)
	prompt = append(prompt, system...)
	prompt = append(prompt, history...)
	prompt = append(prompt, userTurn)

	answer, err := r.assistant.Chat(ctx, prompt)
	if err != nil {
		return fmt.Errorf("chat completion: %w", err)
	}

	if _, err := r.conversations.Append(ctx, msg.From, userTurn, domain.Turn{Role: domain.RoleAssistant, Content: answer}); err != nil {
		return err
	}
	return r.reply(ctx, msg.From, answer)
}

// systemTurns builds the optional preference and current-lesson context, in
// that order. Either is omitted when there is nothing to say.
func (r *MessageRouter) systemTurns(ctx context.Context, phone string) ([]domain.Turn, error) {
	user, err := r.repo.GetUserByPhone(ctx, phone)
	if err != nil || user == nil {
		return nil, err
	}

	var turns []domain.Turn
	if len(user.Preferences) > 0 {
		prefs, err := json.Marshal(user.Preferences)
		if err != nil {
			return nil, fmt.Errorf("encode preferences: %w", err)
		}
		turns = append(turns, domain.Turn{Role: domain.RoleSystem, Content: "User preferences: " + string(prefs)})
	}

	lesson, err := r.repo.GetLatestCompletedLesson(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	if lesson != nil {
		var b strings.Builder
		b.WriteString("The user most recently studied the lesson \"")
		b.WriteString(lesson.Title)
		b.WriteString("\".")
		if lesson.Content != "" {
			b.WriteString(" Lesson content:\n")
			b.WriteString(lesson.Content)
		}
		turns = append(turns, domain.Turn{Role: domain.RoleSystem, Content: b.String()})
	}
	return turns, nil
}
