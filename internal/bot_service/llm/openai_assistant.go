// Package llm talks to an OpenAI-compatible chat completion API.
package llm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/ChirchirMeshack/SomaBot/internal/bot_service/domain"
)

const (
	DefaultModel     = "gpt-3.5-turbo"
	DefaultMaxTokens = 256
)

type Config struct {
	APIKey    string
	BaseURL   string // optional, for compatible gateways
	Model     string
	MaxTokens int64
	Timeout   time.Duration
	// MaxRetries overrides the SDK default when >= 0.
	MaxRetries int
}

// OpenAIAssistant answers chat turns and authors quiz content.
type OpenAIAssistant struct {
	client    openai.Client
	enabled   bool
	model     string
	maxTokens int64
	logger    *slog.Logger
}

func NewOpenAIAssistant(cfg Config, logger *slog.Logger) *OpenAIAssistant {
	log := logger.With("component", "openai_assistant")

	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.Timeout))
	}
	if cfg.MaxRetries >= 0 {
		opts = append(opts, option.WithMaxRetries(cfg.MaxRetries))
	}

	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	if cfg.APIKey == "" {
		log.Warn("OPENAI_API_KEY not set; LLM-backed replies will fail")
	}

	return &OpenAIAssistant{
		client:    openai.NewClient(opts...),
		enabled:   cfg.APIKey != "",
		model:     model,
		maxTokens: maxTokens,
		logger:    log,
	}
}

// Chat continues a conversation. turns are sent in order.
func (a *OpenAIAssistant) Chat(ctx context.Context, turns []domain.Turn) (string, error) {
	return a.complete(ctx, "chat", turns)
}

func (a *OpenAIAssistant) GenerateQuiz(ctx context.Context, lesson domain.Lesson, band domain.DifficultyBand) (string, error) {
	return a.complete(ctx, "generate_quiz", []domain.Turn{{Role: domain.RoleUser, Content: quizPrompt(lesson, band)}})
}

func (a *OpenAIAssistant) QuizFeedback(ctx context.Context, question, correctAnswer, userAnswer string) (string, error) {
	return a.complete(ctx, "quiz_feedback", []domain.Turn{
		{Role: domain.RoleUser, Content: feedbackPrompt(question, correctAnswer, userAnswer)},
	})
}

func (a *OpenAIAssistant) ProgressInsights(ctx context.Context, progress []domain.Progress) (string, error) {
	prompt, err := insightsPrompt(progress)
	if err != nil {
		return "", err
	}
	return a.complete(ctx, "progress_insights", []domain.Turn{{Role: domain.RoleUser, Content: prompt}})
}

func (a *OpenAIAssistant) complete(ctx context.Context, operation string, turns []domain.Turn) (string, error) {
	if !a.enabled {
		llmRequestsTotal.WithLabelValues(operation, "not_configured").Inc()
		return "", domain.ErrLLMNotConfigured
	}

	timer := prometheus.NewTimer(llmRequestDuration.WithLabelValues(operation))
	resp, err := a.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:     openai.ChatModel(a.model),
		Messages:  toMessages(turns),
		MaxTokens: openai.Int(a.maxTokens),
	})
	timer.ObserveDuration()
	if err != nil {
		llmRequestsTotal.WithLabelValues(operation, "error").Inc()
		a.logger.ErrorContext(ctx, "chat completion failed", "operation", operation, "error", err)
		return "", fmt.Errorf("%s completion: %w", operation, err)
	}

	if len(resp.Choices) == 0 {
		llmRequestsTotal.WithLabelValues(operation, "empty").Inc()
		return "", domain.ErrEmptyCompletion
	}
	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		llmRequestsTotal.WithLabelValues(operation, "empty").Inc()
		return "", domain.ErrEmptyCompletion
	}

	llmRequestsTotal.WithLabelValues(operation, "ok").Inc()
	a.logger.DebugContext(ctx, "chat completion", "operation", operation, "model", a.model, "chars", len(content))
	return content, nil
}

func toMessages(turns []domain.Turn) []openai.ChatCompletionMessageParamUnion {
	msgs := make([]openai.ChatCompletionMessageParamUnion, 0, len(turns))
	for _, t := range turns {
		switch t.Role {
		case domain.RoleSystem:
			msgs = append(msgs, openai.SystemMessage(t.Content))
		case domain.RoleAssistant:
			msgs = append(msgs, openai.AssistantMessage(t.Content))
		default:
			msgs = append(msgs, openai.UserMessage(t.Content))
		}
	}
	return msgs
}
