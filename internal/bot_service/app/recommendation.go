package app

import (
	"context"
	"fmt"

	"github.com/ChirchirMeshack/SomaBot/internal/bot_service/delivery"
	"github.com/ChirchirMeshack/SomaBot/internal/bot_service/domain"
)

// PassingScore is the minimum progress score that counts a quiz as passed.
const PassingScore = 80

const msgAllCaughtUp = "You are all caught up! Consider reviewing past lessons or quizzes."

// RecommendationEngine picks the next thing a learner should do.
type RecommendationEngine struct {
	repo domain.LearningRepository
}

func NewRecommendationEngine(repo domain.LearningRepository) *RecommendationEngine {
	return &RecommendationEngine{repo: repo}
}

// Next returns the first lesson without progress, else the first quiz not yet
// passed, else a completion message. userID 0 means an unknown learner.
func (e *RecommendationEngine) Next(ctx context.Context, userID int64) (domain.Recommendation, error) {
	var progress []domain.Progress
	if userID != 0 {
		var err error
		progress, err = e.repo.ListProgress(ctx, userID)
		if err != nil {
			return domain.Recommendation{}, fmt.Errorf("load progress: %w", err)
		}
	}

	completed := make(map[int64]bool, len(progress))
	passed := make(map[int64]bool)
	for _, p := range progress {
		completed[p.LessonID] = true
		if p.QuizID != nil && p.Score != nil && *p.Score >= PassingScore {
			passed[*p.QuizID] = true
		}
	}

	lessons, err := e.repo.ListLessons(ctx)
	if err != nil {
		return domain.Recommendation{}, fmt.Errorf("load lessons: %w", err)
	}
	for i := range lessons {
		if !completed[lessons[i].ID] {
			return domain.Recommendation{Kind: domain.RecommendLesson, Lesson: &lessons[i]}, nil
		}
	}

	quizzes, err := e.repo.ListQuizzes(ctx)
	if err != nil {
		return domain.Recommendation{}, fmt.Errorf("load quizzes: %w", err)
	}
	for i := range quizzes {
		if !passed[quizzes[i].ID] {
			return domain.Recommendation{Kind: domain.RecommendQuiz, Quiz: &quizzes[i]}, nil
		}
	}

	return domain.Recommendation{Kind: domain.RecommendComplete, Message: msgAllCaughtUp}, nil
}

// renderRecommendation turns a recommendation into chat messages: a lesson is
// sent in full, a quiz with its options, completion as a notification.
func renderRecommendation(to string, rec domain.Recommendation) []domain.OutboundMessage {
	switch rec.Kind {
	case domain.RecommendLesson:
		return delivery.FormatLesson(to, *rec.Lesson)
	case domain.RecommendQuiz:
		data := map[string]string{"quizQuestion": rec.Quiz.Question}
		for i, key := range []string{"optionA", "optionB", "optionC", "optionD"} {
			if i < len(rec.Quiz.Options) {
				data[key] = rec.Quiz.Options[i]
			} else {
				data[key] = ""
			}
		}
		return []domain.OutboundMessage{{To: to, Body: RenderTemplate(TemplateQuiz, data)}}
	default:
		return []domain.OutboundMessage{{To: to, Body: RenderTemplate(TemplateNotification, map[string]string{"message": rec.Message})}}
	}
}
