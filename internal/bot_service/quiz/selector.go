// Package quiz picks quizzes and difficulty bands from a learner's history.
// Everything here is pure; callers load the data.
package quiz

import (
	"github.com/ChirchirMeshack/SomaBot/internal/bot_service/domain"
)

// RecentWindow is how many scored attempts decide a generated quiz's band.
const RecentWindow = 3

// BandForPercent maps a correctness percentage to a band: below 50 is easy,
// below 80 is medium, the rest hard.
func BandForPercent(percent float64) domain.DifficultyBand {
	switch {
	case percent < 50:
		return domain.DifficultyEasy
	case percent < 80:
		return domain.DifficultyMedium
	default:
		return domain.DifficultyHard
	}
}

// SelectNextQuiz picks the next pre-authored quiz for a lesson.
// quizzes are in lesson order; submissions are the user's attempts on them.
// It returns nil when every quiz has been answered.
func SelectNextQuiz(quizzes []domain.Quiz, submissions []domain.QuizSubmission) *domain.Quiz {
	answered := make(map[int64]bool, len(submissions))
	correct := 0
	for _, s := range submissions {
		answered[s.QuizID] = true
		if s.IsCorrect {
			correct++
		}
	}

	unanswered := make([]domain.Quiz, 0, len(quizzes))
	for _, q := range quizzes {
		if !answered[q.ID] {
			unanswered = append(unanswered, q)
		}
	}
	if len(unanswered) == 0 {
		return nil
	}

	target := domain.DifficultyEasy
	if len(submissions) > 0 {
		target = BandForPercent(100 * float64(correct) / float64(len(submissions)))
	}

	for i := range unanswered {
		if unanswered[i].Band() == target {
			return &unanswered[i]
		}
	}
	return &unanswered[0]
}

// GeneratedQuizDifficulty picks the band for an LLM-authored quiz from the
// most recent scored attempts, newest first. Fewer than RecentWindow attempts
// gives medium.
func GeneratedQuizDifficulty(recent []domain.QuizSubmission) domain.DifficultyBand {
	if len(recent) < RecentWindow {
		return domain.DifficultyMedium
	}
	correct := 0
	for _, s := range recent[:RecentWindow] {
		if s.IsCorrect {
			correct++
		}
	}
	switch correct {
	case RecentWindow:
		return domain.DifficultyHard
	case 0:
		return domain.DifficultyEasy
	default:
		return domain.DifficultyMedium
	}
}
