package quiz

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ChirchirMeshack/SomaBot/internal/bot_service/domain"
)

func lessonQuizzes() []domain.Quiz {
	return []domain.Quiz{
		{ID: 1, LessonID: 7, Question: "q1", Difficulty: domain.DifficultyMedium},
		{ID: 2, LessonID: 7, Question: "q2", Difficulty: domain.DifficultyEasy},
		{ID: 3, LessonID: 7, Question: "q3", Difficulty: domain.DifficultyHard},
		{ID: 4, LessonID: 7, Question: "q4"},
		{ID: 5, LessonID: 7, Question: "q5", Difficulty: domain.DifficultyEasy},
	}
}

func sub(quizID int64, correct bool) domain.QuizSubmission {
	return domain.QuizSubmission{UserID: 1, QuizID: quizID, IsCorrect: correct}
}

func TestBandForPercent(t *testing.T) {
	assert.Equal(t, domain.DifficultyEasy, BandForPercent(0))
	assert.Equal(t, domain.DifficultyEasy, BandForPercent(49.9))
	assert.Equal(t, domain.DifficultyMedium, BandForPercent(50))
	assert.Equal(t, domain.DifficultyMedium, BandForPercent(79.99))
	assert.Equal(t, domain.DifficultyHard, BandForPercent(80))
	assert.Equal(t, domain.DifficultyHard, BandForPercent(100))
}

func TestSelectNextQuiz(t *testing.T) {
	tests := []struct {
		name        string
		quizzes     []domain.Quiz
		submissions []domain.QuizSubmission
		wantID      int64
		wantNil     bool
	}{
		{
			name:    "no submissions prefers first easy quiz",
			quizzes: lessonQuizzes(),
			wantID:  2,
		},
		{
			name: "no submissions and no easy quiz falls back to first",
			quizzes: []domain.Quiz{
				{ID: 10, Difficulty: domain.DifficultyHard},
				{ID: 11, Difficulty: domain.DifficultyMedium},
			},
			wantID: 10,
		},
		{
			// 1 of 3 correct is 33%, so the easy band.
			name:        "low score targets easy",
			quizzes:     lessonQuizzes(),
			submissions: []domain.QuizSubmission{sub(1, true), sub(2, false), sub(3, false)},
			wantID:      5,
		},
		{
			// 4 of 5 correct is exactly 80%, so hard; quiz 3 is answered so no hard one is left.
			name:    "exactly 80 percent is hard and falls back to first unanswered",
			quizzes: append(lessonQuizzes(), domain.Quiz{ID: 6, Difficulty: domain.DifficultyMedium}),
			submissions: []domain.QuizSubmission{
				sub(1, true), sub(2, true), sub(3, true), sub(5, true), sub(99, false),
			},
			wantID: 4,
		},
		{
			// 1 of 2 correct is 50%: medium. Quiz 4 has no difficulty and counts as medium.
			name:        "unset difficulty counts as medium",
			quizzes:     lessonQuizzes(),
			submissions: []domain.QuizSubmission{sub(1, true), sub(2, false)},
			wantID:      4,
		},
		{
			name:    "high score picks hard",
			quizzes: lessonQuizzes(),
			submissions: []domain.QuizSubmission{
				sub(1, true), sub(2, true),
			},
			wantID: 3,
		},
		{
			name:    "everything answered",
			quizzes: lessonQuizzes()[:2],
			submissions: []domain.QuizSubmission{
				sub(1, true), sub(2, true),
			},
			wantNil: true,
		},
		{
			name:    "no quizzes",
			wantNil: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SelectNextQuiz(tt.quizzes, tt.submissions)
			if tt.wantNil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, tt.wantID, got.ID)
		})
	}
}

func TestGeneratedQuizDifficulty(t *testing.T) {
	tests := []struct {
		name   string
		recent []domain.QuizSubmission
		want   domain.DifficultyBand
	}{
		{name: "no history", want: domain.DifficultyMedium},
		{name: "two attempts", recent: []domain.QuizSubmission{sub(1, true), sub(2, true)}, want: domain.DifficultyMedium},
		{name: "three correct", recent: []domain.QuizSubmission{sub(1, true), sub(2, true), sub(3, true)}, want: domain.DifficultyHard},
		{name: "none correct", recent: []domain.QuizSubmission{sub(1, false), sub(2, false), sub(3, false)}, want: domain.DifficultyEasy},
		{name: "mixed", recent: []domain.QuizSubmission{sub(1, true), sub(2, false), sub(3, true)}, want: domain.DifficultyMedium},
		{
			name:   "only newest three count",
			recent: []domain.QuizSubmission{sub(1, true), sub(2, true), sub(3, true), sub(4, false)},
			want:   domain.DifficultyHard,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GeneratedQuizDifficulty(tt.recent))
		})
	}
}

func TestReminderCount(t *testing.T) {
	assert.Equal(t, 0, ReminderCount(59*time.Minute))
	assert.Equal(t, 1, ReminderCount(time.Hour))
	assert.Equal(t, 1, ReminderCount(2*time.Hour+59*time.Minute))
	assert.Equal(t, 2, ReminderCount(3*time.Hour))
	assert.Equal(t, 3, ReminderCount(6*time.Hour))
	assert.Equal(t, 3, ReminderCount(11*time.Hour))
	assert.Equal(t, 4, ReminderCount(12*time.Hour))
	assert.Equal(t, 5, ReminderCount(18*time.Hour))
}

func TestComputeReminders(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	pending := []domain.ScheduledQuiz{
		{ID: 1, UserID: 10, QuizID: 100, ScheduledTime: now.Add(-30 * time.Minute)},
		{ID: 2, UserID: 11, QuizID: 101, ScheduledTime: now.Add(-4 * time.Hour)},
		{ID: 3, UserID: 12, QuizID: 102, ScheduledTime: now.Add(-13 * time.Hour)},
		{ID: 4, UserID: 13, QuizID: 103, ScheduledTime: now.Add(-13 * time.Hour), Delivered: true},
	}

	got := ComputeReminders(now, pending)

	require.Len(t, got, 2)
	assert.Equal(t, int64(11), got[0].UserID)
	assert.Equal(t, 2, got[0].ReminderCount)
	assert.Equal(t, "Send reminder #2 to user 11 for quiz 101", got[0].Message)
	assert.Equal(t, 4, got[1].ReminderCount)
}
