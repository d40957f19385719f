package domain

import "context"

// LearningRepository is the read side of the learning data the bot needs.
// Single-row lookups return (nil, nil) when nothing matches.
type LearningRepository interface {
	GetUserByPhone(ctx context.Context, phone string) (*User, error)
	ListLessons(ctx context.Context) ([]Lesson, error)
	GetLatestCompletedLesson(ctx context.Context, userID int64) (*Lesson, error)
	ListQuizzes(ctx context.Context) ([]Quiz, error)
	ListQuizzesByLesson(ctx context.Context, lessonID int64) ([]Quiz, error)
	ListSubmissionsForQuizzes(ctx context.Context, userID int64, quizIDs []int64) ([]QuizSubmission, error)
	ListRecentSubmissions(ctx context.Context, userID int64, limit int) ([]QuizSubmission, error)
	ListProgress(ctx context.Context, userID int64) ([]Progress, error)
	ListPendingScheduledQuizzes(ctx context.Context) ([]ScheduledQuiz, error)
}
