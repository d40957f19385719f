package domain

import "time"

// DifficultyBand is derived per request and never persisted.
type DifficultyBand string

const (
	DifficultyEasy   DifficultyBand = "easy"
	DifficultyMedium DifficultyBand = "medium"
	DifficultyHard   DifficultyBand = "hard"
)

type User struct {
	ID          int64
	Phone       string
	Name        string
	Preferences map[string]any
}

type Lesson struct {
	ID          int64
	CourseID    int64
	Title       string
	Content     string
	LessonOrder int
	MediaURL    string
}

type Quiz struct {
	ID            int64          `json:"id"`
	LessonID      int64          `json:"lessonId"`
	Question      string         `json:"question"`
	Options       []string       `json:"options"`
	CorrectAnswer string         `json:"correctAnswer"`
	Explanation   string         `json:"explanation,omitempty"`
	Difficulty    DifficultyBand `json:"difficulty"`
}

// Band returns the quiz difficulty, treating an unset value as medium.
func (q Quiz) Band() DifficultyBand {
	if q.Difficulty == "" {
		return DifficultyMedium
	}
	return q.Difficulty
}

type QuizSubmission struct {
	ID              int64
	UserID          int64
	QuizID          int64
	SubmittedAnswer string
	IsCorrect       bool
	SubmittedAt     time.Time
}

// Progress is a completion record. QuizID and Score are set when the
// completion came from a quiz.
type Progress struct {
	ID          int64     `json:"id"`
	UserID      int64     `json:"userId"`
	LessonID    int64     `json:"lessonId"`
	CourseID    int64     `json:"courseId"`
	QuizID      *int64    `json:"quizId,omitempty"`
	Score       *float64  `json:"score,omitempty"`
	CompletedAt time.Time `json:"completedAt"`
}

type ScheduledQuiz struct {
	ID            int64
	UserID        int64
	QuizID        int64
	ScheduledTime time.Time
	Delivered     bool
}

type Reminder struct {
	UserID        int64     `json:"userId"`
	QuizID        int64     `json:"quizId"`
	ScheduledTime time.Time `json:"scheduledTime"`
	ReminderCount int       `json:"reminderCount"`
	Message       string    `json:"message"`
}

type RecommendationKind string

const (
	RecommendLesson   RecommendationKind = "lesson"
	RecommendQuiz     RecommendationKind = "quiz"
	RecommendComplete RecommendationKind = "complete"
)

type Recommendation struct {
	Kind    RecommendationKind
	Lesson  *Lesson
	Quiz    *Quiz
	Message string
}
