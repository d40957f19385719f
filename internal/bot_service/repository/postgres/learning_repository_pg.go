package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"

	"github.com/ChirchirMeshack/SomaBot/internal/bot_service/domain"
)

// Querier is the subset of pgxpool.Pool the repository uses.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const (
	lessonColumns     = "l.id, l.course_id, l.title, l.content, l.lesson_order, l.media_url"
	quizColumns       = "id, lesson_id, question, options, correct_answer, explanation, difficulty"
	submissionColumns = "id, user_id, quiz_id, submitted_answer, is_correct, submitted_at"

	selectUserByPhoneQuery     = `SELECT id, phone, name, preferences FROM users WHERE phone = $1`
	selectLessonsQuery         = `SELECT ` + lessonColumns + ` FROM lessons l ORDER BY l.id`
	selectQuizzesQuery         = `SELECT ` + quizColumns + ` FROM quizzes ORDER BY id`
	selectQuizzesByLessonQuery = `SELECT ` + quizColumns + ` FROM quizzes WHERE lesson_id = $1 ORDER BY id`

	selectLatestLessonQuery = `SELECT ` + lessonColumns + ` FROM progress p JOIN lessons l ON l.id = p.lesson_id ` +
		`WHERE p.user_id = $1 AND p.completed_at IS NOT NULL ORDER BY p.completed_at DESC LIMIT 1`

	selectSubmissionsForQuizzesQuery = `SELECT ` + submissionColumns + ` FROM quiz_submissions ` +
		`WHERE user_id = $1 AND quiz_id = ANY($2) ORDER BY submitted_at DESC`

	selectRecentSubmissionsQuery = `SELECT ` + submissionColumns + ` FROM quiz_submissions ` +
		`WHERE user_id = $1 AND is_correct IS NOT NULL ORDER BY submitted_at DESC LIMIT $2`

	selectProgressQuery = `SELECT id, user_id, lesson_id, course_id, quiz_id, score, completed_at FROM progress ` +
		`WHERE user_id = $1 ORDER BY completed_at DESC`

	selectPendingSchedulesQuery = `SELECT id, user_id, quiz_id, scheduled_time, delivered FROM quiz_schedule ` +
		`WHERE delivered = FALSE ORDER BY scheduled_time`
)

// PgLearningRepository reads users, lessons, quizzes and progress.
type PgLearningRepository struct {
	db     Querier
	logger *slog.Logger
}

func NewPgLearningRepository(db Querier, logger *slog.Logger) *PgLearningRepository {
	return &PgLearningRepository{db: db, logger: logger.With("component", "learning_repository_pg")}
}

var _ domain.LearningRepository = (*PgLearningRepository)(nil)

func scanLesson(row pgx.Row) (*domain.Lesson, error) {
	var (
		l        domain.Lesson
		courseID sql.NullInt64
		content  sql.NullString
		order    sql.NullInt64
		mediaURL sql.NullString
	)
	if err := row.Scan(&l.ID, &courseID, &l.Title, &content, &order, &mediaURL); err != nil {
		return nil, err
	}
	l.CourseID = courseID.Int64
	l.Content = content.String
	l.LessonOrder = int(order.Int64)
	l.MediaURL = mediaURL.String
	return &l, nil
}

func scanQuiz(row pgx.Row) (*domain.Quiz, error) {
	var (
		q           domain.Quiz
		options     []byte
		explanation sql.NullString
		difficulty  sql.NullString
	)
	if err := row.Scan(&q.ID, &q.LessonID, &q.Question, &options, &q.CorrectAnswer, &explanation, &difficulty); err != nil {
		return nil, err
	}
	if len(options) > 0 {
		if err := json.Unmarshal(options, &q.Options); err != nil {
			return nil, fmt.Errorf("decode options of quiz %d: %w", q.ID, err)
		}
	}
	q.Explanation = explanation.String
	q.Difficulty = domain.DifficultyBand(difficulty.String)
	return &q, nil
}

func scanSubmission(row pgx.Row) (*domain.QuizSubmission, error) {
	var (
		s         domain.QuizSubmission
		answer    sql.NullString
		isCorrect sql.NullBool
	)
	if err := row.Scan(&s.ID, &s.UserID, &s.QuizID, &answer, &isCorrect, &s.SubmittedAt); err != nil {
		return nil, err
	}
	s.SubmittedAnswer = answer.String
	s.IsCorrect = isCorrect.Bool
	return &s, nil
}

func (r *PgLearningRepository) GetUserByPhone(ctx context.Context, phone string) (*domain.User, error) {
	var (
		u     domain.User
		name  sql.NullString
		prefs []byte
	)
	err := r.db.QueryRow(ctx, selectUserByPhoneQuery, phone).Scan(&u.ID, &u.Phone, &name, &prefs)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.logger.ErrorContext(ctx, "Error getting user by phone", "phone", phone, "error", err)
		return nil, fmt.Errorf("get user by phone: %w", err)
	}
	u.Name = name.String
	if len(prefs) > 0 {
		if err := json.Unmarshal(prefs, &u.Preferences); err != nil {
			r.logger.WarnContext(ctx, "Ignoring unreadable user preferences", "user_id", u.ID, "error", err)
			u.Preferences = nil
		}
	}
	return &u, nil
}

func (r *PgLearningRepository) ListLessons(ctx context.Context) ([]domain.Lesson, error) {
	rows, err := r.db.Query(ctx, selectLessonsQuery)
	if err != nil {
		return nil, fmt.Errorf("list lessons: %w", err)
	}
	defer rows.Close()

	var lessons []domain.Lesson
	for rows.Next() {
		l, err := scanLesson(rows)
		if err != nil {
			return nil, fmt.Errorf("scan lesson: %w", err)
		}
		lessons = append(lessons, *l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate lessons: %w", err)
	}
	return lessons, nil
}

// GetLatestCompletedLesson returns the lesson of the user's most recent completion.
func (r *PgLearningRepository) GetLatestCompletedLesson(ctx context.Context, userID int64) (*domain.Lesson, error) {
	l, err := scanLesson(r.db.QueryRow(ctx, selectLatestLessonQuery, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.logger.ErrorContext(ctx, "Error getting latest completed lesson", "user_id", userID, "error", err)
		return nil, fmt.Errorf("get latest completed lesson: %w", err)
	}
	return l, nil
}

func (r *PgLearningRepository) ListQuizzes(ctx context.Context) ([]domain.Quiz, error) {
	return r.queryQuizzes(ctx, selectQuizzesQuery)
}

func (r *PgLearningRepository) ListQuizzesByLesson(ctx context.Context, lessonID int64) ([]domain.Quiz, error) {
	return r.queryQuizzes(ctx, selectQuizzesByLessonQuery, lessonID)
}

func (r *PgLearningRepository) queryQuizzes(ctx context.Context, query string, args ...any) ([]domain.Quiz, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list quizzes: %w", err)
	}
	defer rows.Close()

	var quizzes []domain.Quiz
	for rows.Next() {
		q, err := scanQuiz(rows)
		if err != nil {
			return nil, fmt.Errorf("scan quiz: %w", err)
		}
		quizzes = append(quizzes, *q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate quizzes: %w", err)
	}
	return quizzes, nil
}

func (r *PgLearningRepository) ListSubmissionsForQuizzes(ctx context.Context, userID int64, quizIDs []int64) ([]domain.QuizSubmission, error) {
	if len(quizIDs) == 0 {
		return nil, nil
	}
	return r.querySubmissions(ctx, selectSubmissionsForQuizzesQuery, userID, quizIDs)
}

// ListRecentSubmissions returns the newest scored attempts first.
func (r *PgLearningRepository) ListRecentSubmissions(ctx context.Context, userID int64, limit int) ([]domain.QuizSubmission, error) {
	return r.querySubmissions(ctx, selectRecentSubmissionsQuery, userID, limit)
}

func (r *PgLearningRepository) querySubmissions(ctx context.Context, query string, args ...any) ([]domain.QuizSubmission, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	defer rows.Close()

	var subs []domain.QuizSubmission
	for rows.Next() {
		s, err := scanSubmission(rows)
		if err != nil {
			return nil, fmt.Errorf("scan submission: %w", err)
		}
		subs = append(subs, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate submissions: %w", err)
	}
	return subs, nil
}

func (r *PgLearningRepository) ListProgress(ctx context.Context, userID int64) ([]domain.Progress, error) {
	rows, err := r.db.Query(ctx, selectProgressQuery, userID)
	if err != nil {
		return nil, fmt.Errorf("list progress: %w", err)
	}
	defer rows.Close()

	var out []domain.Progress
	for rows.Next() {
		var (
			p           domain.Progress
			courseID    sql.NullInt64
			quizID      sql.NullInt64
			score       sql.NullFloat64
			completedAt sql.NullTime
		)
		if err := rows.Scan(&p.ID, &p.UserID, &p.LessonID, &courseID, &quizID, &score, &completedAt); err != nil {
			return nil, fmt.Errorf("scan progress: %w", err)
		}
		p.CourseID = courseID.Int64
		if quizID.Valid {
			id := quizID.Int64
			p.QuizID = &id
		}
		if score.Valid {
			s := score.Float64
			p.Score = &s
		}
		p.CompletedAt = completedAt.Time
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate progress: %w", err)
	}
	return out, nil
}

func (r *PgLearningRepository) ListPendingScheduledQuizzes(ctx context.Context) ([]domain.ScheduledQuiz, error) {
	rows, err := r.db.Query(ctx, selectPendingSchedulesQuery)
	if err != nil {
		return nil, fmt.Errorf("list pending quiz schedules: %w", err)
	}
	defer rows.Close()

	var out []domain.ScheduledQuiz
	for rows.Next() {
		var s domain.ScheduledQuiz
		if err := rows.Scan(&s.ID, &s.UserID, &s.QuizID, &s.ScheduledTime, &s.Delivered); err != nil {
			return nil, fmt.Errorf("scan quiz schedule: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate quiz schedules: %w", err)
	}
	return out, nil
}
