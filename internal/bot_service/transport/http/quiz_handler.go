package http

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chi_middleware "github.com/go-chi/chi/v5/middleware"

	"github.com/ChirchirMeshack/SomaBot/internal/bot_service/domain"
	"github.com/ChirchirMeshack/SomaBot/internal/bot_service/quiz"
)

// QuizHandler exposes adaptive quiz selection and the reminder sweep.
type QuizHandler struct {
	repo   domain.LearningRepository
	now    func() time.Time
	logger *slog.Logger
}

func NewQuizHandler(repo domain.LearningRepository, logger *slog.Logger) *QuizHandler {
	return &QuizHandler{repo: repo, now: time.Now, logger: logger.With("handler", "quiz")}
}

func (h *QuizHandler) RegisterRoutes(r chi.Router) {
	r.Route("/quizzes", func(r chi.Router) {
		r.Get("/next/{user_id}/{lesson_id}", h.HandleNextQuiz)
		r.Post("/reminders/send", h.HandleSendReminders)
	})
}

func (h *QuizHandler) HandleNextQuiz(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.logger.With("request_id", chi_middleware.GetReqID(ctx))

	userID, err := strconv.ParseInt(chi.URLParam(r, "user_id"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid user_id", err.Error())
		return
	}
	lessonID, err := strconv.ParseInt(chi.URLParam(r, "lesson_id"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid lesson_id", err.Error())
		return
	}

	quizzes, err := h.repo.ListQuizzesByLesson(ctx, lessonID)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to list quizzes", "lesson_id", lessonID, "error", err)
		respondError(w, http.StatusInternalServerError, "Failed to get next quiz", "")
		return
	}
	if len(quizzes) == 0 {
		respondError(w, http.StatusNotFound, "No quizzes found for this lesson", "")
		return
	}

	ids := make([]int64, len(quizzes))
	for i, q := range quizzes {
		ids[i] = q.ID
	}
	subs, err := h.repo.ListSubmissionsForQuizzes(ctx, userID, ids)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to list submissions", "user_id", userID, "lesson_id", lessonID, "error", err)
		respondError(w, http.StatusInternalServerError, "Failed to get next quiz", "")
		return
	}

	respondJSON(w, http.StatusOK, NextQuizResponse{Status: "ok", NextQuiz: quiz.SelectNextQuiz(quizzes, subs)})
}

// HandleSendReminders lists the reminders that are due. Nothing is sent.
func (h *QuizHandler) HandleSendReminders(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.logger.With("request_id", chi_middleware.GetReqID(ctx))

	pending, err := h.repo.ListPendingScheduledQuizzes(ctx)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to list pending quiz schedules", "error", err)
		respondError(w, http.StatusInternalServerError, "Failed to send reminders", "")
		return
	}

	reminders := quiz.ComputeReminders(h.now(), pending)
	logger.InfoContext(ctx, "Computed quiz reminders", "pending", len(pending), "reminders", len(reminders))
	respondJSON(w, http.StatusOK, RemindersResponse{Status: "ok", Reminders: reminders})
}
