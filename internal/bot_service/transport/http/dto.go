package http

import "github.com/ChirchirMeshack/SomaBot/internal/bot_service/domain"

// GenericErrorResponse for API errors
type GenericErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// StatusCallbackRequest is the subset of the provider's delivery callback form we use.
type StatusCallbackRequest struct {
	MessageSid    string `validate:"required"`
	MessageStatus string `validate:"required"`
}

type SetSessionRequest struct {
	Phone string         `json:"phone" validate:"required"`
	Data  map[string]any `json:"data" validate:"required"`
}

type GetSessionRequest struct {
	Phone string `json:"phone" validate:"required"`
}

type DeleteSessionRequest struct {
	Phone string `json:"phone" validate:"required"`
}

type SessionResponse struct {
	Status  string         `json:"status"`
	Session map[string]any `json:"session"`
}

type StatusOKResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

type NextQuizResponse struct {
	Status   string       `json:"status"`
	NextQuiz *domain.Quiz `json:"nextQuiz"`
}

type RemindersResponse struct {
	Status    string            `json:"status"`
	Reminders []domain.Reminder `json:"reminders"`
}
