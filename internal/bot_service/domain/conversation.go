package domain

import "time"

// MaxContextTurns bounds the stored conversation per user.
const MaxContextTurns = 10

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one entry of a conversation.
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// TrimTurns keeps the newest MaxContextTurns entries.
func TrimTurns(turns []Turn) []Turn {
	if len(turns) <= MaxContextTurns {
		return turns
	}
	return turns[len(turns)-MaxContextTurns:]
}

// LastQuiz is the most recent generated quiz sent to a user, kept so a
// following answer can be scored.
type LastQuiz struct {
	Question      string    `json:"question"`
	CorrectAnswer string    `json:"correctAnswer"`
	AskedAt       time.Time `json:"askedAt"`
}
