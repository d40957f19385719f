package quiz

import (
	"fmt"
	"time"

	"github.com/ChirchirMeshack/SomaBot/internal/bot_service/domain"
)

// ReminderCount returns how many reminders are due for a quiz that has been
// pending for the given duration: one after 1h, two after 3h, three after 6h
// and one more every 6h after that.
func ReminderCount(pending time.Duration) int {
	hours := int(pending.Hours())
	switch {
	case hours >= 6:
		return 3 + (hours-6)/6
	case hours >= 3:
		return 2
	case hours >= 1:
		return 1
	default:
		return 0
	}
}

// ComputeReminders lists the reminders due at now for undelivered scheduled
// quizzes. Nothing is sent; the caller decides what to do with the list.
func ComputeReminders(now time.Time, pending []domain.ScheduledQuiz) []domain.Reminder {
	reminders := make([]domain.Reminder, 0, len(pending))
	for _, s := range pending {
		if s.Delivered {
			continue
		}
		n := ReminderCount(now.Sub(s.ScheduledTime))
		if n == 0 {
			continue
		}
		reminders = append(reminders, domain.Reminder{
			UserID:        s.UserID,
			QuizID:        s.QuizID,
			ScheduledTime: s.ScheduledTime,
			ReminderCount: n,
			Message:       fmt.Sprintf("Send reminder #%d to user %d for quiz %d", n, s.UserID, s.QuizID),
		})
	}
	return reminders
}
