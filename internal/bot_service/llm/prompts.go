package llm

import (
	"encoding/json"
	"fmt"

	"github.com/ChirchirMeshack/SomaBot/internal/bot_service/domain"
)

func quizPrompt(lesson domain.Lesson, band domain.DifficultyBand) string {
	return fmt.Sprintf("Generate a %s multiple-choice quiz question (with 4 options, A-D) based on the following lesson. "+
		"Format: Question, then options A-D, then indicate the correct answer as \"Correct Answer: <letter>\".\n"+
		"Lesson Title: %s\nLesson Content: %s", band, lesson.Title, lesson.Content)
}

func feedbackPrompt(question, correctAnswer, userAnswer string) string {
	return fmt.Sprintf("Given the following quiz question, the correct answer, and the user's answer, "+
		"explain why the answer is correct or incorrect and provide a helpful hint.\n"+
		"Question: %s\nCorrect Answer: %s\nUser Answer: %s", question, correctAnswer, userAnswer)
}

func insightsPrompt(progress []domain.Progress) (string, error) {
	data, err := json.Marshal(progress)
	if err != nil {
		return "", fmt.Errorf("encode progress: %w", err)
	}
	return "Given this user progress data, summarize their learning patterns and suggest improvements.\n" +
		"Progress Data: " + string(data), nil
}
