package app

import (
	"regexp"
	"strings"
)

type IntentName string

const (
	IntentQuizAnswer       IntentName = "quiz_answer"
	IntentQuizRequest      IntentName = "quiz_request"
	IntentRecommendation   IntentName = "recommendation"
	IntentProgressInsights IntentName = "progress_insights"
	IntentTopicReset       IntentName = "topic_reset"
	IntentChat             IntentName = "chat"
)

// IntentOrder is the evaluation order of the matchers; the first match wins
// and chat catches everything else.
var IntentOrder = []IntentName{
	IntentQuizAnswer,
	IntentQuizRequest,
	IntentRecommendation,
	IntentProgressInsights,
	IntentTopicReset,
	IntentChat,
}

const answerPrefix = "my answer is"

var intentMatchers = map[IntentName]func(text string) bool{
	IntentQuizAnswer: func(text string) bool {
		return isOptionLetter(text) || strings.HasPrefix(text, answerPrefix)
	},
	IntentQuizRequest: func(text string) bool {
		return containsAny(text, "quiz me", "generate quiz")
	},
	IntentRecommendation: func(text string) bool {
		return containsAny(text, "what next", "recommend", "next lesson", "next course")
	},
	IntentProgressInsights: func(text string) bool {
		return containsAny(text, "progress report", "how am i doing", "learning insights")
	},
	IntentTopicReset: func(text string) bool {
		return strings.Contains(text, "new topic") || strings.HasPrefix(text, "let's talk about")
	},
	IntentChat: func(string) bool { return true },
}

// ClassifyIntent maps a message body to the first matching intent.
func ClassifyIntent(body string) IntentName {
	text := strings.ToLower(strings.TrimSpace(body))
	for _, name := range IntentOrder {
		if intentMatchers[name](text) {
			return name
		}
	}
	return IntentChat
}

func containsAny(text string, needles ...string) bool {
	for _, n := range needles {
		if strings.Contains(text, n) {
			return true
		}
	}
	return false
}

func isOptionLetter(text string) bool {
	return len(text) == 1 && strings.Contains("abcd", text)
}

// ExtractAnswer returns the upper-cased answer from "b" or "my answer is b".
func ExtractAnswer(body string) string {
	text := strings.ToLower(strings.TrimSpace(body))
	if isOptionLetter(text) {
		return strings.ToUpper(text)
	}
	rest := strings.TrimSpace(strings.TrimPrefix(text, answerPrefix))
	rest = strings.Trim(rest, " :.!)(")
	if rest == "" {
		return ""
	}
	if first := rest[:1]; isOptionLetter(first) && (len(rest) == 1 || !isLetter(rest[1])) {
		return strings.ToUpper(first)
	}
	return strings.ToUpper(rest)
}

func isLetter(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

// correctAnswerLine matches one line that starts with the answer marker.
var correctAnswerLine = regexp.MustCompile(`(?i)^\W*(?:the\s+)?correct\s+answer\W*(?:is\W*)?([A-D])\b`)

func answerMarker(line string) (string, bool) {
	m := correctAnswerLine.FindStringSubmatch(strings.TrimSpace(line))
	if m == nil {
		return "", false
	}
	return strings.ToUpper(m[1]), true
}

// ParseCorrectAnswer finds the "Correct Answer: X" marker in generated quiz
// text and returns the letter, or "" when it is missing. The last marker wins.
func ParseCorrectAnswer(quizText string) string {
	lines := strings.Split(quizText, "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if letter, ok := answerMarker(lines[i]); ok {
			return letter
		}
	}
	return ""
}

// StripAnswerLine drops the lines that reveal the correct answer.
func StripAnswerLine(quizText string) string {
	lines := strings.Split(quizText, "\n")
	kept := lines[:0]
	for _, line := range lines {
		if _, ok := answerMarker(line); ok {
			continue
		}
		kept = append(kept, line)
	}
	return strings.TrimSpace(strings.Join(kept, "\n"))
}
