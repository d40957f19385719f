package app

import "regexp"

type TemplateKind string

const (
	TemplateQuiz         TemplateKind = "quiz"
	TemplateNotification TemplateKind = "notification"
)

var templates = map[TemplateKind]string{
	TemplateQuiz:         "*Quiz Time!*\n\n{quizQuestion}\nA) {optionA}\nB) {optionB}\nC) {optionC}\nD) {optionD}",
	TemplateNotification: "🔔 {message}",
}

var placeholderPattern = regexp.MustCompile(`\{(\w+)\}`)

// RenderTemplate fills {placeholders} from data. Placeholders without a value
// are left as they are; an unknown kind renders as "".
func RenderTemplate(kind TemplateKind, data map[string]string) string {
	tmpl, ok := templates[kind]
	if !ok {
		return ""
	}
	return placeholderPattern.ReplaceAllStringFunc(tmpl, func(ph string) string {
		key := ph[1 : len(ph)-1]
		if v, ok := data[key]; ok {
			return v
		}
		return ph
	})
}
