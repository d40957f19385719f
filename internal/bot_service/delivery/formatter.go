package delivery

import (
	"github.com/ChirchirMeshack/SomaBot/internal/bot_service/domain"
)

// LessonChunkSize is the maximum characters of lesson content per message.
const LessonChunkSize = 1000

// FormatLesson splits a lesson into chat-sized messages: the bold title when
// there is one, the content in LessonChunkSize windows, then a media link when
// the lesson has one.
func FormatLesson(to string, lesson domain.Lesson) []domain.OutboundMessage {
	var msgs []domain.OutboundMessage
	if lesson.Title != "" {
		msgs = append(msgs, domain.OutboundMessage{To: to, Body: "*" + lesson.Title + "*"})
	}

	for _, chunk := range chunkRunes(lesson.Content, LessonChunkSize) {
		msgs = append(msgs, domain.OutboundMessage{To: to, Body: chunk})
	}

	if lesson.MediaURL != "" {
		msgs = append(msgs, domain.OutboundMessage{
			To:       to,
			Body:     "Media: " + lesson.MediaURL,
			MediaURL: lesson.MediaURL,
		})
	}
	return msgs
}

// chunkRunes splits on rune boundaries so multi-byte characters stay intact.
func chunkRunes(s string, size int) []string {
	runes := []rune(s)
	chunks := make([]string, 0, (len(runes)+size-1)/size)
	for start := 0; start < len(runes); start += size {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[start:end]))
	}
	return chunks
}
