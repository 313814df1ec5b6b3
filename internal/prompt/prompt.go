// Package prompt builds the deterministic text prompt sent to the inference
// server. It renders a bounded window of prior turns plus the current user
// message around a fixed Vietnamese system instruction.
//
// Both functions are pure: identical inputs always produce byte-identical
// output (no clock reads, no randomness), which keeps generation reproducible
// for a given conversation state.
package prompt

import (
	"strings"

	"github.com/vietchat/ollama-chat-backend/internal/domain"
)

// ContextWindow is the maximum number of prior turns included in the prompt.
// Older turns are dropped to keep the context short enough for small local
// models.
const ContextWindow = 5

// systemPrompt fixes the assistant's identity and behavior. The assistant
// answers in Vietnamese and is told to keep conversational context.
const systemPrompt = `Bạn là một trợ lý AI thông minh và hữu ích, chuyên trả lời bằng tiếng Việt.
Hãy trả lời một cách tự nhiên, thân thiện và chính xác.
Nếu bạn không biết câu trả lời, hãy thành thật nói rằng bạn không biết.
Hãy duy trì ngữ cảnh của cuộc hội thoại và tham khảo các tin nhắn trước đó khi cần thiết.`

// Transcript labels. The same speaker labels appear in the history window and
// in the current-message block so the model sees one consistent format.
const (
	labelUser      = "Người dùng: "
	labelAssistant = "AI: "
)

// BuildContext serializes the most recent ContextWindow turns of history as a
// transcript, oldest retained turn first. Each turn renders as two lines:
//
//	Người dùng: <user message>
//	AI: <bot response>
//
// Fewer than ContextWindow turns are rendered as-is; empty history yields "".
func BuildContext(history []domain.Conversation) string {
	if len(history) == 0 {
		return ""
	}
	recent := history
	if len(recent) > ContextWindow {
		recent = recent[len(recent)-ContextWindow:]
	}

	parts := make([]string, 0, 2*len(recent))
	for _, turn := range recent {
		parts = append(parts, labelUser+turn.UserMessage)
		parts = append(parts, labelAssistant+turn.BotResponse)
	}
	return strings.Join(parts, "\n")
}

// BuildPrompt assembles the final prompt from a transcript context and the
// new user message. When context is empty the history block is omitted
// entirely rather than emitted with an empty body; a first-turn prompt must
// not show the model an empty history header.
func BuildPrompt(context, message string) string {
	var b strings.Builder
	b.WriteString(systemPrompt)
	b.WriteString("\n\n")

	if context != "" {
		b.WriteString("Lịch sử cuộc hội thoại:\n")
		b.WriteString(context)
		b.WriteString("\n\n")
		b.WriteString("Tin nhắn hiện tại:\n")
	}

	b.WriteString(labelUser)
	b.WriteString(message)
	b.WriteString("\nAI:")
	return b.String()
}
