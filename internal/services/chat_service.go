// Package services – ChatService
//
// This file implements ChatService, the application-level component that owns
// the chat hot path: validate the inbound message, load the session's history
// under the caller's ownership scope, obtain a reply from the inference
// client, and persist the completed turn. The persisted record is returned so
// the handler can report its identifier to the client.
//
// Observability: Answer is OpenTelemetry-instrumented; spans include session
// and user identifiers.
package services

import (
	"context"
	"strings"
	"unicode/utf8"

	"gorm.io/gorm"

	"github.com/vietchat/ollama-chat-backend/internal/domain"
	"github.com/vietchat/ollama-chat-backend/internal/repo"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Responder produces a reply for a message given the prior turns of its
// session. Implementations never return an error: on failure they must
// return displayable fallback text (see the ollama package).
type Responder interface {
	Generate(ctx context.Context, message string, history []domain.Conversation) string
}

// ChatService coordinates history retrieval, inference, and persistence for
// the chat endpoint.
type ChatService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// LLM produces assistant replies.
	LLM Responder

	// MaxMessageRunes caps inbound messages by rune length (0 disables).
	MaxMessageRunes int
}

// Answer validates the message, loads the scoped history, generates a reply,
// and persists the turn. The inference call happens outside any transaction;
// conversation creation is a single-row insert, so no multi-step transaction
// ever spans the network round-trip.
func (s *ChatService) Answer(ctx context.Context, userID, sessionID, message string) (*domain.Conversation, error) {
	tr := otel.Tracer("services/ChatService")
	ctx, span := tr.Start(ctx, "Answer",
		trace.WithAttributes(
			attribute.String("session.id", sessionID),
			attribute.String("user.id", userID),
		),
	)
	defer span.End()

	message = strings.TrimSpace(message)
	if message == "" {
		return nil, ErrEmptyMessage
	}
	if s.MaxMessageRunes > 0 && utf8.RuneCountInString(message) > s.MaxMessageRunes {
		return nil, ErrMessageTooLong
	}

	history, err := repo.ListConversations(ctx, s.DB, sessionID, userID)
	if err != nil {
		return nil, err
	}

	reply := s.LLM.Generate(ctx, message, history)

	return repo.CreateConversation(ctx, s.DB, sessionID, userID, message, reply)
}
