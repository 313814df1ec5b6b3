// Package services – ConversationService
//
// This file implements the ConversationService, which manages stored
// conversations outside the hot chat path: history retrieval, per-session
// summaries, ratings, session deletion, and session id generation. It
// enforces the ownership scope on every repository call and the 1–5 rating
// range, and aggregates turn-granular rows into one summary per session.
//
// Service-level errors (e.g. ErrConversationNotFound, ErrSessionNotFound)
// are returned for predictable cases so handlers can map them to HTTP
// results consistently.
package services

import (
	"context"
	"errors"
	"sort"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/vietchat/ollama-chat-backend/internal/domain"
)

// previewTruncateMarker is appended to a session preview cut at PreviewLen.
const previewTruncateMarker = "..."

// ConversationRepo defines the repository contract required by
// ConversationService. Implementations persist conversation aggregates.
type ConversationRepo interface {
	// ListConversations returns a session's turns ordered oldest-first,
	// scoped to userID when non-empty.
	ListConversations(ctx context.Context, db *gorm.DB, sessionID, userID string) ([]domain.Conversation, error)

	// ListAllConversations returns every turn visible to userID, oldest-first.
	ListAllConversations(ctx context.Context, db *gorm.DB, userID string) ([]domain.Conversation, error)

	// RateConversation overwrites rating/feedback, enforcing ownership.
	RateConversation(ctx context.Context, db *gorm.DB, id, userID string, rating float64, feedback *string) error

	// DeleteSession removes a session's turns and reports how many.
	DeleteSession(ctx context.Context, db *gorm.DB, sessionID, userID string) (int64, error)
}

// SessionSummary is one entry of the session list: the thread id, a preview
// of its opening message, and the time of its most recent turn.
type SessionSummary struct {
	SessionID    string    `json:"session_id"`
	FirstMessage string    `json:"first_message"`
	Timestamp    time.Time `json:"timestamp"`
}

// ConversationService provides history, session listing, rating, and
// deletion over stored conversations.
type ConversationService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Repo is the conversation repository used by this service.
	Repo ConversationRepo

	// PreviewLen caps session previews by rune length.
	PreviewLen int
}

// NewConversationService constructs a ConversationService with the default
// 50-rune preview length.
func NewConversationService(db *gorm.DB, r ConversationRepo) *ConversationService {
	return &ConversationService{DB: db, Repo: r, PreviewLen: 50}
}

// History returns all turns of sessionID visible to userID, oldest first.
func (s *ConversationService) History(ctx context.Context, sessionID, userID string) ([]domain.Conversation, error) {
	return s.Repo.ListConversations(ctx, s.DB, sessionID, userID)
}

// Sessions returns one summary per distinct session visible to userID,
// most-recently-active first. The backing rows are turn-granular; grouping
// happens here so the result is guaranteed to hold one entry per session.
func (s *ConversationService) Sessions(ctx context.Context, userID string) ([]SessionSummary, error) {
	turns, err := s.Repo.ListAllConversations(ctx, s.DB, userID)
	if err != nil {
		return nil, err
	}

	type agg struct {
		first  string
		lastAt time.Time
	}
	bySession := make(map[string]*agg)
	for _, turn := range turns {
		a, ok := bySession[turn.SessionID]
		if !ok {
			// Rows arrive oldest-first, so the first row seen per session
			// carries the session's opening message.
			a = &agg{first: turn.UserMessage}
			bySession[turn.SessionID] = a
		}
		a.lastAt = turn.CreatedAt
	}

	out := make([]SessionSummary, 0, len(bySession))
	for id, a := range bySession {
		out = append(out, SessionSummary{
			SessionID:    id,
			FirstMessage: s.preview(a.first),
			Timestamp:    a.lastAt,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].Timestamp.After(out[j].Timestamp) // most recent first
		}
		return out[i].SessionID < out[j].SessionID
	})
	return out, nil
}

// Rate overwrites the rating (and optional feedback) of a conversation owned
// by userID. The 1–5 range is enforced here; out-of-range values never reach
// the store. A missing or foreign conversation yields ErrConversationNotFound.
func (s *ConversationService) Rate(ctx context.Context, conversationID, userID string, rating float64, feedback *string) error {
	if rating < 1 || rating > 5 {
		return ErrInvalidRating
	}
	err := s.Repo.RateConversation(ctx, s.DB, conversationID, userID, rating, feedback)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrConversationNotFound
	}
	return err
}

// DeleteSession removes every turn of sessionID visible to userID as one
// atomic statement. It distinguishes a session that matched nothing
// (ErrSessionNotFound) from a storage failure (the raw DB error).
func (s *ConversationService) DeleteSession(ctx context.Context, sessionID, userID string) error {
	n, err := s.Repo.DeleteSession(ctx, s.DB, sessionID, userID)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrSessionNotFound
	}
	return nil
}

// NewSessionID returns a fresh opaque session identifier. UUIDv4 gives
// 122 bits of randomness, enough that collisions are negligible without any
// coordination.
func (s *ConversationService) NewSessionID() string {
	return uuid.NewString()
}

// preview truncates a first message to PreviewLen runes, appending the
// truncation marker only when something was cut.
func (s *ConversationService) preview(msg string) string {
	max := s.PreviewLen
	if max <= 0 {
		max = 50
	}
	if utf8.RuneCountInString(msg) <= max {
		return msg
	}
	return string([]rune(msg)[:max]) + previewTruncateMarker
}
