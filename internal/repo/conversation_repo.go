// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the
// Conversation model.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations.
// They follow the "thin repository" approach: no business logic, only CRUD
// persistence and query composition.
//
// Ownership scoping: every function takes a userID parameter. When it is
// non-empty the query is additionally filtered by user_id; this is the
// server-side ownership boundary for the authenticated variant. An empty
// userID leaves queries unscoped (anonymous mode).
//
// Error semantics:
//   - When a conversation is not found, functions return
//     gorm.ErrRecordNotFound (also exported here as ErrNotFound).
//   - On DB errors (constraint violations, connectivity issues, etc.),
//     the raw gorm error is propagated.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/vietchat/ollama-chat-backend/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// scoped appends the user_id filter when userID is non-empty.
func scoped(q *gorm.DB, userID string) *gorm.DB {
	if userID != "" {
		return q.Where("user_id = ?", userID)
	}
	return q
}

// CreateConversation inserts a completed turn (user message plus assistant
// response) for the given session, optionally owned by userID. The ID is a
// randomly generated UUID and CreatedAt is set to UTC.
//
// On success, it returns the persisted Conversation so callers can report the
// assigned identifier back to the client. On failure, it returns a DB error.
func CreateConversation(ctx context.Context, db *gorm.DB, sessionID, userID, userMessage, botResponse string) (*domain.Conversation, error) {
	c := &domain.Conversation{
		ID:          uuid.NewString(),
		SessionID:   sessionID,
		UserID:      userID,
		UserMessage: userMessage,
		BotResponse: botResponse,
		CreatedAt:   time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(c).Error; err != nil {
		return nil, err
	}
	return c, nil
}

// ListConversations returns all turns of a session ordered deterministically
// (CreatedAt ASC, ID ASC), scoped to userID when non-empty. It returns an
// empty slice when the session has no turns.
func ListConversations(ctx context.Context, db *gorm.DB, sessionID, userID string) ([]domain.Conversation, error) {
	var out []domain.Conversation
	err := scoped(db.WithContext(ctx).Where("session_id = ?", sessionID), userID).
		Order("created_at ASC, id ASC").
		Find(&out).Error
	return out, err
}

// ListAllConversations returns every turn visible to userID ordered
// (CreatedAt ASC, id ASC) across all sessions. The service layer aggregates
// this into per-session summaries; doing the grouping in Go keeps the SQL
// portable (SQLite's MAX(created_at) scans back as TEXT).
func ListAllConversations(ctx context.Context, db *gorm.DB, userID string) ([]domain.Conversation, error) {
	var out []domain.Conversation
	err := scoped(db.WithContext(ctx).Model(&domain.Conversation{}), userID).
		Order("created_at ASC, id ASC").
		Find(&out).Error
	return out, err
}

// RateConversation overwrites the rating and feedback of a conversation
// identified by id and, when userID is non-empty, owned by userID. If no rows
// are affected (missing or not owned), it returns ErrNotFound. On DB error,
// the raw error is returned.
func RateConversation(ctx context.Context, db *gorm.DB, id, userID string, rating float64, feedback *string) error {
	res := scoped(db.WithContext(ctx).Model(&domain.Conversation{}).Where("id = ?", id), userID).
		Updates(map[string]any{"rating": rating, "feedback": feedback})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// DeleteSession removes all turns of a session (scoped to userID when
// non-empty) as a single DELETE statement and returns the number of rows
// removed. A zero count with nil error means the session did not exist or was
// not visible to the caller; distinguishing that from a storage failure is
// left to the service layer.
func DeleteSession(ctx context.Context, db *gorm.DB, sessionID, userID string) (int64, error) {
	res := scoped(db.WithContext(ctx).Where("session_id = ?", sessionID), userID).
		Delete(&domain.Conversation{})
	return res.RowsAffected, res.Error
}

// SessionsStats returns aggregate metadata for the sessions visible to
// userID: the total number of conversation rows and the greatest CreatedAt
// among them. Used for conditional responses (ETag) on session listings.
// When there are no rows, count is 0 and maxCreatedAt is nil.
func SessionsStats(ctx context.Context, db *gorm.DB, userID string) (count int64, maxCreatedAt *time.Time, err error) {
	q := scoped(db.WithContext(ctx).Model(&domain.Conversation{}), userID)

	if err = q.Count(&count).Error; err != nil {
		return 0, nil, err
	}
	if count == 0 {
		return 0, nil, nil
	}

	// Latest created_at via ORDER BY (avoid MAX() -> TEXT in SQLite).
	var row struct {
		CreatedAt time.Time
	}
	if err = q.Select("created_at").Order("created_at DESC").Limit(1).Scan(&row).Error; err != nil {
		return 0, nil, err
	}
	return count, &row.CreatedAt, nil
}
