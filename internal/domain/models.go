// Package domain defines the persistence models for conversations and users.
// These types are mapped with GORM and form the core data layer of the
// chatbot application.
package domain

import (
	"time"
)

// Conversation represents one turn of dialogue: a user message together with
// the assistant response generated for it. Turns sharing a SessionID form one
// dialogue thread.
//
// Fields:
//   - ID: stable UUID primary key (char(36)).
//   - SessionID: opaque client-held identifier grouping turns into a thread;
//     indexed for efficient history retrieval.
//   - UserID: identifier of the owning user. Empty when the server runs in
//     anonymous mode; when set, every read/write/delete is filtered by it.
//   - UserMessage / BotResponse: full text of the exchange. Both are known at
//     insert time; a conversation row is never created half-finished.
//   - CreatedAt: insert timestamp (UTC).
//   - Rating: optional 1–5 score, nil until the turn is explicitly rated.
//   - Feedback: optional free-text comment accompanying a rating.
//
// A conversation is immutable except for Rating/Feedback, which a rating call
// overwrites as a pair.
type Conversation struct {
	ID          string    `json:"id"           gorm:"type:char(36);primaryKey"`
	SessionID   string    `json:"session_id"   gorm:"type:varchar(64);not null;index:idx_session_turns,priority:1"`
	UserID      string    `json:"user_id,omitempty" gorm:"type:varchar(64);index"`
	UserMessage string    `json:"user_message" gorm:"type:text;not null"`
	BotResponse string    `json:"bot_response" gorm:"type:text;not null"`
	CreatedAt   time.Time `json:"timestamp"    gorm:"index:idx_session_turns,priority:2"`
	Rating      *float64  `json:"rating"`
	Feedback    *string   `json:"feedback"`
}

// TableName returns the database table name for Conversation.
func (Conversation) TableName() string { return "conversations" }

// User represents an account in the authenticated deployment variant. A user
// owns zero or more conversations; ownership is enforced by filtering on
// Conversation.UserID, never by trusting client-supplied identifiers.
//
// Fields:
//   - ID: stable UUID primary key (char(36)).
//   - Username / Email: unique login identifiers.
//   - PasswordHash: bcrypt hash of the credential (never serialized).
//   - DisplayName: human-readable name shown by clients.
//   - IsActive: soft disable flag; inactive users cannot log in.
//   - CreatedAt: registration timestamp (UTC).
type User struct {
	ID           string    `json:"id"           gorm:"type:char(36);primaryKey"`
	Username     string    `json:"username"     gorm:"type:varchar(64);not null;uniqueIndex"`
	Email        string    `json:"email"        gorm:"type:varchar(255);not null;uniqueIndex"`
	PasswordHash string    `json:"-"            gorm:"type:varchar(128);not null"`
	DisplayName  string    `json:"display_name" gorm:"type:varchar(255)"`
	IsActive     bool      `json:"is_active"    gorm:"not null;default:true"`
	CreatedAt    time.Time `json:"created_at"`
}

// TableName returns the database table name for User.
func (User) TableName() string { return "users" }
