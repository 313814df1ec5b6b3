// Package services defines the business logic for chat orchestration,
// conversation management, and user accounts. This file centralizes common
// service-level error values so that they can be consistently returned by
// service methods and checked by callers.
//
// These errors are intended for internal use by the service layer; translation
// into user-facing messages or HTTP status codes is performed at the handler
// layer.
package services

import "errors"

// Conversation-related errors.
var (
	// ErrEmptyMessage is returned when a chat request contains an empty
	// message after trimming.
	ErrEmptyMessage = errors.New("message is empty")

	// ErrMessageTooLong is returned when a chat message exceeds the maximum
	// configured rune length.
	ErrMessageTooLong = errors.New("message too long")

	// ErrInvalidRating is returned when a rating falls outside the allowed
	// 1–5 range.
	ErrInvalidRating = errors.New("rating must be between 1 and 5")

	// ErrConversationNotFound indicates that the rated conversation does not
	// exist or is not accessible to the current user.
	ErrConversationNotFound = errors.New("conversation not found")

	// ErrSessionNotFound indicates that a session deletion matched no rows,
	// either because the session never existed or because it belongs to a
	// different user. It is distinct from a storage failure, which is
	// propagated as the raw DB error.
	ErrSessionNotFound = errors.New("session not found")
)

// Account-related errors.
var (
	// ErrUsernameTaken is returned when registering with a username that
	// already exists.
	ErrUsernameTaken = errors.New("username already registered")

	// ErrEmailTaken is returned when registering with an email that already
	// exists.
	ErrEmailTaken = errors.New("email already registered")

	// ErrWeakPassword is returned when a registration password is shorter
	// than the configured minimum.
	ErrWeakPassword = errors.New("password too short")

	// ErrInvalidCredentials is returned on login when the username is unknown
	// or the password does not match. The two cases are deliberately not
	// distinguished.
	ErrInvalidCredentials = errors.New("invalid username or password")

	// ErrUserInactive is returned on login for a disabled account.
	ErrUserInactive = errors.New("user account is inactive")

	// ErrUserNotFound indicates that a token referenced a user that no longer
	// exists.
	ErrUserNotFound = errors.New("user not found")
)
