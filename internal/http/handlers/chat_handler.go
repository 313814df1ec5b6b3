// Chat HTTP handlers.
//
// This file exposes the REST endpoints of the conversational surface:
//   - POST   /chat                    (send a message, get a reply)
//   - GET    /history/{session_id}    (full transcript of one session)
//   - GET    /sessions                (one summary per session, ETag support)
//   - POST   /rate                    (rate a past exchange)
//   - GET    /new-session             (mint a session id)
//   - DELETE /session/{session_id}    (delete a session's turns)
//   - GET    /models                  (model names on the inference server)
//   - GET    /health                  (service + inference server liveness)
//
// Handlers are transport-thin: they validate input, call application services,
// and translate results into HTTP responses. User-facing messages are in
// Vietnamese, matching the product's audience; error codes stay English and
// machine-readable.
package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/vietchat/ollama-chat-backend/internal/domain"
	"github.com/vietchat/ollama-chat-backend/internal/repo"
	"github.com/vietchat/ollama-chat-backend/internal/services"
)

// Localized user-facing messages. The API contract promises these exact
// strings, so they live in one place.
const (
	msgChatFailed       = "Có lỗi xảy ra khi xử lý tin nhắn"
	msgRatingSaved      = "Đánh giá đã được lưu thành công"
	msgRatingNotFound   = "Không tìm thấy cuộc hội thoại"
	msgSessionDeleted   = "Session đã được xóa thành công"
	msgSessionNotFound  = "Không tìm thấy session"
	msgRatingOutOfRange = "Đánh giá phải nằm trong khoảng từ 1 đến 5"
	msgMessageEmpty     = "Tin nhắn không được để trống"
	msgMessageTooLong   = "Tin nhắn quá dài"
)

//
// Service contracts (context-aware)
//

// ChatService owns the chat hot path consumed by the POST /chat handler.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type ChatService interface {
	// Answer validates the message, generates a reply, and persists the turn.
	Answer(ctx context.Context, userID, sessionID, message string) (*domain.Conversation, error)
}

// ConversationService defines operations over stored conversations.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type ConversationService interface {
	// History returns a session's turns, oldest first.
	History(ctx context.Context, sessionID, userID string) ([]domain.Conversation, error)
	// Sessions returns one summary per session, most recently active first.
	Sessions(ctx context.Context, userID string) ([]services.SessionSummary, error)
	// Rate overwrites rating and feedback on one conversation.
	Rate(ctx context.Context, conversationID, userID string, rating float64, feedback *string) error
	// DeleteSession removes a session's turns.
	DeleteSession(ctx context.Context, sessionID, userID string) error
	// NewSessionID mints a fresh opaque session identifier.
	NewSessionID() string
}

// InferenceProbe exposes the read-only operations against the inference
// server used by the health and model-listing endpoints.
type InferenceProbe interface {
	// CheckConnection reports whether the inference server answers.
	CheckConnection(ctx context.Context) bool
	// ListModels returns the model names the server has pulled.
	ListModels(ctx context.Context) []string
}

//
// Handler wiring
//

// Handlers groups the HTTP endpoints of the service. It depends on abstract
// service interfaces to keep transport concerns separate from business logic.
type Handlers struct {
	chatSvc ChatService
	convSvc ConversationService
	authSvc AccountService
	llm     InferenceProbe
}

// New constructs and returns a Handlers instance bound to the given services.
func New(chatSvc ChatService, convSvc ConversationService, authSvc AccountService, llm InferenceProbe) *Handlers {
	return &Handlers{chatSvc: chatSvc, convSvc: convSvc, authSvc: authSvc, llm: llm}
}

// userID extracts the authenticated user id from Gin context (set by the auth
// middleware). Empty means anonymous; the services treat an empty owner as
// the unscoped single-tenant mode.
func userID(c *gin.Context) string {
	if v, ok := c.Get("userID"); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

//
// DTOs
//

// ChatRequest is the JSON payload for sending a message.
type ChatRequest struct {
	// Message is the user's utterance. Must be non-blank.
	Message string `json:"message" binding:"required" example:"Xin chào"`
	// SessionID groups the message into a conversation thread.
	SessionID string `json:"session_id" binding:"required" example:"141add05-4415-4938-b5a1-17e0d3171aff"`
}

// ChatResponse carries the assistant's reply and the persisted turn's id.
type ChatResponse struct {
	Response       string `json:"response"`
	SessionID      string `json:"session_id"`
	ConversationID string `json:"conversation_id"`
}

// HistoryResponse wraps a session's transcript.
type HistoryResponse struct {
	History []domain.Conversation `json:"history"`
}

// SessionsResponse wraps the per-session summaries.
type SessionsResponse struct {
	Sessions []services.SessionSummary `json:"sessions"`
}

// RateRequest is the JSON payload for rating a past exchange.
type RateRequest struct {
	// ConversationID identifies the exchange being rated.
	ConversationID string `json:"conversation_id" binding:"required"`
	// Rating is the score, 1 to 5 (halves allowed).
	Rating float64 `json:"rating" binding:"required"`
	// Feedback is optional free text accompanying the score.
	Feedback *string `json:"feedback,omitempty"`
}

// MessageResponse is the body of endpoints that return only a status message.
type MessageResponse struct {
	Message string `json:"message"`
}

// NewSessionResponse carries a freshly minted session id.
type NewSessionResponse struct {
	SessionID string `json:"session_id"`
}

// ModelsResponse lists the model names available on the inference server.
type ModelsResponse struct {
	Models []string `json:"models"`
}

// HealthResponse reports service liveness and inference-server reachability.
type HealthResponse struct {
	Status          string `json:"status"`
	OllamaConnected bool   `json:"ollama_connected"`
}

//
// Handlers
//

// Chat godoc
// @ID          chat
// @Summary     Send a chat message
// @Description Generates an assistant reply for the message within the given session and persists the exchange.
// @Tags        Chat
// @Accept      json
// @Produce     json
//
// @Param       body  body  handlers.ChatRequest  true  "Chat payload"
//
// @Success     200  {object}  handlers.ChatResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /chat [post]
func (h *Handlers) Chat(c *gin.Context) {
	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	conv, err := h.chatSvc.Answer(c.Request.Context(), userID(c), req.SessionID, req.Message)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrEmptyMessage):
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, msgMessageEmpty)
		case errors.Is(err, services.ErrMessageTooLong):
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, msgMessageTooLong)
		default:
			fail(c, http.StatusInternalServerError, ErrCodeChatFailed, msgChatFailed)
		}
		return
	}

	ok(c, http.StatusOK, ChatResponse{
		Response:       conv.BotResponse,
		SessionID:      conv.SessionID,
		ConversationID: conv.ID,
	})
}

// History godoc
// @ID          chatHistory
// @Summary     Get a session's transcript
// @Description Returns every exchange of the session, oldest first. Unknown sessions yield an empty list.
// @Tags        Chat
// @Produce     json
//
// @Param       session_id  path  string  true  "Session ID"
//
// @Success     200  {object}  handlers.HistoryResponse
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /history/{session_id} [get]
func (h *Handlers) History(c *gin.Context) {
	sessionID := c.Param("session_id")

	turns, err := h.convSvc.History(c.Request.Context(), sessionID, userID(c))
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeHistoryFailed, "could not load history")
		return
	}
	if turns == nil {
		turns = []domain.Conversation{}
	}
	ok(c, http.StatusOK, HistoryResponse{History: turns})
}

// Sessions godoc
// @ID          chatSessions
// @Summary     List sessions
// @Description Returns one summary per session, most recently active first. Supports weak ETag via If-None-Match and may return 304.
// @Tags        Chat
// @Produce     json
//
// @Param       If-None-Match  header  string  false "Return 304 if ETag matches"
//
// @Success     200  {object}  handlers.SessionsResponse
// @Header      200  {string}  ETag  "Weak ETag for current result"
// @Success     304  {string}  string "Not Modified"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /sessions [get]
func (h *Handlers) Sessions(c *gin.Context) {
	ctx := c.Request.Context()
	uid := userID(c)

	// ETag pre-check (best effort).
	var db *gorm.DB
	if svc, isConcrete := h.convSvc.(*services.ConversationService); isConcrete {
		db = svc.DB
	}
	if db != nil {
		count, maxTS, err := repo.SessionsStats(ctx, db, uid)
		if err == nil {
			var ts int64
			if maxTS != nil {
				ts = maxTS.Unix()
			}
			etag := fmt.Sprintf(`W/"sessions:%s:%d:%d"`, uid, count, ts)
			c.Header("ETag", etag)
			if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
				c.Status(http.StatusNotModified)
				return
			}
		}
	}

	sums, err := h.convSvc.Sessions(ctx, uid)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeSessionsFailed, "could not list sessions")
		return
	}
	if sums == nil {
		sums = []services.SessionSummary{}
	}
	ok(c, http.StatusOK, SessionsResponse{Sessions: sums})
}

// Rate godoc
// @ID          rateConversation
// @Summary     Rate an exchange
// @Description Stores a 1 to 5 rating and optional feedback on one conversation. Re-rating overwrites.
// @Tags        Chat
// @Accept      json
// @Produce     json
//
// @Param       body  body  handlers.RateRequest  true  "Rating payload"
//
// @Success     200  {object}  handlers.MessageResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse  "Conversation not found"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /rate [post]
func (h *Handlers) Rate(c *gin.Context) {
	var req RateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	err := h.convSvc.Rate(c.Request.Context(), req.ConversationID, userID(c), req.Rating, req.Feedback)
	switch {
	case err == nil:
		ok(c, http.StatusOK, MessageResponse{Message: msgRatingSaved})
	case errors.Is(err, services.ErrInvalidRating):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, msgRatingOutOfRange)
	case errors.Is(err, services.ErrConversationNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, msgRatingNotFound)
	default:
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "could not save rating")
	}
}

// NewSession godoc
// @ID          newSession
// @Summary     Mint a session id
// @Description Returns a fresh opaque session identifier. Nothing is persisted until the first message.
// @Tags        Chat
// @Produce     json
//
// @Success     200  {object}  handlers.NewSessionResponse
// @Router      /new-session [get]
func (h *Handlers) NewSession(c *gin.Context) {
	ok(c, http.StatusOK, NewSessionResponse{SessionID: h.convSvc.NewSessionID()})
}

// DeleteSession godoc
// @ID          deleteSession
// @Summary     Delete a session
// @Description Removes every exchange of the session. Deleting an unknown session yields 404.
// @Tags        Chat
// @Produce     json
//
// @Param       session_id  path  string  true  "Session ID"
//
// @Success     200  {object}  handlers.MessageResponse
// @Failure     404  {object}  handlers.ErrorResponse  "Session not found"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /session/{session_id} [delete]
func (h *Handlers) DeleteSession(c *gin.Context) {
	sessionID := strings.TrimSpace(c.Param("session_id"))

	err := h.convSvc.DeleteSession(c.Request.Context(), sessionID, userID(c))
	switch {
	case err == nil:
		ok(c, http.StatusOK, MessageResponse{Message: msgSessionDeleted})
	case errors.Is(err, services.ErrSessionNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, msgSessionNotFound)
	default:
		fail(c, http.StatusInternalServerError, ErrCodeDeleteFailed, "could not delete session")
	}
}

// Models godoc
// @ID          listModels
// @Summary     List available models
// @Description Returns the model names pulled on the inference server. Empty when the server is unreachable.
// @Tags        System
// @Produce     json
//
// @Success     200  {object}  handlers.ModelsResponse
// @Router      /models [get]
func (h *Handlers) Models(c *gin.Context) {
	ok(c, http.StatusOK, ModelsResponse{Models: h.llm.ListModels(c.Request.Context())})
}

// Health godoc
// @ID          health
// @Summary     Health check
// @Description Reports service liveness and whether the inference server answers. Always 200; the body carries the verdict.
// @Tags        System
// @Produce     json
//
// @Success     200  {object}  handlers.HealthResponse
// @Router      /health [get]
func (h *Handlers) Health(c *gin.Context) {
	connected := h.llm.CheckConnection(c.Request.Context())
	status := "healthy"
	if !connected {
		status = "unhealthy"
	}
	ok(c, http.StatusOK, HealthResponse{Status: status, OllamaConnected: connected})
}
