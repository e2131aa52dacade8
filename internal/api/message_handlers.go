package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/swipehire/swipehire-api/internal/match"
	"github.com/swipehire/swipehire-api/internal/message"
	"github.com/swipehire/swipehire-api/internal/middleware"
)

// DefaultMessagePageSize is the message page size when none is requested.
const DefaultMessagePageSize = 50

// SendMessageRequest represents the request body for appending a message.
type SendMessageRequest struct {
	SenderID string `json:"sender_id,omitempty"`
	Body     string `json:"body"`
}

// MessagesResponse is the response body for listing conversation messages.
type MessagesResponse struct {
	Messages []*message.Message `json:"messages"`
	HasMore  bool               `json:"has_more"`
}

// MessageHandlers holds dependencies for conversation and message handlers.
type MessageHandlers struct {
	repo        message.Repository
	matches     match.Repository
	broadcaster *message.EventBroadcaster
}

// NewMessageHandlers creates a new MessageHandlers instance. The broadcaster
// is optional; without it messages are stored but not pushed to sockets.
func NewMessageHandlers(repo message.Repository, matches match.Repository, broadcaster *message.EventBroadcaster) *MessageHandlers {
	return &MessageHandlers{
		repo:        repo,
		matches:     matches,
		broadcaster: broadcaster,
	}
}

// conversationIDFromPath extracts the conversation ID from
// /conversations/{id} or /conversations/{id}/...
func conversationIDFromPath(r *http.Request) string {
	parts := strings.Split(strings.TrimPrefix(r.URL.Path, "/conversations/"), "/")
	if len(parts) == 0 {
		return ""
	}
	return strings.TrimSpace(parts[0])
}

// CreateConversationRequest represents the request body for opening the
// conversation attached to a match.
type CreateConversationRequest struct {
	MatchID string `json:"match_id"`
}

// CreateConversation handles POST /conversations - opens the conversation
// for a match. Idempotent: repeating the call returns the existing
// conversation.
func (h *MessageHandlers) CreateConversation(w http.ResponseWriter, r *http.Request) {
	var req CreateConversationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "Invalid JSON in request body")
		return
	}

	matchID := strings.TrimSpace(req.MatchID)
	if matchID == "" {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "match_id is required")
		return
	}

	m, err := h.matches.GetByID(matchID)
	if err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeNotFound)
		WriteError(w, ctx, http.StatusNotFound, ErrCodeNotFound, "Match not found")
		return
	}

	conv, err := h.repo.CreateConversation(m.ID, m.SeekerID, m.RecruiterID)
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to create conversation", "error", err, "match_id", matchID)
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to create conversation")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(conv); err != nil {
		slog.ErrorContext(r.Context(), "failed to encode response", "error", err)
	}
}

// GetConversation handles GET /conversations/{id}.
func (h *MessageHandlers) GetConversation(w http.ResponseWriter, r *http.Request) {
	id := conversationIDFromPath(r)
	if id == "" {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "Conversation ID is required")
		return
	}

	conv, err := h.repo.GetConversation(id)
	if err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeNotFound)
		WriteError(w, ctx, http.StatusNotFound, ErrCodeNotFound, "Conversation not found")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(conv); err != nil {
		slog.ErrorContext(r.Context(), "failed to encode response", "error", err)
	}
}

// ListConversations handles GET /conversations?user_id= - lists a user's
// conversations, most recently active first.
func (h *MessageHandlers) ListConversations(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		userID = strings.TrimSpace(r.URL.Query().Get("user_id"))
	}
	if userID == "" {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "user_id is required")
		return
	}

	conversations, err := h.repo.ListConversations(userID)
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to list conversations", "error", err, "user_id", userID)
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to list conversations")
		return
	}
	if conversations == nil {
		conversations = []*message.Conversation{}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]any{"conversations": conversations}); err != nil {
		slog.ErrorContext(r.Context(), "failed to encode response", "error", err)
	}
}

// ListMessages handles GET /conversations/{id}/messages - returns a page of
// messages, oldest first.
func (h *MessageHandlers) ListMessages(w http.ResponseWriter, r *http.Request) {
	id := conversationIDFromPath(r)
	if id == "" {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "Conversation ID is required")
		return
	}

	offset, errMsg := parseNonNegativeInt(r.URL.Query().Get("offset"), 0)
	if errMsg != "" {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "offset must be a non-negative integer")
		return
	}
	limit, errMsg := parseNonNegativeInt(r.URL.Query().Get("limit"), DefaultMessagePageSize)
	if errMsg != "" || limit == 0 {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "limit must be a positive integer")
		return
	}

	messages, hasMore, err := h.repo.ListMessages(id, offset, limit)
	if err != nil {
		if errors.Is(err, message.ErrConversationNotFound) {
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeNotFound)
			WriteError(w, ctx, http.StatusNotFound, ErrCodeNotFound, "Conversation not found")
			return
		}
		slog.ErrorContext(r.Context(), "failed to list messages", "error", err, "conversation_id", id)
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to list messages")
		return
	}
	if messages == nil {
		messages = []*message.Message{}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(MessagesResponse{Messages: messages, HasMore: hasMore}); err != nil {
		slog.ErrorContext(r.Context(), "failed to encode response", "error", err)
	}
}

// SendMessage handles POST /conversations/{id}/messages - appends a message
// and broadcasts it to WebSocket subscribers.
func (h *MessageHandlers) SendMessage(w http.ResponseWriter, r *http.Request) {
	id := conversationIDFromPath(r)
	if id == "" {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "Conversation ID is required")
		return
	}

	var req SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "Invalid JSON in request body")
		return
	}

	senderID := middleware.GetUserID(r.Context())
	if senderID == "" {
		senderID = strings.TrimSpace(req.SenderID)
	}
	if senderID == "" {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "sender_id is required")
		return
	}

	msg, err := h.repo.Append(id, senderID, req.Body)
	if err != nil {
		switch {
		case errors.Is(err, message.ErrConversationNotFound):
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeNotFound)
			WriteError(w, ctx, http.StatusNotFound, ErrCodeNotFound, "Conversation not found")
		case errors.Is(err, message.ErrNotParticipant):
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeNotParticipant)
			WriteError(w, ctx, http.StatusForbidden, ErrCodeNotParticipant, "Sender is not a conversation participant")
		case errors.Is(err, message.ErrEmptyBody):
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeEmptyBody)
			WriteError(w, ctx, http.StatusBadRequest, ErrCodeEmptyBody, "Message body must not be empty")
		default:
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
			WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, err.Error())
		}
		return
	}

	if h.broadcaster != nil {
		h.broadcaster.Broadcast(message.NewMessageEvent(msg))
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(msg); err != nil {
		slog.ErrorContext(r.Context(), "failed to encode response", "error", err)
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Origin checking is delegated to the deployment's proxy layer
		return true
	},
}

// SubscribeMessages handles GET /conversations/{id}/ws - upgrades to a
// WebSocket and streams message events for the conversation until the
// client disconnects.
func (h *MessageHandlers) SubscribeMessages(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	parts := strings.Split(strings.TrimPrefix(r.URL.Path, "/conversations/"), "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] != "ws" {
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "Invalid URL path")
		return
	}
	conversationID := parts[0]

	if _, err := h.repo.GetConversation(conversationID); err != nil {
		if errors.Is(err, message.ErrConversationNotFound) {
			WriteError(w, ctx, http.StatusNotFound, ErrCodeNotFound, "Conversation not found")
		} else {
			slog.ErrorContext(ctx, "failed to get conversation", "error", err)
			WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Internal server error")
		}
		return
	}

	if h.broadcaster == nil {
		WriteError(w, ctx, http.StatusServiceUnavailable, ErrCodeInternal, "Message streaming is not enabled")
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.ErrorContext(ctx, "failed to upgrade websocket connection",
			"error", err,
			"conversation_id", conversationID,
		)
		return
	}

	h.broadcaster.Subscribe(conversationID, conn)

	requestID := middleware.GetRequestID(ctx)
	slog.InfoContext(ctx, "websocket client subscribed to conversation",
		"conversation_id", conversationID,
		"request_id", requestID,
	)

	defer func() {
		h.broadcaster.Unsubscribe(conn)
		conn.Close()
		slog.InfoContext(ctx, "websocket client unsubscribed",
			"conversation_id", conversationID,
			"request_id", requestID,
		)
	}()

	// Clients do not send messages; reading only detects disconnection.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				slog.WarnContext(ctx, "websocket connection closed unexpectedly",
					"error", err,
					"conversation_id", conversationID,
				)
			}
			break
		}
	}
}
