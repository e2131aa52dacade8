// Package message provides models and repository for match conversations
// and WebSocket event broadcasting for real-time message delivery.
package message

import (
	"errors"
	"strings"
	"time"
)

// Common errors for message operations.
var (
	ErrConversationNotFound = errors.New("conversation not found")
	ErrMessageNotFound      = errors.New("message not found")
	ErrNotParticipant       = errors.New("user is not a conversation participant")
	ErrEmptyBody            = errors.New("message body must not be empty")
)

// MaxBodyLength caps a single message body.
const MaxBodyLength = 4000

// Conversation is the message thread attached to a match. Exactly one
// conversation exists per match, created when the match forms.
type Conversation struct {
	ID          string    `json:"id"`
	MatchID     string    `json:"match_id"`
	SeekerID    string    `json:"seeker_id"`
	RecruiterID string    `json:"recruiter_id"`
	CreatedAt   time.Time `json:"created_at"`

	// LastMessageAt orders conversation lists; zero until the first
	// message arrives.
	LastMessageAt time.Time `json:"last_message_at,omitempty"`
}

// HasParticipant reports whether a user belongs to the conversation.
func (c *Conversation) HasParticipant(userID string) bool {
	return c.SeekerID == userID || c.RecruiterID == userID
}

// Message is one entry in a conversation.
type Message struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	SenderID       string    `json:"sender_id"`
	Body           string    `json:"body"`
	CreatedAt      time.Time `json:"created_at"`
}

// Validate checks the message body.
func (m *Message) Validate() error {
	body := strings.TrimSpace(m.Body)
	if body == "" {
		return ErrEmptyBody
	}
	if len(body) > MaxBodyLength {
		return errors.New("message body exceeds maximum length")
	}
	return nil
}
