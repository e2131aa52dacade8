package message

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Repository defines the interface for conversation and message storage.
type Repository interface {
	// CreateConversation creates the conversation for a match. Calling it
	// again for the same match returns the existing conversation.
	CreateConversation(matchID, seekerID, recruiterID string) (*Conversation, error)

	// GetConversation retrieves a conversation by ID.
	GetConversation(id string) (*Conversation, error)

	// ListConversations returns a user's conversations, most recently
	// active first.
	ListConversations(userID string) ([]*Conversation, error)

	// Append adds a message to a conversation. The sender must be a
	// participant.
	Append(conversationID, senderID, body string) (*Message, error)

	// ListMessages returns a page of a conversation's messages, oldest
	// first, and whether more follow.
	ListMessages(conversationID string, offset, limit int) ([]*Message, bool, error)
}

// InMemoryRepository is an in-memory implementation of Repository.
// Thread-safe via RWMutex.
type InMemoryRepository struct {
	mu            sync.RWMutex
	conversations map[string]*Conversation // conversation ID -> Conversation
	byMatch       map[string]string        // match ID -> conversation ID
	messages      map[string][]*Message    // conversation ID -> messages, append order
}

// NewInMemoryRepository creates a new in-memory message repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		conversations: make(map[string]*Conversation),
		byMatch:       make(map[string]string),
		messages:      make(map[string][]*Message),
	}
}

// CreateConversation creates the conversation for a match, or returns the
// existing one.
func (r *InMemoryRepository) CreateConversation(matchID, seekerID, recruiterID string) (*Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if id, ok := r.byMatch[matchID]; ok {
		return copyConversation(r.conversations[id]), nil
	}

	conv := &Conversation{
		ID:          uuid.New().String(),
		MatchID:     matchID,
		SeekerID:    seekerID,
		RecruiterID: recruiterID,
		CreatedAt:   time.Now(),
	}
	r.conversations[conv.ID] = conv
	r.byMatch[matchID] = conv.ID

	return copyConversation(conv), nil
}

// GetConversation retrieves a conversation by ID.
func (r *InMemoryRepository) GetConversation(id string) (*Conversation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conv, ok := r.conversations[id]
	if !ok {
		return nil, ErrConversationNotFound
	}
	return copyConversation(conv), nil
}

// ListConversations returns a user's conversations, most recently active
// first.
func (r *InMemoryRepository) ListConversations(userID string) ([]*Conversation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*Conversation
	for _, conv := range r.conversations {
		if conv.HasParticipant(userID) {
			out = append(out, copyConversation(conv))
		}
	}

	sort.Slice(out, func(i, j int) bool {
		a, b := activityTime(out[i]), activityTime(out[j])
		if !a.Equal(b) {
			return a.After(b)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// Append adds a message to a conversation.
func (r *InMemoryRepository) Append(conversationID, senderID, body string) (*Message, error) {
	msg := &Message{
		ConversationID: conversationID,
		SenderID:       senderID,
		Body:           strings.TrimSpace(body),
	}
	if err := msg.Validate(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	conv, ok := r.conversations[conversationID]
	if !ok {
		return nil, ErrConversationNotFound
	}
	if !conv.HasParticipant(senderID) {
		return nil, ErrNotParticipant
	}

	msg.ID = uuid.New().String()
	msg.CreatedAt = time.Now()
	r.messages[conversationID] = append(r.messages[conversationID], msg)
	conv.LastMessageAt = msg.CreatedAt

	out := *msg
	return &out, nil
}

// ListMessages returns a page of messages, oldest first.
func (r *InMemoryRepository) ListMessages(conversationID string, offset, limit int) ([]*Message, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if _, ok := r.conversations[conversationID]; !ok {
		return nil, false, ErrConversationNotFound
	}

	all := r.messages[conversationID]
	if offset < 0 {
		offset = 0
	}
	if offset >= len(all) {
		return nil, false, nil
	}
	if limit <= 0 {
		limit = 50
	}

	end := offset + limit
	if end > len(all) {
		end = len(all)
	}

	page := make([]*Message, 0, end-offset)
	for _, msg := range all[offset:end] {
		out := *msg
		page = append(page, &out)
	}
	return page, end < len(all), nil
}

func copyConversation(in *Conversation) *Conversation {
	out := *in
	return &out
}

func activityTime(c *Conversation) time.Time {
	if !c.LastMessageAt.IsZero() {
		return c.LastMessageAt
	}
	return c.CreatedAt
}
