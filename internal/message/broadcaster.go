package message

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// MessageEvent is the wire payload pushed to conversation subscribers when
// a new message lands.
type MessageEvent struct {
	Type           string    `json:"type"` // always "message.created"
	ConversationID string    `json:"conversation_id"`
	MessageID      string    `json:"message_id"`
	SenderID       string    `json:"sender_id"`
	Body           string    `json:"body"`
	CreatedAt      time.Time `json:"created_at"`
}

// NewMessageEvent builds the broadcast event for a stored message.
func NewMessageEvent(msg *Message) *MessageEvent {
	return &MessageEvent{
		Type:           "message.created",
		ConversationID: msg.ConversationID,
		MessageID:      msg.ID,
		SenderID:       msg.SenderID,
		Body:           msg.Body,
		CreatedAt:      msg.CreatedAt,
	}
}

// subscriber pairs a connection with a write mutex. gorilla/websocket does
// not support concurrent writers on one connection, so every write goes
// through the mutex.
type subscriber struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (s *subscriber) write(messageType int, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.WriteMessage(messageType, data)
}

// EventBroadcaster manages WebSocket connections and broadcasts message
// events to conversation subscribers.
type EventBroadcaster struct {
	mu          sync.RWMutex
	connections map[string]map[*websocket.Conn]*subscriber // conversationID -> connections
}

// NewEventBroadcaster creates a new event broadcaster.
func NewEventBroadcaster() *EventBroadcaster {
	return &EventBroadcaster{
		connections: make(map[string]map[*websocket.Conn]*subscriber),
	}
}

// Subscribe registers a WebSocket connection for a conversation.
func (b *EventBroadcaster) Subscribe(conversationID string, conn *websocket.Conn) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.connections[conversationID] == nil {
		b.connections[conversationID] = make(map[*websocket.Conn]*subscriber)
	}
	b.connections[conversationID][conn] = &subscriber{conn: conn}
}

// Unsubscribe removes a WebSocket connection from all conversations.
func (b *EventBroadcaster) Unsubscribe(conn *websocket.Conn) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for conversationID, conns := range b.connections {
		delete(conns, conn)
		if len(conns) == 0 {
			delete(b.connections, conversationID)
		}
	}
}

// Broadcast sends a message event to all subscribers of a conversation.
// Safe to call concurrently; per-connection write mutexes serialize writes
// to each websocket.
func (b *EventBroadcaster) Broadcast(event *MessageEvent) {
	// Snapshot the subscribers so slow writes don't hold the registry lock
	b.mu.RLock()
	conns := b.connections[event.ConversationID]
	subs := make([]*subscriber, 0, len(conns))
	for _, sub := range conns {
		subs = append(subs, sub)
	}
	b.mu.RUnlock()

	if len(subs) == 0 {
		return
	}

	// Serialize event once
	data, err := json.Marshal(event)
	if err != nil {
		slog.Error("failed to marshal message event", "error", err)
		return
	}

	for _, sub := range subs {
		if err := sub.write(websocket.TextMessage, data); err != nil {
			slog.Warn("failed to send message to websocket client",
				"error", err,
				"conversation_id", event.ConversationID,
			)
			// Connection will be cleaned up when client disconnects
		}
	}
}

// ConnectionCount returns the number of active WebSocket connections for a
// conversation.
func (b *EventBroadcaster) ConnectionCount(conversationID string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if conns, exists := b.connections[conversationID]; exists {
		return len(conns)
	}
	return 0
}
