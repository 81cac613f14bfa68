package websocket

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Manager tracks all live WebSocket connections per user
type Manager struct {
	clients      map[uuid.UUID]*Client
	clientsMutex sync.RWMutex
	userClients  map[string]map[uuid.UUID]bool // userID -> set of clientIDs
	userMutex    sync.RWMutex
}

// EventType identifies a WebSocket event
type EventType string

const (
	EventConversationUpdated EventType = "conversation_updated"
	EventMessageRead         EventType = "message_read"
	EventTradeUpdated        EventType = "trade_updated"
	EventFriendUpdated       EventType = "friend_updated"
)

// Event is the wire format pushed to clients. Events are coarse re-fetch
// signals; the payload carries only the affected resource ID.
type Event struct {
	Type           EventType `json:"type"`
	ConversationID string    `json:"conversation_id,omitempty"`
	TradeID        string    `json:"trade_id,omitempty"`
	FriendshipID   string    `json:"friendship_id,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
}

// NewManager creates a new Manager
func NewManager() *Manager {
	return &Manager{
		clients:     make(map[uuid.UUID]*Client),
		userClients: make(map[string]map[uuid.UUID]bool),
	}
}

// AddClient registers a new connection
func (m *Manager) AddClient(client *Client) {
	m.clientsMutex.Lock()
	m.clients[client.ID] = client
	m.clientsMutex.Unlock()

	m.userMutex.Lock()
	if _, exists := m.userClients[client.UserID]; !exists {
		m.userClients[client.UserID] = make(map[uuid.UUID]bool)
	}
	m.userClients[client.UserID][client.ID] = true
	m.userMutex.Unlock()

	log.Printf("WebSocket client %s connected for user %s", client.ID, client.UserID)
}

// RemoveClient drops a connection
func (m *Manager) RemoveClient(clientID uuid.UUID) {
	m.clientsMutex.RLock()
	client, exists := m.clients[clientID]
	m.clientsMutex.RUnlock()

	if !exists {
		return
	}

	userID := client.UserID

	m.userMutex.Lock()
	if clients, ok := m.userClients[userID]; ok {
		delete(clients, clientID)
		if len(clients) == 0 {
			delete(m.userClients, userID)
		}
	}
	m.userMutex.Unlock()

	m.clientsMutex.Lock()
	delete(m.clients, clientID)
	m.clientsMutex.Unlock()

	log.Printf("WebSocket client %s disconnected for user %s", clientID, userID)
}

// SendToUser delivers an event to every connection of a user. Offline users
// are silently skipped; state lives in the database, not the socket.
func (m *Manager) SendToUser(userID string, event Event) {
	if userID == "" {
		return
	}

	m.userMutex.RLock()
	clientIDs, exists := m.userClients[userID]
	m.userMutex.RUnlock()

	if !exists || len(clientIDs) == 0 {
		return
	}

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	eventJSON, err := json.Marshal(event)
	if err != nil {
		log.Printf("marshaling event: %v", err)
		return
	}

	for clientID := range clientIDs {
		m.clientsMutex.RLock()
		client, ok := m.clients[clientID]
		m.clientsMutex.RUnlock()

		if !ok {
			continue
		}

		go func(c *Client) {
			select {
			case c.send <- eventJSON:
			default:
				// Send buffer full: the client is too slow, drop it.
				log.Printf("send channel full for client %s, closing connection", c.ID)
				c.conn.Close()
				m.RemoveClient(c.ID)
			}
		}(client)
	}
}

// ConversationUpdated signals that a conversation gained activity
func (m *Manager) ConversationUpdated(userID, conversationID uuid.UUID) {
	m.SendToUser(userID.String(), Event{
		Type:           EventConversationUpdated,
		ConversationID: conversationID.String(),
	})
}

// MessagesRead signals that the other side read the user's messages
func (m *Manager) MessagesRead(userID, conversationID uuid.UUID) {
	m.SendToUser(userID.String(), Event{
		Type:           EventMessageRead,
		ConversationID: conversationID.String(),
	})
}

// TradeUpdated signals that a trade request changed
func (m *Manager) TradeUpdated(userID, tradeID uuid.UUID) {
	m.SendToUser(userID.String(), Event{
		Type:      EventTradeUpdated,
		TradeID:   tradeID.String(),
		Timestamp: time.Now(),
	})
}

// FriendUpdated signals that a friendship changed
func (m *Manager) FriendUpdated(userID, friendshipID uuid.UUID) {
	m.SendToUser(userID.String(), Event{
		Type:         EventFriendUpdated,
		FriendshipID: friendshipID.String(),
	})
}

// Shutdown closes every connection
func (m *Manager) Shutdown() {
	m.clientsMutex.Lock()
	for _, client := range m.clients {
		client.conn.Close()
	}
	m.clients = make(map[uuid.UUID]*Client)
	m.clientsMutex.Unlock()

	m.userMutex.Lock()
	m.userClients = make(map[string]map[uuid.UUID]bool)
	m.userMutex.Unlock()
}
