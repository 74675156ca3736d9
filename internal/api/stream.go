package api

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// ImportEvent describes websocket payloads emitted as staged sets change, so
// the review grid can keep its commitable-row count live.
type ImportEvent struct {
	Type       string    `json:"type"`
	SessionID  string    `json:"session_id,omitempty"`
	ShopID     uint      `json:"shop_id,omitempty"`
	Commitable int       `json:"commitable,omitempty"`
	RowCount   int       `json:"row_count,omitempty"`
	Message    string    `json:"message,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// wsClient wraps a websocket connection with write locking.
type wsClient struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

// ImportNotifier keeps track of active websocket clients and broadcasts
// import events.
type ImportNotifier struct {
	mu         sync.Mutex
	clients    map[*wsClient]struct{}
	lastStatus *ImportEvent
}

// NewImportNotifier constructs a notifier instance.
func NewImportNotifier() *ImportNotifier {
	return &ImportNotifier{clients: make(map[*wsClient]struct{})}
}

// Register attaches a websocket connection and returns a client handle.
func (n *ImportNotifier) Register(conn *websocket.Conn) *wsClient {
	client := &wsClient{conn: conn}
	n.mu.Lock()
	n.clients[client] = struct{}{}
	status := n.lastStatus
	n.mu.Unlock()

	if status != nil {
		_ = client.writeJSON(*status)
	}
	return client
}

// Unregister removes the websocket client from the notifier and closes the
// socket.
func (n *ImportNotifier) Unregister(client *wsClient) {
	if client == nil {
		return
	}
	n.mu.Lock()
	delete(n.clients, client)
	n.mu.Unlock()
	_ = client.conn.Close()
}

// Broadcast sends the supplied event to all registered websocket clients.
func (n *ImportNotifier) Broadcast(event ImportEvent) {
	event.Timestamp = time.Now().UTC()

	n.mu.Lock()
	snapshot := event
	n.lastStatus = &snapshot
	for client := range n.clients {
		if err := client.writeJSON(event); err != nil {
			delete(n.clients, client)
			_ = client.conn.Close()
		}
	}
	n.mu.Unlock()
}

// LastStatus returns a copy of the most recent broadcast event.
func (n *ImportNotifier) LastStatus() *ImportEvent {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.lastStatus == nil {
		return nil
	}
	copy := *n.lastStatus
	return &copy
}

func (c *wsClient) writeJSON(payload interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil
	}
	c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return c.conn.WriteJSON(payload)
}
