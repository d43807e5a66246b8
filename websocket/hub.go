package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 54 * time.Second
	maxFrameSize   = 1 << 20
	sendBufferSize = 64
)

// Hub tracks live connections grouped by interview.
type Hub struct {
	clients    map[*Client]bool
	unregister chan *Client
	done       chan struct{}
	mu         sync.RWMutex
}

type Client struct {
	Hub            *Hub
	Conn           *websocket.Conn
	Send           chan []byte
	UserID         string
	InterviewID    string
	MessageHandler func(*Client, Frame) // handles one inbound frame; frames are handled in order

	mu     sync.Mutex
	closed bool
}

// Frame is an inbound event. Payload fields are decoded by the handler for
// the frame type: "message", "metrics" or "end".
type Frame struct {
	Type           string          `json:"type"`
	Message        json.RawMessage `json:"message,omitempty"`
	Metrics        json.RawMessage `json:"metrics,omitempty"`
	FinalMetrics   json.RawMessage `json:"final_metrics,omitempty"`
	GenerateReport bool            `json:"generate_report,omitempty"`
}

// Event is an outbound frame.
type Event struct {
	Type    string `json:"type"` // "session", "report", "error"
	Session any    `json:"session,omitempty"`
	Report  any    `json:"report,omitempty"`
	Error   string `json:"error,omitempty"`
	Code    string `json:"code,omitempty"`
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

// Run owns unregistration until ctx is done, then closes every client.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				client.closeSend()
			}
			h.mu.Unlock()
			slog.Info("Client unregistered", "user_id", client.UserID, "interview_id", client.InterviewID)

		case <-ctx.Done():
			h.mu.Lock()
			for client := range h.clients {
				delete(h.clients, client)
				client.closeSend()
			}
			close(h.done)
			h.mu.Unlock()
			return
		}
	}
}

// RegisterClient adds conn to the hub. The client receives broadcasts as soon
// as it returns. After the hub stopped the client comes back already closed.
func (h *Hub) RegisterClient(conn *websocket.Conn, userID, interviewID string) *Client {
	client := &Client{
		Hub:         h,
		Conn:        conn,
		Send:        make(chan []byte, sendBufferSize),
		UserID:      userID,
		InterviewID: interviewID,
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	select {
	case <-h.done:
		client.closeSend()
		return client
	default:
	}
	h.clients[client] = true
	slog.Info("Client registered", "user_id", userID, "interview_id", interviewID)
	return client
}

// Broadcast sends ev to every client watching interviewID. Slow clients whose
// buffer is full miss the event.
func (h *Hub) Broadcast(interviewID string, ev Event) {
	payload, err := json.Marshal(ev)
	if err != nil {
		slog.Error("Failed to marshal event", "type", ev.Type, "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients {
		if client.InterviewID == interviewID {
			client.enqueue(payload)
		}
	}
}

// ClientCount returns the number of connections watching interviewID.
func (h *Hub) ClientCount(interviewID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for client := range h.clients {
		if client.InterviewID == interviewID {
			n++
		}
	}
	return n
}

// SendEvent sends ev to this client only.
func (c *Client) SendEvent(ev Event) {
	payload, err := json.Marshal(ev)
	if err != nil {
		slog.Error("Failed to marshal event", "type", ev.Type, "error", err)
		return
	}
	c.enqueue(payload)
}

func (c *Client) enqueue(payload []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.Send <- payload:
		return true
	default:
		slog.Warn("Client send buffer full, dropping event", "user_id", c.UserID, "interview_id", c.InterviewID)
		return false
	}
}

func (c *Client) closeSend() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.Send)
	}
}

// ReadPump reads frames until the connection fails. It blocks, so callers run
// it on the connection's own goroutine.
func (c *Client) ReadPump() {
	defer func() {
		select {
		case c.Hub.unregister <- c:
		case <-c.Hub.done:
		}
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxFrameSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				slog.Error("WebSocket error", "error", err)
			}
			break
		}

		var frame Frame
		if err := json.Unmarshal(raw, &frame); err != nil {
			slog.Warn("Failed to unmarshal frame", "error", err, "interview_id", c.InterviewID)
			c.SendEvent(Event{Type: "error", Error: "malformed frame", Code: "invalid_input"})
			continue
		}

		slog.Debug("Frame received", "type", frame.Type, "interview_id", c.InterviewID)
		if c.MessageHandler != nil {
			c.MessageHandler(c, frame)
		}
	}
}

func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
