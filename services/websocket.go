package services

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"

	"github.com/teamboard/teamboard/database"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 64 * 1024
)

// WebSocketMessage is the wire format in both directions.
type WebSocketMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// DropPayload is a drag gesture ending over a column, sent by the client.
type DropPayload struct {
	TaskID string              `json:"taskId"`
	From   database.TaskStatus `json:"from"`
	To     database.TaskStatus `json:"to"`
}

// SnapshotPayload is what the server pushes on every board change.
type SnapshotPayload struct {
	Tasks   []database.Task `json:"tasks"`
	Columns *BoardColumns   `json:"columns,omitempty"`
}

// Client is one connected board viewer. Each client owns its own live
// subscription, board projection and seen-by tracker; all of them are torn
// down when the connection goes away.
type Client struct {
	Hub      *Hub
	Conn     *websocket.Conn
	Send     chan []byte
	Identity Identity
	Filter   database.TaskFilter

	sub      *Subscription
	board    *Board
	seen     *SeenTracker
	presence context.CancelFunc
}

// NewClient wires a connection to the live sequence. The subscription is
// opened immediately so the first snapshot reaches the client right away,
// and a presence tracker keeps the viewer's record fresh for as long as the
// connection lives.
func NewClient(ctx context.Context, hub *Hub, conn *websocket.Conn, id Identity, filter database.TaskFilter) (*Client, error) {
	sub, err := hub.sync.Subscribe(ctx, filter)
	if err != nil {
		return nil, err
	}

	pctx, cancel := context.WithCancel(ctx)
	tracker := NewPresenceTracker(hub.presence, id, hub.logger)
	go tracker.Run(pctx)

	return &Client{
		Hub:      hub,
		Conn:     conn,
		Send:     make(chan []byte, 256),
		Identity: id,
		Filter:   filter,
		sub:      sub,
		board:    NewBoard(hub.sync, hub.logger),
		seen:     NewSeenTracker(hub.sync, id, hub.logger),
		presence: cancel,
	}, nil
}

// StreamPump forwards live snapshots to the client until the subscription is
// cancelled. Every snapshot also feeds the board projection and the seen-by
// tracker. It owns the Send channel: closing it here, after the last
// enqueue, lets WritePump finish cleanly.
func (c *Client) StreamPump(ctx context.Context) {
	defer close(c.Send)
	for {
		select {
		case tasks, ok := <-c.sub.C:
			if !ok {
				return
			}
			c.board.Apply(tasks)
			c.seen.Observe(ctx, tasks)

			payload := SnapshotPayload{Tasks: tasks}
			if !c.Filter.Archived {
				cols := c.board.Columns()
				payload.Columns = &cols
			}
			c.enqueue("snapshot", payload)

		case err, ok := <-c.sub.Err:
			if !ok {
				return
			}
			c.enqueue("error", err.Error())
		}
	}
}

func (c *Client) enqueue(msgType string, data any) {
	raw, err := json.Marshal(data)
	if err != nil {
		c.Hub.logger.Error("failed to marshal message", "type", msgType, "error", err)
		return
	}
	out, err := json.Marshal(WebSocketMessage{Type: msgType, Data: raw})
	if err != nil {
		return
	}
	select {
	case c.Send <- out:
	default:
		// Buffer full; the next snapshot will carry the current state.
	}
}

// ReadPump pumps messages from the WebSocket connection into the board.
func (c *Client) ReadPump(ctx context.Context) {
	defer func() {
		c.Hub.Unregister(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.Hub.logger.Warn("websocket error", "uid", c.Identity.UID, "error", err)
			}
			break
		}

		var msg WebSocketMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			c.Hub.logger.Warn("unparseable websocket message", "uid", c.Identity.UID, "error", err)
			continue
		}

		switch msg.Type {
		case "ping":
			c.enqueue("pong", map[string]string{"timestamp": time.Now().Format(time.RFC3339)})

		case "drop":
			var drop DropPayload
			if err := json.Unmarshal(msg.Data, &drop); err != nil {
				c.Hub.logger.Warn("bad drop payload", "uid", c.Identity.UID, "error", err)
				continue
			}
			if err := c.board.OnDrop(ctx, drop.TaskID, drop.From, drop.To); err != nil {
				c.enqueue("error", err.Error())
			}

		default:
			c.Hub.logger.Debug("ignoring websocket message", "type", msg.Type)
		}
	}
}

// WritePump pumps queued messages to the WebSocket connection.
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

			w, err := c.Conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			// Add queued messages to the current WebSocket frame
			n := len(c.Send)
			for i := 0; i < n; i++ {
				w.Write([]byte("\n"))
				w.Write(<-c.Send)
			}

			if err := w.Close(); err != nil {
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

// Hub maintains the set of connected board viewers.
type Hub struct {
	sync     *TodoSync
	presence *database.PresenceStore
	logger   *slog.Logger

	Clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
}

func NewHub(sync *TodoSync, presence *database.PresenceStore, logger *slog.Logger) *Hub {
	return &Hub{
		sync:       sync,
		presence:   presence,
		logger:     logger,
		Clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

// Register adds a client to the hub.
func (h *Hub) Register(client *Client) {
	h.register <- client
}

// Unregister removes a client and tears its subscription down.
func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

// Run starts the hub's main loop.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.Clients[client] = true
			h.logger.Info("client connected", "uid", client.Identity.UID)
		case client := <-h.unregister:
			if _, ok := h.Clients[client]; ok {
				delete(h.Clients, client)
				// Cancelling the subscription closes its channels, which
				// ends StreamPump, which closes Send, which ends WritePump.
				client.sub.Cancel()
				// The heartbeat loop stops; the record goes stale and the
				// cleanup sweep reclaims it unless another tab keeps it
				// alive or the unload beacon deletes it first.
				client.presence()
				h.logger.Info("client disconnected", "uid", client.Identity.UID)
			}
		}
	}
}
