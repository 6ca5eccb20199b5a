package server

import (
	"encoding/json"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/go-logr/logr"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	maxMsgSize = 256 * 1024
)

// Client represents a single WebSocket connection.
type Client struct {
	ID    string
	Name  string
	Color string
	// Mode is ModeCRDT or ModePatch, fixed when the client joins.
	Mode string

	hub     *Hub
	conn    *websocket.Conn
	send    chan []byte
	limiter *rate.Limiter
	log     logr.Logger

	// The document this client joined and its session (nil until the
	// session accepts the client).
	mu      sync.Mutex
	docID   string
	session *Session
}

var (
	adjectives = []string{"Red", "Blue", "Green", "Gold", "Silver", "Purple", "Orange", "Teal", "Coral", "Jade"}
	animals    = []string{"Fox", "Owl", "Bear", "Wolf", "Hawk", "Deer", "Lynx", "Crow", "Dove", "Seal"}
	colors     = []string{"#e74c3c", "#3498db", "#2ecc71", "#f39c12", "#9b59b6", "#1abc9c", "#e67e22", "#00bcd4", "#ff5722", "#8bc34a"}
)

// newClient wraps conn. A nil limiter lets every message through.
func newClient(hub *Hub, conn *websocket.Conn, limiter *rate.Limiter) *Client {
	id := uuid.NewString()
	return &Client{
		ID:      id,
		Name:    adjectives[rand.IntN(len(adjectives))] + " " + animals[rand.IntN(len(animals))],
		Color:   colors[rand.IntN(len(colors))],
		Mode:    ModeCRDT,
		hub:     hub,
		conn:    conn,
		send:    make(chan []byte, 256),
		limiter: limiter,
		log:     hub.log.WithName("client").WithValues("client", id),
	}
}

// ReadPump reads messages from the WebSocket and routes them.
func (c *Client) ReadPump() {
	defer func() {
		c.mu.Lock()
		s := c.session
		c.mu.Unlock()
		if s != nil {
			select {
			case s.leave <- c:
			case <-s.stop:
			}
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMsgSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Error(err, "read failed")
			}
			return
		}
		if c.limiter != nil && !c.limiter.Allow() {
			c.sendError("rate limit exceeded")
			continue
		}

		var msg ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			c.sendError("invalid message format")
			continue
		}

		switch msg.Type {
		case MsgJoin:
			c.join(msg.DocID, msg.Mode)
		case MsgOp:
			c.mu.Lock()
			s := c.session
			c.mu.Unlock()
			if s == nil {
				c.sendError("not joined to a document")
				continue
			}
			s.incoming <- opMessage{client: c, msg: msg}
		default:
			c.sendError("unknown message type: " + msg.Type)
		}
	}
}

// join asks the hub to add the client to docID's session. A client joins
// at most one document.
func (c *Client) join(docID, mode string) {
	if docID == "" {
		c.sendError("join without docId")
		return
	}
	switch mode {
	case "":
		mode = ModeCRDT
	case ModeCRDT, ModePatch:
	default:
		c.sendError("unknown mode: " + mode)
		return
	}

	c.mu.Lock()
	if c.docID != "" {
		c.mu.Unlock()
		c.sendError("already joined " + c.docID)
		return
	}
	c.docID = docID
	c.Mode = mode
	c.mu.Unlock()

	c.hub.joinDoc <- joinRequest{client: c, docID: docID}
}

// resetJoin lets the client try again after a failed join.
func (c *Client) resetJoin() {
	c.mu.Lock()
	c.docID = ""
	c.mu.Unlock()
}

// WritePump writes messages from the send channel to the WebSocket.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) sendMsg(msg ServerMessage) {
	select {
	case c.send <- msg.Encode():
	default:
		// Client too slow, drop message.
		c.log.V(1).Info("dropped message", "type", msg.Type)
	}
}

func (c *Client) sendError(message string) {
	c.sendMsg(ServerMessage{Type: MsgError, Message: message})
}

func (c *Client) Info() ClientInfo {
	return ClientInfo{ID: c.ID, Name: c.Name, Color: c.Color, Mode: c.Mode}
}
