package server

import (
	"encoding/json"
	"log"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingInterval   = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
)

// Client is one websocket connection. Its id is the opaque socket id
// the core keys membership on; the client itself holds no room state.
type Client struct {
	id     string
	conn   *websocket.Conn
	server *CollabServer
	log    *log.Logger
	send   chan *ServerEvent
	stop   chan struct{}
}

func NewClient(id string, conn *websocket.Conn, cs *CollabServer, l *log.Logger) *Client {
	return &Client{
		id:     id,
		conn:   conn,
		server: cs,
		log:    l,
		send:   make(chan *ServerEvent, 256),
		stop:   make(chan struct{}),
	}
}

func (c *Client) Write() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case ev, ok := <-c.send:
			if !ok {
				return
			}

			bytes, err := serializeEvent(ev)
			if err != nil {
				c.log.Println("failed to serialize event:", err)
				continue
			}

			if !c.sendMessage(websocket.TextMessage, bytes) {
				return
			}
		case <-c.stop:
			return
		case <-ticker.C:
			if !c.sendMessage(websocket.PingMessage, nil) {
				return
			}
		}
	}
}

func (c *Client) Read() {
	defer func() {
		c.conn.Close()
		c.cleanup()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(appData string) error { c.conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })
	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure,
				websocket.CloseNormalClosure) {
				c.log.Printf("ws: read: %v", err)
			}
			break
		}

		var ev ClientEvent
		if err := json.Unmarshal(raw, &ev); err != nil {
			// malformed frames are dropped, never answered
			c.log.Printf("dropping unparseable frame from %q: %v", c.id, err)
			continue
		}

		ev.client = c
		c.forwardEvent(&ev)
	}
}

func (c *Client) forwardEvent(ev *ClientEvent) {
	select {
	case c.server.eventChan <- ev:
	default:
		c.log.Printf("event channel full, dropping event from %q", c.id)
	}
}

// queueEvent hands an outbound event to the write pump without
// blocking. It reports false if the client's buffer is full.
func (c *Client) queueEvent(ev *ServerEvent) bool {
	select {
	case c.send <- ev:
	default:
		return false
	}

	return true
}

func serializeEvent(ev *ServerEvent) ([]byte, error) {
	return json.Marshal(ev)
}

func (c *Client) sendMessage(msgType int, msg []byte) bool {
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))

	if err := c.conn.WriteMessage(msgType, msg); err != nil {
		if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure,
			websocket.CloseNormalClosure) {
			c.log.Printf("write message: %s", err)
		}
		return false
	}

	return true
}

func (c *Client) stopClient() {
	select {
	case <-c.stop:
	default:
		close(c.stop)
	}
}

func (c *Client) cleanup() {
	select {
	case c.server.DeRegisterChan <- c:
	case <-c.server.done:
	}
	c.stopClient()
}
