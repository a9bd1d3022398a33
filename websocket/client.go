package websocket

import (
	"net/http"
	"sync"
	"time"

	"campusguard/models"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 4096

	// Buffer size for client send channel
	sendBufferSize = 256
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		// In production, implement proper origin checking
		return true
	},
}

type Client struct {
	conn *websocket.Conn

	userID      string
	role        string
	connectedAt time.Time

	// Buffered channel of outbound messages
	sendCh chan models.WSMessage

	hub *Hub

	closeOnce sync.Once
}

// ServeWS upgrades an authenticated HTTP request to a WebSocket connection
// and registers the client with the hub.
func ServeWS(hub *Hub, w http.ResponseWriter, r *http.Request, userID, role string) error {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	client := &Client{
		conn:        conn,
		userID:      userID,
		role:        role,
		connectedAt: time.Now(),
		sendCh:      make(chan models.WSMessage, sendBufferSize),
		hub:         hub,
	}

	hub.Register(client)

	go client.writePump()
	go client.readPump()

	return nil
}

func (c *Client) send(message models.WSMessage) {
	select {
	case c.sendCh <- message:
	default:
		// Slow consumer; drop the connection rather than block the hub.
		logrus.WithField("userId", c.userID).Warn("WebSocket send buffer full, dropping client")
		c.hub.Unregister(c)
	}
}

func (c *Client) close() {
	c.closeOnce.Do(func() {
		close(c.sendCh)
		c.conn.Close()
	})
}

func (c *Client) readPump() {
	defer c.hub.Unregister(c)

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		var message models.WSMessage
		if err := c.conn.ReadJSON(&message); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logrus.Debugf("WebSocket read error: %v", err)
			}
			return
		}
		// Inbound traffic is ping/subscribe noise only; the responder feed
		// is one-directional.
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.sendCh:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(message); err != nil {
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
