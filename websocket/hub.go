package websocket

import (
	"context"
	"sync"
	"time"

	"campusguard/models"

	"github.com/sirupsen/logrus"
)

// Hub fans live emergency events out to connected responder clients.
type Hub struct {
	// Registered clients
	clients map[*Client]bool

	// User to client mapping for direct messaging
	userClients map[string]*Client

	// Register requests from clients
	register chan *Client

	// Unregister requests from clients
	unregister chan *Client

	// Broadcast messages to all clients
	broadcast chan models.WSMessage

	// Send message to specific user
	sendToUser chan UserMessage

	mutex sync.RWMutex

	ctx    context.Context
	cancel context.CancelFunc
}

type UserMessage struct {
	UserID  string
	Message models.WSMessage
}

func NewHub() *Hub {
	ctx, cancel := context.WithCancel(context.Background())

	return &Hub{
		clients:     make(map[*Client]bool),
		userClients: make(map[string]*Client),
		register:    make(chan *Client, 64),
		unregister:  make(chan *Client, 64),
		broadcast:   make(chan models.WSMessage, 256),
		sendToUser:  make(chan UserMessage, 256),
		ctx:         ctx,
		cancel:      cancel,
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case message := <-h.broadcast:
			h.broadcastToAll(message)

		case userMessage := <-h.sendToUser:
			h.sendToUserClient(userMessage)

		case <-h.ctx.Done():
			h.shutdown()
			return
		}
	}
}

func (h *Hub) Register(client *Client) {
	h.register <- client
}

func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

func (h *Hub) Shutdown() {
	h.cancel()
}

// =================== EVENT BROADCASTING ===================

func (h *Hub) BroadcastEmergencyAlert(alert models.WSEmergencyAlert) {
	h.broadcast <- models.WSMessage{
		Type:      "emergency_alert",
		Data:      alert,
		Timestamp: time.Now(),
	}
}

func (h *Hub) BroadcastSessionUpdate(update models.WSSessionUpdate) {
	h.broadcast <- models.WSMessage{
		Type:      "session_update",
		Data:      update,
		Timestamp: time.Now(),
	}
}

func (h *Hub) BroadcastLocationUpdate(update models.WSLocationUpdate) {
	h.broadcast <- models.WSMessage{
		Type:      "location_update",
		Data:      update,
		Timestamp: time.Now(),
	}
}

func (h *Hub) BroadcastHazardAlert(alert models.WSHazardAlert) {
	h.broadcast <- models.WSMessage{
		Type:      "hazard_alert",
		Data:      alert,
		Timestamp: time.Now(),
	}
}

func (h *Hub) SendToUser(userID string, message models.WSMessage) {
	h.sendToUser <- UserMessage{UserID: userID, Message: message}
}

func (h *Hub) IsUserOnline(userID string) bool {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	_, online := h.userClients[userID]
	return online
}

func (h *Hub) ConnectedUsers() []string {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	users := make([]string, 0, len(h.userClients))
	for userID := range h.userClients {
		users = append(users, userID)
	}
	return users
}

// =================== INTERNALS ===================

func (h *Hub) registerClient(client *Client) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	// A reconnect replaces the user's previous connection.
	if previous, ok := h.userClients[client.userID]; ok {
		delete(h.clients, previous)
		previous.close()
	}

	h.clients[client] = true
	h.userClients[client.userID] = client

	logrus.WithField("userId", client.userID).Debug("WebSocket client connected")
}

func (h *Hub) unregisterClient(client *Client) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if _, ok := h.clients[client]; !ok {
		return
	}

	delete(h.clients, client)
	if current, ok := h.userClients[client.userID]; ok && current == client {
		delete(h.userClients, client.userID)
	}
	client.close()

	logrus.WithField("userId", client.userID).Debug("WebSocket client disconnected")
}

func (h *Hub) broadcastToAll(message models.WSMessage) {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	for client := range h.clients {
		client.send(message)
	}
}

func (h *Hub) sendToUserClient(userMessage UserMessage) {
	h.mutex.RLock()
	client, ok := h.userClients[userMessage.UserID]
	h.mutex.RUnlock()

	if ok {
		client.send(userMessage.Message)
	}
}

func (h *Hub) shutdown() {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	for client := range h.clients {
		client.close()
	}
	h.clients = make(map[*Client]bool)
	h.userClients = make(map[string]*Client)
}
