package services

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for development
	},
}

// Client represents a WebSocket client
type Client struct {
	ID       uint
	UserType string
	Conn     *websocket.Conn
	Send     chan []byte
	Hub      *Hub
}

// Hub maintains the set of active clients and broadcasts messages
type Hub struct {
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	broadcast  chan []byte
	mutex      sync.RWMutex
}

// NewHub creates a new WebSocket hub
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan []byte),
	}
}

// Run starts the hub
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mutex.Lock()
			h.clients[client] = true
			h.mutex.Unlock()
			log.Printf("Client %d connected", client.ID)

		case client := <-h.unregister:
			h.mutex.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.Send)
			}
			h.mutex.Unlock()
			log.Printf("Client %d disconnected", client.ID)

		case message := <-h.broadcast:
			h.mutex.RLock()
			for client := range h.clients {
				select {
				case client.Send <- message:
				default:
					close(client.Send)
					delete(h.clients, client)
				}
			}
			h.mutex.RUnlock()
		}
	}
}

// BroadcastToUser sends a message to a specific user
func (h *Hub) BroadcastToUser(userID uint, message []byte) {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	for client := range h.clients {
		if client.ID == userID {
			select {
			case client.Send <- message:
			default:
				close(client.Send)
				delete(h.clients, client)
			}
		}
	}
}

// BroadcastToUserType sends a message to all users of a specific type
func (h *Hub) BroadcastToUserType(userType string, message []byte) {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	for client := range h.clients {
		if client.UserType == userType {
			select {
			case client.Send <- message:
			default:
				close(client.Send)
				delete(h.clients, client)
			}
		}
	}
}

// BroadcastToAll sends a message to all connected clients
func (h *Hub) BroadcastToAll(message []byte) {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	for client := range h.clients {
		select {
		case client.Send <- message:
		default:
			log.Printf("Warning: Could not send to client %d (channel full)", client.ID)
		}
	}
}

// GetConnectedClients returns the number of connected clients
func (h *Hub) GetConnectedClients() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}

// WebSocket message types
type WebSocketMessage struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// BookingCreated tells online drivers a new booking is open for offers
type BookingCreated struct {
	BookingID   uint    `json:"bookingId"`
	ServiceName string  `json:"serviceName"`
	Location    string  `json:"location"`
	Quantity    int     `json:"quantity"`
	UnitPrice   float64 `json:"unitPrice"`
}

// NewOffer tells the customer a driver has bid on their booking
type NewOffer struct {
	BookingID  uint    `json:"bookingId"`
	OfferID    uint    `json:"offerId"`
	DriverName string  `json:"driverName"`
	Price      float64 `json:"price"`
	Distance   float64 `json:"distance"`
}

// OfferAccepted tells the winning driver their offer was accepted
type OfferAccepted struct {
	BookingID uint    `json:"bookingId"`
	OfferID   uint    `json:"offerId"`
	Location  string  `json:"location"`
	Price     float64 `json:"price"`
}

// OfferDeclined tells a driver their offer lost out
type OfferDeclined struct {
	BookingID uint `json:"bookingId"`
	OfferID   uint `json:"offerId"`
}

// BookingStatusUpdate tells both parties the booking moved lifecycle state
type BookingStatusUpdate struct {
	BookingID uint   `json:"bookingId"`
	Status    string `json:"status"`
}

// NewChatMessage tells the recipient a message arrived; the client refetches
// the thread and conversation list on receipt
type NewChatMessage struct {
	BookingID uint   `json:"bookingId"`
	MessageID uint   `json:"messageId"`
	SenderID  uint   `json:"senderId"`
	Preview   string `json:"preview"`
}

// MessagesRead tells the sender their messages in a booking thread were read
type MessagesRead struct {
	BookingID uint `json:"bookingId"`
	ReaderID  uint `json:"readerId"`
}

// HandleWebSocket handles WebSocket connections
func HandleWebSocket(hub *Hub, w http.ResponseWriter, r *http.Request, userID uint, userType string) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error: %v", err)
		return
	}

	client := &Client{
		ID:       userID,
		UserType: userType,
		Conn:     conn,
		Send:     make(chan []byte, 256),
		Hub:      hub,
	}

	client.Hub.register <- client

	go client.writePump()
	go client.readPump()
}

// readPump drains the websocket connection. All writes go through the HTTP
// API; inbound frames are only read to detect a closed connection.
func (c *Client) readPump() {
	defer func() {
		c.Hub.unregister <- c
		c.Conn.Close()
	}()

	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			break
		}
	}
}

// writePump pumps messages from the hub to the websocket connection
func (c *Client) writePump() {
	defer c.Conn.Close()

	for message := range c.Send {
		if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
			log.Printf("WebSocket write error: %v", err)
			return
		}
	}
	c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
}

// SendBookingCreated notifies all connected drivers about a new open booking
func (h *Hub) SendBookingCreated(created BookingCreated) {
	message := WebSocketMessage{
		Type: "booking_created",
		Data: created,
	}

	data, err := json.Marshal(message)
	if err != nil {
		log.Printf("Error marshaling booking created: %v", err)
		return
	}

	h.BroadcastToUserType("driver", data)
}

// SendNewOffer notifies the customer about a new offer on their booking
func (h *Hub) SendNewOffer(customerID uint, offer NewOffer) {
	message := WebSocketMessage{
		Type: "new_offer",
		Data: offer,
	}

	data, err := json.Marshal(message)
	if err != nil {
		log.Printf("Error marshaling new offer: %v", err)
		return
	}

	h.BroadcastToUser(customerID, data)
}

// SendOfferAccepted notifies the winning driver
func (h *Hub) SendOfferAccepted(driverID uint, accepted OfferAccepted) {
	message := WebSocketMessage{
		Type: "offer_accepted",
		Data: accepted,
	}

	data, err := json.Marshal(message)
	if err != nil {
		log.Printf("Error marshaling offer accepted: %v", err)
		return
	}

	h.BroadcastToUser(driverID, data)
}

// SendOfferDeclined notifies a losing driver
func (h *Hub) SendOfferDeclined(driverID uint, declined OfferDeclined) {
	message := WebSocketMessage{
		Type: "offer_declined",
		Data: declined,
	}

	data, err := json.Marshal(message)
	if err != nil {
		log.Printf("Error marshaling offer declined: %v", err)
		return
	}

	h.BroadcastToUser(driverID, data)
}

// SendBookingStatus notifies a booking party about a lifecycle change
func (h *Hub) SendBookingStatus(userID uint, update BookingStatusUpdate) {
	message := WebSocketMessage{
		Type: "booking_status",
		Data: update,
	}

	data, err := json.Marshal(message)
	if err != nil {
		log.Printf("Error marshaling booking status: %v", err)
		return
	}

	h.BroadcastToUser(userID, data)
}

// SendNewChatMessage notifies the recipient of a new chat message
func (h *Hub) SendNewChatMessage(recipientID uint, msg NewChatMessage) {
	message := WebSocketMessage{
		Type: "new_message",
		Data: msg,
	}

	data, err := json.Marshal(message)
	if err != nil {
		log.Printf("Error marshaling new message: %v", err)
		return
	}

	h.BroadcastToUser(recipientID, data)
}

// SendMessagesRead notifies the original sender that their thread was read
func (h *Hub) SendMessagesRead(senderID uint, read MessagesRead) {
	message := WebSocketMessage{
		Type: "messages_read",
		Data: read,
	}

	data, err := json.Marshal(message)
	if err != nil {
		log.Printf("Error marshaling messages read: %v", err)
		return
	}

	h.BroadcastToUser(senderID, data)
}
