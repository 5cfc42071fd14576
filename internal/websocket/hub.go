package websocket

import "github.com/rs/zerolog/log"

// Hub maintains the set of active clients and broadcasts messages to them.
type Hub struct {
	// Registered clients.
	clients map[*Client]bool

	// Inbound messages for global broadcast.
	Broadcast chan []byte

	// Register requests from the clients.
	Register chan *Client

	// Unregister requests from clients.
	Unregister chan *Client

	// A map of post IDs to the set of clients subscribed to them.
	subscriptions map[string]map[*Client]bool

	// Subscription changes requested by clients.
	Subscribe   chan Subscription
	Unsubscribe chan Subscription

	// Messages addressed to one post's subscribers.
	targeted chan TargetedMessage
}

// Subscription ties a client to a post's comment stream.
type Subscription struct {
	Client *Client
	PostID string
}

// TargetedMessage is a message for the subscribers of one post.
type TargetedMessage struct {
	PostID  string
	Message []byte
}

// NewHub creates a new Hub.
func NewHub() *Hub {
	return &Hub{
		Broadcast:     make(chan []byte),
		Register:      make(chan *Client),
		Unregister:    make(chan *Client),
		clients:       make(map[*Client]bool),
		subscriptions: make(map[string]map[*Client]bool),
		Subscribe:     make(chan Subscription),
		Unsubscribe:   make(chan Subscription),
		targeted:      make(chan TargetedMessage),
	}
}

// Run starts the Hub's message processing loop.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.Register:
			h.clients[client] = true
			log.Info().Int("total_clients", len(h.clients)).Msg("Client connected")
		case client := <-h.Unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.Send)
				h.removeSubscriptions(client)
				log.Info().Int("total_clients", len(h.clients)).Msg("Client disconnected")
			}
		case sub := <-h.Subscribe:
			h.addSubscription(sub.Client, sub.PostID)
		case sub := <-h.Unsubscribe:
			if subs, ok := h.subscriptions[sub.PostID]; ok {
				delete(subs, sub.Client)
				if len(subs) == 0 {
					delete(h.subscriptions, sub.PostID)
				}
			}
		case message := <-h.Broadcast:
			for client := range h.clients {
				select {
				case client.Send <- message:
				default:
					close(client.Send)
					delete(h.clients, client)
					h.removeSubscriptions(client)
				}
			}
		case tm := <-h.targeted:
			for client := range h.subscriptions[tm.PostID] {
				select {
				case client.Send <- tm.Message:
				default:
					close(client.Send)
					delete(h.clients, client)
					h.removeSubscriptions(client)
				}
			}
		}
	}
}

// BroadcastTo sends a message to all clients subscribed to a specific post.
// Safe to call from any goroutine; delivery happens on the hub loop.
func (h *Hub) BroadcastTo(postID string, message []byte) {
	h.targeted <- TargetedMessage{PostID: postID, Message: message}
}

func (h *Hub) addSubscription(client *Client, postID string) {
	if h.subscriptions[postID] == nil {
		h.subscriptions[postID] = make(map[*Client]bool)
	}
	h.subscriptions[postID][client] = true
}

func (h *Hub) removeSubscriptions(client *Client) {
	for postID, subs := range h.subscriptions {
		if _, ok := subs[client]; ok {
			delete(subs, client)
			if len(subs) == 0 {
				delete(h.subscriptions, postID)
			}
		}
	}
}
