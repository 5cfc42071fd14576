package handlers

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	ws "github.com/scribeapp/scribe-be/internal/websocket"
)

// WebSocketHandler upgrades HTTP connections and feeds clients into the hub.
type WebSocketHandler struct {
	hub *ws.Hub
}

// NewWebSocketHandler creates a new WebSocketHandler.
func NewWebSocketHandler(hub *ws.Hub) *WebSocketHandler {
	return &WebSocketHandler{hub: hub}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Allow all origins (consider tightening this in production).
		return true
	},
}

// Serve handles the WebSocket connection request.
func (h *WebSocketHandler) Serve(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("Failed to upgrade websocket connection")
		return
	}

	client := ws.NewClient(h.hub, conn)
	h.hub.Register <- client

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		client.WritePump()
	}()
	go func() {
		defer wg.Done()
		client.ReadPump(h.handleIncomingWSMessage)
	}()

	// Cleanup on disconnect.
	go func() {
		wg.Wait()
		h.hub.Unregister <- client
	}()
}

// handleIncomingWSMessage processes messages received from a websocket client.
func (h *WebSocketHandler) handleIncomingWSMessage(client *ws.Client, message []byte) {
	var msg ws.Message
	if err := json.Unmarshal(message, &msg); err != nil {
		log.Error().Err(err).Bytes("message", message).Msg("Error decoding websocket message")
		return
	}

	switch msg.Action {
	case "subscribe_post":
		postID, ok := postIDFromPayload(msg)
		if !ok {
			client.Send <- ws.NewErrorMessage("Invalid payload for subscribe_post")
			return
		}
		h.hub.Subscribe <- ws.Subscription{Client: client, PostID: postID}

	case "unsubscribe_post":
		postID, ok := postIDFromPayload(msg)
		if !ok {
			client.Send <- ws.NewErrorMessage("Invalid payload for unsubscribe_post")
			return
		}
		h.hub.Unsubscribe <- ws.Subscription{Client: client, PostID: postID}

	default:
		log.Warn().Str("action", msg.Action).Msg("Unknown websocket action received")
		client.Send <- ws.NewErrorMessage("Unknown action: " + msg.Action)
	}
}

func postIDFromPayload(msg ws.Message) (string, bool) {
	payload, ok := msg.Payload.(map[string]interface{})
	if !ok {
		return "", false
	}
	postID, ok := payload["postId"].(string)
	if !ok || postID == "" {
		return "", false
	}
	return postID, true
}
