package websocket

import (
	"sync/atomic"

	"github.com/rs/zerolog/log"
)

// GlobalTopic receives every match update.
const GlobalTopic = "global"

type topicMessage struct {
	topic   string
	message []byte
}

type clientMessage struct {
	client  *Client
	message []byte
}

// Hub maintains the set of active clients and routes messages to the
// clients subscribed to a topic. All map access happens on the Run goroutine.
type Hub struct {
	// Registered clients grouped by topic.
	topics map[string]map[*Client]bool

	// Register requests from the clients.
	Register chan *Client

	// Unregister requests from clients.
	Unregister chan *Client

	broadcast chan topicMessage
	replies   chan clientMessage
	done      chan struct{}
	connected atomic.Int64
}

// NewHub creates a new Hub.
func NewHub() *Hub {
	return &Hub{
		topics:     make(map[string]map[*Client]bool),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		broadcast:  make(chan topicMessage, 256),
		replies:    make(chan clientMessage, 256),
		done:       make(chan struct{}),
	}
}

// Run starts the Hub's message processing loop. It returns after Stop.
func (h *Hub) Run() {
	for {
		select {
		case <-h.done:
			for _, subs := range h.topics {
				for client := range subs {
					close(client.Send)
				}
			}
			h.topics = make(map[string]map[*Client]bool)
			h.connected.Store(0)
			return
		case client := <-h.Register:
			if h.topics[client.Topic] == nil {
				h.topics[client.Topic] = make(map[*Client]bool)
			}
			h.topics[client.Topic][client] = true
			n := h.connected.Add(1)
			log.Info().Int64("total_clients", n).Str("topic", client.Topic).Msg("Client connected")
		case client := <-h.Unregister:
			if h.remove(client) {
				log.Info().Int64("total_clients", h.connected.Load()).Msg("Client disconnected")
			}
		case r := <-h.replies:
			// The client may have been dropped since the reply was queued.
			if !h.topics[r.client.Topic][r.client] {
				continue
			}
			select {
			case r.client.Send <- r.message:
			default:
				h.remove(r.client)
			}
		case msg := <-h.broadcast:
			for client := range h.topics[msg.topic] {
				select {
				case client.Send <- msg.message:
				default:
					// Slow consumer; drop it rather than block the hub.
					h.remove(client)
				}
			}
		}
	}
}

// Stop terminates Run and closes every client's send channel.
func (h *Hub) Stop() {
	close(h.done)
}

// BroadcastTo queues message for every client subscribed to topic. The
// message is dropped if the hub is backed up or stopped.
func (h *Hub) BroadcastTo(topic string, message []byte) {
	select {
	case h.broadcast <- topicMessage{topic: topic, message: message}:
	case <-h.done:
	default:
		log.Warn().Str("topic", topic).Msg("Hub broadcast queue full, dropping message")
	}
}

// Reply queues message for a single client. Only the hub goroutine writes
// to Send, so replies to clients that were already dropped are discarded.
func (h *Hub) Reply(client *Client, message []byte) {
	select {
	case h.replies <- clientMessage{client: client, message: message}:
	case <-h.done:
	default:
		log.Warn().Str("topic", client.Topic).Msg("Hub reply queue full, dropping message")
	}
}

// Subscribe registers client with the hub. It returns false if the hub
// has been stopped.
func (h *Hub) Subscribe(client *Client) bool {
	select {
	case h.Register <- client:
		return true
	case <-h.done:
		return false
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	return int(h.connected.Load())
}

func (h *Hub) remove(client *Client) bool {
	subs, ok := h.topics[client.Topic]
	if !ok || !subs[client] {
		return false
	}
	delete(subs, client)
	if len(subs) == 0 {
		delete(h.topics, client.Topic)
	}
	close(client.Send)
	h.connected.Add(-1)
	return true
}
