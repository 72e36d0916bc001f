package handlers

import (
	"encoding/json"
	"net/http"
	"slices"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/hlog"
	"github.com/rs/zerolog/log"

	"github.com/Godfather59/score-app/internal/services"
	ws "github.com/Godfather59/score-app/internal/websocket"
)

// WebSocketHandler upgrades connections and subscribes them to live match updates.
type WebSocketHandler struct {
	hub      *ws.Hub
	matches  services.MatchServiceProvider
	upgrader websocket.Upgrader
}

// NewWebSocketHandler creates a new WebSocketHandler. Browser connections
// are only accepted from allowedOrigins; "*" accepts any origin.
func NewWebSocketHandler(hub *ws.Hub, matches services.MatchServiceProvider, allowedOrigins []string) *WebSocketHandler {
	return &WebSocketHandler{
		hub:     hub,
		matches: matches,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || slices.Contains(allowedOrigins, "*") || slices.Contains(allowedOrigins, origin)
			},
		},
	}
}

// Serve handles /ws/matches (all matches) and /ws/matches/{id} (one match).
// A single-match subscription starts with a snapshot of the match.
func (h *WebSocketHandler) Serve(w http.ResponseWriter, r *http.Request) {
	topic := chi.URLParam(r, "id")
	var snapshot []byte
	if topic != "" {
		match, err := h.matches.GetMatchByID(r.Context(), topic)
		if err != nil {
			writeError(w, r, err)
			return
		}
		if snapshot, err = ws.NewMessage("match_snapshot", match); err != nil {
			writeError(w, r, err)
			return
		}
	} else {
		topic = ws.GlobalTopic
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("Failed to upgrade websocket connection")
		return
	}

	client := ws.NewClient(h.hub, conn, topic)
	if snapshot != nil {
		client.Send <- snapshot
	}
	if !h.hub.Subscribe(client) {
		_ = conn.Close()
		return
	}

	go client.WritePump()
	go client.ReadPump(h.handleIncomingWSMessage)
}

// handleIncomingWSMessage processes messages received from a websocket client.
func (h *WebSocketHandler) handleIncomingWSMessage(client *ws.Client, message []byte) {
	var msg ws.Message
	if err := json.Unmarshal(message, &msg); err != nil {
		log.Debug().Err(err).Str("topic", client.Topic).Msg("Error decoding websocket message")
		h.reply(client, ws.NewErrorMessage("Invalid message"))
		return
	}

	switch msg.Action {
	case "ping":
		pong, err := ws.NewMessage("pong", nil)
		if err != nil {
			return
		}
		h.reply(client, pong)
	default:
		log.Debug().Str("action", msg.Action).Msg("Unknown websocket action received")
		h.reply(client, ws.NewErrorMessage("Unknown action: "+msg.Action))
	}
}

// reply hands msg to the hub, which owns the client's send channel.
func (h *WebSocketHandler) reply(client *ws.Client, msg []byte) {
	h.hub.Reply(client, msg)
}
