package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Godfather59/score-app/internal/services"
)

// PlayerHandler handles HTTP requests for players.
type PlayerHandler struct {
	service services.PlayerServiceProvider
}

// NewPlayerHandler creates a new PlayerHandler.
func NewPlayerHandler(service services.PlayerServiceProvider) *PlayerHandler {
	return &PlayerHandler{service: service}
}

func (h *PlayerHandler) GetAll(w http.ResponseWriter, r *http.Request) {
	players, err := h.service.GetAllPlayers(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, players)
}

func (h *PlayerHandler) Get(w http.ResponseWriter, r *http.Request) {
	player, err := h.service.GetPlayerByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, player)
}

func (h *PlayerHandler) Search(w http.ResponseWriter, r *http.Request) {
	players, err := h.service.SearchPlayers(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, players)
}

func (h *PlayerHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in services.PlayerInput
	if !decodeJSON(w, r, &in) {
		return
	}
	player, err := h.service.CreatePlayer(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, player)
}

func (h *PlayerHandler) Update(w http.ResponseWriter, r *http.Request) {
	var in services.PlayerInput
	if !decodeJSON(w, r, &in) {
		return
	}
	player, err := h.service.UpdatePlayer(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, player)
}

func (h *PlayerHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeletePlayer(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Player deleted"})
}
