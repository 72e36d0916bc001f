package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Godfather59/score-app/internal/services"
)

// MatchHandler handles HTTP requests for matches.
type MatchHandler struct {
	service services.MatchServiceProvider
}

// NewMatchHandler creates a new MatchHandler.
func NewMatchHandler(service services.MatchServiceProvider) *MatchHandler {
	return &MatchHandler{service: service}
}

// GetAll lists matches, optionally filtered by ?status= and ?team_id=.
func (h *MatchHandler) GetAll(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	matches, err := h.service.GetAllMatches(r.Context(), services.MatchFilter{
		Status: q.Get("status"),
		TeamID: q.Get("team_id"),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, matches)
}

func (h *MatchHandler) Get(w http.ResponseWriter, r *http.Request) {
	match, err := h.service.GetMatchByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, match)
}

func (h *MatchHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in services.MatchInput
	if !decodeJSON(w, r, &in) {
		return
	}
	match, err := h.service.CreateMatch(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, match)
}

func (h *MatchHandler) Update(w http.ResponseWriter, r *http.Request) {
	var in services.MatchInput
	if !decodeJSON(w, r, &in) {
		return
	}
	match, err := h.service.UpdateMatch(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, match)
}

func (h *MatchHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteMatch(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Match deleted"})
}
