package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Godfather59/score-app/internal/services"
)

// RefereeHandler handles HTTP requests for referees.
type RefereeHandler struct {
	service services.RefereeServiceProvider
}

// NewRefereeHandler creates a new RefereeHandler.
func NewRefereeHandler(service services.RefereeServiceProvider) *RefereeHandler {
	return &RefereeHandler{service: service}
}

func (h *RefereeHandler) GetAll(w http.ResponseWriter, r *http.Request) {
	referees, err := h.service.GetAllReferees(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, referees)
}

func (h *RefereeHandler) Get(w http.ResponseWriter, r *http.Request) {
	referee, err := h.service.GetRefereeByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, referee)
}

func (h *RefereeHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in services.RefereeInput
	if !decodeJSON(w, r, &in) {
		return
	}
	referee, err := h.service.CreateReferee(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, referee)
}

func (h *RefereeHandler) Update(w http.ResponseWriter, r *http.Request) {
	var in services.RefereeInput
	if !decodeJSON(w, r, &in) {
		return
	}
	referee, err := h.service.UpdateReferee(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, referee)
}

func (h *RefereeHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteReferee(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Referee deleted"})
}
