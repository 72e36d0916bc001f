package handlers

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/Godfather59/score-app/internal/services"
)

// multipartMemory is how much of a multipart form is buffered in memory
// before spilling to temporary files.
const multipartMemory = 1 << 20

// TeamHandler handles HTTP requests for teams. Writes accept either JSON or
// a multipart form with an optional "logo" file.
type TeamHandler struct {
	service   services.TeamServiceProvider
	maxUpload int64
}

// NewTeamHandler creates a new TeamHandler. maxUpload caps the request body
// of multipart writes.
func NewTeamHandler(service services.TeamServiceProvider, maxUpload int64) *TeamHandler {
	if maxUpload <= 0 {
		maxUpload = 5 << 20
	}
	return &TeamHandler{service: service, maxUpload: maxUpload}
}

func (h *TeamHandler) GetAll(w http.ResponseWriter, r *http.Request) {
	teams, err := h.service.GetAllTeams(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, teams)
}

func (h *TeamHandler) Get(w http.ResponseWriter, r *http.Request) {
	team, err := h.service.GetTeamByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, team)
}

func (h *TeamHandler) Search(w http.ResponseWriter, r *http.Request) {
	teams, err := h.service.SearchTeams(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, teams)
}

func (h *TeamHandler) Create(w http.ResponseWriter, r *http.Request) {
	in, logo, ok := h.readTeam(w, r)
	if !ok {
		return
	}
	defer closeUpload(logo)
	team, err := h.service.CreateTeam(r.Context(), in, logo)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, team)
}

func (h *TeamHandler) Update(w http.ResponseWriter, r *http.Request) {
	in, logo, ok := h.readTeam(w, r)
	if !ok {
		return
	}
	defer closeUpload(logo)
	team, err := h.service.UpdateTeam(r.Context(), chi.URLParam(r, "id"), in, logo)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, team)
}

func (h *TeamHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteTeam(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Team deleted"})
}

// readTeam decodes a team from a JSON or multipart body. The returned upload
// is nil when no logo was sent.
func (h *TeamHandler) readTeam(w http.ResponseWriter, r *http.Request) (services.TeamInput, *services.Upload, bool) {
	var in services.TeamInput
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "multipart/form-data" {
		return in, nil, decodeJSON(w, r, &in)
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeMessage(w, http.StatusRequestEntityTooLarge, "Upload too large")
			return in, nil, false
		}
		writeMessage(w, http.StatusBadRequest, "Invalid multipart form")
		return in, nil, false
	}

	in.Name = r.FormValue("name")
	in.League = r.FormValue("league")
	if founded := strings.TrimSpace(r.FormValue("founded")); founded != "" {
		year, err := strconv.Atoi(founded)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{
				Message: "Validation failed",
				Errors:  []services.FieldError{{Field: "founded", Message: "must be a year"}},
			})
			return in, nil, false
		}
		in.Founded = &year
	}

	file, _, err := r.FormFile("logo")
	switch {
	case errors.Is(err, http.ErrMissingFile):
		return in, nil, true
	case err != nil:
		writeMessage(w, http.StatusBadRequest, "Invalid logo upload")
		return in, nil, false
	}
	return in, &services.Upload{Body: file}, true
}

func closeUpload(u *services.Upload) {
	if u == nil {
		return
	}
	if c, ok := u.Body.(io.Closer); ok {
		_ = c.Close()
	}
}
