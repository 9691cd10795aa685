package httptransport

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"campusvote/internal/candidate"
	"campusvote/internal/election"
	"campusvote/internal/platform/middleware"
)

// ElectionHandler serves public election reads and the candidate's own
// profile endpoints.
type ElectionHandler struct {
	elections  *election.Service
	candidates *candidate.Service
}

func NewElectionHandler(elections *election.Service, candidates *candidate.Service) *ElectionHandler {
	return &ElectionHandler{elections: elections, candidates: candidates}
}

func (h *ElectionHandler) Register(r chi.Router, requireAuth func(http.Handler) http.Handler) {
	r.Get("/elections", h.handleList)
	r.Get("/elections/{electionID}", h.handleGet)
	r.Get("/elections/{electionID}/candidates", h.handleListCandidates)

	r.Group(func(r chi.Router) {
		r.Use(requireAuth)
		r.Use(middleware.RequireRole("CANDIDATE"))
		r.Get("/elections/{electionID}/me", h.handleGetOwnProfile)
		r.Patch("/elections/{electionID}/me", h.handleUpdateOwnProfile)
	})
}

func (h *ElectionHandler) handleList(w http.ResponseWriter, r *http.Request) {
	elections, err := h.elections.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, elections)
}

func (h *ElectionHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	e, err := h.elections.Get(r.Context(), chi.URLParam(r, "electionID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (h *ElectionHandler) handleListCandidates(w http.ResponseWriter, r *http.Request) {
	views, err := h.candidates.ListApproved(r.Context(),
		chi.URLParam(r, "electionID"), r.URL.Query().Get("positionId"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, views)
}

func (h *ElectionHandler) handleGetOwnProfile(w http.ResponseWriter, r *http.Request) {
	p, err := h.candidates.GetOwn(r.Context(),
		middleware.GetUserID(r.Context()), chi.URLParam(r, "electionID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *ElectionHandler) handleUpdateOwnProfile(w http.ResponseWriter, r *http.Request) {
	var in struct {
		PositionID *string `json:"positionId"`
		PhotoURL   *string `json:"photoUrl"`
		SymbolURL  *string `json:"electionSymbolUrl"`
		Manifesto  *string `json:"manifesto"`
	}
	if err := decode(r, &in); err != nil {
		writeError(w, err)
		return
	}
	p, err := h.candidates.UpdateOwn(r.Context(),
		middleware.GetUserID(r.Context()), chi.URLParam(r, "electionID"),
		candidate.UpdateParams{
			PositionID: in.PositionID,
			PhotoURL:   in.PhotoURL,
			SymbolURL:  in.SymbolURL,
			Manifesto:  in.Manifesto,
		})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}
