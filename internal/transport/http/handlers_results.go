package httptransport

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"campusvote/internal/platform/middleware"
	"campusvote/internal/results"
)

// ResultsHandler serves tabulated results. Admins see any ended election;
// candidates see only published elections they contested.
type ResultsHandler struct {
	results *results.Service
}

func NewResultsHandler(resultsSvc *results.Service) *ResultsHandler {
	return &ResultsHandler{results: resultsSvc}
}

func (h *ResultsHandler) Register(r chi.Router, requireAuth func(http.Handler) http.Handler) {
	r.Group(func(r chi.Router) {
		r.Use(requireAuth)
		r.Use(middleware.RequireRole("ADMIN", "CANDIDATE"))
		r.Get("/results/{electionID}", h.handleGet)
	})
}

func (h *ResultsHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	electionID := chi.URLParam(r, "electionID")

	var report *results.Report
	var err error
	if middleware.GetRole(r.Context()) == "ADMIN" {
		report, err = h.results.ForAdmin(r.Context(), electionID)
	} else {
		report, err = h.results.ForCandidate(r.Context(), electionID, middleware.GetUserID(r.Context()))
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}
