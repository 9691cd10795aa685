package httptransport

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"campusvote/internal/audit"
	"campusvote/internal/ballot"
	"campusvote/internal/platform/middleware"
	"campusvote/internal/user"
)

// VoteHandler admits ballots and reports vote status.
type VoteHandler struct {
	ballots  *ballot.Service
	users    *user.Service
	recorder *audit.Recorder
}

func NewVoteHandler(ballots *ballot.Service, users *user.Service, recorder *audit.Recorder) *VoteHandler {
	return &VoteHandler{ballots: ballots, users: users, recorder: recorder}
}

func (h *VoteHandler) Register(r chi.Router, requireAuth func(http.Handler) http.Handler) {
	r.Group(func(r chi.Router) {
		r.Use(requireAuth)
		r.Use(middleware.RequireRole("VOTER"))
		r.Post("/votes/{electionID}", h.handleCast)
		r.Get("/votes/{electionID}/status", h.handleStatus)
	})
}

func (h *VoteHandler) handleCast(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Selections []ballot.Selection `json:"selections"`
	}
	if err := decode(r, &in); err != nil {
		writeError(w, err)
		return
	}

	voter, err := h.users.Get(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}

	electionID := chi.URLParam(r, "electionID")
	meta := extractClientMeta(r)
	v, err := h.ballots.Admit(r.Context(), electionID, voter, in.Selections, ballot.Meta{
		IP:        meta.IP,
		UserAgent: meta.UserAgent,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	h.recorder.Record(r.Context(), audit.Event{
		ActorID:    voter.ID,
		Action:     audit.ActionVoteCast,
		EntityType: "election",
		EntityID:   electionID,
		IP:         meta.IP,
		UserAgent:  meta.UserAgent,
	})

	// The receipt confirms admission without echoing selections back.
	writeJSON(w, http.StatusCreated, map[string]any{
		"voteId":  v.ID,
		"votedAt": v.CreatedAt,
	})
}

func (h *VoteHandler) handleStatus(w http.ResponseWriter, r *http.Request) {
	voter, err := h.users.Get(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	st, err := h.ballots.Status(r.Context(), chi.URLParam(r, "electionID"), voter)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}
