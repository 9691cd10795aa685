package httptransport

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"campusvote/internal/audit"
	"campusvote/internal/auth"
	"campusvote/internal/election"
	"campusvote/internal/platform/middleware"
	"campusvote/internal/user"
	dErrors "campusvote/pkg/domain-errors"
)

// AdminHandler is the management surface: election lifecycle, position
// config, the approval workflow, admin accounts, and the audit log.
type AdminHandler struct {
	elections *election.Service
	users     *user.Service
	auth      *auth.Service
	recorder  *audit.Recorder
	trail     audit.Store
}

func NewAdminHandler(elections *election.Service, users *user.Service, authSvc *auth.Service, recorder *audit.Recorder, trail audit.Store) *AdminHandler {
	return &AdminHandler{
		elections: elections,
		users:     users,
		auth:      authSvc,
		recorder:  recorder,
		trail:     trail,
	}
}

func (h *AdminHandler) Register(r chi.Router, requireAuth func(http.Handler) http.Handler) {
	r.Route("/admin", func(r chi.Router) {
		r.Use(requireAuth)
		r.Use(middleware.RequireRole("ADMIN"))

		r.Post("/elections", h.handleCreateElection)
		r.Patch("/elections/{electionID}", h.handleUpdateElection)
		r.Post("/elections/{electionID}/start", h.handleStartElection)
		r.Post("/elections/{electionID}/stop", h.handleStopElection)
		r.Post("/elections/{electionID}/publish", h.handlePublishResults)

		r.Post("/elections/{electionID}/positions", h.handleAddPosition)
		r.Patch("/elections/{electionID}/positions/{positionID}", h.handleUpdatePosition)
		r.Delete("/elections/{electionID}/positions/{positionID}", h.handleRemovePosition)

		r.Get("/users", h.handleListUsers)
		r.Post("/users/{userID}/approval", h.handleSetApproval)
		r.Post("/users/{userID}/activation", h.handleSetActivation)

		r.Get("/audit", h.handleAuditLog)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAdminType("SUPER"))
			r.Post("/admins", h.handleCreateAdmin)
		})
	})
}

func (h *AdminHandler) handleCreateElection(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Name             string     `json:"name"`
		Description      string     `json:"description"`
		AutoCloseEnabled bool       `json:"autoCloseEnabled"`
		EndsAt           *time.Time `json:"endsAt"`
	}
	if err := decode(r, &in); err != nil {
		writeError(w, err)
		return
	}
	e, err := h.elections.Create(r.Context(), election.CreateParams{
		Name:             in.Name,
		Description:      in.Description,
		AutoCloseEnabled: in.AutoCloseEnabled,
		EndsAt:           in.EndsAt,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	h.audit(r, audit.ActionElectionCreated, "election", e.ID, map[string]any{"name": e.Name})
	writeJSON(w, http.StatusCreated, e)
}

func (h *AdminHandler) handleUpdateElection(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Name             *string    `json:"name"`
		Description      *string    `json:"description"`
		AutoCloseEnabled *bool      `json:"autoCloseEnabled"`
		StartsAt         *time.Time `json:"startsAt"`
		EndsAt           *time.Time `json:"endsAt"`
		Status           *string    `json:"status"`
	}
	if err := decode(r, &in); err != nil {
		writeError(w, err)
		return
	}
	params := election.UpdateParams{
		Name:             in.Name,
		Description:      in.Description,
		AutoCloseEnabled: in.AutoCloseEnabled,
		StartsAt:         in.StartsAt,
		EndsAt:           in.EndsAt,
	}
	if in.Status != nil {
		status := election.Status(*in.Status)
		params.Status = &status
	}

	electionID := chi.URLParam(r, "electionID")
	e, err := h.elections.Update(r.Context(), electionID, params)
	if err != nil {
		writeError(w, err)
		return
	}
	h.audit(r, audit.ActionElectionUpdated, "election", e.ID, nil)
	writeJSON(w, http.StatusOK, e)
}

func (h *AdminHandler) handleStartElection(w http.ResponseWriter, r *http.Request) {
	e, err := h.elections.Start(r.Context(), chi.URLParam(r, "electionID"))
	if err != nil {
		writeError(w, err)
		return
	}
	h.audit(r, audit.ActionElectionStarted, "election", e.ID, nil)
	writeJSON(w, http.StatusOK, e)
}

func (h *AdminHandler) handleStopElection(w http.ResponseWriter, r *http.Request) {
	e, err := h.elections.Stop(r.Context(), chi.URLParam(r, "electionID"))
	if err != nil {
		writeError(w, err)
		return
	}
	h.audit(r, audit.ActionElectionStopped, "election", e.ID, nil)
	writeJSON(w, http.StatusOK, e)
}

func (h *AdminHandler) handlePublishResults(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Published bool `json:"published"`
	}
	if err := decode(r, &in); err != nil {
		writeError(w, err)
		return
	}
	e, err := h.elections.SetPublished(r.Context(), chi.URLParam(r, "electionID"), in.Published)
	if err != nil {
		writeError(w, err)
		return
	}
	h.audit(r, audit.ActionElectionPublish, "election", e.ID, map[string]any{"published": in.Published})
	writeJSON(w, http.StatusOK, e)
}

func (h *AdminHandler) handleAddPosition(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Title      string `json:"title"`
		Order      int    `json:"order"`
		MaxWinners int    `json:"maxWinners"`
	}
	if err := decode(r, &in); err != nil {
		writeError(w, err)
		return
	}
	electionID := chi.URLParam(r, "electionID")
	p, err := h.elections.AddPosition(r.Context(), electionID, election.PositionParams{
		Title:      in.Title,
		Order:      in.Order,
		MaxWinners: in.MaxWinners,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	h.audit(r, audit.ActionPositionAdded, "election", electionID, map[string]any{"positionId": p.ID, "title": p.Title})
	writeJSON(w, http.StatusCreated, p)
}

func (h *AdminHandler) handleUpdatePosition(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Title      *string `json:"title"`
		Order      *int    `json:"order"`
		MaxWinners *int    `json:"maxWinners"`
	}
	if err := decode(r, &in); err != nil {
		writeError(w, err)
		return
	}
	electionID := chi.URLParam(r, "electionID")
	positionID := chi.URLParam(r, "positionID")
	p, err := h.elections.UpdatePosition(r.Context(), electionID, positionID, election.PositionUpdate{
		Title:      in.Title,
		Order:      in.Order,
		MaxWinners: in.MaxWinners,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	h.audit(r, audit.ActionPositionUpdated, "election", electionID, map[string]any{"positionId": positionID})
	writeJSON(w, http.StatusOK, p)
}

func (h *AdminHandler) handleRemovePosition(w http.ResponseWriter, r *http.Request) {
	electionID := chi.URLParam(r, "electionID")
	positionID := chi.URLParam(r, "positionID")
	if err := h.elections.RemovePosition(r.Context(), electionID, positionID); err != nil {
		writeError(w, err)
		return
	}
	h.audit(r, audit.ActionPositionRemoved, "election", electionID, map[string]any{"positionId": positionID})
	w.WriteHeader(http.StatusNoContent)
}

func (h *AdminHandler) handleListUsers(w http.ResponseWriter, r *http.Request) {
	filter := user.ListFilter{
		Role:   user.Role(r.URL.Query().Get("role")),
		Status: user.ApprovalStatus(r.URL.Query().Get("status")),
	}
	users, err := h.users.List(r.Context(), filter)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

func (h *AdminHandler) handleSetApproval(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Status string `json:"status"`
		Note   string `json:"note"`
	}
	if err := decode(r, &in); err != nil {
		writeError(w, err)
		return
	}
	userID := chi.URLParam(r, "userID")
	adminID := middleware.GetUserID(r.Context())
	u, err := h.users.SetApproval(r.Context(), userID, user.ApprovalStatus(in.Status), in.Note, adminID)
	if err != nil {
		writeError(w, err)
		return
	}
	h.audit(r, audit.ActionApprovalDecision, "user", userID, map[string]any{"status": in.Status})
	writeJSON(w, http.StatusOK, u)
}

func (h *AdminHandler) handleSetActivation(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Active *bool `json:"active"`
	}
	if err := decode(r, &in); err != nil {
		writeError(w, err)
		return
	}
	if in.Active == nil {
		writeError(w, dErrors.New(dErrors.CodeValidation, "active is required"))
		return
	}
	userID := chi.URLParam(r, "userID")
	u, err := h.users.SetActive(r.Context(), userID, *in.Active)
	if err != nil {
		writeError(w, err)
		return
	}
	h.audit(r, audit.ActionUserActivation, "user", userID, map[string]any{"active": *in.Active})
	writeJSON(w, http.StatusOK, u)
}

func (h *AdminHandler) handleAuditLog(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 500 {
			writeError(w, dErrors.New(dErrors.CodeValidation, "limit must be between 1 and 500"))
			return
		}
		limit = n
	}
	events, err := h.trail.ListRecent(r.Context(), limit)
	if err != nil {
		writeError(w, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load audit log"))
		return
	}
	writeJSON(w, http.StatusOK, events)
}

func (h *AdminHandler) handleCreateAdmin(w http.ResponseWriter, r *http.Request) {
	var in auth.AdminInput
	if err := decode(r, &in); err != nil {
		writeError(w, err)
		return
	}
	actorType := user.AdminType(middleware.GetAdminType(r.Context()))
	u, err := h.auth.CreateAdmin(r.Context(), actorType, in)
	if err != nil {
		writeError(w, err)
		return
	}
	h.audit(r, audit.ActionAdminCreated, "user", u.ID, map[string]any{"adminType": string(u.AdminType)})
	writeJSON(w, http.StatusCreated, u)
}

func (h *AdminHandler) audit(r *http.Request, action, entityType, entityID string, meta map[string]any) {
	cm := extractClientMeta(r)
	h.recorder.Record(r.Context(), audit.Event{
		ActorID:    middleware.GetUserID(r.Context()),
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		Meta:       meta,
		IP:         cm.IP,
		UserAgent:  cm.UserAgent,
	})
}
