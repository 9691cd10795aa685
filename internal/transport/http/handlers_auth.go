package httptransport

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"campusvote/internal/auth"
	"campusvote/internal/otp"
	"campusvote/internal/platform/middleware"
	dErrors "campusvote/pkg/domain-errors"
)

// AuthHandler covers signup, login, OTP verification, and password resets.
type AuthHandler struct {
	auth *auth.Service
}

func NewAuthHandler(authSvc *auth.Service) *AuthHandler {
	return &AuthHandler{auth: authSvc}
}

// Routes under /auth. OTP endpoints require a token: users log in first,
// then verify their channels.
func (h *AuthHandler) Register(r chi.Router, requireAuth func(http.Handler) http.Handler) {
	r.Post("/auth/register/voter", h.handleRegisterVoter)
	r.Post("/auth/register/candidate", h.handleRegisterCandidate)
	r.Post("/auth/login", h.handleLogin)
	r.Post("/auth/password/forgot", h.handleForgotPassword)
	r.Post("/auth/password/reset", h.handleResetPassword)

	r.Group(func(r chi.Router) {
		r.Use(requireAuth)
		r.Post("/auth/otp/send", h.handleSendOTP)
		r.Post("/auth/otp/verify", h.handleVerifyOTP)
	})
}

func (h *AuthHandler) handleRegisterVoter(w http.ResponseWriter, r *http.Request) {
	var in auth.VoterInput
	if err := decode(r, &in); err != nil {
		writeError(w, err)
		return
	}
	u, err := h.auth.RegisterVoter(r.Context(), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, u)
}

func (h *AuthHandler) handleRegisterCandidate(w http.ResponseWriter, r *http.Request) {
	var in auth.CandidateInput
	if err := decode(r, &in); err != nil {
		writeError(w, err)
		return
	}
	u, err := h.auth.RegisterCandidate(r.Context(), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, u)
}

func (h *AuthHandler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Identifier string `json:"identifier"`
		Password   string `json:"password"`
	}
	if err := decode(r, &in); err != nil {
		writeError(w, err)
		return
	}
	res, err := h.auth.Login(r.Context(), in.Identifier, in.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *AuthHandler) handleSendOTP(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Channel string `json:"channel"`
	}
	if err := decode(r, &in); err != nil {
		writeError(w, err)
		return
	}
	channel, err := parseChannel(in.Channel)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.auth.SendOTP(r.Context(), middleware.GetUserID(r.Context()), channel); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "sent"})
}

func (h *AuthHandler) handleVerifyOTP(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Channel string `json:"channel"`
		Code    string `json:"code"`
	}
	if err := decode(r, &in); err != nil {
		writeError(w, err)
		return
	}
	channel, err := parseChannel(in.Channel)
	if err != nil {
		writeError(w, err)
		return
	}
	u, err := h.auth.VerifyOTP(r.Context(), middleware.GetUserID(r.Context()), channel, in.Code)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (h *AuthHandler) handleForgotPassword(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Email string `json:"email"`
	}
	if err := decode(r, &in); err != nil {
		writeError(w, err)
		return
	}
	if err := h.auth.ForgotPassword(r.Context(), in.Email); err != nil {
		writeError(w, err)
		return
	}
	// Same response whether or not the email exists.
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "if the email is registered, a reset token has been sent",
	})
}

func (h *AuthHandler) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Token    string `json:"token"`
		Password string `json:"password"`
	}
	if err := decode(r, &in); err != nil {
		writeError(w, err)
		return
	}
	if err := h.auth.ResetPassword(r.Context(), in.Token, in.Password); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "password updated"})
}

func parseChannel(raw string) (otp.Channel, error) {
	switch otp.Channel(raw) {
	case otp.ChannelEmail:
		return otp.ChannelEmail, nil
	case otp.ChannelMobile:
		return otp.ChannelMobile, nil
	}
	return "", dErrors.New(dErrors.CodeValidation, "channel must be email or mobile")
}
