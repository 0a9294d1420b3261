package handler

import (
	"crypto/subtle"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/AchilleasB/planbee/clinic-portal-service/internal/adapters/middleware"
	"github.com/AchilleasB/planbee/clinic-portal-service/internal/core/domain"
	"github.com/AchilleasB/planbee/clinic-portal-service/internal/core/ports"
	"github.com/AchilleasB/planbee/clinic-portal-service/internal/core/validation"
)

const oauthStateCookie = "planbee_oauth_state"

type AuthHandler struct {
	patientAuth   ports.PatientAuthService
	staffAuth     ports.StaffAuthService
	sessions      ports.SessionService
	secureCookies bool
	log           *zap.Logger
}

func NewAuthHandler(
	patientAuth ports.PatientAuthService,
	staffAuth ports.StaffAuthService,
	sessions ports.SessionService,
	secureCookies bool,
	log *zap.Logger,
) *AuthHandler {
	return &AuthHandler{
		patientAuth:   patientAuth,
		staffAuth:     staffAuth,
		sessions:      sessions,
		secureCookies: secureCookies,
		log:           log,
	}
}

type LoginResponse struct {
	Message   string          `json:"message"`
	Token     string          `json:"token"`
	ExpiresAt time.Time       `json:"expires_at"`
	User      domain.AuthUser `json:"user"`
	Patient   *domain.Patient `json:"patient,omitempty"`
	Staff     *domain.Staff   `json:"staff,omitempty"`
}

func loginResponse(session *domain.Session) LoginResponse {
	return LoginResponse{
		Message:   "Login successful",
		Token:     session.Token,
		ExpiresAt: session.ExpiresAt,
		User:      session.User,
		Patient:   session.Patient,
		Staff:     session.Staff,
	}
}

// PatientLogin handles POST /patient/login. The response carries the
// rotated passcode inside the patient record.
func (h *AuthHandler) PatientLogin(w http.ResponseWriter, r *http.Request) {
	var req validation.PatientLogin
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.log, err)
		return
	}

	session, err := h.patientAuth.Login(r.Context(), req)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, h.log, http.StatusOK, loginResponse(session))
}

func (h *AuthHandler) StaffLogin(w http.ResponseWriter, r *http.Request) {
	var req validation.StaffLogin
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.log, err)
		return
	}

	session, err := h.staffAuth.Login(r.Context(), req)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, h.log, http.StatusOK, loginResponse(session))
}

// GoogleLogin redirects to the consent screen and pins the CSRF state in a
// short-lived cookie.
func (h *AuthHandler) GoogleLogin(w http.ResponseWriter, r *http.Request) {
	url, state, err := h.staffAuth.GoogleAuthURL()
	if err != nil {
		writeError(w, h.log, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    state,
		Path:     "/auth/google",
		MaxAge:   int((10 * time.Minute).Seconds()),
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, url, http.StatusFound)
}

func (h *AuthHandler) GoogleCallback(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	if e := query.Get("error"); e != "" {
		h.log.Info("google consent declined", zap.String("reason", e))
		writeError(w, h.log, domain.ErrInvalidCredentials)
		return
	}

	cookie, err := r.Cookie(oauthStateCookie)
	if err != nil || subtle.ConstantTimeCompare([]byte(cookie.Value), []byte(query.Get("state"))) != 1 {
		h.log.Warn("google callback state mismatch")
		writeError(w, h.log, domain.ErrInvalidCredentials)
		return
	}
	http.SetCookie(w, &http.Cookie{Name: oauthStateCookie, Value: "", Path: "/auth/google", MaxAge: -1})

	session, err := h.staffAuth.LoginWithGoogle(r.Context(), query.Get("code"))
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, h.log, http.StatusOK, loginResponse(session))
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	session := middleware.SessionFrom(r.Context())
	if err := h.sessions.Logout(r.Context(), session.Token); err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, h.log, http.StatusOK, MessageResponse{Message: "Logged out"})
}

// Me returns the identity behind the bearer token.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	resp := loginResponse(middleware.SessionFrom(r.Context()))
	resp.Message = "Session active"
	writeJSON(w, h.log, http.StatusOK, resp)
}
