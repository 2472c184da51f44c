package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/mail"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/authcore/apiserver/internal/services"
	"github.com/authcore/apiserver/internal/session"
)

// AuthHandler exposes the credential and password-reset lifecycle over
// JSON HTTP. All policy lives in the auth service; this layer decodes,
// validates input shape, and maps service errors to statuses.
type AuthHandler struct {
	service  *services.AuthService
	sessions *session.Manager
}

func NewAuthHandler(service *services.AuthService, sessions *session.Manager) *AuthHandler {
	return &AuthHandler{service: service, sessions: sessions}
}

// AuthRouter registers the auth routes on the given router.
func AuthRouter(r chi.Router, service *services.AuthService, sessions *session.Manager) {
	h := NewAuthHandler(service, sessions)

	r.Get("/check-email", h.CheckEmail)
	r.Post("/register", h.Register)
	r.Post("/login", h.Login)
	r.Post("/logout", h.Logout)
	r.Get("/me", h.Me)
	r.Post("/change-password", h.ChangePassword)
	r.Post("/password-reset/request", h.ResetRequest)
	r.Post("/password-reset/verify-code", h.ResetVerifyCode)
	r.Post("/password-reset/confirm", h.ResetConfirm)
}

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

type resetRequestRequest struct {
	Email string `json:"email"`
}

type resetVerifyRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

type resetConfirmRequest struct {
	Email       string `json:"email"`
	NewPassword string `json:"new_password"`
}

type checkEmailResponse struct {
	Available bool   `json:"available"`
	Message   string `json:"message"`
}

// CheckEmail reports whether the email is free to register.
func (h *AuthHandler) CheckEmail(w http.ResponseWriter, r *http.Request) {
	email := strings.TrimSpace(r.URL.Query().Get("email"))
	if !validEmail(email) {
		writeError(w, http.StatusBadRequest, "a valid email is required")
		return
	}

	available, err := h.service.CheckEmail(r.Context(), email)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to check email")
		return
	}

	message := "email is already in use"
	if available {
		message = "email is available"
	}
	writeJSON(w, http.StatusOK, checkEmailResponse{Available: available, Message: message})
}

// Register creates an account. No session is started.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	req.Email = strings.TrimSpace(req.Email)
	if !validEmail(req.Email) || req.Password == "" {
		writeError(w, http.StatusBadRequest, "email and password are required")
		return
	}

	user, err := h.service.Register(r.Context(), req.Email, req.Password)
	if err != nil {
		h.fail(w, err, "failed to register")
		return
	}

	writeJSON(w, http.StatusOK, Response{
		Success: true,
		Message: "registration complete",
		UserID:  user.ID.String(),
	})
}

// Login verifies credentials and sets the session cookie.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "email and password are required")
		return
	}

	sess := h.sessions.ForRequest(w, r)
	if _, err := h.service.Login(r.Context(), sess, req.Email, req.Password); err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			writeError(w, http.StatusUnauthorized, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to log in")
		return
	}

	writeJSON(w, http.StatusOK, Response{Success: true, Message: "login successful"})
}

// Logout clears the session cookie. Succeeds with or without one.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.service.Logout(h.sessions.ForRequest(w, r))
	writeJSON(w, http.StatusOK, Response{Success: true, Message: "logout complete"})
}

// Me returns the public projection of the session's account.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	sess := h.sessions.ForRequest(w, r)
	user, err := h.service.CurrentUser(r.Context(), sess)
	if err != nil {
		h.fail(w, err, "failed to load user")
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// ChangePassword rotates the credential of the logged-in account.
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var req changePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	if req.CurrentPassword == "" || req.NewPassword == "" {
		writeError(w, http.StatusBadRequest, "current and new passwords are required")
		return
	}

	sess := h.sessions.ForRequest(w, r)
	if err := h.service.ChangePassword(r.Context(), sess, req.CurrentPassword, req.NewPassword); err != nil {
		h.fail(w, err, "failed to change password")
		return
	}

	writeJSON(w, http.StatusOK, Response{Success: true, Message: "password changed"})
}

// ResetRequest issues a verification code and schedules its delivery.
func (h *AuthHandler) ResetRequest(w http.ResponseWriter, r *http.Request) {
	var req resetRequestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	req.Email = strings.TrimSpace(req.Email)
	if !validEmail(req.Email) {
		writeError(w, http.StatusBadRequest, "a valid email is required")
		return
	}

	if err := h.service.RequestPasswordReset(r.Context(), req.Email); err != nil {
		h.fail(w, err, "failed to request password reset")
		return
	}

	writeJSON(w, http.StatusOK, Response{Success: true, Message: "verification code sent"})
}

// ResetVerifyCode checks a code without consuming it.
func (h *AuthHandler) ResetVerifyCode(w http.ResponseWriter, r *http.Request) {
	var req resetVerifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" || req.Code == "" {
		writeError(w, http.StatusBadRequest, "email and code are required")
		return
	}

	if err := h.service.VerifyResetCode(r.Context(), req.Email, req.Code); err != nil {
		h.fail(w, err, "failed to verify code")
		return
	}

	writeJSON(w, http.StatusOK, Response{Success: true, Message: "verification code confirmed"})
}

// ResetConfirm sets the new password and cleans up the latest code.
func (h *AuthHandler) ResetConfirm(w http.ResponseWriter, r *http.Request) {
	var req resetConfirmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" || req.NewPassword == "" {
		writeError(w, http.StatusBadRequest, "email and new password are required")
		return
	}

	if err := h.service.ConfirmPasswordReset(r.Context(), req.Email, req.NewPassword); err != nil {
		h.fail(w, err, "failed to reset password")
		return
	}

	writeJSON(w, http.StatusOK, Response{Success: true, Message: "password has been reset"})
}

// fail maps a service error to its HTTP status: 401 unauthenticated,
// 404 missing account, 400 for business-rule violations, 500 otherwise.
func (h *AuthHandler) fail(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, services.ErrUnauthenticated):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, services.ErrUserNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, services.ErrEmailTaken),
		errors.Is(err, services.ErrWeakPassword),
		errors.Is(err, services.ErrInvalidCredentials),
		errors.Is(err, services.ErrInvalidCode),
		errors.Is(err, services.ErrCodeExpired):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, fallback)
	}
}

func validEmail(email string) bool {
	if email == "" {
		return false
	}
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email
}
