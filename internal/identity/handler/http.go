// Package handler exposes the auth service as a JSON HTTP API.
package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"auth-service/internal/identity/service"
	"auth-service/internal/logging"
	"auth-service/internal/security"
)

// maxRequestBodySize bounds JSON request bodies.
const maxRequestBodySize = 1 << 16

// Handler serves /signup, /login, /verify_2fa, /logout and /verify_token.
type Handler struct {
	auth         *service.AuthService
	cookieName   string
	secureCookie bool
	logger       logging.Logger
	mux          *http.ServeMux
}

// NewHandler returns a Handler. secureCookie sets the Secure flag on the session cookie.
func NewHandler(auth *service.AuthService, cookieName string, secureCookie bool, logger logging.Logger) *Handler {
	h := &Handler{auth: auth, cookieName: cookieName, secureCookie: secureCookie, logger: logger, mux: http.NewServeMux()}
	h.mux.HandleFunc("POST /signup", h.handleSignup)
	h.mux.HandleFunc("POST /login", h.handleLogin)
	h.mux.HandleFunc("POST /verify_2fa", h.handleVerify2FA)
	h.mux.HandleFunc("POST /logout", h.handleLogout)
	h.mux.HandleFunc("POST /verify_token", h.handleVerifyToken)
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

type signupRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	Requires2FA bool   `json:"requires2FA"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type verify2FARequest struct {
	Email          string `json:"email"`
	LoginAttemptID string `json:"loginAttemptId"`
	TwoFACode      string `json:"2FACode"`
}

type verifyTokenRequest struct {
	Token string `json:"token"`
}

type messageResponse struct {
	Message string `json:"message"`
}

// TwoFactorResponse is returned with 206 Partial Content when login needs a code.
type TwoFactorResponse struct {
	Message        string `json:"message"`
	LoginAttemptID string `json:"loginAttemptId"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (h *Handler) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.auth.Signup(r.Context(), req.Email, req.Password, req.Requires2FA); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, messageResponse{Message: "User created successfully!"})
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !h.decode(w, r, &req) {
		return
	}
	res, err := h.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if res.Status == service.TwoFactorPending {
		writeJSON(w, http.StatusPartialContent, TwoFactorResponse{Message: "2FA required", LoginAttemptID: res.AttemptID})
		return
	}
	h.setSessionCookie(w, res.Session)
	writeJSON(w, http.StatusOK, messageResponse{Message: "Login successful"})
}

func (h *Handler) handleVerify2FA(w http.ResponseWriter, r *http.Request) {
	var req verify2FARequest
	if !h.decode(w, r, &req) {
		return
	}
	sess, err := h.auth.Verify2FA(r.Context(), req.Email, req.LoginAttemptID, req.TwoFACode)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.setSessionCookie(w, sess)
	writeJSON(w, http.StatusOK, messageResponse{Message: "Login successful"})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := h.auth.Logout(r.Context(), h.tokenFromRequest(r)); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.clearSessionCookie(w)
	writeJSON(w, http.StatusOK, messageResponse{Message: "Logged out"})
}

func (h *Handler) handleVerifyToken(w http.ResponseWriter, r *http.Request) {
	var req verifyTokenRequest
	if !h.decode(w, r, &req) {
		return
	}
	if _, err := h.auth.VerifyToken(r.Context(), req.Token); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Token is valid"})
}

// tokenFromRequest reads the session cookie, falling back to an Authorization: Bearer header.
func (h *Handler) tokenFromRequest(r *http.Request) string {
	if c, err := r.Cookie(h.cookieName); err == nil && c.Value != "" {
		return c.Value
	}
	auth := r.Header.Get("Authorization")
	if token, ok := strings.CutPrefix(auth, "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return ""
}

func (h *Handler) setSessionCookie(w http.ResponseWriter, sess *security.Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.cookieName,
		Value:    sess.Token,
		Path:     "/",
		Expires:  sess.ExpiresAt,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *Handler) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.cookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

// decode reads a JSON body into v. Malformed bodies are answered with 422, as the
// request never reached credential checks.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: "Malformed request body."})
		return false
	}
	return true
}

// StatusFor maps a service error kind to its HTTP status and client message.
func StatusFor(err error) (int, string) {
	switch {
	case errors.Is(err, service.ErrAlreadyExists):
		return http.StatusConflict, "User already exists."
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound, "Not found."
	case errors.Is(err, service.ErrInvalidCredentials):
		return http.StatusBadRequest, "Invalid credentials."
	case errors.Is(err, service.ErrIncorrectCredentials):
		return http.StatusUnauthorized, "Incorrect credentials."
	case errors.Is(err, service.ErrMissingToken):
		return http.StatusBadRequest, "Missing auth token."
	case errors.Is(err, service.ErrUnauthorized):
		return http.StatusUnauthorized, "Invalid auth token."
	default:
		return http.StatusInternalServerError, "Unexpected error."
	}
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := StatusFor(err)
	if status == http.StatusInternalServerError {
		h.logger.Error(r.Context(), "request failed", "path", r.URL.Path, "error", err)
	}
	writeJSON(w, status, errorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
