package login

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
)

// LoginRequestBody represents the login request body
type LoginRequestBody struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse represents a successful login
type LoginResponse struct {
	Message string    `json:"message"`
	Token   string    `json:"token,omitempty"`
	User    LoginUser `json:"user"`
}

// LoginUser is the identity fragment returned to an authenticated caller
type LoginUser struct {
	Email    string `json:"email"`
	Name     string `json:"name,omitempty"`
	Verified bool   `json:"verified"`
}

// ErrorResponse represents an error response. NeedsVerification is set only
// for the verification-pending rejection.
type ErrorResponse struct {
	Error             string `json:"error"`
	NeedsVerification bool   `json:"needs_verification,omitempty"`
	Email             string `json:"email,omitempty"`
}

// Handle exposes the authentication intake over HTTP
type Handle struct {
	service *Service
}

// NewHandle creates a new login handler
func NewHandle(service *Service) *Handle {
	return &Handle{service: service}
}

// RegisterRoutes mounts the login endpoint on the router
func (h *Handle) RegisterRoutes(r chi.Router) {
	r.Post("/login", h.Login)
}

// Login handles POST /login
func (h *Handle) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequestBody
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Error("Failed to decode request body", "err", err)
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, ErrorResponse{Error: "Invalid request body"})
		return
	}

	if req.Email == "" || req.Password == "" {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, ErrorResponse{Error: "Email and password are required"})
		return
	}

	result, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, ErrVerificationRequired):
			render.Status(r, http.StatusForbidden)
			render.JSON(w, r, ErrorResponse{
				Error:             "Email not verified",
				NeedsVerification: true,
				Email:             req.Email,
			})
		case errors.Is(err, ErrInvalidCredentials):
			render.Status(r, http.StatusUnauthorized)
			render.JSON(w, r, ErrorResponse{Error: "Invalid email or password"})
		default:
			slog.Error("Failed to log in user", "err", err)
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, ErrorResponse{Error: "An error occurred while logging in"})
		}
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, LoginResponse{
		Message: "Login successful",
		Token:   result.Token,
		User: LoginUser{
			Email:    result.Email,
			Name:     result.DisplayName,
			Verified: result.Verified,
		},
	})
}
