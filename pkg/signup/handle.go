package signup

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
)

// RegisterRequestBody represents the registration request body
type RegisterRequestBody struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name,omitempty"`
}

// RegisterResponse represents the registration response
type RegisterResponse struct {
	Message   string `json:"message"`
	Email     string `json:"email"`
	EmailSent bool   `json:"email_sent"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error string `json:"error"`
}

// Handle exposes the registration intake over HTTP
type Handle struct {
	service *Service
}

// NewHandle creates a new signup handler
func NewHandle(service *Service) *Handle {
	return &Handle{service: service}
}

// RegisterRoutes mounts the signup endpoints on the router
func (h *Handle) RegisterRoutes(r chi.Router) {
	r.Post("/register", h.RegisterUser)
}

// RegisterUser handles POST /register
func (h *Handle) RegisterUser(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequestBody
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Error("Failed to decode request body", "err", err)
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, ErrorResponse{Error: "Invalid request body"})
		return
	}

	result, err := h.service.Register(r.Context(), RegisterRequest{
		Email:    req.Email,
		Password: req.Password,
		Name:     req.Name,
	})
	if err != nil {
		status := http.StatusInternalServerError
		message := "An error occurred while registering"

		switch {
		case errors.Is(err, ErrMissingFields):
			status = http.StatusBadRequest
			message = "Email and password are required"
		case errors.Is(err, ErrEmailExists):
			status = http.StatusConflict
			message = "User with this email already exists"
		default:
			slog.Error("Failed to register user", "err", err)
		}

		render.Status(r, status)
		render.JSON(w, r, ErrorResponse{Error: message})
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, RegisterResponse{
		Message:   "User registered successfully. Verification email sent.",
		Email:     result.Email,
		EmailSent: result.EmailSent,
	})
}
