package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/mailproof/mailproof/pkg/verification"
)

// Handler exposes the redemption and resend intakes over HTTP
type Handler struct {
	service *verification.Service
}

// NewHandler creates a new verification API handler
func NewHandler(service *verification.Service) *Handler {
	return &Handler{
		service: service,
	}
}

// RegisterRoutes mounts the verification endpoints on the router
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/verify", h.VerifyEmail)
	r.Post("/verify", h.VerifyEmailPost)
	r.Post("/resend-verification", h.ResendVerification)
}

// VerifyEmail handles GET /verify?token=
func (h *Handler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, ErrorResponse{Error: "Token is required"})
		return
	}

	h.redeem(w, r, token)
}

// VerifyEmailPost handles POST /verify
func (h *Handler) VerifyEmailPost(w http.ResponseWriter, r *http.Request) {
	var req VerifyEmailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Error("Failed to decode request body", "err", err)
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, ErrorResponse{Error: "Invalid request body"})
		return
	}

	if req.Token == "" {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, ErrorResponse{Error: "Token is required"})
		return
	}

	h.redeem(w, r, req.Token)
}

func (h *Handler) redeem(w http.ResponseWriter, r *http.Request, token string) {
	email, err := h.service.Redeem(r.Context(), token)
	if err != nil {
		status := http.StatusBadRequest
		message := "Failed to verify email"

		switch {
		case errors.Is(err, verification.ErrTokenNotFound):
			status = http.StatusNotFound
			message = "Invalid verification token"
		case errors.Is(err, verification.ErrTokenExpired):
			status = http.StatusBadRequest
			message = "Verification token has expired"
		case errors.Is(err, verification.ErrTokenAlreadyUsed):
			status = http.StatusBadRequest
			message = "Verification token has already been used"
		case errors.Is(err, verification.ErrIdentityMissing):
			status = http.StatusNotFound
			message = "User not found"
		default:
			slog.Error("Failed to verify email", "err", err)
			status = http.StatusInternalServerError
			message = "An error occurred while verifying email"
		}

		render.Status(r, status)
		render.JSON(w, r, ErrorResponse{Error: message})
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, VerifyEmailResponse{
		Message: "Email verified successfully",
		Email:   email,
	})
}

// ResendVerification handles POST /resend-verification
func (h *Handler) ResendVerification(w http.ResponseWriter, r *http.Request) {
	var req ResendVerificationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Error("Failed to decode request body", "err", err)
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, ErrorResponse{Error: "Invalid request body"})
		return
	}

	if req.Email == "" {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, ErrorResponse{Error: "Email is required"})
		return
	}

	result, err := h.service.Resend(r.Context(), req.Email)
	if err != nil {
		status := http.StatusBadRequest
		message := "Failed to send verification email"

		switch {
		case errors.Is(err, verification.ErrUserNotFound):
			status = http.StatusNotFound
			message = "User not found"
		case errors.Is(err, verification.ErrAlreadyVerified):
			status = http.StatusBadRequest
			message = "Email is already verified"
		default:
			slog.Error("Failed to resend verification email", "err", err)
			status = http.StatusInternalServerError
			message = "An error occurred while sending verification email"
		}

		render.Status(r, status)
		render.JSON(w, r, ErrorResponse{Error: message})
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, ResendVerificationResponse{
		Message:   "Verification email resent",
		EmailSent: result.EmailSent,
	})
}
