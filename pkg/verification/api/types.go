package api

// VerifyEmailRequest represents the request to verify an email
type VerifyEmailRequest struct {
	Token string `json:"token"`
}

// VerifyEmailResponse represents the response after email verification
type VerifyEmailResponse struct {
	Message string `json:"message"`
	Email   string `json:"email"`
}

// ResendVerificationRequest represents the request to resend a verification email
type ResendVerificationRequest struct {
	Email string `json:"email"`
}

// ResendVerificationResponse represents the response after resending verification
type ResendVerificationResponse struct {
	Message   string `json:"message"`
	EmailSent bool   `json:"email_sent"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error string `json:"error"`
}
