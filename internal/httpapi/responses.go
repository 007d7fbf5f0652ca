package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"forkfast/internal/domain"
)

// The wire envelope is {"success": bool, "message": string, ...}. Extra
// payload fields ride alongside via WritePayload.

type envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func WriteMessage(w http.ResponseWriter, status int, success bool, message string) {
	WriteJSON(w, status, envelope{Success: success, Message: message})
}

// WritePayload merges extra fields into the success envelope.
func WritePayload(w http.ResponseWriter, status int, message string, extra map[string]any) {
	body := map[string]any{"success": true}
	if message != "" {
		body["message"] = message
	}
	for k, v := range extra {
		body[k] = v
	}
	WriteJSON(w, status, body)
}

func WriteDomainError(w http.ResponseWriter, err error) {
	var lerr *domain.LockedError
	if errors.As(err, &lerr) {
		WriteMessage(w, http.StatusLocked, false, fmt.Sprintf(
			"Account is locked due to multiple failed login attempts. Try again in %d minute(s).",
			lerr.RemainingMinutes()))
		return
	}

	switch {
	case errors.Is(err, domain.ErrValidation):
		WriteMessage(w, http.StatusBadRequest, false, "Missing Details")
	case errors.Is(err, domain.ErrEmailTaken):
		WriteMessage(w, http.StatusConflict, false, "User already exists")
	case errors.Is(err, domain.ErrNotFound):
		WriteMessage(w, http.StatusNotFound, false, "This user doesn't exist.")
	case errors.Is(err, domain.ErrAccountUnverified):
		WriteMessage(w, http.StatusForbidden, false,
			"Please verify your email before logging in. Check your inbox for the verification OTP.")
	case errors.Is(err, domain.ErrInvalidCredentials):
		WriteMessage(w, http.StatusUnauthorized, false, "Invalid Password")
	case errors.Is(err, domain.ErrUnauthorized):
		WriteMessage(w, http.StatusUnauthorized, false, "Not Authorized. Login Again")
	case errors.Is(err, domain.ErrForbidden):
		WriteMessage(w, http.StatusForbidden, false, "Not Authorized")
	case errors.Is(err, domain.ErrAlreadyVerified):
		WriteMessage(w, http.StatusBadRequest, false, "Account already verified")
	case errors.Is(err, domain.ErrOTPInvalid):
		WriteMessage(w, http.StatusOK, false, "Invalid OTP")
	case errors.Is(err, domain.ErrOTPExpired):
		WriteMessage(w, http.StatusOK, false, "OTP Expired")
	case errors.Is(err, domain.ErrOTPAttemptsExceeded):
		WriteMessage(w, http.StatusOK, false, "Too many invalid OTP attempts. Please request a new code.")
	case errors.Is(err, domain.ErrPasswordReuse):
		WriteMessage(w, http.StatusOK, false,
			"New password cannot be the same as your recent passwords. Please choose a different password.")
	case errors.Is(err, domain.ErrDelivery):
		WriteMessage(w, http.StatusBadGateway, false, "Failed to send email. Please try again later.")
	case errors.Is(err, domain.ErrUnavailable):
		WriteMessage(w, http.StatusServiceUnavailable, false, "Service temporarily unavailable")
	default:
		WriteMessage(w, http.StatusInternalServerError, false, "Internal server error")
	}
}
