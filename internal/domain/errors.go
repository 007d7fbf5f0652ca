package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

var (
	ErrUnauthorized        = errors.New("unauthorized")
	ErrForbidden           = errors.New("forbidden")
	ErrNotFound            = errors.New("not_found")
	ErrEmailTaken          = errors.New("email_taken")
	ErrInvalidCredentials  = errors.New("invalid_credentials")
	ErrAccountUnverified   = errors.New("account_unverified")
	ErrAccountLocked       = errors.New("account_locked")
	ErrAlreadyVerified     = errors.New("already_verified")
	ErrOTPInvalid          = errors.New("otp_invalid")
	ErrOTPExpired          = errors.New("otp_expired")
	ErrOTPAttemptsExceeded = errors.New("otp_attempts_exceeded")
	ErrPasswordReuse       = errors.New("password_reuse")
	ErrDelivery            = errors.New("delivery_failed")
	ErrUnavailable         = errors.New("service_unavailable")
	ErrValidation          = errors.New("validation")
)

// LockedError reports an active login lockout and how long it has left.
type LockedError struct {
	RetryAfter time.Duration
}

func (e *LockedError) Error() string {
	return fmt.Sprintf("account locked, try again in %s", e.RetryAfter)
}

func (e *LockedError) Unwrap() error { return ErrAccountLocked }

// RemainingMinutes rounds the lock window up to whole minutes for the
// user-facing message.
func (e *LockedError) RemainingMinutes() int {
	mins := int((e.RetryAfter + time.Minute - 1) / time.Minute)
	if mins < 1 {
		mins = 1
	}
	return mins
}

type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "validation failed"
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, e.Fields[k]))
	}
	return "validation failed: " + strings.Join(parts, ", ")
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

func NewValidationError(fields map[string]string) error {
	return &ValidationError{Fields: fields}
}
