package auth

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"
)

// OTPPurpose selects the expiry window for an issued code.
type OTPPurpose int

const (
	// OTPRegister is the verification code created during registration.
	OTPRegister OTPPurpose = iota
	// OTPResendVerify is a re-requested verification code; it gets a long
	// window so a user coming back the next day can still verify.
	OTPResendVerify
	// OTPReset is a password-reset code.
	OTPReset
)

const (
	registerOTPTTL = 15 * time.Minute
	verifyOTPTTL   = 24 * time.Hour
	resetOTPTTL    = 15 * time.Minute

	// MaxOTPAttempts is the brute-force budget per issued code.
	MaxOTPAttempts = 5
)

// OTPResult is the outcome of checking a submitted code.
type OTPResult int

const (
	OTPValid OTPResult = iota
	OTPInvalid
	OTPExpired
	OTPAttemptsExceeded
)

// IssuedOTP carries the cleartext code (for the email) and the hash that is
// persisted in its place.
type IssuedOTP struct {
	Code      string
	Hash      string
	ExpiresAt time.Time
}

// IssueOTP generates a uniformly random 6-digit code and returns it together
// with its bcrypt hash and expiry. Callers must reset the attempts counter to
// zero when storing a freshly issued code.
func IssueOTP(purpose OTPPurpose, now time.Time) (IssuedOTP, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return IssuedOTP{}, fmt.Errorf("generate otp: %w", err)
	}
	code := fmt.Sprintf("%06d", n.Int64()+100000)

	hash, err := HashPassword(code)
	if err != nil {
		return IssuedOTP{}, fmt.Errorf("hash otp: %w", err)
	}

	var ttl time.Duration
	switch purpose {
	case OTPResendVerify:
		ttl = verifyOTPTTL
	case OTPReset:
		ttl = resetOTPTTL
	default:
		ttl = registerOTPTTL
	}

	return IssuedOTP{Code: code, Hash: hash, ExpiresAt: now.Add(ttl)}, nil
}

// VerifyOTP checks a submitted code against the stored hash within the expiry
// and attempt budget.
//
// If the budget is already spent the code is not compared at all, so even the
// correct code keeps failing until a new one is issued. A matching but expired
// code still counts against the budget; that keeps expired codes from being a
// free enumeration window. On OTPInvalid or OTPExpired the caller must
// increment the stored attempts and, once the count reaches maxAttempts, clear
// the stored hash and expiry. On OTPValid the caller clears hash, expiry and
// attempts.
func VerifyOTP(submitted, storedHash string, storedExpiry time.Time, attemptsSoFar, maxAttempts int, now time.Time) (OTPResult, error) {
	if attemptsSoFar >= maxAttempts {
		return OTPAttemptsExceeded, nil
	}
	if storedHash == "" {
		return OTPInvalid, nil
	}

	ok, err := VerifyPassword(storedHash, submitted)
	if err != nil {
		return OTPInvalid, err
	}
	if !ok {
		return OTPInvalid, nil
	}
	if storedExpiry.Before(now) {
		return OTPExpired, nil
	}
	return OTPValid, nil
}
