package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrTokenInvalid covers malformed tokens and bad signatures.
	ErrTokenInvalid = errors.New("token invalid")
	// ErrTokenExpired is a well-formed, correctly signed token past its exp.
	// Callers treat this differently: an expired refresh token means
	// re-login, a malformed one is always a hard failure.
	ErrTokenExpired = errors.New("token expired")
)

const AccessTokenTTL = 15 * time.Minute

// TokenIssuer mints and verifies the two token kinds. Access and refresh
// secrets must differ so a compromise of one does not compromise the other.
type TokenIssuer struct {
	AccessSecret  []byte
	RefreshSecret []byte
	RefreshTTL    time.Duration
	Now           func() time.Time
}

func (t *TokenIssuer) now() time.Time {
	if t.Now != nil {
		return t.Now()
	}
	return time.Now()
}

// IssueAccessToken signs a short-lived token with subject = user id.
func (t *TokenIssuer) IssueAccessToken(userID string) (string, error) {
	return t.sign(userID, AccessTokenTTL, t.AccessSecret)
}

// IssueRefreshToken signs a long-lived token with subject = session id.
func (t *TokenIssuer) IssueRefreshToken(sessionID string) (string, error) {
	return t.sign(sessionID, t.RefreshTTL, t.RefreshSecret)
}

func (t *TokenIssuer) sign(subject string, ttl time.Duration, secret []byte) (string, error) {
	now := t.now()
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// VerifyAccessToken returns the user id carried by a valid access token.
func (t *TokenIssuer) VerifyAccessToken(token string) (string, error) {
	return t.verify(token, t.AccessSecret)
}

// VerifyRefreshToken returns the session id carried by a valid refresh token.
func (t *TokenIssuer) VerifyRefreshToken(token string) (string, error) {
	return t.verify(token, t.RefreshSecret)
}

func (t *TokenIssuer) verify(token string, secret []byte) (string, error) {
	parsed, err := jwt.ParseWithClaims(token, &jwt.RegisteredClaims{}, func(tok *jwt.Token) (any, error) {
		if _, ok := tok.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", tok.Method.Alg())
		}
		return secret, nil
	}, jwt.WithTimeFunc(t.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrTokenExpired
		}
		return "", ErrTokenInvalid
	}

	claims, ok := parsed.Claims.(*jwt.RegisteredClaims)
	if !ok || claims.Subject == "" {
		return "", ErrTokenInvalid
	}
	return claims.Subject, nil
}
