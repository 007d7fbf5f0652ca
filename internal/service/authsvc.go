package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"forkfast/internal/auth"
	"forkfast/internal/domain"
)

type UsersStore interface {
	CreateUser(ctx context.Context, name, email, passwordHash, verifyOTPHash string, verifyOTPExpireAt time.Time) (domain.User, error)
	GetUserByID(ctx context.Context, id string) (domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (domain.UserWithSecrets, error)
	GetUserSecretsByID(ctx context.Context, id string) (domain.UserWithSecrets, error)
	SetVerifyOTP(ctx context.Context, userID, otpHash string, expiresAt time.Time) error
	UpdateVerifyOTPState(ctx context.Context, userID string, attempts int, clear bool) error
	MarkAccountVerified(ctx context.Context, userID string) error
	SetResetOTP(ctx context.Context, userID, otpHash string, expiresAt time.Time) error
	UpdateResetOTPState(ctx context.Context, userID string, attempts int, clear bool) error
	SetPassword(ctx context.Context, userID, passwordHash string, history []string) error
	RecordLoginFailure(ctx context.Context, userID string, maxAttempts int, lockUntil time.Time) (bool, error)
	ResetLoginState(ctx context.Context, userID string) error
}

type SessionsStore interface {
	CreateSession(ctx context.Context, userID string, expiresAt time.Time, ip, userAgent string) (string, error)
	GetSession(ctx context.Context, sessionID string) (domain.Session, error)
	RevokeSession(ctx context.Context, sessionID, reason string, when time.Time) error
	RevokeUserSessions(ctx context.Context, userID, reason string, when time.Time) (int64, error)
}

const (
	revokeReasonLogout    = "User logout"
	revokeReasonLogoutAll = "Logout from all devices"

	queryTimeout = 5 * time.Second
)

type AuthService struct {
	Users    UsersStore
	Sessions SessionsStore
	Tokens   *auth.TokenIssuer
	Mailer   Mailer
	Logger   *slog.Logger

	RefreshTTL       time.Duration
	MaxLoginAttempts int
	AccountLockTime  time.Duration
	MaxOTPAttempts   int
	MailTimeout      time.Duration

	Now func() time.Time
}

func (s *AuthService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *AuthService) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}

func (s *AuthService) maxOTPAttempts() int {
	if s.MaxOTPAttempts > 0 {
		return s.MaxOTPAttempts
	}
	return auth.MaxOTPAttempts
}

func (s *AuthService) queryCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, queryTimeout)
}

// Register creates an unverified account with a hashed registration OTP.
// The user id is returned as soon as the record is durable; the OTP email is
// dispatched in the background and its failure never fails registration.
func (s *AuthService) Register(ctx context.Context, name, email, password string) (string, error) {
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(strings.ToLower(email))

	fields := map[string]string{}
	if name == "" {
		fields["name"] = "required"
	}
	if email == "" {
		fields["email"] = "required"
	}
	if password == "" {
		fields["password"] = "required"
	}
	if len(fields) > 0 {
		return "", domain.NewValidationError(fields)
	}

	passwordHash, err := auth.HashPassword(password)
	if err != nil {
		return "", err
	}

	otp, err := auth.IssueOTP(auth.OTPRegister, s.now())
	if err != nil {
		return "", err
	}

	ctx, cancel := s.queryCtx(ctx)
	defer cancel()

	u, err := s.Users.CreateUser(ctx, name, email, passwordHash, otp.Hash, otp.ExpiresAt)
	if err != nil {
		return "", err
	}

	sendInBackground(s.logger(), s.Mailer, s.MailTimeout, email,
		"Welcome to ForkFast",
		fmt.Sprintf("Your OTP is %s. It expires 15 minutes later", otp.Code),
	)

	return u.ID, nil
}

// LoginResult carries everything the HTTP layer needs to set auth cookies.
type LoginResult struct {
	UserID       string
	SessionID    string
	AccessToken  string
	RefreshToken string
}

func (s *AuthService) Login(ctx context.Context, email, password, ip, userAgent string) (LoginResult, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	now := s.now()

	ctx, cancel := s.queryCtx(ctx)
	defer cancel()

	u, err := s.Users.GetUserByEmail(ctx, email)
	if err != nil {
		return LoginResult{}, err
	}

	if !u.IsAccountVerified {
		return LoginResult{}, domain.ErrAccountUnverified
	}

	// The lock is checked before the password: a correct password does not
	// cut an in-effect lock short.
	if u.Locked(now) {
		return LoginResult{}, &domain.LockedError{RetryAfter: u.LockUntil.Sub(now)}
	}

	ok, err := auth.VerifyPassword(u.PasswordHash, password)
	if err != nil {
		return LoginResult{}, err
	}
	if !ok {
		locked, ferr := s.Users.RecordLoginFailure(ctx, u.ID, s.MaxLoginAttempts, now.Add(s.AccountLockTime))
		if ferr != nil {
			s.logger().Error("record login failure", "user_id", u.ID, "err", ferr)
		} else if locked {
			s.logger().Warn("account locked after repeated failures", "user_id", u.ID)
		}
		return LoginResult{}, domain.ErrInvalidCredentials
	}

	if err := s.Users.ResetLoginState(ctx, u.ID); err != nil {
		return LoginResult{}, err
	}

	sessID, err := s.Sessions.CreateSession(ctx, u.ID, now.Add(s.RefreshTTL), ip, userAgent)
	if err != nil {
		return LoginResult{}, err
	}

	accessToken, err := s.Tokens.IssueAccessToken(u.ID)
	if err != nil {
		return LoginResult{}, err
	}
	refreshToken, err := s.Tokens.IssueRefreshToken(sessID)
	if err != nil {
		return LoginResult{}, err
	}

	return LoginResult{
		UserID:       u.ID,
		SessionID:    sessID,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}

// Logout revokes the session named by the refresh token, if it decodes to
// one. A malformed, expired or missing token is an acceptable no-op: logout
// is idempotent and never fails.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) {
	if refreshToken == "" {
		return
	}

	sessID, err := s.Tokens.VerifyRefreshToken(refreshToken)
	if err != nil {
		return
	}

	ctx, cancel := s.queryCtx(ctx)
	defer cancel()

	if err := s.Sessions.RevokeSession(ctx, sessID, revokeReasonLogout, s.now()); err != nil {
		s.logger().Error("revoke session on logout", "session_id", sessID, "err", err)
	}
}

// LogoutAll revokes every live session of an authenticated user.
func (s *AuthService) LogoutAll(ctx context.Context, userID string) (int64, error) {
	ctx, cancel := s.queryCtx(ctx)
	defer cancel()

	return s.Sessions.RevokeUserSessions(ctx, userID, revokeReasonLogoutAll, s.now())
}

// Refresh exchanges a refresh token for a new access token. The session is
// the root of trust: a revoked or expired session rejects the token no matter
// how long its signature is still valid. The refresh token and session are
// deliberately left unrotated so concurrent tabs and devices stay alive.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (string, error) {
	sessID, err := s.Tokens.VerifyRefreshToken(refreshToken)
	if err != nil {
		return "", domain.ErrUnauthorized
	}

	ctx, cancel := s.queryCtx(ctx)
	defer cancel()

	sess, err := s.Sessions.GetSession(ctx, sessID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return "", domain.ErrUnauthorized
		}
		return "", err
	}
	if sess.Revoked || sess.ExpiresAt.Before(s.now()) {
		return "", domain.ErrUnauthorized
	}

	u, err := s.Users.GetUserByID(ctx, sess.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return "", domain.ErrUnauthorized
		}
		return "", err
	}

	return s.Tokens.IssueAccessToken(u.ID)
}

// SendVerifyOTP issues a fresh verification code and delivers it
// synchronously: the caller is waiting for this email and has no other
// recovery path, so a delivery failure must surface.
func (s *AuthService) SendVerifyOTP(ctx context.Context, userID string) error {
	qctx, cancel := s.queryCtx(ctx)
	defer cancel()

	u, err := s.Users.GetUserSecretsByID(qctx, userID)
	if err != nil {
		return err
	}
	if u.IsAccountVerified {
		return domain.ErrAlreadyVerified
	}

	otp, err := auth.IssueOTP(auth.OTPResendVerify, s.now())
	if err != nil {
		return err
	}
	if err := s.Users.SetVerifyOTP(qctx, u.ID, otp.Hash, otp.ExpiresAt); err != nil {
		return err
	}

	timeout := s.MailTimeout
	if timeout <= 0 {
		timeout = defaultMailTimeout
	}
	mctx, mcancel := context.WithTimeout(ctx, timeout)
	defer mcancel()

	messageID, err := s.Mailer.Send(mctx, u.Email, "Account Verification OTP",
		fmt.Sprintf("Your verification OTP is %s. It expires in 24 hours.", otp.Code))
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrDelivery, err)
	}
	s.logger().Info("verification email sent", "user_id", u.ID, "message_id", messageID)
	return nil
}

// VerifyEmail checks the submitted code against the stored verification OTP
// state and flips the account to verified on success.
func (s *AuthService) VerifyEmail(ctx context.Context, userID, otp string) error {
	if userID == "" || otp == "" {
		return domain.NewValidationError(map[string]string{"userId": "required", "otp": "required"})
	}

	ctx, cancel := s.queryCtx(ctx)
	defer cancel()

	u, err := s.Users.GetUserSecretsByID(ctx, userID)
	if err != nil {
		return err
	}

	result, err := auth.VerifyOTP(otp, u.VerifyOTPHash, u.VerifyOTPExpireAt, u.VerifyOTPAttempts, s.maxOTPAttempts(), s.now())
	if err != nil {
		return err
	}

	switch result {
	case auth.OTPAttemptsExceeded:
		return domain.ErrOTPAttemptsExceeded
	case auth.OTPInvalid, auth.OTPExpired:
		attempts := u.VerifyOTPAttempts + 1
		clear := attempts >= s.maxOTPAttempts()
		if perr := s.Users.UpdateVerifyOTPState(ctx, u.ID, attempts, clear); perr != nil {
			return perr
		}
		if result == auth.OTPExpired {
			return domain.ErrOTPExpired
		}
		return domain.ErrOTPInvalid
	}

	return s.Users.MarkAccountVerified(ctx, u.ID)
}

// SendResetOTP issues a password-reset code for an existing account. The
// email goes out in the background; the response does not wait for SMTP.
// An unknown email is a NotFound, mirroring the product's decision to leak
// account existence on this endpoint.
func (s *AuthService) SendResetOTP(ctx context.Context, email string) error {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" {
		return domain.NewValidationError(map[string]string{"email": "required"})
	}

	ctx, cancel := s.queryCtx(ctx)
	defer cancel()

	u, err := s.Users.GetUserByEmail(ctx, email)
	if err != nil {
		return err
	}

	otp, err := auth.IssueOTP(auth.OTPReset, s.now())
	if err != nil {
		return err
	}
	if err := s.Users.SetResetOTP(ctx, u.ID, otp.Hash, otp.ExpiresAt); err != nil {
		return err
	}

	sendInBackground(s.logger(), s.Mailer, s.MailTimeout, u.Email,
		"Password Reset OTP",
		fmt.Sprintf("Your password reset OTP is %s. It expires in 15 minutes.", otp.Code),
	)

	return nil
}

// ResetPassword consumes a valid reset OTP and replaces the password,
// refusing any password matching the current hash or the recent history.
func (s *AuthService) ResetPassword(ctx context.Context, email, otp, newPassword string) error {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || otp == "" || newPassword == "" {
		return domain.NewValidationError(map[string]string{"email": "required", "otp": "required", "newPassword": "required"})
	}

	ctx, cancel := s.queryCtx(ctx)
	defer cancel()

	u, err := s.Users.GetUserByEmail(ctx, email)
	if err != nil {
		return err
	}

	result, err := auth.VerifyOTP(otp, u.ResetOTPHash, u.ResetOTPExpireAt, u.ResetOTPAttempts, s.maxOTPAttempts(), s.now())
	if err != nil {
		return err
	}

	switch result {
	case auth.OTPAttemptsExceeded:
		return domain.ErrOTPAttemptsExceeded
	case auth.OTPInvalid, auth.OTPExpired:
		attempts := u.ResetOTPAttempts + 1
		clear := attempts >= s.maxOTPAttempts()
		if perr := s.Users.UpdateResetOTPState(ctx, u.ID, attempts, clear); perr != nil {
			return perr
		}
		if result == auth.OTPExpired {
			return domain.ErrOTPExpired
		}
		return domain.ErrOTPInvalid
	}

	for _, oldHash := range append([]string{u.PasswordHash}, u.PasswordHistory...) {
		reused, verr := auth.VerifyPassword(oldHash, newPassword)
		if verr != nil {
			return verr
		}
		if reused {
			return domain.ErrPasswordReuse
		}
	}

	newHash, err := auth.HashPassword(newPassword)
	if err != nil {
		return err
	}

	history := append([]string{newHash}, u.PasswordHistory...)
	if len(history) > domain.PasswordHistoryLimit {
		history = history[:domain.PasswordHistoryLimit]
	}

	return s.Users.SetPassword(ctx, u.ID, newHash, history)
}

// GetUser exposes the public user record for the authenticated surfaces
// (role lookups, admin checks).
func (s *AuthService) GetUser(ctx context.Context, userID string) (domain.User, error) {
	ctx, cancel := s.queryCtx(ctx)
	defer cancel()

	return s.Users.GetUserByID(ctx, userID)
}
