package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"forkfast/internal/auth"
	"forkfast/internal/domain"
	"forkfast/internal/service"
)

// memUsers is a map-backed stand-in for the SQL users store, enough to run
// the auth flows end to end through the router.
type memUsers struct {
	mu      sync.Mutex
	seq     int
	byID    map[string]*domain.UserWithSecrets
	byEmail map[string]string
}

func newMemUsers() *memUsers {
	return &memUsers{byID: map[string]*domain.UserWithSecrets{}, byEmail: map[string]string{}}
}

func (m *memUsers) CreateUser(_ context.Context, name, email, passwordHash, verifyOTPHash string, verifyOTPExpireAt time.Time) (domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byEmail[email]; ok {
		return domain.User{}, domain.ErrEmailTaken
	}
	m.seq++
	u := &domain.UserWithSecrets{
		User:              domain.User{ID: fmt.Sprintf("u%d", m.seq), Name: name, Email: email},
		PasswordHash:      passwordHash,
		PasswordHistory:   []string{passwordHash},
		VerifyOTPHash:     verifyOTPHash,
		VerifyOTPExpireAt: verifyOTPExpireAt,
	}
	m.byID[u.ID] = u
	m.byEmail[email] = u.ID
	return u.User, nil
}

func (m *memUsers) get(id string) (*domain.UserWithSecrets, error) {
	u, ok := m.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return u, nil
}

func (m *memUsers) GetUserByID(_ context.Context, id string) (domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, err := m.get(id)
	if err != nil {
		return domain.User{}, err
	}
	return u.User, nil
}

func (m *memUsers) GetUserByEmail(_ context.Context, email string) (domain.UserWithSecrets, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.byEmail[email]
	if !ok {
		return domain.UserWithSecrets{}, domain.ErrNotFound
	}
	return *m.byID[id], nil
}

func (m *memUsers) GetUserSecretsByID(_ context.Context, id string) (domain.UserWithSecrets, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, err := m.get(id)
	if err != nil {
		return domain.UserWithSecrets{}, err
	}
	return *u, nil
}

func (m *memUsers) SetVerifyOTP(_ context.Context, userID, otpHash string, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, err := m.get(userID)
	if err != nil {
		return err
	}
	u.VerifyOTPHash = otpHash
	u.VerifyOTPExpireAt = expiresAt
	u.VerifyOTPAttempts = 0
	return nil
}

func (m *memUsers) UpdateVerifyOTPState(_ context.Context, userID string, attempts int, clear bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, err := m.get(userID)
	if err != nil {
		return err
	}
	u.VerifyOTPAttempts = attempts
	if clear {
		u.VerifyOTPHash = ""
		u.VerifyOTPExpireAt = time.Time{}
	}
	return nil
}

func (m *memUsers) MarkAccountVerified(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, err := m.get(userID)
	if err != nil {
		return err
	}
	u.IsAccountVerified = true
	u.VerifyOTPHash = ""
	u.VerifyOTPAttempts = 0
	return nil
}

func (m *memUsers) SetResetOTP(_ context.Context, userID, otpHash string, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, err := m.get(userID)
	if err != nil {
		return err
	}
	u.ResetOTPHash = otpHash
	u.ResetOTPExpireAt = expiresAt
	u.ResetOTPAttempts = 0
	return nil
}

func (m *memUsers) UpdateResetOTPState(_ context.Context, userID string, attempts int, clear bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, err := m.get(userID)
	if err != nil {
		return err
	}
	u.ResetOTPAttempts = attempts
	if clear {
		u.ResetOTPHash = ""
		u.ResetOTPExpireAt = time.Time{}
	}
	return nil
}

func (m *memUsers) SetPassword(_ context.Context, userID, passwordHash string, history []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, err := m.get(userID)
	if err != nil {
		return err
	}
	u.PasswordHash = passwordHash
	u.PasswordHistory = history
	u.ResetOTPHash = ""
	u.ResetOTPAttempts = 0
	return nil
}

func (m *memUsers) RecordLoginFailure(_ context.Context, userID string, maxAttempts int, lockUntil time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, err := m.get(userID)
	if err != nil {
		return false, err
	}
	u.FailedLoginAttempts++
	if u.FailedLoginAttempts >= maxAttempts {
		u.FailedLoginAttempts = 0
		u.LockUntil = lockUntil
		return true, nil
	}
	return false, nil
}

func (m *memUsers) ResetLoginState(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, err := m.get(userID)
	if err != nil {
		return err
	}
	u.FailedLoginAttempts = 0
	u.LockUntil = time.Time{}
	return nil
}

type memSessions struct {
	mu   sync.Mutex
	seq  int
	byID map[string]*domain.Session
}

func newMemSessions() *memSessions {
	return &memSessions{byID: map[string]*domain.Session{}}
}

func (m *memSessions) CreateSession(_ context.Context, userID string, expiresAt time.Time, ip, userAgent string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	s := &domain.Session{
		ID:        fmt.Sprintf("s%d", m.seq),
		UserID:    userID,
		IP:        ip,
		UserAgent: userAgent,
		ExpiresAt: expiresAt,
	}
	m.byID[s.ID] = s
	return s.ID, nil
}

func (m *memSessions) GetSession(_ context.Context, sessionID string) (domain.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.byID[sessionID]
	if !ok {
		return domain.Session{}, domain.ErrNotFound
	}
	return *s, nil
}

func (m *memSessions) RevokeSession(_ context.Context, sessionID, reason string, when time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.byID[sessionID]; ok && !s.Revoked {
		s.Revoked = true
		s.RevokedAt = &when
		s.RevokedReason = reason
	}
	return nil
}

func (m *memSessions) RevokeUserSessions(_ context.Context, userID, reason string, when time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, s := range m.byID {
		if s.UserID == userID && !s.Revoked {
			s.Revoked = true
			s.RevokedAt = &when
			s.RevokedReason = reason
			n++
		}
	}
	return n, nil
}

// captureMailer hands each sent body to the test over a channel so the
// background register email can be awaited.
type captureMailer struct {
	bodies chan string
}

func (m *captureMailer) Send(_ context.Context, _, _, body string) (string, error) {
	m.bodies <- body
	return "msg-1", nil
}

func (m *captureMailer) await(t *testing.T) string {
	t.Helper()
	select {
	case body := <-m.bodies:
		return body
	case <-time.After(2 * time.Second):
		t.Fatal("no email arrived")
		return ""
	}
}

var otpPattern = regexp.MustCompile(`\b(\d{6})\b`)

func extractOTP(t *testing.T, body string) string {
	t.Helper()
	match := otpPattern.FindString(body)
	if match == "" {
		t.Fatalf("no OTP in email body %q", body)
	}
	return match
}

type testEnv struct {
	users    *memUsers
	sessions *memSessions
	mailer   *captureMailer
	authSvc  *service.AuthService
	handler  http.Handler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	tokens := &auth.TokenIssuer{
		AccessSecret:  []byte("access-secret-for-tests-0123456789ab"),
		RefreshSecret: []byte("refresh-secret-for-tests-0123456789a"),
		RefreshTTL:    7 * 24 * time.Hour,
	}

	env := &testEnv{
		users:    newMemUsers(),
		sessions: newMemSessions(),
		mailer:   &captureMailer{bodies: make(chan string, 8)},
	}
	env.authSvc = &service.AuthService{
		Users:            env.users,
		Sessions:         env.sessions,
		Tokens:           tokens,
		Mailer:           env.mailer,
		Logger:           logger,
		RefreshTTL:       7 * 24 * time.Hour,
		MaxLoginAttempts: 5,
		AccountLockTime:  15 * time.Minute,
		MaxOTPAttempts:   5,
		MailTimeout:      time.Second,
	}
	env.handler = NewRouter(RouterOpts{
		Logger:  logger,
		Auth:    env.authSvc,
		Tokens:  tokens,
		Cookies: auth.CookieWriter{RefreshTTL: 7 * 24 * time.Hour},
	})
	return env
}

func (e *testEnv) post(t *testing.T, path, body string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return body
}

func cookieByName(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestRegisterVerifyLoginFlow(t *testing.T) {
	env := newTestEnv(t)

	rec := env.post(t, "/auth/register", `{"name":"Al","email":"al@x.com","password":"Passw0rd"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("register status %d: %s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	userID, _ := body["userId"].(string)
	if userID == "" {
		t.Fatalf("no userId in %v", body)
	}
	otp := extractOTP(t, env.mailer.await(t))

	// Login before verification is forbidden.
	rec = env.post(t, "/auth/login", `{"email":"al@x.com","password":"Passw0rd"}`)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("unverified login status %d", rec.Code)
	}

	rec = env.post(t, "/auth/verify-account", fmt.Sprintf(`{"userId":%q,"otp":%q}`, userID, otp))
	if rec.Code != http.StatusOK {
		t.Fatalf("verify status %d: %s", rec.Code, rec.Body.String())
	}
	if msg := decodeBody(t, rec)["message"]; msg != "Email verified successfully" {
		t.Fatalf("verify message %v", msg)
	}

	rec = env.post(t, "/auth/login", `{"email":"al@x.com","password":"Passw0rd"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("verified login status %d: %s", rec.Code, rec.Body.String())
	}
	access := cookieByName(rec, auth.AccessCookieName)
	refresh := cookieByName(rec, auth.RefreshCookieName)
	if access == nil || access.Value == "" || !access.HttpOnly {
		t.Fatalf("access cookie %+v", access)
	}
	if refresh == nil || refresh.Value == "" || !refresh.HttpOnly {
		t.Fatalf("refresh cookie %+v", refresh)
	}
}

func TestSendResetOTPUnknownEmail(t *testing.T) {
	env := newTestEnv(t)

	rec := env.post(t, "/auth/send-reset-otp", `{"email":"nobody@x.com"}`)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status %d", rec.Code)
	}
	if msg := decodeBody(t, rec)["message"]; msg != "This user doesn't exist." {
		t.Fatalf("message %v", msg)
	}
}

func registerVerified(t *testing.T, env *testEnv, email, password string) string {
	t.Helper()
	rec := env.post(t, "/auth/register", fmt.Sprintf(`{"name":"T","email":%q,"password":%q}`, email, password))
	if rec.Code != http.StatusCreated {
		t.Fatalf("register status %d: %s", rec.Code, rec.Body.String())
	}
	userID := decodeBody(t, rec)["userId"].(string)
	otp := extractOTP(t, env.mailer.await(t))
	rec = env.post(t, "/auth/verify-account", fmt.Sprintf(`{"userId":%q,"otp":%q}`, userID, otp))
	if rec.Code != http.StatusOK {
		t.Fatalf("verify status %d", rec.Code)
	}
	return userID
}

func TestSendVerifyOTPAlreadyVerified(t *testing.T) {
	env := newTestEnv(t)
	userID := registerVerified(t, env, "dup@x.com", "Passw0rd!")

	rec := env.post(t, "/auth/send-verify-otp", fmt.Sprintf(`{"userId":%q}`, userID))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status %d, want 400", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["success"] != false || body["message"] != "Account already verified" {
		t.Fatalf("body %v", body)
	}
}

func TestVerifyAccountUnknownUser(t *testing.T) {
	env := newTestEnv(t)

	rec := env.post(t, "/auth/verify-account", `{"userId":"no-such-user","otp":"123456"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d, want 200", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["success"] != false || body["message"] != "User not found" {
		t.Fatalf("body %v", body)
	}
}

func TestLoginLockoutOverHTTP(t *testing.T) {
	env := newTestEnv(t)
	registerVerified(t, env, "lock@x.com", "Passw0rd!")

	for i := 0; i < 5; i++ {
		rec := env.post(t, "/auth/login", `{"email":"lock@x.com","password":"wrong"}`)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("attempt %d status %d", i+1, rec.Code)
		}
		if msg := decodeBody(t, rec)["message"]; msg != "Invalid Password" {
			t.Fatalf("attempt %d message %v", i+1, msg)
		}
	}

	rec := env.post(t, "/auth/login", `{"email":"lock@x.com","password":"Passw0rd!"}`)
	if rec.Code != http.StatusLocked {
		t.Fatalf("locked status %d: %s", rec.Code, rec.Body.String())
	}
	msg, _ := decodeBody(t, rec)["message"].(string)
	if !strings.Contains(msg, "Account is locked") || !strings.Contains(msg, "minute(s)") {
		t.Fatalf("locked message %q", msg)
	}
}

func TestRefreshAndLogoutAll(t *testing.T) {
	env := newTestEnv(t)
	registerVerified(t, env, "ref@x.com", "Passw0rd!")

	rec := env.post(t, "/auth/login", `{"email":"ref@x.com","password":"Passw0rd!"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("login status %d", rec.Code)
	}
	access := cookieByName(rec, auth.AccessCookieName)
	refresh := cookieByName(rec, auth.RefreshCookieName)

	rec = env.post(t, "/auth/refresh", "", refresh)
	if rec.Code != http.StatusOK {
		t.Fatalf("refresh status %d: %s", rec.Code, rec.Body.String())
	}
	if c := cookieByName(rec, auth.AccessCookieName); c == nil || c.Value == "" {
		t.Fatal("refresh did not set a new access cookie")
	}
	// The refresh cookie itself is never rotated on this path.
	if c := cookieByName(rec, auth.RefreshCookieName); c != nil {
		t.Fatal("refresh rotated the refresh cookie")
	}

	rec = env.post(t, "/auth/logout-all", "", access)
	if rec.Code != http.StatusOK {
		t.Fatalf("logout-all status %d: %s", rec.Code, rec.Body.String())
	}
	if msg := decodeBody(t, rec)["message"]; msg != "Logged out from all devices." {
		t.Fatalf("logout-all message %v", msg)
	}

	// The still-unexpired refresh token is dead once its session is revoked,
	// and the rejection evicts both cookies from the browser.
	rec = env.post(t, "/auth/refresh", "", refresh)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("refresh after revoke status %d", rec.Code)
	}
	for _, name := range []string{auth.AccessCookieName, auth.RefreshCookieName} {
		c := cookieByName(rec, name)
		if c == nil || c.MaxAge != -1 {
			t.Fatalf("cookie %s not cleared on failed refresh: %+v", name, c)
		}
	}
}

func TestRefreshRejectionClearsCookies(t *testing.T) {
	env := newTestEnv(t)

	// No refresh cookie at all.
	rec := env.post(t, "/auth/refresh", "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("refresh without cookie status %d", rec.Code)
	}
	for _, name := range []string{auth.AccessCookieName, auth.RefreshCookieName} {
		c := cookieByName(rec, name)
		if c == nil || c.MaxAge != -1 {
			t.Fatalf("cookie %s not cleared: %+v", name, c)
		}
	}

	// A refresh cookie that does not decode as a token.
	rec = env.post(t, "/auth/refresh", "", &http.Cookie{Name: auth.RefreshCookieName, Value: "not-a-token"})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("refresh with bad token status %d", rec.Code)
	}
	for _, name := range []string{auth.AccessCookieName, auth.RefreshCookieName} {
		c := cookieByName(rec, name)
		if c == nil || c.MaxAge != -1 {
			t.Fatalf("cookie %s not cleared: %+v", name, c)
		}
	}
}

func TestLogoutClearsCookies(t *testing.T) {
	env := newTestEnv(t)
	registerVerified(t, env, "out@x.com", "Passw0rd!")

	rec := env.post(t, "/auth/login", `{"email":"out@x.com","password":"Passw0rd!"}`)
	refresh := cookieByName(rec, auth.RefreshCookieName)

	rec = env.post(t, "/auth/logout", "", refresh)
	if rec.Code != http.StatusOK {
		t.Fatalf("logout status %d", rec.Code)
	}
	for _, name := range []string{auth.AccessCookieName, auth.RefreshCookieName} {
		c := cookieByName(rec, name)
		if c == nil || c.MaxAge != -1 {
			t.Fatalf("cookie %s not cleared: %+v", name, c)
		}
	}
}

func TestResetPasswordOverHTTP(t *testing.T) {
	env := newTestEnv(t)
	registerVerified(t, env, "rp@x.com", "OldPassw0rd")

	rec := env.post(t, "/auth/send-reset-otp", `{"email":"rp@x.com"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("send-reset-otp status %d: %s", rec.Code, rec.Body.String())
	}
	otp := extractOTP(t, env.mailer.await(t))

	// Reusing the current password is refused.
	rec = env.post(t, "/auth/reset-password",
		fmt.Sprintf(`{"email":"rp@x.com","otp":%q,"newPassword":"OldPassw0rd"}`, otp))
	body := decodeBody(t, rec)
	if body["success"] != false || !strings.Contains(body["message"].(string), "recent passwords") {
		t.Fatalf("reuse response %v", body)
	}

	rec = env.post(t, "/auth/reset-password",
		fmt.Sprintf(`{"email":"rp@x.com","otp":%q,"newPassword":"BrandNew1!"}`, otp))
	if rec.Code != http.StatusOK {
		t.Fatalf("reset status %d: %s", rec.Code, rec.Body.String())
	}
	if msg := decodeBody(t, rec)["message"]; msg != "Password has been reset successfully" {
		t.Fatalf("reset message %v", msg)
	}

	rec = env.post(t, "/auth/login", `{"email":"rp@x.com","password":"BrandNew1!"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("login with new password status %d: %s", rec.Code, rec.Body.String())
	}
}
