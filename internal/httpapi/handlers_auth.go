package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"forkfast/internal/auth"
	"forkfast/internal/domain"
)

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (a *api) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteMessage(w, http.StatusBadRequest, false, "Invalid request body")
		return
	}

	userID, err := a.authSvc.Register(r.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		WriteDomainError(w, err)
		return
	}

	WritePayload(w, http.StatusCreated,
		"Account created successfully. Please check your email for verification OTP.",
		map[string]any{"userId": userID})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (a *api) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteMessage(w, http.StatusBadRequest, false, "Invalid request body")
		return
	}

	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" || req.Password == "" {
		WriteDomainError(w, domain.NewValidationError(map[string]string{"email": "required", "password": "required"}))
		return
	}

	ip := clientIP(r)
	if a.loginLimiter != nil {
		allowedIP, err := a.loginLimiter.Allow(r.Context(), "ip:"+ip)
		if err != nil {
			a.logger.Error("login limiter", "err", err)
		}
		allowedEmail, err := a.loginLimiter.Allow(r.Context(), "email:"+strings.ToLower(req.Email))
		if err != nil {
			a.logger.Error("login limiter", "err", err)
		}
		if !allowedIP || !allowedEmail {
			WriteMessage(w, http.StatusTooManyRequests, false, "Too many login attempts. Please try again later.")
			return
		}
	}

	res, err := a.authSvc.Login(r.Context(), req.Email, req.Password, ip, r.UserAgent())
	if err != nil {
		WriteDomainError(w, err)
		return
	}

	a.cookies.SetAuthCookies(w, res.AccessToken, res.RefreshToken)
	WritePayload(w, http.StatusOK, "Logged in successfully", map[string]any{"userId": res.UserID})
}

func (a *api) handleLogout(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(auth.RefreshCookieName); err == nil {
		a.authSvc.Logout(r.Context(), c.Value)
	}
	a.cookies.ClearAuthCookies(w)
	WriteMessage(w, http.StatusOK, true, "Logged Out")
}

func (a *api) handleLogoutAll(w http.ResponseWriter, r *http.Request) {
	userID, _ := CurrentUserID(r.Context())
	if _, err := a.authSvc.LogoutAll(r.Context(), userID); err != nil {
		WriteDomainError(w, err)
		return
	}
	a.cookies.ClearAuthCookies(w)
	WriteMessage(w, http.StatusOK, true, "Logged out from all devices.")
}

func (a *api) handleRefresh(w http.ResponseWriter, r *http.Request) {
	c, err := r.Cookie(auth.RefreshCookieName)
	if err != nil || c.Value == "" {
		a.cookies.ClearAuthCookies(w)
		WriteDomainError(w, domain.ErrUnauthorized)
		return
	}

	accessToken, err := a.authSvc.Refresh(r.Context(), c.Value)
	if err != nil {
		// A rejected refresh token takes the cookie pair with it. Internal
		// errors keep the cookies so the client can retry.
		if errors.Is(err, domain.ErrUnauthorized) {
			a.cookies.ClearAuthCookies(w)
		}
		WriteDomainError(w, err)
		return
	}

	a.cookies.SetAccessCookie(w, accessToken)
	WriteMessage(w, http.StatusOK, true, "Access token refreshed.")
}

type sendVerifyOTPRequest struct {
	UserID string `json:"userId"`
}

func (a *api) handleSendVerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req sendVerifyOTPRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteMessage(w, http.StatusBadRequest, false, "Invalid request body")
		return
	}
	if req.UserID == "" {
		WriteDomainError(w, domain.NewValidationError(map[string]string{"userId": "required"}))
		return
	}

	if err := a.authSvc.SendVerifyOTP(r.Context(), req.UserID); err != nil {
		WriteDomainError(w, err)
		return
	}

	WriteMessage(w, http.StatusOK, true, "OTP sent to your email")
}

type verifyAccountRequest struct {
	UserID string `json:"userId"`
	OTP    string `json:"otp"`
}

func (a *api) handleVerifyAccount(w http.ResponseWriter, r *http.Request) {
	var req verifyAccountRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteMessage(w, http.StatusBadRequest, false, "Invalid request body")
		return
	}

	if err := a.authSvc.VerifyEmail(r.Context(), req.UserID, req.OTP); err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			WriteMessage(w, http.StatusOK, false, "User not found")
		case errors.Is(err, domain.ErrOTPAttemptsExceeded):
			WriteMessage(w, http.StatusOK, false,
				"Too many invalid OTP attempts. Please request a new verification code.")
		default:
			WriteDomainError(w, err)
		}
		return
	}

	WriteMessage(w, http.StatusOK, true, "Email verified successfully")
}

type sendResetOTPRequest struct {
	Email string `json:"email"`
}

func (a *api) handleSendResetOTP(w http.ResponseWriter, r *http.Request) {
	var req sendResetOTPRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteMessage(w, http.StatusBadRequest, false, "Invalid request body")
		return
	}

	if err := a.authSvc.SendResetOTP(r.Context(), req.Email); err != nil {
		WriteDomainError(w, err)
		return
	}

	WriteMessage(w, http.StatusOK, true, "OTP sent to your email")
}

type resetPasswordRequest struct {
	Email       string `json:"email"`
	OTP         string `json:"otp"`
	NewPassword string `json:"newPassword"`
}

func (a *api) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteMessage(w, http.StatusBadRequest, false, "Invalid request body")
		return
	}

	if err := a.authSvc.ResetPassword(r.Context(), req.Email, req.OTP, req.NewPassword); err != nil {
		if errors.Is(err, domain.ErrOTPAttemptsExceeded) {
			WriteMessage(w, http.StatusOK, false,
				"Too many invalid OTP attempts. Please request a new reset code.")
			return
		}
		WriteDomainError(w, err)
		return
	}

	WriteMessage(w, http.StatusOK, true, "Password has been reset successfully")
}

func (a *api) handleFetchRole(w http.ResponseWriter, r *http.Request) {
	userID, _ := CurrentUserID(r.Context())
	u, err := a.authSvc.GetUser(r.Context(), userID)
	if err != nil {
		WriteDomainError(w, err)
		return
	}

	role := "user"
	if u.IsAdmin {
		role = "admin"
	}
	WritePayload(w, http.StatusOK, "", map[string]any{"role": role})
}
