package auth

import (
	"net/http"
	"time"
)

const (
	AccessCookieName  = "accessToken"
	RefreshCookieName = "refreshToken"
)

// CookieWriter sets and clears the auth cookie pair. In production the SPA is
// served from another origin, so cookies must be Secure with SameSite=None;
// local development runs over plain HTTP where that combination is rejected
// by browsers, hence Strict and not secure.
type CookieWriter struct {
	IsProd     bool
	RefreshTTL time.Duration
}

func (c CookieWriter) sameSite() http.SameSite {
	if c.IsProd {
		return http.SameSiteNoneMode
	}
	return http.SameSiteStrictMode
}

func (c CookieWriter) SetAuthCookies(w http.ResponseWriter, accessToken, refreshToken string) {
	http.SetCookie(w, &http.Cookie{
		Name:     AccessCookieName,
		Value:    accessToken,
		Path:     "/",
		HttpOnly: true,
		Secure:   c.IsProd,
		SameSite: c.sameSite(),
		MaxAge:   int(AccessTokenTTL.Seconds()),
	})
	http.SetCookie(w, &http.Cookie{
		Name:     RefreshCookieName,
		Value:    refreshToken,
		Path:     "/",
		HttpOnly: true,
		Secure:   c.IsProd,
		SameSite: c.sameSite(),
		MaxAge:   int(c.RefreshTTL.Seconds()),
	})
}

// SetAccessCookie refreshes only the access token cookie; the refresh token
// and its session are left untouched on the refresh path.
func (c CookieWriter) SetAccessCookie(w http.ResponseWriter, accessToken string) {
	http.SetCookie(w, &http.Cookie{
		Name:     AccessCookieName,
		Value:    accessToken,
		Path:     "/",
		HttpOnly: true,
		Secure:   c.IsProd,
		SameSite: c.sameSite(),
		MaxAge:   int(AccessTokenTTL.Seconds()),
	})
}

func (c CookieWriter) ClearAuthCookies(w http.ResponseWriter) {
	for _, name := range []string{AccessCookieName, RefreshCookieName} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			HttpOnly: true,
			Secure:   c.IsProd,
			SameSite: c.sameSite(),
			MaxAge:   -1,
			Expires:  time.Unix(0, 0),
		})
	}
}
