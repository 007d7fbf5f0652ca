package httpapi

import (
	"context"
	"net"
	"net/http"
	"strings"

	"forkfast/internal/auth"
	"forkfast/internal/domain"
)

type authCtxKey int

const authUserIDKey authCtxKey = iota

// requireAuth accepts the access token as either an Authorization bearer
// header or the accessToken cookie, and puts the verified user id on the
// request context.
func (a *api) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			if c, err := r.Cookie(auth.AccessCookieName); err == nil {
				token = c.Value
			}
		}
		if token == "" {
			WriteDomainError(w, domain.ErrUnauthorized)
			return
		}

		userID, err := a.tokens.VerifyAccessToken(token)
		if err != nil {
			WriteDomainError(w, domain.ErrUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), authUserIDKey, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	}
}

// requireAdmin loads the user behind the token and rejects non-admins.
func (a *api) requireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return a.requireAuth(func(w http.ResponseWriter, r *http.Request) {
		userID, _ := CurrentUserID(r.Context())
		u, err := a.authSvc.GetUser(r.Context(), userID)
		if err != nil {
			WriteDomainError(w, err)
			return
		}
		if !u.IsAdmin {
			WriteDomainError(w, domain.ErrForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func CurrentUserID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(authUserIDKey).(string)
	return id, ok
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if h == "" {
		return ""
	}
	scheme, token, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		ip := strings.TrimSpace(strings.Split(xff, ",")[0])
		if ip != "" {
			return ip
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil && host != "" {
		return host
	}
	return r.RemoteAddr
}
