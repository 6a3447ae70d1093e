package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	jwtutil "fota-manager/backend/app/jwt"
	"fota-manager/backend/app/services"
)

type ctxKey int

const (
	ClaimsKey ctxKey = iota + 1
	SessionKey
)

type Auth struct {
	Signer   *jwtutil.Signer
	Sessions *services.SessionService
}

func (a *Auth) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, ok := a.authenticate(w, r)
		if !ok {
			return
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (a *Auth) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, ok := a.authenticate(w, r)
		if !ok {
			return
		}
		if sess := GetSession(ctx); sess == nil || !sess.IsAdmin {
			deny(w, http.StatusForbidden, "admin privileges required")
			return
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// authenticate resolves the bearer token to a live session.
func (a *Auth) authenticate(w http.ResponseWriter, r *http.Request) (context.Context, bool) {
	authz := r.Header.Get("Authorization")
	if !strings.HasPrefix(authz, "Bearer ") {
		deny(w, http.StatusUnauthorized, "missing bearer token")
		return nil, false
	}
	token := strings.TrimPrefix(authz, "Bearer ")
	claims, err := a.Signer.Parse(token)
	if err != nil {
		deny(w, http.StatusUnauthorized, "invalid token")
		return nil, false
	}
	sess, err := a.Sessions.Get(r.Context(), claims.SessionID)
	if err != nil || sess.UserID != claims.UserID {
		deny(w, http.StatusUnauthorized, "session expired")
		return nil, false
	}
	ctx := context.WithValue(r.Context(), ClaimsKey, claims)
	ctx = context.WithValue(ctx, SessionKey, sess)
	return ctx, true
}

func deny(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
