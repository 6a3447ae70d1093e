package middleware

import (
	"context"

	jwtutil "fota-manager/backend/app/jwt"
	"fota-manager/backend/app/services"
)

func GetClaims(ctx context.Context) *jwtutil.Claims {
	if v := ctx.Value(ClaimsKey); v != nil {
		if c, ok := v.(*jwtutil.Claims); ok {
			return c
		}
	}
	return nil
}

func GetSession(ctx context.Context) *services.Session {
	if v := ctx.Value(SessionKey); v != nil {
		if s, ok := v.(*services.Session); ok {
			return s
		}
	}
	return nil
}
