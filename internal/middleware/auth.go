package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/valyala/fasthttp"

	"account-service/internal/services"
	"account-service/internal/utils"
)

const principalKey = "principal"

type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*services.Principal, error)
}

type AuthMiddleware struct {
	auth Authenticator
}

func NewAuthMiddleware(auth Authenticator) *AuthMiddleware {
	return &AuthMiddleware{auth: auth}
}

// PrincipalFrom returns the caller stored by RequireAuth.
func PrincipalFrom(ctx *fasthttp.RequestCtx) (*services.Principal, bool) {
	p, ok := ctx.UserValue(principalKey).(*services.Principal)
	return p, ok && p != nil
}

func reject(ctx *fasthttp.RequestCtx, status int, message string, startTime time.Time) {
	ctx.SetStatusCode(status)
	ctx.SetContentType("application/json")
	json.NewEncoder(ctx).Encode(map[string]string{"error": message})
	utils.LogResponse(string(ctx.Path()), status, time.Since(startTime))
}

// RequireAuth checks the bearer token against its live session.
func (m *AuthMiddleware) RequireAuth(next fasthttp.RequestHandler) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		startTime := time.Now()

		authHeader := string(ctx.Request.Header.Peek("Authorization"))
		if authHeader == "" {
			utils.LogWarning("Middleware", "Missing Authorization header")
			reject(ctx, fasthttp.StatusUnauthorized, "authorization required", startTime)
			return
		}

		scheme, token, found := strings.Cut(authHeader, " ")
		if !found || !strings.EqualFold(scheme, "Bearer") || token == "" {
			utils.LogWarning("Middleware", "Malformed Authorization header")
			reject(ctx, fasthttp.StatusUnauthorized, "invalid token format", startTime)
			return
		}

		principal, err := m.auth.Authenticate(ctx, token)
		if err != nil {
			switch {
			case errors.Is(err, services.ErrAccountBanned):
				reject(ctx, fasthttp.StatusForbidden, err.Error(), startTime)
			case errors.Is(err, services.ErrInvalidToken), errors.Is(err, services.ErrSessionRevoked):
				utils.LogWarning("Middleware", "Rejected token: %v", err)
				reject(ctx, fasthttp.StatusUnauthorized, "invalid or expired token", startTime)
			default:
				utils.LogError("Middleware", "Authentication failed", err)
				reject(ctx, fasthttp.StatusInternalServerError, "internal server error", startTime)
			}
			return
		}

		ctx.SetUserValue(principalKey, principal)
		utils.LogDebug("Middleware", "Authenticated account %s", principal.Account.ID)

		next(ctx)
	}
}

// RequireAdmin authenticates the caller and lets only admins through.
func (m *AuthMiddleware) RequireAdmin(next fasthttp.RequestHandler) fasthttp.RequestHandler {
	return m.RequireAuth(func(ctx *fasthttp.RequestCtx) {
		principal, _ := PrincipalFrom(ctx)
		if !principal.Account.IsAdmin() {
			utils.LogWarning("Middleware", "Account %s is not an admin", principal.Account.ID)
			reject(ctx, fasthttp.StatusForbidden, services.ErrForbidden.Error(), time.Now())
			return
		}
		next(ctx)
	})
}
