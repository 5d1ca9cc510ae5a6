package middleware

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/valyala/fasthttp"

	"account-service/internal/models"
	"account-service/internal/services"
)

type fakeAuth struct {
	principal *services.Principal
	err       error
	gotToken  string
}

func (f *fakeAuth) Authenticate(ctx context.Context, token string) (*services.Principal, error) {
	f.gotToken = token
	return f.principal, f.err
}

func call(h fasthttp.RequestHandler, header string) *fasthttp.RequestCtx {
	var req fasthttp.Request
	req.SetRequestURI("/accounts/me")
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	ctx := &fasthttp.RequestCtx{}
	ctx.Init(&req, nil, nil)
	h(ctx)
	return ctx
}

func principal(role models.Role) *services.Principal {
	return &services.Principal{
		Account:   &models.Account{ID: uuid.New(), Role: role},
		SessionID: uuid.New(),
	}
}

func TestRequireAuth(t *testing.T) {
	auth := &fakeAuth{principal: principal(models.RoleUser)}
	mw := NewAuthMiddleware(auth)

	var seen *services.Principal
	h := mw.RequireAuth(func(ctx *fasthttp.RequestCtx) {
		seen, _ = PrincipalFrom(ctx)
		ctx.SetStatusCode(fasthttp.StatusNoContent)
	})

	ctx := call(h, "Bearer abc.def")
	assert.Equal(t, fasthttp.StatusNoContent, ctx.Response.StatusCode())
	assert.Equal(t, "abc.def", auth.gotToken)
	assert.Same(t, auth.principal, seen)

	assert.Equal(t, fasthttp.StatusUnauthorized, call(h, "").Response.StatusCode())
	assert.Equal(t, fasthttp.StatusUnauthorized, call(h, "Basic abc").Response.StatusCode())
	assert.Equal(t, fasthttp.StatusUnauthorized, call(h, "Bearer").Response.StatusCode())
}

func TestRequireAuthErrors(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{services.ErrInvalidToken, fasthttp.StatusUnauthorized},
		{services.ErrSessionRevoked, fasthttp.StatusUnauthorized},
		{services.ErrAccountBanned, fasthttp.StatusForbidden},
		{errors.New("db down"), fasthttp.StatusInternalServerError},
	}

	for _, tt := range tests {
		mw := NewAuthMiddleware(&fakeAuth{err: tt.err})
		h := mw.RequireAuth(func(ctx *fasthttp.RequestCtx) {
			t.Fatal("handler must not run")
		})
		assert.Equal(t, tt.status, call(h, "Bearer token").Response.StatusCode(), tt.err.Error())
	}
}

func TestRequireAdmin(t *testing.T) {
	next := func(ctx *fasthttp.RequestCtx) { ctx.SetStatusCode(fasthttp.StatusOK) }

	user := NewAuthMiddleware(&fakeAuth{principal: principal(models.RoleUser)})
	assert.Equal(t, fasthttp.StatusForbidden, call(user.RequireAdmin(next), "Bearer t").Response.StatusCode())

	admin := NewAuthMiddleware(&fakeAuth{principal: principal(models.RoleAdmin)})
	assert.Equal(t, fasthttp.StatusOK, call(admin.RequireAdmin(next), "Bearer t").Response.StatusCode())
}
