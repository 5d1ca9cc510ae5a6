package handlers

import (
	"github.com/valyala/fasthttp"

	"account-service/internal/models"
	"account-service/internal/services"
	"account-service/internal/utils"
)

type AuthHandler struct {
	authService    *services.AuthService
	accountService *services.AccountService
}

func NewAuthHandler(authService *services.AuthService, accountService *services.AccountService) *AuthHandler {
	return &AuthHandler{
		authService:    authService,
		accountService: accountService,
	}
}

// Signup handles POST /auth/signup.
func (h *AuthHandler) Signup(ctx *fasthttp.RequestCtx) {
	r := begin(ctx, "anonymous")

	var req models.SignupRequest
	if !r.decode(&req) {
		return
	}

	account, err := h.accountService.Signup(ctx, req)
	if err != nil {
		r.fail(err)
		return
	}

	r.respond(fasthttp.StatusCreated, models.NewProfileResponse(account.Profile()))
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(ctx *fasthttp.RequestCtx) {
	r := begin(ctx, "anonymous")

	var req models.LoginRequest
	if !r.decode(&req) {
		return
	}

	resp, err := h.authService.Login(ctx, req)
	if err != nil {
		r.fail(err)
		return
	}

	r.respond(fasthttp.StatusOK, resp)
}

// Logout handles POST /auth/logout.
func (h *AuthHandler) Logout(ctx *fasthttp.RequestCtx) {
	r, p, ok := beginAuthed(ctx)
	if !ok {
		return
	}

	if err := h.authService.Logout(ctx, p.SessionID); err != nil {
		r.fail(err)
		return
	}

	r.respond(fasthttp.StatusOK, map[string]string{"message": "logged out"})
}

// ChangePassword handles POST /auth/password.
func (h *AuthHandler) ChangePassword(ctx *fasthttp.RequestCtx) {
	r, p, ok := beginAuthed(ctx)
	if !ok {
		return
	}

	var req models.ChangePasswordRequest
	if !r.decode(&req) {
		return
	}

	if err := h.authService.ChangePassword(ctx, p, req); err != nil {
		r.fail(err)
		return
	}

	r.respond(fasthttp.StatusOK, map[string]string{"message": "password changed"})
}

// ForgotPassword handles POST /auth/password/forgot. The response is the same
// whether or not the email belongs to an account.
func (h *AuthHandler) ForgotPassword(ctx *fasthttp.RequestCtx) {
	r := begin(ctx, "anonymous")

	var req models.ForgotPasswordRequest
	if !r.decode(&req) {
		return
	}

	if err := h.authService.RequestPasswordReset(ctx, req.Email); err != nil {
		r.fail(err)
		return
	}

	utils.LogInfo("AuthHandler", "Password reset requested")
	r.respond(fasthttp.StatusAccepted, map[string]string{"message": "if the email is registered, a reset token has been sent"})
}

// ResetPassword handles POST /auth/password/reset.
func (h *AuthHandler) ResetPassword(ctx *fasthttp.RequestCtx) {
	r := begin(ctx, "anonymous")

	var req models.ResetPasswordRequest
	if !r.decode(&req) {
		return
	}

	if err := h.authService.ResetPassword(ctx, req); err != nil {
		r.fail(err)
		return
	}

	r.respond(fasthttp.StatusOK, map[string]string{"message": "password has been reset"})
}
