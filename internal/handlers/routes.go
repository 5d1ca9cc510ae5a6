package handlers

import (
	"github.com/fasthttp/router"

	"account-service/internal/middleware"
)

type Handlers struct {
	Auth    *AuthHandler
	Account *AccountHandler
	Ledger  *LedgerHandler
	Health  *HealthHandler
}

func NewRouter(h Handlers, mw *middleware.AuthMiddleware) *router.Router {
	r := router.New()

	r.GET("/health", h.Health.Health)

	auth := r.Group("/auth")
	auth.POST("/signup", h.Auth.Signup)
	auth.POST("/login", h.Auth.Login)
	auth.POST("/logout", mw.RequireAuth(h.Auth.Logout))
	auth.POST("/password", mw.RequireAuth(h.Auth.ChangePassword))
	auth.POST("/password/forgot", h.Auth.ForgotPassword)
	auth.POST("/password/reset", h.Auth.ResetPassword)

	r.GET("/accounts", mw.RequireAdmin(h.Account.ListAccounts))
	r.GET("/accounts/me", mw.RequireAuth(h.Account.GetProfile))
	r.PATCH("/accounts/me", mw.RequireAuth(h.Account.UpdateProfile))

	ledger := r.Group("/ledger")
	ledger.POST("/deposit", mw.RequireAuth(h.Ledger.Deposit))
	ledger.POST("/withdraw", mw.RequireAuth(h.Ledger.Withdraw))
	ledger.POST("/transfer", mw.RequireAuth(h.Ledger.Transfer))

	return r
}
