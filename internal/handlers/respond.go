package handlers

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/valyala/fasthttp"

	"account-service/internal/ledger"
	"account-service/internal/middleware"
	"account-service/internal/repository"
	"account-service/internal/services"
	"account-service/internal/utils"
	"account-service/internal/validation"
)

type errorResponse struct {
	Error  string                  `json:"error"`
	Fields []validation.FieldError `json:"fields,omitempty"`
}

func writeJSON(ctx *fasthttp.RequestCtx, status int, body interface{}) {
	ctx.SetStatusCode(status)
	ctx.SetContentType("application/json")
	if err := json.NewEncoder(ctx).Encode(body); err != nil {
		utils.LogError("Handler", "Encode response", err)
	}
}

// request tracks one handled call for the request/response log lines.
type request struct {
	ctx       *fasthttp.RequestCtx
	path      string
	startTime time.Time
}

func begin(ctx *fasthttp.RequestCtx, caller string) *request {
	r := &request{ctx: ctx, path: string(ctx.Path()), startTime: time.Now()}
	utils.LogRequest(string(ctx.Method()), r.path, caller)
	return r
}

func (r *request) respond(status int, body interface{}) {
	writeJSON(r.ctx, status, body)
	utils.LogResponse(r.path, status, time.Since(r.startTime))
}

func (r *request) fail(err error) {
	status, body := errorStatus(err)
	if status >= fasthttp.StatusInternalServerError {
		utils.LogError("Handler", r.path, err)
	}
	r.respond(status, body)
}

// decode parses the JSON body into dst and validates it.
func (r *request) decode(dst interface{}) bool {
	if err := json.Unmarshal(r.ctx.PostBody(), dst); err != nil {
		utils.LogWarning("Handler", "Bad JSON on %s: %v", r.path, err)
		r.respond(fasthttp.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return false
	}
	if err := validation.Struct(dst); err != nil {
		r.fail(err)
		return false
	}
	return true
}

// beginAuthed starts a request made by the caller RequireAuth attached. It
// answers 401 itself when there is none.
func beginAuthed(ctx *fasthttp.RequestCtx) (*request, *services.Principal, bool) {
	p, ok := middleware.PrincipalFrom(ctx)
	if !ok {
		begin(ctx, "anonymous").respond(fasthttp.StatusUnauthorized, errorResponse{Error: "unauthorized"})
		return nil, nil, false
	}
	return begin(ctx, p.Account.ID.String()), p, true
}

func errorStatus(err error) (int, errorResponse) {
	var verr *validation.Error
	if errors.As(err, &verr) {
		return fasthttp.StatusUnprocessableEntity, errorResponse{Error: "validation failed", Fields: verr.Fields}
	}

	status := fasthttp.StatusInternalServerError
	switch {
	case errors.Is(err, ledger.ErrPersistence):
		status = fasthttp.StatusInternalServerError
	case errors.Is(err, repository.ErrAccountNotFound):
		status = fasthttp.StatusNotFound
	case errors.Is(err, ledger.ErrInsufficientFunds),
		errors.Is(err, ledger.ErrNegativeBalance),
		errors.Is(err, ledger.ErrInvalidAmount),
		errors.Is(err, ledger.ErrBalanceOverflow),
		errors.Is(err, ledger.ErrSameAccount),
		errors.Is(err, services.ErrInvalidInput),
		errors.Is(err, services.ErrProtectedUsername),
		errors.Is(err, services.ErrIncorrectPassword),
		errors.Is(err, services.ErrInvalidResetToken),
		errors.Is(err, services.ErrResetTokenExpired):
		status = fasthttp.StatusBadRequest
	case errors.Is(err, repository.ErrUsernameTaken),
		errors.Is(err, repository.ErrEmailTaken):
		status = fasthttp.StatusConflict
	case errors.Is(err, services.ErrInvalidCredentials),
		errors.Is(err, services.ErrInvalidToken),
		errors.Is(err, services.ErrSessionRevoked):
		status = fasthttp.StatusUnauthorized
	case errors.Is(err, services.ErrAccountBanned),
		errors.Is(err, services.ErrForbidden):
		status = fasthttp.StatusForbidden
	}

	if status == fasthttp.StatusInternalServerError {
		return status, errorResponse{Error: "internal server error"}
	}
	return status, errorResponse{Error: rootMessage(err)}
}

// rootMessage drops wrapping context such as account ids from client messages.
func rootMessage(err error) string {
	if errors.Is(err, ledger.ErrAccountNotFound) {
		return ledger.ErrAccountNotFound.Error()
	}
	return err.Error()
}
