package handlers

import (
	"github.com/valyala/fasthttp"

	"account-service/internal/models"
	"account-service/internal/services"
)

type LedgerHandler struct {
	service *services.LedgerService
}

func NewLedgerHandler(service *services.LedgerService) *LedgerHandler {
	return &LedgerHandler{service: service}
}

// Deposit handles POST /ledger/deposit.
func (h *LedgerHandler) Deposit(ctx *fasthttp.RequestCtx) {
	r, p, ok := beginAuthed(ctx)
	if !ok {
		return
	}

	var req models.DepositRequest
	if !r.decode(&req) {
		return
	}

	resp, err := h.service.Deposit(ctx, p.Account.ID, req.Amount)
	if err != nil {
		r.fail(err)
		return
	}

	r.respond(fasthttp.StatusOK, resp)
}

// Withdraw handles POST /ledger/withdraw.
func (h *LedgerHandler) Withdraw(ctx *fasthttp.RequestCtx) {
	r, p, ok := beginAuthed(ctx)
	if !ok {
		return
	}

	var req models.WithdrawRequest
	if !r.decode(&req) {
		return
	}

	resp, err := h.service.Withdraw(ctx, p.Account.ID, req.Amount)
	if err != nil {
		r.fail(err)
		return
	}

	r.respond(fasthttp.StatusOK, resp)
}

// Transfer handles POST /ledger/transfer. The caller is always the source.
func (h *LedgerHandler) Transfer(ctx *fasthttp.RequestCtx) {
	r, p, ok := beginAuthed(ctx)
	if !ok {
		return
	}

	var req models.TransferRequest
	if !r.decode(&req) {
		return
	}

	resp, err := h.service.Transfer(ctx, p.Account.ID, req.ToAccountID, req.Amount)
	if err != nil {
		r.fail(err)
		return
	}

	r.respond(fasthttp.StatusOK, resp)
}
