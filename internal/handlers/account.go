package handlers

import (
	"github.com/valyala/fasthttp"

	"account-service/internal/models"
	"account-service/internal/services"
)

type AccountHandler struct {
	service *services.AccountService
}

func NewAccountHandler(service *services.AccountService) *AccountHandler {
	return &AccountHandler{service: service}
}

// GetProfile handles GET /accounts/me.
func (h *AccountHandler) GetProfile(ctx *fasthttp.RequestCtx) {
	r, p, ok := beginAuthed(ctx)
	if !ok {
		return
	}

	profile, err := h.service.Profile(ctx, p.Account.ID)
	if err != nil {
		r.fail(err)
		return
	}

	r.respond(fasthttp.StatusOK, models.NewProfileResponse(*profile))
}

// UpdateProfile handles PATCH /accounts/me.
func (h *AccountHandler) UpdateProfile(ctx *fasthttp.RequestCtx) {
	r, p, ok := beginAuthed(ctx)
	if !ok {
		return
	}

	var req models.UpdateProfileRequest
	if !r.decode(&req) {
		return
	}

	profile, err := h.service.UpdateProfile(ctx, p.Account.ID, req)
	if err != nil {
		r.fail(err)
		return
	}

	r.respond(fasthttp.StatusOK, models.NewProfileResponse(*profile))
}

// ListAccounts handles GET /accounts. Admin only.
func (h *AccountHandler) ListAccounts(ctx *fasthttp.RequestCtx) {
	r, p, ok := beginAuthed(ctx)
	if !ok {
		return
	}

	profiles, err := h.service.ListAccounts(ctx, p.Account)
	if err != nil {
		r.fail(err)
		return
	}

	resp := models.ProfileListResponse{
		Accounts: make([]models.ProfileResponse, len(profiles)),
		Total:    len(profiles),
	}
	for i, profile := range profiles {
		resp.Accounts[i] = models.NewProfileResponse(profile)
	}
	r.respond(fasthttp.StatusOK, resp)
}
