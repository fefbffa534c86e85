package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	domain "github.com/avicolanorte/api/internal/domain"
	"github.com/avicolanorte/api/internal/platform/auth"
	"github.com/avicolanorte/api/internal/platform/httpx"
	"github.com/avicolanorte/api/internal/services"
)

// AccountHandlers exposes back-office account administration. Admin only.
type AccountHandlers struct {
	authn    *auth.Authenticator
	accounts services.AccountService
}

// NewAccountHandlers constructs a new AccountHandlers instance.
func NewAccountHandlers(authn *auth.Authenticator, accounts services.AccountService) *AccountHandlers {
	return &AccountHandlers{
		authn:    authn,
		accounts: accounts,
	}
}

// Routes registers the /accounts endpoints.
func (h *AccountHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	if h.authn != nil {
		r.Use(h.authn.RequireOperator(domain.RoleAdmin))
	}
	r.Get("/{accountID}", h.getAccount)
	r.Post("/{accountID}/deactivate", h.deactivateAccount)
	r.Delete("/{accountID}", h.deleteAccount)
}

func (h *AccountHandlers) getAccount(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if _, ok := requireIdentity(ctx, w); !ok {
		return
	}

	accountID := strings.TrimSpace(chi.URLParam(r, "accountID"))
	if accountID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "account id is required", http.StatusBadRequest))
		return
	}

	account, err := h.accounts.GetAccount(ctx, accountID)
	if err != nil {
		writeAccountError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, buildAccountPayload(account))
}

func (h *AccountHandlers) deactivateAccount(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := requireIdentity(ctx, w)
	if !ok {
		return
	}

	accountID := strings.TrimSpace(chi.URLParam(r, "accountID"))
	if accountID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "account id is required", http.StatusBadRequest))
		return
	}

	account, err := h.accounts.Deactivate(ctx, accountID, operatorFromIdentity(identity))
	if err != nil {
		writeAccountError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, buildAccountPayload(account))
}

func (h *AccountHandlers) deleteAccount(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := requireIdentity(ctx, w)
	if !ok {
		return
	}

	accountID := strings.TrimSpace(chi.URLParam(r, "accountID"))
	if accountID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "account id is required", http.StatusBadRequest))
		return
	}

	if err := h.accounts.Delete(ctx, accountID, operatorFromIdentity(identity)); err != nil {
		writeAccountError(ctx, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type accountPayload struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	Contact         string `json:"contact,omitempty"`
	Role            string `json:"role"`
	CoordinatorType string `json:"coordinatorType,omitempty"`
	Active          bool   `json:"active"`
	CreatedAt       string `json:"createdAt"`
	UpdatedAt       string `json:"updatedAt"`
}

func buildAccountPayload(account services.Account) accountPayload {
	return accountPayload{
		ID:              account.ID,
		Name:            account.Name,
		Contact:         account.Contact,
		Role:            string(account.Role),
		CoordinatorType: string(account.CoordinatorType),
		Active:          account.Active,
		CreatedAt:       formatTime(account.CreatedAt),
		UpdatedAt:       formatTime(account.UpdatedAt),
	}
}

func writeAccountError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		return
	}
	switch {
	case errors.Is(err, services.ErrAccountNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("account_not_found", "account not found", http.StatusNotFound))
	case errors.Is(err, services.ErrAccountInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrAccountUnavailable):
		httpx.WriteError(ctx, w, httpx.NewError("account_unavailable", "account store is unavailable", http.StatusServiceUnavailable))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("account_error", "failed to process account request", http.StatusInternalServerError))
	}
}
