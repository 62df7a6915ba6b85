package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/applejunice/Applehome/internal/middleware"
	"github.com/applejunice/Applehome/internal/services"
)

type AccountHandler struct {
	credentials *services.CredentialService
	validator   *services.ValidationHelper
	logger      *zap.Logger
}

func NewAccountHandler(credentials *services.CredentialService, logger *zap.Logger) *AccountHandler {
	return &AccountHandler{
		credentials: credentials,
		validator:   services.NewValidationHelper(),
		logger:      logger.With(zap.String("component", "account_handler")),
	}
}

type BalanceResponse struct {
	Success bool        `json:"success" example:"true"`
	Balance json.Number `json:"balance" swaggertype:"number" example:"60.00"`
}

type BalancesResponse struct {
	Success bool              `json:"success" example:"true"`
	Count   int               `json:"count" example:"2"`
	Users   []AccountResponse `json:"users"`
}

// AdminBalanceRequest represents the balance override payload
// @Description Balance override request structure
type AdminBalanceRequest struct {
	Username string           `json:"username" validate:"required" example:"alice"`
	Balance  *decimal.Decimal `json:"balance" swaggertype:"number" example:"500.00"`
}

type BalanceChangeResponse struct {
	Success bool              `json:"success" example:"true"`
	Message string            `json:"message" example:"balance updated for alice"`
	User    BalanceChangeView `json:"user"`
}

type BalanceChangeView struct {
	ID         int64       `json:"id" example:"1"`
	Username   string      `json:"username" example:"alice"`
	OldBalance json.Number `json:"old_balance" swaggertype:"number" example:"60.00"`
	NewBalance json.Number `json:"new_balance" swaggertype:"number" example:"500.00"`
}

// MyBalance returns the caller's balance
// @Summary Own balance
// @Tags accounts
// @Produce json
// @Security BearerAuth
// @Success 200 {object} BalanceResponse
// @Failure 400 {object} services.ErrorResponse "Admin has no balance"
// @Failure 401 {object} services.ErrorResponse
// @Router /api/my/balance [get]
func (h *AccountHandler) MyBalance(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		respondError(h.logger, w, r, services.ErrUnauthenticated)
		return
	}
	id, isHolder := principal.AccountID()
	if !isHolder {
		respondError(h.logger, w, r, services.ErrAdminHasNoAccount)
		return
	}

	account, err := h.credentials.GetByID(r.Context(), id)
	if err != nil {
		respondError(h.logger, w, r, err)
		return
	}
	services.SendJSON(w, http.StatusOK, BalanceResponse{Success: true, Balance: money(account.Balance)})
}

// ListBalances returns every account's balance
// @Summary All balances
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} BalancesResponse
// @Failure 401 {object} services.ErrorResponse
// @Failure 403 {object} services.ErrorResponse
// @Router /api/users/balances [get]
func (h *AccountHandler) ListBalances(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.credentials.ListAll(r.Context())
	if err != nil {
		respondError(h.logger, w, r, err)
		return
	}

	users := make([]AccountResponse, len(accounts))
	for i := range accounts {
		users[i] = accountView(&accounts[i])
	}
	services.SendJSON(w, http.StatusOK, BalancesResponse{Success: true, Count: len(users), Users: users})
}

// AdjustBalance overrides an account balance
// @Summary Override balance
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body AdminBalanceRequest true "Balance override"
// @Success 200 {object} BalanceChangeResponse
// @Failure 400 {object} services.ErrorResponse "Negative or invalid balance"
// @Failure 403 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse "User not found"
// @Router /api/admin/balance [put]
func (h *AccountHandler) AdjustBalance(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		respondError(h.logger, w, r, services.ErrUnauthenticated)
		return
	}

	var req AdminBalanceRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(h.logger, w, r, err)
		return
	}
	if err := h.validator.ValidateStruct(&req); err != nil {
		respondError(h.logger, w, r, err)
		return
	}
	if req.Balance == nil {
		respondError(h.logger, w, r, services.ErrInvalidInput.WithDetails(map[string]string{
			"balance": "Field Validation Failed on 'required' tag",
		}))
		return
	}

	change, err := h.credentials.AdjustBalance(r.Context(), principal.SubjectName, req.Username, *req.Balance)
	if err != nil {
		respondError(h.logger, w, r, err)
		return
	}

	services.SendJSON(w, http.StatusOK, BalanceChangeResponse{
		Success: true,
		Message: fmt.Sprintf("balance updated for %s", change.Username),
		User: BalanceChangeView{
			ID:         change.AccountID,
			Username:   change.Username,
			OldBalance: money(change.OldBalance),
			NewBalance: money(change.NewBalance),
		},
	})
}
