package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/applejunice/Applehome/internal/middleware"
	"github.com/applejunice/Applehome/internal/services"
)

type TransferHandler struct {
	transfers *services.TransferService
	validator *services.ValidationHelper
	logger    *zap.Logger
}

func NewTransferHandler(transfers *services.TransferService, logger *zap.Logger) *TransferHandler {
	return &TransferHandler{
		transfers: transfers,
		validator: services.NewValidationHelper(),
		logger:    logger.With(zap.String("component", "transfer_handler")),
	}
}

type TransferResponse struct {
	Success     bool          `json:"success" example:"true"`
	Message     string        `json:"message" example:"transferred 40.00 to bob"`
	FromBalance json.Number   `json:"from_balance" swaggertype:"number" example:"60.00"`
	ToBalance   json.Number   `json:"to_balance" swaggertype:"number" example:"40.00"`
	Transaction EntryResponse `json:"transaction"`
}

// Transfer moves funds from the caller to another account
// @Summary Transfer funds
// @Tags transfers
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body services.TransferRequest true "Transfer request"
// @Success 200 {object} TransferResponse
// @Failure 400 {object} services.ErrorResponse "Invalid amount, self transfer or insufficient balance"
// @Failure 401 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse "Recipient not found"
// @Router /api/transfer [post]
func (h *TransferHandler) Transfer(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		respondError(h.logger, w, r, services.ErrUnauthenticated)
		return
	}
	actorID, isHolder := principal.AccountID()
	if !isHolder {
		respondError(h.logger, w, r, services.ErrAdminHasNoAccount)
		return
	}

	var req services.TransferRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(h.logger, w, r, err)
		return
	}
	if err := h.validator.ValidateStruct(&req); err != nil {
		respondError(h.logger, w, r, err)
		return
	}

	result, err := h.transfers.Transfer(r.Context(), actorID, req.ToUsername, req.Amount)
	if err != nil {
		respondError(h.logger, w, r, err)
		return
	}

	services.SendJSON(w, http.StatusOK, TransferResponse{
		Success:     true,
		Message:     fmt.Sprintf("transferred %s to %s", req.Amount.StringFixed(2), result.To.Username),
		FromBalance: money(result.From.Balance),
		ToBalance:   money(result.To.Balance),
		Transaction: entryView(result.Entry),
	})
}
