package handlers

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/applejunice/Applehome/internal/middleware"
	"github.com/applejunice/Applehome/internal/services"
)

type LedgerHandler struct {
	ledger *services.LedgerService
	logger *zap.Logger
}

func NewLedgerHandler(ledger *services.LedgerService, logger *zap.Logger) *LedgerHandler {
	return &LedgerHandler{
		ledger: ledger,
		logger: logger.With(zap.String("component", "ledger_handler")),
	}
}

type TransactionsResponse struct {
	Success      bool            `json:"success" example:"true"`
	Count        int             `json:"count" example:"1"`
	Transactions []EntryResponse `json:"transactions"`
	Summary      *SummaryView    `json:"summary,omitempty"`
}

type SummaryView struct {
	TotalSent     json.Number `json:"total_sent" swaggertype:"number" example:"40.00"`
	TotalReceived json.Number `json:"total_received" swaggertype:"number" example:"0.00"`
}

// MyTransactions lists entries the caller sent or received
// @Summary Own transactions
// @Tags ledger
// @Produce json
// @Security BearerAuth
// @Success 200 {object} TransactionsResponse
// @Failure 400 {object} services.ErrorResponse "Admin has no transactions; use /api/transactions"
// @Failure 401 {object} services.ErrorResponse
// @Router /api/my/transactions [get]
func (h *LedgerHandler) MyTransactions(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		respondError(h.logger, w, r, services.ErrUnauthenticated)
		return
	}
	id, isHolder := principal.AccountID()
	if !isHolder {
		respondError(h.logger, w, r, services.ErrAdminHasNoAccount.WithMessage("admin has no transactions, use /api/transactions"))
		return
	}

	entries, err := h.ledger.ForAccount(r.Context(), id)
	if err != nil {
		respondError(h.logger, w, r, err)
		return
	}

	views := make([]EntryResponse, len(entries))
	for i, e := range entries {
		views[i] = entryView(e.LedgerEntry)
		views[i].Direction = e.Direction
	}
	summary := services.Summarize(entries)

	services.SendJSON(w, http.StatusOK, TransactionsResponse{
		Success:      true,
		Count:        summary.Count,
		Transactions: views,
		Summary: &SummaryView{
			TotalSent:     money(summary.TotalSent),
			TotalReceived: money(summary.TotalReceived),
		},
	})
}

// AllTransactions lists every ledger entry
// @Summary All transactions
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} TransactionsResponse
// @Failure 401 {object} services.ErrorResponse
// @Failure 403 {object} services.ErrorResponse
// @Router /api/transactions [get]
func (h *LedgerHandler) AllTransactions(w http.ResponseWriter, r *http.Request) {
	entries, err := h.ledger.All(r.Context())
	if err != nil {
		respondError(h.logger, w, r, err)
		return
	}

	views := make([]EntryResponse, len(entries))
	for i, e := range entries {
		views[i] = entryView(e)
	}
	services.SendJSON(w, http.StatusOK, TransactionsResponse{Success: true, Count: len(views), Transactions: views})
}
