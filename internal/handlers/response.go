package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/applejunice/Applehome/internal/models"
	"github.com/applejunice/Applehome/internal/services"
)

const maxBodyBytes = 1_048_576

// money renders d as a JSON number with two decimals.
func money(d decimal.Decimal) json.Number {
	return json.Number(d.StringFixed(2))
}

// decodeJSON reads exactly one JSON object into dst, rejecting unknown fields.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return services.ErrInvalidBody.WithMessage("request body too large")
		}
		if errors.Is(err, io.EOF) {
			return services.ErrInvalidBody.WithMessage("request body is empty")
		}
		return services.ErrInvalidBody
	}

	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return services.ErrInvalidBody.WithMessage("request body must only contain a single JSON object")
	}
	return nil
}

// respondError writes err and logs it when it maps to a server failure.
func respondError(logger *zap.Logger, w http.ResponseWriter, r *http.Request, err error) {
	svcErr := services.AsError(err)
	if svcErr.Status >= http.StatusInternalServerError {
		logger.Error("Request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err))
	}
	services.SendError(w, err)
}

// AccountResponse is the public view of an account.
type AccountResponse struct {
	ID        int64       `json:"id" example:"1"`
	Username  string      `json:"username" example:"alice"`
	Balance   json.Number `json:"balance,omitempty" swaggertype:"number" example:"60.00"`
	IsAdmin   *bool       `json:"is_admin,omitempty"`
	CreatedAt *time.Time  `json:"created_at,omitempty"`
}

func accountView(a *models.Account) AccountResponse {
	return AccountResponse{ID: a.ID, Username: a.Username, Balance: money(a.Balance)}
}

func boolPtr(b bool) *bool { return &b }

// EntryResponse is one ledger entry as returned by the API.
type EntryResponse struct {
	ID        int64            `json:"id" example:"1"`
	FromUser  *string          `json:"from_user" example:"alice"`
	ToUser    string           `json:"to_user" example:"bob"`
	Amount    json.Number      `json:"amount" swaggertype:"number" example:"40.00"`
	Type      models.EntryKind `json:"type" example:"transfer"`
	Direction models.Direction `json:"direction,omitempty" example:"sent"`
	CreatedAt time.Time        `json:"created_at"`
}

func entryView(e models.LedgerEntry) EntryResponse {
	return EntryResponse{
		ID:        e.ID,
		FromUser:  e.FromUsername,
		ToUser:    e.ToUsername,
		Amount:    money(e.Amount),
		Type:      e.Kind,
		CreatedAt: e.CreatedAt,
	}
}
