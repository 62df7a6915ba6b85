// Package audit records balance-affecting and security-relevant events. Every
// event is written to the structured log; a Publisher may forward it further.
package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	EventTransfer        = "TRANSFER"
	EventBalanceOverride = "BALANCE_OVERRIDE"
	EventRegister        = "REGISTER"
	EventLogin           = "LOGIN"
	EventError           = "ERROR"

	StatusSuccess = "SUCCESS"
	StatusFailed  = "FAILED"
)

type Event struct {
	ID        string            `json:"id"`
	Timestamp time.Time         `json:"timestamp"`
	EventType string            `json:"event_type"`
	Actor     string            `json:"actor"`
	EntryID   int64             `json:"entry_id,omitempty"`
	Amount    string            `json:"amount,omitempty"`
	Status    string            `json:"status"`
	Details   map[string]string `json:"details,omitempty"`
}

// Publisher forwards events to an external sink.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

type AuditLogger struct {
	logger    *zap.Logger
	publisher Publisher
	now       func() time.Time
}

// NewAuditLogger returns a logger-only auditor when publisher is nil.
func NewAuditLogger(logger *zap.Logger, publisher Publisher) *AuditLogger {
	return &AuditLogger{
		logger:    logger.With(zap.String("component", "audit")),
		publisher: publisher,
		now:       time.Now,
	}
}

func (a *AuditLogger) LogTransfer(ctx context.Context, entryID int64, fromUser, toUser string, amount decimal.Decimal) {
	a.log(ctx, Event{
		EventType: EventTransfer,
		Actor:     fromUser,
		EntryID:   entryID,
		Amount:    amount.StringFixed(2),
		Status:    StatusSuccess,
		Details: map[string]string{
			"from_user": fromUser,
			"to_user":   toUser,
		},
	})
}

func (a *AuditLogger) LogBalanceOverride(ctx context.Context, admin, username string, oldBalance, newBalance decimal.Decimal) {
	a.log(ctx, Event{
		EventType: EventBalanceOverride,
		Actor:     admin,
		Amount:    newBalance.StringFixed(2),
		Status:    StatusSuccess,
		Details: map[string]string{
			"username":    username,
			"old_balance": oldBalance.StringFixed(2),
			"new_balance": newBalance.StringFixed(2),
		},
	})
}

func (a *AuditLogger) LogOperation(ctx context.Context, eventType, actor, status string, details map[string]string) {
	a.log(ctx, Event{
		EventType: eventType,
		Actor:     actor,
		Status:    status,
		Details:   details,
	})
}

func (a *AuditLogger) LogError(ctx context.Context, actor, operation string, err error) {
	a.log(ctx, Event{
		EventType: EventError,
		Actor:     actor,
		Status:    StatusFailed,
		Details: map[string]string{
			"operation": operation,
			"error":     err.Error(),
		},
	})
}

func (a *AuditLogger) log(ctx context.Context, event Event) {
	event.ID = uuid.NewString()
	event.Timestamp = a.now()

	a.logger.Info("AUDIT",
		zap.String("audit_id", event.ID),
		zap.String("event_type", event.EventType),
		zap.String("actor", event.Actor),
		zap.Int64("entry_id", event.EntryID),
		zap.String("amount", event.Amount),
		zap.String("status", event.Status),
		zap.Any("details", event.Details),
	)

	if a.publisher == nil {
		return
	}
	if err := a.publisher.Publish(ctx, event); err != nil {
		a.logger.Error("Failed to publish audit event",
			zap.String("audit_id", event.ID),
			zap.String("event_type", event.EventType),
			zap.Error(err))
	}
}
