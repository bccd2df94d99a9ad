package session

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Status is the lifecycle state of a payment session. Exactly one status is
// active at any time.
type Status string

const (
	StatusIdle        Status = "idle"
	StatusSelecting   Status = "selecting"
	StatusProcessing  Status = "processing"
	StatusPending     Status = "pending"
	StatusSuccess     Status = "success"
	StatusDeclined    Status = "declined"
	StatusOffline     Status = "offline"
	StatusExpired     Status = "expired"
	StatusAlreadyPaid Status = "already_paid"
)

// Terminal reports whether the status is strictly terminal: no payment
// operation other than a full reset may move the session out of it.
func (s Status) Terminal() bool {
	return s == StatusSuccess || s == StatusExpired || s == StatusAlreadyPaid
}

// Retryable reports whether the status is soft-terminal, recoverable only
// through RetryPayment.
func (s Status) Retryable() bool {
	return s == StatusDeclined || s == StatusOffline
}

// InFlight reports whether an initiation or confirmation attempt is active.
func (s Status) InFlight() bool {
	return s == StatusProcessing || s == StatusPending
}

// Method identifies the payment rail used to settle an invoice.
type Method string

const (
	MethodMomo     Method = "momo"
	MethodBank     Method = "bank"
	MethodCard     Method = "card"
	MethodExternal Method = "external"
)

// ParseMethod converts a raw string into a known payment rail.
func ParseMethod(raw string) (Method, error) {
	switch m := Method(raw); m {
	case MethodMomo, MethodBank, MethodCard, MethodExternal:
		return m, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownMethod, raw)
	}
}

// PaymentSession is the root aggregate for one invoice-payment attempt. It is
// mutated only through the checkout flow operations, never directly.
type PaymentSession struct {
	ID            uuid.UUID
	InvoiceID     string
	InvoiceNumber string
	Currency      string

	Status        Status
	Method        Method
	Amount        decimal.Decimal
	Error         string
	TransactionID string
	Receipt       *Receipt
	RedirectURL   string

	// InitialAmount is the balance due when the session was created; a full
	// reset restores Amount to this value.
	InitialAmount decimal.Decimal

	CreatedAt time.Time
	UpdatedAt time.Time
}

// New creates a fresh idle session for the given invoice.
func New(invoiceID, invoiceNumber, currency string, amount decimal.Decimal) *PaymentSession {
	now := time.Now()
	return &PaymentSession{
		ID:            uuid.New(),
		InvoiceID:     invoiceID,
		InvoiceNumber: invoiceNumber,
		Currency:      currency,
		Status:        StatusIdle,
		Amount:        amount,
		InitialAmount: amount,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// CanPay reports whether initiation is currently allowed from the payer's
// point of view: a method is chosen, the amount is positive, and no attempt
// is in flight or hard-terminal.
func (s *PaymentSession) CanPay() bool {
	if s.Method == "" || !s.Amount.IsPositive() {
		return false
	}
	switch s.Status {
	case StatusProcessing, StatusPending, StatusAlreadyPaid, StatusExpired:
		return false
	}
	return true
}

// Reset returns the session to its starting values without discarding the
// session object.
func (s *PaymentSession) Reset() {
	s.Status = StatusIdle
	s.Method = ""
	s.Amount = s.InitialAmount
	s.Error = ""
	s.TransactionID = ""
	s.Receipt = nil
	s.RedirectURL = ""
	s.UpdatedAt = time.Now()
}
