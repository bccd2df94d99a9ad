package provider

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// PaymentGateway defines the contract with the upstream payment backend: the
// invoice status precheck, payment initiation, and transaction status
// polling endpoints consumed by the checkout flow.
type PaymentGateway interface {
	// InvoiceStatus returns the authoritative status of an invoice.
	InvoiceStatus(ctx context.Context, invoiceID string) (InvoiceState, error)

	// InitiatePayment submits a validated (method, amount) pair and returns
	// either a trackable transaction or a redirect to a rail-hosted checkout.
	InitiatePayment(ctx context.Context, req *InitiateRequest) (*InitiateResponse, error)

	// TransactionStatus returns the settlement status of an in-flight
	// transaction.
	TransactionStatus(ctx context.Context, transactionID string) (*TransactionStatus, error)
}

// InvoiceState is the backend-reported invoice status. Values other than the
// two listed here mean the invoice is still payable.
type InvoiceState string

const (
	InvoiceStatePaid    InvoiceState = "paid"
	InvoiceStateExpired InvoiceState = "expired"
)

// InitiateRequest is the provider-agnostic initiation payload.
type InitiateRequest struct {
	InvoiceID string          `json:"invoice_id"`
	Method    string          `json:"method"`
	Amount    decimal.Decimal `json:"amount"`
	Currency  string          `json:"currency,omitempty"`
}

// InitiateResponse carries either a transaction id to poll for, a redirect
// URL to a rail-hosted checkout, or both.
type InitiateResponse struct {
	TransactionID string `json:"transaction_id,omitempty"`
	RedirectURL   string `json:"redirect_url,omitempty"`
}

// TransactionState is the provider-reported settlement status.
type TransactionState string

const (
	TransactionSuccess  TransactionState = "success"
	TransactionPending  TransactionState = "pending"
	TransactionFailed   TransactionState = "failed"
	TransactionDeclined TransactionState = "declined"
)

// Settled reports whether the state is a success indicator.
func (s TransactionState) Settled() bool {
	return s == TransactionSuccess
}

// Declined reports whether the state is a failure or decline indicator.
func (s TransactionState) Declined() bool {
	return s == TransactionFailed || s == TransactionDeclined
}

// TransactionStatus is one settlement status answer from the provider.
type TransactionStatus struct {
	Status        TransactionState
	Amount        decimal.Decimal
	Timestamp     time.Time
	InvoiceNumber string
	Reference     string

	ReceiptNumber    string
	PayerName        string
	PayerEmail       string
	BusinessName     string
	Currency         string
	RemainingBalance *decimal.Decimal

	// Message is a provider-supplied human-readable note, set on declines.
	Message string
}

// ProviderError is a typed error for gateway operations
type ProviderError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

func (e *ProviderError) Error() string {
	if e.Details != "" {
		return e.Message + ": " + e.Details
	}
	return e.Message
}
