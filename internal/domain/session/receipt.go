package session

import (
	"time"

	"github.com/shopspring/decimal"
)

// Receipt is the value object produced when a transaction settles. It is
// created at most once per session and is immutable thereafter.
type Receipt struct {
	TransactionID string
	Amount        decimal.Decimal
	Method        Method
	Timestamp     time.Time
	InvoiceNumber string
	Reference     string

	// Optional fields, present only when the provider reports them.
	ReceiptNumber    string
	PayerName        string
	PayerEmail       string
	BusinessName     string
	Currency         string
	RemainingBalance *decimal.Decimal
}
