package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ReceiptRecord is the persisted form of a settled payment receipt
type ReceiptRecord struct {
	ID            int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	SessionID     uuid.UUID       `gorm:"type:uuid;not null;index" json:"session_id"`
	InvoiceID     string          `gorm:"size:100;not null;index" json:"invoice_id"`
	TransactionID string          `gorm:"size:100;uniqueIndex;not null" json:"transaction_id"`
	InvoiceNumber string          `gorm:"size:100" json:"invoice_number"`
	Reference     string          `gorm:"size:100" json:"reference"`
	Method        string          `gorm:"size:20;not null" json:"method"`
	Amount        decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"amount"`
	Currency      string          `gorm:"size:3" json:"currency"`

	ReceiptNumber    *string          `gorm:"size:100" json:"receipt_number,omitempty"`
	PayerName        *string          `gorm:"size:255" json:"payer_name,omitempty"`
	PayerEmail       *string          `gorm:"size:255" json:"payer_email,omitempty"`
	BusinessName     *string          `gorm:"size:255" json:"business_name,omitempty"`
	RemainingBalance *decimal.Decimal `gorm:"type:decimal(15,2)" json:"remaining_balance,omitempty"`

	SettledAt time.Time `gorm:"not null" json:"settled_at"`
	CreatedAt time.Time `gorm:"default:now()" json:"created_at"`
}

// TableName specifies the table name for GORM
func (ReceiptRecord) TableName() string {
	return "payment_receipts"
}
