package repository

import (
	"context"

	"github.com/Markwood23/plaen-sub000/internal/domain/model"
)

// ReceiptRepository archives settled payment receipts
type ReceiptRepository interface {
	Save(ctx context.Context, receipt *model.ReceiptRecord) error
	GetByTransactionID(ctx context.Context, transactionID string) (*model.ReceiptRecord, error)
	GetByInvoiceID(ctx context.Context, invoiceID string) ([]*model.ReceiptRecord, error)
}
