package repository

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Markwood23/plaen-sub000/internal/domain/model"
	domainRepo "github.com/Markwood23/plaen-sub000/internal/domain/repository"
)

type receiptRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewReceiptRepository creates a new receipt repository
func NewReceiptRepository(db *gorm.DB, logger *zap.Logger) domainRepo.ReceiptRepository {
	return &receiptRepository{
		db:     db,
		logger: logger,
	}
}

// Save archives a settled receipt. Saving the same transaction twice is a
// no-op, so a retried archive cannot duplicate records.
func (r *receiptRepository) Save(ctx context.Context, receipt *model.ReceiptRecord) error {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "transaction_id"}}, DoNothing: true}).
		Create(receipt).Error
	if err != nil {
		r.logger.Error("Failed to save receipt",
			zap.String("transaction_id", receipt.TransactionID),
			zap.Error(err))
		return fmt.Errorf("failed to save receipt: %w", err)
	}
	return nil
}

// GetByTransactionID retrieves a receipt by its transaction id
func (r *receiptRepository) GetByTransactionID(ctx context.Context, transactionID string) (*model.ReceiptRecord, error) {
	var receipt model.ReceiptRecord
	err := r.db.WithContext(ctx).
		Where("transaction_id = ?", transactionID).
		First(&receipt).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("receipt not found for transaction %s", transactionID)
		}
		return nil, fmt.Errorf("failed to get receipt: %w", err)
	}
	return &receipt, nil
}

// GetByInvoiceID lists the archived receipts for an invoice, newest first
func (r *receiptRepository) GetByInvoiceID(ctx context.Context, invoiceID string) ([]*model.ReceiptRecord, error) {
	var receipts []*model.ReceiptRecord
	err := r.db.WithContext(ctx).
		Where("invoice_id = ?", invoiceID).
		Order("settled_at DESC").
		Find(&receipts).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list receipts: %w", err)
	}
	return receipts, nil
}
