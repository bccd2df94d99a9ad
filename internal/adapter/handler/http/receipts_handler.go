package http

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	domainRepo "github.com/Markwood23/plaen-sub000/internal/domain/repository"
)

// ReceiptsHandler serves archived receipts for the dashboard's payment
// history views.
type ReceiptsHandler struct {
	receipts domainRepo.ReceiptRepository
	logger   *zap.Logger
}

func NewReceiptsHandler(receipts domainRepo.ReceiptRepository, logger *zap.Logger) *ReceiptsHandler {
	return &ReceiptsHandler{
		receipts: receipts,
		logger:   logger,
	}
}

// GetByTransaction returns the archived receipt for a transaction.
func (h *ReceiptsHandler) GetByTransaction(c echo.Context) error {
	transactionID := c.Param("transaction_id")

	receipt, err := h.receipts.GetByTransactionID(c.Request().Context(), transactionID)
	if err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{
			"error": "Receipt not found",
		})
	}
	return c.JSON(http.StatusOK, receipt)
}

// ListByInvoice returns the archived receipts for an invoice, newest first.
func (h *ReceiptsHandler) ListByInvoice(c echo.Context) error {
	invoiceID := c.Param("invoice_id")

	receipts, err := h.receipts.GetByInvoiceID(c.Request().Context(), invoiceID)
	if err != nil {
		h.logger.Error("Failed to list receipts",
			zap.String("invoice_id", invoiceID),
			zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"error": "Failed to list receipts",
		})
	}
	return c.JSON(http.StatusOK, receipts)
}
