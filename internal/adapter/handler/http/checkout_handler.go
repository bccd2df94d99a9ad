package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Markwood23/plaen-sub000/internal/domain/session"
	"github.com/Markwood23/plaen-sub000/internal/usecase"
)

// CheckoutHandler exposes the payment session operations to the dashboard UI.
type CheckoutHandler struct {
	manager *usecase.SessionManager
	logger  *zap.Logger
}

func NewCheckoutHandler(manager *usecase.SessionManager, logger *zap.Logger) *CheckoutHandler {
	return &CheckoutHandler{
		manager: manager,
		logger:  logger,
	}
}

type CreateSessionRequest struct {
	InvoiceID     string          `json:"invoice_id" validate:"required"`
	InvoiceNumber string          `json:"invoice_number" validate:"required"`
	Currency      string          `json:"currency" validate:"required,len=3"`
	Amount        decimal.Decimal `json:"amount"`
}

type SelectMethodRequest struct {
	Method string `json:"method" validate:"required,oneof=momo bank card external"`
}

type SetAmountRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

type ReceiptResponse struct {
	TransactionID    string           `json:"transaction_id"`
	Amount           decimal.Decimal  `json:"amount"`
	Method           string           `json:"method"`
	Timestamp        time.Time        `json:"timestamp"`
	InvoiceNumber    string           `json:"invoice_number"`
	Reference        string           `json:"reference"`
	ReceiptNumber    string           `json:"receipt_number,omitempty"`
	PayerName        string           `json:"payer_name,omitempty"`
	PayerEmail       string           `json:"payer_email,omitempty"`
	BusinessName     string           `json:"business_name,omitempty"`
	Currency         string           `json:"currency,omitempty"`
	RemainingBalance *decimal.Decimal `json:"remaining_balance,omitempty"`
}

type SessionResponse struct {
	SessionID     string           `json:"session_id"`
	InvoiceID     string           `json:"invoice_id"`
	InvoiceNumber string           `json:"invoice_number"`
	Status        string           `json:"status"`
	Method        string           `json:"method,omitempty"`
	Amount        decimal.Decimal  `json:"amount"`
	Currency      string           `json:"currency"`
	Error         string           `json:"error,omitempty"`
	TransactionID string           `json:"transaction_id,omitempty"`
	RedirectURL   string           `json:"redirect_url,omitempty"`
	CanPay        bool             `json:"can_pay"`
	Receipt       *ReceiptResponse `json:"receipt,omitempty"`
}

// CreateSession opens a payment session for an invoice. The invoice status
// precheck runs before the response, so an already-paid or expired invoice
// comes back terminal immediately.
func (h *CheckoutHandler) CreateSession(c echo.Context) error {
	var req CreateSessionRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": "Invalid request body",
		})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": err.Error(),
		})
	}

	h.logger.Info("Creating checkout session",
		zap.String("invoice_id", req.InvoiceID),
		zap.String("amount", req.Amount.String()),
	)

	flow := h.manager.Create(c.Request().Context(), req.InvoiceID, req.InvoiceNumber, req.Currency, req.Amount)
	return c.JSON(http.StatusCreated, toSessionResponse(flow))
}

// GetSession returns the current session snapshot.
func (h *CheckoutHandler) GetSession(c echo.Context) error {
	flow, err := h.flow(c)
	if err != nil {
		return h.notFound(c, err)
	}
	return c.JSON(http.StatusOK, toSessionResponse(flow))
}

// SelectMethod records the payer's chosen rail.
func (h *CheckoutHandler) SelectMethod(c echo.Context) error {
	flow, err := h.flow(c)
	if err != nil {
		return h.notFound(c, err)
	}

	var req SelectMethodRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": "Invalid request body",
		})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": err.Error(),
		})
	}

	method, err := session.ParseMethod(req.Method)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": err.Error(),
		})
	}

	flow.SelectMethod(method)
	return c.JSON(http.StatusOK, toSessionResponse(flow))
}

// SetAmount updates the amount to charge.
func (h *CheckoutHandler) SetAmount(c echo.Context) error {
	flow, err := h.flow(c)
	if err != nil {
		return h.notFound(c, err)
	}

	var req SetAmountRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": "Invalid request body",
		})
	}

	flow.SetAmount(req.Amount)
	return c.JSON(http.StatusOK, toSessionResponse(flow))
}

// InitiatePayment starts a payment attempt. The response snapshot carries
// either a redirect_url to navigate to or a pending transaction the UI can
// watch via GetSession.
func (h *CheckoutHandler) InitiatePayment(c echo.Context) error {
	flow, err := h.flow(c)
	if err != nil {
		return h.notFound(c, err)
	}

	if err := flow.InitiatePayment(c.Request().Context()); err != nil {
		h.logger.Error("Payment initiation failed", zap.Error(err))
		return c.JSON(http.StatusConflict, echo.Map{
			"error": err.Error(),
		})
	}
	return c.JSON(http.StatusOK, toSessionResponse(flow))
}

// RetryPayment recovers a declined or offline session.
func (h *CheckoutHandler) RetryPayment(c echo.Context) error {
	flow, err := h.flow(c)
	if err != nil {
		return h.notFound(c, err)
	}
	flow.RetryPayment()
	return c.JSON(http.StatusOK, toSessionResponse(flow))
}

// ResetPayment returns the session to its starting values.
func (h *CheckoutHandler) ResetPayment(c echo.Context) error {
	flow, err := h.flow(c)
	if err != nil {
		return h.notFound(c, err)
	}
	flow.ResetPayment()
	return c.JSON(http.StatusOK, toSessionResponse(flow))
}

// DestroySession tears a session down when the payer navigates away.
func (h *CheckoutHandler) DestroySession(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": "Invalid session id",
		})
	}
	if err := h.manager.Destroy(id); err != nil {
		return h.notFound(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *CheckoutHandler) flow(c echo.Context) (*usecase.CheckoutFlow, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return nil, session.ErrSessionNotFound
	}
	return h.manager.Get(id)
}

func (h *CheckoutHandler) notFound(c echo.Context, err error) error {
	if errors.Is(err, session.ErrSessionNotFound) {
		return c.JSON(http.StatusNotFound, echo.Map{
			"error": "Checkout session not found",
		})
	}
	return c.JSON(http.StatusInternalServerError, echo.Map{
		"error": err.Error(),
	})
}

func toSessionResponse(flow *usecase.CheckoutFlow) SessionResponse {
	snap := flow.Session()
	resp := SessionResponse{
		SessionID:     snap.ID.String(),
		InvoiceID:     snap.InvoiceID,
		InvoiceNumber: snap.InvoiceNumber,
		Status:        string(snap.Status),
		Method:        string(snap.Method),
		Amount:        snap.Amount,
		Currency:      snap.Currency,
		Error:         snap.Error,
		TransactionID: snap.TransactionID,
		RedirectURL:   snap.RedirectURL,
		CanPay:        snap.CanPay(),
	}
	if snap.Receipt != nil {
		resp.Receipt = &ReceiptResponse{
			TransactionID:    snap.Receipt.TransactionID,
			Amount:           snap.Receipt.Amount,
			Method:           string(snap.Receipt.Method),
			Timestamp:        snap.Receipt.Timestamp,
			InvoiceNumber:    snap.Receipt.InvoiceNumber,
			Reference:        snap.Receipt.Reference,
			ReceiptNumber:    snap.Receipt.ReceiptNumber,
			PayerName:        snap.Receipt.PayerName,
			PayerEmail:       snap.Receipt.PayerEmail,
			BusinessName:     snap.Receipt.BusinessName,
			Currency:         snap.Receipt.Currency,
			RemainingBalance: snap.Receipt.RemainingBalance,
		}
	}
	return resp
}
