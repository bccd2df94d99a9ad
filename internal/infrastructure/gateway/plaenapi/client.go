package plaenapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Markwood23/plaen-sub000/internal/domain/provider"
)

const defaultTimeout = 15 * time.Second

// Client talks to the Plaen backend's invoice and payment endpoints. Every
// response body is decoded into an explicit payload struct and validated
// before it is handed to the checkout flow.
type Client struct {
	baseURL  string
	apiKey   string
	client   *http.Client
	validate *validator.Validate
	logger   *zap.Logger
}

// NewClient creates a gateway client for the given API base URL.
func NewClient(baseURL, apiKey string, logger *zap.Logger) *Client {
	return &Client{
		baseURL:  baseURL,
		apiKey:   apiKey,
		client:   &http.Client{Timeout: defaultTimeout},
		validate: validator.New(),
		logger:   logger,
	}
}

type invoiceStatusPayload struct {
	Status string `json:"status" validate:"required"`
}

// InvoiceStatus returns the authoritative status of an invoice.
func (c *Client) InvoiceStatus(ctx context.Context, invoiceID string) (provider.InvoiceState, error) {
	url := fmt.Sprintf("%s/v1/invoices/%s/status", c.baseURL, invoiceID)

	body, err := c.get(ctx, url)
	if err != nil {
		return "", err
	}

	var payload invoiceStatusPayload
	if err := c.decode(body, &payload); err != nil {
		return "", err
	}
	return provider.InvoiceState(payload.Status), nil
}

type initiatePayload struct {
	TransactionID string `json:"transaction_id"`
	RedirectURL   string `json:"redirect_url"`
}

// InitiatePayment submits an initiation request for an invoice.
func (c *Client) InitiatePayment(ctx context.Context, req *provider.InitiateRequest) (*provider.InitiateResponse, error) {
	jsonBody, err := json.Marshal(req)
	if err != nil {
		return nil, &provider.ProviderError{
			Code:    "MARSHAL_ERROR",
			Message: "Failed to prepare request",
			Details: err.Error(),
		}
	}

	url := fmt.Sprintf("%s/v1/payments/initiate", c.baseURL)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonBody))
	if err != nil {
		return nil, &provider.ProviderError{
			Code:    "REQUEST_ERROR",
			Message: "Failed to create request",
			Details: err.Error(),
		}
	}
	c.setHeaders(httpReq)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		c.logger.Error("PlaenAPI: Initiation request failed", zap.Error(err))
		return nil, &provider.ProviderError{
			Code:    "API_ERROR",
			Message: "Payment service request failed",
			Details: err.Error(),
		}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &provider.ProviderError{
			Code:    "RESPONSE_ERROR",
			Message: "Failed to read response",
			Details: err.Error(),
		}
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, c.apiError(resp.StatusCode, respBody)
	}

	var payload initiatePayload
	if err := c.decode(respBody, &payload); err != nil {
		return nil, err
	}
	if payload.TransactionID == "" && payload.RedirectURL == "" {
		return nil, &provider.ProviderError{
			Code:    "SCHEMA_ERROR",
			Message: "Initiation response carried neither transaction_id nor redirect_url",
			Details: string(respBody),
		}
	}

	return &provider.InitiateResponse{
		TransactionID: payload.TransactionID,
		RedirectURL:   payload.RedirectURL,
	}, nil
}

type transactionStatusPayload struct {
	Status           string           `json:"status" validate:"required,oneof=success pending failed declined"`
	Amount           decimal.Decimal  `json:"amount"`
	Timestamp        string           `json:"timestamp"`
	InvoiceNumber    string           `json:"invoice_number"`
	Reference        string           `json:"reference"`
	ReceiptNumber    string           `json:"receipt_number"`
	PayerName        string           `json:"payer_name"`
	PayerEmail       string           `json:"payer_email"`
	BusinessName     string           `json:"business_name"`
	Currency         string           `json:"currency"`
	RemainingBalance *decimal.Decimal `json:"remaining_balance"`
	Message          string           `json:"message"`
}

// TransactionStatus returns the settlement status of a transaction.
func (c *Client) TransactionStatus(ctx context.Context, transactionID string) (*provider.TransactionStatus, error) {
	url := fmt.Sprintf("%s/v1/payments/%s/status", c.baseURL, transactionID)

	body, err := c.get(ctx, url)
	if err != nil {
		return nil, err
	}

	var payload transactionStatusPayload
	if err := c.decode(body, &payload); err != nil {
		return nil, err
	}

	status := &provider.TransactionStatus{
		Status:           provider.TransactionState(payload.Status),
		Amount:           payload.Amount,
		InvoiceNumber:    payload.InvoiceNumber,
		Reference:        payload.Reference,
		ReceiptNumber:    payload.ReceiptNumber,
		PayerName:        payload.PayerName,
		PayerEmail:       payload.PayerEmail,
		BusinessName:     payload.BusinessName,
		Currency:         payload.Currency,
		RemainingBalance: payload.RemainingBalance,
		Message:          payload.Message,
	}
	if payload.Timestamp != "" {
		ts, err := time.Parse(time.RFC3339, payload.Timestamp)
		if err != nil {
			c.logger.Warn("PlaenAPI: Unparseable settlement timestamp",
				zap.String("transaction_id", transactionID),
				zap.String("timestamp", payload.Timestamp))
		} else {
			status.Timestamp = ts
		}
	}
	return status, nil
}

func (c *Client) get(ctx context.Context, url string) ([]byte, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &provider.ProviderError{
			Code:    "REQUEST_ERROR",
			Message: "Failed to create request",
			Details: err.Error(),
		}
	}
	c.setHeaders(httpReq)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, &provider.ProviderError{
			Code:    "API_ERROR",
			Message: "Payment service request failed",
			Details: err.Error(),
		}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &provider.ProviderError{
			Code:    "RESPONSE_ERROR",
			Message: "Failed to read response",
			Details: err.Error(),
		}
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, c.apiError(resp.StatusCode, respBody)
	}
	return respBody, nil
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
}

// apiError folds a non-success response into a ProviderError, surfacing the
// backend-provided message when it carries one.
func (c *Client) apiError(statusCode int, body []byte) *provider.ProviderError {
	var errResp struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	json.Unmarshal(body, &errResp)

	if errResp.Code == "" {
		errResp.Code = fmt.Sprintf("HTTP_%d", statusCode)
	}
	return &provider.ProviderError{
		Code:    errResp.Code,
		Message: errResp.Message,
		Details: string(body),
	}
}

// decode unmarshals a payload struct and validates it against its schema
// tags, so malformed upstream answers fail loudly instead of being folded
// into the session.
func (c *Client) decode(body []byte, payload any) error {
	if err := json.Unmarshal(body, payload); err != nil {
		return &provider.ProviderError{
			Code:    "SCHEMA_ERROR",
			Message: "Failed to parse response",
			Details: err.Error(),
		}
	}
	if err := c.validate.Struct(payload); err != nil {
		return &provider.ProviderError{
			Code:    "SCHEMA_ERROR",
			Message: "Response failed schema validation",
			Details: err.Error(),
		}
	}
	return nil
}
