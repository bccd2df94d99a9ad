package stripecheckout

import (
	"context"
	"errors"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v79"
	checkoutsession "github.com/stripe/stripe-go/v79/checkout/session"
	"go.uber.org/zap"

	"github.com/Markwood23/plaen-sub000/internal/domain/provider"
)

// Gateway implements the external payment rail: a Stripe-hosted checkout
// page the payer is redirected to. Settlement confirmation for this rail
// happens out of band via the success callback URL, so initiation always
// returns a redirect and never a pollable transaction.
type Gateway struct {
	successURL string
	cancelURL  string
	logger     *zap.Logger
}

// New configures the Stripe client and returns the gateway.
func New(secretKey, successURL, cancelURL string, logger *zap.Logger) *Gateway {
	stripe.Key = secretKey
	return &Gateway{
		successURL: successURL,
		cancelURL:  cancelURL,
		logger:     logger,
	}
}

// InitiatePayment creates a hosted checkout session for the invoice and
// returns its URL as the redirect target.
func (g *Gateway) InitiatePayment(ctx context.Context, req *provider.InitiateRequest) (*provider.InitiateResponse, error) {
	currency := strings.ToLower(req.Currency)
	if currency == "" {
		currency = "usd"
	}
	unitAmount := req.Amount.Mul(decimal.NewFromInt(100)).IntPart()

	params := &stripe.CheckoutSessionParams{
		Mode: stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripe.String(currency),
					UnitAmount: stripe.Int64(unitAmount),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String("Invoice " + req.InvoiceID),
					},
				},
				Quantity: stripe.Int64(1),
			},
		},
		ClientReferenceID: stripe.String(req.InvoiceID),
		SuccessURL:        stripe.String(g.successURL),
		CancelURL:         stripe.String(g.cancelURL),
	}
	params.Context = ctx

	s, err := checkoutsession.New(params)
	if err != nil {
		g.logger.Error("Stripe checkout session creation failed",
			zap.String("invoice_id", req.InvoiceID),
			zap.Error(err))
		return nil, asProviderError(err)
	}

	g.logger.Info("Stripe checkout session created",
		zap.String("invoice_id", req.InvoiceID),
		zap.String("checkout_session_id", s.ID))

	return &provider.InitiateResponse{
		TransactionID: s.ID,
		RedirectURL:   s.URL,
	}, nil
}

// asProviderError converts a Stripe error into the gateway's typed error,
// keeping the user-facing message Stripe supplies.
func asProviderError(err error) *provider.ProviderError {
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		return &provider.ProviderError{
			Code:    string(stripeErr.Code),
			Message: stripeErr.Msg,
			Details: stripeErr.Error(),
		}
	}
	return &provider.ProviderError{
		Code:    "STRIPE_ERROR",
		Message: "External checkout could not be started",
		Details: err.Error(),
	}
}
