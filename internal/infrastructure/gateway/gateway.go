package gateway

import (
	"context"

	"go.uber.org/zap"

	"github.com/Markwood23/plaen-sub000/internal/config"
	"github.com/Markwood23/plaen-sub000/internal/domain/provider"
	"github.com/Markwood23/plaen-sub000/internal/domain/session"
	"github.com/Markwood23/plaen-sub000/internal/infrastructure/gateway/plaenapi"
	"github.com/Markwood23/plaen-sub000/internal/infrastructure/gateway/stripecheckout"
)

// Selector routes gateway calls by payment rail: momo, bank, and card
// initiations go to the Plaen backend, the external rail goes to the
// Stripe-hosted checkout. Invoice prechecks and transaction status polls
// always go to the backend, which is the source of truth for settlement.
type Selector struct {
	backend  *plaenapi.Client
	external *stripecheckout.Gateway
	logger   *zap.Logger
}

// NewSelector builds the gateway stack from configuration. The external
// rail is optional: without a Stripe key, external initiations fall through
// to the backend like any other rail.
func NewSelector(cfg *config.Config, logger *zap.Logger) *Selector {
	s := &Selector{
		backend: plaenapi.NewClient(cfg.Service.Gateway.BaseURL, cfg.Service.Gateway.APIKey, logger),
		logger:  logger,
	}
	if cfg.Service.Stripe.SecretKey != "" {
		s.external = stripecheckout.New(
			cfg.Service.Stripe.SecretKey,
			cfg.Service.Stripe.SuccessURL,
			cfg.Service.Stripe.CancelURL,
			logger,
		)
	}
	return s
}

func (s *Selector) InvoiceStatus(ctx context.Context, invoiceID string) (provider.InvoiceState, error) {
	return s.backend.InvoiceStatus(ctx, invoiceID)
}

func (s *Selector) InitiatePayment(ctx context.Context, req *provider.InitiateRequest) (*provider.InitiateResponse, error) {
	if req.Method == string(session.MethodExternal) && s.external != nil {
		return s.external.InitiatePayment(ctx, req)
	}
	return s.backend.InitiatePayment(ctx, req)
}

func (s *Selector) TransactionStatus(ctx context.Context, transactionID string) (*provider.TransactionStatus, error) {
	return s.backend.TransactionStatus(ctx, transactionID)
}
