package usecase

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Markwood23/plaen-sub000/internal/domain/connectivity"
	"github.com/Markwood23/plaen-sub000/internal/domain/provider"
	domainRepo "github.com/Markwood23/plaen-sub000/internal/domain/repository"
	"github.com/Markwood23/plaen-sub000/internal/domain/session"
	"github.com/Markwood23/plaen-sub000/internal/domain/telemetry"
)

// SessionManager owns the live checkout flows, one per payment attempt. It
// creates a flow when the payment UI mounts for an invoice and tears it down
// when the payer navigates away, guaranteeing the poll timer of a discarded
// session is released.
type SessionManager struct {
	mu    sync.RWMutex
	flows map[uuid.UUID]*CheckoutFlow

	gateway   provider.PaymentGateway
	net       connectivity.Checker
	telemetry telemetry.Tracker
	receipts  domainRepo.ReceiptRepository
	logger    *zap.Logger
	cfg       FlowConfig
}

// NewSessionManager creates a session manager with shared collaborators for
// all flows it creates.
func NewSessionManager(
	gateway provider.PaymentGateway,
	net connectivity.Checker,
	tracker telemetry.Tracker,
	receipts domainRepo.ReceiptRepository,
	logger *zap.Logger,
	cfg FlowConfig,
) *SessionManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionManager{
		flows:     make(map[uuid.UUID]*CheckoutFlow),
		gateway:   gateway,
		net:       net,
		telemetry: tracker,
		receipts:  receipts,
		logger:    logger,
		cfg:       cfg,
	}
}

// Create opens a new session for an invoice and runs the status precheck
// before returning, so an already-paid or expired invoice is reported
// terminal from the first snapshot.
func (m *SessionManager) Create(ctx context.Context, invoiceID, invoiceNumber, currency string, amount decimal.Decimal) *CheckoutFlow {
	sess := session.New(invoiceID, invoiceNumber, currency, amount)
	flow := NewCheckoutFlow(sess, m.gateway, m.net, m.telemetry, m.receipts, m.logger, m.cfg, nil)
	flow.Start(ctx)

	m.mu.Lock()
	m.flows[sess.ID] = flow
	m.mu.Unlock()

	m.logger.Info("Checkout session created",
		zap.String("session_id", sess.ID.String()),
		zap.String("invoice_id", invoiceID),
		zap.String("amount", amount.String()))
	return flow
}

// Get returns the flow for a session id.
func (m *SessionManager) Get(id uuid.UUID) (*CheckoutFlow, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	flow, ok := m.flows[id]
	if !ok {
		return nil, session.ErrSessionNotFound
	}
	return flow, nil
}

// Destroy tears a session down and forgets it.
func (m *SessionManager) Destroy(id uuid.UUID) error {
	m.mu.Lock()
	flow, ok := m.flows[id]
	if ok {
		delete(m.flows, id)
	}
	m.mu.Unlock()

	if !ok {
		return session.ErrSessionNotFound
	}
	flow.Close()
	m.logger.Info("Checkout session destroyed", zap.String("session_id", id.String()))
	return nil
}

// CloseAll tears down every live session. Used on service shutdown.
func (m *SessionManager) CloseAll() {
	m.mu.Lock()
	flows := make([]*CheckoutFlow, 0, len(m.flows))
	for id, flow := range m.flows {
		flows = append(flows, flow)
		delete(m.flows, id)
	}
	m.mu.Unlock()

	for _, flow := range flows {
		flow.Close()
	}
	if len(flows) > 0 {
		m.logger.Info("Closed all checkout sessions", zap.Int("count", len(flows)))
	}
}
