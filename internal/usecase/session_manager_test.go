package usecase_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	"github.com/Markwood23/plaen-sub000/internal/domain/provider"
	"github.com/Markwood23/plaen-sub000/internal/domain/session"
	"github.com/Markwood23/plaen-sub000/internal/usecase"
)

func newTestManager(gateway provider.PaymentGateway) *usecase.SessionManager {
	return usecase.NewSessionManager(
		gateway, stubChecker{online: true}, nil, nil,
		zap.NewNop(), usecase.FlowConfig{},
	)
}

func TestSessionManager_CreateAndGet(t *testing.T) {
	mockGW := new(MockPaymentGateway)
	mockGW.On("InvoiceStatus", mock.Anything, "inv-1").
		Return(provider.InvoiceState("open"), nil)
	manager := newTestManager(mockGW)

	flow := manager.Create(context.Background(), "inv-1", "INV-001", "GHS", decimal.NewFromInt(100))
	snap := flow.Session()
	assert.Equal(t, session.StatusIdle, snap.Status)

	got, err := manager.Get(snap.ID)
	assert.NoError(t, err)
	assert.Same(t, flow, got)
}

func TestSessionManager_CreateRunsPrecheck(t *testing.T) {
	mockGW := new(MockPaymentGateway)
	mockGW.On("InvoiceStatus", mock.Anything, "inv-1").
		Return(provider.InvoiceStatePaid, nil)
	manager := newTestManager(mockGW)

	flow := manager.Create(context.Background(), "inv-1", "INV-001", "GHS", decimal.NewFromInt(100))

	// The terminal answer is visible from the very first snapshot.
	assert.Equal(t, session.StatusAlreadyPaid, flow.Session().Status)
}

func TestSessionManager_GetUnknown(t *testing.T) {
	manager := newTestManager(new(MockPaymentGateway))

	_, err := manager.Get(uuid.New())
	assert.ErrorIs(t, err, session.ErrSessionNotFound)
}

func TestSessionManager_Destroy(t *testing.T) {
	mockGW := new(MockPaymentGateway)
	mockGW.On("InvoiceStatus", mock.Anything, "inv-1").
		Return(provider.InvoiceState("open"), nil)
	manager := newTestManager(mockGW)

	flow := manager.Create(context.Background(), "inv-1", "INV-001", "GHS", decimal.NewFromInt(100))
	id := flow.Session().ID

	assert.NoError(t, manager.Destroy(id))
	_, err := manager.Get(id)
	assert.ErrorIs(t, err, session.ErrSessionNotFound)

	// The destroyed flow accepts no further operations.
	assert.ErrorIs(t, flow.InitiatePayment(context.Background()), session.ErrSessionClosed)

	assert.ErrorIs(t, manager.Destroy(id), session.ErrSessionNotFound)
}

func TestSessionManager_CloseAll(t *testing.T) {
	mockGW := new(MockPaymentGateway)
	mockGW.On("InvoiceStatus", mock.Anything, mock.Anything).
		Return(provider.InvoiceState("open"), nil)
	manager := newTestManager(mockGW)

	first := manager.Create(context.Background(), "inv-1", "INV-001", "GHS", decimal.NewFromInt(100))
	second := manager.Create(context.Background(), "inv-2", "INV-002", "GHS", decimal.NewFromInt(50))

	manager.CloseAll()

	assert.ErrorIs(t, first.InitiatePayment(context.Background()), session.ErrSessionClosed)
	assert.ErrorIs(t, second.InitiatePayment(context.Background()), session.ErrSessionClosed)
}
