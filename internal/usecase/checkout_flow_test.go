package usecase_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	"github.com/Markwood23/plaen-sub000/internal/domain/model"
	"github.com/Markwood23/plaen-sub000/internal/domain/provider"
	"github.com/Markwood23/plaen-sub000/internal/domain/session"
	"github.com/Markwood23/plaen-sub000/internal/domain/telemetry"
	"github.com/Markwood23/plaen-sub000/internal/usecase"
)

// MockPaymentGateway is a mock implementation of provider.PaymentGateway
type MockPaymentGateway struct {
	mock.Mock
}

func (m *MockPaymentGateway) InvoiceStatus(ctx context.Context, invoiceID string) (provider.InvoiceState, error) {
	args := m.Called(ctx, invoiceID)
	return args.Get(0).(provider.InvoiceState), args.Error(1)
}

func (m *MockPaymentGateway) InitiatePayment(ctx context.Context, req *provider.InitiateRequest) (*provider.InitiateResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*provider.InitiateResponse), args.Error(1)
}

func (m *MockPaymentGateway) TransactionStatus(ctx context.Context, transactionID string) (*provider.TransactionStatus, error) {
	args := m.Called(ctx, transactionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*provider.TransactionStatus), args.Error(1)
}

// MockReceiptRepository is a mock implementation of repository.ReceiptRepository
type MockReceiptRepository struct {
	mock.Mock
}

func (m *MockReceiptRepository) Save(ctx context.Context, receipt *model.ReceiptRecord) error {
	args := m.Called(ctx, receipt)
	return args.Error(0)
}

func (m *MockReceiptRepository) GetByTransactionID(ctx context.Context, transactionID string) (*model.ReceiptRecord, error) {
	args := m.Called(ctx, transactionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ReceiptRecord), args.Error(1)
}

func (m *MockReceiptRepository) GetByInvoiceID(ctx context.Context, invoiceID string) ([]*model.ReceiptRecord, error) {
	args := m.Called(ctx, invoiceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.ReceiptRecord), args.Error(1)
}

// recordingTracker captures telemetry events for assertions. It is safe for
// concurrent use because the poller tracks from its own goroutine.
type recordingTracker struct {
	mu     sync.Mutex
	events []trackedEvent
}

type trackedEvent struct {
	name    string
	payload map[string]any
}

func (r *recordingTracker) Track(event string, payload map[string]any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, trackedEvent{name: event, payload: payload})
}

func (r *recordingTracker) names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, len(r.events))
	for i, e := range r.events {
		names[i] = e.name
	}
	return names
}

func (r *recordingTracker) count(event string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e.name == event {
			n++
		}
	}
	return n
}

type stubChecker struct {
	online bool
}

func (c stubChecker) Online(context.Context) bool { return c.online }

func newTestSession() *session.PaymentSession {
	return session.New("inv-1", "INV-001", "GHS", decimal.NewFromInt(100))
}

func newTestFlow(gateway provider.PaymentGateway, tracker *recordingTracker) *usecase.CheckoutFlow {
	// Pass an untyped nil when no tracker is supplied, so the constructor's
	// nil check sees a nil interface rather than a typed nil pointer.
	var t telemetry.Tracker
	if tracker != nil {
		t = tracker
	}
	return usecase.NewCheckoutFlow(
		newTestSession(),
		gateway,
		stubChecker{online: true},
		t,
		nil,
		zap.NewNop(),
		usecase.FlowConfig{PollInterval: 10 * time.Millisecond, MaxPollAttempts: 5},
		nil,
	)
}

func TestCheckoutFlow_Start(t *testing.T) {
	ctx := context.Background()

	t.Run("paid invoice closes the session before interaction", func(t *testing.T) {
		mockGW := new(MockPaymentGateway)
		mockGW.On("InvoiceStatus", ctx, "inv-1").Return(provider.InvoiceStatePaid, nil)
		flow := newTestFlow(mockGW, nil)

		flow.Start(ctx)

		assert.Equal(t, session.StatusAlreadyPaid, flow.Session().Status)

		// No payment operation may move the session out of already_paid.
		flow.SelectMethod(session.MethodMomo)
		assert.Equal(t, session.StatusAlreadyPaid, flow.Session().Status)
		assert.NoError(t, flow.InitiatePayment(ctx))
		assert.Equal(t, session.StatusAlreadyPaid, flow.Session().Status)
		mockGW.AssertNotCalled(t, "InitiatePayment", mock.Anything, mock.Anything)
	})

	t.Run("expired invoice closes the session", func(t *testing.T) {
		mockGW := new(MockPaymentGateway)
		mockGW.On("InvoiceStatus", ctx, "inv-1").Return(provider.InvoiceStateExpired, nil)
		flow := newTestFlow(mockGW, nil)

		flow.Start(ctx)

		assert.Equal(t, session.StatusExpired, flow.Session().Status)
	})

	t.Run("precheck failure leaves the session payable", func(t *testing.T) {
		mockGW := new(MockPaymentGateway)
		mockGW.On("InvoiceStatus", ctx, "inv-1").
			Return(provider.InvoiceState(""), &provider.ProviderError{Code: "UPSTREAM", Message: "backend unavailable"})
		flow := newTestFlow(mockGW, nil)

		flow.Start(ctx)

		assert.Equal(t, session.StatusIdle, flow.Session().Status)
	})
}

func TestCheckoutFlow_SelectMethod(t *testing.T) {
	t.Run("records the method and moves to selecting", func(t *testing.T) {
		tracker := &recordingTracker{}
		flow := newTestFlow(new(MockPaymentGateway), tracker)

		flow.SelectMethod(session.MethodMomo)

		snap := flow.Session()
		assert.Equal(t, session.StatusSelecting, snap.Status)
		assert.Equal(t, session.MethodMomo, snap.Method)
		assert.Empty(t, snap.Error)
		assert.Equal(t, []string{"payment_method_selected"}, tracker.names())
	})

	t.Run("switching methods clears a previous validation error", func(t *testing.T) {
		flow := newTestFlow(new(MockPaymentGateway), nil)
		flow.SetAmount(decimal.Zero)
		assert.NoError(t, flow.InitiatePayment(context.Background()))
		assert.Equal(t, session.MsgSelectMethodAndAmount, flow.Session().Error)

		flow.SelectMethod(session.MethodBank)
		assert.Empty(t, flow.Session().Error)
	})

	t.Run("rejected from declined", func(t *testing.T) {
		mockGW := new(MockPaymentGateway)
		mockGW.On("InitiatePayment", mock.Anything, mock.Anything).
			Return(nil, &provider.ProviderError{Code: "DECLINED", Message: "Insufficient funds"})
		flow := newTestFlow(mockGW, nil)

		flow.SelectMethod(session.MethodMomo)
		assert.NoError(t, flow.InitiatePayment(context.Background()))
		assert.Equal(t, session.StatusDeclined, flow.Session().Status)

		flow.SelectMethod(session.MethodBank)
		snap := flow.Session()
		assert.Equal(t, session.StatusDeclined, snap.Status)
		assert.Equal(t, session.MethodMomo, snap.Method)
	})
}

func TestCheckoutFlow_SetAmount(t *testing.T) {
	flow := newTestFlow(new(MockPaymentGateway), nil)
	flow.SelectMethod(session.MethodCard)

	flow.SetAmount(decimal.NewFromFloat(42.25))

	snap := flow.Session()
	assert.True(t, snap.Amount.Equal(decimal.NewFromFloat(42.25)))
	assert.Equal(t, session.StatusSelecting, snap.Status)
}

func TestCheckoutFlow_InitiatePayment(t *testing.T) {
	ctx := context.Background()

	t.Run("missing method sets the validation message without a transition", func(t *testing.T) {
		mockGW := new(MockPaymentGateway)
		tracker := &recordingTracker{}
		flow := newTestFlow(mockGW, tracker)

		assert.NoError(t, flow.InitiatePayment(ctx))

		snap := flow.Session()
		assert.Equal(t, session.StatusIdle, snap.Status)
		assert.Equal(t, session.MsgSelectMethodAndAmount, snap.Error)
		assert.Empty(t, tracker.names())
		mockGW.AssertNotCalled(t, "InitiatePayment", mock.Anything, mock.Anything)
	})

	t.Run("non-positive amount sets the validation message", func(t *testing.T) {
		flow := newTestFlow(new(MockPaymentGateway), nil)
		flow.SelectMethod(session.MethodMomo)
		flow.SetAmount(decimal.Zero)

		assert.NoError(t, flow.InitiatePayment(ctx))

		snap := flow.Session()
		assert.Equal(t, session.StatusSelecting, snap.Status)
		assert.Equal(t, session.MsgSelectMethodAndAmount, snap.Error)
	})

	t.Run("offline fails fast without a network call", func(t *testing.T) {
		mockGW := new(MockPaymentGateway)
		tracker := &recordingTracker{}
		flow := usecase.NewCheckoutFlow(
			newTestSession(), mockGW, stubChecker{online: false}, tracker, nil,
			zap.NewNop(), usecase.FlowConfig{}, nil,
		)
		flow.SelectMethod(session.MethodMomo)

		assert.NoError(t, flow.InitiatePayment(ctx))

		snap := flow.Session()
		assert.Equal(t, session.StatusOffline, snap.Status)
		assert.Equal(t, session.MsgOffline, snap.Error)
		mockGW.AssertNotCalled(t, "InitiatePayment", mock.Anything, mock.Anything)
	})

	t.Run("provider rejection declines with the provider message", func(t *testing.T) {
		mockGW := new(MockPaymentGateway)
		mockGW.On("InitiatePayment", mock.Anything, mock.MatchedBy(func(req *provider.InitiateRequest) bool {
			return req.InvoiceID == "inv-1" && req.Method == "momo"
		})).Return(nil, &provider.ProviderError{Code: "DECLINED", Message: "Insufficient funds"})
		tracker := &recordingTracker{}
		flow := newTestFlow(mockGW, tracker)
		flow.SelectMethod(session.MethodMomo)

		assert.NoError(t, flow.InitiatePayment(ctx))

		snap := flow.Session()
		assert.Equal(t, session.StatusDeclined, snap.Status)
		assert.Equal(t, "Insufficient funds", snap.Error)
		assert.Equal(t, 1, tracker.count("payment_initiated"))
		assert.Equal(t, 1, tracker.count("payment_failed"))
		mockGW.AssertExpectations(t)
	})

	t.Run("redirect answer stores the URL and skips polling", func(t *testing.T) {
		mockGW := new(MockPaymentGateway)
		mockGW.On("InitiatePayment", mock.Anything, mock.Anything).
			Return(&provider.InitiateResponse{
				TransactionID: "txn-ext",
				RedirectURL:   "https://checkout.example.com/txn-ext",
			}, nil)
		flow := newTestFlow(mockGW, nil)
		flow.SelectMethod(session.MethodExternal)

		assert.NoError(t, flow.InitiatePayment(ctx))

		snap := flow.Session()
		assert.Equal(t, session.StatusProcessing, snap.Status)
		assert.Equal(t, "https://checkout.example.com/txn-ext", snap.RedirectURL)
		assert.Equal(t, "txn-ext", snap.TransactionID)

		time.Sleep(60 * time.Millisecond)
		mockGW.AssertNotCalled(t, "TransactionStatus", mock.Anything, mock.Anything)
	})

	t.Run("answer with neither transaction nor redirect declines", func(t *testing.T) {
		mockGW := new(MockPaymentGateway)
		mockGW.On("InitiatePayment", mock.Anything, mock.Anything).
			Return(&provider.InitiateResponse{}, nil)
		flow := newTestFlow(mockGW, nil)
		flow.SelectMethod(session.MethodBank)

		assert.NoError(t, flow.InitiatePayment(ctx))

		snap := flow.Session()
		assert.Equal(t, session.StatusDeclined, snap.Status)
		assert.Equal(t, session.MsgPaymentDeclined, snap.Error)
	})

	t.Run("second initiation while pending is a no-op", func(t *testing.T) {
		mockGW := new(MockPaymentGateway)
		mockGW.On("InitiatePayment", mock.Anything, mock.Anything).
			Return(&provider.InitiateResponse{TransactionID: "txn-1"}, nil).Once()
		mockGW.On("TransactionStatus", mock.Anything, "txn-1").
			Return(&provider.TransactionStatus{Status: provider.TransactionPending}, nil)
		flow := newTestFlow(mockGW, nil)
		flow.SelectMethod(session.MethodMomo)

		assert.NoError(t, flow.InitiatePayment(ctx))
		assert.Equal(t, session.StatusPending, flow.Session().Status)

		assert.NoError(t, flow.InitiatePayment(ctx))
		mockGW.AssertNumberOfCalls(t, "InitiatePayment", 1)

		flow.Close()
	})

	t.Run("closed flow returns an error", func(t *testing.T) {
		flow := newTestFlow(new(MockPaymentGateway), nil)
		flow.Close()
		assert.ErrorIs(t, flow.InitiatePayment(ctx), session.ErrSessionClosed)
	})
}

func TestCheckoutFlow_RetryPayment(t *testing.T) {
	ctx := context.Background()

	t.Run("recovers from declined and preserves the method", func(t *testing.T) {
		mockGW := new(MockPaymentGateway)
		mockGW.On("InitiatePayment", mock.Anything, mock.Anything).
			Return(nil, &provider.ProviderError{Code: "DECLINED", Message: "Insufficient funds"})
		flow := newTestFlow(mockGW, nil)
		flow.SelectMethod(session.MethodMomo)
		assert.NoError(t, flow.InitiatePayment(ctx))
		assert.Equal(t, session.StatusDeclined, flow.Session().Status)

		flow.RetryPayment()

		snap := flow.Session()
		assert.Equal(t, session.StatusSelecting, snap.Status)
		assert.Equal(t, session.MethodMomo, snap.Method)
		assert.Empty(t, snap.Error)
		assert.Empty(t, snap.TransactionID)
		assert.True(t, flow.CanPay())
	})

	t.Run("recovers from offline", func(t *testing.T) {
		flow := usecase.NewCheckoutFlow(
			newTestSession(), new(MockPaymentGateway), stubChecker{online: false}, nil, nil,
			zap.NewNop(), usecase.FlowConfig{}, nil,
		)
		flow.SelectMethod(session.MethodBank)
		assert.NoError(t, flow.InitiatePayment(ctx))
		assert.Equal(t, session.StatusOffline, flow.Session().Status)

		flow.RetryPayment()
		assert.Equal(t, session.StatusSelecting, flow.Session().Status)
	})

	t.Run("no-op outside declined and offline", func(t *testing.T) {
		flow := newTestFlow(new(MockPaymentGateway), nil)
		flow.SelectMethod(session.MethodCard)

		flow.RetryPayment()
		assert.Equal(t, session.StatusSelecting, flow.Session().Status)
		assert.Equal(t, session.MethodCard, flow.Session().Method)
	})
}

func TestCheckoutFlow_ResetPayment(t *testing.T) {
	mockGW := new(MockPaymentGateway)
	mockGW.On("InitiatePayment", mock.Anything, mock.Anything).
		Return(nil, &provider.ProviderError{Code: "DECLINED", Message: "Insufficient funds"})
	flow := newTestFlow(mockGW, nil)
	flow.SelectMethod(session.MethodMomo)
	flow.SetAmount(decimal.NewFromInt(40))
	assert.NoError(t, flow.InitiatePayment(context.Background()))

	flow.ResetPayment()

	snap := flow.Session()
	assert.Equal(t, session.StatusIdle, snap.Status)
	assert.Empty(t, snap.Method)
	assert.True(t, snap.Amount.Equal(decimal.NewFromInt(100)))
	assert.Empty(t, snap.Error)
}

func TestCheckoutFlow_CanPay(t *testing.T) {
	flow := newTestFlow(new(MockPaymentGateway), nil)

	assert.False(t, flow.CanPay())

	flow.SelectMethod(session.MethodMomo)
	assert.True(t, flow.CanPay())

	flow.SetAmount(decimal.Zero)
	assert.False(t, flow.CanPay())

	flow.SetAmount(decimal.NewFromInt(10))
	assert.True(t, flow.CanPay())
}
