package usecase

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Markwood23/plaen-sub000/internal/domain/connectivity"
	"github.com/Markwood23/plaen-sub000/internal/domain/model"
	"github.com/Markwood23/plaen-sub000/internal/domain/provider"
	domainRepo "github.com/Markwood23/plaen-sub000/internal/domain/repository"
	"github.com/Markwood23/plaen-sub000/internal/domain/session"
	"github.com/Markwood23/plaen-sub000/internal/domain/telemetry"
)

const (
	defaultPollInterval    = 5 * time.Second
	defaultMaxPollAttempts = 60
)

// FlowConfig tunes the confirmation poller.
type FlowConfig struct {
	PollInterval    time.Duration
	MaxPollAttempts int
}

func (c FlowConfig) withDefaults() FlowConfig {
	if c.PollInterval <= 0 {
		c.PollInterval = defaultPollInterval
	}
	if c.MaxPollAttempts <= 0 {
		c.MaxPollAttempts = defaultMaxPollAttempts
	}
	return c
}

// CompletionFunc receives the receipt once, when a session settles.
type CompletionFunc func(receipt session.Receipt)

// CheckoutFlow coordinates one payment session: method/amount selection,
// initiation, the redirect-vs-poll branch, and terminal resolution. All
// session mutations go through the flow, which serializes them; the
// confirmation poll runs as a single cancellable goroutine whose results are
// discarded if the attempt they belong to has been superseded.
type CheckoutFlow struct {
	mu   sync.Mutex
	sess *session.PaymentSession

	gateway   provider.PaymentGateway
	net       connectivity.Checker
	telemetry telemetry.Tracker
	receipts  domainRepo.ReceiptRepository
	logger    *zap.Logger

	cfg        FlowConfig
	onComplete CompletionFunc

	// generation identifies the current payment attempt. Every operation
	// that abandons the attempt in flight bumps it, so results from a stale
	// initiation call or poll chain can never touch the session again.
	generation uint64
	cancelPoll context.CancelFunc
	closed     bool
}

// NewCheckoutFlow wires a session to its collaborators. The tracker,
// connectivity checker, receipt repository, and completion callback are all
// optional.
func NewCheckoutFlow(
	sess *session.PaymentSession,
	gateway provider.PaymentGateway,
	net connectivity.Checker,
	tracker telemetry.Tracker,
	receipts domainRepo.ReceiptRepository,
	logger *zap.Logger,
	cfg FlowConfig,
	onComplete CompletionFunc,
) *CheckoutFlow {
	if net == nil {
		net = connectivity.AlwaysOnline{}
	}
	if tracker == nil {
		tracker = telemetry.Noop{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CheckoutFlow{
		sess:       sess,
		gateway:    gateway,
		net:        net,
		telemetry:  tracker,
		receipts:   receipts,
		logger:     logger,
		cfg:        cfg.withDefaults(),
		onComplete: onComplete,
	}
}

// Start runs the invoice status precheck once. A "paid" or "expired" answer
// short-circuits the session into its terminal state before the payer can
// interact; a precheck failure is non-fatal because the backend will reject
// initiation itself if the invoice truly cannot be paid.
func (f *CheckoutFlow) Start(ctx context.Context) {
	state, err := f.gateway.InvoiceStatus(ctx, f.invoiceID())
	if err != nil {
		f.logger.Warn("Invoice precheck failed, assuming invoice is payable",
			zap.String("invoice_id", f.invoiceID()),
			zap.Error(err))
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed || f.sess.Status != session.StatusIdle {
		return
	}

	switch state {
	case provider.InvoiceStatePaid:
		f.sess.Status = session.StatusAlreadyPaid
		f.touchLocked()
		f.logger.Info("Invoice already paid, session closed to payment",
			zap.String("invoice_id", f.sess.InvoiceID))
	case provider.InvoiceStateExpired:
		f.sess.Status = session.StatusExpired
		f.touchLocked()
		f.logger.Info("Invoice expired, session closed to payment",
			zap.String("invoice_id", f.sess.InvoiceID))
	}
}

// SelectMethod records the payer's chosen rail and moves the session to
// selecting. It is rejected from terminal states and from declined/offline,
// which are recoverable only through RetryPayment. Choosing a method while an
// attempt is in flight abandons that attempt.
func (f *CheckoutFlow) SelectMethod(method session.Method) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed || f.sess.Status.Terminal() || f.sess.Status.Retryable() {
		return
	}

	f.supersedeLocked()
	f.sess.Method = method
	f.sess.Error = ""
	f.sess.Status = session.StatusSelecting
	f.touchLocked()

	f.telemetry.Track(telemetry.EventMethodSelected, map[string]any{
		"invoice_id": f.sess.InvoiceID,
		"method":     string(method),
	})
}

// SetAmount updates the amount to charge. Legal from any state and never
// changes the status: the amount may be adjusted right up until initiation.
func (f *CheckoutFlow) SetAmount(amount decimal.Decimal) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	f.sess.Amount = amount
	f.sess.Error = ""
	f.touchLocked()
}

// InitiatePayment turns the selected (method, amount) pair into either a
// redirect to a rail-hosted checkout or a pending transaction with a
// confirmation poll. Validation failures set the session error without a
// transition; calls while an attempt is in flight or from a terminal or
// retry-only state are no-ops.
func (f *CheckoutFlow) InitiatePayment(ctx context.Context) error {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return session.ErrSessionClosed
	}
	if f.sess.Status.InFlight() || f.sess.Status.Terminal() || f.sess.Status.Retryable() {
		f.mu.Unlock()
		return nil
	}
	if f.sess.Method == "" || !f.sess.Amount.IsPositive() {
		f.sess.Error = session.MsgSelectMethodAndAmount
		f.touchLocked()
		f.mu.Unlock()
		return nil
	}

	gen := f.supersedeLocked()
	f.sess.Error = ""
	f.sess.RedirectURL = ""
	f.sess.Status = session.StatusProcessing
	f.touchLocked()

	// Re-check connectivity immediately before the network call so a known
	// dead network fails fast instead of hanging a request.
	if !f.net.Online(ctx) {
		f.sess.Status = session.StatusOffline
		f.sess.Error = session.MsgOffline
		f.touchLocked()
		f.mu.Unlock()
		return nil
	}

	req := &provider.InitiateRequest{
		InvoiceID: f.sess.InvoiceID,
		Method:    string(f.sess.Method),
		Amount:    f.sess.Amount,
		Currency:  f.sess.Currency,
	}
	f.telemetry.Track(telemetry.EventPaymentInitiated, map[string]any{
		"invoice_id": f.sess.InvoiceID,
		"method":     string(f.sess.Method),
		"amount":     f.sess.Amount.String(),
	})
	f.mu.Unlock()

	resp, err := f.gateway.InitiatePayment(ctx, req)

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed || gen != f.generation || f.sess.Status != session.StatusProcessing {
		// The attempt was abandoned while the request was in flight.
		return nil
	}

	if err != nil {
		f.declineLocked(providerMessage(err))
		f.logger.Warn("Payment initiation rejected",
			zap.String("invoice_id", f.sess.InvoiceID),
			zap.String("method", string(f.sess.Method)),
			zap.Error(err))
		return nil
	}

	if resp.TransactionID != "" {
		f.sess.TransactionID = resp.TransactionID
	}

	if resp.RedirectURL != "" {
		// Rail-hosted checkout: the payer leaves for the provider's page and
		// settlement confirmation happens out of band via the callback URL.
		f.sess.RedirectURL = resp.RedirectURL
		f.touchLocked()
		f.logger.Info("Redirecting payer to rail-hosted checkout",
			zap.String("invoice_id", f.sess.InvoiceID),
			zap.String("transaction_id", f.sess.TransactionID))
		return nil
	}

	if resp.TransactionID == "" {
		// Neither a redirect nor a trackable transaction: treat the malformed
		// answer as a decline rather than leaving the session stuck.
		f.declineLocked(session.MsgPaymentDeclined)
		f.logger.Error("Initiation response carried no transaction id or redirect",
			zap.String("invoice_id", f.sess.InvoiceID))
		return nil
	}

	f.sess.Status = session.StatusPending
	f.touchLocked()
	f.startPollLocked(gen, f.sess.TransactionID)
	f.logger.Info("Payment pending, confirmation poll started",
		zap.String("invoice_id", f.sess.InvoiceID),
		zap.String("transaction_id", f.sess.TransactionID))
	return nil
}

// RetryPayment recovers from a decline or an offline failure. The previously
// chosen method is preserved so the payer need not reselect it.
func (f *CheckoutFlow) RetryPayment() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed || !f.sess.Status.Retryable() {
		return
	}

	f.supersedeLocked()
	f.sess.Error = ""
	f.sess.TransactionID = ""
	f.sess.RedirectURL = ""
	f.sess.Status = session.StatusSelecting
	f.touchLocked()
}

// ResetPayment returns the session to its starting values from any state,
// cancelling any in-flight attempt.
func (f *CheckoutFlow) ResetPayment() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	f.supersedeLocked()
	f.sess.Reset()
}

// CanPay reports whether the payer may initiate a payment right now.
func (f *CheckoutFlow) CanPay() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sess.CanPay()
}

// Session returns a snapshot of the current session state.
func (f *CheckoutFlow) Session() session.PaymentSession {
	f.mu.Lock()
	defer f.mu.Unlock()
	snap := *f.sess
	if f.sess.Receipt != nil {
		receipt := *f.sess.Receipt
		snap.Receipt = &receipt
	}
	return snap
}

// Close tears the session down, releasing any scheduled poll. Operations on
// a closed flow are no-ops.
func (f *CheckoutFlow) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	f.closed = true
	f.supersedeLocked()
}

// supersedeLocked abandons the current attempt: it bumps the generation and
// cancels the active poll chain, if any. Callers must hold f.mu.
func (f *CheckoutFlow) supersedeLocked() uint64 {
	f.generation++
	if f.cancelPoll != nil {
		f.cancelPoll()
		f.cancelPoll = nil
	}
	return f.generation
}

// declineLocked moves the session to declined with the given message and
// reports the failure. Callers must hold f.mu.
func (f *CheckoutFlow) declineLocked(message string) {
	f.sess.Status = session.StatusDeclined
	f.sess.Error = message
	f.touchLocked()

	f.telemetry.Track(telemetry.EventPaymentFailed, map[string]any{
		"invoice_id": f.sess.InvoiceID,
		"method":     string(f.sess.Method),
		"error":      message,
	})
}

func (f *CheckoutFlow) touchLocked() {
	f.sess.UpdatedAt = time.Now()
}

func (f *CheckoutFlow) invoiceID() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sess.InvoiceID
}

// archiveReceipt persists a settled receipt. Archive failures never affect
// the session outcome.
func (f *CheckoutFlow) archiveReceipt(receipt session.Receipt, sessionID uuid.UUID, invoiceID string) {
	if f.receipts == nil {
		return
	}

	record := &model.ReceiptRecord{
		SessionID:     sessionID,
		InvoiceID:     invoiceID,
		TransactionID: receipt.TransactionID,
		InvoiceNumber: receipt.InvoiceNumber,
		Reference:     receipt.Reference,
		Method:        string(receipt.Method),
		Amount:        receipt.Amount,
		Currency:      receipt.Currency,
		SettledAt:     receipt.Timestamp,
	}
	if receipt.ReceiptNumber != "" {
		record.ReceiptNumber = &receipt.ReceiptNumber
	}
	if receipt.PayerName != "" {
		record.PayerName = &receipt.PayerName
	}
	if receipt.PayerEmail != "" {
		record.PayerEmail = &receipt.PayerEmail
	}
	if receipt.BusinessName != "" {
		record.BusinessName = &receipt.BusinessName
	}
	record.RemainingBalance = receipt.RemainingBalance

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := f.receipts.Save(ctx, record); err != nil {
		f.logger.Error("Failed to archive receipt",
			zap.String("transaction_id", receipt.TransactionID),
			zap.Error(err))
	}
}

// providerMessage extracts the provider-supplied message from a gateway
// error, falling back to the generic decline message.
func providerMessage(err error) string {
	var perr *provider.ProviderError
	if errors.As(err, &perr) && perr.Message != "" {
		return perr.Message
	}
	return session.MsgPaymentDeclined
}
