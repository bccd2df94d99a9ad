package usecase

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/Markwood23/plaen-sub000/internal/domain/provider"
	"github.com/Markwood23/plaen-sub000/internal/domain/session"
	"github.com/Markwood23/plaen-sub000/internal/domain/telemetry"
)

// confirmationPoller asks the provider for the settlement status of one
// transaction at a fixed cadence until a terminal answer arrives or the
// attempt budget runs out. The chain is strictly sequential: the next poll
// is scheduled only after the previous one resolved, so polls for a session
// never overlap or arrive out of order.
type confirmationPoller struct {
	flow          *CheckoutFlow
	gateway       provider.PaymentGateway
	logger        *zap.Logger
	transactionID string
	generation    uint64
	interval      time.Duration
	maxAttempts   int
}

// startPollLocked launches the confirmation poll chain for the current
// attempt. Callers must hold f.mu; the previous chain must already have been
// cancelled via supersedeLocked.
func (f *CheckoutFlow) startPollLocked(gen uint64, transactionID string) {
	ctx, cancel := context.WithCancel(context.Background())
	f.cancelPoll = cancel

	p := &confirmationPoller{
		flow:          f,
		gateway:       f.gateway,
		logger:        f.logger,
		transactionID: transactionID,
		generation:    gen,
		interval:      f.cfg.PollInterval,
		maxAttempts:   f.cfg.MaxPollAttempts,
	}
	go p.run(ctx)
}

func (p *confirmationPoller) run(ctx context.Context) {
	timer := time.NewTimer(p.interval)
	defer timer.Stop()

	for attempt := 1; attempt <= p.maxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		status, err := p.gateway.TransactionStatus(ctx, p.transactionID)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			// Transient poll failures are swallowed: the attempt is consumed
			// and the chain continues on the same schedule.
			p.logger.Debug("Transaction status poll failed",
				zap.String("transaction_id", p.transactionID),
				zap.Int("attempt", attempt),
				zap.Error(err))
			timer.Reset(p.interval)
			continue
		}

		switch {
		case status.Status.Settled():
			p.flow.completeFromPoll(p.generation, p.transactionID, status)
			return
		case status.Status.Declined():
			p.flow.declineFromPoll(p.generation, status)
			return
		default:
			timer.Reset(p.interval)
		}
	}

	p.flow.pollBudgetExhausted(p.generation, p.transactionID)
}

// completeFromPoll resolves the session to success. The generation guard
// makes this, and the completion callback, fire at most once per attempt.
func (f *CheckoutFlow) completeFromPoll(gen uint64, transactionID string, status *provider.TransactionStatus) {
	f.mu.Lock()
	if f.closed || gen != f.generation || f.sess.Status != session.StatusPending {
		f.mu.Unlock()
		return
	}

	receipt := buildReceipt(f.sess, transactionID, status)
	f.sess.Receipt = &receipt
	f.sess.Status = session.StatusSuccess
	f.sess.Error = ""
	f.touchLocked()
	f.cancelPoll = nil

	f.telemetry.Track(telemetry.EventPaymentCompleted, map[string]any{
		"invoice_id":     f.sess.InvoiceID,
		"method":         string(f.sess.Method),
		"amount":         receipt.Amount.String(),
		"transaction_id": transactionID,
	})
	f.logger.Info("Payment confirmed",
		zap.String("invoice_id", f.sess.InvoiceID),
		zap.String("transaction_id", transactionID),
		zap.String("amount", receipt.Amount.String()))

	sessionID := f.sess.ID
	invoiceID := f.sess.InvoiceID
	onComplete := f.onComplete
	f.mu.Unlock()

	f.archiveReceipt(receipt, sessionID, invoiceID)
	if onComplete != nil {
		onComplete(receipt)
	}
}

// declineFromPoll resolves the session to declined with the provider's
// message.
func (f *CheckoutFlow) declineFromPoll(gen uint64, status *provider.TransactionStatus) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed || gen != f.generation || f.sess.Status != session.StatusPending {
		return
	}

	message := status.Message
	if message == "" {
		message = session.MsgPaymentDeclined
	}
	f.cancelPoll = nil
	f.declineLocked(message)
	f.logger.Info("Payment declined by provider",
		zap.String("invoice_id", f.sess.InvoiceID),
		zap.String("transaction_id", f.sess.TransactionID),
		zap.String("message", message))
}

// pollBudgetExhausted surfaces a timeout warning after the attempt budget
// runs out without a terminal provider answer. The session stays pending:
// the payer may have been charged, so the outcome is unknown rather than
// failed, and recovery is an explicit reset or a fresh session.
func (f *CheckoutFlow) pollBudgetExhausted(gen uint64, transactionID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed || gen != f.generation || f.sess.Status != session.StatusPending {
		return
	}

	f.cancelPoll = nil
	f.sess.Error = session.MsgConfirmationTimeout
	f.touchLocked()
	f.logger.Warn("Confirmation poll budget exhausted",
		zap.String("invoice_id", f.sess.InvoiceID),
		zap.String("transaction_id", transactionID),
		zap.Int("attempts", f.cfg.MaxPollAttempts))
}

// buildReceipt folds a settled provider answer into the session's receipt,
// falling back to session fields where the provider omitted values.
func buildReceipt(sess *session.PaymentSession, transactionID string, status *provider.TransactionStatus) session.Receipt {
	receipt := session.Receipt{
		TransactionID:    transactionID,
		Amount:           status.Amount,
		Method:           sess.Method,
		Timestamp:        status.Timestamp,
		InvoiceNumber:    status.InvoiceNumber,
		Reference:        status.Reference,
		ReceiptNumber:    status.ReceiptNumber,
		PayerName:        status.PayerName,
		PayerEmail:       status.PayerEmail,
		BusinessName:     status.BusinessName,
		Currency:         status.Currency,
		RemainingBalance: status.RemainingBalance,
	}
	if receipt.Amount.IsZero() {
		receipt.Amount = sess.Amount
	}
	if receipt.Timestamp.IsZero() {
		receipt.Timestamp = time.Now()
	}
	if receipt.InvoiceNumber == "" {
		receipt.InvoiceNumber = sess.InvoiceNumber
	}
	if receipt.Currency == "" {
		receipt.Currency = sess.Currency
	}
	return receipt
}
