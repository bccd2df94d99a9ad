package session

import "errors"

var (
	// ErrSessionClosed indicates that the session was torn down and accepts
	// no further operations
	ErrSessionClosed = errors.New("checkout session is closed")

	// ErrSessionNotFound indicates that no session exists for the given id
	ErrSessionNotFound = errors.New("checkout session not found")

	// ErrUnknownMethod indicates a payment rail outside the supported set
	ErrUnknownMethod = errors.New("unknown payment method")
)

// User-facing messages attached to PaymentSession.Error. The UI renders them
// verbatim next to the retry affordance.
const (
	MsgSelectMethodAndAmount = "Please select a payment method and enter an amount"
	MsgOffline               = "You appear to be offline. Please check your connection and try again."
	MsgPaymentDeclined       = "Payment could not be completed. Please try again."
	MsgConfirmationTimeout   = "Payment confirmation timed out. If you were charged, it will be reflected on the invoice shortly."
)
