package telemetry

// Event names emitted by the checkout flow.
const (
	EventMethodSelected   = "payment_method_selected"
	EventPaymentInitiated = "payment_initiated"
	EventPaymentCompleted = "payment_completed"
	EventPaymentFailed    = "payment_failed"
)

// Tracker is the telemetry port. Implementations must not block: events are
// fire-and-forget and a slow or failing sink must never delay a payment
// operation.
type Tracker interface {
	Track(event string, payload map[string]any)
}

// Noop is the Tracker used when no telemetry sink is configured.
type Noop struct{}

func (Noop) Track(string, map[string]any) {}
