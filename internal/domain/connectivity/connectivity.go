package connectivity

import "context"

// Checker answers "is the network reachable right now". It is consulted
// synchronously immediately before any initiation call.
type Checker interface {
	Online(ctx context.Context) bool
}

// AlwaysOnline is the Checker used when no probe is configured.
type AlwaysOnline struct{}

func (AlwaysOnline) Online(context.Context) bool { return true }
