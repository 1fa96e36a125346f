// Package capture turns callback-driven capture devices into blocking,
// single-result calls.
//
// Devices report a finished exposure through a callback that may fire late
// or more than once. The [Bridge] registers one waiter per Capture call and
// resolves it through a one-time latch, so only the first report counts.
package capture

import (
	"context"
	"time"
)

// AuthStatus is the device's current permission state.
type AuthStatus int

const (
	AuthUndetermined AuthStatus = iota
	AuthGranted
	AuthDenied
)

// String returns a human-readable status.
func (s AuthStatus) String() string {
	switch s {
	case AuthUndetermined:
		return "undetermined"
	case AuthGranted:
		return "granted"
	case AuthDenied:
		return "denied"
	default:
		return "unknown"
	}
}

// Authorizer reports and requests permission to use a device.
type Authorizer interface {
	Status() AuthStatus
	Request(ctx context.Context) bool
}

// Result is what a device hands to its completion callback: the encoded
// image bytes or the error the device ran into.
type Result struct {
	Data   []byte
	Source string
	Err    error
}

// Device is a capture source with a callback-shaped trigger. Capture must
// not block; the callback is invoked from any goroutine, possibly more than
// once.
type Device interface {
	Authorizer
	Name() string
	Configure(ctx context.Context) error
	Capture(onComplete func(Result))
}

// Session describes a prepared device.
type Session struct {
	Device     string
	PreparedAt time.Time
}
