package capture

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hammamikhairi/snapcook/internal/logger"
)

// Bridge adapts a callback-shaped Device into blocking calls. It allows one
// pending capture at a time.
type Bridge struct {
	dev Device
	log *logger.Logger

	mu      sync.Mutex
	session *Session
	pending *Waiter[Result]
}

// NewBridge returns a bridge over dev.
func NewBridge(dev Device, log *logger.Logger) *Bridge {
	return &Bridge{dev: dev, log: log}
}

// Authorize reports whether the device may be used, requesting a grant when
// the status is still undetermined. It never retries.
func (b *Bridge) Authorize(ctx context.Context) bool {
	switch b.dev.Status() {
	case AuthGranted:
		return true
	case AuthDenied:
		b.log.Warn("capture: %s access denied", b.dev.Name())
		return false
	default:
		granted := b.dev.Request(ctx)
		b.log.Debug("capture: %s access requested, granted=%v", b.dev.Name(), granted)
		return granted
	}
}

// Prepare configures the device pipeline.
func (b *Bridge) Prepare(ctx context.Context) (*Session, error) {
	if err := b.dev.Configure(ctx); err != nil {
		return nil, fmt.Errorf("capture: prepare %s: %w", b.dev.Name(), err)
	}
	s := &Session{Device: b.dev.Name(), PreparedAt: time.Now()}

	b.mu.Lock()
	b.session = s
	b.mu.Unlock()

	b.log.Debug("capture: %s prepared", s.Device)
	return s, nil
}

// Capture triggers one exposure and blocks until the device reports back or
// ctx ends. Reports after the first one, and reports arriving after ctx
// ended, are dropped.
func (b *Bridge) Capture(ctx context.Context) (Image, error) {
	b.mu.Lock()
	if b.session == nil {
		b.mu.Unlock()
		return Image{}, fmt.Errorf("capture: %w", ErrNotPrepared)
	}
	if b.pending != nil {
		b.mu.Unlock()
		return Image{}, fmt.Errorf("capture: %w", ErrCaptureInProgress)
	}
	w := NewWaiter[Result]()
	b.pending = w
	b.mu.Unlock()

	b.dev.Capture(func(r Result) {
		if !w.Resolve(r) {
			b.log.Debug("capture: dropped late callback from %s", b.dev.Name())
			return
		}
		b.release(w)
	})

	r, err := w.Wait(ctx)
	b.release(w)
	if err != nil {
		b.log.Debug("capture: waiter abandoned: %v", err)
		return Image{}, fmt.Errorf("capture: %w", err)
	}
	if r.Err != nil {
		return Image{}, fmt.Errorf("capture: %w", r.Err)
	}
	return DecodeImage(r.Data, r.Source)
}

// Pending reports whether a capture is waiting for its callback.
func (b *Bridge) Pending() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.pending != nil
}

func (b *Bridge) release(w *Waiter[Result]) {
	b.mu.Lock()
	if b.pending == w {
		b.pending = nil
	}
	b.mu.Unlock()
}
