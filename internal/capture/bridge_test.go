package capture

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"sync"
	"testing"
	"time"

	"github.com/hammamikhairi/snapcook/internal/logger"
)

// fakeDevice records callbacks so tests decide when and how often they fire.
type fakeDevice struct {
	status       AuthStatus
	grant        bool
	configureErr error

	mu        sync.Mutex
	callbacks []func(Result)
	requested int
}

func (d *fakeDevice) Name() string       { return "fake" }
func (d *fakeDevice) Status() AuthStatus { return d.status }

func (d *fakeDevice) Request(context.Context) bool {
	d.mu.Lock()
	d.requested++
	d.mu.Unlock()
	return d.grant
}

func (d *fakeDevice) Configure(context.Context) error { return d.configureErr }

func (d *fakeDevice) Capture(cb func(Result)) {
	d.mu.Lock()
	d.callbacks = append(d.callbacks, cb)
	d.mu.Unlock()
}

// fire invokes the idx-th armed callback, waiting for it to be armed.
func (d *fakeDevice) fire(t *testing.T, idx int, r Result) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for {
		d.mu.Lock()
		n := len(d.callbacks)
		d.mu.Unlock()
		if n > idx {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("capture never armed the device")
		}
		time.Sleep(time.Millisecond)
	}
	d.mu.Lock()
	cb := d.callbacks[idx]
	d.mu.Unlock()
	cb(r)
}

func testPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 3))
	img.Set(1, 1, color.RGBA{R: 200, A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encoding png: %v", err)
	}
	return buf.Bytes()
}

func newTestBridge(t *testing.T, dev Device) *Bridge {
	t.Helper()
	b := NewBridge(dev, logger.New(logger.LevelOff, nil))
	if _, err := b.Prepare(context.Background()); err != nil {
		t.Fatalf("prepare: %v", err)
	}
	return b
}

func TestAuthorize(t *testing.T) {
	tests := []struct {
		name    string
		status  AuthStatus
		grant   bool
		want    bool
		request int
	}{
		{"granted", AuthGranted, false, true, 0},
		{"denied", AuthDenied, true, false, 0},
		{"undetermined then granted", AuthUndetermined, true, true, 1},
		{"undetermined then refused", AuthUndetermined, false, false, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dev := &fakeDevice{status: tt.status, grant: tt.grant}
			b := NewBridge(dev, logger.New(logger.LevelOff, nil))
			if got := b.Authorize(context.Background()); got != tt.want {
				t.Fatalf("expected %v, got %v", tt.want, got)
			}
			if dev.requested != tt.request {
				t.Fatalf("expected %d requests, got %d", tt.request, dev.requested)
			}
		})
	}
}

func TestPrepareError(t *testing.T) {
	dev := &fakeDevice{configureErr: ErrDeviceNotFound}
	b := NewBridge(dev, logger.New(logger.LevelOff, nil))
	if _, err := b.Prepare(context.Background()); !errors.Is(err, ErrDeviceNotFound) {
		t.Fatalf("expected ErrDeviceNotFound, got %v", err)
	}
	if _, err := b.Capture(context.Background()); !errors.Is(err, ErrNotPrepared) {
		t.Fatalf("expected ErrNotPrepared, got %v", err)
	}
}

func TestCaptureDuplicateCallback(t *testing.T) {
	dev := &fakeDevice{status: AuthGranted}
	b := newTestBridge(t, dev)
	data := testPNG(t)

	type outcome struct {
		img Image
		err error
	}
	done := make(chan outcome, 2)
	go func() {
		img, err := b.Capture(context.Background())
		done <- outcome{img, err}
	}()

	dev.fire(t, 0, Result{Data: data, Source: "first"})
	dev.fire(t, 0, Result{Err: errors.New("second report")})

	got := <-done
	if got.err != nil {
		t.Fatalf("unexpected error: %v", got.err)
	}
	if got.img.Source != "first" {
		t.Fatalf("expected first report to win, got %q", got.img.Source)
	}
	if got.img.Width != 4 || got.img.Height != 3 {
		t.Fatalf("expected 4x3 image, got %dx%d", got.img.Width, got.img.Height)
	}
	if _, err := DecodeImage(got.img.JPEG, "roundtrip"); err != nil {
		t.Fatalf("re-encoded jpeg does not decode: %v", err)
	}

	select {
	case o := <-done:
		t.Fatalf("capture resolved twice: %+v", o)
	case <-time.After(20 * time.Millisecond):
	}
	if b.Pending() {
		t.Fatal("registration should be cleared after resolution")
	}
}

func TestCaptureDeviceError(t *testing.T) {
	dev := &fakeDevice{status: AuthGranted}
	b := newTestBridge(t, dev)

	errc := make(chan error, 1)
	go func() {
		_, err := b.Capture(context.Background())
		errc <- err
	}()
	dev.fire(t, 0, Result{Err: ErrCaptureFailed})

	if err := <-errc; !errors.Is(err, ErrCaptureFailed) {
		t.Fatalf("expected ErrCaptureFailed, got %v", err)
	}
}

func TestCaptureUndecodableData(t *testing.T) {
	dev := &fakeDevice{status: AuthGranted}
	b := newTestBridge(t, dev)

	errc := make(chan error, 1)
	go func() {
		_, err := b.Capture(context.Background())
		errc <- err
	}()
	dev.fire(t, 0, Result{Data: []byte("not an image")})

	if err := <-errc; !errors.Is(err, ErrCaptureFailed) {
		t.Fatalf("expected ErrCaptureFailed, got %v", err)
	}
}

func TestCaptureInProgress(t *testing.T) {
	dev := &fakeDevice{status: AuthGranted}
	b := newTestBridge(t, dev)

	errc := make(chan error, 1)
	go func() {
		_, err := b.Capture(context.Background())
		errc <- err
	}()
	// Wait until the first capture is registered.
	for !b.Pending() {
		time.Sleep(time.Millisecond)
	}

	if _, err := b.Capture(context.Background()); !errors.Is(err, ErrCaptureInProgress) {
		t.Fatalf("expected ErrCaptureInProgress, got %v", err)
	}

	dev.fire(t, 0, Result{Data: testPNG(t)})
	if err := <-errc; err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestCaptureAbandonedWaiter(t *testing.T) {
	dev := &fakeDevice{status: AuthGranted}
	b := newTestBridge(t, dev)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := b.Capture(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	if b.Pending() {
		t.Fatal("abandoned waiter should be released")
	}

	// The late callback must be dropped without panicking or blocking.
	dev.fire(t, 0, Result{Data: testPNG(t)})

	// A fresh capture works afterwards.
	errc := make(chan error, 1)
	go func() {
		_, err := b.Capture(context.Background())
		errc <- err
	}()
	for !b.Pending() {
		time.Sleep(time.Millisecond)
	}
	dev.fire(t, 1, Result{Data: testPNG(t), Source: "second"})
	if err := <-errc; err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
