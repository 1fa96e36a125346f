package capture

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/hammamikhairi/snapcook/internal/logger"
)

// DefaultSettle is how long the inbox waits after a file appears before
// reading it, so the writer has time to finish.
const DefaultSettle = 250 * time.Millisecond

// InboxDevice treats a directory as a scanner: a capture resolves with the
// next image file dropped into it.
type InboxDevice struct {
	dir    string
	settle time.Duration
	log    *logger.Logger

	mu      sync.Mutex
	watcher *fsnotify.Watcher
	waiting func(Result)
	done    chan struct{}
	wg      sync.WaitGroup
}

var _ Device = (*InboxDevice)(nil)

// InboxOption configures an InboxDevice.
type InboxOption func(*InboxDevice)

// WithSettle overrides the delay between a file event and the read.
func WithSettle(d time.Duration) InboxOption {
	return func(i *InboxDevice) { i.settle = d }
}

// NewInboxDevice returns a device watching dir. Call Close when done.
func NewInboxDevice(dir string, log *logger.Logger, opts ...InboxOption) *InboxDevice {
	d := &InboxDevice{dir: dir, settle: DefaultSettle, log: log}
	for _, o := range opts {
		o(d)
	}
	return d
}

func (d *InboxDevice) Name() string { return "inbox:" + d.dir }

// Status is granted when the directory exists and can be listed.
func (d *InboxDevice) Status() AuthStatus {
	_, err := os.ReadDir(d.dir)
	switch {
	case err == nil:
		return AuthGranted
	case errors.Is(err, fs.ErrPermission):
		return AuthDenied
	default:
		return AuthUndetermined
	}
}

// Request creates the inbox directory when it does not exist yet.
func (d *InboxDevice) Request(context.Context) bool {
	if err := os.MkdirAll(d.dir, 0o755); err != nil {
		d.log.Warn("capture: create inbox %s: %v", d.dir, err)
		return false
	}
	return d.Status() == AuthGranted
}

// Configure starts watching the directory. Calling it again is a no-op.
func (d *InboxDevice) Configure(context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.watcher != nil {
		return nil
	}
	info, err := os.Stat(d.dir)
	if err != nil || !info.IsDir() {
		return fmt.Errorf("inbox %s: %w", d.dir, ErrDeviceNotFound)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("inbox watcher: %v: %w", err, ErrOutputRejected)
	}
	if err := w.Add(d.dir); err != nil {
		w.Close()
		return fmt.Errorf("watch %s: %v: %w", d.dir, err, ErrInputRejected)
	}

	d.watcher = w
	d.done = make(chan struct{})
	d.wg.Add(1)
	go d.loop(w, d.done)
	return nil
}

// Capture arms the device; the callback fires with the next image file.
func (d *InboxDevice) Capture(onComplete func(Result)) {
	d.mu.Lock()
	d.waiting = onComplete
	d.mu.Unlock()
}

// Close stops the watcher. A pending capture is failed.
func (d *InboxDevice) Close() error {
	d.mu.Lock()
	w := d.watcher
	cb := d.waiting
	d.watcher, d.waiting = nil, nil
	if w != nil {
		close(d.done)
	}
	d.mu.Unlock()

	if w == nil {
		return nil
	}
	err := w.Close()
	d.wg.Wait()
	if cb != nil {
		cb(Result{Source: d.dir, Err: fmt.Errorf("inbox closed: %w", ErrCaptureFailed)})
	}
	return err
}

func (d *InboxDevice) loop(w *fsnotify.Watcher, done <-chan struct{}) {
	defer d.wg.Done()
	for {
		select {
		case <-done:
			return
		case ev, ok := <-w.Events:
			if !ok {
				return
			}
			if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
				continue
			}
			if !isImageFile(ev.Name) {
				continue
			}
			d.deliver(ev.Name, done)
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			d.log.Warn("capture: inbox watcher: %v", err)
		}
	}
}

func (d *InboxDevice) deliver(path string, done <-chan struct{}) {
	d.mu.Lock()
	cb := d.waiting
	d.waiting = nil
	d.mu.Unlock()

	if cb == nil {
		d.log.Debug("capture: ignoring %s, no capture armed", filepath.Base(path))
		return
	}

	if d.settle > 0 {
		select {
		case <-time.After(d.settle):
		case <-done:
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		cb(Result{Source: path, Err: fmt.Errorf("%v: %w", err, ErrCaptureFailed)})
		return
	}
	cb(Result{Data: data, Source: path})
}

func isImageFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg", ".png":
		return true
	}
	return false
}
