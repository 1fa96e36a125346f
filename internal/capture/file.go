package capture

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
)

// FileDevice resolves every capture with the contents of one image file.
type FileDevice struct {
	path string
}

var _ Device = (*FileDevice)(nil)

// NewFileDevice returns a device reading path.
func NewFileDevice(path string) *FileDevice {
	return &FileDevice{path: path}
}

func (d *FileDevice) Name() string { return "file:" + d.path }

// Status is granted when the file can be opened for reading.
func (d *FileDevice) Status() AuthStatus {
	f, err := os.Open(d.path)
	if err != nil {
		if errors.Is(err, fs.ErrPermission) {
			return AuthDenied
		}
		return AuthUndetermined
	}
	f.Close()
	return AuthGranted
}

// Request cannot grant anything for a plain file.
func (d *FileDevice) Request(context.Context) bool {
	return d.Status() == AuthGranted
}

func (d *FileDevice) Configure(context.Context) error {
	info, err := os.Stat(d.path)
	if err != nil {
		return fmt.Errorf("%s: %w", d.path, ErrDeviceNotFound)
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory: %w", d.path, ErrInputRejected)
	}
	return nil
}

func (d *FileDevice) Capture(onComplete func(Result)) {
	go func() {
		data, err := os.ReadFile(d.path)
		if err != nil {
			onComplete(Result{Source: d.path, Err: fmt.Errorf("%v: %w", err, ErrCaptureFailed)})
			return
		}
		onComplete(Result{Data: data, Source: d.path})
	}()
}
