package capture

import "errors"

// Capture errors. All of them are terminal for the attempt that produced
// them; the bridge never retries.
var (
	ErrDeviceNotFound      = errors.New("capture device not found")
	ErrInputRejected       = errors.New("capture session rejected the input")
	ErrOutputRejected      = errors.New("capture session rejected the output")
	ErrCaptureFailed       = errors.New("capture failed")
	ErrAuthorizationDenied = errors.New("capture not authorized")
	ErrNotPrepared         = errors.New("capture session not prepared")
	ErrCaptureInProgress   = errors.New("a capture is already pending")
)
