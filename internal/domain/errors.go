package domain

import "errors"

// Sentinel errors used across layers.
var (
	ErrNotFound          = errors.New("not found")
	ErrAlreadyExists     = errors.New("already exists")
	ErrNotSignedIn       = errors.New("no user is signed in")
	ErrBusy              = errors.New("a generation request is already in flight")
	ErrEmptyInput        = errors.New("no ingredients or image supplied")
	ErrRemoteUnavailable = errors.New("remote store unavailable")
)
