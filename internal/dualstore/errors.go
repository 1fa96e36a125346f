package dualstore

import (
	"fmt"

	"github.com/hammamikhairi/snapcook/internal/domain"
)

// SyncError reports a failed remote operation. Local state stays valid and
// the operation is safe to retry. It matches domain.ErrRemoteUnavailable as
// well as the underlying cause.
type SyncError struct {
	Op  string
	Err error
}

func (e *SyncError) Error() string {
	return fmt.Sprintf("sync: %s: %v", e.Op, e.Err)
}

func (e *SyncError) Unwrap() []error {
	return []error{domain.ErrRemoteUnavailable, e.Err}
}
