package engine

import (
	"errors"
	"time"

	"github.com/hammamikhairi/snapcook/internal/capture"
	"github.com/hammamikhairi/snapcook/internal/domain"
	"github.com/hammamikhairi/snapcook/internal/extract"
)

// Phase is the orchestrator's lifecycle position.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseRequesting
	PhaseSucceeded
	PhaseFailed
)

// String returns a human-readable phase.
func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseRequesting:
		return "requesting"
	case PhaseSucceeded:
		return "succeeded"
	case PhaseFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Request describes the generation currently or last in flight.
type Request struct {
	ID        string
	Kind      domain.RecipeKind
	Owner     string
	StartedAt time.Time
}

// State is the snapshot published on every transition.
type State struct {
	Phase      Phase
	Loading    bool
	LastError  error
	LastResult []domain.Recipe
	Request    *Request
}

// Message renders LastError for display. It is empty when there is none.
func (s State) Message() string {
	return Describe(s.LastError)
}

// Describe turns an orchestration error into a sentence for the user.
func Describe(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, domain.ErrBusy):
		return "Still working on the previous request."
	case errors.Is(err, domain.ErrEmptyInput):
		return "Add at least one ingredient or a photo first."
	case errors.Is(err, domain.ErrNotSignedIn):
		return "Sign in to save recipes."
	case errors.Is(err, extract.ErrMalformed):
		return "Couldn't read recipes from the reply. Try listing your ingredients instead."
	case errors.Is(err, capture.ErrAuthorizationDenied):
		return "Camera access was denied."
	case errors.Is(err, capture.ErrDeviceNotFound):
		return "No camera is available."
	case errors.Is(err, capture.ErrInputRejected), errors.Is(err, capture.ErrOutputRejected):
		return "The camera could not be configured."
	case errors.Is(err, capture.ErrCaptureFailed):
		return "The photo could not be taken. Please try again."
	case errors.Is(err, domain.ErrRemoteUnavailable):
		return "Saved on this device. Sync will retry later."
	default:
		return "Something went wrong: " + err.Error()
	}
}

func (s State) clone() State {
	out := s
	if s.LastResult != nil {
		out.LastResult = make([]domain.Recipe, len(s.LastResult))
		for i, r := range s.LastResult {
			out.LastResult[i] = r.Clone()
		}
	}
	if s.Request != nil {
		req := *s.Request
		out.Request = &req
	}
	return out
}
