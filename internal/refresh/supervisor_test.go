package refresh

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/hammamikhairi/snapcook/internal/domain"
	"github.com/hammamikhairi/snapcook/internal/logger"
)

// mockNotifier collects notifications for testing.
type mockNotifier struct {
	mu       sync.Mutex
	messages []string
	urgent   []string
}

func (m *mockNotifier) Notify(_ context.Context, msg string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, msg)
	return nil
}

func (m *mockNotifier) NotifyUrgent(_ context.Context, msg string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.urgent = append(m.urgent, msg)
	return nil
}

type scriptedSyncer struct {
	mu     sync.Mutex
	errs   []error
	owners []string
}

func (s *scriptedSyncer) RefreshFromRemote(_ context.Context, owner string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.owners = append(s.owners, owner)
	if len(s.errs) == 0 {
		return nil
	}
	err := s.errs[0]
	s.errs = s.errs[1:]
	return err
}

func (s *scriptedSyncer) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.owners)
}

func signedIn() domain.Session { return domain.NewSession("alice") }

func TestSupervisorRefreshes(t *testing.T) {
	syncer := &scriptedSyncer{}
	sup := New(syncer, signedIn, nil, logger.New(logger.LevelOff, nil), WithTickInterval(20*time.Millisecond))
	sup.Start(context.Background())
	time.Sleep(110 * time.Millisecond)
	sup.Stop()

	if n := syncer.calls(); n < 3 {
		t.Fatalf("refreshed %d times, want at least 3", n)
	}
	if syncer.owners[0] != "alice" {
		t.Errorf("owner = %q", syncer.owners[0])
	}
}

func TestSupervisorSignedOut(t *testing.T) {
	syncer := &scriptedSyncer{}
	sup := New(syncer, func() domain.Session { return domain.Session{} }, nil,
		logger.New(logger.LevelOff, nil), WithTickInterval(10*time.Millisecond))
	sup.Start(context.Background())
	time.Sleep(60 * time.Millisecond)
	sup.Stop()

	if n := syncer.calls(); n != 0 {
		t.Errorf("refreshed %d times while signed out", n)
	}
}

func TestSupervisorEscalatesAndRecovers(t *testing.T) {
	offline := errors.New("offline")
	syncer := &scriptedSyncer{errs: []error{offline, offline, offline}}
	notes := &mockNotifier{}
	sup := New(syncer, signedIn, notes, logger.New(logger.LevelOff, nil),
		WithEscalateAfter(3), WithMaxBackoff(0))
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		sup.tick(ctx)
	}
	if sup.Failures() != 3 || len(notes.urgent) != 1 {
		t.Fatalf("failures = %d, urgent = %v", sup.Failures(), notes.urgent)
	}

	sup.tick(ctx)
	if sup.Failures() != 0 || len(notes.messages) != 1 {
		t.Errorf("after recovery failures = %d, messages = %v", sup.Failures(), notes.messages)
	}
}

func TestSupervisorBacksOff(t *testing.T) {
	offline := errors.New("offline")
	syncer := &scriptedSyncer{errs: []error{offline, offline, offline}}
	sup := New(syncer, signedIn, nil, logger.New(logger.LevelOff, nil), WithMaxBackoff(8))
	ctx := context.Background()

	// fail, fail, skip, fail, skip x3
	for i := 0; i < 7; i++ {
		sup.tick(ctx)
	}
	if n := syncer.calls(); n != 3 {
		t.Errorf("attempts = %d, want 3", n)
	}
	sup.tick(ctx)
	if n := syncer.calls(); n != 4 || sup.Failures() != 0 {
		t.Errorf("attempts = %d, failures = %d", n, sup.Failures())
	}
}

func TestBackoff(t *testing.T) {
	tests := []struct {
		n, limit, want int
	}{
		{0, 8, 0},
		{1, 8, 0},
		{2, 8, 1},
		{3, 8, 3},
		{4, 8, 7},
		{5, 8, 8},
		{40, 8, 8},
	}
	for _, tt := range tests {
		if got := backoff(tt.n, tt.limit); got != tt.want {
			t.Errorf("backoff(%d, %d) = %d, want %d", tt.n, tt.limit, got, tt.want)
		}
	}
}
