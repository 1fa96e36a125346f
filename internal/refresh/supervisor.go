// Package refresh keeps the local recipe collection in step with the
// remote store by refreshing it in the background.
package refresh

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hammamikhairi/snapcook/internal/domain"
	"github.com/hammamikhairi/snapcook/internal/logger"
)

// Refresher replaces an owner's collection with the remote copy.
// dualstore.Engine satisfies it.
type Refresher interface {
	RefreshFromRemote(ctx context.Context, owner string) error
}

// Option configures the supervisor.
type Option func(*Supervisor)

// WithTickInterval sets how often the supervisor refreshes.
func WithTickInterval(d time.Duration) Option {
	return func(s *Supervisor) {
		s.tickInterval = d
	}
}

// WithMaxBackoff caps how many ticks are skipped after repeated failures.
func WithMaxBackoff(ticks int) Option {
	return func(s *Supervisor) {
		s.maxBackoff = ticks
	}
}

// WithEscalateAfter sets how many consecutive failures trigger an urgent
// notification.
func WithEscalateAfter(n int) Option {
	return func(s *Supervisor) {
		s.escalateAfter = n
	}
}

// Supervisor refreshes the signed-in user's recipes on a fixed tick. After
// a failure it skips an exponentially growing number of ticks, tells the
// user once failures persist, and again when sync recovers.
type Supervisor struct {
	syncer        Refresher
	session       func() domain.Session
	notifier      domain.Notifier
	log           *logger.Logger
	tickInterval  time.Duration
	maxBackoff    int
	escalateAfter int

	mu        sync.Mutex
	running   bool
	cancel    context.CancelFunc
	done      chan struct{}
	failures  int
	skip      int
	escalated bool
}

// New creates a refresh supervisor. session is consulted on every tick so a
// sign-out stops refreshing without restarting the supervisor. notifier may
// be nil.
func New(syncer Refresher, session func() domain.Session, notifier domain.Notifier, log *logger.Logger, opts ...Option) *Supervisor {
	s := &Supervisor{
		syncer:        syncer,
		session:       session,
		notifier:      notifier,
		log:           log,
		tickInterval:  5 * time.Minute,
		maxBackoff:    8,
		escalateAfter: 3,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start begins the background loop. Non-blocking.
func (s *Supervisor) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		s.log.Warn("refresh supervisor already running")
		return
	}

	childCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.running = true
	s.done = make(chan struct{})

	go s.loop(childCtx, s.done)
	s.log.Info("refresh supervisor started (tick=%s, max backoff=%d ticks)", s.tickInterval, s.maxBackoff)
}

// Stop shuts the loop down and waits for an in-progress refresh.
func (s *Supervisor) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.cancel()
	s.running = false
	done := s.done
	s.mu.Unlock()

	<-done
	s.log.Info("refresh supervisor stopped")
}

// Failures returns the current run of consecutive failures.
func (s *Supervisor) Failures() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.failures
}

func (s *Supervisor) loop(ctx context.Context, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(s.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

// tick runs one refresh unless backing off.
func (s *Supervisor) tick(ctx context.Context) {
	sess := s.session()
	if sess.Require() != nil {
		return
	}

	s.mu.Lock()
	if s.skip > 0 {
		s.skip--
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	err := s.syncer.RefreshFromRemote(ctx, sess.UserID)
	if ctx.Err() != nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err == nil {
		if s.escalated {
			s.notify(ctx, false, "Recipes are syncing again.")
		}
		s.failures, s.skip, s.escalated = 0, 0, false
		return
	}

	s.failures++
	s.skip = backoff(s.failures, s.maxBackoff)
	s.log.Warn("refresh: attempt failed (%d in a row, next in %d ticks): %v", s.failures, s.skip+1, err)

	if !s.escalated && s.failures >= s.escalateAfter {
		s.escalated = true
		s.notify(ctx, true, fmt.Sprintf("Can't reach the recipe store (%d attempts). Changes are kept on this device.", s.failures))
	}
}

func (s *Supervisor) notify(ctx context.Context, urgent bool, msg string) {
	if s.notifier == nil {
		return
	}
	var err error
	if urgent {
		err = s.notifier.NotifyUrgent(ctx, msg)
	} else {
		err = s.notifier.Notify(ctx, msg)
	}
	if err != nil {
		s.log.Error("refresh: notify: %v", err)
	}
}

// backoff returns how many ticks to skip after n consecutive failures:
// 0, 1, 3, 7, ... capped at limit.
func backoff(n, limit int) int {
	if n <= 1 {
		return 0
	}
	skip := 1<<(n-1) - 1
	if skip > limit || n > 30 {
		return limit
	}
	return skip
}
