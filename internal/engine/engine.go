// Package engine drives recipe generation: it turns a receipt photo or an
// ingredient list into a model request, extracts recipes from the reply and
// commits them through the sync engine.
//
// At most one request is in flight. Start returns immediately; observers
// follow progress through Subscribe or State.
package engine

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hammamikhairi/snapcook/internal/capture"
	"github.com/hammamikhairi/snapcook/internal/domain"
	"github.com/hammamikhairi/snapcook/internal/extract"
	"github.com/hammamikhairi/snapcook/internal/gpt"
	"github.com/hammamikhairi/snapcook/internal/logger"
	"github.com/hammamikhairi/snapcook/internal/metrics"
	"github.com/hammamikhairi/snapcook/internal/notify"
	"github.com/hammamikhairi/snapcook/internal/storage"
)

// Committer receives the recipes of a successful generation.
// dualstore.Engine satisfies it.
type Committer interface {
	Commit(ctx context.Context, records []domain.Recipe) error
}

// Option configures the orchestrator.
type Option func(*Orchestrator)

// WithMetrics counts generations and extraction stages.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

// WithNotifier announces each outcome, e.g. on the terminal or as a chime.
func WithNotifier(n domain.Notifier) Option {
	return func(o *Orchestrator) { o.notifier = n }
}

// WithArchive uploads every receipt photo to blobs. Upload failures are
// logged and never affect the generation.
func WithArchive(blobs domain.BlobStore) Option {
	return func(o *Orchestrator) { o.archive = blobs }
}

// Orchestrator owns the lifecycle of generation requests.
type Orchestrator struct {
	agent    *gpt.Agent
	store    Committer
	log      *logger.Logger
	metrics  *metrics.Metrics
	notifier domain.Notifier
	archive  domain.BlobStore
	states   *notify.Hub[State]

	mu        sync.Mutex
	session   domain.Session
	state     State
	capturing bool

	inflight sync.WaitGroup
}

// New creates an orchestrator acting for session.
func New(agent *gpt.Agent, store Committer, session domain.Session, log *logger.Logger, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		agent:   agent,
		store:   store,
		log:     log,
		session: session,
		states:  notify.NewHub[State](notify.DefaultBuffer),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// SetSession switches the user that new requests act for.
func (o *Orchestrator) SetSession(s domain.Session) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.session = s
}

// State returns the current snapshot.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state.clone()
}

// Subscribe returns a channel of published states and a cancel func. A slow
// subscriber loses the oldest states first.
func (o *Orchestrator) Subscribe() (<-chan State, func()) {
	return o.states.Subscribe()
}

// Wait blocks until the in-flight request, if any, has finished.
func (o *Orchestrator) Wait() {
	o.inflight.Wait()
}

// Start launches a generation for in. It only fails synchronously when a
// request or capture is already in flight (domain.ErrBusy), when in is empty
// (domain.ErrEmptyInput) or when nobody is signed in. Rejections are also
// published. Everything else is reported through the published state.
func (o *Orchestrator) Start(ctx context.Context, in Input) error {
	if in == nil {
		return domain.ErrEmptyInput
	}
	o.mu.Lock()
	req, err := o.beginLocked(in)
	o.mu.Unlock()
	if err != nil {
		return err
	}
	o.launch(ctx, req, in)
	return nil
}

// CaptureAndGenerate takes a photo through bridge and starts an image
// generation with it. The orchestrator counts as busy from the moment the
// capture begins, so no other request can start in between. Capture
// failures are published as a failed state.
func (o *Orchestrator) CaptureAndGenerate(ctx context.Context, bridge *capture.Bridge) error {
	o.mu.Lock()
	if o.busyLocked() {
		o.rejectLocked(fmt.Errorf("engine: capture: %w", domain.ErrBusy))
		o.mu.Unlock()
		return domain.ErrBusy
	}
	o.capturing = true
	o.mu.Unlock()

	img, err := o.capture(ctx, bridge)

	o.mu.Lock()
	o.capturing = false
	if err != nil {
		o.state.Request = &Request{Kind: domain.KindImage, Owner: o.session.UserID, StartedAt: time.Now()}
		o.finishLocked(PhaseFailed, err, nil)
		o.mu.Unlock()
		o.log.Warn("engine: capture: %v", err)
		o.metrics.Generation(domain.KindImage.String(), "capture_failed")
		o.announce(ctx, nil, err)
		return err
	}
	in := ImageInput{Image: img}
	req, err := o.beginLocked(in)
	o.mu.Unlock()
	if err != nil {
		return err
	}
	o.launch(ctx, req, in)
	return nil
}

func (o *Orchestrator) capture(ctx context.Context, bridge *capture.Bridge) (capture.Image, error) {
	if !bridge.Authorize(ctx) {
		return capture.Image{}, capture.ErrAuthorizationDenied
	}
	if _, err := bridge.Prepare(ctx); err != nil {
		return capture.Image{}, err
	}
	return bridge.Capture(ctx)
}

// ── Request lifecycle ────────────────────────────────────────────

func (o *Orchestrator) busyLocked() bool {
	return o.capturing || o.state.Phase == PhaseRequesting
}

// beginLocked validates in and moves to Requesting. Callers hold mu.
func (o *Orchestrator) beginLocked(in Input) (Request, error) {
	if o.busyLocked() {
		o.rejectLocked(fmt.Errorf("engine: start %s: %w", in.Kind(), domain.ErrBusy))
		return Request{}, domain.ErrBusy
	}
	if err := o.session.Require(); err != nil {
		o.rejectLocked(fmt.Errorf("engine: start %s: %w", in.Kind(), err))
		return Request{}, err
	}
	if err := in.validate(); err != nil {
		o.rejectLocked(fmt.Errorf("engine: start %s: %w", in.Kind(), err))
		return Request{}, err
	}

	req := Request{
		ID:        requestID(in.Kind()),
		Kind:      in.Kind(),
		Owner:     o.session.UserID,
		StartedAt: time.Now(),
	}
	o.state.Phase = PhaseRequesting
	o.state.Loading = true
	o.state.LastError = nil
	o.state.Request = &req
	o.inflight.Add(1)
	o.publishLocked()
	return req, nil
}

func (o *Orchestrator) launch(ctx context.Context, req Request, in Input) {
	o.log.Info("engine: %s started for %s", req.ID, req.Owner)

	bg := context.WithoutCancel(ctx)
	if img, ok := in.(ImageInput); ok && o.archive != nil {
		o.inflight.Add(1)
		go o.archiveReceipt(bg, req.Owner, img.Image)
	}
	go o.run(bg, req, in)
}

func (o *Orchestrator) run(ctx context.Context, req Request, in Input) {
	defer o.inflight.Done()

	recipes, stage, err := o.generate(ctx, req, in)
	kind := req.Kind.String()

	o.mu.Lock()
	if err != nil {
		o.finishLocked(PhaseFailed, err, nil)
	} else {
		o.finishLocked(PhaseSucceeded, nil, recipes)
	}
	o.mu.Unlock()

	if err != nil {
		o.log.Warn("engine: %s failed after %s: %v", req.ID, time.Since(req.StartedAt).Round(time.Millisecond), err)
		o.metrics.Generation(kind, "failed")
	} else {
		o.log.Info("engine: %s produced %d recipes (%s stage) in %s",
			req.ID, len(recipes), stage, time.Since(req.StartedAt).Round(time.Millisecond))
		o.metrics.Generation(kind, "succeeded")
		o.metrics.ExtractStage(stage.String())
	}
	o.announce(ctx, recipes, err)
}

func (o *Orchestrator) generate(ctx context.Context, req Request, in Input) ([]domain.Recipe, extract.Stage, error) {
	raw, err := o.agent.Generate(ctx, in.messages(o.agent))
	if err != nil {
		return nil, 0, fmt.Errorf("engine: %s: model: %w", req.ID, err)
	}
	o.log.Debug("engine: %s raw reply %d bytes", req.ID, len(raw))

	res, err := extract.Parse(raw, req.Owner)
	if err != nil {
		return nil, 0, fmt.Errorf("engine: %s: %w", req.ID, err)
	}
	if err := o.store.Commit(ctx, res.Recipes); err != nil {
		return nil, 0, fmt.Errorf("engine: %s: commit: %w", req.ID, err)
	}
	return res.Recipes, res.Stage, nil
}

// finishLocked publishes the terminal phase and then the return to idle.
// Callers hold mu.
func (o *Orchestrator) finishLocked(phase Phase, err error, recipes []domain.Recipe) {
	o.state.Phase = phase
	o.state.Loading = false
	o.state.LastError = err
	if err == nil {
		o.state.LastResult = recipes
	}
	o.publishLocked()

	o.state.Phase = PhaseIdle
	o.publishLocked()
}

// rejectLocked records a synchronous rejection without touching the phase
// or the in-flight request. Callers hold mu.
func (o *Orchestrator) rejectLocked(err error) {
	o.log.Debug("%v", err)
	o.state.LastError = err
	o.publishLocked()
}

func (o *Orchestrator) publishLocked() {
	o.states.Publish(o.state.clone())
}

func (o *Orchestrator) announce(ctx context.Context, recipes []domain.Recipe, err error) {
	if o.notifier == nil {
		return
	}
	if err != nil {
		o.notifier.NotifyUrgent(ctx, Describe(err))
		return
	}
	names := make([]string, len(recipes))
	for i, r := range recipes {
		names[i] = r.Name
	}
	o.notifier.Notify(ctx, fmt.Sprintf("%d new recipes: %s", len(recipes), strings.Join(names, ", ")))
}

func (o *Orchestrator) archiveReceipt(ctx context.Context, owner string, img capture.Image) {
	defer o.inflight.Done()
	key := storage.ReceiptKey(owner, uuid.NewString())
	if err := o.archive.Put(ctx, key, bytes.NewReader(img.JPEG), "image/jpeg"); err != nil {
		o.log.Warn("engine: archive receipt: %v", err)
		return
	}
	o.log.Debug("engine: archived receipt as %s", key)
}
