// Package dualstore keeps a user's recipes and profile in a fast local
// cache and mirrors them to the authoritative remote store.
//
// Writes are local-first: they apply in memory and to the cache before the
// call returns, and reach the remote store from a background goroutine.
// Remote failures are published but never roll back local state. A refresh
// replaces the whole collection with the remote copy; there is no per-field
// merge, so a refresh that lands after a commit whose remote write has not
// finished will drop that record until the next refresh.
package dualstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/hammamikhairi/snapcook/internal/domain"
	"github.com/hammamikhairi/snapcook/internal/logger"
	"github.com/hammamikhairi/snapcook/internal/metrics"
	"github.com/hammamikhairi/snapcook/internal/notify"
)

// Cache keys.
const (
	KeyCurrentUser = "currentUserID"
	recipesPrefix  = "recipes_"
	profilePrefix  = "userProfile_"
)

// RecipesKey is the cache key of owner's recipe collection.
func RecipesKey(owner string) string { return recipesPrefix + owner }

// ProfileKey is the cache key of owner's profile.
func ProfileKey(owner string) string { return profilePrefix + owner }

// EventKind distinguishes sync notifications.
type EventKind int

const (
	// EventChanged means the in-memory collection or profile changed.
	EventChanged EventKind = iota
	// EventError carries a *SyncError from a remote operation.
	EventError
)

// String returns a human-readable kind.
func (k EventKind) String() string {
	switch k {
	case EventChanged:
		return "changed"
	case EventError:
		return "error"
	default:
		return "unknown"
	}
}

// Event is published after every change and every remote failure.
type Event struct {
	Kind    EventKind
	Owner   string
	Recipes int
	Err     error
}

// Option configures an Engine.
type Option func(*Engine)

// WithMetrics records remote calls and collection size.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// Engine owns the recipe and profile collections of the active user.
type Engine struct {
	cache   domain.LocalCache
	remote  domain.RemoteStore
	log     *logger.Logger
	metrics *metrics.Metrics
	events  *notify.Hub[Event]

	mu      sync.Mutex
	owner   string
	recipes []domain.Recipe
	profile *domain.UserProfile
	lastErr error

	pending sync.WaitGroup
}

// New creates a sync engine over cache and remote.
func New(cache domain.LocalCache, remote domain.RemoteStore, log *logger.Logger, opts ...Option) *Engine {
	e := &Engine{
		cache:  cache,
		remote: remote,
		log:    log,
		events: notify.NewHub[Event](notify.DefaultBuffer),
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Subscribe returns a channel of sync events and a cancel func.
func (e *Engine) Subscribe() (<-chan Event, func()) {
	return e.events.Subscribe()
}

// Wait blocks until every background remote write has finished.
func (e *Engine) Wait() {
	e.pending.Wait()
}

// LastError returns the most recent remote failure, or nil.
func (e *Engine) LastError() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastErr
}

// Recipes returns a copy of owner's collection. It is empty when owner is
// not the loaded user.
func (e *Engine) Recipes(owner string) []domain.Recipe {
	e.mu.Lock()
	defer e.mu.Unlock()
	if owner != e.owner {
		return []domain.Recipe{}
	}
	return cloneAll(e.recipes)
}

// Find returns the recipe with id in the loaded collection.
func (e *Engine) Find(id string) (domain.Recipe, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if i := e.indexOf(id); i >= 0 {
		return e.recipes[i].Clone(), true
	}
	return domain.Recipe{}, false
}

// ── Session ──────────────────────────────────────────────────────

// SetCurrentUser remembers the signed-in user across runs. An empty id
// signs out.
func (e *Engine) SetCurrentUser(ctx context.Context, userID string) error {
	if userID == "" {
		return e.cache.Delete(ctx, KeyCurrentUser)
	}
	data, _ := json.Marshal(userID)
	if err := e.cache.Put(ctx, KeyCurrentUser, data); err != nil {
		return fmt.Errorf("dualstore: save current user: %w", err)
	}
	return nil
}

// CurrentSession restores the remembered user. A missing or unreadable
// entry yields a signed-out session.
func (e *Engine) CurrentSession(ctx context.Context) domain.Session {
	data, err := e.cache.Get(ctx, KeyCurrentUser)
	if err != nil {
		return domain.Session{}
	}
	var id string
	if err := json.Unmarshal(data, &id); err != nil {
		e.log.Warn("dualstore: unreadable current user entry: %v", err)
		return domain.Session{}
	}
	return domain.NewSession(id)
}

// ── Recipes ──────────────────────────────────────────────────────

// LoadLocal reads owner's cached collection and makes it the active one.
// A missing or corrupt cache entry yields an empty collection. Records owned
// by someone else are dropped.
func (e *Engine) LoadLocal(ctx context.Context, owner string) []domain.Recipe {
	loaded := e.readLocal(ctx, owner)

	e.mu.Lock()
	e.owner = owner
	e.recipes = loaded
	if e.profile != nil && e.profile.UserID != owner {
		e.profile = nil
	}
	out := cloneAll(e.recipes)
	e.mu.Unlock()

	e.metrics.SetRecipes(len(out))
	e.log.Debug("dualstore: loaded %d local recipes for %s", len(out), owner)
	e.publish(Event{Kind: EventChanged, Owner: owner, Recipes: len(out)})
	return out
}

func (e *Engine) readLocal(ctx context.Context, owner string) []domain.Recipe {
	data, err := e.cache.Get(ctx, RecipesKey(owner))
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			e.log.Warn("dualstore: read local recipes for %s: %v", owner, err)
		}
		return []domain.Recipe{}
	}

	var all []domain.Recipe
	if err := json.Unmarshal(data, &all); err != nil {
		e.log.Warn("dualstore: corrupt local recipes for %s, treating as empty: %v", owner, err)
		return []domain.Recipe{}
	}

	out := make([]domain.Recipe, 0, len(all))
	for _, r := range all {
		if r.UserID != owner {
			continue
		}
		r.Normalize()
		out = append(out, r)
	}
	return out
}

// RefreshFromRemote replaces owner's collection with the remote copy. On
// failure local state is untouched and a *SyncError is published and
// returned.
func (e *Engine) RefreshFromRemote(ctx context.Context, owner string) error {
	remote, err := e.remote.FetchRecipes(ctx, owner)
	e.metrics.RemoteOp("fetch", err)
	if err != nil {
		serr := &SyncError{Op: "refresh", Err: err}
		e.fail(owner, serr)
		return serr
	}

	for i := range remote {
		remote[i].Normalize()
	}

	e.mu.Lock()
	e.owner = owner
	e.recipes = remote
	e.persistLocked(ctx)
	n := len(e.recipes)
	e.syncCountLocked(ctx)
	e.mu.Unlock()

	e.log.Info("dualstore: refreshed %d recipes for %s from remote", n, owner)
	e.publish(Event{Kind: EventChanged, Owner: owner, Recipes: n})
	return nil
}

// Commit appends records to the active collection and persists it locally,
// then writes each record to the remote store in the background. A record
// that already exists remotely counts as written. When no collection is
// loaded yet, the owner's cached collection is loaded first.
//
// A failed local write is logged but does not fail the commit: the records
// are in memory and on their way to the remote store, which a later refresh
// copies back into the cache.
func (e *Engine) Commit(ctx context.Context, records []domain.Recipe) error {
	if len(records) == 0 {
		return nil
	}

	e.mu.Lock()
	owner := e.owner
	if owner == "" {
		owner = records[0].UserID
		e.owner = owner
		e.recipes = e.readLocal(ctx, owner)
	}
	batch := make([]domain.Recipe, 0, len(records))
	for _, r := range records {
		if r.UserID != owner {
			e.mu.Unlock()
			return fmt.Errorf("dualstore: commit recipe %s owned by %q into %q's collection", r.ID, r.UserID, owner)
		}
		batch = append(batch, r.Clone())
	}
	e.recipes = append(e.recipes, batch...)
	e.persistLocked(ctx) // logs its own failure
	n := len(e.recipes)
	e.syncCountLocked(ctx)
	e.mu.Unlock()

	e.publish(Event{Kind: EventChanged, Owner: owner, Recipes: n})

	bg := context.WithoutCancel(ctx)
	for _, r := range batch {
		e.pending.Add(1)
		go func(r domain.Recipe) {
			defer e.pending.Done()
			err := e.remote.SaveRecipe(bg, r)
			if errors.Is(err, domain.ErrAlreadyExists) {
				e.log.Debug("dualstore: recipe %s already remote", r.ID)
				err = nil
			}
			e.metrics.RemoteOp("save", err)
			if err != nil {
				e.fail(owner, &SyncError{Op: "commit", Err: err})
				return
			}
			e.log.Debug("dualstore: recipe %s saved remotely", r.ID)
		}(r)
	}
	return nil
}

// Delete removes recipe locally, then deletes it remotely in the
// background. A remote failure is published; the local deletion stands.
func (e *Engine) Delete(ctx context.Context, recipe domain.Recipe) error {
	e.mu.Lock()
	i := e.indexOf(recipe.ID)
	if i < 0 {
		e.mu.Unlock()
		return fmt.Errorf("dualstore: delete %s: %w", recipe.ID, domain.ErrNotFound)
	}
	owner := e.owner
	e.recipes = append(e.recipes[:i], e.recipes[i+1:]...)
	err := e.persistLocked(ctx)
	n := len(e.recipes)
	e.syncCountLocked(ctx)
	e.mu.Unlock()

	e.publish(Event{Kind: EventChanged, Owner: owner, Recipes: n})

	e.pending.Add(1)
	go func() {
		defer e.pending.Done()
		err := e.remote.DeleteRecipe(context.WithoutCancel(ctx), recipe.ID)
		if errors.Is(err, domain.ErrNotFound) {
			err = nil
		}
		e.metrics.RemoteOp("delete", err)
		if err != nil {
			e.fail(owner, &SyncError{Op: "delete", Err: err})
		}
	}()
	return err
}

// Update replaces the recipe with the same ID locally, then upserts it
// remotely in the background.
func (e *Engine) Update(ctx context.Context, recipe domain.Recipe) error {
	e.mu.Lock()
	i := e.indexOf(recipe.ID)
	if i < 0 {
		e.mu.Unlock()
		return fmt.Errorf("dualstore: update %s: %w", recipe.ID, domain.ErrNotFound)
	}
	owner := e.owner
	updated := recipe.Clone()
	updated.UserID = owner
	e.recipes[i] = updated
	err := e.persistLocked(ctx)
	n := len(e.recipes)
	e.mu.Unlock()

	e.publish(Event{Kind: EventChanged, Owner: owner, Recipes: n})

	e.pending.Add(1)
	go func() {
		defer e.pending.Done()
		err := e.remote.UpsertRecipe(context.WithoutCancel(ctx), updated)
		e.metrics.RemoteOp("upsert", err)
		if err != nil {
			e.fail(owner, &SyncError{Op: "update", Err: err})
		}
	}()
	return err
}

// ── Internals ────────────────────────────────────────────────────

// persistLocked writes the active collection to the cache. Callers hold mu.
func (e *Engine) persistLocked(ctx context.Context) error {
	e.metrics.SetRecipes(len(e.recipes))
	data, err := json.Marshal(e.recipes)
	if err != nil {
		e.log.Error("dualstore: encode recipes for %s: %v", e.owner, err)
		return fmt.Errorf("dualstore: encode recipes: %w", err)
	}
	if err := e.cache.Put(ctx, RecipesKey(e.owner), data); err != nil {
		e.log.Error("dualstore: persist recipes for %s: %v", e.owner, err)
		return fmt.Errorf("dualstore: persist recipes: %w", err)
	}
	return nil
}

func (e *Engine) indexOf(id string) int {
	for i, r := range e.recipes {
		if r.ID == id {
			return i
		}
	}
	return -1
}

func (e *Engine) fail(owner string, err *SyncError) {
	e.mu.Lock()
	e.lastErr = err
	e.mu.Unlock()

	e.log.Warn("dualstore: %v", err)
	e.publish(Event{Kind: EventError, Owner: owner, Err: err})
}

func (e *Engine) publish(ev Event) {
	e.events.Publish(ev)
}

func cloneAll(in []domain.Recipe) []domain.Recipe {
	out := make([]domain.Recipe, len(in))
	for i, r := range in {
		out[i] = r.Clone()
	}
	return out
}
