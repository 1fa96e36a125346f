package storage

import (
	"context"
	"fmt"
	"sync"

	"github.com/hammamikhairi/snapcook/internal/domain"
	"github.com/hammamikhairi/snapcook/internal/logger"
)

var _ domain.RemoteStore = (*MemoryRemote)(nil)

// MemoryRemote is an in-process remote store for offline mode and tests.
// SetFailure makes every call fail until it is cleared.
type MemoryRemote struct {
	mu       sync.Mutex
	recipes  map[string]domain.Recipe
	order    []string
	profiles map[string]domain.UserProfile
	fail     error
	calls    map[string]int
	log      *logger.Logger
}

// NewMemoryRemote creates an empty remote store.
func NewMemoryRemote(log *logger.Logger) *MemoryRemote {
	return &MemoryRemote{
		recipes:  make(map[string]domain.Recipe),
		profiles: make(map[string]domain.UserProfile),
		calls:    make(map[string]int),
		log:      log,
	}
}

// SetFailure makes subsequent calls return err wrapped with
// domain.ErrRemoteUnavailable. A nil err restores normal operation.
func (m *MemoryRemote) SetFailure(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fail = err
}

// Calls returns how many times op was invoked.
func (m *MemoryRemote) Calls(op string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[op]
}

// enter counts the call and returns the injected failure. Callers hold mu.
func (m *MemoryRemote) enter(op string) error {
	m.calls[op]++
	if m.fail != nil {
		return fmt.Errorf("storage: %s: %v: %w", op, m.fail, domain.ErrRemoteUnavailable)
	}
	return nil
}

func (m *MemoryRemote) FetchRecipes(ctx context.Context, userID string) ([]domain.Recipe, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("FetchRecipes"); err != nil {
		return nil, err
	}

	out := []domain.Recipe{}
	for _, id := range m.order {
		if r, ok := m.recipes[id]; ok && r.UserID == userID {
			out = append(out, r.Clone())
		}
	}
	return out, nil
}

func (m *MemoryRemote) SaveRecipe(ctx context.Context, recipe domain.Recipe) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("SaveRecipe"); err != nil {
		return err
	}

	if _, ok := m.recipes[recipe.ID]; ok {
		return fmt.Errorf("storage: recipe %s: %w", recipe.ID, domain.ErrAlreadyExists)
	}
	m.recipes[recipe.ID] = recipe.Clone()
	m.order = append(m.order, recipe.ID)
	m.log.Debug("remote: saved recipe %s", recipe.ID)
	return nil
}

func (m *MemoryRemote) UpsertRecipe(ctx context.Context, recipe domain.Recipe) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("UpsertRecipe"); err != nil {
		return err
	}

	if _, ok := m.recipes[recipe.ID]; !ok {
		m.order = append(m.order, recipe.ID)
	}
	m.recipes[recipe.ID] = recipe.Clone()
	return nil
}

func (m *MemoryRemote) DeleteRecipe(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("DeleteRecipe"); err != nil {
		return err
	}

	if _, ok := m.recipes[id]; !ok {
		return fmt.Errorf("storage: recipe %s: %w", id, domain.ErrNotFound)
	}
	delete(m.recipes, id)
	for i, v := range m.order {
		if v == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	m.log.Debug("remote: deleted recipe %s", id)
	return nil
}

func (m *MemoryRemote) FetchProfile(ctx context.Context, userID string) (*domain.UserProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("FetchProfile"); err != nil {
		return nil, err
	}

	p, ok := m.profiles[userID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &p, nil
}

func (m *MemoryRemote) SaveProfile(ctx context.Context, profile domain.UserProfile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("SaveProfile"); err != nil {
		return err
	}

	m.profiles[profile.UserID] = profile
	return nil
}
