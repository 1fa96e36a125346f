package dualstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/hammamikhairi/snapcook/internal/domain"
)

// Profile returns the loaded profile, or nil before LoadProfile.
func (e *Engine) Profile() *domain.UserProfile {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.profile == nil {
		return nil
	}
	p := *e.profile
	return &p
}

// LoadProfile resolves owner's profile from the cache, then the remote
// store. When neither has one, a default profile is created and saved.
func (e *Engine) LoadProfile(ctx context.Context, owner string) (domain.UserProfile, error) {
	if p, ok := e.readLocalProfile(ctx, owner); ok {
		e.setProfile(ctx, p)
		return e.current(), nil
	}

	p, err := e.remote.FetchProfile(ctx, owner)
	e.metrics.RemoteOp("fetch_profile", ignoreNotFound(err))
	switch {
	case err == nil:
		e.writeLocalProfile(ctx, *p)
		e.setProfile(ctx, *p)
		return e.current(), nil
	case errors.Is(err, domain.ErrNotFound):
		// fall through to a fresh profile
	default:
		serr := &SyncError{Op: "load profile", Err: err}
		e.fail(owner, serr)
		return domain.UserProfile{}, serr
	}

	e.mu.Lock()
	count := 0
	if e.owner == owner {
		count = len(e.recipes)
	}
	e.mu.Unlock()

	fresh := domain.UserProfile{
		ID:          uuid.NewString(),
		UserID:      owner,
		Name:        defaultName(owner),
		Emoji:       domain.DefaultEmoji,
		RecipeCount: count,
	}
	e.log.Info("dualstore: creating profile for %s", owner)
	if err := e.SaveProfile(ctx, fresh); err != nil {
		return domain.UserProfile{}, err
	}
	return fresh, nil
}

// SaveProfile writes profile locally, then upserts it remotely in the
// background.
func (e *Engine) SaveProfile(ctx context.Context, profile domain.UserProfile) error {
	if profile.UserID == "" {
		return fmt.Errorf("dualstore: save profile: %w", domain.ErrNotSignedIn)
	}
	if profile.Emoji == "" {
		profile.Emoji = domain.DefaultEmoji
	}

	e.mu.Lock()
	e.profile = &profile
	err := e.persistProfileLocked(ctx)
	e.mu.Unlock()

	e.publish(Event{Kind: EventChanged, Owner: profile.UserID, Recipes: profile.RecipeCount})
	e.pushProfile(ctx, profile)
	return err
}

// UpdateName renames the loaded profile.
func (e *Engine) UpdateName(ctx context.Context, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return errors.New("dualstore: update name: empty name")
	}
	return e.updateProfile(ctx, func(p *domain.UserProfile) { p.Name = name })
}

// UpdatePhone sets the phone number. An empty number clears it.
func (e *Engine) UpdatePhone(ctx context.Context, phone string) error {
	phone = strings.TrimSpace(phone)
	return e.updateProfile(ctx, func(p *domain.UserProfile) {
		if phone == "" {
			p.PhoneNumber = nil
			return
		}
		p.PhoneNumber = &phone
	})
}

// UpdateEmoji sets the profile emoji. An empty value restores the default.
func (e *Engine) UpdateEmoji(ctx context.Context, emoji string) error {
	emoji = strings.TrimSpace(emoji)
	if emoji == "" {
		emoji = domain.DefaultEmoji
	}
	return e.updateProfile(ctx, func(p *domain.UserProfile) { p.Emoji = emoji })
}

func (e *Engine) updateProfile(ctx context.Context, mutate func(*domain.UserProfile)) error {
	e.mu.Lock()
	if e.profile == nil {
		e.mu.Unlock()
		return fmt.Errorf("dualstore: update profile: %w", domain.ErrNotFound)
	}
	p := *e.profile
	e.mu.Unlock()

	mutate(&p)
	return e.SaveProfile(ctx, p)
}

// ── Internals ────────────────────────────────────────────────────

// setProfile installs p and brings its recipe count in line with the
// loaded collection.
func (e *Engine) setProfile(ctx context.Context, p domain.UserProfile) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.profile = &p
	if e.owner == p.UserID {
		e.syncCountLocked(ctx)
	}
}

func (e *Engine) current() domain.UserProfile {
	e.mu.Lock()
	defer e.mu.Unlock()
	return *e.profile
}

// syncCountLocked re-saves the profile when its recipe count no longer
// matches the collection size. Callers hold mu.
func (e *Engine) syncCountLocked(ctx context.Context) {
	if e.profile == nil || e.profile.UserID != e.owner {
		return
	}
	if e.profile.RecipeCount == len(e.recipes) {
		return
	}
	e.log.Debug("dualstore: recipe count %d -> %d", e.profile.RecipeCount, len(e.recipes))
	e.profile.RecipeCount = len(e.recipes)
	e.persistProfileLocked(ctx)
	e.pushProfile(ctx, *e.profile)
}

func (e *Engine) persistProfileLocked(ctx context.Context) error {
	return e.writeLocalProfile(ctx, *e.profile)
}

func (e *Engine) pushProfile(ctx context.Context, p domain.UserProfile) {
	e.pending.Add(1)
	go func() {
		defer e.pending.Done()
		err := e.remote.SaveProfile(context.WithoutCancel(ctx), p)
		e.metrics.RemoteOp("save_profile", err)
		if err != nil {
			e.fail(p.UserID, &SyncError{Op: "save profile", Err: err})
		}
	}()
}

func (e *Engine) readLocalProfile(ctx context.Context, owner string) (domain.UserProfile, bool) {
	data, err := e.cache.Get(ctx, ProfileKey(owner))
	if err != nil {
		return domain.UserProfile{}, false
	}
	var p domain.UserProfile
	if err := json.Unmarshal(data, &p); err != nil || p.UserID != owner {
		e.log.Warn("dualstore: ignoring unreadable local profile for %s", owner)
		return domain.UserProfile{}, false
	}
	return p, true
}

func (e *Engine) writeLocalProfile(ctx context.Context, p domain.UserProfile) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("dualstore: encode profile: %w", err)
	}
	if err := e.cache.Put(ctx, ProfileKey(p.UserID), data); err != nil {
		e.log.Error("dualstore: persist profile for %s: %v", p.UserID, err)
		return fmt.Errorf("dualstore: persist profile: %w", err)
	}
	return nil
}

func defaultName(owner string) string {
	if i := strings.IndexByte(owner, '@'); i > 0 {
		return owner[:i]
	}
	return "Chef"
}

func ignoreNotFound(err error) error {
	if errors.Is(err, domain.ErrNotFound) {
		return nil
	}
	return err
}
