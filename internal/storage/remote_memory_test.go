package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/hammamikhairi/snapcook/internal/domain"
	"github.com/hammamikhairi/snapcook/internal/logger"
)

func TestMemoryRemoteRecipes(t *testing.T) {
	remote := NewMemoryRemote(logger.New(logger.LevelOff, nil))
	ctx := context.Background()

	a := domain.Recipe{ID: "a", UserID: "u1", Name: "A"}
	b := domain.Recipe{ID: "b", UserID: "u2", Name: "B"}
	for _, r := range []domain.Recipe{a, b} {
		if err := remote.SaveRecipe(ctx, r); err != nil {
			t.Fatalf("save %s: %v", r.ID, err)
		}
	}
	if err := remote.SaveRecipe(ctx, a); !errors.Is(err, domain.ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}

	got, err := remote.FetchRecipes(ctx, "u1")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(got) != 1 || got[0].ID != "a" {
		t.Fatalf("expected only u1's recipe, got %+v", got)
	}

	a.Name = "A2"
	if err := remote.UpsertRecipe(ctx, a); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	got, _ = remote.FetchRecipes(ctx, "u1")
	if got[0].Name != "A2" {
		t.Fatalf("upsert not applied: %+v", got[0])
	}

	if err := remote.DeleteRecipe(ctx, "a"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := remote.DeleteRecipe(ctx, "a"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryRemoteFailure(t *testing.T) {
	remote := NewMemoryRemote(logger.New(logger.LevelOff, nil))
	ctx := context.Background()

	remote.SetFailure(errors.New("offline"))
	if _, err := remote.FetchRecipes(ctx, "u1"); !errors.Is(err, domain.ErrRemoteUnavailable) {
		t.Fatalf("expected ErrRemoteUnavailable, got %v", err)
	}
	if err := remote.SaveProfile(ctx, domain.UserProfile{UserID: "u1"}); !errors.Is(err, domain.ErrRemoteUnavailable) {
		t.Fatalf("expected ErrRemoteUnavailable, got %v", err)
	}

	remote.SetFailure(nil)
	if _, err := remote.FetchProfile(ctx, "u1"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if n := remote.Calls("FetchRecipes"); n != 1 {
		t.Fatalf("expected 1 FetchRecipes call, got %d", n)
	}
}
