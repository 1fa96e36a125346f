package domain

import (
	"context"
	"io"
)

// Message roles understood by every model client.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one turn sent to a language model. Image, when set, is JPEG data
// attached to the turn.
type Message struct {
	Role  string
	Text  string
	Image []byte
}

// ModelClient sends a conversation to a language model and returns the raw
// reply text. Implementations can be OpenAI-compatible, Anthropic, or fakes.
type ModelClient interface {
	Complete(ctx context.Context, messages []Message) (string, error)
}

// LocalCache stores JSON blobs by key. It plays the role of on-device
// preferences storage: fast, per-user, and allowed to be lost.
type LocalCache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// RemoteStore is the authoritative, cross-device copy of recipes and profiles.
// SaveRecipe is create-only and returns ErrAlreadyExists for a known ID.
type RemoteStore interface {
	FetchRecipes(ctx context.Context, userID string) ([]Recipe, error)
	SaveRecipe(ctx context.Context, recipe Recipe) error
	UpsertRecipe(ctx context.Context, recipe Recipe) error
	DeleteRecipe(ctx context.Context, id string) error
	FetchProfile(ctx context.Context, userID string) (*UserProfile, error)
	SaveProfile(ctx context.Context, profile UserProfile) error
}

// BlobStore archives binary payloads such as captured receipt images.
type BlobStore interface {
	Put(ctx context.Context, key string, r io.Reader, contentType string) error
}

// Notifier announces generation outcomes to the user.
type Notifier interface {
	Notify(ctx context.Context, message string) error
	NotifyUrgent(ctx context.Context, message string) error
}
