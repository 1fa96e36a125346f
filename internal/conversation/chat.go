package conversation

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/hammamikhairi/snapcook/internal/domain"
	"github.com/hammamikhairi/snapcook/internal/gpt"
	"github.com/hammamikhairi/snapcook/internal/logger"
)

// DefaultHistory caps how many turns are sent with each request.
const DefaultHistory = 20

// ChatOption configures a Chat.
type ChatOption func(*Chat)

// WithSystemPrompt replaces the cooking-assistant system prompt.
func WithSystemPrompt(p string) ChatOption {
	return func(c *Chat) { c.system = p }
}

// WithAllergies tells the assistant what to avoid.
func WithAllergies(a string) ChatOption {
	return func(c *Chat) { c.allergies = strings.TrimSpace(a) }
}

// WithHistory limits the turns replayed to the model. Zero keeps everything.
func WithHistory(n int) ChatOption {
	return func(c *Chat) { c.maxTurns = n }
}

// Chat is a multi-turn conversation with the cooking assistant.
type Chat struct {
	client    domain.ModelClient
	log       *logger.Logger
	system    string
	allergies string
	maxTurns  int

	mu      sync.Mutex
	history []domain.Message
}

// NewChat starts an empty conversation.
func NewChat(client domain.ModelClient, log *logger.Logger, opts ...ChatOption) *Chat {
	c := &Chat{
		client:   client,
		log:      log,
		system:   gpt.PromptChat,
		maxTurns: DefaultHistory,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Send appends text as a user turn, asks the model with the conversation so
// far and appends the reply. Blank input is ignored and returns "".
// A failed call leaves the history unchanged.
func (c *Chat) Send(ctx context.Context, text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", nil
	}

	c.mu.Lock()
	msgs := c.requestLocked(text)
	c.mu.Unlock()

	reply, err := c.client.Complete(ctx, msgs)
	if err != nil {
		return "", fmt.Errorf("conversation: send: %w", err)
	}
	reply = strings.TrimSpace(reply)

	c.mu.Lock()
	c.history = append(c.history,
		domain.Message{Role: domain.RoleUser, Text: text},
		domain.Message{Role: domain.RoleAssistant, Text: reply},
	)
	c.mu.Unlock()

	c.log.Debug("conversation: %d turns", len(c.History()))
	return reply, nil
}

// History returns a copy of the transcript without the system prompt.
func (c *Chat) History() []domain.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]domain.Message(nil), c.history...)
}

// Reset clears the transcript.
func (c *Chat) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.history = nil
}

// Ingredients collects the user's turns, which is what a chat-driven
// generation feeds to the recipe prompt.
func (c *Chat) Ingredients() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	var parts []string
	for _, m := range c.history {
		if m.Role == domain.RoleUser {
			parts = append(parts, m.Text)
		}
	}
	return strings.Join(parts, ", ")
}

func (c *Chat) requestLocked(text string) []domain.Message {
	system := c.system
	if c.allergies != "" {
		system += "\nThe user is allergic to: " + c.allergies + ". Never suggest dishes containing these."
	}

	past := c.history
	if c.maxTurns > 0 && len(past) > c.maxTurns {
		past = past[len(past)-c.maxTurns:]
	}

	msgs := make([]domain.Message, 0, len(past)+2)
	msgs = append(msgs, domain.Message{Role: domain.RoleSystem, Text: system})
	msgs = append(msgs, past...)
	return append(msgs, domain.Message{Role: domain.RoleUser, Text: text})
}
