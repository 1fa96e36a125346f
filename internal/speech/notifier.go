package speech

import (
	"context"
	"sync"

	"github.com/hammamikhairi/snapcook/internal/domain"
	"github.com/hammamikhairi/snapcook/internal/logger"
)

// Compile-time interface check.
var _ domain.Notifier = (*ChimeNotifier)(nil)

// PCMPlayer plays raw PCM. *Player satisfies it.
type PCMPlayer interface {
	Play(pcm []byte) error
}

// ChimeNotifier wraps a text notifier and plays a chime for each outcome.
// Chimes play in the background, one at a time.
type ChimeNotifier struct {
	text    domain.Notifier
	player  PCMPlayer
	log     *logger.Logger
	success []byte
	failure []byte

	mu sync.Mutex
	wg sync.WaitGroup
}

// NewChimeNotifier creates a notifier that prints through text and chimes
// through player.
func NewChimeNotifier(text domain.Notifier, player PCMPlayer, log *logger.Logger) *ChimeNotifier {
	return &ChimeNotifier{
		text:    text,
		player:  player,
		log:     log,
		success: Synthesize(SuccessChime),
		failure: Synthesize(FailureChime),
	}
}

// Notify prints the message and plays the success chime.
func (n *ChimeNotifier) Notify(ctx context.Context, message string) error {
	if err := n.text.Notify(ctx, message); err != nil {
		return err
	}
	n.play(n.success)
	return nil
}

// NotifyUrgent prints the message and plays the failure chime.
func (n *ChimeNotifier) NotifyUrgent(ctx context.Context, message string) error {
	if err := n.text.NotifyUrgent(ctx, message); err != nil {
		return err
	}
	n.play(n.failure)
	return nil
}

// Wait blocks until queued chimes have played.
func (n *ChimeNotifier) Wait() {
	n.wg.Wait()
}

func (n *ChimeNotifier) play(pcm []byte) {
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		n.mu.Lock()
		defer n.mu.Unlock()
		if err := n.player.Play(pcm); err != nil {
			n.log.Warn("speech: chime: %v", err)
		}
	}()
}
