package speech

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"regexp"
	"strings"
	"time"

	audiotranscriber "github.com/sklyt/whisper/pkg"

	"github.com/hammamikhairi/snapcook/internal/capture"
	"github.com/hammamikhairi/snapcook/internal/logger"
)

// ErrNothingHeard is returned when dictation ends without any speech.
var ErrNothingHeard = errors.New("speech: nothing heard")

// envAnnotation matches whisper environmental annotations like
// "(keyboard clicking)", "[laughter]", "(speaking French)", etc.
var envAnnotation = regexp.MustCompile(`[\(\[][a-zA-Z][a-zA-Z\s]*[\)\]]`)

// recorderFactory opens one recording whose transcription is delivered to
// onText exactly once after stop.
type recorderFactory func(onText func(string)) (start func() error, stop func(), err error)

func whisperRecorder(bin, model, tempDir string, verbose bool) recorderFactory {
	return func(onText func(string)) (func() error, func(), error) {
		t, err := audiotranscriber.NewTranscriber(bin, model, tempDir, "wav", onText, verbose)
		if err != nil {
			return nil, nil, err
		}
		return t.Start, func() { t.Stop() }, nil
	}
}

// DictationOption configures Dictation.
type DictationOption func(*Dictation)

// WithChunk sets how long each recording chunk lasts.
func WithChunk(d time.Duration) DictationOption {
	return func(d2 *Dictation) { d2.chunk = d }
}

// WithListenTimeout caps the whole dictation.
func WithListenTimeout(d time.Duration) DictationOption {
	return func(d2 *Dictation) { d2.listenTimeout = d }
}

// WithTempDir sets the directory for temporary WAV files.
func WithTempDir(dir string) DictationOption {
	return func(d2 *Dictation) { d2.tempDir = dir }
}

// Dictation records speech with a local whisper model until the speaker
// stops, and returns the transcription.
type Dictation struct {
	whisperBin    string
	modelPath     string
	tempDir       string
	chunk         time.Duration
	listenTimeout time.Duration
	log           *logger.Logger
	newRecorder   recorderFactory
}

// NewDictation creates a dictation recorder.
//
//   - whisperBin: path to the whisper-cli executable
//   - modelPath:  path to the GGML model file
func NewDictation(whisperBin, modelPath string, log *logger.Logger, opts ...DictationOption) *Dictation {
	d := &Dictation{
		whisperBin:    whisperBin,
		modelPath:     modelPath,
		tempDir:       DefaultTempDir,
		chunk:         DefaultChunk,
		listenTimeout: DefaultListenTimeout,
		log:           log,
	}
	for _, opt := range opts {
		opt(d)
	}
	d.newRecorder = whisperRecorder(d.whisperBin, d.modelPath, d.tempDir, log.GetLevel() >= logger.LevelVerbose)
	return d
}

// Available reports whether the whisper binary can be found.
func (d *Dictation) Available() error {
	if _, err := exec.LookPath(d.whisperBin); err != nil {
		return fmt.Errorf("speech: whisper binary %q: %w", d.whisperBin, err)
	}
	return nil
}

// Dictate records chunks until the speaker falls silent or the listen
// timeout expires, and returns everything heard.
func (d *Dictation) Dictate(ctx context.Context) (string, error) {
	// Before the speaker starts, allow more silence. Once they have
	// started, a shorter gap means they are done.
	const graceEmpty = 3
	const postSpeechEmpty = 1

	ctx, cancel := context.WithTimeout(ctx, d.listenTimeout)
	defer cancel()

	d.log.Info("speech: listening (chunk=%s, timeout=%s)", d.chunk, d.listenTimeout)

	var parts []string
	emptyRuns := 0
	for ctx.Err() == nil {
		text, err := d.recordChunk(ctx)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			return "", err
		}

		text = cleanTranscription(text)
		if text == "" {
			emptyRuns++
			limit := graceEmpty
			if len(parts) > 0 {
				limit = postSpeechEmpty
			}
			if emptyRuns >= limit {
				d.log.Debug("speech: silence detected (heard=%v)", len(parts) > 0)
				break
			}
			continue
		}

		emptyRuns = 0
		d.log.Debug("speech: chunk %q", text)
		parts = append(parts, text)
	}

	combined := strings.TrimSpace(strings.Join(parts, " "))
	if combined == "" {
		return "", ErrNothingHeard
	}
	d.log.Info("speech: heard %q", combined)
	return combined, nil
}

// recordChunk records one chunk. The transcriber reports through a
// callback; the waiter keeps a second or late report from leaking into the
// next chunk.
func (d *Dictation) recordChunk(ctx context.Context) (string, error) {
	w := capture.NewWaiter[string]()
	start, stop, err := d.newRecorder(func(text string) {
		if !w.Resolve(text) {
			d.log.Debug("speech: dropped late transcription")
		}
	})
	if err != nil {
		return "", fmt.Errorf("speech: transcriber init: %w", err)
	}
	if err := start(); err != nil {
		return "", fmt.Errorf("speech: recording start: %w", err)
	}

	select {
	case <-time.After(d.chunk):
	case <-ctx.Done():
	}
	stop()

	// Transcription runs after stop; give it its own bound.
	waitCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.chunk+10*time.Second)
	defer cancel()
	return w.Wait(waitCtx)
}

// ── Transcription cleanup ────────────────────────────────────────

var junkPatterns = []string{
	"[BLANK_AUDIO]",
	"[BLANK AUDIO]",
	"(silence)",
	"[silence]",
	"(no speech)",
	"[no speech]",
	"[Music]",
	"(music)",
	"(typing)",
	"(clicking)",
	"(breathing)",
	"(coughing)",
	"(background noise)",
	"(inaudible)",
	"(unintelligible)",
}

var hallucinations = []string{
	"...",
	"you",
	"thank you.",
	"thanks for watching!",
	"thank you for watching.",
	"bye.",
	"the end.",
}

// cleanTranscription strips whitespace, whisper artifacts and known
// hallucinations. Artifacts are removed anywhere in the text.
func cleanTranscription(s string) string {
	s = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ").Replace(s)
	for _, j := range junkPatterns {
		s = strings.ReplaceAll(s, j, "")
		s = strings.ReplaceAll(s, strings.ToLower(j), "")
		s = strings.ReplaceAll(s, strings.ToUpper(j), "")
	}

	// Strip whisper timestamp prefixes like "[00:00:00.000 --> 00:00:05.000]".
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "[") {
		if idx := strings.Index(s, "]"); idx != -1 && idx < 40 {
			s = s[idx+1:]
		}
	}

	s = envAnnotation.ReplaceAllString(s, "")
	s = strings.Join(strings.Fields(s), " ")

	lower := strings.ToLower(s)
	for _, h := range hallucinations {
		if h == lower {
			return ""
		}
	}
	return s
}
