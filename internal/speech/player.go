package speech

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"

	"github.com/hammamikhairi/snapcook/internal/logger"
)

// Player plays 16-bit mono PCM through the system audio device via oto.
type Player struct {
	ctx    *oto.Context
	log    *logger.Logger
	mu     sync.Mutex
	active *oto.Player // currently playing, nil when idle
}

// NewPlayer initializes the system audio context. It fails when no audio
// device is available.
func NewPlayer(log *logger.Logger) (*Player, error) {
	op := &oto.NewContextOptions{
		SampleRate:   SampleRate,
		ChannelCount: ChannelCount,
		Format:       oto.FormatSignedInt16LE,
	}

	ctx, readyChan, err := oto.NewContext(op)
	if err != nil {
		return nil, err
	}
	<-readyChan

	log.Debug("audio player initialized (rate=%d, channels=%d)", SampleRate, ChannelCount)
	return &Player{ctx: ctx, log: log}, nil
}

// Play plays raw PCM synchronously. Blocks until playback finishes or Stop
// is called.
func (p *Player) Play(pcm []byte) error {
	player := p.ctx.NewPlayer(bytes.NewReader(pcm))

	p.mu.Lock()
	p.active = player
	p.mu.Unlock()

	player.Play()
	for player.IsPlaying() {
		time.Sleep(10 * time.Millisecond)
	}

	p.mu.Lock()
	p.active = nil
	p.mu.Unlock()

	return player.Close()
}

// PlayWAV plays a WAV file recorded at SampleRate.
func (p *Player) PlayWAV(wav []byte) error {
	pcm, err := extractPCM(wav)
	if err != nil {
		return err
	}
	return p.Play(pcm)
}

// Stop interrupts the current playback, if any.
func (p *Player) Stop() {
	p.mu.Lock()
	active := p.active
	p.mu.Unlock()

	if active != nil {
		active.Pause()
		p.log.Debug("audio player: interrupted")
	}
}

// ── Tones ────────────────────────────────────────────────────────

// Note is one tone of a chime.
type Note struct {
	Freq     float64
	Duration time.Duration
}

// Chimes played on generation outcomes.
var (
	SuccessChime = []Note{{659.25, 110 * time.Millisecond}, {880, 180 * time.Millisecond}}
	FailureChime = []Note{{329.63, 160 * time.Millisecond}, {246.94, 260 * time.Millisecond}}
)

// Synthesize renders notes as 16-bit little-endian mono PCM with a short
// fade at both ends of each note to avoid clicks.
func Synthesize(notes []Note) []byte {
	const amplitude = 0.25 * math.MaxInt16
	fade := SampleRate / 200

	var buf bytes.Buffer
	for _, n := range notes {
		samples := int(n.Duration.Seconds() * SampleRate)
		for i := 0; i < samples; i++ {
			env := 1.0
			if i < fade {
				env = float64(i) / float64(fade)
			} else if samples-i < fade {
				env = float64(samples-i) / float64(fade)
			}
			v := amplitude * env * math.Sin(2*math.Pi*n.Freq*float64(i)/SampleRate)
			binary.Write(&buf, binary.LittleEndian, int16(v))
		}
	}
	return buf.Bytes()
}

// extractPCM strips the WAV/RIFF header and returns raw PCM data.
func extractPCM(wav []byte) ([]byte, error) {
	if len(wav) < 44 {
		return nil, errors.New("wav data too short")
	}
	if string(wav[0:4]) != "RIFF" || string(wav[8:12]) != "WAVE" {
		return nil, errors.New("not a valid WAV file")
	}

	// Walk chunks to find the "data" chunk.
	pos := 12
	for pos < len(wav)-8 {
		chunkID := string(wav[pos : pos+4])
		chunkSize := int(binary.LittleEndian.Uint32(wav[pos+4 : pos+8]))

		if chunkID == "data" {
			start := pos + 8
			end := start + chunkSize
			if end > len(wav) {
				end = len(wav)
			}
			return wav[start:end], nil
		}

		pos += 8 + chunkSize
		// Chunks are word-aligned.
		if chunkSize%2 != 0 {
			pos++
		}
	}

	return nil, errors.New("data chunk not found in WAV")
}
