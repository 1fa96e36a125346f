// Package speech handles audio in and out: whisper dictation of ingredient
// lists and short chimes announcing generation results.
package speech

import "time"

// Audio parameters of the chime player.
const (
	SampleRate   = 24000
	ChannelCount = 1
	BitDepth     = 16
)

// Dictation defaults.
const (
	DefaultChunk         = 2 * time.Second
	DefaultListenTimeout = 20 * time.Second
	DefaultTempDir       = ".snapcook-stt"
)
