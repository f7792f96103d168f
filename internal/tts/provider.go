// Package tts defines the Provider interface for text-to-speech backends,
// the provider registry, and the retrying synthesis invoker.
//
// Each vendor lives in its own subpackage and is selected at runtime by a
// registry lookup keyed by name. The pipeline never assumes timing or speed
// support — it branches on the capabilities the provider advertises.
package tts

import (
	"context"

	"github.com/voxline/narravox/internal/timeline"
)

// Request contains parameters for synthesizing one text segment.
type Request struct {
	// Text is a single segment, already within the provider's size limit.
	Text    string
	VoiceID string
	// Speed is the speaking-rate multiplier (1.0 = normal). Providers clamp
	// it to their advertised bounds.
	Speed float64
}

// SynthesisResult is the output of synthesizing a single segment.
type SynthesisResult struct {
	// AudioData is a complete WAV file.
	AudioData []byte
	// WordTimings holds per-word timing local to this segment (zero-based
	// times and character offsets), when the provider supports it.
	WordTimings []timeline.Record
	// SentenceTimings holds provider-supplied sentence timing, when available.
	SentenceTimings []timeline.Record
	SampleRate      int
	DurationMS      int
}

// Capabilities describes what features a provider supports. Static per
// provider.
type Capabilities struct {
	SupportsSpeedControl bool
	SupportsWordTiming   bool
	MinSpeed             float64
	MaxSpeed             float64
	DefaultSpeed         float64
	// MaxSegmentChars bounds the segmenter's window for this provider.
	MaxSegmentChars int
}

// ClampSpeed forces speed into the provider's advertised bounds.
func (c Capabilities) ClampSpeed(speed float64) float64 {
	if speed < c.MinSpeed {
		return c.MinSpeed
	}
	if speed > c.MaxSpeed {
		return c.MaxSpeed
	}
	return speed
}

// Voice is a single voice available from a provider.
type Voice struct {
	ID           string `json:"voice_id"`
	Name         string `json:"name"`
	LanguageCode string `json:"language_code"`
	LanguageName string `json:"language_name"`
	Gender       string `json:"gender,omitempty"`
	Provider     string `json:"provider"`
}

// Provider is the interface for text-to-speech synthesis backends.
//
// Implementations must be safe for concurrent use and must return audio as a
// complete WAV file. Failures are reported through the error classes in this
// package: ErrAuth, ErrRateLimited, ErrUpstream.
type Provider interface {
	// Synthesize converts one text segment to audio.
	Synthesize(ctx context.Context, req Request) (*SynthesisResult, error)

	// ListVoices returns the provider's voice catalogue.
	ListVoices(ctx context.Context) ([]Voice, error)

	// Capabilities returns static capability metadata.
	Capabilities() Capabilities

	// Name returns the registry key for this provider.
	Name() string

	// DisplayName returns a human-readable provider name.
	DisplayName() string

	// Configured reports whether credentials are present. It does not
	// validate them against the upstream API.
	Configured() bool
}
