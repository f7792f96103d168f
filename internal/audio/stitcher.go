// Package audio concatenates per-segment WAV audio into one continuous track.
package audio

import (
	"errors"
	"fmt"

	"github.com/voxline/narravox/internal/wav"
)

var (
	// ErrAudioProcessing is returned when stitching or re-encoding fails.
	ErrAudioProcessing = errors.New("audio processing failed")
	// ErrNoSegments is returned when there is nothing to stitch.
	ErrNoSegments = fmt.Errorf("%w: no audio segments", ErrAudioProcessing)
)

// DefaultSilenceBetweenMS smooths the perceptible seam between segments.
const DefaultSilenceBetweenMS = 100

// Artifact is the final stitched output.
type Artifact struct {
	// Data is a complete WAV file.
	Data       []byte
	DurationMS int
	SizeBytes  int
	SampleRate int
	Channels   int
}

// Stitcher combines ordered WAV segments into a single WAV file.
//
// All segments must share sample rate, channel count and bit depth. With zero
// crossfade the output duration equals the sum of the segment durations plus
// the total inserted silence; each crossfade overlaps adjacent segments and
// shortens the result by CrossfadeMS per join.
type Stitcher struct {
	// SilenceBetweenMS is inserted between each consecutive pair of segments.
	SilenceBetweenMS int
	// CrossfadeMS linearly blends each join. Requires 16-bit samples.
	CrossfadeMS int
}

// NewStitcher returns a Stitcher with the default inter-segment silence and
// no crossfade.
func NewStitcher() *Stitcher {
	return &Stitcher{SilenceBetweenMS: DefaultSilenceBetweenMS}
}

// Stitch concatenates the given WAV segments in order.
//
// A single segment is re-encoded with a canonical header rather than
// concatenated. For N > 1 segments, SilenceBetweenMS of silence is inserted
// before each join (and before the crossfade, when one is configured).
func (s *Stitcher) Stitch(segments [][]byte) (*Artifact, error) {
	if len(segments) == 0 {
		return nil, ErrNoSegments
	}

	infos := make([]wav.Info, len(segments))
	for i, seg := range segments {
		info, err := wav.Parse(seg)
		if err != nil {
			return nil, fmt.Errorf("%w: segment %d: %w", ErrAudioProcessing, i, err)
		}
		if i > 0 && !info.SameFormat(infos[0]) {
			return nil, fmt.Errorf("%w: segment %d format %dHz/%dch/%dbit does not match first segment",
				ErrAudioProcessing, i, info.SampleRate, info.Channels, info.BitsPerSample)
		}
		infos[i] = info
	}

	format := infos[0]
	if s.CrossfadeMS > 0 && format.BitsPerSample != 16 {
		return nil, fmt.Errorf("%w: crossfade requires 16-bit samples, got %d-bit",
			ErrAudioProcessing, format.BitsPerSample)
	}

	pcm := pcmData(segments[0], infos[0])
	for i := 1; i < len(segments); i++ {
		if s.SilenceBetweenMS > 0 {
			pcm = append(pcm, wav.SilencePCM(s.SilenceBetweenMS,
				format.SampleRate, format.Channels, format.BitsPerSample)...)
		}
		next := pcmData(segments[i], infos[i])
		if s.CrossfadeMS > 0 {
			pcm = crossfade(pcm, next, s.CrossfadeMS, format)
		} else {
			pcm = append(pcm, next...)
		}
	}

	return s.encode(pcm, format), nil
}

// DurationMS returns the duration of a WAV file in milliseconds.
func (s *Stitcher) DurationMS(data []byte) (int, error) {
	info, err := wav.Parse(data)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrAudioProcessing, err)
	}
	return info.DurationMS(), nil
}

func (s *Stitcher) encode(pcm []byte, format wav.Info) *Artifact {
	data := wav.WrapRawPCM(pcm, format.SampleRate, format.Channels, format.BitsPerSample)
	out := wav.Info{
		SampleRate:    format.SampleRate,
		Channels:      format.Channels,
		BitsPerSample: format.BitsPerSample,
		DataSize:      len(pcm),
	}
	return &Artifact{
		Data:       data,
		DurationMS: out.DurationMS(),
		SizeBytes:  len(data),
		SampleRate: format.SampleRate,
		Channels:   format.Channels,
	}
}

// pcmData extracts the PCM payload of a parsed segment.
func pcmData(seg []byte, info wav.Info) []byte {
	out := make([]byte, info.DataSize)
	copy(out, seg[info.DataOffset:info.DataOffset+info.DataSize])
	return out
}

// crossfade overlap-adds the tail of head and the start of next over
// crossfadeMS with complementary linear gain ramps. The overlap is clamped to
// the shorter of the two parts.
func crossfade(head, next []byte, crossfadeMS int, format wav.Info) []byte {
	frameBytes := format.Channels * 2
	overlapFrames := format.SampleRate * crossfadeMS / 1000
	if max := len(head) / frameBytes; overlapFrames > max {
		overlapFrames = max
	}
	if max := len(next) / frameBytes; overlapFrames > max {
		overlapFrames = max
	}
	if overlapFrames == 0 {
		return append(head, next...)
	}

	overlapBytes := overlapFrames * frameBytes
	tailStart := len(head) - overlapBytes

	for f := 0; f < overlapFrames; f++ {
		fadeIn := float64(f) / float64(overlapFrames)
		fadeOut := 1 - fadeIn
		for c := 0; c < format.Channels; c++ {
			off := f*frameBytes + c*2
			a := int16(wav.GetLE16(head[tailStart+off : tailStart+off+2]))
			b := int16(wav.GetLE16(next[off : off+2]))
			mixed := float64(a)*fadeOut + float64(b)*fadeIn
			if mixed > 32767 {
				mixed = 32767
			} else if mixed < -32768 {
				mixed = -32768
			}
			wav.PutLE16(head[tailStart+off:tailStart+off+2], uint16(int16(mixed)))
		}
	}

	return append(head, next[overlapBytes:]...)
}
