// Package wav provides utilities for WAV audio file handling.
package wav

import (
	"bytes"
	"errors"
	"fmt"
)

// WAV format constants.
const (
	// HeaderSize is the size of a standard WAV file header in bytes.
	HeaderSize = 44

	// FormatPCM is the audio format code for uncompressed PCM.
	FormatPCM = 1
)

// Common audio configuration constants.
const (
	// PiperSampleRate is the default sample rate output by Piper TTS (22050 Hz).
	PiperSampleRate = 22050

	// PiperChannels is the default number of channels output by Piper TTS (mono).
	PiperChannels = 1

	// PiperBitsPerSample is the default bit depth output by Piper TTS (16-bit).
	PiperBitsPerSample = 16
)

// ErrMalformed is returned when data cannot be parsed as a PCM WAV file.
var ErrMalformed = errors.New("malformed WAV data")

// Info describes the format of a parsed WAV file.
type Info struct {
	SampleRate    int
	Channels      int
	BitsPerSample int
	// DataOffset is the byte position where PCM samples begin.
	DataOffset int
	// DataSize is the PCM payload size in bytes.
	DataSize int
}

// DurationMS returns the audio duration in milliseconds.
func (i Info) DurationMS() int {
	bytesPerSec := i.SampleRate * i.Channels * i.BitsPerSample / 8
	if bytesPerSec == 0 {
		return 0
	}
	return i.DataSize * 1000 / bytesPerSec
}

// SameFormat reports whether two files share sample rate, channel count and
// bit depth, and can therefore be concatenated without resampling.
func (i Info) SameFormat(other Info) bool {
	return i.SampleRate == other.SampleRate &&
		i.Channels == other.Channels &&
		i.BitsPerSample == other.BitsPerSample
}

// Parse reads the header of a PCM WAV file. It walks the RIFF chunk list, so
// files with extra chunks (LIST, fact) before the data chunk are accepted.
func Parse(data []byte) (Info, error) {
	if len(data) < HeaderSize {
		return Info{}, fmt.Errorf("%w: %d bytes is shorter than a WAV header", ErrMalformed, len(data))
	}
	if !bytes.Equal(data[0:4], []byte("RIFF")) || !bytes.Equal(data[8:12], []byte("WAVE")) {
		return Info{}, fmt.Errorf("%w: missing RIFF/WAVE marker", ErrMalformed)
	}

	var info Info
	sawFmt := false
	pos := 12

	for pos+8 <= len(data) {
		chunkID := data[pos : pos+4]
		chunkSize := int(GetLE32(data[pos+4 : pos+8]))
		body := pos + 8
		if chunkSize < 0 || body+chunkSize > len(data) {
			return Info{}, fmt.Errorf("%w: chunk %q overruns file", ErrMalformed, chunkID)
		}

		switch {
		case bytes.Equal(chunkID, []byte("fmt ")):
			if chunkSize < 16 {
				return Info{}, fmt.Errorf("%w: fmt chunk too small", ErrMalformed)
			}
			if format := GetLE16(data[body : body+2]); format != FormatPCM {
				return Info{}, fmt.Errorf("%w: unsupported audio format %d", ErrMalformed, format)
			}
			info.Channels = int(GetLE16(data[body+2 : body+4]))
			info.SampleRate = int(GetLE32(data[body+4 : body+8]))
			info.BitsPerSample = int(GetLE16(data[body+14 : body+16]))
			sawFmt = true

		case bytes.Equal(chunkID, []byte("data")):
			if !sawFmt {
				return Info{}, fmt.Errorf("%w: data chunk before fmt chunk", ErrMalformed)
			}
			info.DataOffset = body
			info.DataSize = chunkSize
			if info.SampleRate <= 0 || info.Channels <= 0 || info.BitsPerSample <= 0 {
				return Info{}, fmt.Errorf("%w: invalid format parameters", ErrMalformed)
			}
			return info, nil
		}

		// Chunks are word-aligned.
		pos = body + chunkSize + chunkSize%2
	}

	return Info{}, fmt.Errorf("%w: no data chunk found", ErrMalformed)
}

// WrapRawPCM adds a WAV header to raw PCM data.
// Parameters:
//   - pcm: raw PCM audio data bytes
//   - sampleRate: samples per second (e.g., 22050, 44100, 48000)
//   - channels: number of audio channels (1=mono, 2=stereo)
//   - bitsPerSample: bit depth per sample (typically 16)
//
// Returns a complete WAV file as a byte slice.
func WrapRawPCM(pcm []byte, sampleRate, channels, bitsPerSample int) []byte {
	dataSize := len(pcm)
	byteRate := sampleRate * channels * bitsPerSample / 8
	blockAlign := channels * bitsPerSample / 8

	// WAV header is 44 bytes
	header := make([]byte, HeaderSize)

	// RIFF header
	copy(header[0:4], "RIFF")
	PutLE32(header[4:8], uint32(36+dataSize))
	copy(header[8:12], "WAVE")

	// fmt subchunk
	copy(header[12:16], "fmt ")
	PutLE32(header[16:20], 16) // subchunk size
	PutLE16(header[20:22], FormatPCM)
	PutLE16(header[22:24], uint16(channels))
	PutLE32(header[24:28], uint32(sampleRate))
	PutLE32(header[28:32], uint32(byteRate))
	PutLE16(header[32:34], uint16(blockAlign))
	PutLE16(header[34:36], uint16(bitsPerSample))

	// data subchunk
	copy(header[36:40], "data")
	PutLE32(header[40:44], uint32(dataSize))

	return append(header, pcm...)
}

// SilencePCM returns durationMS of silent PCM for the given format. The
// length is rounded down to a whole sample frame so concatenation never
// shears a sample.
func SilencePCM(durationMS, sampleRate, channels, bitsPerSample int) []byte {
	frameBytes := channels * bitsPerSample / 8
	if frameBytes == 0 {
		return nil
	}
	n := sampleRate * durationMS / 1000 * frameBytes
	return make([]byte, n)
}

// PutLE16 writes a uint16 value in little-endian format to a byte slice.
func PutLE16(b []byte, v uint16) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
}

// PutLE32 writes a uint32 value in little-endian format to a byte slice.
func PutLE32(b []byte, v uint32) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 24)
}

// GetLE16 reads a little-endian uint16 from a byte slice.
func GetLE16(b []byte) uint16 {
	return uint16(b[0]) | uint16(b[1])<<8
}

// GetLE32 reads a little-endian uint32 from a byte slice.
func GetLE32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}

// CreateMinimal creates a minimal valid WAV file with the specified number of samples.
// This is useful for testing. The samples are initialized to silence (zero).
func CreateMinimal(numSamples, sampleRate, channels, bitsPerSample int) []byte {
	bytesPerSample := bitsPerSample / 8
	dataSize := numSamples * channels * bytesPerSample

	// Create silent PCM data
	pcm := make([]byte, dataSize)

	return WrapRawPCM(pcm, sampleRate, channels, bitsPerSample)
}

// CreateMinimalPiper creates a minimal valid WAV file matching Piper TTS output format.
// This is a convenience wrapper around CreateMinimal using Piper's default parameters.
func CreateMinimalPiper(numSamples int) []byte {
	return CreateMinimal(numSamples, PiperSampleRate, PiperChannels, PiperBitsPerSample)
}
