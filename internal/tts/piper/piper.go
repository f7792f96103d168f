// Package piper implements a tts.Provider backed by a local Piper binary.
//
// Piper runs fully offline, so it needs no credentials and is always
// configured once the binary and model are present. It produces raw 16-bit
// PCM on stdout which we wrap in a WAV header.
package piper

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"

	"github.com/voxline/narravox/internal/tts"
	"github.com/voxline/narravox/internal/wav"
)

var (
	// ErrPiperNotFound is returned when the piper binary is not found.
	ErrPiperNotFound = errors.New("piper binary not found")
	// ErrNoModelSpecified is returned when no model is configured.
	ErrNoModelSpecified = errors.New("no piper model specified")
)

// Config holds configuration for the Piper provider.
type Config struct {
	// BinaryPath is the path to the piper executable.
	BinaryPath string
	// ModelPath is the path to the ONNX model file.
	ModelPath string
	// DefaultVoice is the default speaker ID to use.
	DefaultVoice string
}

// Provider implements tts.Provider using local Piper TTS.
type Provider struct {
	config Config
	logger *slog.Logger
}

// New creates a new Piper provider. It verifies the binary is on PATH and a
// model is configured.
func New(cfg Config, logger *slog.Logger) (*Provider, error) {
	if cfg.BinaryPath == "" {
		cfg.BinaryPath = "piper"
	}

	if _, err := exec.LookPath(cfg.BinaryPath); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrPiperNotFound, cfg.BinaryPath)
	}

	if cfg.ModelPath == "" {
		return nil, ErrNoModelSpecified
	}

	return &Provider{
		config: cfg,
		logger: logger,
	}, nil
}

// Name returns the registry key for this provider.
func (p *Provider) Name() string {
	return "piper"
}

// DisplayName returns a human-readable provider name.
func (p *Provider) DisplayName() string {
	return "Piper (local)"
}

// Configured reports whether the provider can synthesize. Construction
// already verified the binary and model, so this is always true.
func (p *Provider) Configured() bool {
	return true
}

// Capabilities returns static capability metadata. Piper provides no word
// timing and no speed control, so the pipeline falls back to estimated
// timings for this provider.
func (p *Provider) Capabilities() tts.Capabilities {
	return tts.Capabilities{
		SupportsSpeedControl: false,
		SupportsWordTiming:   false,
		MinSpeed:             1.0,
		MaxSpeed:             1.0,
		DefaultSpeed:         1.0,
		MaxSegmentChars:      5000,
	}
}

// ListVoices returns the configured speaker. Piper voices are baked into the
// model file, so the catalogue is whatever model the operator installed.
func (p *Provider) ListVoices(ctx context.Context) ([]tts.Voice, error) {
	voice := p.config.DefaultVoice
	if voice == "" {
		voice = "default"
	}
	return []tts.Voice{
		{
			ID:           voice,
			Name:         fmt.Sprintf("Piper %s", voice),
			LanguageCode: "en-US",
			LanguageName: "English (US)",
			Provider:     "piper",
		},
	}, nil
}

// Synthesize converts one text segment to audio using the piper binary.
func (p *Provider) Synthesize(ctx context.Context, req tts.Request) (*tts.SynthesisResult, error) {
	if req.Text == "" {
		return nil, fmt.Errorf("%w: empty text", tts.ErrUpstream)
	}

	args := []string{
		"--model", p.config.ModelPath,
		"--output-raw",
	}

	voice := req.VoiceID
	if voice == "" || voice == "default" {
		voice = p.config.DefaultVoice
	}
	if voice != "" && voice != "default" {
		args = append(args, "--speaker", voice)
	}

	p.logger.Debug("running piper",
		"binary", p.config.BinaryPath,
		"model", p.config.ModelPath,
		"voice", voice,
		"text_length", len(req.Text),
	)

	cmd := exec.CommandContext(ctx, p.config.BinaryPath, args...)
	cmd.Stdin = bytes.NewReader([]byte(req.Text))

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		p.logger.Error("piper failed",
			"error", err,
			"stderr", stderr.String(),
		)
		return nil, fmt.Errorf("%w: piper: %v", tts.ErrUpstream, err)
	}

	rawAudio := stdout.Bytes()
	if len(rawAudio) == 0 {
		return nil, fmt.Errorf("%w: piper produced no audio", tts.ErrUpstream)
	}

	// Piper outputs raw 16-bit PCM at 22050 Hz mono by default.
	wavData := wav.WrapRawPCM(rawAudio, wav.PiperSampleRate, wav.PiperChannels, wav.PiperBitsPerSample)

	info, err := wav.Parse(wavData)
	if err != nil {
		return nil, fmt.Errorf("%w: inspecting piper output: %v", tts.ErrUpstream, err)
	}

	p.logger.Debug("piper synthesis complete",
		"output_bytes", len(rawAudio),
		"duration_ms", info.DurationMS(),
	)

	return &tts.SynthesisResult{
		AudioData:  wavData,
		SampleRate: wav.PiperSampleRate,
		DurationMS: info.DurationMS(),
	}, nil
}
