// Package elevenlabs implements a tts.Provider backed by the ElevenLabs API.
//
// This is the only provider that returns word-level timing: the
// with-timestamps endpoint reports per-character alignment, which is grouped
// into word records here. Audio is requested as raw PCM and wrapped in a WAV
// header so the rest of the pipeline sees one format.
package elevenlabs

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/voxline/narravox/internal/timeline"
	"github.com/voxline/narravox/internal/tts"
	"github.com/voxline/narravox/internal/wav"
)

const (
	defaultBaseURL = "https://api.elevenlabs.io"
	defaultModelID = "eleven_multilingual_v2"

	// pcm_22050 keeps output aligned with the rest of the pipeline.
	outputFormat = "pcm_22050"
	sampleRate   = 22050
)

// config holds optional configuration for the provider.
type config struct {
	baseURL string
	modelID string
	timeout time.Duration
}

// Option is a functional option for Provider.
type Option func(*config)

// WithBaseURL overrides the default ElevenLabs API base URL.
func WithBaseURL(url string) Option {
	return func(c *config) {
		c.baseURL = url
	}
}

// WithModelID overrides the default synthesis model.
func WithModelID(id string) Option {
	return func(c *config) {
		c.modelID = id
	}
}

// WithTimeout sets a per-request HTTP timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *config) {
		c.timeout = d
	}
}

// Provider implements tts.Provider using the ElevenLabs API.
type Provider struct {
	apiKey  string
	baseURL string
	modelID string
	client  *http.Client
	logger  *slog.Logger
}

// New constructs a new ElevenLabs provider. An empty apiKey is allowed: the
// provider registers but reports Configured() == false.
func New(apiKey string, logger *slog.Logger, opts ...Option) *Provider {
	cfg := &config{
		baseURL: defaultBaseURL,
		modelID: defaultModelID,
		timeout: 60 * time.Second,
	}
	for _, o := range opts {
		o(cfg)
	}

	return &Provider{
		apiKey:  apiKey,
		baseURL: cfg.baseURL,
		modelID: cfg.modelID,
		client:  &http.Client{Timeout: cfg.timeout},
		logger:  logger,
	}
}

// Name returns the registry key for this provider.
func (p *Provider) Name() string {
	return "elevenlabs"
}

// DisplayName returns a human-readable provider name.
func (p *Provider) DisplayName() string {
	return "ElevenLabs"
}

// Configured reports whether an API key is present.
func (p *Provider) Configured() bool {
	return p.apiKey != ""
}

// Capabilities returns static capability metadata.
func (p *Provider) Capabilities() tts.Capabilities {
	return tts.Capabilities{
		SupportsSpeedControl: true,
		SupportsWordTiming:   true,
		MinSpeed:             0.7,
		MaxSpeed:             1.2,
		DefaultSpeed:         1.0,
		MaxSegmentChars:      4500,
	}
}

type voicesResponse struct {
	Voices []struct {
		VoiceID string            `json:"voice_id"`
		Name    string            `json:"name"`
		Labels  map[string]string `json:"labels"`
	} `json:"voices"`
}

// ListVoices fetches the account's voice catalogue.
func (p *Provider) ListVoices(ctx context.Context) ([]tts.Voice, error) {
	if !p.Configured() {
		return nil, tts.ErrNotConfigured
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/v1/voices", nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", tts.ErrUpstream, err)
	}
	req.Header.Set("xi-api-key", p.apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", tts.ErrUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, classifyStatus(resp.StatusCode)
	}

	var decoded voicesResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("%w: decoding voices: %v", tts.ErrUpstream, err)
	}

	voices := make([]tts.Voice, 0, len(decoded.Voices))
	for _, v := range decoded.Voices {
		voices = append(voices, tts.Voice{
			ID:           v.VoiceID,
			Name:         v.Name,
			LanguageCode: "en-US",
			LanguageName: "English (US)",
			Gender:       v.Labels["gender"],
			Provider:     "elevenlabs",
		})
	}
	return voices, nil
}

type synthesisRequest struct {
	Text          string         `json:"text"`
	ModelID       string         `json:"model_id"`
	VoiceSettings *voiceSettings `json:"voice_settings,omitempty"`
}

type voiceSettings struct {
	Speed float64 `json:"speed"`
}

type alignment struct {
	Characters              []string  `json:"characters"`
	CharacterStartTimesSecs []float64 `json:"character_start_times_seconds"`
	CharacterEndTimesSecs   []float64 `json:"character_end_times_seconds"`
}

type synthesisResponse struct {
	AudioBase64 string     `json:"audio_base64"`
	Alignment   *alignment `json:"alignment"`
}

// Synthesize converts one text segment to audio with per-word timing.
func (p *Provider) Synthesize(ctx context.Context, req tts.Request) (*tts.SynthesisResult, error) {
	if !p.Configured() {
		return nil, tts.ErrNotConfigured
	}

	voice := req.VoiceID
	if voice == "" {
		return nil, fmt.Errorf("%w: voice id required", tts.ErrUpstream)
	}

	body := synthesisRequest{
		Text:    req.Text,
		ModelID: p.modelID,
	}
	if req.Speed > 0 {
		body.VoiceSettings = &voiceSettings{Speed: p.Capabilities().ClampSpeed(req.Speed)}
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", tts.ErrUpstream, err)
	}

	url := fmt.Sprintf("%s/v1/text-to-speech/%s/with-timestamps?output_format=%s", p.baseURL, voice, outputFormat)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", tts.ErrUpstream, err)
	}
	httpReq.Header.Set("xi-api-key", p.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	p.logger.Debug("elevenlabs synthesis request",
		"voice", voice,
		"model", p.modelID,
		"text_length", len(req.Text),
	)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %v", tts.ErrUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return nil, classifyStatus(resp.StatusCode)
	}

	var decoded synthesisResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("%w: decoding response: %v", tts.ErrUpstream, err)
	}

	pcm, err := base64.StdEncoding.DecodeString(decoded.AudioBase64)
	if err != nil {
		return nil, fmt.Errorf("%w: decoding audio: %v", tts.ErrUpstream, err)
	}
	if len(pcm) == 0 {
		return nil, fmt.Errorf("%w: empty audio payload", tts.ErrUpstream)
	}

	wavData := wav.WrapRawPCM(pcm, sampleRate, 1, 16)
	info, err := wav.Parse(wavData)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", tts.ErrUpstream, err)
	}

	result := &tts.SynthesisResult{
		AudioData:  wavData,
		SampleRate: sampleRate,
		DurationMS: info.DurationMS(),
	}
	if decoded.Alignment != nil {
		result.WordTimings = wordsFromAlignment(decoded.Alignment)
	}
	return result, nil
}

// wordsFromAlignment groups per-character alignment into word records. Times
// and character offsets are local to the synthesized segment; offsets are
// byte positions into the segment text.
func wordsFromAlignment(a *alignment) []timeline.Record {
	n := len(a.Characters)
	if n == 0 || len(a.CharacterStartTimesSecs) != n || len(a.CharacterEndTimesSecs) != n {
		return nil
	}

	var words []timeline.Record
	var current *timeline.Record
	var token []byte
	offset := 0

	flush := func() {
		if current != nil {
			current.Token = string(token)
			words = append(words, *current)
			current = nil
			token = token[:0]
		}
	}

	for i, ch := range a.Characters {
		if isWhitespace(ch) {
			flush()
			offset += len(ch)
			continue
		}
		if current == nil {
			current = &timeline.Record{
				StartMS:   int(a.CharacterStartTimesSecs[i] * 1000),
				StartChar: offset,
			}
		}
		current.EndMS = int(a.CharacterEndTimesSecs[i] * 1000)
		token = append(token, ch...)
		offset += len(ch)
		current.EndChar = offset
	}
	flush()

	return words
}

func isWhitespace(s string) bool {
	for _, r := range s {
		switch r {
		case ' ', '\t', '\n', '\r':
		default:
			return false
		}
	}
	return len(s) > 0
}

func classifyStatus(status int) error {
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: elevenlabs status %d", tts.ErrAuth, status)
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w: elevenlabs status %d", tts.ErrRateLimited, status)
	default:
		return fmt.Errorf("%w: elevenlabs status %d", tts.ErrUpstream, status)
	}
}
