// Package openai implements a tts.Provider backed by the OpenAI speech API.
//
// OpenAI returns audio only — no word-level timing — so jobs synthesized
// through this provider always fall back to estimated timings.
package openai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"

	"github.com/voxline/narravox/internal/tts"
	"github.com/voxline/narravox/internal/wav"
)

const defaultModel = "tts-1"

// maxInputChars is the OpenAI speech endpoint's input limit.
const maxInputChars = 4000

// config holds optional configuration for the provider.
type config struct {
	baseURL string
	model   string
	timeout time.Duration
}

// Option is a functional option for Provider.
type Option func(*config)

// WithBaseURL overrides the default OpenAI API base URL.
func WithBaseURL(url string) Option {
	return func(c *config) {
		c.baseURL = url
	}
}

// WithModel overrides the default speech model.
func WithModel(model string) Option {
	return func(c *config) {
		c.model = model
	}
}

// WithTimeout sets a per-request HTTP timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *config) {
		c.timeout = d
	}
}

// Provider implements tts.Provider using the OpenAI speech API.
type Provider struct {
	client     oai.Client
	model      string
	configured bool
	logger     *slog.Logger
}

// New constructs a new OpenAI speech provider. An empty apiKey is allowed:
// the provider registers but reports Configured() == false so the API can
// list it as unavailable instead of hiding it.
func New(apiKey string, logger *slog.Logger, opts ...Option) *Provider {
	cfg := &config{model: defaultModel}
	for _, o := range opts {
		o(cfg)
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		// Retry policy lives in the synthesis invoker, not the transport.
		option.WithMaxRetries(0),
	}
	if cfg.baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.baseURL))
	}
	if cfg.timeout > 0 {
		reqOpts = append(reqOpts, option.WithHTTPClient(&http.Client{
			Timeout: cfg.timeout,
		}))
	}

	return &Provider{
		client:     oai.NewClient(reqOpts...),
		model:      cfg.model,
		configured: apiKey != "",
		logger:     logger,
	}
}

// Name returns the registry key for this provider.
func (p *Provider) Name() string {
	return "openai"
}

// DisplayName returns a human-readable provider name.
func (p *Provider) DisplayName() string {
	return "OpenAI"
}

// Configured reports whether an API key is present.
func (p *Provider) Configured() bool {
	return p.configured
}

// Capabilities returns static capability metadata.
func (p *Provider) Capabilities() tts.Capabilities {
	return tts.Capabilities{
		SupportsSpeedControl: true,
		SupportsWordTiming:   false,
		MinSpeed:             0.25,
		MaxSpeed:             4.0,
		DefaultSpeed:         1.0,
		MaxSegmentChars:      maxInputChars,
	}
}

// ListVoices returns the fixed OpenAI voice catalogue. The speech API has no
// voice listing endpoint, so the set is maintained here.
func (p *Provider) ListVoices(ctx context.Context) ([]tts.Voice, error) {
	names := []string{"alloy", "echo", "fable", "onyx", "nova", "shimmer"}
	voices := make([]tts.Voice, 0, len(names))
	for _, name := range names {
		voices = append(voices, tts.Voice{
			ID:           name,
			Name:         name,
			LanguageCode: "en-US",
			LanguageName: "English (US)",
			Provider:     "openai",
		})
	}
	return voices, nil
}

// Synthesize converts one text segment to audio via the speech endpoint.
func (p *Provider) Synthesize(ctx context.Context, req tts.Request) (*tts.SynthesisResult, error) {
	if !p.configured {
		return nil, tts.ErrNotConfigured
	}

	voice := req.VoiceID
	if voice == "" {
		voice = "alloy"
	}

	params := oai.AudioSpeechNewParams{
		Model:          oai.SpeechModel(p.model),
		Input:          req.Text,
		Voice:          oai.AudioSpeechNewParamsVoice(voice),
		ResponseFormat: oai.AudioSpeechNewParamsResponseFormatWAV,
	}
	if req.Speed > 0 {
		params.Speed = param.NewOpt(p.Capabilities().ClampSpeed(req.Speed))
	}

	p.logger.Debug("openai speech request",
		"model", p.model,
		"voice", voice,
		"text_length", len(req.Text),
	)

	resp, err := p.client.Audio.Speech.New(ctx, params)
	if err != nil {
		return nil, classifyError(err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading audio body: %v", tts.ErrUpstream, err)
	}

	info, err := wav.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%w: unexpected audio payload: %v", tts.ErrUpstream, err)
	}

	return &tts.SynthesisResult{
		AudioData:  data,
		SampleRate: info.SampleRate,
		DurationMS: info.DurationMS(),
	}, nil
}

// classifyError maps SDK errors onto the shared error classes so the retry
// invoker and the job orchestrator can branch on them.
func classifyError(err error) error {
	var apierr *oai.Error
	if errors.As(err, &apierr) {
		switch apierr.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return fmt.Errorf("%w: openai status %d", tts.ErrAuth, apierr.StatusCode)
		case http.StatusTooManyRequests:
			return fmt.Errorf("%w: openai status %d", tts.ErrRateLimited, apierr.StatusCode)
		default:
			return fmt.Errorf("%w: openai status %d", tts.ErrUpstream, apierr.StatusCode)
		}
	}
	return fmt.Errorf("%w: %v", tts.ErrUpstream, err)
}
