package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/voxline/narravox/internal/jobs"
	"github.com/voxline/narravox/internal/text"
	"github.com/voxline/narravox/internal/timeline"
	"github.com/voxline/narravox/internal/tts"
)

// GenerateRequest represents the request body for /v1/generate.
type GenerateRequest struct {
	Text     string  `json:"text"`
	Provider string  `json:"provider,omitempty"`
	VoiceID  string  `json:"voice_id,omitempty"`
	Speed    float64 `json:"speed,omitempty"`
}

// GenerateResponse represents the response body for /v1/generate.
type GenerateResponse struct {
	JobID  string `json:"job_id"`
	Status string `json:"status"`
}

// MetadataResponse represents the response body for /v1/jobs/{id}/metadata.
type MetadataResponse struct {
	JobID        string             `json:"job_id"`
	DurationMS   int                `json:"duration_ms"`
	SizeBytes    int                `json:"size_bytes"`
	TimingSource string             `json:"timing_source"`
	Timing       *timeline.Timeline `json:"timing"`
}

// ProviderInfo describes one provider in /v1/providers responses.
type ProviderInfo struct {
	Name         string               `json:"name"`
	DisplayName  string               `json:"display_name"`
	Configured   bool                 `json:"configured"`
	Capabilities ProviderCapabilities `json:"capabilities"`
}

// ProviderCapabilities is the wire form of tts.Capabilities.
type ProviderCapabilities struct {
	SupportsSpeedControl bool    `json:"supports_speed_control"`
	SupportsWordTiming   bool    `json:"supports_word_timing"`
	MinSpeed             float64 `json:"min_speed"`
	MaxSpeed             float64 `json:"max_speed"`
	DefaultSpeed         float64 `json:"default_speed"`
	MaxSegmentChars      int     `json:"max_segment_chars"`
}

// VoicesResponse represents the response body for provider voice listings.
type VoicesResponse struct {
	Provider string      `json:"provider"`
	Voices   []tts.Voice `json:"voices"`
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// HealthResponse represents the response body for /v1/healthz.
type HealthResponse struct {
	Status string `json:"status"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}

// handleHealthz handles GET /v1/healthz requests.
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// handleGenerate handles POST /v1/generate requests.
func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.logger.Warn("failed to decode generate request", "error", err)
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if req.Text == "" {
		writeError(w, http.StatusBadRequest, "text is required")
		return
	}
	if len(req.Text) > s.cfg.Synthesis.MaxTextLength {
		s.logger.Warn("text exceeds max length", "length", len(req.Text), "max", s.cfg.Synthesis.MaxTextLength)
		writeError(w, http.StatusBadRequest, "text exceeds maximum length")
		return
	}
	if req.Speed < 0 {
		writeError(w, http.StatusBadRequest, "speed must be non-negative")
		return
	}

	provider := req.Provider
	if provider == "" {
		provider = s.cfg.Synthesis.DefaultProvider
	}

	job, err := s.manager.CreateJob(provider, req.VoiceID, req.Text, req.Speed)
	if err != nil {
		switch {
		case errors.Is(err, tts.ErrProviderNotFound):
			writeError(w, http.StatusBadRequest, "unknown provider")
		case errors.Is(err, tts.ErrNotConfigured):
			writeError(w, http.StatusBadRequest, "provider is not configured")
		case errors.Is(err, text.ErrInvalidInput):
			writeError(w, http.StatusBadRequest, "text is empty or not segmentable")
		default:
			s.logger.Error("failed to create job", "error", err)
			writeError(w, http.StatusInternalServerError, "failed to create job")
		}
		return
	}

	s.logger.Info("generate request accepted",
		"job_id", job.ID,
		"provider", job.Provider,
		"text_length", len(req.Text),
		"segments", job.TotalSegments,
	)

	writeJSON(w, http.StatusAccepted, GenerateResponse{
		JobID:  job.ID,
		Status: string(job.Status),
	})
}

// handleJobStatus handles GET /v1/jobs/{id} requests.
func (s *Server) handleJobStatus(w http.ResponseWriter, r *http.Request) {
	job, err := s.manager.Status(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}
	writeJSON(w, http.StatusOK, job)
}

// handleJobAudio handles GET /v1/jobs/{id}/audio requests.
func (s *Server) handleJobAudio(w http.ResponseWriter, r *http.Request) {
	path, err := s.manager.ArtifactPath(r.PathValue("id"))
	if err != nil {
		switch {
		case errors.Is(err, jobs.ErrJobNotFound):
			writeError(w, http.StatusNotFound, "job not found")
		case errors.Is(err, jobs.ErrJobNotReady):
			writeError(w, http.StatusConflict, "job is not completed")
		default:
			s.logger.Error("failed to resolve artifact", "error", err)
			writeError(w, http.StatusInternalServerError, "failed to read audio")
		}
		return
	}

	w.Header().Set("Content-Type", "audio/wav")
	http.ServeFile(w, r, path)
}

// handleJobMetadata handles GET /v1/jobs/{id}/metadata requests.
func (s *Server) handleJobMetadata(w http.ResponseWriter, r *http.Request) {
	job, err := s.manager.Metadata(r.PathValue("id"))
	if err != nil {
		switch {
		case errors.Is(err, jobs.ErrJobNotFound):
			writeError(w, http.StatusNotFound, "job not found")
		case errors.Is(err, jobs.ErrJobNotReady):
			writeError(w, http.StatusConflict, "job is not completed")
		default:
			s.logger.Error("failed to read metadata", "error", err)
			writeError(w, http.StatusInternalServerError, "failed to read metadata")
		}
		return
	}

	writeJSON(w, http.StatusOK, MetadataResponse{
		JobID:        job.ID,
		DurationMS:   job.DurationMS,
		SizeBytes:    job.SizeBytes,
		TimingSource: job.TimingSource,
		Timing:       job.Timing,
	})
}

// handleProviders handles GET /v1/providers requests.
func (s *Server) handleProviders(w http.ResponseWriter, r *http.Request) {
	providers := s.registry.List()
	infos := make([]ProviderInfo, 0, len(providers))
	for _, p := range providers {
		caps := p.Capabilities()
		infos = append(infos, ProviderInfo{
			Name:        p.Name(),
			DisplayName: p.DisplayName(),
			Configured:  p.Configured(),
			Capabilities: ProviderCapabilities{
				SupportsSpeedControl: caps.SupportsSpeedControl,
				SupportsWordTiming:   caps.SupportsWordTiming,
				MinSpeed:             caps.MinSpeed,
				MaxSpeed:             caps.MaxSpeed,
				DefaultSpeed:         caps.DefaultSpeed,
				MaxSegmentChars:      caps.MaxSegmentChars,
			},
		})
	}
	writeJSON(w, http.StatusOK, map[string][]ProviderInfo{"providers": infos})
}

// handleProviderVoices handles GET /v1/providers/{name}/voices requests.
func (s *Server) handleProviderVoices(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	provider, err := s.registry.Get(name)
	if err != nil {
		writeError(w, http.StatusNotFound, "unknown provider")
		return
	}

	voices, err := provider.ListVoices(r.Context())
	if err != nil {
		switch {
		case errors.Is(err, tts.ErrNotConfigured):
			writeError(w, http.StatusConflict, "provider is not configured")
		case errors.Is(err, tts.ErrAuth):
			writeError(w, http.StatusBadGateway, "provider rejected credentials")
		default:
			s.logger.Error("failed to list voices", "provider", name, "error", err)
			writeError(w, http.StatusBadGateway, "failed to list voices")
		}
		return
	}

	writeJSON(w, http.StatusOK, VoicesResponse{Provider: name, Voices: voices})
}
