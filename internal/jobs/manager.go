package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/voxline/narravox/internal/artifact"
	"github.com/voxline/narravox/internal/audio"
	"github.com/voxline/narravox/internal/observe"
	"github.com/voxline/narravox/internal/text"
	"github.com/voxline/narravox/internal/timeline"
	"github.com/voxline/narravox/internal/tts"
)

// ManagerConfig tunes job processing.
type ManagerConfig struct {
	// MaxRetries bounds rate-limit retries per segment. Zero disables
	// retries; negative values fall back to the default.
	MaxRetries int
	// InitialBackoff is the first retry delay; it doubles per attempt.
	InitialBackoff time.Duration
}

// Manager creates narration jobs and runs the synthesis pipeline for each
// one in its own goroutine.
type Manager struct {
	registry  *tts.Registry
	store     *Store
	artifacts *artifact.Store
	stitcher  *audio.Stitcher
	metrics   *observe.Metrics
	logger    *slog.Logger
	config    ManagerConfig

	mu          sync.Mutex
	subscribers map[string]map[chan Job]struct{}
	wg          sync.WaitGroup
}

// NewManager wires the pipeline together.
func NewManager(registry *tts.Registry, store *Store, artifacts *artifact.Store, stitcher *audio.Stitcher, metrics *observe.Metrics, logger *slog.Logger, cfg ManagerConfig) *Manager {
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = tts.DefaultMaxRetries
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = tts.DefaultInitialBackoff
	}
	return &Manager{
		registry:    registry,
		store:       store,
		artifacts:   artifacts,
		stitcher:    stitcher,
		metrics:     metrics,
		logger:      logger,
		config:      cfg,
		subscribers: make(map[string]map[chan Job]struct{}),
	}
}

// CreateJob validates the request, stores a pending job, and starts
// processing in the background. It returns a snapshot of the pending job
// immediately.
func (m *Manager) CreateJob(providerName, voiceID, input string, speed float64) (Job, error) {
	var provider tts.Provider
	var err error
	if providerName == "" {
		provider, err = m.registry.Default()
	} else {
		provider, err = m.registry.Get(providerName)
	}
	if err != nil {
		return Job{}, err
	}
	if !provider.Configured() {
		return Job{}, fmt.Errorf("%w: %s", tts.ErrNotConfigured, provider.Name())
	}

	caps := provider.Capabilities()
	if speed == 0 {
		speed = caps.DefaultSpeed
	}
	speed = caps.ClampSpeed(speed)

	segments, err := text.Split(input, caps.MaxSegmentChars)
	if err != nil {
		return Job{}, err
	}

	job := NewJob(provider.Name(), voiceID, input, speed)
	job.TotalSegments = len(segments)
	m.store.Put(job)

	// Snapshot before the pipeline goroutine starts: once it runs, the
	// stored record is only touched under the store lock, and this copy
	// must not race those writes.
	snapshot := *job

	m.logger.Info("job created",
		"job_id", job.ID,
		"provider", provider.Name(),
		"segments", len(segments),
		"text_length", len(input),
	)

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.Process(job.ID, provider, segments)
	}()

	return snapshot, nil
}

// Process runs the full pipeline for one job: sequential per-segment
// synthesis with retry, stitching, artifact persistence, and timing merge.
// Any failure marks the job failed with a sanitized message; nothing escapes
// this boundary.
func (m *Manager) Process(id string, provider tts.Provider, segments []text.Segment) {
	ctx := context.Background()
	started := time.Now()

	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("job panicked", "job_id", id, "panic", r)
			m.fail(ctx, id, started, errors.New("internal error"))
		}
	}()

	m.metrics.ActiveJobs.Add(ctx, 1)
	defer m.metrics.ActiveJobs.Add(ctx, -1)

	job, err := m.store.Update(id, func(j *Job) {
		j.Status = StatusRunning
	})
	if err != nil {
		m.logger.Error("job vanished before processing", "job_id", id)
		return
	}
	m.publish(job)

	audioSegs := make([][]byte, 0, len(segments))
	durations := make([]int, 0, len(segments))
	perSegmentWords := make([][]timeline.Record, 0, len(segments))
	perSegmentSentences := make([][]timeline.Record, 0, len(segments))

	onRetry := func() { m.metrics.RecordRetry(ctx, provider.Name()) }

	req := tts.Request{VoiceID: job.VoiceID, Speed: job.Speed}
	for i, seg := range segments {
		req.Text = seg.Text

		synthStart := time.Now()
		result, err := tts.SynthesizeWithRetry(ctx, provider, req, m.config.MaxRetries, m.config.InitialBackoff, onRetry)
		elapsed := time.Since(synthStart).Seconds()
		if err != nil {
			m.metrics.RecordSynthesis(ctx, provider.Name(), "error", elapsed)
			m.metrics.RecordProviderError(ctx, provider.Name(), errorClass(err))
			m.fail(ctx, id, started, err)
			return
		}
		m.metrics.RecordSynthesis(ctx, provider.Name(), "ok", elapsed)

		audioSegs = append(audioSegs, result.AudioData)
		durations = append(durations, result.DurationMS)
		perSegmentWords = append(perSegmentWords, result.WordTimings)
		perSegmentSentences = append(perSegmentSentences, result.SentenceTimings)

		completed := i + 1
		snapshot, err := m.store.Update(id, func(j *Job) {
			j.CompletedSegments = completed
			j.Progress = float64(completed) / float64(len(segments))
		})
		if err == nil {
			m.publish(snapshot)
		}

		m.logger.Debug("segment synthesized",
			"job_id", id,
			"segment", completed,
			"of", len(segments),
			"duration_ms", result.DurationMS,
		)
	}

	art, err := m.stitcher.Stitch(audioSegs)
	if err != nil {
		m.fail(ctx, id, started, err)
		return
	}

	if _, err := m.artifacts.Save(id, art.Data); err != nil {
		m.fail(ctx, id, started, err)
		return
	}

	tl := m.buildTimeline(job.Text, segments, perSegmentWords, perSegmentSentences, durations, art.DurationMS)

	now := time.Now().UTC()
	snapshot, err := m.store.Update(id, func(j *Job) {
		j.Status = StatusCompleted
		j.Progress = 1
		j.Timing = tl.timeline
		j.TimingSource = tl.source
		j.DurationMS = art.DurationMS
		j.SizeBytes = art.SizeBytes
		j.CompletedAt = &now
	})
	if err != nil {
		return
	}
	m.publish(snapshot)
	m.metrics.RecordJobFinished(ctx, string(StatusCompleted), time.Since(started).Seconds())

	m.logger.Info("job completed",
		"job_id", id,
		"duration_ms", art.DurationMS,
		"size_bytes", art.SizeBytes,
		"timing_source", tl.source,
	)
}

type builtTimeline struct {
	timeline *timeline.Timeline
	source   string
}

// buildTimeline merges provider timing across segments — word grain when any
// segment returned word timings, sentence grain when the provider supplied
// only sentence timing — and degrades to the character-proportional estimator
// when no provider timing exists or the merge inputs are inconsistent.
// Degrading is not a job failure.
func (m *Manager) buildTimeline(source string, segments []text.Segment, words, sentences [][]timeline.Record, durations []int, totalDurationMS int) builtTimeline {
	if hasRecords(words) {
		records, err := timeline.Merge(segments, words, durations, m.stitcher.SilenceBetweenMS, m.stitcher.CrossfadeMS)
		if err == nil {
			return builtTimeline{
				timeline: &timeline.Timeline{Grain: timeline.GrainWord, Records: records},
				source:   TimingSourceProvider,
			}
		}
		m.logger.Warn("word timing merge failed", "error", err)
	}

	if hasRecords(sentences) {
		records, err := timeline.Merge(segments, sentences, durations, m.stitcher.SilenceBetweenMS, m.stitcher.CrossfadeMS)
		if err == nil {
			return builtTimeline{
				timeline: &timeline.Timeline{Grain: timeline.GrainSentence, Records: records},
				source:   TimingSourceProvider,
			}
		}
		m.logger.Warn("sentence timing merge failed, falling back to estimate", "error", err)
	}

	return builtTimeline{
		timeline: &timeline.Timeline{
			Grain:   timeline.GrainSentence,
			Records: timeline.Estimate(source, totalDurationMS),
		},
		source: TimingSourceEstimated,
	}
}

// hasRecords reports whether any segment carries timing records.
func hasRecords(perSegment [][]timeline.Record) bool {
	for _, records := range perSegment {
		if len(records) > 0 {
			return true
		}
	}
	return false
}

// fail marks the job failed with a credential-free error message.
func (m *Manager) fail(ctx context.Context, id string, started time.Time, cause error) {
	sanitized := tts.SanitizeError(cause.Error())
	now := time.Now().UTC()

	snapshot, err := m.store.Update(id, func(j *Job) {
		j.Status = StatusFailed
		j.ErrorMessage = sanitized
		j.CompletedAt = &now
	})
	if err != nil {
		return
	}
	m.publish(snapshot)
	m.metrics.RecordJobFinished(ctx, string(StatusFailed), time.Since(started).Seconds())

	m.logger.Error("job failed", "job_id", id, "error", sanitized)
}

// Status returns a snapshot of a job.
func (m *Manager) Status(id string) (Job, error) {
	return m.store.Get(id)
}

// ArtifactPath returns the audio file path for a completed job.
func (m *Manager) ArtifactPath(id string) (string, error) {
	job, err := m.store.Get(id)
	if err != nil {
		return "", err
	}
	if job.Status != StatusCompleted {
		return "", ErrJobNotReady
	}
	return m.artifacts.Path(id)
}

// Metadata returns the full snapshot of a completed job, including timing.
func (m *Manager) Metadata(id string) (Job, error) {
	job, err := m.store.Get(id)
	if err != nil {
		return Job{}, err
	}
	if job.Status != StatusCompleted {
		return Job{}, ErrJobNotReady
	}
	return job, nil
}

// Subscribe returns a channel of job snapshots published after every state
// change, plus a cancel function. The channel is closed when the job reaches
// a terminal state or the subscription is cancelled. Subscribing to a job
// already in a terminal state yields one final snapshot.
func (m *Manager) Subscribe(id string) (<-chan Job, func(), error) {
	snapshot, err := m.store.Get(id)
	if err != nil {
		return nil, nil, err
	}

	ch := make(chan Job, 16)
	if snapshot.Status.Terminal() {
		ch <- snapshot
		close(ch)
		return ch, func() {}, nil
	}

	m.mu.Lock()
	subs, ok := m.subscribers[id]
	if !ok {
		subs = make(map[chan Job]struct{})
		m.subscribers[id] = subs
	}
	subs[ch] = struct{}{}
	m.mu.Unlock()

	cancel := func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		if subs, ok := m.subscribers[id]; ok {
			if _, ok := subs[ch]; ok {
				delete(subs, ch)
				close(ch)
			}
		}
	}
	return ch, cancel, nil
}

// publish delivers a snapshot to every subscriber of the job. Slow consumers
// are skipped rather than blocking the pipeline. Terminal snapshots close all
// subscriptions.
func (m *Manager) publish(snapshot Job) {
	m.mu.Lock()
	defer m.mu.Unlock()

	subs := m.subscribers[snapshot.ID]
	for ch := range subs {
		select {
		case ch <- snapshot:
		default:
		}
		if snapshot.Status.Terminal() {
			close(ch)
		}
	}
	if snapshot.Status.Terminal() {
		delete(m.subscribers, snapshot.ID)
	}
}

// Wait blocks until all in-flight jobs finish. Used for graceful shutdown.
func (m *Manager) Wait() {
	m.wg.Wait()
}

// Sweep evicts terminal jobs and their artifacts every interval until ctx is
// cancelled.
func (m *Manager) Sweep(ctx context.Context, interval, maxAge time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			evicted := m.store.CleanupOlderThan(maxAge)
			for _, id := range evicted {
				if err := m.artifacts.Delete(id); err != nil {
					m.logger.Warn("evicting artifact failed", "job_id", id, "error", err)
				}
			}
			if len(evicted) > 0 {
				m.logger.Info("evicted old jobs", "count", len(evicted))
			}
		}
	}
}

// errorClass labels a synthesis error for metrics.
func errorClass(err error) string {
	switch {
	case errors.Is(err, tts.ErrAuth):
		return "auth"
	case errors.Is(err, tts.ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, tts.ErrNotConfigured):
		return "not_configured"
	default:
		return "upstream"
	}
}
