package playback

import (
	"sync"
	"time"

	"github.com/voxline/narravox/internal/timeline"
)

// DefaultFrameInterval re-evaluates the cursor at roughly the rendering
// refresh rate. Word-level spans can be shorter than a host player's native
// time-update cadence, so polling per frame is what keeps highlights from
// visibly lagging.
const DefaultFrameInterval = 16 * time.Millisecond

// ActiveFunc is invoked whenever the active record changes. index is
// NoActiveRecord when the cursor sits in a gap.
type ActiveFunc func(index int)

// Highlighter drives per-frame cursor resolution over a timeline.
//
// While playing, a ticker goroutine resolves the advancing position on every
// frame and reports changes through the callback. While paused the ticker is
// stopped entirely — no work is scheduled, not merely skipped.
type Highlighter struct {
	records  []timeline.Record
	interval time.Duration
	onActive ActiveFunc

	mu        sync.Mutex
	playing   bool
	baseMS    int       // playback position when Play or Seek was last called
	startedAt time.Time // wall-clock moment of the last Play
	lastIndex int
	stopCh    chan struct{}
	wg        sync.WaitGroup
}

// NewHighlighter creates a Highlighter over the given records. The callback
// may be nil, in which case only Position and Active queries are useful.
func NewHighlighter(records []timeline.Record, onActive ActiveFunc) *Highlighter {
	return &Highlighter{
		records:   records,
		interval:  DefaultFrameInterval,
		onActive:  onActive,
		lastIndex: NoActiveRecord,
	}
}

// SetFrameInterval overrides the resolution cadence. Only effective before
// Play is first called.
func (h *Highlighter) SetFrameInterval(d time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if d > 0 {
		h.interval = d
	}
}

// Play starts (or resumes) frame-driven resolution.
func (h *Highlighter) Play() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.playing {
		return
	}
	h.playing = true
	h.startedAt = time.Now()
	h.stopCh = make(chan struct{})

	h.wg.Add(1)
	go h.frameLoop(h.stopCh)
}

// Pause suspends resolution. The current position is retained.
func (h *Highlighter) Pause() {
	h.mu.Lock()
	if !h.playing {
		h.mu.Unlock()
		return
	}
	h.baseMS += int(time.Since(h.startedAt) / time.Millisecond)
	h.playing = false
	close(h.stopCh)
	h.mu.Unlock()

	h.wg.Wait()
}

// Seek moves the playback position. Valid while playing or paused.
func (h *Highlighter) Seek(positionMS int) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.baseMS = positionMS
	if h.playing {
		h.startedAt = time.Now()
	}
}

// Stop pauses and rewinds to the beginning.
func (h *Highlighter) Stop() {
	h.Pause()

	h.mu.Lock()
	h.baseMS = 0
	h.lastIndex = NoActiveRecord
	h.mu.Unlock()
}

// PositionMS returns the current playback position.
func (h *Highlighter) PositionMS() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.positionLocked()
}

// Active resolves the record index at the current position.
func (h *Highlighter) Active() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return FindActive(h.records, h.positionLocked())
}

func (h *Highlighter) positionLocked() int {
	pos := h.baseMS
	if h.playing {
		pos += int(time.Since(h.startedAt) / time.Millisecond)
	}
	return pos
}

func (h *Highlighter) frameLoop(stopCh chan struct{}) {
	defer h.wg.Done()

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			h.resolveFrame()
		}
	}
}

func (h *Highlighter) resolveFrame() {
	h.mu.Lock()
	index := FindActive(h.records, h.positionLocked())
	changed := index != h.lastIndex
	h.lastIndex = index
	callback := h.onActive
	h.mu.Unlock()

	if changed && callback != nil {
		callback(index)
	}
}
