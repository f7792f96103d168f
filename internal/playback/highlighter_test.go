package playback

import (
	"sync"
	"testing"
	"time"

	"github.com/voxline/narravox/internal/timeline"
)

// testTimeout is a failsafe for highlighter tests, not primary synchronization.
const testTimeout = 5 * time.Second

func TestHighlighter_ReportsActiveChanges(t *testing.T) {
	tl := []timeline.Record{
		{StartMS: 0, EndMS: 10_000},
	}

	var mu sync.Mutex
	var seen []int
	h := NewHighlighter(tl, func(index int) {
		mu.Lock()
		seen = append(seen, index)
		mu.Unlock()
	})
	h.SetFrameInterval(time.Millisecond)

	h.Play()
	defer h.Stop()

	deadline := time.Now().Add(testTimeout)
	for {
		mu.Lock()
		n := len(seen)
		mu.Unlock()
		if n > 0 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("callback never fired")
		}
		time.Sleep(time.Millisecond)
	}

	mu.Lock()
	first := seen[0]
	mu.Unlock()
	if first != 0 {
		t.Errorf("first active index = %d, want 0", first)
	}
}

func TestHighlighter_PauseStopsAdvancing(t *testing.T) {
	h := NewHighlighter(nil, nil)
	h.SetFrameInterval(time.Millisecond)

	h.Play()
	time.Sleep(20 * time.Millisecond)
	h.Pause()

	pos := h.PositionMS()
	if pos <= 0 {
		t.Fatalf("position should have advanced while playing, got %d", pos)
	}

	time.Sleep(20 * time.Millisecond)
	if got := h.PositionMS(); got != pos {
		t.Errorf("position advanced while paused: %d -> %d", pos, got)
	}
}

func TestHighlighter_Seek(t *testing.T) {
	tl := []timeline.Record{
		{StartMS: 0, EndMS: 100},
		{StartMS: 100, EndMS: 200},
		{StartMS: 5000, EndMS: 6000},
	}
	h := NewHighlighter(tl, nil)

	h.Seek(5500)
	if got := h.Active(); got != 2 {
		t.Errorf("Active after Seek(5500) = %d, want 2", got)
	}

	h.Seek(250)
	if got := h.Active(); got != NoActiveRecord {
		t.Errorf("Active after Seek(250) = %d, want none", got)
	}
}

func TestHighlighter_StopRewinds(t *testing.T) {
	h := NewHighlighter(nil, nil)
	h.SetFrameInterval(time.Millisecond)

	h.Play()
	time.Sleep(10 * time.Millisecond)
	h.Stop()

	if got := h.PositionMS(); got != 0 {
		t.Errorf("position after Stop = %d, want 0", got)
	}
}

func TestHighlighter_PlayIdempotent(t *testing.T) {
	h := NewHighlighter(nil, nil)
	h.SetFrameInterval(time.Millisecond)

	h.Play()
	h.Play() // second call must not spawn a second loop or panic
	h.Pause()
	h.Pause()
}
