// Package timeline reconciles per-segment timing data into one
// document-level, monotonic timeline for playback highlighting.
package timeline

import (
	"errors"
	"fmt"

	"github.com/voxline/narravox/internal/text"
)

// Grain is the granularity of timing records for a job. Exactly one grain is
// used per job.
type Grain string

const (
	GrainWord     Grain = "word"
	GrainSentence Grain = "sentence"
)

// ErrMergeMismatch is returned when the per-segment inputs do not line up.
var ErrMergeMismatch = errors.New("timing merge input mismatch")

// Record is one timed span of the source text. StartMS is inclusive, EndMS
// exclusive. StartChar/EndChar are byte offsets into the original document.
type Record struct {
	Token     string `json:"token"`
	StartMS   int    `json:"start_ms"`
	EndMS     int    `json:"end_ms"`
	StartChar int    `json:"start_char"`
	EndChar   int    `json:"end_char"`
}

// Timeline is the merged, document-level sequence of timing records.
// Invariant: StartMS values are non-decreasing and character spans are
// non-overlapping in record order.
type Timeline struct {
	Grain   Grain    `json:"grain"`
	Records []Record `json:"records"`
}

// Merge combines per-segment timing records, each locally zero-based, into a
// single document-level timeline.
//
// Records of segment i are shifted in time by the cumulative duration of
// segments 0..i-1 plus the silence the stitcher inserted between them, minus
// the crossfade overlap consumed at each join, and in character space by the
// segment's start offset. Output order is segment order then record order,
// which preserves global monotonicity as long as each segment's own records
// are locally monotonic.
func Merge(segments []text.Segment, perSegment [][]Record, durationsMS []int, silenceBetweenMS, crossfadeMS int) ([]Record, error) {
	if len(perSegment) != len(segments) || len(durationsMS) != len(segments) {
		return nil, fmt.Errorf("%w: %d segments, %d timing lists, %d durations",
			ErrMergeMismatch, len(segments), len(perSegment), len(durationsMS))
	}

	var merged []Record
	cumulativeMS := 0

	for i, seg := range segments {
		for _, r := range perSegment[i] {
			merged = append(merged, Record{
				Token:     r.Token,
				StartMS:   r.StartMS + cumulativeMS,
				EndMS:     r.EndMS + cumulativeMS,
				StartChar: r.StartChar + seg.StartChar,
				EndChar:   r.EndChar + seg.StartChar,
			})
		}
		cumulativeMS += durationsMS[i]
		if i < len(segments)-1 {
			// Each join inserts silence and then overlaps crossfadeMS
			// of it with the next segment.
			cumulativeMS += silenceBetweenMS - crossfadeMS
		}
	}

	return merged, nil
}

// Estimate produces sentence-grain timing when a provider returns no timing
// data at all. The total duration is distributed proportionally to each
// sentence's character count — speech duration tracks character count far
// better than word count. The last sentence ends exactly at totalDurationMS.
func Estimate(source string, totalDurationMS int) []Record {
	sentences := text.Sentences(source)
	if len(sentences) == 0 {
		return nil
	}

	totalChars := 0
	for _, s := range sentences {
		totalChars += len(s.Text)
	}
	if totalChars == 0 {
		return nil
	}

	records := make([]Record, 0, len(sentences))
	currentMS := 0

	for i, s := range sentences {
		endMS := currentMS + len(s.Text)*totalDurationMS/totalChars
		if i == len(sentences)-1 {
			endMS = totalDurationMS
		}
		records = append(records, Record{
			Token:     s.Text,
			StartMS:   currentMS,
			EndMS:     endMS,
			StartChar: s.StartChar,
			EndChar:   s.EndChar,
		})
		currentMS = endMS
	}

	return records
}
