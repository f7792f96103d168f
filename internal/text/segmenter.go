// Package text splits long-form input into provider-sized segments and
// sentences while tracking byte offsets into the original document.
package text

import (
	"errors"
	"strings"
	"unicode"
	"unicode/utf8"
)

// ErrInvalidInput is returned for empty/whitespace-only text or a
// non-positive segment size.
var ErrInvalidInput = errors.New("invalid segmentation input")

// minSplitFraction rejects split candidates that fall within the first 30%
// of the window, to avoid pathologically short segments.
const minSplitFraction = 0.3

// sentenceEnders are the boundary patterns checked when looking for a
// sentence-level split point.
var sentenceEnders = []string{". ", "! ", "? ", ".\n", "!\n", "?\n"}

// Segment is one bounded slice of the original input text.
//
// Text is trimmed of surrounding whitespace, but StartChar/EndChar are byte
// offsets into the untrimmed original, so the input can be reconstructed
// losslessly by re-inserting the whitespace between consecutive segments.
type Segment struct {
	Text       string
	StartChar  int
	EndChar    int
	Index      int
	TotalCount int
}

// Split divides text into ordered segments of at most maxChars bytes each.
//
// Split points are chosen at the best natural boundary within the window:
// paragraph break first, then sentence end, then a whitespace run. If no
// candidate clears the 30% threshold the nearest preceding whitespace is
// used, and as an absolute last resort the text is cut at exactly maxChars
// (backed up to a rune boundary).
func Split(text string, maxChars int) ([]Segment, error) {
	if maxChars < 1 {
		return nil, errors.Join(ErrInvalidInput, errors.New("max segment size must be at least 1"))
	}

	stripped := strings.TrimSpace(text)
	if stripped == "" {
		return nil, errors.Join(ErrInvalidInput, errors.New("text is empty or whitespace-only"))
	}

	// Byte offset of the stripped text within the original.
	offset := leadingWhitespace(text)

	if len(stripped) <= maxChars {
		return []Segment{{
			Text:       stripped,
			StartChar:  offset,
			EndChar:    offset + len(stripped),
			Index:      0,
			TotalCount: 1,
		}}, nil
	}

	var segments []Segment
	remaining := stripped

	for remaining != "" {
		// Consume whitespace left over from the previous split.
		if ws := leadingWhitespace(remaining); ws > 0 {
			offset += ws
			remaining = remaining[ws:]
		}
		if remaining == "" {
			break
		}

		if len(remaining) <= maxChars {
			trimmed := strings.TrimRightFunc(remaining, unicode.IsSpace)
			segments = append(segments, Segment{
				Text:      trimmed,
				StartChar: offset,
				EndChar:   offset + len(trimmed),
				Index:     len(segments),
			})
			break
		}

		splitPos := findSplitPoint(remaining, maxChars)
		trimmed := strings.TrimRightFunc(remaining[:splitPos], unicode.IsSpace)
		segments = append(segments, Segment{
			Text:      trimmed,
			StartChar: offset,
			EndChar:   offset + len(trimmed),
			Index:     len(segments),
		})

		offset += splitPos
		remaining = remaining[splitPos:]
	}

	for i := range segments {
		segments[i].TotalCount = len(segments)
	}

	return segments, nil
}

// findSplitPoint locates the best split position within the first maxChars
// bytes of text. The returned position is the start of the next segment.
func findSplitPoint(text string, maxChars int) int {
	window := text[:maxChars]
	minPos := int(float64(maxChars) * minSplitFraction)

	// Paragraph break.
	if pos := strings.LastIndex(window, "\n\n"); pos > minPos {
		return pos + 2
	}

	// Sentence boundary: take the latest match across all ender patterns.
	best := -1
	for _, ender := range sentenceEnders {
		if pos := strings.LastIndex(window, ender); pos > minPos {
			if candidate := pos + len(ender); candidate > best {
				best = candidate
			}
		}
	}
	if best > minPos {
		return best
	}

	// Whitespace run.
	if pos := strings.LastIndexFunc(window, unicode.IsSpace); pos > 0 {
		_, width := utf8.DecodeRuneInString(window[pos:])
		return pos + width
	}

	// Mid-token split. Providers allow thousands of characters per segment,
	// so a single token spanning the whole window should be exceedingly
	// rare, but it must not corrupt a multi-byte rune.
	cut := maxChars
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	if cut == 0 {
		cut = maxChars
	}
	return cut
}

// leadingWhitespace returns the number of leading whitespace bytes in s.
func leadingWhitespace(s string) int {
	return len(s) - len(strings.TrimLeftFunc(s, unicode.IsSpace))
}
