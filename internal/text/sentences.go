package text

import "unicode"

// SentenceSpan is a single sentence with its byte offsets into the source
// text. Used by the timing estimator when a provider returns no timing data.
type SentenceSpan struct {
	Text      string
	StartChar int
	EndChar   int
}

// Sentences splits text into sentences at sentence-ending punctuation
// followed by whitespace. Trailing punctuation stays attached to its
// sentence; the separating whitespace belongs to neither span.
func Sentences(text string) []SentenceSpan {
	var spans []SentenceSpan

	i := leadingWhitespace(text)
	start := i

	for i < len(text) {
		c := text[i]
		if c == '.' || c == '!' || c == '?' {
			// Consume any run of closing punctuation (e.g. "?!").
			end := i + 1
			for end < len(text) && (text[end] == '.' || text[end] == '!' || text[end] == '?') {
				end++
			}
			if end >= len(text) || isSpaceByte(text[end]) {
				spans = append(spans, SentenceSpan{
					Text:      text[start:end],
					StartChar: start,
					EndChar:   end,
				})
				i = end
				for i < len(text) && isSpaceByte(text[i]) {
					i++
				}
				start = i
				continue
			}
			i = end
			continue
		}
		i++
	}

	// Trailing text without closing punctuation forms a final sentence.
	if start < len(text) {
		tail := text[start:]
		trimmed := len(tail)
		for trimmed > 0 && isSpaceByte(tail[trimmed-1]) {
			trimmed--
		}
		if trimmed > 0 {
			spans = append(spans, SentenceSpan{
				Text:      tail[:trimmed],
				StartChar: start,
				EndChar:   start + trimmed,
			})
		}
	}

	return spans
}

func isSpaceByte(b byte) bool {
	return b < utf8RuneSelf && unicode.IsSpace(rune(b))
}

const utf8RuneSelf = 0x80
