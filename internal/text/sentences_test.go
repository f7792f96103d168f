package text

import "testing"

func TestSentences_Basic(t *testing.T) {
	text := "First sentence. Second one! Third?"

	spans := Sentences(text)
	if len(spans) != 3 {
		t.Fatalf("expected 3 sentences, got %d", len(spans))
	}

	want := []string{"First sentence.", "Second one!", "Third?"}
	for i, span := range spans {
		if span.Text != want[i] {
			t.Errorf("sentence %d = %q, want %q", i, span.Text, want[i])
		}
		if got := text[span.StartChar:span.EndChar]; got != span.Text {
			t.Errorf("sentence %d offsets [%d:%d] yield %q, want %q",
				i, span.StartChar, span.EndChar, got, span.Text)
		}
	}
}

func TestSentences_NoTerminalPunctuation(t *testing.T) {
	spans := Sentences("no punctuation here")
	if len(spans) != 1 {
		t.Fatalf("expected 1 sentence, got %d", len(spans))
	}
	if spans[0].Text != "no punctuation here" {
		t.Errorf("got %q", spans[0].Text)
	}
}

func TestSentences_PunctuationRun(t *testing.T) {
	spans := Sentences("Really?! Yes.")
	if len(spans) != 2 {
		t.Fatalf("expected 2 sentences, got %d", len(spans))
	}
	if spans[0].Text != "Really?!" {
		t.Errorf("first sentence = %q", spans[0].Text)
	}
}

func TestSentences_AbbreviationMidToken(t *testing.T) {
	// A period not followed by whitespace does not end a sentence.
	spans := Sentences("Version 1.2 shipped. Done.")
	if len(spans) != 2 {
		t.Fatalf("expected 2 sentences, got %d: %v", len(spans), spans)
	}
	if spans[0].Text != "Version 1.2 shipped." {
		t.Errorf("first sentence = %q", spans[0].Text)
	}
}

func TestSentences_Empty(t *testing.T) {
	if spans := Sentences(""); len(spans) != 0 {
		t.Errorf("expected no sentences, got %v", spans)
	}
	if spans := Sentences("   \n"); len(spans) != 0 {
		t.Errorf("expected no sentences for whitespace, got %v", spans)
	}
}

func TestSentences_NewlineSeparated(t *testing.T) {
	text := "Line one ends here.\nLine two follows."
	spans := Sentences(text)
	if len(spans) != 2 {
		t.Fatalf("expected 2 sentences, got %d", len(spans))
	}
	for i, span := range spans {
		if got := text[span.StartChar:span.EndChar]; got != span.Text {
			t.Errorf("sentence %d offset mismatch", i)
		}
	}
}
