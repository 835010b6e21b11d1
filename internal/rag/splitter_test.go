package rag

import (
	"strings"
	"testing"
)

func TestSplitTextShortInput(t *testing.T) {
	chunks := SplitText("short text", 1000, 200)
	if len(chunks) != 1 || chunks[0] != "short text" {
		t.Fatalf("unexpected chunks: %v", chunks)
	}
}

func TestSplitTextChunkBounds(t *testing.T) {
	text := strings.Repeat("word ", 1000) // 5000 chars
	chunks := SplitText(text, 1000, 200)
	if len(chunks) < 5 {
		t.Fatalf("expected at least 5 chunks, got %d", len(chunks))
	}
	for i, c := range chunks {
		if len(c) > 1000 {
			t.Fatalf("chunk %d exceeds size: %d", i, len(c))
		}
		if c == "" {
			t.Fatalf("chunk %d is empty", i)
		}
	}
}

func TestSplitTextOverlap(t *testing.T) {
	text := strings.Repeat("alpha beta gamma delta ", 200)
	chunks := SplitText(text, 500, 100)
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	// The tail of each chunk should reappear at the head of the next.
	for i := 0; i < len(chunks)-1; i++ {
		tail := chunks[i][len(chunks[i])-20:]
		if !strings.Contains(chunks[i+1][:min(len(chunks[i+1]), 200)], strings.TrimSpace(tail)) {
			t.Fatalf("chunk %d tail %q not found in next chunk head", i, tail)
		}
	}
}

func TestSplitTextEmpty(t *testing.T) {
	if chunks := SplitText("   ", 1000, 200); chunks != nil {
		t.Fatalf("expected nil for blank input, got %v", chunks)
	}
}

func TestExtractTimestamp(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"[01:15] some caption", "01:15"},
		{"[01:02:05] late caption", "01:02:05"},
		{"at 12:34 the speaker says", "12:34"},
		{"no timing here", ""},
	}
	for _, c := range cases {
		if got := ExtractTimestamp(c.in); got != c.want {
			t.Fatalf("ExtractTimestamp(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}
