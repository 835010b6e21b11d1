package transcript

import "testing"

func TestExtractVideoID(t *testing.T) {
	cases := []struct {
		url  string
		want string
	}{
		{"https://www.youtube.com/watch?v=dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"https://youtu.be/dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"https://www.youtube.com/embed/dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"https://www.youtube.com/watch?v=dQw4w9WgXcQ&t=42s", "dQw4w9WgXcQ"},
	}
	for _, c := range cases {
		got, err := ExtractVideoID(c.url)
		if err != nil {
			t.Fatalf("ExtractVideoID(%q) error: %v", c.url, err)
		}
		if got != c.want {
			t.Fatalf("ExtractVideoID(%q) = %q, want %q", c.url, got, c.want)
		}
	}
}

func TestExtractVideoIDInvalid(t *testing.T) {
	if _, err := ExtractVideoID("https://example.com/not-a-video"); err != ErrInvalidURL {
		t.Fatalf("expected ErrInvalidURL, got %v", err)
	}
}

func TestParseTimedText(t *testing.T) {
	data := []byte(`<?xml version="1.0" encoding="utf-8"?>
<transcript>
  <text start="0.4" dur="3.1">hello &amp; welcome</text>
  <text start="3.5" dur="2.0">   </text>
  <text start="5.5" dur="4.0">second line</text>
</transcript>`)
	segs, err := ParseTimedText(data)
	if err != nil {
		t.Fatalf("ParseTimedText error: %v", err)
	}
	if len(segs) != 2 {
		t.Fatalf("expected 2 segments, got %d", len(segs))
	}
	if segs[0].Text != "hello & welcome" {
		t.Fatalf("unexpected first segment text: %q", segs[0].Text)
	}
	if segs[0].Start != 0.4 || segs[1].Start != 5.5 {
		t.Fatalf("unexpected starts: %v %v", segs[0].Start, segs[1].Start)
	}
}
