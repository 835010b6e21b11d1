package core

import (
	"strings"
	"testing"
)

func TestExtractKeyPointsBullets(t *testing.T) {
	summary := "Overview text.\n- first point about compilers\n* second point about linkers\n3. third numbered point here\n"
	points := ExtractKeyPoints(summary)
	if len(points) != 3 {
		t.Fatalf("expected 3 points, got %d: %v", len(points), points)
	}
	if points[0] != "first point about compilers" {
		t.Fatalf("unexpected first point: %q", points[0])
	}
}

func TestExtractKeyPointsSentences(t *testing.T) {
	summary := "Short. This sentence is comfortably longer than thirty characters. Tiny! Another sentence that also exceeds the thirty character minimum."
	points := ExtractKeyPoints(summary)
	if len(points) != 2 {
		t.Fatalf("expected 2 sentence points, got %d: %v", len(points), points)
	}
}

func TestExtractKeyPointsCap(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 30; i++ {
		b.WriteString("- a bullet point with enough words\n")
	}
	if got := len(ExtractKeyPoints(b.String())); got != maxKeyPoints {
		t.Fatalf("expected cap of %d points, got %d", maxKeyPoints, got)
	}
}

func TestExtractKeywords(t *testing.T) {
	kws := ExtractKeywords("This framework improves the build speed with these benchmarks")
	for _, kw := range kws {
		if len(kw) <= 3 {
			t.Fatalf("keyword %q too short", kw)
		}
		if stopwords[kw] {
			t.Fatalf("stopword %q leaked into keywords", kw)
		}
	}
	joined := strings.Join(kws, " ")
	for _, want := range []string{"framework", "improves", "build", "speed", "benchmarks"} {
		if !strings.Contains(joined, want) {
			t.Fatalf("expected keyword %q in %v", want, kws)
		}
	}
}

func TestMatchTimestampsDropsUnmatchable(t *testing.T) {
	segments := []TranscriptSegment{
		{Text: "the compiler pipeline starts with lexical analysis", Start: 45},
		{Text: "register allocation dominates backend compile time", Start: 3725},
		{Text: "incremental builds cache intermediate artifacts", Start: 130},
	}
	summary := strings.Join([]string{
		"- compiler pipeline begins with lexical analysis",
		"- register allocation dominates the backend",
		"- incremental builds cache intermediate artifacts",
		"- quantum entanglement enables faster neutrinos",
		"- zebras migrate across the serengeti yearly",
	}, "\n")

	refs := MatchTimestamps(summary, segments)
	if len(refs) != 3 {
		t.Fatalf("expected exactly 3 citations, got %d: %+v", len(refs), refs)
	}
	for _, r := range refs {
		if r.Confidence <= 0 || r.Confidence > 1 {
			t.Fatalf("confidence out of range: %+v", r)
		}
	}
	if refs[0].Time != "00:45" {
		t.Fatalf("expected 00:45 for first citation, got %s", refs[0].Time)
	}
	if refs[1].Time != "01:02:05" {
		t.Fatalf("expected 01:02:05 for second citation, got %s", refs[1].Time)
	}
}

func TestMatchTimestampsTruncatesText(t *testing.T) {
	long := strings.Repeat("compiler ", 40)
	refs := MatchTimestamps("- "+long, []TranscriptSegment{{Text: "compiler", Start: 10}})
	if len(refs) != 1 {
		t.Fatalf("expected 1 citation, got %d", len(refs))
	}
	if len(refs[0].Text) > maxCitationText {
		t.Fatalf("citation text exceeds %d chars: %d", maxCitationText, len(refs[0].Text))
	}
}
