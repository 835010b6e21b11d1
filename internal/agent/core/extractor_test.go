package core

import (
	"context"
	"strings"
	"testing"

	"github.com/mohammad-safakhou/vidsum/tools/transcript"
)

func TestExtractorBuildsFormattedTranscript(t *testing.T) {
	source := &stubSource{
		segs: []transcript.Segment{
			{Text: "hello and welcome", Start: 0, Duration: 4},
			{Text: "first topic", Start: 45, Duration: 5},
			{Text: "a much later point", Start: 3725, Duration: 5},
		},
		meta: transcript.Metadata{Title: "Demo", Author: "Creator"},
	}
	agent := NewExtractorAgent(source, nil, nil)
	state := &WorkflowState{URL: testURL}

	res := agent.Execute(context.Background(), state)
	if !res.Success {
		t.Fatalf("extract failed: %s", res.Error)
	}
	if state.Video == nil {
		t.Fatalf("video data not set")
	}
	if state.Video.VideoID != "abc123def45" {
		t.Fatalf("video id = %q", state.Video.VideoID)
	}
	if !strings.Contains(state.Video.Transcript, "[00:45] first topic") {
		t.Fatalf("formatted transcript missing tagged line: %q", state.Video.Transcript)
	}
	if !strings.Contains(state.Video.Transcript, "[01:02:05] a much later point") {
		t.Fatalf("expected HH:MM:SS tag past the hour: %q", state.Video.Transcript)
	}
	if state.Video.LengthSeconds != 3730 {
		t.Fatalf("length = %v, want 3730", state.Video.LengthSeconds)
	}
}

func TestExtractorKeyTimestampSampling(t *testing.T) {
	var segs []transcript.Segment
	for i := 0; i < 300; i++ {
		segs = append(segs, transcript.Segment{Text: "segment text", Start: float64(i * 10), Duration: 10})
	}
	source := &stubSource{segs: segs, meta: transcript.Metadata{Title: "Long"}}
	agent := NewExtractorAgent(source, nil, nil)
	state := &WorkflowState{URL: testURL}

	if res := agent.Execute(context.Background(), state); !res.Success {
		t.Fatalf("extract failed: %s", res.Error)
	}
	if len(state.Video.KeyTimestamps) != maxKeyTimestamps {
		t.Fatalf("key timestamps = %d, want cap %d", len(state.Video.KeyTimestamps), maxKeyTimestamps)
	}
}

func TestExtractorInvalidURL(t *testing.T) {
	agent := NewExtractorAgent(&stubSource{}, nil, nil)
	state := &WorkflowState{URL: "https://example.com/nope"}

	res := agent.Execute(context.Background(), state)
	if res.Success {
		t.Fatalf("expected failure for invalid URL")
	}
	if res.Data != nil {
		t.Fatalf("failed result must carry no data")
	}
	if res.Error == "" {
		t.Fatalf("failed result must carry an error message")
	}
}
