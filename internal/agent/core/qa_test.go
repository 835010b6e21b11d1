package core

import (
	"context"
	"errors"
	"log"
	"strings"
	"testing"

	"github.com/mohammad-safakhou/vidsum/config"
	"github.com/mohammad-safakhou/vidsum/internal/rag"
)

type stubIndex struct {
	chunks     []rag.Retrieved
	notIndexed bool
	err        error
}

func (s *stubIndex) Index(ctx context.Context, videoID, transcript string, meta map[string]string) error {
	return nil
}

func (s *stubIndex) Query(ctx context.Context, videoID, text string, k int, threshold float64) ([]rag.Retrieved, error) {
	if s.notIndexed {
		return nil, rag.ErrNotIndexed
	}
	if s.err != nil {
		return nil, s.err
	}
	var out []rag.Retrieved
	for _, c := range s.chunks {
		if c.Score >= threshold {
			out = append(out, c)
			if len(out) >= k {
				break
			}
		}
	}
	return out, nil
}

func (s *stubIndex) Has(ctx context.Context, videoID string) (bool, error) { return !s.notIndexed, nil }
func (s *stubIndex) Delete(ctx context.Context, videoID string) error     { return nil }

func newQA(llm LLMProvider, index rag.Index) *QAAgent {
	cfg := config.RAGConfig{}.Normalize()
	return NewQAAgent(cfg, config.LLMRoutingConfig{Fallback: "main"}, llm, index, log.New(log.Writer(), "[TEST-QA] ", 0))
}

func TestAnswerBelowThresholdFallsBack(t *testing.T) {
	index := &stubIndex{chunks: []rag.Retrieved{
		{Text: "[00:10] barely related", Score: 0.1},
		{Text: "[00:40] also weak", Score: 0.2},
	}}
	qa := newQA(&stubLLM{}, index)

	ans, err := qa.Answer(context.Background(), "vid-1", "what is discussed?", nil)
	if err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if !strings.Contains(ans.Answer, "re-indexed") {
		t.Fatalf("expected fallback answer with re-indexing hint, got %q", ans.Answer)
	}
	if len(ans.Citations) != 0 {
		t.Fatalf("fallback must carry no citations")
	}
	if ans.Confidence != "low" {
		t.Fatalf("fallback confidence = %q, want low", ans.Confidence)
	}
}

func TestAnswerNotIndexedFallsBack(t *testing.T) {
	qa := newQA(&stubLLM{}, &stubIndex{notIndexed: true})
	ans, err := qa.Answer(context.Background(), "vid-1", "anything?", nil)
	if err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if ans.Confidence != "low" || !strings.Contains(ans.Answer, "re-indexed") {
		t.Fatalf("unexpected fallback: %+v", ans)
	}
}

func TestAnswerHighConfidence(t *testing.T) {
	index := &stubIndex{chunks: []rag.Retrieved{
		{Text: "[00:45] the framework improves build speed", ChunkIndex: 0, Score: 0.9, Timestamp: "00:45"},
		{Text: "[01:30] benchmarks confirm the gains", ChunkIndex: 1, Score: 0.85, Timestamp: "01:30"},
		{Text: "[02:10] adoption is growing", ChunkIndex: 2, Score: 0.8, Timestamp: "02:10"},
		{Text: "[03:00] closing remarks", ChunkIndex: 3, Score: 0.8, Timestamp: "03:00"},
	}}
	qa := newQA(&stubLLM{generate: func(string) (string, error) {
		return "The framework improves build speed [00:45].", nil
	}}, index)

	ans, err := qa.Answer(context.Background(), "vid-1", "does it improve build speed?", nil)
	if err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if ans.Confidence != "high" {
		t.Fatalf("confidence = %q, want high", ans.Confidence)
	}
	if len(ans.Citations) != 3 {
		t.Fatalf("expected top 3 citations, got %d", len(ans.Citations))
	}
	if ans.Citations[0].Timestamp != "00:45" {
		t.Fatalf("citation timestamp = %q", ans.Citations[0].Timestamp)
	}
}

func TestAnswerMediumConfidence(t *testing.T) {
	index := &stubIndex{chunks: []rag.Retrieved{
		{Text: "[00:45] somewhat relevant", Score: 0.6},
		{Text: "[01:30] loosely relevant", Score: 0.5},
	}}
	qa := newQA(&stubLLM{}, index)

	ans, err := qa.Answer(context.Background(), "vid-1", "question?", nil)
	if err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if ans.Confidence != "medium" {
		t.Fatalf("confidence = %q, want medium", ans.Confidence)
	}
}

func TestAnswerGenerationFailure(t *testing.T) {
	index := &stubIndex{chunks: []rag.Retrieved{
		{Text: "[00:45] relevant content", Score: 0.9},
	}}
	qa := newQA(&stubLLM{generate: func(string) (string, error) {
		return "", errors.New("model unavailable")
	}}, index)

	ans, err := qa.Answer(context.Background(), "vid-1", "question?", nil)
	if err != nil {
		t.Fatalf("generation failure should degrade, got error %v", err)
	}
	if ans.Confidence != "error" {
		t.Fatalf("confidence = %q, want error", ans.Confidence)
	}
}

func TestAnswerCitationTimestampExtraction(t *testing.T) {
	index := &stubIndex{chunks: []rag.Retrieved{
		{Text: "[01:02:05] a late-video statement", Score: 0.9},
	}}
	qa := newQA(&stubLLM{}, index)

	ans, err := qa.Answer(context.Background(), "vid-1", "question?", nil)
	if err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if len(ans.Citations) != 1 || ans.Citations[0].Timestamp != "01:02:05" {
		t.Fatalf("unexpected citations: %+v", ans.Citations)
	}
}

func TestAnswerRejectsEmptyQuestion(t *testing.T) {
	qa := newQA(&stubLLM{}, &stubIndex{})
	if _, err := qa.Answer(context.Background(), "vid-1", "   ", nil); err == nil {
		t.Fatalf("empty question must be rejected")
	}
}
