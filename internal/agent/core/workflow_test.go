package core

import (
	"context"
	"errors"
	"log"
	"strings"
	"testing"

	"github.com/mohammad-safakhou/vidsum/config"
	"github.com/mohammad-safakhou/vidsum/tools/transcript"
)

type stubLLM struct {
	generate func(prompt string) (string, error)
}

func (s *stubLLM) Generate(ctx context.Context, prompt, model string, options map[string]interface{}) (string, error) {
	if s.generate != nil {
		return s.generate(prompt)
	}
	return "stub response", nil
}

func (s *stubLLM) GenerateWithTokens(ctx context.Context, prompt, model string, options map[string]interface{}) (string, int64, int64, error) {
	out, err := s.Generate(ctx, prompt, model, options)
	return out, 10, 10, err
}

func (s *stubLLM) CreateEmbedding(ctx context.Context, texts []string) ([][]float32, error) {
	vecs := make([][]float32, len(texts))
	for i := range texts {
		vecs[i] = []float32{1, 0, 0}
	}
	return vecs, nil
}

func (s *stubLLM) GetModelInfo(model string) (ModelInfo, error) { return ModelInfo{Name: model}, nil }
func (s *stubLLM) CalculateCost(in, out int64, model string) float64 {
	return 0
}

type stubSource struct {
	segs []transcript.Segment
	meta transcript.Metadata
	err  error
}

func (s *stubSource) Fetch(ctx context.Context, videoID string) ([]transcript.Segment, string, bool, error) {
	if s.err != nil {
		return nil, "", false, s.err
	}
	return s.segs, "en", false, nil
}

func (s *stubSource) Meta(ctx context.Context, videoID string) (transcript.Metadata, error) {
	if s.err != nil {
		return transcript.Metadata{}, s.err
	}
	return s.meta, nil
}

func defaultSegments() []transcript.Segment {
	return []transcript.Segment{
		{Text: "welcome to this deep dive on compiler performance", Start: 0, Duration: 5},
		{Text: "the new framework improves build speed dramatically", Start: 45, Duration: 5},
		{Text: "benchmarks show a forty percent reduction in compile time", Start: 95, Duration: 5},
	}
}

func scriptedLLM() *stubLLM {
	return &stubLLM{generate: func(prompt string) (string, error) {
		switch {
		case strings.Contains(prompt, "factual claims"):
			return "- The new framework improves build speed dramatically", nil
		case strings.Contains(prompt, "Verify this claim"):
			return "STATUS: verified\nEXPLANATION: Confirmed by benchmark reports.\nCONFIDENCE: 0.9", nil
		case strings.Contains(prompt, "Rewrite this summary"):
			return "- The framework improves build speed dramatically [00:45]", nil
		default:
			return "- The framework improves build speed dramatically\n- Benchmarks show a forty percent compile time reduction", nil
		}
	}}
}

func testConfig() *config.Config {
	return &config.Config{
		Summarizer: config.SummarizerConfig{}.Normalize(),
		Research:   config.ResearchConfig{}.Normalize(),
		RAG:        config.RAGConfig{}.Normalize(),
	}
}

func newTestOrchestrator(t *testing.T, llm LLMProvider, source TranscriptSource) *Orchestrator {
	t.Helper()
	cfg := testConfig()
	logger := log.New(log.Writer(), "[TEST] ", 0)
	set, err := NewAgentSet(cfg, llm, source, nil, nil, logger)
	if err != nil {
		t.Fatalf("NewAgentSet: %v", err)
	}
	orch, err := NewOrchestrator(cfg, OrchestratorDeps{
		Extractor:  set.Extractor,
		Summarizer: set.Summarizer,
		Research:   set.Research,
		FactCheck:  set.FactCheck,
		Citation:   set.Citation,
		Logger:     logger,
	})
	if err != nil {
		t.Fatalf("NewOrchestrator: %v", err)
	}
	return orch
}

func collectEvents() (*[]StageEvent, StageCallback) {
	events := &[]StageEvent{}
	return events, func(e StageEvent) { *events = append(*events, e) }
}

func countStage(events []StageEvent, stage, status string) int {
	n := 0
	for _, e := range events {
		if e.Stage == stage && e.Status == status {
			n++
		}
	}
	return n
}

const testURL = "https://www.youtube.com/watch?v=abc123def45"

func TestProcessQuickSkipsCitation(t *testing.T) {
	orch := newTestOrchestrator(t, scriptedLLM(), &stubSource{segs: defaultSegments(), meta: transcript.Metadata{Title: "Compiler Talk"}})
	events, onStage := collectEvents()

	env, err := orch.Process(context.Background(), testURL, ModeQuick, FeatureFlags{}, "", onStage)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if !env.Success {
		t.Fatalf("expected success, got error %q", env.Error)
	}
	if len(env.Timestamps) != 0 {
		t.Fatalf("quick mode without citations flag should yield empty timestamps, got %d", len(env.Timestamps))
	}
	if countStage(*events, StageCite, "started") != 0 {
		t.Fatalf("citation stage should not run in quick mode without the flag")
	}
	if countStage(*events, StageFinalize, "completed") != 1 {
		t.Fatalf("finalize must complete exactly once, events: %+v", *events)
	}
}

func TestProcessResearchModeRunsAllStages(t *testing.T) {
	orch := newTestOrchestrator(t, scriptedLLM(), &stubSource{segs: defaultSegments(), meta: transcript.Metadata{Title: "Compiler Talk"}})
	events, onStage := collectEvents()

	env, err := orch.Process(context.Background(), testURL, ModeResearch, FeatureFlags{}, "", onStage)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if !env.Success {
		t.Fatalf("expected success, got error %q", env.Error)
	}
	for _, stage := range []string{StageResearch, StageFactCheck, StageCite} {
		if countStage(*events, stage, "started") != 1 {
			t.Fatalf("research mode must run %s, events: %+v", stage, *events)
		}
	}
	if env.Research == nil {
		t.Fatalf("expected research findings in envelope")
	}
	if env.FactCheck == nil || env.CredibilityScore == nil {
		t.Fatalf("expected fact check result and credibility score")
	}
	if countStage(*events, StageFinalize, "completed") != 1 {
		t.Fatalf("finalize must complete exactly once")
	}
}

func TestProcessExtractionFailureIsFatal(t *testing.T) {
	orch := newTestOrchestrator(t, scriptedLLM(), &stubSource{err: errors.New("video unavailable")})
	events, onStage := collectEvents()

	env, err := orch.Process(context.Background(), testURL, ModeResearch, FeatureFlags{}, "", onStage)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if env.Success {
		t.Fatalf("expected failure envelope")
	}
	if env.Error == "" {
		t.Fatalf("failure envelope must carry an error")
	}
	if env.Summary != "" || env.Research != nil || env.FactCheck != nil || len(env.Timestamps) != 0 {
		t.Fatalf("failed extraction must not produce summary artifacts: %+v", env)
	}
	if countStage(*events, StageSummarize, "started") != 0 {
		t.Fatalf("summarize must not run after fatal extraction")
	}
	if countStage(*events, StageFinalize, "completed") != 1 {
		t.Fatalf("finalize must still complete exactly once")
	}
}

func TestProcessCitationFailureKeepsSummary(t *testing.T) {
	llm := &stubLLM{generate: func(prompt string) (string, error) {
		if strings.Contains(prompt, "Rewrite this summary") {
			return "", errors.New("model overloaded")
		}
		return "- The framework improves build speed dramatically\n- Benchmarks show a forty percent compile time reduction", nil
	}}
	orch := newTestOrchestrator(t, llm, &stubSource{segs: defaultSegments(), meta: transcript.Metadata{Title: "Compiler Talk"}})

	env, err := orch.Process(context.Background(), testURL, ModeStandard, FeatureFlags{}, "", nil)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if !env.Success {
		t.Fatalf("citation failure must degrade, not fail the run: %q", env.Error)
	}
	if env.Summary != "- The framework improves build speed dramatically\n- Benchmarks show a forty percent compile time reduction" {
		t.Fatalf("summary must be kept verbatim, got %q", env.Summary)
	}
	if len(env.Timestamps) != 0 {
		t.Fatalf("failed citation must leave timestamps empty")
	}
	if len(env.Warnings) == 0 {
		t.Fatalf("degraded run should carry a warning")
	}
}

type keyCapturingLLM struct {
	stubLLM
	keys []string
}

func (s *keyCapturingLLM) Generate(ctx context.Context, prompt, model string, options map[string]interface{}) (string, error) {
	s.keys = append(s.keys, APIKeyFromContext(ctx))
	return "- the framework improves build speed dramatically", nil
}

func TestProcessThreadsRequestAPIKey(t *testing.T) {
	llm := &keyCapturingLLM{}
	orch := newTestOrchestrator(t, llm, &stubSource{segs: defaultSegments(), meta: transcript.Metadata{Title: "Compiler Talk"}})

	env, err := orch.Process(context.Background(), testURL, ModeQuick, FeatureFlags{}, "sk-user-override", nil)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if !env.Success {
		t.Fatalf("expected success, got error %q", env.Error)
	}
	if len(llm.keys) == 0 {
		t.Fatalf("expected at least one generation call")
	}
	for i, key := range llm.keys {
		if key != "sk-user-override" {
			t.Fatalf("call %d did not carry the request API key, got %q", i, key)
		}
	}
}

func TestProcessUnconfiguredStageDegrades(t *testing.T) {
	cfg := testConfig()
	logger := log.New(log.Writer(), "[TEST] ", 0)
	set, err := NewAgentSet(cfg, scriptedLLM(), &stubSource{segs: defaultSegments(), meta: transcript.Metadata{Title: "Compiler Talk"}}, nil, nil, logger)
	if err != nil {
		t.Fatalf("NewAgentSet: %v", err)
	}
	orch, err := NewOrchestrator(cfg, OrchestratorDeps{
		Extractor:  set.Extractor,
		Summarizer: set.Summarizer,
		FactCheck:  set.FactCheck,
		Citation:   set.Citation,
		Logger:     logger,
	})
	if err != nil {
		t.Fatalf("NewOrchestrator: %v", err)
	}
	events, onStage := collectEvents()

	env, err := orch.Process(context.Background(), testURL, ModeResearch, FeatureFlags{}, "", onStage)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if !env.Success {
		t.Fatalf("missing optional agent must degrade, not fail the run: %q", env.Error)
	}
	if countStage(*events, StageResearch, "started") != 1 || countStage(*events, StageResearch, "failed") != 1 {
		t.Fatalf("unconfigured research stage must appear in the event stream, events: %+v", *events)
	}
	found := false
	for _, w := range env.Warnings {
		if strings.Contains(w, StageResearch) {
			found = true
		}
	}
	if !found {
		t.Fatalf("unconfigured research stage must leave a warning, got %v", env.Warnings)
	}
}

func TestModeRoutingDecisions(t *testing.T) {
	cases := []struct {
		mode      Mode
		flags     FeatureFlags
		research  bool
		factCheck bool
		cite      bool
	}{
		{ModeQuick, FeatureFlags{}, false, false, false},
		{ModeQuick, FeatureFlags{Citations: true}, false, false, true},
		{ModeQuick, FeatureFlags{FactChecking: true}, false, true, false},
		{ModeStandard, FeatureFlags{}, false, false, true},
		{ModeResearch, FeatureFlags{}, true, true, true},
		{ModeEducational, FeatureFlags{}, false, false, true},
		{ModeEducational, FeatureFlags{WebResearch: true, FactChecking: true}, true, true, true},
	}
	for _, c := range cases {
		r := modeRouting[c.mode]
		if got := r.RunsResearch(c.flags); got != c.research {
			t.Fatalf("%s %+v: RunsResearch = %v, want %v", c.mode, c.flags, got, c.research)
		}
		if got := r.RunsFactCheck(c.flags); got != c.factCheck {
			t.Fatalf("%s %+v: RunsFactCheck = %v, want %v", c.mode, c.flags, got, c.factCheck)
		}
		if got := r.RunsCitation(c.flags); got != c.cite {
			t.Fatalf("%s %+v: RunsCitation = %v, want %v", c.mode, c.flags, got, c.cite)
		}
	}
}

func TestParseMode(t *testing.T) {
	if m, err := ParseMode(""); err != nil || m != ModeStandard {
		t.Fatalf("empty mode should default to standard, got %v %v", m, err)
	}
	if _, err := ParseMode("turbo"); err == nil {
		t.Fatalf("unknown mode must be rejected")
	}
}
