package core

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/mohammad-safakhou/vidsum/config"
	"github.com/mohammad-safakhou/vidsum/internal/rag"
	"github.com/mohammad-safakhou/vidsum/utils"
)

// SummarizerAgent produces the mode-specific summary. Transcripts above the
// chunk threshold are summarized in pieces and combined, except in quick mode
// which only ever reads the head of the transcript.
type SummarizerAgent struct {
	cfg     config.SummarizerConfig
	routing config.LLMRoutingConfig
	llm     LLMProvider
	logger  *log.Logger
}

func NewSummarizerAgent(cfg config.SummarizerConfig, routing config.LLMRoutingConfig, llm LLMProvider, logger *log.Logger) *SummarizerAgent {
	if logger == nil {
		logger = log.New(log.Writer(), "[SUMMARIZE] ", log.LstdFlags)
	}
	return &SummarizerAgent{cfg: cfg, routing: routing, llm: llm, logger: logger}
}

func (a *SummarizerAgent) Name() string { return StageSummarize }

func (a *SummarizerAgent) Execute(ctx context.Context, state *WorkflowState) AgentResult {
	if state.Video == nil {
		return failureResult(a.Name(), fmt.Errorf("no video data available"))
	}

	model := a.routing.ModelFor("summarize")
	text := state.Video.Transcript

	var summary string
	var err error
	if state.Mode != ModeQuick && len(text) > a.cfg.ChunkThreshold {
		summary, err = a.summarizeChunked(ctx, state, text, model)
	} else {
		summary, err = a.summarizeDirect(ctx, state, text, model)
	}
	if err != nil {
		return failureResult(a.Name(), err)
	}
	summary = strings.TrimSpace(summary)
	if summary == "" {
		return failureResult(a.Name(), fmt.Errorf("model returned an empty summary"))
	}

	state.Summary = summary
	return successResult(a.Name(), map[string]any{"summary": summary}, map[string]any{
		"model":   model,
		"chunked": state.Mode != ModeQuick && len(text) > a.cfg.ChunkThreshold,
	})
}

func (a *SummarizerAgent) summarizeDirect(ctx context.Context, state *WorkflowState, text, model string) (string, error) {
	prompt := a.buildPrompt(state, text)
	out, err := a.llm.Generate(ctx, prompt, model, map[string]interface{}{"temperature": 0.3})
	if err != nil {
		return "", fmt.Errorf("generating summary: %w", err)
	}
	return out, nil
}

func (a *SummarizerAgent) summarizeChunked(ctx context.Context, state *WorkflowState, text, model string) (string, error) {
	chunks := rag.SplitText(text, a.cfg.ChunkSize, a.cfg.ChunkOverlap)
	a.logger.Printf("transcript has %d chars, summarizing %d chunks", len(text), len(chunks))

	var parts []string
	for i, chunk := range chunks {
		prompt := fmt.Sprintf(
			"Summarize this portion (%d of %d) of a video transcript in 2-4 sentences. Keep timestamp markers like [MM:SS] for important moments.\n\nTRANSCRIPT PORTION:\n%s",
			i+1, len(chunks), chunk)
		out, err := a.llm.Generate(ctx, prompt, model, map[string]interface{}{"temperature": 0.3})
		if err != nil {
			return "", fmt.Errorf("summarizing chunk %d of %d: %w", i+1, len(chunks), err)
		}
		parts = append(parts, strings.TrimSpace(out))
	}

	combined := strings.Join(parts, "\n\n")
	prompt := a.buildPrompt(state, combined)
	out, err := a.llm.Generate(ctx, prompt, model, map[string]interface{}{"temperature": 0.3})
	if err != nil {
		return "", fmt.Errorf("combining chunk summaries: %w", err)
	}
	return out, nil
}

func (a *SummarizerAgent) buildPrompt(state *WorkflowState, text string) string {
	title := state.Video.Title
	var b strings.Builder

	switch state.Mode {
	case ModeQuick:
		fmt.Fprintf(&b, "Summarize the video %q in 5-7 concise bullet points capturing the main ideas.\n\nTRANSCRIPT:\n%s",
			title, utils.Truncate(text, a.cfg.QuickLimit))
	case ModeResearch:
		fmt.Fprintf(&b, "Write a thorough, well-structured markdown summary of the video %q. Include: an overview, the main arguments with supporting detail, notable claims, and a conclusion. Keep timestamp markers like [MM:SS] where they anchor important points.\n", title)
		if state.Research != nil && state.Research.Findings != "" {
			fmt.Fprintf(&b, "\nRELATED RESEARCH CONTEXT:\n%s\n", state.Research.Findings)
		}
		fmt.Fprintf(&b, "\nTRANSCRIPT:\n%s", text)
	case ModeEducational:
		fmt.Fprintf(&b, "Create a learning-focused summary of the video %q. Structure it as: learning objectives, key concepts with plain-language explanations, examples mentioned, and review questions. Keep timestamp markers like [MM:SS] where helpful.\n\nTRANSCRIPT:\n%s",
			title, text)
	default:
		fmt.Fprintf(&b, "Write a structured markdown summary of the video %q with sections for the overview, key points, and takeaways. Keep timestamp markers like [MM:SS] for important moments.\n\nTRANSCRIPT:\n%s",
			title, utils.Truncate(text, a.cfg.StandardLimit))
	}
	return b.String()
}
