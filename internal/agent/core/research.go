package core

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/mohammad-safakhou/vidsum/config"
	"github.com/mohammad-safakhou/vidsum/tools/web_fetch"
	"github.com/mohammad-safakhou/vidsum/tools/web_search"
	"github.com/mohammad-safakhou/vidsum/utils"
)

// ResearchAgent enriches the summary with findings from web search. When no
// search provider is configured it degrades to a stub finding rather than
// failing the stage.
type ResearchAgent struct {
	cfg      config.ResearchConfig
	routing  config.LLMRoutingConfig
	llm      LLMProvider
	searcher web_search.WebSearcher
	fetcher  web_fetch.WebFetcher
	logger   *log.Logger
}

func NewResearchAgent(cfg config.ResearchConfig, routing config.LLMRoutingConfig, llm LLMProvider, searcher web_search.WebSearcher, fetcher web_fetch.WebFetcher, logger *log.Logger) *ResearchAgent {
	if logger == nil {
		logger = log.New(log.Writer(), "[RESEARCH] ", log.LstdFlags)
	}
	return &ResearchAgent{cfg: cfg, routing: routing, llm: llm, searcher: searcher, fetcher: fetcher, logger: logger}
}

func (a *ResearchAgent) Name() string { return StageResearch }

func (a *ResearchAgent) Execute(ctx context.Context, state *WorkflowState) AgentResult {
	if state.Video == nil {
		return failureResult(a.Name(), fmt.Errorf("no video data available"))
	}

	topic := a.extractTopic(ctx, state)

	if a.searcher == nil {
		state.Research = &ResearchFindings{
			Topic:    topic,
			Findings: "Web search is not configured; no external sources were consulted.",
		}
		return successResult(a.Name(), map[string]any{"topic": topic, "sources": 0}, map[string]any{"degraded": true})
	}

	model := a.routing.ModelFor("research")
	query, err := a.llm.Generate(ctx,
		fmt.Sprintf("Generate one focused web search query (plain text, no quotes) to find background and context for this video topic:\n%s", topic),
		model, map[string]interface{}{"temperature": 0.2, "max_tokens": 60})
	if err != nil || strings.TrimSpace(query) == "" {
		query = topic
	}
	query = strings.TrimSpace(strings.Trim(strings.TrimSpace(query), `"`))

	searchCtx, cancel := context.WithTimeout(ctx, a.cfg.Timeout)
	results, err := a.searcher.Discover(searchCtx, query, a.cfg.MaxResults, nil, 0)
	cancel()
	if err != nil {
		return failureResult(a.Name(), fmt.Errorf("web search for %q: %w", query, err))
	}

	var sources []ResearchSource
	var srcCtx strings.Builder
	for _, r := range results {
		sources = append(sources, ResearchSource{Title: r.Title, URL: r.URL, Snippet: r.Snippet})
		fmt.Fprintf(&srcCtx, "- %s (%s): %s\n", r.Title, r.URL, r.Snippet)
	}

	if a.cfg.FetchContent && a.fetcher != nil && len(results) > 0 {
		if page, err := a.fetcher.Exec(ctx, results[0].URL); err == nil && page.Text != "" {
			fmt.Fprintf(&srcCtx, "\nTOP SOURCE EXCERPT (%s):\n%s\n", page.URL, utils.Truncate(page.Text, a.cfg.MaxFetchSize))
		}
	}

	findings := "No relevant external sources were found."
	if len(sources) > 0 {
		out, err := a.llm.Generate(ctx,
			fmt.Sprintf("Synthesize the search results below into 2-3 paragraphs of background and context for the video topic %q. Note agreements and disagreements with the video where visible.\n\nSEARCH RESULTS:\n%s", topic, srcCtx.String()),
			model, map[string]interface{}{"temperature": 0.3})
		if err != nil {
			return failureResult(a.Name(), fmt.Errorf("synthesizing research findings: %w", err))
		}
		findings = strings.TrimSpace(out)
	}

	state.Research = &ResearchFindings{
		Topic:    topic,
		Query:    query,
		Findings: findings,
		Sources:  sources,
	}
	return successResult(a.Name(), map[string]any{"topic": topic, "query": query, "sources": len(sources)}, nil)
}

// extractTopic asks the model for a short topic phrase, falling back to the
// video title when generation fails or nothing has been summarized yet.
func (a *ResearchAgent) extractTopic(ctx context.Context, state *WorkflowState) string {
	if state.Summary == "" {
		return state.Video.Title
	}
	model := a.routing.ModelFor("research")
	out, err := a.llm.Generate(ctx,
		fmt.Sprintf("State the main topic of this summary in at most 10 words, plain text:\n\n%s", utils.Truncate(state.Summary, 2000)),
		model, map[string]interface{}{"temperature": 0.1, "max_tokens": 40})
	if err != nil || strings.TrimSpace(out) == "" {
		return state.Video.Title
	}
	return strings.TrimSpace(out)
}
