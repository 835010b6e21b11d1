package core

import (
	"fmt"
	"log"

	"github.com/mohammad-safakhou/vidsum/config"
	"github.com/mohammad-safakhou/vidsum/internal/rag"
	"github.com/mohammad-safakhou/vidsum/tools/web_fetch"
	"github.com/mohammad-safakhou/vidsum/tools/web_search"
)

// NewLLMProvider creates a new LLM provider based on configuration
func NewLLMProvider(cfg config.LLMConfig) (LLMProvider, error) {
	if len(cfg.Providers) == 0 {
		return nil, fmt.Errorf("no LLM providers configured")
	}
	for _, provider := range cfg.Providers {
		switch provider.Type {
		case "openai":
			return NewOpenAIProvider(provider), nil
		default:
			return nil, fmt.Errorf("unsupported LLM provider type: %s", provider.Type)
		}
	}
	return nil, fmt.Errorf("no valid LLM providers found")
}

// NewWebSearcher builds the configured search provider, or nil when search is
// not configured. The research and fact-check agents degrade without it.
func NewWebSearcher(cfg config.ResearchConfig) (web_search.WebSearcher, error) {
	switch cfg.Provider {
	case "":
		return nil, nil
	case string(web_search.BraveProvider):
		return web_search.NewWebSearcher(web_search.BraveProvider, cfg.BraveAPIKey)
	case string(web_search.SerperProvider):
		return web_search.NewWebSearcher(web_search.SerperProvider, cfg.SerperAPIKey)
	default:
		return nil, fmt.Errorf("unsupported search provider: %s", cfg.Provider)
	}
}

// NewWebFetcher builds the headless page fetcher when content fetching is
// enabled.
func NewWebFetcher(cfg config.ResearchConfig) (web_fetch.WebFetcher, error) {
	if !cfg.FetchContent {
		return nil, nil
	}
	return web_fetch.NewWebFetcher(web_fetch.ChromedpFetcherType, cfg.FetchTimeout, cfg.MaxFetchSize)
}

// AgentSet bundles the pipeline agents for orchestrator wiring.
type AgentSet struct {
	Extractor  Agent
	Summarizer Agent
	Research   Agent
	FactCheck  Agent
	Citation   Agent
	QA         *QAAgent
}

// NewAgentSet constructs every agent from configuration and shared
// dependencies. index may be nil; the QA agent is omitted in that case.
func NewAgentSet(cfg *config.Config, llm LLMProvider, source TranscriptSource, tcache TranscriptCache, index rag.Index, logger *log.Logger) (AgentSet, error) {
	searcher, err := NewWebSearcher(cfg.Research)
	if err != nil {
		return AgentSet{}, err
	}
	fetcher, err := NewWebFetcher(cfg.Research)
	if err != nil {
		return AgentSet{}, err
	}

	set := AgentSet{
		Extractor:  NewExtractorAgent(source, tcache, prefixed(logger, "[EXTRACT] ")),
		Summarizer: NewSummarizerAgent(cfg.Summarizer, cfg.LLM.Routing, llm, prefixed(logger, "[SUMMARIZE] ")),
		Research:   NewResearchAgent(cfg.Research, cfg.LLM.Routing, llm, searcher, fetcher, prefixed(logger, "[RESEARCH] ")),
		FactCheck:  NewFactCheckAgent(cfg.Research, cfg.LLM.Routing, llm, searcher, prefixed(logger, "[FACTCHECK] ")),
		Citation:   NewCitationAgent(cfg.LLM.Routing, llm, prefixed(logger, "[CITE] ")),
	}
	if index != nil {
		set.QA = NewQAAgent(cfg.RAG, cfg.LLM.Routing, llm, index, prefixed(logger, "[QA] "))
	}
	return set, nil
}

func prefixed(base *log.Logger, prefix string) *log.Logger {
	if base == nil {
		return log.New(log.Writer(), prefix, log.LstdFlags)
	}
	return log.New(base.Writer(), prefix, base.Flags())
}
