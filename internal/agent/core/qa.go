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

const notIndexedAnswer = "I couldn't find relevant information about that in this video's transcript. " +
	"The video may need to be re-indexed, or the topic may not be covered."

// QATurn is one prior question/answer exchange.
type QATurn struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

type QACitation struct {
	Text      string  `json:"text"`
	Timestamp string  `json:"timestamp,omitempty"`
	Score     float64 `json:"score"`
}

type QAAnswer struct {
	Answer     string       `json:"answer"`
	Citations  []QACitation `json:"citations"`
	Confidence string       `json:"confidence"`
}

// QAAgent answers questions over an indexed transcript. Retrieval gates the
// model: chunks below the score threshold never reach the prompt, and an
// empty retrieval produces a fixed fallback answer rather than an error.
type QAAgent struct {
	cfg     config.RAGConfig
	routing config.LLMRoutingConfig
	llm     LLMProvider
	index   rag.Index
	logger  *log.Logger
}

func NewQAAgent(cfg config.RAGConfig, routing config.LLMRoutingConfig, llm LLMProvider, index rag.Index, logger *log.Logger) *QAAgent {
	if logger == nil {
		logger = log.New(log.Writer(), "[QA] ", log.LstdFlags)
	}
	return &QAAgent{cfg: cfg, routing: routing, llm: llm, index: index, logger: logger}
}

// Answer retrieves relevant transcript chunks and generates a grounded answer
// with citations and a confidence label.
func (a *QAAgent) Answer(ctx context.Context, videoID, question string, history []QATurn) (QAAnswer, error) {
	if strings.TrimSpace(question) == "" {
		return QAAnswer{}, fmt.Errorf("question must not be empty")
	}

	chunks, err := a.index.Query(ctx, videoID, question, a.cfg.TopK, a.cfg.ScoreThreshold)
	if err == rag.ErrNotIndexed {
		return QAAnswer{Answer: notIndexedAnswer, Citations: []QACitation{}, Confidence: "low"}, nil
	}
	if err != nil {
		return QAAnswer{}, fmt.Errorf("retrieving transcript chunks: %w", err)
	}
	if len(chunks) == 0 {
		return QAAnswer{Answer: notIndexedAnswer, Citations: []QACitation{}, Confidence: "low"}, nil
	}

	prompt := a.buildPrompt(question, chunks, history)
	model := a.routing.ModelFor("qa")
	out, genErr := a.llm.Generate(ctx, prompt, model, map[string]interface{}{"temperature": 0.2})
	if genErr != nil {
		a.logger.Printf("answer generation failed for %s: %v", videoID, genErr)
		return QAAnswer{
			Answer:     "An error occurred while generating the answer. Please try again.",
			Citations:  []QACitation{},
			Confidence: "error",
		}, nil
	}

	return QAAnswer{
		Answer:     strings.TrimSpace(out),
		Citations:  buildCitations(chunks),
		Confidence: confidenceLabel(chunks),
	}, nil
}

func (a *QAAgent) buildPrompt(question string, chunks []rag.Retrieved, history []QATurn) string {
	var b strings.Builder
	b.WriteString("Answer the question using ONLY the transcript context below. Cite timestamps like [MM:SS] when they appear in the context. If the context does not contain the answer, say so plainly.\n\nCONTEXT:\n")
	for _, c := range chunks {
		fmt.Fprintf(&b, "(relevance %.2f) %s\n\n", c.Score, c.Text)
	}
	if n := len(history); n > 0 {
		start := 0
		if n > a.cfg.HistoryTurns {
			start = n - a.cfg.HistoryTurns
		}
		b.WriteString("CONVERSATION SO FAR:\n")
		for _, t := range history[start:] {
			fmt.Fprintf(&b, "Q: %s\nA: %s\n", t.Question, t.Answer)
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "QUESTION: %s", question)
	return b.String()
}

// buildCitations takes the top 3 chunks, attaching the first timestamp found
// in each chunk's text.
func buildCitations(chunks []rag.Retrieved) []QACitation {
	out := []QACitation{}
	for i, c := range chunks {
		if i >= 3 {
			break
		}
		ts := c.Timestamp
		if ts == "" {
			ts = rag.ExtractTimestamp(c.Text)
		}
		out = append(out, QACitation{
			Text:      utils.Truncate(strings.TrimSpace(c.Text), 200),
			Timestamp: ts,
			Score:     c.Score,
		})
	}
	return out
}

// confidenceLabel buckets the mean retrieval score: >=0.7 high, >=0.5 medium,
// otherwise low. "none" when no chunks were retrieved.
func confidenceLabel(chunks []rag.Retrieved) string {
	if len(chunks) == 0 {
		return "none"
	}
	var sum float64
	for _, c := range chunks {
		sum += c.Score
	}
	mean := sum / float64(len(chunks))
	switch {
	case mean >= 0.7:
		return "high"
	case mean >= 0.5:
		return "medium"
	default:
		return "low"
	}
}
