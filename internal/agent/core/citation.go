package core

import (
	"context"
	"fmt"
	"log"
	"regexp"
	"strings"

	"github.com/mohammad-safakhou/vidsum/config"
	"github.com/mohammad-safakhou/vidsum/utils"
)

const (
	maxKeyPoints        = 15
	maxKeywordsPerPoint = 10
	minSentenceLength   = 30
	maxCitationText     = 150
)

var stopwords = map[string]bool{
	"this": true, "that": true, "with": true, "from": true, "they": true,
	"have": true, "been": true, "were": true, "their": true, "would": true,
	"could": true, "should": true, "about": true, "which": true, "there": true,
	"these": true, "those": true, "then": true, "than": true, "when": true,
	"what": true, "where": true, "will": true, "your": true, "into": true,
	"also": true, "more": true, "some": true, "such": true, "very": true,
	"just": true, "like": true, "over": true, "only": true, "other": true,
}

var (
	bulletRe   = regexp.MustCompile(`^\s*[-*•]\s+(.+)$`)
	numberedRe = regexp.MustCompile(`^\s*\d+[.)]\s+(.+)$`)
	wordRe     = regexp.MustCompile(`[a-zA-Z]+`)
)

// CitationAgent matches summary key points back to transcript segments and
// asks the model to inline the resulting timestamps. Points with no keyword
// match are dropped; the matching is intentionally lossy.
type CitationAgent struct {
	routing config.LLMRoutingConfig
	llm     LLMProvider
	logger  *log.Logger
}

func NewCitationAgent(routing config.LLMRoutingConfig, llm LLMProvider, logger *log.Logger) *CitationAgent {
	if logger == nil {
		logger = log.New(log.Writer(), "[CITE] ", log.LstdFlags)
	}
	return &CitationAgent{routing: routing, llm: llm, logger: logger}
}

func (a *CitationAgent) Name() string { return StageCite }

func (a *CitationAgent) Execute(ctx context.Context, state *WorkflowState) AgentResult {
	if state.Video == nil {
		return failureResult(a.Name(), fmt.Errorf("no video data available"))
	}
	if state.Summary == "" {
		return failureResult(a.Name(), fmt.Errorf("no summary to cite"))
	}

	refs := MatchTimestamps(state.Summary, state.Video.Segments)
	if len(refs) == 0 {
		// Nothing matched; keep the summary as-is without failing the stage.
		state.CitedSummary = state.Summary
		state.Timestamps = nil
		return successResult(a.Name(), map[string]any{"citations": 0}, nil)
	}

	var refList strings.Builder
	for _, r := range refs {
		fmt.Fprintf(&refList, "[%s] %s\n", r.Time, r.Text)
	}
	model := a.routing.ModelFor("citation")
	out, err := a.llm.Generate(ctx,
		fmt.Sprintf("Rewrite this summary with timestamp citations inlined. Insert [MM:SS] markers from the reference list next to the matching statements. Do not change the content otherwise.\n\nSUMMARY:\n%s\n\nREFERENCES:\n%s",
			state.Summary, refList.String()),
		model, map[string]interface{}{"temperature": 0.2})
	if err != nil {
		return failureResult(a.Name(), fmt.Errorf("inlining citations: %w", err))
	}
	cited := strings.TrimSpace(out)
	if cited == "" {
		return failureResult(a.Name(), fmt.Errorf("model returned an empty cited summary"))
	}

	state.CitedSummary = cited
	state.Timestamps = refs
	return successResult(a.Name(), map[string]any{"citations": len(refs)}, map[string]any{"model": model})
}

// MatchTimestamps finds the best transcript segment for each summary key
// point. Confidence is the fraction of the point's keywords found in the
// segment; zero-match points are dropped.
func MatchTimestamps(summary string, segments []TranscriptSegment) []TimestampRef {
	points := ExtractKeyPoints(summary)
	lowered := make([]string, len(segments))
	for i, s := range segments {
		lowered[i] = strings.ToLower(s.Text)
	}

	var refs []TimestampRef
	for _, point := range points {
		keywords := ExtractKeywords(point)
		if len(keywords) == 0 {
			continue
		}
		bestIdx, bestMatches := -1, 0
		for i := range segments {
			matches := 0
			for _, kw := range keywords {
				if strings.Contains(lowered[i], kw) {
					matches++
				}
			}
			if matches > bestMatches {
				bestIdx, bestMatches = i, matches
			}
		}
		if bestIdx < 0 {
			continue
		}
		confidence := float64(bestMatches) / float64(len(keywords))
		if confidence > 1 {
			confidence = 1
		}
		refs = append(refs, TimestampRef{
			Time:       utils.FormatTimestamp(segments[bestIdx].Start),
			Text:       utils.Truncate(point, maxCitationText),
			Confidence: confidence,
		})
	}
	return refs
}

// ExtractKeyPoints pulls citable statements from the summary: bullet and
// numbered list items first, otherwise sentences longer than 30 characters.
// Capped at 15.
func ExtractKeyPoints(summary string) []string {
	var points []string
	var foundList bool
	for _, line := range strings.Split(summary, "\n") {
		if m := bulletRe.FindStringSubmatch(line); m != nil {
			points = append(points, strings.TrimSpace(m[1]))
			foundList = true
		} else if m := numberedRe.FindStringSubmatch(line); m != nil {
			points = append(points, strings.TrimSpace(m[1]))
			foundList = true
		}
		if len(points) >= maxKeyPoints {
			return points
		}
	}
	if foundList {
		return points
	}

	for _, sentence := range splitSentences(summary) {
		if len(sentence) > minSentenceLength {
			points = append(points, sentence)
			if len(points) >= maxKeyPoints {
				break
			}
		}
	}
	return points
}

// ExtractKeywords lowercases the point and keeps words longer than 3
// characters that are not stopwords. Capped at 10.
func ExtractKeywords(point string) []string {
	var keywords []string
	seen := map[string]bool{}
	for _, w := range wordRe.FindAllString(strings.ToLower(point), -1) {
		if len(w) <= 3 || stopwords[w] || seen[w] {
			continue
		}
		seen[w] = true
		keywords = append(keywords, w)
		if len(keywords) >= maxKeywordsPerPoint {
			break
		}
	}
	return keywords
}

func splitSentences(text string) []string {
	var out []string
	var cur strings.Builder
	for _, r := range text {
		cur.WriteRune(r)
		if r == '.' || r == '!' || r == '?' {
			if s := strings.TrimSpace(cur.String()); s != "" {
				out = append(out, s)
			}
			cur.Reset()
		}
	}
	if s := strings.TrimSpace(cur.String()); s != "" {
		out = append(out, s)
	}
	return out
}
