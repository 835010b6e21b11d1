package core

import (
	"context"
	"fmt"
	"log"
	"math"
	"strconv"
	"strings"

	"github.com/mohammad-safakhou/vidsum/config"
	"github.com/mohammad-safakhou/vidsum/tools/web_search"
	"github.com/mohammad-safakhou/vidsum/utils"
)

const maxCheckedClaims = 10

// FactCheckAgent extracts factual claims from the summary and verifies each
// one, producing an overall credibility score.
type FactCheckAgent struct {
	cfg      config.ResearchConfig
	routing  config.LLMRoutingConfig
	llm      LLMProvider
	searcher web_search.WebSearcher
	logger   *log.Logger
}

func NewFactCheckAgent(cfg config.ResearchConfig, routing config.LLMRoutingConfig, llm LLMProvider, searcher web_search.WebSearcher, logger *log.Logger) *FactCheckAgent {
	if logger == nil {
		logger = log.New(log.Writer(), "[FACTCHECK] ", log.LstdFlags)
	}
	return &FactCheckAgent{cfg: cfg, routing: routing, llm: llm, searcher: searcher, logger: logger}
}

func (a *FactCheckAgent) Name() string { return StageFactCheck }

func (a *FactCheckAgent) Execute(ctx context.Context, state *WorkflowState) AgentResult {
	if state.Video == nil {
		return failureResult(a.Name(), fmt.Errorf("no video data available"))
	}
	if state.Summary == "" {
		return failureResult(a.Name(), fmt.Errorf("no summary to fact-check"))
	}

	model := a.routing.ModelFor("fact_check")
	claims, err := a.extractClaims(ctx, state.Summary, model)
	if err != nil {
		return failureResult(a.Name(), err)
	}
	if len(claims) == 0 {
		state.FactCheck = &FactCheckResult{
			Claims:           nil,
			CredibilityScore: statusScores[StatusUnverified],
			Assessment:       "No checkable factual claims were found in the summary.",
		}
		return successResult(a.Name(), map[string]any{"claims": 0}, nil)
	}

	var verifications []ClaimVerification
	for _, claim := range claims {
		v := a.verifyClaim(ctx, claim, model)
		verifications = append(verifications, v)
	}

	result := &FactCheckResult{
		Claims:           verifications,
		CredibilityScore: CredibilityScore(verifications),
	}
	result.Assessment = assessCredibility(result.CredibilityScore)
	state.FactCheck = result

	return successResult(a.Name(), map[string]any{
		"claims":            len(verifications),
		"credibility_score": result.CredibilityScore,
	}, map[string]any{"model": model})
}

func (a *FactCheckAgent) extractClaims(ctx context.Context, summary, model string) ([]string, error) {
	out, err := a.llm.Generate(ctx,
		fmt.Sprintf("List the distinct factual claims made in this summary, one per line, each starting with \"- \". Only include claims that could be checked against external sources. At most %d claims.\n\nSUMMARY:\n%s",
			maxCheckedClaims, summary),
		model, map[string]interface{}{"temperature": 0.1})
	if err != nil {
		return nil, fmt.Errorf("extracting claims: %w", err)
	}
	var claims []string
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimPrefix(line, "- ")
		line = strings.TrimPrefix(line, "* ")
		if line == "" || len(line) < 10 {
			continue
		}
		claims = append(claims, line)
		if len(claims) >= maxCheckedClaims {
			break
		}
	}
	return claims, nil
}

func (a *FactCheckAgent) verifyClaim(ctx context.Context, claim, model string) ClaimVerification {
	evidence := a.gatherEvidence(ctx, claim)
	prompt := fmt.Sprintf(`Verify this claim against the evidence.

CLAIM: %s

EVIDENCE:
%s

Respond with exactly three lines:
STATUS: one of verified, partially_true, unverified, misleading, false
EXPLANATION: one sentence
CONFIDENCE: a number between 0 and 1`, claim, evidence)

	out, err := a.llm.Generate(ctx, prompt, model, map[string]interface{}{"temperature": 0.1, "max_tokens": 200})
	if err != nil {
		a.logger.Printf("verification call failed for claim %q: %v", utils.Truncate(claim, 60), err)
		return ClaimVerification{Claim: claim, Status: StatusUnverified, Explanation: "Verification could not be completed.", Confidence: 0}
	}

	v, ok := ParseVerification(out)
	if !ok {
		a.logger.Printf("unparseable verification response for claim %q, marking unverified", utils.Truncate(claim, 60))
		v = ClaimVerification{Status: StatusUnverified, Explanation: "The verification response could not be parsed.", Confidence: 0}
	}
	v.Claim = claim
	return v
}

func (a *FactCheckAgent) gatherEvidence(ctx context.Context, claim string) string {
	if a.searcher == nil {
		return "(no external evidence available; judge from general knowledge)"
	}
	searchCtx, cancel := context.WithTimeout(ctx, a.cfg.Timeout)
	defer cancel()
	results, err := a.searcher.Discover(searchCtx, claim, 3, nil, 0)
	if err != nil || len(results) == 0 {
		return "(no external evidence found; judge from general knowledge)"
	}
	var b strings.Builder
	for _, r := range results {
		fmt.Fprintf(&b, "- %s: %s\n", r.Title, r.Snippet)
	}
	return b.String()
}

// ParseVerification parses a strict STATUS/EXPLANATION/CONFIDENCE response.
// The second return value reports whether the response followed the format;
// callers must treat false as unverified rather than guessing.
func ParseVerification(out string) (ClaimVerification, bool) {
	var v ClaimVerification
	var haveStatus, haveExplanation bool
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		upper := strings.ToUpper(line)
		switch {
		case strings.HasPrefix(upper, "STATUS:"):
			status := strings.ToLower(strings.TrimSpace(line[len("STATUS:"):]))
			if _, known := statusScores[status]; !known {
				return ClaimVerification{}, false
			}
			v.Status = status
			haveStatus = true
		case strings.HasPrefix(upper, "EXPLANATION:"):
			v.Explanation = strings.TrimSpace(line[len("EXPLANATION:"):])
			haveExplanation = v.Explanation != ""
		case strings.HasPrefix(upper, "CONFIDENCE:"):
			raw := strings.TrimSpace(line[len("CONFIDENCE:"):])
			if f, err := strconv.ParseFloat(raw, 64); err == nil && f >= 0 && f <= 1 {
				v.Confidence = f
			}
		}
	}
	if !haveStatus || !haveExplanation {
		return ClaimVerification{}, false
	}
	return v, true
}

// CredibilityScore is the mean of the per-status scores, rounded to two
// decimals. Unknown statuses count as unverified.
func CredibilityScore(claims []ClaimVerification) float64 {
	if len(claims) == 0 {
		return statusScores[StatusUnverified]
	}
	var sum float64
	for _, c := range claims {
		score, ok := statusScores[c.Status]
		if !ok {
			score = statusScores[StatusUnverified]
		}
		sum += score
	}
	return math.Round(sum/float64(len(claims))*100) / 100
}

func assessCredibility(score float64) string {
	switch {
	case score >= 0.8:
		return "The content appears highly credible; most claims were verified."
	case score >= 0.6:
		return "The content appears generally credible with some unverified claims."
	case score >= 0.4:
		return "The content has mixed credibility; several claims could not be verified."
	default:
		return "The content has low credibility; multiple claims appear misleading or false."
	}
}
