package core

import (
	"context"
	"fmt"
	"time"
)

// Mode selects the summarization tier.
type Mode string

const (
	ModeQuick       Mode = "quick"
	ModeStandard    Mode = "standard"
	ModeResearch    Mode = "research"
	ModeEducational Mode = "educational"
)

// ParseMode validates a user-supplied mode string, defaulting to standard.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeQuick, ModeStandard, ModeResearch, ModeEducational:
		return Mode(s), nil
	case "":
		return ModeStandard, nil
	default:
		return "", fmt.Errorf("unknown mode %q", s)
	}
}

// FeatureFlags toggles optional pipeline stages. Absent flags mean false; any
// combination is valid.
type FeatureFlags struct {
	FactChecking bool `json:"fact_checking"`
	WebResearch  bool `json:"web_research"`
	Citations    bool `json:"citations"`
	Translation  bool `json:"translation"`
}

// AgentResult is the uniform envelope every agent returns. Success=false
// implies Data is nil and Error is set; agents never panic past this boundary.
type AgentResult struct {
	Agent   string         `json:"agent"`
	Success bool           `json:"success"`
	Data    map[string]any `json:"data,omitempty"`
	Error   string         `json:"error,omitempty"`
	Meta    map[string]any `json:"metadata,omitempty"`
}

func successResult(agent string, data map[string]any, meta map[string]any) AgentResult {
	return AgentResult{Agent: agent, Success: true, Data: data, Meta: meta}
}

func failureResult(agent string, err error) AgentResult {
	return AgentResult{Agent: agent, Success: false, Error: err.Error()}
}

// TranscriptSegment is one caption line with its start offset in seconds.
type TranscriptSegment struct {
	Text     string  `json:"text"`
	Start    float64 `json:"start"`
	Duration float64 `json:"duration"`
}

// KeyTimestamp marks a notable moment sampled from the transcript.
type KeyTimestamp struct {
	Time string `json:"time"`
	Text string `json:"text"`
}

// VideoData is everything the extractor produces about a video.
type VideoData struct {
	VideoID       string              `json:"video_id"`
	URL           string              `json:"url"`
	Title         string              `json:"title"`
	Author        string              `json:"author"`
	Thumbnail     string              `json:"thumbnail,omitempty"`
	LengthSeconds float64             `json:"length_seconds"`
	Segments      []TranscriptSegment `json:"segments"`
	Transcript    string              `json:"transcript"`
	Language      string              `json:"language"`
	AutoGenerated bool                `json:"auto_generated"`
	KeyTimestamps []KeyTimestamp      `json:"key_timestamps,omitempty"`
}

// ResearchFindings is the research agent's contribution to the envelope.
type ResearchFindings struct {
	Topic    string           `json:"topic"`
	Query    string           `json:"query"`
	Findings string           `json:"findings"`
	Sources  []ResearchSource `json:"sources,omitempty"`
}

type ResearchSource struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet,omitempty"`
}

// Claim verification statuses and their contribution to the credibility score.
const (
	StatusVerified      = "verified"
	StatusPartiallyTrue = "partially_true"
	StatusUnverified    = "unverified"
	StatusMisleading    = "misleading"
	StatusFalse         = "false"
)

var statusScores = map[string]float64{
	StatusVerified:      1.0,
	StatusPartiallyTrue: 0.7,
	StatusUnverified:    0.5,
	StatusMisleading:    0.3,
	StatusFalse:         0.0,
}

type ClaimVerification struct {
	Claim       string  `json:"claim"`
	Status      string  `json:"status"`
	Explanation string  `json:"explanation"`
	Confidence  float64 `json:"confidence"`
}

type FactCheckResult struct {
	Claims           []ClaimVerification `json:"claims"`
	CredibilityScore float64             `json:"credibility_score"`
	Assessment       string              `json:"assessment"`
}

// TimestampRef ties a summary point back to a moment in the video.
type TimestampRef struct {
	Time       string  `json:"time"`
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
}

// WorkflowState carries a single request through the graph. It is created per
// request, mutated in place by stages, and never shared across requests.
type WorkflowState struct {
	URL    string
	Mode   Mode
	Flags  FeatureFlags
	APIKey string

	Video        *VideoData
	Summary      string
	Research     *ResearchFindings
	FactCheck    *FactCheckResult
	CitedSummary string
	Timestamps   []TimestampRef

	Stage    string
	Err      string
	Warnings []string
	Result   *ResultEnvelope
}

// ResultEnvelope is the terminal output of a workflow run.
type ResultEnvelope struct {
	SummaryID        string            `json:"summary_id"`
	Success          bool              `json:"success"`
	Error            string            `json:"error,omitempty"`
	VideoID          string            `json:"video_id,omitempty"`
	URL              string            `json:"url,omitempty"`
	Title            string            `json:"title,omitempty"`
	Author           string            `json:"author,omitempty"`
	Mode             string            `json:"mode"`
	Summary          string            `json:"summary,omitempty"`
	Timestamps       []TimestampRef    `json:"timestamps"`
	DurationSeconds  float64           `json:"duration_seconds,omitempty"`
	Language         string            `json:"language,omitempty"`
	Transcript       string            `json:"transcript,omitempty"`
	Research         *ResearchFindings `json:"research,omitempty"`
	FactCheck        *FactCheckResult  `json:"fact_check,omitempty"`
	CredibilityScore *float64          `json:"credibility_score,omitempty"`
	Warnings         []string          `json:"warnings,omitempty"`
	ProcessingTime   float64           `json:"processing_time_seconds"`
	CreatedAt        time.Time         `json:"created_at"`
}

// ModelInfo provides information about an LLM model
type ModelInfo struct {
	Name            string
	Provider        string
	MaxTokens       int
	CostPer1KInput  float64
	CostPer1KOutput float64
	Description     string
}

type apiKeyCtxKey struct{}

// ContextWithAPIKey attaches a request-scoped LLM credential override. The
// provider picks it up on every call made under the returned context.
func ContextWithAPIKey(ctx context.Context, key string) context.Context {
	if key == "" {
		return ctx
	}
	return context.WithValue(ctx, apiKeyCtxKey{}, key)
}

// APIKeyFromContext returns the request-scoped API key override, if any.
func APIKeyFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(apiKeyCtxKey{}).(string); ok {
		return v
	}
	return ""
}

// LLMProvider abstracts LLM text generation and embeddings.
type LLMProvider interface {
	Generate(ctx context.Context, prompt string, model string, options map[string]interface{}) (string, error)
	GenerateWithTokens(ctx context.Context, prompt string, model string, options map[string]interface{}) (string, int64, int64, error)
	CreateEmbedding(ctx context.Context, texts []string) ([][]float32, error)
	GetModelInfo(model string) (ModelInfo, error)
	CalculateCost(inputTokens, outputTokens int64, model string) float64
}

// Agent is a single pipeline stage. Execute reads and mutates the shared
// per-request state and reports its outcome as an AgentResult.
type Agent interface {
	Name() string
	Execute(ctx context.Context, state *WorkflowState) AgentResult
}

// ModeRoute declares which optional stages a mode runs, either
// unconditionally or behind a feature flag. This table is the single source
// of truth for routing; decision functions and the capabilities endpoint both
// read it.
type ModeRoute struct {
	Research      bool `json:"research"`
	ResearchFlag  bool `json:"research_with_flag"`
	FactCheck     bool `json:"fact_check"`
	FactCheckFlag bool `json:"fact_check_with_flag"`
	Cite          bool `json:"citations"`
	CiteFlag      bool `json:"citations_with_flag"`
}

var modeRouting = map[Mode]ModeRoute{
	ModeQuick:       {FactCheckFlag: true, CiteFlag: true},
	ModeStandard:    {FactCheckFlag: true, Cite: true},
	ModeResearch:    {Research: true, FactCheck: true, Cite: true},
	ModeEducational: {ResearchFlag: true, FactCheckFlag: true, Cite: true},
}

// ModeRouting exposes a copy of the routing table for documentation and
// validation surfaces.
func ModeRouting() map[Mode]ModeRoute {
	out := make(map[Mode]ModeRoute, len(modeRouting))
	for k, v := range modeRouting {
		out[k] = v
	}
	return out
}

func (r ModeRoute) RunsResearch(f FeatureFlags) bool {
	return r.Research || (r.ResearchFlag && f.WebResearch)
}

func (r ModeRoute) RunsFactCheck(f FeatureFlags) bool {
	return r.FactCheck || (r.FactCheckFlag && f.FactChecking)
}

func (r ModeRoute) RunsCitation(f FeatureFlags) bool {
	return r.Cite || (r.CiteFlag && f.Citations)
}

// Agents lists the stages a mode+flags combination will run, in order.
func (r ModeRoute) Agents(f FeatureFlags) []string {
	out := []string{StageExtract, StageSummarize}
	if r.RunsResearch(f) {
		out = append(out, StageResearch)
	}
	if r.RunsFactCheck(f) {
		out = append(out, StageFactCheck)
	}
	if r.RunsCitation(f) {
		out = append(out, StageCite)
	}
	return append(out, StageFinalize)
}
