package core

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/mohammad-safakhou/vidsum/config"
	"github.com/mohammad-safakhou/vidsum/internal/agent/telemetry"
	"github.com/mohammad-safakhou/vidsum/internal/rag"
	"github.com/mohammad-safakhou/vidsum/tools/transcript"
)

const maxConcurrentRuns = 8

// StageEvent reports coarse stage lifecycle transitions for streaming.
type StageEvent struct {
	Stage  string `json:"stage"`
	Status string `json:"status"` // started, completed, failed, skipped
	Error  string `json:"error,omitempty"`
}

type StageCallback func(StageEvent)

// SummaryCache is the subset of the cache the orchestrator needs.
type SummaryCache interface {
	GetSummary(ctx context.Context, videoID, mode string) (string, bool)
	SetSummary(ctx context.Context, videoID, mode, envelope string)
}

// ResultStore persists finished envelopes.
type ResultStore interface {
	SaveResult(ctx context.Context, env *ResultEnvelope) error
}

// Orchestrator drives a request through the stage graph:
// extract -> summarize -> [research] -> [fact_check] -> [cite] -> finalize.
// Extraction and summarization failures are fatal; the optional stages
// degrade with a warning and the run continues. Finalize runs exactly once
// per request.
type Orchestrator struct {
	cfg *config.Config

	extractor  Agent
	summarizer Agent
	research   Agent
	factcheck  Agent
	citation   Agent
	qa         *QAAgent

	cache SummaryCache
	index rag.Index
	store ResultStore
	tel   *telemetry.Telemetry

	logger *log.Logger
	sem    chan struct{}
}

type OrchestratorDeps struct {
	Extractor  Agent
	Summarizer Agent
	Research   Agent
	FactCheck  Agent
	Citation   Agent
	QA         *QAAgent
	Cache      SummaryCache
	Index      rag.Index
	Store      ResultStore
	Telemetry  *telemetry.Telemetry
	Logger     *log.Logger
}

func NewOrchestrator(cfg *config.Config, deps OrchestratorDeps) (*Orchestrator, error) {
	if deps.Extractor == nil || deps.Summarizer == nil {
		return nil, fmt.Errorf("extractor and summarizer agents are required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = log.New(log.Writer(), "[ORCH] ", log.LstdFlags)
	}
	return &Orchestrator{
		cfg:        cfg,
		extractor:  deps.Extractor,
		summarizer: deps.Summarizer,
		research:   deps.Research,
		factcheck:  deps.FactCheck,
		citation:   deps.Citation,
		qa:         deps.QA,
		cache:      deps.Cache,
		index:      deps.Index,
		store:      deps.Store,
		tel:        deps.Telemetry,
		logger:     logger,
		sem:        make(chan struct{}, maxConcurrentRuns),
	}, nil
}

// Process runs the full graph for one video URL and returns the result
// envelope. A non-empty apiKey overrides the configured LLM credential for
// this request only. The envelope carries failure information; the error
// return is reserved for cancellation before the graph starts.
func (o *Orchestrator) Process(ctx context.Context, url string, mode Mode, flags FeatureFlags, apiKey string, onStage StageCallback) (*ResultEnvelope, error) {
	select {
	case o.sem <- struct{}{}:
		defer func() { <-o.sem }()
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	if o.cfg.General.MaxProcessingTime > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.cfg.General.MaxProcessingTime)
		defer cancel()
	}

	if videoID, err := transcript.ExtractVideoID(url); err == nil && o.cache != nil {
		if raw, ok := o.cache.GetSummary(ctx, videoID, string(mode)); ok {
			var env ResultEnvelope
			if err := json.Unmarshal([]byte(raw), &env); err == nil {
				o.logger.Printf("summary cache hit for %s mode=%s", videoID, mode)
				return &env, nil
			}
		}
	}

	route, ok := modeRouting[mode]
	if !ok {
		route = modeRouting[ModeStandard]
	}
	state := &WorkflowState{URL: url, Mode: mode, Flags: flags, APIKey: apiKey}
	ctx = ContextWithAPIKey(ctx, state.APIKey)
	started := time.Now()

	emit := func(stage, status, errMsg string) {
		if onStage != nil {
			onStage(StageEvent{Stage: stage, Status: status, Error: errMsg})
		}
	}

	if res := o.runStage(ctx, StageExtract, o.extractor, state, true, emit); !res.Success {
		state.Err = res.Error
		return o.finalize(ctx, state, started, emit), nil
	}

	if o.index != nil && state.Video != nil {
		if err := o.index.Index(ctx, state.Video.VideoID, state.Video.Transcript, map[string]string{"title": state.Video.Title}); err != nil {
			o.logger.Printf("WARN transcript indexing failed for %s: %v", state.Video.VideoID, err)
			state.Warnings = append(state.Warnings, "transcript indexing failed; question answering may be unavailable")
		}
	}

	if res := o.runStage(ctx, StageSummarize, o.summarizer, state, true, emit); !res.Success {
		state.Err = res.Error
		return o.finalize(ctx, state, started, emit), nil
	}

	if route.RunsResearch(flags) {
		o.runStage(ctx, StageResearch, o.research, state, false, emit)
	} else {
		emit(StageResearch, "skipped", "")
	}

	if route.RunsFactCheck(flags) {
		o.runStage(ctx, StageFactCheck, o.factcheck, state, false, emit)
	} else {
		emit(StageFactCheck, "skipped", "")
	}

	if route.RunsCitation(flags) {
		o.runStage(ctx, StageCite, o.citation, state, false, emit)
	} else {
		emit(StageCite, "skipped", "")
	}

	return o.finalize(ctx, state, started, emit), nil
}

// Answer proxies to the QA agent, recording the outcome.
func (o *Orchestrator) Answer(ctx context.Context, videoID, question string, history []QATurn) (QAAnswer, error) {
	if o.qa == nil {
		return QAAnswer{}, fmt.Errorf("question answering is not configured")
	}
	ans, err := o.qa.Answer(ctx, videoID, question, history)
	if err == nil {
		o.tel.RecordQuestion(ans.Confidence)
	}
	return ans, err
}

// runStage executes one agent behind the panic boundary. A nil agent fails
// the stage through the normal failure path so the event stream and warnings
// still report it.
func (o *Orchestrator) runStage(ctx context.Context, stage string, agent Agent, state *WorkflowState, fatal bool, emit func(string, string, string)) (res AgentResult) {
	state.Stage = stage
	emit(stage, "started", "")

	if agent == nil {
		res = failureResult(stage, fmt.Errorf("stage not configured"))
	} else {
		stageCtx := ctx
		if !fatal && o.cfg.General.DefaultTimeout > 0 {
			var cancel context.CancelFunc
			stageCtx, cancel = context.WithTimeout(ctx, o.cfg.General.DefaultTimeout)
			defer cancel()
		}

		t0 := time.Now()
		func() {
			defer func() {
				if r := recover(); r != nil {
					res = failureResult(stage, fmt.Errorf("stage panicked: %v", r))
				}
			}()
			res = agent.Execute(stageCtx, state)
		}()
		d := time.Since(t0)
		o.tel.RecordStage(stage, d, res.Success, fatal)

		if res.Success {
			o.logger.Printf("stage %s completed in %s", stage, d)
			emit(stage, "completed", "")
			return res
		}
	}

	if fatal {
		o.logger.Printf("stage %s failed fatally: %s", stage, res.Error)
	} else {
		o.logger.Printf("WARN stage %s failed, continuing: %s", stage, res.Error)
		state.Warnings = append(state.Warnings, fmt.Sprintf("%s stage failed: %s", stage, res.Error))
	}
	emit(stage, "failed", res.Error)
	return res
}

// finalize builds the terminal envelope, caches and persists successful runs,
// and is reached exactly once per Process call.
func (o *Orchestrator) finalize(ctx context.Context, state *WorkflowState, started time.Time, emit func(string, string, string)) *ResultEnvelope {
	emit(StageFinalize, "started", "")
	env := &ResultEnvelope{
		Mode:           string(state.Mode),
		Timestamps:     []TimestampRef{},
		Warnings:       state.Warnings,
		ProcessingTime: time.Since(started).Seconds(),
		CreatedAt:      time.Now(),
	}

	if state.Err != "" {
		env.Success = false
		env.Error = state.Err
		if state.Video != nil {
			env.VideoID = state.Video.VideoID
			env.URL = state.Video.URL
		}
		env.SummaryID = fmt.Sprintf("sum_error_%d", env.CreatedAt.Unix())
		state.Result = env
		o.tel.RecordRun(string(state.Mode), false, time.Since(started))
		emit(StageFinalize, "completed", "")
		return env
	}

	v := state.Video
	env.Success = true
	env.SummaryID = fmt.Sprintf("sum_%s_%d", v.VideoID, env.CreatedAt.Unix())
	env.VideoID = v.VideoID
	env.URL = v.URL
	env.Title = v.Title
	env.Author = v.Author
	env.DurationSeconds = v.LengthSeconds
	env.Language = v.Language
	env.Transcript = v.Transcript

	env.Summary = state.Summary
	if state.CitedSummary != "" {
		env.Summary = state.CitedSummary
	}
	if state.Timestamps != nil {
		env.Timestamps = state.Timestamps
	}
	env.Research = state.Research
	if state.FactCheck != nil {
		env.FactCheck = state.FactCheck
		score := state.FactCheck.CredibilityScore
		env.CredibilityScore = &score
	}
	state.Result = env

	if o.cache != nil {
		if raw, err := json.Marshal(env); err == nil {
			o.cache.SetSummary(ctx, v.VideoID, string(state.Mode), string(raw))
		}
	}
	if o.store != nil {
		if err := o.store.SaveResult(ctx, env); err != nil {
			o.logger.Printf("WARN persisting summary %s failed: %v", env.SummaryID, err)
		}
	}

	o.tel.RecordRun(string(state.Mode), true, time.Since(started))
	emit(StageFinalize, "completed", "")
	return env
}
