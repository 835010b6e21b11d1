package core

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/mohammad-safakhou/vidsum/tools/transcript"
	"github.com/mohammad-safakhou/vidsum/utils"
)

// Stage names used in routing, events, and logs.
const (
	StageExtract   = "extract"
	StageSummarize = "summarize"
	StageResearch  = "research"
	StageFactCheck = "fact_check"
	StageCite      = "cite"
	StageFinalize  = "finalize"
)

const (
	keyTimestampInterval = 30.0
	maxKeyTimestamps     = 20
)

// TranscriptSource fetches caption tracks and metadata for a video.
type TranscriptSource interface {
	Fetch(ctx context.Context, videoID string) ([]transcript.Segment, string, bool, error)
	Meta(ctx context.Context, videoID string) (transcript.Metadata, error)
}

// TranscriptCache is the subset of the cache used by the extractor.
type TranscriptCache interface {
	GetTranscript(ctx context.Context, videoID string) (string, bool)
	SetTranscript(ctx context.Context, videoID, data string)
}

// ExtractorAgent resolves a video URL into metadata, transcript segments, and
// a formatted transcript. Extraction failures are fatal to the run.
type ExtractorAgent struct {
	source TranscriptSource
	cache  TranscriptCache
	logger *log.Logger
}

func NewExtractorAgent(source TranscriptSource, cache TranscriptCache, logger *log.Logger) *ExtractorAgent {
	if logger == nil {
		logger = log.New(log.Writer(), "[EXTRACT] ", log.LstdFlags)
	}
	return &ExtractorAgent{source: source, cache: cache, logger: logger}
}

func (a *ExtractorAgent) Name() string { return StageExtract }

func (a *ExtractorAgent) Execute(ctx context.Context, state *WorkflowState) AgentResult {
	videoID, err := transcript.ExtractVideoID(state.URL)
	if err != nil {
		return failureResult(a.Name(), fmt.Errorf("invalid video URL %q: could not extract a video id", state.URL))
	}

	if a.cache != nil {
		if raw, ok := a.cache.GetTranscript(ctx, videoID); ok {
			var cached VideoData
			if err := json.Unmarshal([]byte(raw), &cached); err == nil && cached.Transcript != "" {
				a.logger.Printf("transcript cache hit for %s", videoID)
				state.Video = &cached
				return successResult(a.Name(), map[string]any{"video_id": videoID, "title": cached.Title}, map[string]any{"cached": true})
			}
		}
	}

	meta, err := a.source.Meta(ctx, videoID)
	if err != nil {
		return failureResult(a.Name(), fmt.Errorf("fetching metadata for %s: %w", videoID, err))
	}

	segs, lang, auto, err := a.source.Fetch(ctx, videoID)
	if err == transcript.ErrNoTranscript {
		return failureResult(a.Name(), fmt.Errorf("no transcript is available for video %s in the requested languages (captions may be disabled)", videoID))
	}
	if err != nil {
		return failureResult(a.Name(), fmt.Errorf("fetching transcript for %s: %w", videoID, err))
	}
	if len(segs) == 0 {
		return failureResult(a.Name(), fmt.Errorf("video %s has an empty transcript", videoID))
	}

	video := buildVideoData(state.URL, videoID, meta, segs, lang, auto)
	state.Video = video

	if a.cache != nil {
		if raw, err := json.Marshal(video); err == nil {
			a.cache.SetTranscript(ctx, videoID, string(raw))
		}
	}

	return successResult(a.Name(), map[string]any{
		"video_id": videoID,
		"title":    video.Title,
		"segments": len(video.Segments),
		"language": video.Language,
	}, map[string]any{"auto_generated": auto})
}

func buildVideoData(url, videoID string, meta transcript.Metadata, segs []transcript.Segment, lang string, auto bool) *VideoData {
	segments := make([]TranscriptSegment, 0, len(segs))
	var formatted []byte
	nextMark := 0.0
	var keyTimestamps []KeyTimestamp
	var length float64

	for _, s := range segs {
		segments = append(segments, TranscriptSegment{Text: s.Text, Start: s.Start, Duration: s.Duration})
		line := fmt.Sprintf("[%s] %s\n", utils.FormatTimestamp(s.Start), s.Text)
		formatted = append(formatted, line...)
		if end := s.Start + s.Duration; end > length {
			length = end
		}
		if s.Start >= nextMark && len(keyTimestamps) < maxKeyTimestamps {
			keyTimestamps = append(keyTimestamps, KeyTimestamp{
				Time: utils.FormatTimestamp(s.Start),
				Text: utils.Truncate(s.Text, 80),
			})
			nextMark = s.Start + keyTimestampInterval
		}
	}

	return &VideoData{
		VideoID:       videoID,
		URL:           url,
		Title:         meta.Title,
		Author:        meta.Author,
		Thumbnail:     meta.Thumbnail,
		LengthSeconds: length,
		Segments:      segments,
		Transcript:    string(formatted),
		Language:      lang,
		AutoGenerated: auto,
		KeyTimestamps: keyTimestamps,
	}
}
