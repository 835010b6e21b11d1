package rag

import (
	"context"
	"errors"
	"regexp"
)

// ErrNotIndexed is returned by Query when the video has never been indexed.
var ErrNotIndexed = errors.New("video not indexed")

// Retrieved is one transcript chunk that passed the relevance gate.
type Retrieved struct {
	Text       string  `json:"text"`
	ChunkIndex int     `json:"chunk_index"`
	Score      float64 `json:"score"`
	Timestamp  string  `json:"timestamp,omitempty"`
}

// Index stores transcript chunks per video and retrieves the ones relevant to
// a question. Scores are normalized to [0,1]; only chunks at or above the
// threshold are returned.
type Index interface {
	Index(ctx context.Context, videoID string, transcript string, meta map[string]string) error
	Query(ctx context.Context, videoID string, text string, k int, threshold float64) ([]Retrieved, error)
	Has(ctx context.Context, videoID string) (bool, error)
	Delete(ctx context.Context, videoID string) error
}

var timestampPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\[(\d{1,2}:\d{2}:\d{2})\]`),
	regexp.MustCompile(`\[(\d{1,2}:\d{2})\]`),
	regexp.MustCompile(`\b(\d{1,2}:\d{2})\b`),
}

// ExtractTimestamp returns the first timestamp tag found in the text, bracketed
// forms first, then a bare MM:SS. Empty string when there is none.
func ExtractTimestamp(text string) string {
	for _, p := range timestampPatterns {
		if m := p.FindStringSubmatch(text); len(m) == 2 {
			return m[1]
		}
	}
	return ""
}

func clampScore(s float64) float64 {
	if s < 0 {
		return 0
	}
	if s > 1 {
		return 1
	}
	return s
}
