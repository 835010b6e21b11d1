package rag

import (
	"context"
	"fmt"

	"github.com/mohammad-safakhou/vidsum/internal/store"
)

// PGVectorIndex persists transcript chunks with their embeddings in Postgres
// and searches them with pgvector cosine distance. Score = 1 - distance,
// clamped to [0,1].
type PGVectorIndex struct {
	store     *store.Store
	embedder  Embedder
	chunkSize int
	overlap   int
}

func NewPGVectorIndex(st *store.Store, embedder Embedder, chunkSize, overlap int) (*PGVectorIndex, error) {
	if st == nil {
		return nil, fmt.Errorf("store required")
	}
	if embedder == nil {
		return nil, fmt.Errorf("embedder required")
	}
	if chunkSize <= 0 {
		chunkSize = 1000
	}
	if overlap < 0 || overlap >= chunkSize {
		overlap = 200
	}
	return &PGVectorIndex{store: st, embedder: embedder, chunkSize: chunkSize, overlap: overlap}, nil
}

func (p *PGVectorIndex) Index(ctx context.Context, videoID string, transcript string, meta map[string]string) error {
	parts := SplitText(transcript, p.chunkSize, p.overlap)
	if len(parts) == 0 {
		return fmt.Errorf("indexing %s: empty transcript", videoID)
	}
	vecs, err := p.embedder.EmbedMany(ctx, parts)
	if err != nil {
		return fmt.Errorf("embedding transcript for %s: %w", videoID, err)
	}
	if len(vecs) != len(parts) {
		return fmt.Errorf("embedding transcript for %s: got %d vectors for %d chunks", videoID, len(vecs), len(parts))
	}
	chunks := make([]store.TranscriptChunkRecord, 0, len(parts))
	for i, text := range parts {
		chunks = append(chunks, store.TranscriptChunkRecord{
			VideoID:    videoID,
			ChunkIndex: i,
			Text:       text,
			Timestamp:  ExtractTimestamp(text),
			Vector:     vecs[i],
		})
	}
	return p.store.ReplaceTranscriptChunks(ctx, videoID, chunks)
}

func (p *PGVectorIndex) Query(ctx context.Context, videoID string, text string, k int, threshold float64) ([]Retrieved, error) {
	ok, err := p.store.HasTranscriptChunks(ctx, videoID)
	if err != nil {
		return nil, fmt.Errorf("checking index for %s: %w", videoID, err)
	}
	if !ok {
		return nil, ErrNotIndexed
	}
	qv, err := p.embedder.EmbedOne(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}
	hits, err := p.store.SearchTranscriptChunks(ctx, videoID, qv, k)
	if err != nil {
		return nil, fmt.Errorf("searching %s: %w", videoID, err)
	}
	var out []Retrieved
	for _, h := range hits {
		score := clampScore(1 - h.Distance)
		if score < threshold {
			continue
		}
		out = append(out, Retrieved{
			Text:       h.Text,
			ChunkIndex: h.ChunkIndex,
			Score:      score,
			Timestamp:  h.Timestamp,
		})
	}
	return out, nil
}

func (p *PGVectorIndex) Has(ctx context.Context, videoID string) (bool, error) {
	return p.store.HasTranscriptChunks(ctx, videoID)
}

func (p *PGVectorIndex) Delete(ctx context.Context, videoID string) error {
	return p.store.DeleteTranscriptChunks(ctx, videoID)
}
