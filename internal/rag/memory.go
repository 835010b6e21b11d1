package rag

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/blevesearch/bleve"
)

// Embedder produces dense vectors for chunk and query text. Optional; when nil
// the memory index falls back to BM25 only.
type Embedder interface {
	EmbedMany(ctx context.Context, texts []string) ([][]float32, error)
	EmbedOne(ctx context.Context, text string) ([]float32, error)
}

type memoryChunk struct {
	Text      string `json:"text"`
	Index     int    `json:"index"`
	Timestamp string `json:"timestamp"`
	vec       []float32
}

type videoIndex struct {
	bleve  bleve.Index
	chunks map[string]*memoryChunk
}

// MemoryIndex keeps transcript chunks in process memory, searchable through a
// bleve full-text index plus in-memory cosine vectors when an embedder is
// available. Suited for single-node deployments and tests.
type MemoryIndex struct {
	mu        sync.RWMutex
	videos    map[string]*videoIndex
	embedder  Embedder
	chunkSize int
	overlap   int
}

func NewMemoryIndex(embedder Embedder, chunkSize, overlap int) *MemoryIndex {
	if chunkSize <= 0 {
		chunkSize = 1000
	}
	if overlap < 0 || overlap >= chunkSize {
		overlap = 200
	}
	return &MemoryIndex{
		videos:    make(map[string]*videoIndex),
		embedder:  embedder,
		chunkSize: chunkSize,
		overlap:   overlap,
	}
}

func (m *MemoryIndex) Index(ctx context.Context, videoID string, transcript string, meta map[string]string) error {
	parts := SplitText(transcript, m.chunkSize, m.overlap)
	if len(parts) == 0 {
		return fmt.Errorf("indexing %s: empty transcript", videoID)
	}

	idx, err := bleve.NewMemOnly(bleve.NewIndexMapping())
	if err != nil {
		return fmt.Errorf("creating index for %s: %w", videoID, err)
	}
	vi := &videoIndex{bleve: idx, chunks: make(map[string]*memoryChunk, len(parts))}

	var vecs [][]float32
	if m.embedder != nil {
		vecs, err = m.embedder.EmbedMany(ctx, parts)
		if err != nil {
			// Degrade to text-only search rather than refusing to index.
			vecs = nil
		}
	}

	for i, text := range parts {
		id := fmt.Sprintf("%s_%d", videoID, i)
		c := &memoryChunk{Text: text, Index: i, Timestamp: ExtractTimestamp(text)}
		if i < len(vecs) {
			c.vec = vecs[i]
		}
		if err := idx.Index(id, c); err != nil {
			return fmt.Errorf("indexing chunk %d of %s: %w", i, videoID, err)
		}
		vi.chunks[id] = c
	}

	m.mu.Lock()
	if old, ok := m.videos[videoID]; ok {
		old.bleve.Close()
	}
	m.videos[videoID] = vi
	m.mu.Unlock()
	return nil
}

func (m *MemoryIndex) Query(ctx context.Context, videoID string, text string, k int, threshold float64) ([]Retrieved, error) {
	// Held for the whole search: Index closes the previous bleve index when
	// re-indexing a video, and a released lock would let the search hit it.
	m.mu.RLock()
	defer m.mu.RUnlock()
	vi, ok := m.videos[videoID]
	if !ok {
		return nil, ErrNotIndexed
	}
	if k <= 0 {
		k = 5
	}

	var scored []Retrieved
	if m.embedder != nil && hasVectors(vi) {
		qv, err := m.embedder.EmbedOne(ctx, text)
		if err == nil && len(qv) > 0 {
			scored = vectorSearch(vi, qv)
		}
	}
	if scored == nil {
		var err error
		scored, err = bm25Search(vi, text, k)
		if err != nil {
			return nil, fmt.Errorf("searching %s: %w", videoID, err)
		}
	}

	sort.Slice(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })
	var out []Retrieved
	for _, r := range scored {
		if r.Score < threshold {
			continue
		}
		out = append(out, r)
		if len(out) >= k {
			break
		}
	}
	return out, nil
}

func (m *MemoryIndex) Has(ctx context.Context, videoID string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.videos[videoID]
	return ok, nil
}

func (m *MemoryIndex) Delete(ctx context.Context, videoID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if vi, ok := m.videos[videoID]; ok {
		vi.bleve.Close()
		delete(m.videos, videoID)
	}
	return nil
}

func hasVectors(vi *videoIndex) bool {
	for _, c := range vi.chunks {
		return c.vec != nil
	}
	return false
}

func vectorSearch(vi *videoIndex, q []float32) []Retrieved {
	var out []Retrieved
	for _, c := range vi.chunks {
		out = append(out, Retrieved{
			Text:       c.Text,
			ChunkIndex: c.Index,
			Score:      clampScore(cosine(q, c.vec)),
			Timestamp:  c.Timestamp,
		})
	}
	return out
}

func bm25Search(vi *videoIndex, text string, k int) ([]Retrieved, error) {
	query := bleve.NewQueryStringQuery(text)
	req := bleve.NewSearchRequestOptions(query, k*3, 0, false)
	res, err := vi.bleve.Search(req)
	if err != nil {
		return nil, err
	}
	var out []Retrieved
	for _, hit := range res.Hits {
		c, ok := vi.chunks[hit.ID]
		if !ok {
			continue
		}
		out = append(out, Retrieved{
			Text:       c.Text,
			ChunkIndex: c.Index,
			Score:      hit.Score / (hit.Score + 1), // squash unbounded BM25 into [0,1)
			Timestamp:  c.Timestamp,
		})
	}
	return out, nil
}

func cosine(a, b []float32) float64 {
	var dot, na, nb float64
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		ai := float64(a[i])
		bi := float64(b[i])
		dot += ai * bi
		na += ai * ai
		nb += bi * bi
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
