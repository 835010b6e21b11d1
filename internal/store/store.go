package store

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"
)

type Store struct {
	DB *sql.DB
}

// DefaultEmbeddingDimensions indicates the expected length of semantic vectors stored in pgvector columns.
const DefaultEmbeddingDimensions = 1536

// NewWithDSN constructs the Store using an explicit Postgres DSN
func NewWithDSN(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}
	return &Store{DB: db}, nil
}

// SummaryRecord is one persisted summarization result. Envelope holds the full
// result JSON as returned to clients; video_id and mode are denormalized for
// lookups.
type SummaryRecord struct {
	ID        string
	VideoID   string
	Mode      string
	Title     string
	Envelope  []byte
	CreatedAt time.Time
}

func (s *Store) SaveSummary(ctx context.Context, rec SummaryRecord) error {
	if rec.ID == "" {
		return fmt.Errorf("summary id required")
	}
	if rec.VideoID == "" {
		return fmt.Errorf("video_id required")
	}
	_, err := s.DB.ExecContext(ctx, `
INSERT INTO summaries (id, video_id, mode, title, envelope, created_at)
VALUES ($1,$2,$3,$4,$5,NOW())
ON CONFLICT (video_id, mode) DO UPDATE SET
  id = EXCLUDED.id,
  title = EXCLUDED.title,
  envelope = EXCLUDED.envelope,
  created_at = NOW();
`, rec.ID, rec.VideoID, rec.Mode, rec.Title, rec.Envelope)
	if err != nil {
		return fmt.Errorf("saving summary %s: %w", rec.ID, err)
	}
	return nil
}

func (s *Store) GetSummary(ctx context.Context, id string) (SummaryRecord, error) {
	var rec SummaryRecord
	err := s.DB.QueryRowContext(ctx, `
SELECT id, video_id, mode, title, envelope, created_at FROM summaries WHERE id=$1
`, id).Scan(&rec.ID, &rec.VideoID, &rec.Mode, &rec.Title, &rec.Envelope, &rec.CreatedAt)
	if err != nil {
		return SummaryRecord{}, err
	}
	return rec, nil
}

// ListSummaries returns the newest summaries, optionally filtered by video.
func (s *Store) ListSummaries(ctx context.Context, videoID string, limit int) ([]SummaryRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.DB.QueryContext(ctx, `
SELECT id, video_id, mode, title, envelope, created_at
FROM summaries
WHERE ($1 = '' OR video_id = $1)
ORDER BY created_at DESC
LIMIT $2
`, videoID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []SummaryRecord
	for rows.Next() {
		var rec SummaryRecord
		if err := rows.Scan(&rec.ID, &rec.VideoID, &rec.Mode, &rec.Title, &rec.Envelope, &rec.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// PruneSummaries deletes summaries older than the retention window and returns
// how many were removed.
func (s *Store) PruneSummaries(ctx context.Context, olderThan time.Duration) (int64, error) {
	res, err := s.DB.ExecContext(ctx, `
DELETE FROM summaries WHERE created_at < NOW() - $1::interval
`, fmt.Sprintf("%d seconds", int(olderThan.Seconds())))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// PruneOrphanChunks removes transcript chunks whose video no longer has any
// stored summary.
func (s *Store) PruneOrphanChunks(ctx context.Context) (int64, error) {
	res, err := s.DB.ExecContext(ctx, `
DELETE FROM transcript_chunks WHERE video_id NOT IN (SELECT DISTINCT video_id FROM summaries)
`)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// TranscriptChunkRecord is one transcript chunk with its embedding vector.
type TranscriptChunkRecord struct {
	VideoID    string
	ChunkIndex int
	Text       string
	Timestamp  string
	Vector     []float32
}

// ScoredChunk is a search hit; Distance is the pgvector cosine distance.
type ScoredChunk struct {
	ChunkIndex int
	Text       string
	Timestamp  string
	Distance   float64
}

// ReplaceTranscriptChunks swaps the indexed chunks for a video inside one
// transaction.
func (s *Store) ReplaceTranscriptChunks(ctx context.Context, videoID string, chunks []TranscriptChunkRecord) error {
	if videoID == "" {
		return fmt.Errorf("video_id required")
	}
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if _, err := tx.ExecContext(ctx, `DELETE FROM transcript_chunks WHERE video_id=$1`, videoID); err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO transcript_chunks (video_id, chunk_index, text, ts, embedding, created_at)
VALUES ($1,$2,$3,$4,$5::vector,NOW());
`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, c := range chunks {
		if len(c.Vector) == 0 {
			return fmt.Errorf("embedding vector required for chunk %d", c.ChunkIndex)
		}
		vectorLiteral, err := encodeVectorLiteral(c.Vector)
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx, videoID, c.ChunkIndex, c.Text, c.Timestamp, vectorLiteral); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// SearchTranscriptChunks returns the closest chunks for the supplied vector.
func (s *Store) SearchTranscriptChunks(ctx context.Context, videoID string, vector []float32, topK int) ([]ScoredChunk, error) {
	if len(vector) == 0 {
		return nil, fmt.Errorf("vector must not be empty")
	}
	if topK <= 0 {
		topK = 5
	}
	vecLiteral, err := encodeVectorLiteral(vector)
	if err != nil {
		return nil, err
	}
	rows, err := s.DB.QueryContext(ctx, `
SELECT chunk_index, text, ts, embedding <=> $1::vector AS distance
FROM transcript_chunks
WHERE video_id = $2
ORDER BY embedding <=> $1::vector
LIMIT $3
`, vecLiteral, videoID, topK)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var results []ScoredChunk
	for rows.Next() {
		var c ScoredChunk
		if err := rows.Scan(&c.ChunkIndex, &c.Text, &c.Timestamp, &c.Distance); err != nil {
			return nil, err
		}
		results = append(results, c)
	}
	return results, rows.Err()
}

func (s *Store) HasTranscriptChunks(ctx context.Context, videoID string) (bool, error) {
	var n int
	err := s.DB.QueryRowContext(ctx, `SELECT COUNT(1) FROM transcript_chunks WHERE video_id=$1`, videoID).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *Store) DeleteTranscriptChunks(ctx context.Context, videoID string) error {
	_, err := s.DB.ExecContext(ctx, `DELETE FROM transcript_chunks WHERE video_id=$1`, videoID)
	return err
}

func encodeVectorLiteral(vec []float32) (string, error) {
	if len(vec) == 0 {
		return "", fmt.Errorf("vector must not be empty")
	}
	var builder strings.Builder
	builder.WriteByte('[')
	for i, f := range vec {
		if i > 0 {
			builder.WriteByte(',')
		}
		builder.WriteString(strconv.FormatFloat(float64(f), 'f', -1, 32))
	}
	builder.WriteByte(']')
	return builder.String(), nil
}
