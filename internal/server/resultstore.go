package server

import (
	"context"
	"encoding/json"
	"fmt"

	core "github.com/mohammad-safakhou/vidsum/internal/agent/core"
	"github.com/mohammad-safakhou/vidsum/internal/store"
)

// envelopeStore adapts the SQL store to the orchestrator's result sink.
// Failure envelopes are not persisted; they carry no reusable content.
type envelopeStore struct {
	store *store.Store
}

func (e *envelopeStore) SaveResult(ctx context.Context, env *core.ResultEnvelope) error {
	if env == nil || !env.Success {
		return nil
	}
	raw, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("encoding envelope %s: %w", env.SummaryID, err)
	}
	return e.store.SaveSummary(ctx, store.SummaryRecord{
		ID:       env.SummaryID,
		VideoID:  env.VideoID,
		Mode:     env.Mode,
		Title:    env.Title,
		Envelope: raw,
	})
}
