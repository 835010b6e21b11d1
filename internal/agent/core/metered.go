package core

import (
	"context"

	"github.com/mohammad-safakhou/vidsum/internal/agent/telemetry"
)

// MeteredProvider wraps an LLMProvider and records token usage and estimated
// spend for every generation call. Embedding calls pass through unrecorded
// because the embeddings endpoint does not report usage the same way.
type MeteredProvider struct {
	inner LLMProvider
	tel   *telemetry.Telemetry
}

func NewMeteredProvider(inner LLMProvider, tel *telemetry.Telemetry) *MeteredProvider {
	return &MeteredProvider{inner: inner, tel: tel}
}

func (m *MeteredProvider) Generate(ctx context.Context, prompt string, model string, options map[string]interface{}) (string, error) {
	out, _, _, err := m.GenerateWithTokens(ctx, prompt, model, options)
	return out, err
}

func (m *MeteredProvider) GenerateWithTokens(ctx context.Context, prompt string, model string, options map[string]interface{}) (string, int64, int64, error) {
	out, inTok, outTok, err := m.inner.GenerateWithTokens(ctx, prompt, model, options)
	if err != nil {
		return "", 0, 0, err
	}
	m.tel.RecordTokens(model, inTok, outTok, m.inner.CalculateCost(inTok, outTok, model))
	return out, inTok, outTok, nil
}

func (m *MeteredProvider) CreateEmbedding(ctx context.Context, texts []string) ([][]float32, error) {
	return m.inner.CreateEmbedding(ctx, texts)
}

func (m *MeteredProvider) GetModelInfo(model string) (ModelInfo, error) {
	return m.inner.GetModelInfo(model)
}

func (m *MeteredProvider) CalculateCost(inputTokens, outputTokens int64, model string) float64 {
	return m.inner.CalculateCost(inputTokens, outputTokens, model)
}
