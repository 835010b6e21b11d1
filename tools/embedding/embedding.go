package embedding

import "context"

// Provider is satisfied by any LLM backend that can produce embeddings.
type Provider interface {
	CreateEmbedding(ctx context.Context, texts []string) ([][]float32, error)
}

type Embedding struct {
	provider Provider
}

type EmbedVec struct {
	DocID string
	Vec   []float32
}

func NewEmbedding(provider Provider) *Embedding {
	return &Embedding{
		provider: provider,
	}
}

func (e Embedding) EmbedMany(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	vecs, err := e.provider.CreateEmbedding(ctx, texts)
	if err != nil {
		return nil, err
	}

	return vecs, nil
}

func (e Embedding) EmbedOne(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.EmbedMany(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vecs) == 0 {
		return nil, nil
	}
	return vecs[0], nil
}
