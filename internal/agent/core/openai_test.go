package core

import (
	"testing"

	"github.com/mohammad-safakhou/vidsum/config"
)

func TestWithAPIKeyOverride(t *testing.T) {
	p := NewOpenAIProvider(config.LLMProvider{APIKey: "sk-configured"})

	over := p.WithAPIKey("sk-request")
	if got := over.apiKey(); got != "sk-request" {
		t.Fatalf("override provider key = %q, want sk-request", got)
	}
	if got := p.apiKey(); got != "sk-configured" {
		t.Fatalf("override must not mutate the base provider, key = %q", got)
	}
	if p.WithAPIKey("") != p {
		t.Fatalf("empty key must return the provider unchanged")
	}
}
