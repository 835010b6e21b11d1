package server

import core "github.com/mohammad-safakhou/vidsum/internal/agent/core"

// HTTPError is a generic error envelope returned by the server.
type HTTPError struct {
	Error string `json:"error"`
}

// AuthSignupRequest represents the signup payload.
type AuthSignupRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthLoginRequest represents the login payload.
type AuthLoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// TokenResponse carries a bearer token.
type TokenResponse struct {
	Token string `json:"token"`
}

// SummarizeRequest starts a pipeline run for one video URL. APIKey overrides
// the configured LLM credential for this request only and is never stored.
type SummarizeRequest struct {
	URL      string            `json:"url"`
	Mode     string            `json:"mode"`
	Features core.FeatureFlags `json:"features"`
	APIKey   string            `json:"api_key"`
}

// QuestionRequest asks a question about an indexed video transcript.
type QuestionRequest struct {
	Question string        `json:"question"`
	History  []core.QATurn `json:"history,omitempty"`
}

// SummaryListItem is the compact listing view of a stored summary.
type SummaryListItem struct {
	ID        string `json:"id"`
	VideoID   string `json:"video_id"`
	Mode      string `json:"mode"`
	Title     string `json:"title"`
	CreatedAt string `json:"created_at"`
}

// ModeCapability describes what one mode runs with default feature flags.
type ModeCapability struct {
	Mode      string   `json:"mode"`
	Research  bool     `json:"research"`
	FactCheck bool     `json:"fact_check"`
	Citations bool     `json:"citations"`
	Agents    []string `json:"agents"`
}

// CapabilitiesResponse enumerates supported modes and their stage routing.
type CapabilitiesResponse struct {
	Modes []ModeCapability `json:"modes"`
}
