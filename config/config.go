package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the summarization service
type Config struct {
	General    GeneralConfig    `mapstructure:"general"`
	Server     ServerConfig     `mapstructure:"server"`
	LLM        LLMConfig        `mapstructure:"llm"`
	Summarizer SummarizerConfig `mapstructure:"summarizer"`
	Research   ResearchConfig   `mapstructure:"research"`
	RAG        RAGConfig        `mapstructure:"rag"`
	Transcript TranscriptConfig `mapstructure:"transcript"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Telemetry  TelemetryConfig  `mapstructure:"telemetry"`
}

// GeneralConfig contains general application settings
type GeneralConfig struct {
	Debug             bool          `mapstructure:"debug"`
	LogLevel          string        `mapstructure:"log_level"`
	MaxProcessingTime time.Duration `mapstructure:"max_processing_time"`
	DefaultTimeout    time.Duration `mapstructure:"default_timeout"`
}

// ServerConfig contains HTTP server and auth settings
type ServerConfig struct {
	Address       string `mapstructure:"address"`
	JWTSecret     string `mapstructure:"jwt_secret"`
	AuthRequired  bool   `mapstructure:"auth_required"`
	StreamEnabled bool   `mapstructure:"stream_enabled"`
	PruneCron     string `mapstructure:"prune_cron"`
}

// LLMConfig contains LLM provider configurations
type LLMConfig struct {
	Providers map[string]LLMProvider `mapstructure:"providers"`
	Routing   LLMRoutingConfig       `mapstructure:"routing"`
}

// LLMProvider represents a single LLM provider configuration
type LLMProvider struct {
	Type    string              `mapstructure:"type"` // openai, anthropic
	APIKey  string              `mapstructure:"api_key"`
	BaseURL string              `mapstructure:"base_url"`
	Models  map[string]LLMModel `mapstructure:"models"`
	Timeout time.Duration       `mapstructure:"timeout"`
}

// LLMModel represents a specific model configuration
type LLMModel struct {
	Name            string  `mapstructure:"name"`
	APIName         string  `mapstructure:"api_name"`
	MaxTokens       int     `mapstructure:"max_tokens"`
	Temperature     float64 `mapstructure:"temperature"`
	CostPer1K       float64 `mapstructure:"cost_per_1k_input"`
	CostPer1KOutput float64 `mapstructure:"cost_per_1k_output"`
}

// LLMRoutingConfig defines which model to use for different stages
type LLMRoutingConfig struct {
	Summarize string `mapstructure:"summarize"`
	Research  string `mapstructure:"research"`
	FactCheck string `mapstructure:"fact_check"`
	Citation  string `mapstructure:"citation"`
	QA        string `mapstructure:"qa"`
	Embedding string `mapstructure:"embedding"`
	Fallback  string `mapstructure:"fallback"`
}

// ModelFor resolves the configured model key for a stage, falling back to the
// routing fallback when the stage has no explicit entry.
func (r LLMRoutingConfig) ModelFor(stage string) string {
	var m string
	switch stage {
	case "summarize":
		m = r.Summarize
	case "research":
		m = r.Research
	case "fact_check":
		m = r.FactCheck
	case "citation":
		m = r.Citation
	case "qa":
		m = r.QA
	case "embedding":
		m = r.Embedding
	}
	if m == "" {
		m = r.Fallback
	}
	return m
}

// SummarizerConfig controls chunking and per-mode input limits
type SummarizerConfig struct {
	ChunkSize      int `mapstructure:"chunk_size"`
	ChunkOverlap   int `mapstructure:"chunk_overlap"`
	ChunkThreshold int `mapstructure:"chunk_threshold"` // transcripts above this length get chunked
	QuickLimit     int `mapstructure:"quick_limit"`     // transcript chars fed to quick mode
	StandardLimit  int `mapstructure:"standard_limit"`  // transcript chars fed to standard mode
}

// Normalize applies defaults for unset summarizer values.
func (c SummarizerConfig) Normalize() SummarizerConfig {
	if c.ChunkSize <= 0 {
		c.ChunkSize = 1000
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		c.ChunkOverlap = 200
	}
	if c.ChunkThreshold <= 0 {
		c.ChunkThreshold = 10000
	}
	if c.QuickLimit <= 0 {
		c.QuickLimit = 4000
	}
	if c.StandardLimit <= 0 {
		c.StandardLimit = 8000
	}
	return c
}

// ResearchConfig contains web search and page fetch settings
type ResearchConfig struct {
	Provider     string        `mapstructure:"provider"` // brave or serper; empty disables search
	BraveAPIKey  string        `mapstructure:"brave_api_key"`
	SerperAPIKey string        `mapstructure:"serper_api_key"`
	MaxResults   int           `mapstructure:"max_results"`
	Timeout      time.Duration `mapstructure:"timeout"`
	FetchContent bool          `mapstructure:"fetch_content"` // render the top source with a headless browser
	FetchTimeout time.Duration `mapstructure:"fetch_timeout"`
	MaxFetchSize int           `mapstructure:"max_fetch_size"`
}

// Normalize applies defaults for unset research values.
func (c ResearchConfig) Normalize() ResearchConfig {
	if c.MaxResults <= 0 {
		c.MaxResults = 5
	}
	if c.Timeout <= 0 {
		c.Timeout = 15 * time.Second
	}
	if c.FetchTimeout <= 0 {
		c.FetchTimeout = 20 * time.Second
	}
	if c.MaxFetchSize <= 0 {
		c.MaxFetchSize = 8000
	}
	return c
}

// RAGConfig controls transcript retrieval for question answering
type RAGConfig struct {
	TopK                int     `mapstructure:"top_k"`
	ScoreThreshold      float64 `mapstructure:"score_threshold"`
	EmbeddingDimensions int     `mapstructure:"embedding_dimensions"`
	HistoryTurns        int     `mapstructure:"history_turns"`
}

// Normalize applies defaults for unset RAG values.
func (c RAGConfig) Normalize() RAGConfig {
	if c.TopK <= 0 {
		c.TopK = 5
	}
	if c.ScoreThreshold <= 0 {
		c.ScoreThreshold = 0.3
	}
	if c.EmbeddingDimensions <= 0 {
		c.EmbeddingDimensions = 1536
	}
	if c.HistoryTurns <= 0 {
		c.HistoryTurns = 5
	}
	return c
}

// TranscriptConfig contains transcript fetching settings
type TranscriptConfig struct {
	Languages []string      `mapstructure:"languages"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

// Normalize applies defaults for unset transcript values.
func (c TranscriptConfig) Normalize() TranscriptConfig {
	if len(c.Languages) == 0 {
		c.Languages = []string{"en"}
	}
	if c.Timeout <= 0 {
		c.Timeout = 15 * time.Second
	}
	return c
}

// StorageConfig contains storage and persistence settings
type StorageConfig struct {
	Redis    RedisConfig    `mapstructure:"redis"`
	Postgres PostgresConfig `mapstructure:"postgres"`
	Cache    CacheConfig    `mapstructure:"cache"`
}

// RedisConfig contains Redis connection settings
type RedisConfig struct {
	Host     string        `mapstructure:"host"`
	Port     string        `mapstructure:"port"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

func (r RedisConfig) Validate() error {
	if strings.TrimSpace(r.Host) == "" {
		return fmt.Errorf("storage.redis.host required")
	}
	if strings.TrimSpace(r.Port) == "" {
		return fmt.Errorf("storage.redis.port required")
	}
	return nil
}

// PostgresConfig contains Postgres connection settings
type PostgresConfig struct {
	URL      string        `mapstructure:"url"`
	Host     string        `mapstructure:"host"`
	Port     string        `mapstructure:"port"`
	User     string        `mapstructure:"user"`
	Password string        `mapstructure:"password"`
	DBName   string        `mapstructure:"dbname"`
	SSLMode  string        `mapstructure:"sslmode"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

func (p PostgresConfig) Validate() error {
	if strings.TrimSpace(p.URL) != "" {
		return nil
	}
	if strings.TrimSpace(p.Host) == "" {
		return fmt.Errorf("storage.postgres.host required when url is not provided")
	}
	if strings.TrimSpace(p.Port) == "" {
		return fmt.Errorf("storage.postgres.port required when url is not provided")
	}
	if strings.TrimSpace(p.DBName) == "" {
		return fmt.Errorf("storage.postgres.dbname required when url is not provided")
	}
	return nil
}

// DSN builds a connection string from the configured fields.
func (p PostgresConfig) DSN() string {
	if p.URL != "" {
		return p.URL
	}
	port := p.Port
	if port == "" {
		port = "5432"
	}
	ssl := p.SSLMode
	if ssl == "" {
		ssl = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s", p.User, p.Password, p.Host, port, p.DBName, ssl)
}

// CacheConfig controls result/transcript caching
type CacheConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	SummaryTTL    time.Duration `mapstructure:"summary_ttl"`
	TranscriptTTL time.Duration `mapstructure:"transcript_ttl"`
}

// Normalize applies defaults for unset cache values.
func (c CacheConfig) Normalize() CacheConfig {
	if c.SummaryTTL <= 0 {
		c.SummaryTTL = time.Hour
	}
	if c.TranscriptTTL <= 0 {
		c.TranscriptTTL = 2 * time.Hour
	}
	return c
}

// TelemetryConfig contains telemetry and monitoring settings
type TelemetryConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	LogFile      string `mapstructure:"log_file"`
	CostTracking bool   `mapstructure:"cost_tracking"`
}

// LoadConfig loads config from file
func LoadConfig(path string) *Config {
	viper.SetConfigName("config")
	viper.SetConfigType("json")
	viper.SetDefault("server.address", ":8080")
	viper.SetDefault("server.stream_enabled", true)
	viper.SetDefault("server.prune_cron", "@daily")
	viper.SetDefault("rag.top_k", 5)
	viper.SetDefault("rag.score_threshold", 0.3)
	viper.SetDefault("storage.cache.enabled", true)

	if path == "" {
		viper.AddConfigPath("./config")
		viper.AddConfigPath(".")
		exe, _ := os.Executable()
		exeDir := filepath.Dir(exe)
		viper.AddConfigPath(exeDir)
		viper.AddConfigPath(filepath.Join(exeDir, ".."))
		viper.AddConfigPath(filepath.Join(exeDir, "..", "config"))
	} else {
		viper.SetConfigFile(path)
	}

	viper.SetEnvPrefix("VIDSUM")
	replacer := strings.NewReplacer(".", "_")
	viper.SetEnvKeyReplacer(replacer)
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		panic(fmt.Errorf("fatal error config file: %w", err))
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		panic(fmt.Errorf("fatal error config file: %w", err))
	}
	config.Summarizer = config.Summarizer.Normalize()
	config.Research = config.Research.Normalize()
	config.RAG = config.RAG.Normalize()
	config.Transcript = config.Transcript.Normalize()
	config.Storage.Cache = config.Storage.Cache.Normalize()

	if err := config.Storage.Redis.Validate(); err != nil {
		panic(err)
	}
	if err := config.Storage.Postgres.Validate(); err != nil {
		panic(err)
	}
	return &config
}
