package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/mohammad-safakhou/vidsum/config"
	core "github.com/mohammad-safakhou/vidsum/internal/agent/core"
	"github.com/mohammad-safakhou/vidsum/internal/rag"
	srv "github.com/mohammad-safakhou/vidsum/internal/server"
	"github.com/mohammad-safakhou/vidsum/tools/embedding"
	"github.com/mohammad-safakhou/vidsum/tools/transcript"
)

func main() {
	var root = &cobra.Command{Use: "vidsum"}

	root.AddCommand(serveCMD(), migrateCMD(), summarizeCMD(), askCMD())
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCMD() *cobra.Command {
	var serveAddr string
	var cfgPath string
	var serve = &cobra.Command{
		Use:   "serve",
		Short: "Run HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if serveAddr == "" {
				serveAddr = os.Getenv("VIDSUM_HTTP_ADDR")
			}
			return srv.Run(cfgPath, serveAddr)
		},
	}
	serve.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config)")
	serve.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "config file (default is .)")
	return serve
}

func migrateCMD() *cobra.Command {
	var migDir string
	var migDirDefault = "file://migrations"
	var direction string
	var steps int
	var cfgPath string

	var migrate = &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.LoadConfig(cfgPath)
			if migDir == "" {
				migDir = migDirDefault
			}
			return srv.Migrate(migDir, cfg.Storage.Postgres.DSN(), direction, steps)
		},
	}
	migrate.Flags().StringVar(&migDir, "dir", migDirDefault, "migrations source (file://migrations)")
	migrate.Flags().StringVar(&direction, "direction", "up", "up or down")
	migrate.Flags().IntVar(&steps, "steps", 0, "number of steps (0 = all)")
	migrate.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "config file (default is .)")
	return migrate
}

// summarizeCMD runs the pipeline once for a URL and prints the envelope.
// Runs without Redis or Postgres: no caching, no persistence, and question
// answering uses an in-memory index.
func summarizeCMD() *cobra.Command {
	var cfgPath string
	var mode string
	var apiKey string
	var factCheck, research, citations bool

	var summarize = &cobra.Command{
		Use:   "summarize <video-url>",
		Short: "Summarize one video and print the result JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.LoadConfig(cfgPath)
			m, err := core.ParseMode(mode)
			if err != nil {
				return err
			}
			orch, err := buildLocalOrchestrator(cfg)
			if err != nil {
				return err
			}
			flags := core.FeatureFlags{FactChecking: factCheck, WebResearch: research, Citations: citations}
			env, err := orch.Process(context.Background(), args[0], m, flags, apiKey, func(e core.StageEvent) {
				fmt.Fprintf(os.Stderr, "%-10s %s\n", e.Stage, e.Status)
			})
			if err != nil {
				return err
			}
			out, err := json.MarshalIndent(env, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(out))
			if !env.Success {
				return fmt.Errorf("summarization failed: %s", env.Error)
			}
			return nil
		},
	}
	summarize.Flags().StringVar(&mode, "mode", "standard", "quick, standard, research, or educational")
	summarize.Flags().BoolVar(&factCheck, "fact-check", false, "verify claims against web sources")
	summarize.Flags().BoolVar(&research, "research", false, "enrich the summary with web research")
	summarize.Flags().BoolVar(&citations, "citations", false, "add timestamp citations")
	summarize.Flags().StringVar(&apiKey, "api-key", "", "LLM API key override for this run")
	summarize.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "config file (default is .)")
	return summarize
}

// askCMD summarizes a video locally and then answers one question over the
// indexed transcript.
func askCMD() *cobra.Command {
	var cfgPath string

	var ask = &cobra.Command{
		Use:   "ask <video-url> <question>",
		Short: "Answer a question about a video transcript",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.LoadConfig(cfgPath)
			orch, err := buildLocalOrchestrator(cfg)
			if err != nil {
				return err
			}
			ctx := context.Background()
			env, err := orch.Process(ctx, args[0], core.ModeQuick, core.FeatureFlags{}, "", nil)
			if err != nil {
				return err
			}
			if !env.Success {
				return fmt.Errorf("summarization failed: %s", env.Error)
			}
			ans, err := orch.Answer(ctx, env.VideoID, args[1], nil)
			if err != nil {
				return err
			}
			out, err := json.MarshalIndent(ans, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(out))
			return nil
		},
	}
	ask.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "config file (default is .)")
	return ask
}

func buildLocalOrchestrator(cfg *config.Config) (*core.Orchestrator, error) {
	llm, err := core.NewLLMProvider(cfg.LLM)
	if err != nil {
		return nil, err
	}
	logger := log.New(os.Stderr, "[VIDSUM] ", log.LstdFlags)
	index := rag.NewMemoryIndex(embedding.NewEmbedding(llm), cfg.Summarizer.ChunkSize, cfg.Summarizer.ChunkOverlap)
	source := transcript.NewClient(cfg.Transcript.Languages, cfg.Transcript.Timeout)
	set, err := core.NewAgentSet(cfg, llm, source, nil, index, logger)
	if err != nil {
		return nil, err
	}
	return core.NewOrchestrator(cfg, core.OrchestratorDeps{
		Extractor:  set.Extractor,
		Summarizer: set.Summarizer,
		Research:   set.Research,
		FactCheck:  set.FactCheck,
		Citation:   set.Citation,
		QA:         set.QA,
		Index:      index,
		Logger:     logger,
	})
}
