package server

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mohammad-safakhou/vidsum/config"
	core "github.com/mohammad-safakhou/vidsum/internal/agent/core"
	"github.com/mohammad-safakhou/vidsum/internal/agent/telemetry"
	"github.com/mohammad-safakhou/vidsum/internal/cache"
	"github.com/mohammad-safakhou/vidsum/internal/rag"
	"github.com/mohammad-safakhou/vidsum/internal/runtime"
	"github.com/mohammad-safakhou/vidsum/internal/store"
	"github.com/mohammad-safakhou/vidsum/tools/embedding"
	"github.com/mohammad-safakhou/vidsum/tools/transcript"
)

// Run wires every dependency and serves the HTTP API until the listener
// stops.
func Run(cfgPath, addr string) error {
	cfg := config.LoadConfig(cfgPath)

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	baseLogger := log.New(log.Writer(), "[HTTP] ", log.LstdFlags)
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		code := http.StatusInternalServerError
		msg := err.Error()
		if he, ok := err.(*echo.HTTPError); ok {
			code = he.Code
			if he.Message != nil {
				msg = fmt.Sprint(he.Message)
			}
		}
		req := c.Request()
		baseLogger.Printf("%d %s %s from %s: %v", code, req.Method, req.URL.Path, c.RealIP(), err)
		if !c.Response().Committed {
			_ = c.JSON(code, HTTPError{Error: msg})
		}
	}
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "Cookie", "Authorization"},
		AllowCredentials: true,
	}))

	e.GET("/healthz", func(c echo.Context) error { return c.String(200, "ok") })
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	dsn := cfg.Storage.Postgres.DSN()
	if err := Migrate("file://migrations", dsn, "up", 0); err != nil {
		return fmt.Errorf("applying migrations: %w", err)
	}

	ctx := context.Background()
	st, err := store.NewWithDSN(ctx, dsn)
	if err != nil {
		return fmt.Errorf("connecting to postgres: %w", err)
	}

	cacheLogger := log.New(log.Writer(), "[CACHE] ", log.LstdFlags)
	cch, err := cache.New(ctx, cfg.Storage.Redis, cfg.Storage.Cache, cacheLogger)
	if err != nil {
		return err
	}

	orchLogger := log.New(log.Writer(), "[ORCH] ", log.LstdFlags)
	tel := telemetry.New(cfg.Telemetry, orchLogger)

	llm, err := core.NewLLMProvider(cfg.LLM)
	if err != nil {
		return err
	}
	llm = core.NewMeteredProvider(llm, tel)
	index, err := rag.NewPGVectorIndex(st, embedding.NewEmbedding(llm), cfg.Summarizer.ChunkSize, cfg.Summarizer.ChunkOverlap)
	if err != nil {
		return err
	}
	source := transcript.NewClient(cfg.Transcript.Languages, cfg.Transcript.Timeout)

	set, err := core.NewAgentSet(cfg, llm, source, cch, index, orchLogger)
	if err != nil {
		return err
	}
	orch, err := core.NewOrchestrator(cfg, core.OrchestratorDeps{
		Extractor:  set.Extractor,
		Summarizer: set.Summarizer,
		Research:   set.Research,
		FactCheck:  set.FactCheck,
		Citation:   set.Citation,
		QA:         set.QA,
		Cache:      cch,
		Index:      index,
		Store:      &envelopeStore{store: st},
		Telemetry:  tel,
		Logger:     orchLogger,
	})
	if err != nil {
		return err
	}

	var secret []byte
	if cfg.Server.AuthRequired {
		secret, err = runtime.LoadJWTSecret(cfg)
		if err != nil {
			return err
		}
	}

	api := e.Group("/api")
	if len(secret) > 0 {
		auth := &AuthHandler{Store: st, Secret: secret}
		auth.Register(api.Group("/auth"))
	}

	sh := &SummariesHandler{
		Cfg:    cfg,
		Store:  st,
		Cache:  cch,
		Orch:   orch,
		Index:  index,
		Logger: log.New(log.Writer(), "[API] ", log.LstdFlags),
	}
	sh.Register(api, secret)

	sched := &Scheduler{Store: st, Cache: cch, Cron: cfg.Server.PruneCron, Stop: make(chan struct{})}
	sched.Start()

	if addr == "" {
		addr = cfg.Server.Address
	}
	log.Printf("listening on %s", addr)
	return e.Start(addr)
}
