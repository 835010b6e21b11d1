package server

import (
	"database/sql"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/mohammad-safakhou/vidsum/config"
	core "github.com/mohammad-safakhou/vidsum/internal/agent/core"
	"github.com/mohammad-safakhou/vidsum/internal/cache"
	"github.com/mohammad-safakhou/vidsum/internal/rag"
	"github.com/mohammad-safakhou/vidsum/internal/runtime"
	"github.com/mohammad-safakhou/vidsum/internal/store"
	"github.com/mohammad-safakhou/vidsum/tools/transcript"
)

// SummariesHandler exposes the summarization pipeline and stored results.
type SummariesHandler struct {
	Cfg    *config.Config
	Store  *store.Store
	Cache  *cache.Cache
	Orch   *core.Orchestrator
	Index  rag.Index
	Logger *log.Logger
}

func (h *SummariesHandler) Register(g *echo.Group, secret []byte) {
	if len(secret) > 0 {
		g.Use(runtime.EchoAuthMiddleware(secret))
	}
	g.POST("/summaries", h.summarize)
	g.GET("/summaries", h.list)
	g.GET("/summaries/:id", h.get)
	g.POST("/videos/:video_id/questions", h.question)
	g.DELETE("/videos/:video_id", h.invalidate)
	g.GET("/capabilities", h.capabilities)
}

// summarize runs the full pipeline for one URL. With ?stream=true (and
// streaming enabled) stage events are sent as SSE before the final envelope.
func (h *SummariesHandler) summarize(c echo.Context) error {
	var req SummarizeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if strings.TrimSpace(req.URL) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "url required")
	}
	mode, err := core.ParseMode(req.Mode)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	stream := false
	if v := strings.TrimSpace(c.QueryParam("stream")); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			stream = b
		}
	}
	if stream && (h.Cfg == nil || h.Cfg.Server.StreamEnabled) {
		return h.summarizeStream(c, req, mode)
	}

	env, err := h.Orch.Process(c.Request().Context(), req.URL, mode, req.Features, req.APIKey, nil)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, env)
}

func (h *SummariesHandler) summarizeStream(c echo.Context, req SummarizeRequest, mode core.Mode) error {
	resp := c.Response()
	resp.Header().Set(echo.HeaderContentType, "text/event-stream")
	resp.Header().Set(echo.HeaderCacheControl, "no-cache")
	resp.Header().Set("Connection", "keep-alive")
	resp.WriteHeader(http.StatusOK)
	flusher, ok := resp.Writer.(http.Flusher)
	if !ok {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "streaming unsupported")
	}

	send := func(event string, payload interface{}) {
		data, err := json.Marshal(payload)
		if err != nil {
			return
		}
		if _, err := resp.Write([]byte("event: " + event + "\n")); err != nil {
			return
		}
		if _, err := resp.Write([]byte("data: " + string(data) + "\n\n")); err != nil {
			return
		}
		flusher.Flush()
	}

	env, err := h.Orch.Process(c.Request().Context(), req.URL, mode, req.Features, req.APIKey, func(e core.StageEvent) {
		send("stage", e)
	})
	if err != nil {
		send("error", map[string]string{"error": err.Error()})
		return nil
	}
	send("result", env)
	return nil
}

// list returns stored summaries, newest first, optionally filtered by video.
func (h *SummariesHandler) list(c echo.Context) error {
	limit := 0
	if v := strings.TrimSpace(c.QueryParam("limit")); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}
	recs, err := h.Store.ListSummaries(c.Request().Context(), strings.TrimSpace(c.QueryParam("video_id")), limit)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	items := make([]SummaryListItem, 0, len(recs))
	for _, r := range recs {
		items = append(items, SummaryListItem{
			ID:        r.ID,
			VideoID:   r.VideoID,
			Mode:      r.Mode,
			Title:     r.Title,
			CreatedAt: r.CreatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
		})
	}
	return c.JSON(http.StatusOK, items)
}

// get returns the full stored envelope for one summary id.
func (h *SummariesHandler) get(c echo.Context) error {
	rec, err := h.Store.GetSummary(c.Request().Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return echo.NewHTTPError(http.StatusNotFound, "summary not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	var env core.ResultEnvelope
	if err := json.Unmarshal(rec.Envelope, &env); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, env)
}

// question answers one question over an indexed transcript.
func (h *SummariesHandler) question(c echo.Context) error {
	videoID := c.Param("video_id")
	var req QuestionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	ans, err := h.Orch.Answer(c.Request().Context(), videoID, req.Question, req.History)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, ans)
}

// invalidate drops cached summaries, the cached transcript, and the chunk
// index for one video.
func (h *SummariesHandler) invalidate(c echo.Context) error {
	videoID := c.Param("video_id")
	if _, err := transcript.ExtractVideoID("https://www.youtube.com/watch?v=" + videoID); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid video id")
	}
	ctx := c.Request().Context()
	h.Cache.InvalidateVideo(ctx, videoID)
	if h.Index != nil {
		if err := h.Index.Delete(ctx, videoID); err != nil {
			h.Logger.Printf("WARN dropping index for %s: %v", videoID, err)
		}
	}
	return c.NoContent(http.StatusNoContent)
}

// capabilities reports the stage routing per mode with default feature flags.
func (h *SummariesHandler) capabilities(c echo.Context) error {
	routing := core.ModeRouting()
	resp := CapabilitiesResponse{Modes: make([]ModeCapability, 0, len(routing))}
	for _, mode := range []core.Mode{core.ModeQuick, core.ModeStandard, core.ModeResearch, core.ModeEducational} {
		route, ok := routing[mode]
		if !ok {
			continue
		}
		var flags core.FeatureFlags
		resp.Modes = append(resp.Modes, ModeCapability{
			Mode:      string(mode),
			Research:  route.RunsResearch(flags),
			FactCheck: route.RunsFactCheck(flags),
			Citations: route.RunsCitation(flags),
			Agents:    route.Agents(flags),
		})
	}
	return c.JSON(http.StatusOK, resp)
}
