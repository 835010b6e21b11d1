package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
)

func TestCapabilitiesEndpoint(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/capabilities", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	h := &SummariesHandler{}
	if err := h.capabilities(c); err != nil {
		t.Fatalf("capabilities: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp CapabilitiesResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Modes) != 4 {
		t.Fatalf("expected 4 modes, got %d", len(resp.Modes))
	}
	byMode := map[string]ModeCapability{}
	for _, m := range resp.Modes {
		byMode[m.Mode] = m
	}
	if byMode["quick"].Citations {
		t.Fatalf("quick mode must not cite by default")
	}
	if !byMode["standard"].Citations {
		t.Fatalf("standard mode must cite by default")
	}
	r := byMode["research"]
	if !r.Research || !r.FactCheck || !r.Citations {
		t.Fatalf("research mode must run every optional stage: %+v", r)
	}
	if got := len(r.Agents); got != 6 {
		t.Fatalf("research mode agent list = %d stages, want 6", got)
	}
}

func TestSummarizeRejectsBadRequests(t *testing.T) {
	e := echo.New()
	h := &SummariesHandler{}

	req := httptest.NewRequest(http.MethodPost, "/api/summaries", strings.NewReader(`{"url":""}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	err := h.summarize(e.NewContext(req, rec))
	if he, ok := err.(*echo.HTTPError); !ok || he.Code != http.StatusBadRequest {
		t.Fatalf("missing url should 400, got %v", err)
	}

	body := `{"url":"https://www.youtube.com/watch?v=abc123def45","mode":"turbo"}`
	req = httptest.NewRequest(http.MethodPost, "/api/summaries", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec = httptest.NewRecorder()
	err = h.summarize(e.NewContext(req, rec))
	if he, ok := err.(*echo.HTTPError); !ok || he.Code != http.StatusBadRequest {
		t.Fatalf("unknown mode should 400, got %v", err)
	}
}
