package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"kbchat/models"
)

// fakeAnswerer records calls and replays a canned response.
type fakeAnswerer struct {
	calls     int
	prompt    string
	sessionID string
	resp      *models.KBResponse
	err       error
}

func (f *fakeAnswerer) Answer(_ context.Context, prompt, sessionID string) (*models.KBResponse, error) {
	f.calls++
	f.prompt = prompt
	f.sessionID = sessionID
	if f.err != nil {
		return nil, f.err
	}
	return f.resp, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func setupKB(t *testing.T, answerer *fakeAnswerer) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	kc := NewKBController(answerer, nil, testLogger(), nil, nil)
	r := gin.New()
	r.POST("/kb", kc.HandleKB)
	return r
}

func postKB(t *testing.T, r *gin.Engine, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/kb", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHandleKBEmptyPrompt(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"missing prompt", `{}`},
		{"empty prompt", `{"prompt": ""}`},
		{"whitespace prompt", `{"prompt": "   "}`},
		{"malformed body", `{"prompt": `},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			answerer := &fakeAnswerer{}
			r := setupKB(t, answerer)

			w := postKB(t, r, tt.body)

			if w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
			}
			if answerer.calls != 0 {
				t.Errorf("answerer called %d times, want 0", answerer.calls)
			}
		})
	}
}

func TestHandleKBSuccess(t *testing.T) {
	answerer := &fakeAnswerer{
		resp: &models.KBResponse{
			Response: "Paris is the capital.",
			Citations: []models.Citation{
				{
					ID:      "doc-1",
					Source:  "docs/geo.txt",
					Content: "Paris is France's capital city.",
					Span:    &models.Span{Start: 0, End: 5},
				},
			},
			SessionID: "abc123",
		},
	}
	r := setupKB(t, answerer)

	w := postKB(t, r, `{"prompt": "What is the capital of France?"}`)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}

	var resp models.KBResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Response != "Paris is the capital." {
		t.Errorf("response = %q", resp.Response)
	}
	if resp.SessionID != "abc123" {
		t.Errorf("sessionId = %q, want abc123", resp.SessionID)
	}
	if len(resp.Citations) != 1 || resp.Citations[0].Source != "docs/geo.txt" {
		t.Errorf("citations = %+v", resp.Citations)
	}
	if resp.Citations[0].Span == nil || resp.Citations[0].Span.End != 5 {
		t.Errorf("span = %+v, want {0 5}", resp.Citations[0].Span)
	}
}

func TestHandleKBSessionPassthrough(t *testing.T) {
	answerer := &fakeAnswerer{
		resp: &models.KBResponse{Response: "ok", Citations: []models.Citation{}, SessionID: "abc123"},
	}
	r := setupKB(t, answerer)

	postKB(t, r, `{"prompt": "first"}`)
	if answerer.sessionID != "" {
		t.Errorf("first request sessionID = %q, want empty", answerer.sessionID)
	}

	postKB(t, r, `{"prompt": "second", "sessionId": "abc123"}`)
	if answerer.sessionID != "abc123" {
		t.Errorf("second request sessionID = %q, want abc123 passed through unchanged", answerer.sessionID)
	}
}

func TestCitationSourcesDeduplicates(t *testing.T) {
	// The same document cited at two spans must collapse to one source
	// entry; the transcript store persists sources as a string set.
	citations := []models.Citation{
		{ID: "doc-1", Source: "docs/geo.txt", Span: &models.Span{Start: 0, End: 5}},
		{ID: "doc-1", Source: "docs/geo.txt", Span: &models.Span{Start: 10, End: 17}},
		{ID: "doc-2", Source: "docs/history.txt"},
		{ID: "doc-3", Source: ""},
	}

	got := citationSources(citations)

	want := []string{"docs/geo.txt", "docs/history.txt"}
	if len(got) != len(want) {
		t.Fatalf("citationSources() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("citationSources()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestHandleKBServiceFailure(t *testing.T) {
	answerer := &fakeAnswerer{err: errors.New("quota exceeded on upstream account 4242")}
	r := setupKB(t, answerer)

	w := postKB(t, r, `{"prompt": "anything"}`)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", w.Code, http.StatusInternalServerError)
	}
	body := w.Body.String()
	if !strings.Contains(body, FailureMessage) {
		t.Errorf("body %q missing generic failure message", body)
	}
	if strings.Contains(body, "quota") || strings.Contains(body, "4242") {
		t.Errorf("body %q leaks internal error detail", body)
	}
}
