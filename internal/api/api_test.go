package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mzhuang1/chanyeops-sub000/internal/config"
	"github.com/mzhuang1/chanyeops-sub000/internal/extract"
	"github.com/mzhuang1/chanyeops-sub000/internal/llm"
	"github.com/mzhuang1/chanyeops-sub000/internal/parser"
	"github.com/mzhuang1/chanyeops-sub000/internal/pipeline"
	"github.com/mzhuang1/chanyeops-sub000/internal/planning"
	"github.com/mzhuang1/chanyeops-sub000/internal/templates"
)

const testKey = "secret"

type echoLLM struct{ prompts chan string }

func (e *echoLLM) Complete(ctx context.Context, prompt string, opts llm.Options) (string, error) {
	select {
	case e.prompts <- prompt:
	default:
	}
	return "第一段内容。\n\n第二段内容。", nil
}

type fakePrinter struct{}

func (fakePrinter) Print(ctx context.Context, html []byte) ([]byte, error) {
	return []byte("%PDF-1.7"), nil
}

func newTestServer(t *testing.T) (*httptest.Server, *echoLLM, string) {
	t.Helper()
	return newTestServerWithStore(t, pipeline.NewMemoryStore())
}

func newTestServerWithStore(t *testing.T, store pipeline.RunStore) (*httptest.Server, *echoLLM, string) {
	t.Helper()
	log := slog.New(slog.DiscardHandler)
	refDir := t.TempDir()
	cfg := config.Config{APIKey: testKey, ReferenceDir: refDir}

	gen := &echoLLM{prompts: make(chan string, 16)}
	reg := templates.NewBuiltinRegistry()
	assembler := &planning.Assembler{
		Templates:    reg,
		Extractor:    extract.NewExtractor(parser.Options{MaxSheetRows: 100}, 2, log),
		Sections:     &planning.SectionGenerator{LLM: gen, Temperature: 0.7, MaxTokens: 4000},
		ExcerptRunes: 2000,
	}
	orch := pipeline.NewOrchestrator(pipeline.Options{WorkerCount: 1, MaxQueueSize: 8, RunTTL: time.Hour},
		store, assembler, fakePrinter{}, log)
	orch.Start(context.Background())
	t.Cleanup(orch.Stop)

	stats := llm.NewStats(time.Hour)
	stats.Observe(120*time.Millisecond, nil)
	srv := httptest.NewServer(NewServer(orch, reg, LLMInfo{Provider: "openai", Model: "gpt-4o", Stats: stats}, log, cfg))
	t.Cleanup(srv.Close)
	return srv, gen, refDir
}

func do(t *testing.T, method, url, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+testKey)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func waitCompleted(t *testing.T, base, runID string) map[string]any {
	t.Helper()
	var body map[string]any
	require.Eventually(t, func() bool {
		resp := do(t, http.MethodGet, base+"/api/planning/runs/"+runID, "")
		if resp.StatusCode != http.StatusOK {
			return false
		}
		body = decode(t, resp)
		return body["status"] == string(planning.StatusCompleted) || body["status"] == string(planning.StatusFailed)
	}, 5*time.Second, 20*time.Millisecond)
	return body
}

func TestHealthIsPublic(t *testing.T) {
	srv, _, _ := newTestServer(t)
	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAuthRequired(t *testing.T) {
	srv, _, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/planning/templates")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/api/planning/templates", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	resp2, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp2.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp2.StatusCode)
	assert.Equal(t, "invalid api key", decode(t, resp2)["error"])
}

func TestListTemplates(t *testing.T) {
	srv, _, _ := newTestServer(t)
	resp := do(t, http.MethodGet, srv.URL+"/api/planning/templates", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Templates []templates.Template `json:"templates"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Len(t, body.Templates, 2)
	assert.Equal(t, "comprehensive", body.Templates[0].Code)
	assert.Len(t, body.Templates[0].Sections, 6)
}

func TestCreateRunAndDownload(t *testing.T) {
	srv, gen, refDir := newTestServer(t)
	require.NoError(t, os.WriteFile(filepath.Join(refDir, "国家政策.txt"), []byte("国务院关于高质量发展的意见"), 0o644))

	resp := do(t, http.MethodPost, srv.URL+"/api/planning/runs",
		`{"region":"景德镇","plan_type":"十四五","template_id":1,"reference_files":["国家政策.txt","missing.docx"],"user_id":"u1"}`)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	created := decode(t, resp)
	runID := created["run_id"].(string)
	assert.Equal(t, "/api/planning/runs/"+runID, created["poll_url"])

	body := waitCompleted(t, srv.URL, runID)
	require.Equal(t, string(planning.StatusCompleted), body["status"], body["error_message"])
	assert.EqualValues(t, 100, body["progress"])
	assert.Len(t, body["sections"], 6)
	assert.True(t, strings.HasPrefix(body["generated_content"].(string), "# 景德镇十四五发展规划"))
	md := body["metadata"].(map[string]any)
	assert.Equal(t, []any{"国家政策.txt"}, md["sources"])

	prompt := <-gen.prompts
	assert.Contains(t, prompt, "### 国家政策.txt\n国务院关于高质量发展的意见...")

	word := do(t, http.MethodGet, srv.URL+"/api/planning/runs/"+runID+"/download/word?user_id=u1", "")
	require.Equal(t, http.StatusOK, word.StatusCode)
	assert.Equal(t, "application/vnd.openxmlformats-officedocument.wordprocessingml.document", word.Header.Get("Content-Type"))
	assert.Contains(t, word.Header.Get("Content-Disposition"), "attachment")
	assert.Contains(t, word.Header.Get("Content-Disposition"), "filename*=utf-8''")

	pdf := do(t, http.MethodGet, srv.URL+"/api/planning/runs/"+runID+"/download/pdf", "")
	require.Equal(t, http.StatusOK, pdf.StatusCode)
	assert.Equal(t, "application/pdf", pdf.Header.Get("Content-Type"))

	other := do(t, http.MethodGet, srv.URL+"/api/planning/runs/"+runID+"?user_id=u2", "")
	assert.Equal(t, http.StatusNotFound, other.StatusCode)

	bad := do(t, http.MethodGet, srv.URL+"/api/planning/runs/"+runID+"/download/txt", "")
	assert.Equal(t, http.StatusBadRequest, bad.StatusCode)

	list := do(t, http.MethodGet, srv.URL+"/api/planning/runs?user_id=u1", "")
	require.Equal(t, http.StatusOK, list.StatusCode)
	assert.EqualValues(t, 1, decode(t, list)["count"])
}

func TestCreateRun_Rejections(t *testing.T) {
	srv, _, _ := newTestServer(t)
	tests := []struct {
		name string
		body string
		want string
	}{
		{"unknown template", `{"region":"r","plan_type":"t","template_id":9999}`, "unknown template"},
		{"missing region", `{"plan_type":"t","template_id":1}`, "region is required"},
		{"bad json", `{`, "invalid request body"},
		{"unsupported reference", `{"region":"r","plan_type":"t","template_id":1,"reference_files":["../../etc/passwd"]}`, "unsupported file type"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := do(t, http.MethodPost, srv.URL+"/api/planning/runs", tt.body)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			assert.Contains(t, decode(t, resp)["error"], tt.want)
		})
	}
}

type brokenStore struct{ *pipeline.MemoryStore }

func (brokenStore) Save(context.Context, pipeline.RunSnapshot) error {
	return errors.New("disk I/O error")
}

func TestCreateRun_StoreFailureIsServerError(t *testing.T) {
	srv, _, _ := newTestServerWithStore(t, brokenStore{pipeline.NewMemoryStore()})
	resp := do(t, http.MethodPost, srv.URL+"/api/planning/runs", `{"region":"r","plan_type":"t","template_id":1}`)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	body := decode(t, resp)
	assert.NotContains(t, body["error"], "disk I/O error")

	bad := do(t, http.MethodPost, srv.URL+"/api/planning/runs", `{"plan_type":"t","template_id":1}`)
	assert.Equal(t, http.StatusBadRequest, bad.StatusCode)
}

func TestGetRun_NotFound(t *testing.T) {
	srv, _, _ := newTestServer(t)
	resp := do(t, http.MethodGet, srv.URL+"/api/planning/runs/nope", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	dl := do(t, http.MethodGet, srv.URL+"/api/planning/runs/nope/download/word", "")
	assert.Equal(t, http.StatusNotFound, dl.StatusCode)
}

func TestLLMStats(t *testing.T) {
	srv, _, _ := newTestServer(t)
	resp := do(t, http.MethodGet, srv.URL+"/api/stats/llm", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decode(t, resp)
	assert.Equal(t, "gpt-4o", body["model"])
	assert.Equal(t, "openai", body["provider"])
	assert.NotNil(t, body["stats"])
}

func TestSanitizeFilename(t *testing.T) {
	assert.Equal(t, "a.docx", sanitizeFilename("../../a.docx"))
	assert.Equal(t, "b.pdf", sanitizeFilename(`C:\\x\\b.pdf`))
	assert.Equal(t, "", sanitizeFilename(".."))
	assert.Equal(t, ".", sanitizeFilename(""))
}
