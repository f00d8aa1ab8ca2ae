package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/mzhuang1/chanyeops-sub000/internal/extract"
	"github.com/mzhuang1/chanyeops-sub000/internal/pipeline"
	"github.com/mzhuang1/chanyeops-sub000/internal/planning"
)

type createRunRequest struct {
	Region          string   `json:"region"`
	PlanType        string   `json:"plan_type"`
	TemplateID      int      `json:"template_id"`
	ReferenceFiles  []string `json:"reference_files"`
	EnableWebSearch bool     `json:"enable_web_search"`
	UserID          string   `json:"user_id"`
}

func (s *Server) handleListTemplates(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"templates": s.templates.List(),
	})
}

func (s *Server) handleCreateRun(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var body createRunRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		jsonError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	paths := make([]string, 0, len(body.ReferenceFiles))
	for _, name := range body.ReferenceFiles {
		path, err := s.resolveReference(name)
		if err != nil {
			jsonError(w, err.Error(), http.StatusBadRequest)
			return
		}
		paths = append(paths, path)
	}

	req := planning.GenerationRequest{
		Region:             strings.TrimSpace(body.Region),
		PlanType:           strings.TrimSpace(body.PlanType),
		TemplateID:         body.TemplateID,
		ReferenceFilePaths: paths,
		EnableWebSearch:    body.EnableWebSearch && s.cfg.WebSearchEnabled(),
		RequesterID:        body.UserID,
	}
	if body.EnableWebSearch && !s.cfg.WebSearchEnabled() {
		s.log.Warn("web search requested but no search key configured", "user_id", body.UserID)
	}

	snap, err := s.orchestrator.Submit(r.Context(), req)
	switch {
	case errors.Is(err, planning.ErrInvalidRequest), errors.Is(err, planning.ErrUnknownTemplate):
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	case errors.Is(err, pipeline.ErrQueueFull), errors.Is(err, pipeline.ErrStopped):
		jsonError(w, err.Error(), http.StatusServiceUnavailable)
		return
	case err != nil:
		s.log.Error("submit run failed", "error", err, "user_id", body.UserID)
		jsonError(w, "failed to start generation", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]any{
		"run_id":   snap.ID,
		"status":   snap.Status,
		"poll_url": fmt.Sprintf("/api/planning/runs/%s", snap.ID),
	})
}

// resolveReference maps a reference file name to a path under the
// reference directory.
func (s *Server) resolveReference(name string) (string, error) {
	clean := sanitizeFilename(name)
	if clean == "" || clean == "." {
		return "", fmt.Errorf("invalid reference file %q", name)
	}
	if _, ok := extract.KindFor(clean); !ok {
		return "", fmt.Errorf("unsupported file type: %s", filepath.Ext(clean))
	}
	return filepath.Join(s.cfg.ReferenceDir, clean), nil
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := s.orchestrator.ListRuns(r.Context(), r.URL.Query().Get("user_id"))
	if err != nil {
		s.log.Error("list runs failed", "error", err)
		jsonError(w, "failed to list runs", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"runs":  runs,
		"count": len(runs),
	})
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "runID")
	snap, err := s.orchestrator.GetRun(r.Context(), runID, r.URL.Query().Get("user_id"))
	if err != nil {
		s.runError(w, runID, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "runID")
	format := pipeline.Format(chi.URLParam(r, "format"))

	doc, err := s.orchestrator.Export(r.Context(), runID, r.URL.Query().Get("user_id"), format)
	if err != nil {
		s.runError(w, runID, err)
		return
	}

	w.Header().Set("Content-Type", doc.ContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": doc.Filename}))
	w.Header().Set("Content-Length", strconv.Itoa(len(doc.Data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(doc.Data)
}

func (s *Server) runError(w http.ResponseWriter, runID string, err error) {
	switch {
	case errors.Is(err, pipeline.ErrRunNotFound):
		jsonError(w, "run not found", http.StatusNotFound)
	case errors.Is(err, pipeline.ErrNotCompleted):
		jsonError(w, "run is not completed", http.StatusConflict)
	case errors.Is(err, pipeline.ErrUnknownFormat):
		jsonError(w, err.Error(), http.StatusBadRequest)
	default:
		s.log.Error("run request failed", "run_id", runID, "error", err)
		jsonError(w, "internal error", http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	writeJSON(w, code, map[string]string{"error": msg})
}

func sanitizeFilename(name string) string {
	// Strip path components, keep only the base name.
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	if name == ".." {
		return ""
	}
	return strings.TrimSpace(name)
}
