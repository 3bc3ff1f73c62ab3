// Package server exposes the HTTP API: project CRUD, ingest and index
// builds, question answering (JSON and SSE streaming), QA history and
// cache operations.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/paperalign/paperalign/internal/align"
	"github.com/paperalign/paperalign/internal/project"
	"github.com/paperalign/paperalign/internal/qa/service"
	apperrors "github.com/paperalign/paperalign/pkg/errors"
	"github.com/paperalign/paperalign/pkg/logger"
)

// QAService is the slice of the service layer the HTTP handlers need.
type QAService interface {
	CreateProject(ctx context.Context, req project.CreateRequest) (*project.Project, error)
	ListProjects(ctx context.Context) ([]project.Project, error)
	GetProject(ctx context.Context, id string) (*project.Project, error)
	DeleteProject(ctx context.Context, id string) error
	IngestPaper(ctx context.Context, projectID, content string) (int, error)
	IngestCode(ctx context.Context, projectID, repoDir string) (int, int, error)
	BuildAlignment(ctx context.Context, projectID string) (align.Map, error)
	BuildIndexes(ctx context.Context, projectID string) error
	Ask(ctx context.Context, projectID, question string) (*service.AskResult, error)
	AskStream(ctx context.Context, projectID, question string, emit func(chunk string) error) (*service.AskResult, error)
	QALog(ctx context.Context, projectID string) ([]project.QAEntry, error)
	InvalidateCache(ctx context.Context, projectID string) error
}

// Handler serves the project and QA endpoints.
type Handler struct {
	svc    QAService
	logger *slog.Logger
}

func New(svc QAService) *Handler {
	return &Handler{
		svc:    svc,
		logger: slog.Default().With("component", "api-handler"),
	}
}

// Register installs all API routes on the mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1/projects", h.CreateProject)
	mux.HandleFunc("GET /api/v1/projects", h.ListProjects)
	mux.HandleFunc("GET /api/v1/projects/{id}", h.GetProject)
	mux.HandleFunc("DELETE /api/v1/projects/{id}", h.DeleteProject)

	mux.HandleFunc("POST /api/v1/projects/{id}/ingest/paper", h.IngestPaper)
	mux.HandleFunc("POST /api/v1/projects/{id}/ingest/code", h.IngestCode)
	mux.HandleFunc("POST /api/v1/projects/{id}/align", h.BuildAlignment)
	mux.HandleFunc("POST /api/v1/projects/{id}/index", h.BuildIndexes)

	mux.HandleFunc("POST /api/v1/projects/{id}/ask", h.Ask)
	mux.HandleFunc("POST /api/v1/projects/{id}/ask-stream", h.AskStream)
	mux.HandleFunc("GET /api/v1/projects/{id}/qa-log", h.QALog)
	mux.HandleFunc("POST /api/v1/projects/{id}/cache/invalidate", h.InvalidateCache)
}

func (h *Handler) CreateProject(w http.ResponseWriter, r *http.Request) {
	var req project.CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	p, err := h.svc.CreateProject(r.Context(), req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, p)
}

func (h *Handler) ListProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := h.svc.ListProjects(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"projects": projects})
}

func (h *Handler) GetProject(w http.ResponseWriter, r *http.Request) {
	p, err := h.svc.GetProject(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, p)
}

func (h *Handler) DeleteProject(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteProject(r.Context(), r.PathValue("id")); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

type ingestPaperRequest struct {
	Content string `json:"content"`
}

func (h *Handler) IngestPaper(w http.ResponseWriter, r *http.Request) {
	var req ingestPaperRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Content == "" {
		h.writeError(w, http.StatusBadRequest, "content is required")
		return
	}
	count, err := h.svc.IngestPaper(r.Context(), r.PathValue("id"), req.Content)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"paragraph_count": count})
}

type ingestCodeRequest struct {
	RepoDir string `json:"repo_dir"`
}

func (h *Handler) IngestCode(w http.ResponseWriter, r *http.Request) {
	var req ingestCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.RepoDir == "" {
		h.writeError(w, http.StatusBadRequest, "repo_dir is required")
		return
	}
	files, symbols, err := h.svc.IngestCode(r.Context(), r.PathValue("id"), req.RepoDir)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"file_count":   files,
		"symbol_count": symbols,
	})
}

func (h *Handler) BuildAlignment(w http.ResponseWriter, r *http.Request) {
	m, err := h.svc.BuildAlignment(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"paragraph_count": m.ParagraphCount,
		"match_count":     m.MatchCount,
	})
}

func (h *Handler) BuildIndexes(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.BuildIndexes(r.Context(), r.PathValue("id")); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "built"})
}

type askRequest struct {
	Question string `json:"question"`
}

func (h *Handler) Ask(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	result, err := h.svc.Ask(r.Context(), r.PathValue("id"), req.Question)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	logger.FromContext(r.Context()).Info("question answered",
		"project_id", r.PathValue("id"),
		"route", result.Route,
		"evidence", len(result.Evidence),
		"cache_hit", result.CacheHit,
	)
	h.writeJSON(w, http.StatusOK, result)
}

func (h *Handler) QALog(w http.ResponseWriter, r *http.Request) {
	entries, err := h.svc.QALog(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	if entries == nil {
		entries = []project.QAEntry{}
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

func (h *Handler) InvalidateCache(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.InvalidateCache(r.Context(), r.PathValue("id")); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "invalidated"})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}

// writeServiceError maps service errors to HTTP status codes. AppError
// messages are safe for clients; anything else returns a generic message.
func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status := apperrors.HTTPStatusCode(err)
	var appErr *apperrors.AppError
	message := http.StatusText(status)
	if errors.As(err, &appErr) {
		message = appErr.Message
	}
	if status >= 500 {
		logger.FromContext(r.Context()).Error("request failed",
			"method", r.Method, "path", r.URL.Path, "error", err)
	}
	h.writeError(w, status, message)
}
