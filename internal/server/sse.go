package server

import (
	"encoding/json"
	"net/http"

	"github.com/paperalign/paperalign/internal/qa"
	"github.com/paperalign/paperalign/pkg/logger"
)

// streamDone is the terminal SSE event carrying the curated evidence.
type streamDone struct {
	Done                 bool          `json:"done"`
	Route                qa.Route      `json:"route"`
	Evidence             []qa.Evidence `json:"evidence"`
	EvidenceMix          qa.Mix        `json:"evidence_mix"`
	CodeRefs             []string      `json:"code_refs"`
	InsufficientEvidence bool          `json:"insufficient_evidence"`
}

// AskStream answers a question over SSE: one {"chunk": ...} event per
// answer fragment, then a terminal {"done": true, ...} event with the
// curated evidence.
func (h *Handler) AskStream(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		h.writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	emit := func(event any) error {
		data, err := json.Marshal(event)
		if err != nil {
			return err
		}
		if _, err := w.Write(append(append([]byte("data: "), data...), '\n', '\n')); err != nil {
			return err
		}
		flusher.Flush()
		return nil
	}

	result, err := h.svc.AskStream(r.Context(), r.PathValue("id"), req.Question, func(chunk string) error {
		return emit(map[string]string{"chunk": chunk})
	})
	if err != nil {
		// Headers are already out; report the failure in-band.
		logger.FromContext(r.Context()).Error("ask stream failed",
			"project_id", r.PathValue("id"), "error", err)
		_ = emit(map[string]string{"error": err.Error()})
		return
	}

	if err := emit(streamDone{
		Done:                 true,
		Route:                result.Route,
		Evidence:             result.Evidence,
		EvidenceMix:          result.EvidenceMix,
		CodeRefs:             result.CodeRefs,
		InsufficientEvidence: result.InsufficientEvidence,
	}); err != nil {
		logger.FromContext(r.Context()).Error("writing terminal event failed", "error", err)
	}
}
