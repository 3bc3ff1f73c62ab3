// Package vector defines the pluggable similarity-index abstraction and its
// backends: a pure in-process TF-IDF fallback and an on-disk sqlite-vec
// dense index fed by an external embedder. Fusion and evidence code depend
// only on the (doc_id, score) query contract, never on the active backend.
package vector

import (
	"context"
	"encoding/json"
	"net/http"

	apperrors "github.com/paperalign/paperalign/pkg/errors"
)

// Backend tags recorded in the index manifest.
const (
	BackendEmpty     = "empty"
	BackendTFIDF     = "tfidf"
	BackendSQLiteVec = "sqlitevec"
)

// Document is a unit of indexable text with a caller-assigned id.
type Document struct {
	DocID string
	Text  string
}

// Result is a scored document returned by a query, ranked descending.
type Result struct {
	DocID string
	Score float64
}

// Index is the contract every backend satisfies. Implementations are
// immutable after build and safe for concurrent queries.
type Index interface {
	Backend() string
	DocIDs() []string
	Dim() int
	Query(ctx context.Context, question string, topK int) ([]Result, error)
	Manifest() (*Manifest, error)
}

// Manifest is the portable description of a built index. Payload carries
// backend-private state for in-process backends; Ref points at a side file
// for on-disk backends.
type Manifest struct {
	Backend string          `json:"backend"`
	DocIDs  []string        `json:"doc_ids"`
	Dim     int             `json:"dim"`
	Model   string          `json:"model,omitempty"`
	Ref     string          `json:"ref,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Marshal serialises the manifest for persistence.
func (m *Manifest) Marshal() ([]byte, error) {
	return json.MarshalIndent(m, "", "  ")
}

// Embedder turns texts into dense vectors. The sqlite-vec backend requires
// one; the TF-IDF fallback does not.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Options selects and parameterises the backend for Build and Load.
type Options struct {
	Backend  string
	MaxTerms int // TF-IDF vector cap, default 200
	Dim      int // dense vector dimensionality
	Path     string
	Model    string
	Embedder Embedder
}

// Build constructs an index over docs. Zero documents always yield the
// empty backend regardless of the requested one.
func Build(ctx context.Context, opts Options, docs []Document) (Index, error) {
	kept := make([]Document, 0, len(docs))
	for _, doc := range docs {
		if doc.DocID == "" {
			continue
		}
		kept = append(kept, doc)
	}
	if len(kept) == 0 {
		return emptyIndex{}, nil
	}
	switch opts.Backend {
	case BackendSQLiteVec:
		return buildSQLiteVec(ctx, opts, kept)
	case BackendTFIDF, "":
		return buildTFIDF(opts, kept), nil
	default:
		return nil, apperrors.Newf(apperrors.ErrVectorBackend, http.StatusInternalServerError, "unknown vector backend %q", opts.Backend)
	}
}

// Load reopens an index from its serialised manifest. A missing or
// malformed manifest degrades to the empty backend; a manifest naming a
// backend that cannot be restored is a hard error.
func Load(ctx context.Context, opts Options, data []byte) (Index, error) {
	if len(data) == 0 {
		return emptyIndex{}, nil
	}
	var manifest Manifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return emptyIndex{}, nil
	}
	switch manifest.Backend {
	case BackendEmpty, "":
		return emptyIndex{}, nil
	case BackendTFIDF:
		return loadTFIDF(&manifest)
	case BackendSQLiteVec:
		return loadSQLiteVec(ctx, opts, &manifest)
	default:
		return nil, apperrors.Newf(apperrors.ErrVectorBackend, http.StatusInternalServerError, "manifest names unknown backend %q", manifest.Backend)
	}
}

// emptyIndex is the zero-document index: valid, queryable, always empty.
type emptyIndex struct{}

func (emptyIndex) Backend() string  { return BackendEmpty }
func (emptyIndex) DocIDs() []string { return nil }
func (emptyIndex) Dim() int         { return 0 }

func (emptyIndex) Query(context.Context, string, int) ([]Result, error) {
	return nil, nil
}

func (emptyIndex) Manifest() (*Manifest, error) {
	return &Manifest{Backend: BackendEmpty, DocIDs: []string{}}, nil
}

func manifestError(backend string, err error) error {
	return apperrors.Newf(apperrors.ErrVectorBackend, http.StatusServiceUnavailable, "restoring %s index: %v", backend, err)
}
