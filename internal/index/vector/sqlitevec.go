package vector

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sync"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"

	apperrors "github.com/paperalign/paperalign/pkg/errors"
)

var sqliteVecOnce sync.Once

func registerSQLiteVec() {
	sqliteVecOnce.Do(sqlite_vec.Auto)
}

// sqliteVecIndex stores dense embeddings in a sqlite-vec side file. An
// Embedder supplies vectors at build and query time.
type sqliteVecIndex struct {
	db       *sql.DB
	path     string
	model    string
	dim      int
	docIDs   []string
	embedder Embedder
}

func buildSQLiteVec(ctx context.Context, opts Options, docs []Document) (Index, error) {
	if opts.Embedder == nil {
		return nil, apperrors.New(apperrors.ErrVectorBackend, http.StatusInternalServerError, "sqlitevec backend requires an embedder")
	}
	if opts.Path == "" {
		return nil, apperrors.New(apperrors.ErrVectorBackend, http.StatusInternalServerError, "sqlitevec backend requires an index path")
	}

	texts := make([]string, len(docs))
	docIDs := make([]string, len(docs))
	for i, doc := range docs {
		texts[i] = doc.Text
		docIDs[i] = doc.DocID
	}
	vectors, err := opts.Embedder.Embed(ctx, texts)
	if err != nil {
		return nil, apperrors.Newf(apperrors.ErrVectorBackend, http.StatusServiceUnavailable, "embedding %d documents: %v", len(texts), err)
	}
	if len(vectors) != len(docs) || len(vectors) == 0 || len(vectors[0]) == 0 {
		return nil, apperrors.Newf(apperrors.ErrVectorBackend, http.StatusServiceUnavailable, "embedder returned %d vectors for %d documents", len(vectors), len(docs))
	}
	dim := len(vectors[0])

	if err := os.MkdirAll(filepath.Dir(opts.Path), 0o755); err != nil {
		return nil, fmt.Errorf("creating index directory: %w", err)
	}
	// Rebuilds are wholesale; discard any stale file first.
	_ = os.Remove(opts.Path)

	registerSQLiteVec()
	db, err := sql.Open("sqlite3", opts.Path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite-vec index: %w", err)
	}

	schema := fmt.Sprintf(`CREATE VIRTUAL TABLE IF NOT EXISTS vec_docs USING vec0(
		embedding float[%d] distance_metric=cosine,
		doc_id TEXT PARTITION KEY
	)`, dim)
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating vec0 table: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		db.Close()
		return nil, err
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO vec_docs (embedding, doc_id) VALUES (?, ?)`)
	if err != nil {
		tx.Rollback()
		db.Close()
		return nil, err
	}
	for i, vec := range vectors {
		if len(vec) != dim {
			stmt.Close()
			tx.Rollback()
			db.Close()
			return nil, apperrors.Newf(apperrors.ErrVectorBackend, http.StatusServiceUnavailable, "embedder returned inconsistent dimensions (%d vs %d)", len(vec), dim)
		}
		blob, err := sqlite_vec.SerializeFloat32(vec)
		if err != nil {
			stmt.Close()
			tx.Rollback()
			db.Close()
			return nil, fmt.Errorf("serialising embedding: %w", err)
		}
		if _, err := stmt.ExecContext(ctx, blob, docIDs[i]); err != nil {
			stmt.Close()
			tx.Rollback()
			db.Close()
			return nil, fmt.Errorf("inserting embedding for %s: %w", docIDs[i], err)
		}
	}
	stmt.Close()
	if err := tx.Commit(); err != nil {
		db.Close()
		return nil, err
	}

	return &sqliteVecIndex{
		db:       db,
		path:     opts.Path,
		model:    opts.Model,
		dim:      dim,
		docIDs:   docIDs,
		embedder: opts.Embedder,
	}, nil
}

func loadSQLiteVec(_ context.Context, opts Options, manifest *Manifest) (Index, error) {
	if opts.Embedder == nil {
		return nil, apperrors.New(apperrors.ErrVectorBackend, http.StatusInternalServerError, "sqlitevec backend requires an embedder")
	}
	path := manifest.Ref
	if path == "" {
		return nil, manifestError(BackendSQLiteVec, fmt.Errorf("manifest missing index file reference"))
	}
	if _, err := os.Stat(path); err != nil {
		return nil, manifestError(BackendSQLiteVec, err)
	}
	registerSQLiteVec()
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, manifestError(BackendSQLiteVec, err)
	}
	return &sqliteVecIndex{
		db:       db,
		path:     path,
		model:    manifest.Model,
		dim:      manifest.Dim,
		docIDs:   manifest.DocIDs,
		embedder: opts.Embedder,
	}, nil
}

func (idx *sqliteVecIndex) Backend() string  { return BackendSQLiteVec }
func (idx *sqliteVecIndex) DocIDs() []string { return idx.docIDs }
func (idx *sqliteVecIndex) Dim() int         { return idx.dim }

// Query embeds the question and runs a k-nearest-neighbour match. Cosine
// distance converts to similarity as 1 - distance so results rank
// descending like every other backend.
func (idx *sqliteVecIndex) Query(ctx context.Context, question string, topK int) ([]Result, error) {
	if question == "" || len(idx.docIDs) == 0 {
		return nil, nil
	}
	vectors, err := idx.embedder.Embed(ctx, []string{question})
	if err != nil {
		return nil, apperrors.Newf(apperrors.ErrVectorBackend, http.StatusServiceUnavailable, "embedding query: %v", err)
	}
	if len(vectors) != 1 || len(vectors[0]) == 0 {
		return nil, apperrors.New(apperrors.ErrVectorBackend, http.StatusServiceUnavailable, "embedder returned invalid query vector")
	}
	blob, err := sqlite_vec.SerializeFloat32(vectors[0])
	if err != nil {
		return nil, fmt.Errorf("serialising query vector: %w", err)
	}

	k := topK
	if k <= 0 || k > len(idx.docIDs) {
		k = len(idx.docIDs)
	}
	rows, err := idx.db.QueryContext(ctx, `
		SELECT doc_id, distance
		FROM vec_docs
		WHERE embedding MATCH ?
		  AND k = ?
		ORDER BY distance
	`, blob, k)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		var docID string
		var distance float64
		if err := rows.Scan(&docID, &distance); err != nil {
			return nil, err
		}
		score := 1 - distance
		if score == 0 {
			continue
		}
		results = append(results, Result{DocID: docID, Score: score})
	}
	return results, rows.Err()
}

func (idx *sqliteVecIndex) Manifest() (*Manifest, error) {
	return &Manifest{
		Backend: BackendSQLiteVec,
		DocIDs:  idx.docIDs,
		Dim:     idx.dim,
		Model:   idx.model,
		Ref:     idx.path,
	}, nil
}

// Close releases the backing database handle.
func (idx *sqliteVecIndex) Close() error {
	return idx.db.Close()
}
