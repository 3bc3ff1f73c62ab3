package project

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/paperalign/paperalign/pkg/errors"
	"github.com/paperalign/paperalign/pkg/postgres"
)

// Store persists project metadata in the projects table.
type Store struct {
	db     *postgres.Client
	logger *slog.Logger
}

func NewStore(db *postgres.Client) *Store {
	return &Store{
		db:     db,
		logger: slog.Default().With("component", "project-store"),
	}
}

// InitSchema creates the projects table if it does not exist.
func (s *Store) InitSchema(ctx context.Context) error {
	_, err := s.db.DB.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS projects (
			id           TEXT PRIMARY KEY,
			name         TEXT NOT NULL,
			paper_url    TEXT NOT NULL,
			repo_url     TEXT NOT NULL,
			focus_points TEXT NOT NULL DEFAULT '',
			paper_hash   TEXT NOT NULL DEFAULT '',
			repo_hash    TEXT NOT NULL DEFAULT '',
			created_at   TIMESTAMPTZ NOT NULL,
			updated_at   TIMESTAMPTZ NOT NULL
		)`)
	if err != nil {
		return fmt.Errorf("creating projects table: %w", err)
	}
	return nil
}

// Create inserts a new project and returns it with a generated id.
func (s *Store) Create(ctx context.Context, req CreateRequest) (*Project, error) {
	if strings.TrimSpace(req.Name) == "" {
		return nil, apperrors.New(apperrors.ErrInvalidInput, http.StatusBadRequest, "project name is required")
	}

	now := time.Now().UTC()
	p := &Project{
		ID:          uuid.NewString(),
		Name:        strings.TrimSpace(req.Name),
		PaperURL:    strings.TrimSpace(req.PaperURL),
		RepoURL:     strings.TrimSpace(req.RepoURL),
		FocusPoints: strings.TrimSpace(req.FocusPoints),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	_, err := s.db.DB.ExecContext(ctx,
		`INSERT INTO projects (id, name, paper_url, repo_url, focus_points, paper_hash, repo_hash, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, '', '', $6, $7)`,
		p.ID, p.Name, p.PaperURL, p.RepoURL, p.FocusPoints, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("inserting project: %w", err)
	}

	s.logger.Info("project created", "project_id", p.ID, "name", p.Name)
	return p, nil
}

// Get returns a project by id, or ErrProjectNotFound.
func (s *Store) Get(ctx context.Context, id string) (*Project, error) {
	var p Project
	err := s.db.DB.QueryRowContext(ctx,
		`SELECT id, name, paper_url, repo_url, focus_points, paper_hash, repo_hash, created_at, updated_at
		 FROM projects WHERE id = $1`,
		id,
	).Scan(&p.ID, &p.Name, &p.PaperURL, &p.RepoURL, &p.FocusPoints, &p.PaperHash, &p.RepoHash, &p.CreatedAt, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, apperrors.Newf(apperrors.ErrProjectNotFound, http.StatusNotFound, "project %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("querying project: %w", err)
	}
	return &p, nil
}

// List returns all projects, newest first.
func (s *Store) List(ctx context.Context) ([]Project, error) {
	rows, err := s.db.DB.QueryContext(ctx,
		`SELECT id, name, paper_url, repo_url, focus_points, paper_hash, repo_hash, created_at, updated_at
		 FROM projects ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("listing projects: %w", err)
	}
	defer rows.Close()

	projects := []Project{}
	for rows.Next() {
		var p Project
		if err := rows.Scan(&p.ID, &p.Name, &p.PaperURL, &p.RepoURL, &p.FocusPoints, &p.PaperHash, &p.RepoHash, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning project row: %w", err)
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

// SetHashes records the content hashes after an ingest pass.
func (s *Store) SetHashes(ctx context.Context, id, paperHash, repoHash string) error {
	result, err := s.db.DB.ExecContext(ctx,
		`UPDATE projects SET paper_hash = $2, repo_hash = $3, updated_at = $4 WHERE id = $1`,
		id, paperHash, repoHash, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("updating project hashes: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return apperrors.Newf(apperrors.ErrProjectNotFound, http.StatusNotFound, "project %s not found", id)
	}
	return nil
}

// Delete removes a project record.
func (s *Store) Delete(ctx context.Context, id string) error {
	result, err := s.db.DB.ExecContext(ctx, `DELETE FROM projects WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting project: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return apperrors.Newf(apperrors.ErrProjectNotFound, http.StatusNotFound, "project %s not found", id)
	}
	s.logger.Info("project deleted", "project_id", id)
	return nil
}
