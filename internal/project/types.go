// Package project manages alignment-project metadata in PostgreSQL and
// the per-project artifact tree on disk (parsed paper, code indexes,
// alignment map, retrieval indexes, QA log).
package project

import "time"

// Project is the metadata record for one paper/repo alignment project.
type Project struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	PaperURL    string    `json:"paper_url"`
	RepoURL     string    `json:"repo_url"`
	FocusPoints string    `json:"focus_points,omitempty"`
	PaperHash   string    `json:"paper_hash,omitempty"`
	RepoHash    string    `json:"repo_hash,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// CreateRequest carries the fields a caller supplies for a new project.
type CreateRequest struct {
	Name        string `json:"name"`
	PaperURL    string `json:"paper_url"`
	RepoURL     string `json:"repo_url"`
	FocusPoints string `json:"focus_points,omitempty"`
}
