package project

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/paperalign/paperalign/internal/align"
	"github.com/paperalign/paperalign/internal/ingest"
)

// Artifacts resolves and reads the on-disk artifact tree for one project:
//
//	<root>/<id>/paper/parsed.json
//	<root>/<id>/code/{index,symbols,text_index}.json
//	<root>/<id>/alignment/alignment.json
//	<root>/<id>/index/{paper,code}_bm25.json
//	<root>/<id>/index/{paper,code}_vector.json (+ .db for sqlitevec)
//	<root>/<id>/qa/qa_log.jsonl
type Artifacts struct {
	root string
}

func NewArtifacts(root string) *Artifacts {
	return &Artifacts{root: root}
}

func (a *Artifacts) Dir(projectID string) string {
	return filepath.Join(a.root, projectID)
}

// EnsureDirs creates the artifact subdirectories for a project.
func (a *Artifacts) EnsureDirs(projectID string) error {
	for _, sub := range []string{"paper", "code", "alignment", "index", "qa"} {
		if err := os.MkdirAll(filepath.Join(a.root, projectID, sub), 0o755); err != nil {
			return fmt.Errorf("creating artifact dir %s: %w", sub, err)
		}
	}
	return nil
}

func (a *Artifacts) PaperPath(projectID string) string {
	return filepath.Join(a.root, projectID, "paper", "parsed.json")
}

func (a *Artifacts) CodeIndexPath(projectID string) string {
	return filepath.Join(a.root, projectID, "code", "index.json")
}

func (a *Artifacts) SymbolsPath(projectID string) string {
	return filepath.Join(a.root, projectID, "code", "symbols.json")
}

func (a *Artifacts) TextIndexPath(projectID string) string {
	return filepath.Join(a.root, projectID, "code", "text_index.json")
}

func (a *Artifacts) AlignmentPath(projectID string) string {
	return filepath.Join(a.root, projectID, "alignment", "alignment.json")
}

func (a *Artifacts) LexicalIndexPath(projectID, corpus string) string {
	return filepath.Join(a.root, projectID, "index", corpus+"_bm25.json")
}

func (a *Artifacts) VectorManifestPath(projectID, corpus string) string {
	return filepath.Join(a.root, projectID, "index", corpus+"_vector.json")
}

func (a *Artifacts) VectorDBPath(projectID, corpus string) string {
	return filepath.Join(a.root, projectID, "index", corpus+"_vector.db")
}

func (a *Artifacts) QALogPath(projectID string) string {
	return filepath.Join(a.root, projectID, "qa", "qa_log.jsonl")
}

// RemoveAll deletes the whole artifact tree for a project.
func (a *Artifacts) RemoveAll(projectID string) error {
	return os.RemoveAll(filepath.Join(a.root, projectID))
}

// ReadPaper loads the parsed paper, returning an empty paper when the
// artifact does not exist yet.
func (a *Artifacts) ReadPaper(projectID string) (ingest.Paper, error) {
	var paper ingest.Paper
	err := readJSON(a.PaperPath(projectID), &paper)
	if os.IsNotExist(err) {
		return ingest.Paper{}, nil
	}
	return paper, err
}

func (a *Artifacts) WritePaper(projectID string, paper ingest.Paper) error {
	return writeJSON(a.PaperPath(projectID), paper)
}

func (a *Artifacts) ReadSymbols(projectID string) (ingest.SymbolIndex, error) {
	var idx ingest.SymbolIndex
	err := readJSON(a.SymbolsPath(projectID), &idx)
	if os.IsNotExist(err) {
		return ingest.SymbolIndex{}, nil
	}
	return idx, err
}

func (a *Artifacts) WriteSymbols(projectID string, idx ingest.SymbolIndex) error {
	return writeJSON(a.SymbolsPath(projectID), idx)
}

func (a *Artifacts) ReadTextIndex(projectID string) (ingest.TextIndex, error) {
	var idx ingest.TextIndex
	err := readJSON(a.TextIndexPath(projectID), &idx)
	if os.IsNotExist(err) {
		return ingest.TextIndex{}, nil
	}
	return idx, err
}

func (a *Artifacts) WriteTextIndex(projectID string, idx ingest.TextIndex) error {
	return writeJSON(a.TextIndexPath(projectID), idx)
}

func (a *Artifacts) ReadFileIndex(projectID string) (ingest.FileIndex, error) {
	var idx ingest.FileIndex
	err := readJSON(a.CodeIndexPath(projectID), &idx)
	if os.IsNotExist(err) {
		return ingest.FileIndex{}, nil
	}
	return idx, err
}

func (a *Artifacts) WriteFileIndex(projectID string, idx ingest.FileIndex) error {
	return writeJSON(a.CodeIndexPath(projectID), idx)
}

func (a *Artifacts) ReadAlignment(projectID string) (align.Map, error) {
	var m align.Map
	err := readJSON(a.AlignmentPath(projectID), &m)
	if os.IsNotExist(err) {
		return align.Map{}, nil
	}
	return m, err
}

func (a *Artifacts) WriteAlignment(projectID string, m align.Map) error {
	return writeJSON(a.AlignmentPath(projectID), m)
}

// QAEntry is one line in the per-project QA log.
type QAEntry struct {
	Timestamp            string          `json:"timestamp"`
	Question             string          `json:"question"`
	Route                string          `json:"route"`
	Answer               string          `json:"answer"`
	EvidenceCount        int             `json:"evidence_count"`
	InsufficientEvidence bool            `json:"insufficient_evidence"`
	EvidenceMix          json.RawMessage `json:"evidence_mix,omitempty"`
	LatencyMS            int64           `json:"latency_ms"`
}

// AppendQALog appends one entry to the JSONL question log.
func (a *Artifacts) AppendQALog(projectID string, entry QAEntry) error {
	path := a.QALogPath(projectID)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating qa log dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening qa log: %w", err)
	}
	defer f.Close()

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encoding qa log entry: %w", err)
	}
	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("appending qa log entry: %w", err)
	}
	return nil
}

// ReadQALog returns all logged entries, skipping blank and malformed lines.
func (a *Artifacts) ReadQALog(projectID string) ([]QAEntry, error) {
	f, err := os.Open(a.QALogPath(projectID))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("opening qa log: %w", err)
	}
	defer f.Close()

	var entries []QAEntry
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var entry QAEntry
		if err := json.Unmarshal(line, &entry); err != nil {
			continue
		}
		entries = append(entries, entry)
	}
	return entries, scanner.Err()
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decoding %s: %w", filepath.Base(path), err)
	}
	return nil
}

func writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating dir for %s: %w", filepath.Base(path), err)
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding %s: %w", filepath.Base(path), err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", filepath.Base(path), err)
	}
	return os.Rename(tmp, path)
}
