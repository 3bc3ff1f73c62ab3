package project

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/paperalign/paperalign/internal/ingest"
)

func TestArtifactsRoundTrip(t *testing.T) {
	a := NewArtifacts(t.TempDir())
	const id = "proj-1"

	if err := a.EnsureDirs(id); err != nil {
		t.Fatalf("EnsureDirs: %v", err)
	}

	paper := ingest.Paper{Paragraphs: []ingest.Paragraph{
		{Page: "1", Text: "We cache results."},
	}}
	if err := a.WritePaper(id, paper); err != nil {
		t.Fatalf("WritePaper: %v", err)
	}
	got, err := a.ReadPaper(id)
	if err != nil {
		t.Fatalf("ReadPaper: %v", err)
	}
	if len(got.Paragraphs) != 1 || got.Paragraphs[0].Text != "We cache results." {
		t.Errorf("paper round trip got %+v", got)
	}

	symbols := ingest.SymbolIndex{Symbols: []ingest.Symbol{
		{Path: "src/cache.py", Type: "class", Name: "CacheLayer", Line: "1"},
	}}
	if err := a.WriteSymbols(id, symbols); err != nil {
		t.Fatalf("WriteSymbols: %v", err)
	}
	gotSyms, err := a.ReadSymbols(id)
	if err != nil {
		t.Fatalf("ReadSymbols: %v", err)
	}
	if len(gotSyms.Symbols) != 1 || gotSyms.Symbols[0].Name != "CacheLayer" {
		t.Errorf("symbols round trip got %+v", gotSyms)
	}
}

func TestArtifactsMissingFilesAreEmpty(t *testing.T) {
	a := NewArtifacts(t.TempDir())

	paper, err := a.ReadPaper("nope")
	if err != nil {
		t.Fatalf("ReadPaper: %v", err)
	}
	if len(paper.Paragraphs) != 0 {
		t.Errorf("expected empty paper, got %+v", paper)
	}

	entries, err := a.ReadQALog("nope")
	if err != nil {
		t.Fatalf("ReadQALog: %v", err)
	}
	if entries != nil {
		t.Errorf("expected nil entries, got %v", entries)
	}
}

func TestQALogAppendAndRead(t *testing.T) {
	a := NewArtifacts(t.TempDir())
	const id = "proj-2"

	for _, q := range []string{"first", "second"} {
		if err := a.AppendQALog(id, QAEntry{Question: q, Route: "hybrid", LatencyMS: 12}); err != nil {
			t.Fatalf("AppendQALog(%q): %v", q, err)
		}
	}

	// A malformed line is skipped, not fatal.
	f, err := os.OpenFile(a.QALogPath(id), os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("opening log: %v", err)
	}
	if _, err := f.WriteString("not json\n"); err != nil {
		t.Fatalf("writing garbage: %v", err)
	}
	f.Close()

	entries, err := a.ReadQALog(id)
	if err != nil {
		t.Fatalf("ReadQALog: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Question != "first" || entries[1].Question != "second" {
		t.Errorf("entries out of order: %+v", entries)
	}
}

func TestRemoveAll(t *testing.T) {
	a := NewArtifacts(t.TempDir())
	const id = "proj-3"
	if err := a.EnsureDirs(id); err != nil {
		t.Fatalf("EnsureDirs: %v", err)
	}
	if err := a.RemoveAll(id); err != nil {
		t.Fatalf("RemoveAll: %v", err)
	}
	if _, err := os.Stat(filepath.Join(a.Dir(id))); !os.IsNotExist(err) {
		t.Errorf("project dir should be gone, stat err = %v", err)
	}
}
