package ingest

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSplitParagraphs(t *testing.T) {
	text := "First paragraph\nwith a wrapped line.\n\n\nSecond   paragraph.\n\n   \n"
	got := SplitParagraphs(text)
	want := []string{"First paragraph with a wrapped line.", "Second paragraph."}
	if len(got) != len(want) {
		t.Fatalf("got %d paragraphs, want %d: %v", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("paragraph %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestParsePaperPagesCap(t *testing.T) {
	pages := []string{"one\n\ntwo", "three\n\nfour"}
	paper := ParsePaperPages(pages, 3)
	if len(paper.Paragraphs) != 3 {
		t.Fatalf("got %d paragraphs, want 3", len(paper.Paragraphs))
	}
	if paper.Paragraphs[0].Page != "1" || paper.Paragraphs[2].Page != "2" {
		t.Errorf("page numbering wrong: %+v", paper.Paragraphs)
	}
}

func TestParseDocumentHTML(t *testing.T) {
	content := `<html><head><style>p {color: red}</style><script>alert(1)</script></head>
<body><p>We use a caching layer.</p><p>It stores &amp; reuses results.</p></body></html>`
	paper := ParseDocument(content, 0)
	if len(paper.Paragraphs) != 2 {
		t.Fatalf("got %d paragraphs, want 2: %+v", len(paper.Paragraphs), paper.Paragraphs)
	}
	if !strings.Contains(paper.Paragraphs[0].Text, "caching layer") {
		t.Errorf("first paragraph = %q", paper.Paragraphs[0].Text)
	}
	if !strings.Contains(paper.Paragraphs[1].Text, "stores & reuses") {
		t.Errorf("entities not unescaped: %q", paper.Paragraphs[1].Text)
	}
	if strings.Contains(paper.Paragraphs[0].Text, "alert") {
		t.Errorf("script content leaked: %q", paper.Paragraphs[0].Text)
	}
}

func TestWalkRepo(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "src/cache.py", "class CacheLayer:\n    def get(self):\n        pass\n")
	writeFile(t, dir, "pkg/store.go", "package store\n\ntype Store struct{}\n\nfunc Open(path string) {}\n")
	writeFile(t, dir, "data.bin", "ab\x00cd")
	writeFile(t, dir, ".git/config", "[core]")

	files, symbols, texts, err := WalkRepo(dir, DefaultLimits())
	if err != nil {
		t.Fatalf("walk: %v", err)
	}

	for _, f := range files.Files {
		if strings.HasPrefix(f.Path, ".git/") {
			t.Errorf(".git contents listed: %s", f.Path)
		}
	}

	byName := make(map[string]Symbol)
	for _, s := range symbols.Symbols {
		byName[s.Name] = s
	}
	if s, ok := byName["CacheLayer"]; !ok || s.Type != "class" || s.Path != "src/cache.py" || s.Line != "1" {
		t.Errorf("CacheLayer symbol = %+v", s)
	}
	if s, ok := byName["get"]; !ok || s.Type != "def" || s.Line != "2" {
		t.Errorf("get symbol = %+v", s)
	}
	if s, ok := byName["Store"]; !ok || s.Type != "type" {
		t.Errorf("Store symbol = %+v", s)
	}
	if s, ok := byName["Open"]; !ok || s.Type != "func" {
		t.Errorf("Open symbol = %+v", s)
	}

	for _, e := range texts.Entries {
		if e.Path == "data.bin" {
			t.Errorf("binary file indexed for text: %+v", e)
		}
	}
}

func TestWalkRepoSkipsOversized(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "big.txt", strings.Repeat("x", 100))

	_, _, texts, err := WalkRepo(dir, Limits{MaxFileBytes: 10, ExcerptBytes: 2000})
	if err != nil {
		t.Fatalf("walk: %v", err)
	}
	if len(texts.Entries) != 0 {
		t.Errorf("oversized file read: %+v", texts.Entries)
	}
}

func TestWalkRepoExcerptCap(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "long.md", strings.Repeat("a", 50))

	_, _, texts, err := WalkRepo(dir, Limits{MaxFileBytes: 1000, ExcerptBytes: 10})
	if err != nil {
		t.Fatalf("walk: %v", err)
	}
	if len(texts.Entries) != 1 || len(texts.Entries[0].Excerpt) != 10 {
		t.Errorf("excerpt not capped: %+v", texts.Entries)
	}
}

func writeFile(t *testing.T, dir, rel, content string) {
	t.Helper()
	path := filepath.Join(dir, rel)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}
