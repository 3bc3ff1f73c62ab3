package align

import (
	"reflect"
	"testing"

	"github.com/paperalign/paperalign/internal/ingest"
)

func TestBuildMapCachingExample(t *testing.T) {
	paper := ingest.Paper{Paragraphs: []ingest.Paragraph{
		{Page: "1", Text: "We use a caching layer to store results."},
	}}
	symbols := ingest.SymbolIndex{Symbols: []ingest.Symbol{
		{Path: "src/cache.py", Name: "CacheLayer", Type: "class", Line: "10"},
	}}
	texts := ingest.TextIndex{Entries: []ingest.TextEntry{
		{Path: "src/cache.py", Ext: ".py", Excerpt: "class CacheLayer: ..."},
	}}

	m := BuildMap(paper, symbols, texts, 0)
	if m.ParagraphCount != 1 || m.MatchCount != 1 {
		t.Fatalf("counts = %d/%d, want 1/1", m.ParagraphCount, m.MatchCount)
	}
	result := m.Results[0]
	if result.ParagraphIndex != 0 || result.Page != "1" {
		t.Errorf("result header = %+v", result)
	}

	var found bool
	for _, match := range result.Matches {
		if match.Path != "src/cache.py" {
			continue
		}
		for _, tok := range match.MatchedTokens {
			if tok == "caching" || tok == "cache" {
				found = true
			}
		}
		if match.Score < 1 {
			t.Errorf("score = %d, want >= 1", match.Score)
		}
	}
	if !found {
		t.Errorf("no match for src/cache.py with cache token: %+v", result.Matches)
	}
	if result.Confidence <= 0 || result.Confidence > 1 {
		t.Errorf("confidence = %f, want (0, 1]", result.Confidence)
	}
}

func TestBuildMapParagraphCounts(t *testing.T) {
	paper := ingest.Paper{Paragraphs: []ingest.Paragraph{
		{Page: "1", Text: "a an it"},
		{Page: "1", Text: "The caching layer implementation."},
	}}
	symbols := ingest.SymbolIndex{Symbols: []ingest.Symbol{
		{Path: "src/cache.py", Name: "CacheLayer", Type: "class", Line: "10"},
	}}
	m := BuildMap(paper, symbols, ingest.TextIndex{}, 0)
	if m.ParagraphCount != 2 {
		t.Errorf("paragraph_count = %d, want 2", m.ParagraphCount)
	}
	if m.MatchCount != 1 {
		t.Errorf("match_count = %d, want 1", m.MatchCount)
	}
	if m.Results[0].ParagraphIndex != 1 {
		t.Errorf("surviving paragraph index = %d, want 1", m.Results[0].ParagraphIndex)
	}
}

func TestBuildMapNoCandidates(t *testing.T) {
	paper := ingest.Paper{Paragraphs: []ingest.Paragraph{
		{Page: "1", Text: "Completely unrelated paragraph content."},
	}}
	m := BuildMap(paper, ingest.SymbolIndex{}, ingest.TextIndex{}, 0)
	if len(m.Results) != 1 {
		t.Fatalf("results = %d, want 1", len(m.Results))
	}
	if m.Results[0].Confidence != 0 {
		t.Errorf("confidence with no candidates = %f, want 0", m.Results[0].Confidence)
	}
	if len(m.Results[0].Matches) != 0 {
		t.Errorf("matches = %+v, want empty", m.Results[0].Matches)
	}
}

func TestBuildMapCapsMatches(t *testing.T) {
	paper := ingest.Paper{Paragraphs: []ingest.Paragraph{
		{Page: "1", Text: "The caching layer stores results."},
	}}
	var entries []ingest.TextEntry
	for _, p := range []string{
		"a/caching.py", "b/caching.py", "c/caching.py",
		"d/caching.py", "e/caching.py", "f/caching.py", "g/caching.py",
	} {
		entries = append(entries, ingest.TextEntry{Path: p, Excerpt: "x"})
	}
	m := BuildMap(paper, ingest.SymbolIndex{}, ingest.TextIndex{Entries: entries}, 0)
	if got := len(m.Results[0].Matches); got != 5 {
		t.Errorf("matches = %d, want capped at 5", got)
	}
}

func TestBuildMapTopNOverridesCap(t *testing.T) {
	paper := ingest.Paper{Paragraphs: []ingest.Paragraph{
		{Page: "1", Text: "The caching layer stores results."},
	}}
	var entries []ingest.TextEntry
	for _, p := range []string{
		"a/caching.py", "b/caching.py", "c/caching.py", "d/caching.py",
	} {
		entries = append(entries, ingest.TextEntry{Path: p, Excerpt: "x"})
	}
	m := BuildMap(paper, ingest.SymbolIndex{}, ingest.TextIndex{Entries: entries}, 2)
	if got := len(m.Results[0].Matches); got != 2 {
		t.Errorf("matches = %d, want capped at 2", got)
	}
}

func TestTextLookupFirstWins(t *testing.T) {
	lookup := textLookup([]ingest.TextEntry{
		{Path: "a.py", Excerpt: "first"},
		{Path: "a.py", Excerpt: "second"},
	})
	if lookup["a.py"] != "first" {
		t.Errorf("lookup = %q, want first excerpt", lookup["a.py"])
	}
}

func TestSelectorOrderAndBound(t *testing.T) {
	s := NewSelector[string](3)
	s.Push(2, 0.5, "b")
	s.Push(3, 0.1, "a")
	s.Push(1, 0.9, "d")
	s.Push(2, 0.5, "c") // same key as "b", seen later
	s.Push(0, 1.0, "dropped")

	got := s.Items()
	want := []string{"a", "b", "c"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("items = %v, want %v", got, want)
	}
}

func TestSelectorTieKeepsFirstSeen(t *testing.T) {
	s := NewSelector[int](2)
	s.Push(1, 1, 100)
	s.Push(1, 1, 200)
	s.Push(1, 1, 300) // evicts the latest-seen on equal keys

	got := s.Items()
	want := []int{100, 200}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("items = %v, want %v", got, want)
	}
}
