package qa

import (
	"context"
	"reflect"
	"testing"

	"github.com/paperalign/paperalign/internal/align"
	"github.com/paperalign/paperalign/internal/index/lexical"
	"github.com/paperalign/paperalign/internal/index/vector"
	"github.com/paperalign/paperalign/internal/ingest"
)

func testCurator(t *testing.T) *Curator {
	t.Helper()
	paper := ingest.Paper{Paragraphs: []ingest.Paragraph{
		{Page: "1", Text: "We use a caching layer to store results."},
		{Page: "2", Text: "The benchmark dataset covers three domains."},
	}}
	texts := ingest.TextIndex{Entries: []ingest.TextEntry{
		{Path: "src/cache.py", Ext: ".py", Excerpt: "class CacheLayer:\n    def get(self): ..."},
		{Path: "src/train.py", Ext: ".py", Excerpt: "def train_loop(): ..."},
	}}
	symbols := ingest.SymbolIndex{Symbols: []ingest.Symbol{
		{Path: "src/cache.py", Name: "CacheLayer", Type: "class", Line: "10"},
	}}

	paperDocs := make([]lexical.Document, len(paper.Paragraphs))
	vecPaperDocs := make([]vector.Document, len(paper.Paragraphs))
	for i, p := range paper.Paragraphs {
		paperDocs[i] = lexical.Document{DocID: PaperDocID(i), Text: p.Text}
		vecPaperDocs[i] = vector.Document{DocID: PaperDocID(i), Text: p.Text}
	}
	codeDocs := make([]lexical.Document, len(texts.Entries))
	vecCodeDocs := make([]vector.Document, len(texts.Entries))
	for i, e := range texts.Entries {
		codeDocs[i] = lexical.Document{DocID: e.Path, Text: e.Path + " " + e.Excerpt}
		vecCodeDocs[i] = vector.Document{DocID: e.Path, Text: e.Path + " " + e.Excerpt}
	}

	ctx := context.Background()
	paperVec, err := vector.Build(ctx, vector.Options{Backend: vector.BackendTFIDF}, vecPaperDocs)
	if err != nil {
		t.Fatal(err)
	}
	codeVec, err := vector.Build(ctx, vector.Options{Backend: vector.BackendTFIDF}, vecCodeDocs)
	if err != nil {
		t.Fatal(err)
	}

	alignment := align.BuildMap(paper, symbols, texts, 0)
	return NewCurator(CuratorOptions{},
		Corpus{Lexical: lexical.Build(paperDocs, lexical.Options{}), Vector: paperVec},
		Corpus{Lexical: lexical.Build(codeDocs, lexical.Options{}), Vector: codeVec},
		alignment, paper, texts)
}

func TestCurateHybrid(t *testing.T) {
	c := testCurator(t)
	got, err := c.Curate(context.Background(), "How does the paper's caching map to the cache.py implementation?", RouteHybrid)
	if err != nil {
		t.Fatalf("curate: %v", err)
	}
	if got.InsufficientEvidence {
		t.Fatal("insufficient_evidence with matching corpora")
	}
	var paper, code, alignment int
	for _, e := range got.Evidence {
		switch e.Kind {
		case KindPaperHybrid:
			paper++
		case KindCodeHybrid:
			code++
		case align.KindSymbol, align.KindFile:
			alignment++
		}
	}
	if paper == 0 {
		t.Error("no paper evidence on hybrid route")
	}
	if code == 0 {
		t.Error("no code evidence on hybrid route")
	}
	if alignment == 0 {
		t.Error("no alignment evidence on hybrid route")
	}
	if alignment > 2 {
		t.Errorf("alignment items = %d, want at most 2", alignment)
	}
	if got.Mix.Paper+got.Mix.Code != len(got.Evidence) {
		t.Errorf("mix %+v does not sum to %d", got.Mix, len(got.Evidence))
	}
}

func TestCurateIdempotent(t *testing.T) {
	c := testCurator(t)
	question := "How does the paper's caching map to the cache.py implementation?"
	first, err := c.Curate(context.Background(), question, RouteHybrid)
	if err != nil {
		t.Fatal(err)
	}
	second, err := c.Curate(context.Background(), question, RouteHybrid)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("curator output differs between identical runs:\n%+v\n%+v", first, second)
	}
}

func TestCuratePaperOnlyExcludesCode(t *testing.T) {
	c := testCurator(t)
	got, err := c.Curate(context.Background(), "What dataset does the paper benchmark on?", RoutePaperOnly)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range got.Evidence {
		if e.Kind != KindPaperHybrid {
			t.Errorf("non-paper evidence on paper_only route: %+v", e)
		}
	}
}

func TestCurateInsufficientEvidence(t *testing.T) {
	c := NewCurator(CuratorOptions{},
		Corpus{Lexical: lexical.Build(nil, lexical.Options{})},
		Corpus{Lexical: lexical.Build(nil, lexical.Options{})},
		align.Map{}, ingest.Paper{}, ingest.TextIndex{})
	got, err := c.Curate(context.Background(), "anything at all", RouteFallback)
	if err != nil {
		t.Fatal(err)
	}
	if !got.InsufficientEvidence {
		t.Error("insufficient_evidence = false with empty corpora")
	}
	if len(got.Evidence) != 0 {
		t.Errorf("evidence = %+v, want empty", got.Evidence)
	}
}

func TestDedupe(t *testing.T) {
	a := Evidence{Kind: "symbol", Path: "src/cache.py", Line: "10", Name: "CacheLayer"}
	b := Evidence{Kind: "symbol", Path: "src/cache.py", Line: "10", Name: "CacheLayer", Score: 9}
	c := Evidence{Kind: "file", Path: "src/cache.py"}
	got := dedupe([]Evidence{a, b, c})
	if len(got) != 2 {
		t.Fatalf("dedupe kept %d items, want 2: %+v", len(got), got)
	}
	if got[0].Score != 0 {
		t.Errorf("dedupe did not keep the first-seen duplicate: %+v", got[0])
	}
}

func TestRelevanceFilterNeverEmpties(t *testing.T) {
	items := []Evidence{
		{Kind: KindPaperHybrid, Text: "totally unrelated paragraph"},
		{Kind: KindPaperHybrid, Text: "another unrelated paragraph"},
	}
	got := relevanceFilter("quantum chromodynamics lattice simulation details", items)
	if len(got) == 0 {
		t.Fatal("filter emptied a non-empty evidence set")
	}
	if len(got) > 3 {
		t.Errorf("fallback kept %d items, want at most 3", len(got))
	}
}

func TestRelevanceFilterShortQuery(t *testing.T) {
	items := []Evidence{
		{Kind: KindCodeHybrid, Path: "src/cache.py", Excerpt: "class CacheLayer"},
		{Kind: KindCodeHybrid, Path: "src/optim.py", Excerpt: "momentum update"},
	}
	got := relevanceFilter("cache", items)
	if len(got) != 1 || got[0].Path != "src/cache.py" {
		t.Errorf("short-query filter = %+v", got)
	}
}

func TestComputeMixUnknownKindCountsAsCode(t *testing.T) {
	mix := computeMix([]Evidence{
		{Kind: KindPaperHybrid},
		{Kind: "mystery"},
		{Kind: "symbol"},
	})
	if mix.Paper != 1 || mix.Code != 2 {
		t.Errorf("mix = %+v, want paper=1 code=2", mix)
	}
}
