package vector

import (
	"context"
	"errors"
	"testing"

	apperrors "github.com/paperalign/paperalign/pkg/errors"
)

func TestBuildEmptyDocs(t *testing.T) {
	idx, err := Build(context.Background(), Options{Backend: BackendTFIDF}, nil)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if idx.Backend() != BackendEmpty {
		t.Errorf("backend = %q, want %q", idx.Backend(), BackendEmpty)
	}
	results, err := idx.Query(context.Background(), "anything", 5)
	if err != nil || results != nil {
		t.Errorf("empty index query = %v, %v; want nil, nil", results, err)
	}
}

func TestBuildUnknownBackend(t *testing.T) {
	_, err := Build(context.Background(), Options{Backend: "faiss"}, []Document{{DocID: "d1", Text: "text"}})
	if !errors.Is(err, apperrors.ErrVectorBackend) {
		t.Errorf("err = %v, want ErrVectorBackend", err)
	}
}

func TestTFIDFQueryRanking(t *testing.T) {
	docs := []Document{
		{DocID: "p0", Text: "We use a caching layer to store results."},
		{DocID: "p1", Text: "The optimizer uses momentum and weight decay."},
		{DocID: "p2", Text: "Our caching layer stores intermediate caching results."},
	}
	idx, err := Build(context.Background(), Options{Backend: BackendTFIDF}, docs)
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	results, err := idx.Query(context.Background(), "caching results", 5)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(results) == 0 {
		t.Fatal("no results")
	}
	for _, r := range results {
		if r.DocID == "p1" {
			t.Errorf("zero-similarity document p1 included: %v", results)
		}
		if r.Score <= 0 {
			t.Errorf("non-positive score leaked: %v", r)
		}
	}
	for i := 1; i < len(results); i++ {
		if results[i].Score > results[i-1].Score {
			t.Errorf("results not sorted descending: %v", results)
		}
	}
}

func TestTFIDFEmptyQuestion(t *testing.T) {
	idx, err := Build(context.Background(), Options{}, []Document{{DocID: "d1", Text: "caching layer"}})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	results, err := idx.Query(context.Background(), "!!", 5)
	if err != nil || results != nil {
		t.Errorf("query = %v, %v; want nil, nil", results, err)
	}
}

func TestTFIDFMaxTermsCap(t *testing.T) {
	idx := buildTFIDF(Options{MaxTerms: 2}, []Document{
		{DocID: "d1", Text: "alpha bravo charlie delta echo"},
	})
	if got := len(idx.vectors["d1"]); got != 2 {
		t.Errorf("vector has %d terms, want capped at 2", got)
	}
}

func TestTFIDFManifestRoundTrip(t *testing.T) {
	docs := []Document{
		{DocID: "p0", Text: "We use a caching layer to store results."},
		{DocID: "p1", Text: "Experiments run on the benchmark dataset."},
	}
	built, err := Build(context.Background(), Options{Backend: BackendTFIDF}, docs)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	manifest, err := built.Manifest()
	if err != nil {
		t.Fatalf("manifest: %v", err)
	}
	if manifest.Backend != BackendTFIDF {
		t.Fatalf("manifest backend = %q", manifest.Backend)
	}

	data, err := manifest.Marshal()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	loaded, err := Load(context.Background(), Options{}, data)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	want, _ := built.Query(context.Background(), "caching results", 5)
	got, err := loaded.Query(context.Background(), "caching results", 5)
	if err != nil {
		t.Fatalf("loaded query: %v", err)
	}
	if len(got) != len(want) {
		t.Fatalf("loaded query = %v, want %v", got, want)
	}
	for i := range got {
		if got[i].DocID != want[i].DocID {
			t.Errorf("rank %d: %q vs %q", i, got[i].DocID, want[i].DocID)
		}
	}
}

func TestLoadMalformedManifest(t *testing.T) {
	for _, input := range []string{"", "not json", "[]"} {
		idx, err := Load(context.Background(), Options{}, []byte(input))
		if err != nil {
			t.Fatalf("Load(%q): %v", input, err)
		}
		if idx.Backend() != BackendEmpty {
			t.Errorf("Load(%q).Backend() = %q, want empty", input, idx.Backend())
		}
	}
}

func TestCosine(t *testing.T) {
	a := map[string]float64{"x": 1, "y": 1}
	if got := cosine(a, a); got < 0.999 || got > 1.001 {
		t.Errorf("cosine(a, a) = %f, want 1", got)
	}
	b := map[string]float64{"z": 1}
	if got := cosine(a, b); got != 0 {
		t.Errorf("cosine of disjoint vectors = %f, want 0", got)
	}
	if got := cosine(a, map[string]float64{}); got != 0 {
		t.Errorf("cosine with empty vector = %f, want 0", got)
	}
}
