package fuse

import (
	"math"
	"testing"
)

func TestRRFSingleList(t *testing.T) {
	lists := [][]Entry{
		{{DocID: "a", Score: 9.1}, {DocID: "b", Score: 3.2}},
	}
	got := RRF(lists, DefaultRRFK, 5)
	if len(got) != 2 {
		t.Fatalf("got %d entries, want 2", len(got))
	}
	if got[0].DocID != "a" || got[1].DocID != "b" {
		t.Errorf("order = %v", got)
	}
	want := 1.0 / (60 + 1)
	if math.Abs(got[0].Score-want) > 1e-12 {
		t.Errorf("fused score = %f, want %f", got[0].Score, want)
	}
}

func TestRRFIgnoresInputScores(t *testing.T) {
	// Wildly different score scales must not matter, only positions.
	lexical := []Entry{{DocID: "a", Score: 12.7}, {DocID: "b", Score: 0.3}}
	dense := []Entry{{DocID: "a", Score: 0.91}, {DocID: "b", Score: 0.90}}
	got := RRF([][]Entry{lexical, dense}, DefaultRRFK, 5)
	if got[0].DocID != "a" {
		t.Errorf("top doc = %q, want a", got[0].DocID)
	}
	wantA := 2.0 / 61
	if math.Abs(got[0].Score-wantA) > 1e-12 {
		t.Errorf("score of a = %f, want %f", got[0].Score, wantA)
	}
}

func TestRRFCrossListBoost(t *testing.T) {
	// X leads list A and is absent from B; Y trails A but appears in B.
	// X's fused score must still be at least its single-list score.
	a := []Entry{{DocID: "x"}, {DocID: "y"}}
	b := []Entry{{DocID: "y"}, {DocID: "z"}}
	got := RRF([][]Entry{a, b}, DefaultRRFK, 5)

	scores := make(map[string]float64)
	for _, e := range got {
		scores[e.DocID] = e.Score
	}
	singleX := 1.0 / 61
	if scores["x"] < singleX {
		t.Errorf("score of x = %f, below single-list contribution %f", scores["x"], singleX)
	}
	// y appears at rank 2 and rank 1, so it overtakes x.
	if got[0].DocID != "y" {
		t.Errorf("top doc = %q, want y", got[0].DocID)
	}
}

func TestRRFTieBreakByDocID(t *testing.T) {
	a := []Entry{{DocID: "zzz"}}
	b := []Entry{{DocID: "aaa"}}
	got := RRF([][]Entry{a, b}, DefaultRRFK, 5)
	if len(got) != 2 || got[0].DocID != "aaa" || got[1].DocID != "zzz" {
		t.Errorf("tie not broken by doc id: %v", got)
	}
}

func TestRRFEmpty(t *testing.T) {
	if got := RRF(nil, DefaultRRFK, 5); got != nil {
		t.Errorf("RRF(nil) = %v, want nil", got)
	}
	if got := RRF([][]Entry{{}, {}}, 0, 5); got != nil {
		t.Errorf("RRF of empty lists = %v, want nil", got)
	}
}

func TestRRFTopK(t *testing.T) {
	list := []Entry{{DocID: "a"}, {DocID: "b"}, {DocID: "c"}, {DocID: "d"}}
	got := RRF([][]Entry{list}, DefaultRRFK, 2)
	if len(got) != 2 {
		t.Errorf("got %d entries, want 2", len(got))
	}
}
