package analytics

import (
	"testing"
)

func TestAggregatorRecordsQuestions(t *testing.T) {
	a := NewAggregator(nil)

	a.RecordQuestion(QuestionEvent{Type: EventQuestion, Route: "hybrid", Question: "how does caching work", LatencyMs: 40, CacheHit: false})
	a.RecordQuestion(QuestionEvent{Type: EventQuestion, Route: "hybrid", Question: "how does caching work", LatencyMs: 2, CacheHit: true})
	a.RecordQuestion(QuestionEvent{Type: EventQuestion, Route: "code_only", Question: "where is main", LatencyMs: 30, InsufficientEvidence: true})
	a.RecordIngest(IngestEvent{Type: EventIngest, Stage: "code"})

	stats := a.Stats()
	if stats.TotalQuestions != 3 {
		t.Errorf("TotalQuestions = %d, want 3", stats.TotalQuestions)
	}
	if stats.TotalIngests != 1 {
		t.Errorf("TotalIngests = %d, want 1", stats.TotalIngests)
	}
	if stats.CacheHits != 1 || stats.CacheMisses != 2 {
		t.Errorf("cache hits/misses = %d/%d, want 1/2", stats.CacheHits, stats.CacheMisses)
	}
	if stats.InsufficientCount != 1 {
		t.Errorf("InsufficientCount = %d, want 1", stats.InsufficientCount)
	}
	if stats.RouteCounts["hybrid"] != 2 || stats.RouteCounts["code_only"] != 1 {
		t.Errorf("RouteCounts = %v", stats.RouteCounts)
	}
	if len(stats.TopQuestions) == 0 || stats.TopQuestions[0].Question != "how does caching work" {
		t.Errorf("TopQuestions = %v", stats.TopQuestions)
	}
	if stats.AvgLatencyMs != 24 {
		t.Errorf("AvgLatencyMs = %v, want 24", stats.AvgLatencyMs)
	}
}

func TestPercentile(t *testing.T) {
	sorted := []int64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	tests := []struct {
		pct  int
		want int64
	}{
		{50, 6},
		{95, 10},
		{99, 10},
	}
	for _, tt := range tests {
		if got := percentile(sorted, tt.pct); got != tt.want {
			t.Errorf("percentile(%d) = %d, want %d", tt.pct, got, tt.want)
		}
	}
	if got := percentile(nil, 50); got != 0 {
		t.Errorf("percentile(nil) = %d, want 0", got)
	}
}

func TestTopNTieBreak(t *testing.T) {
	counts := map[string]int64{"b": 2, "a": 2, "c": 5}
	got := topN(counts, 2)
	if len(got) != 2 || got[0].Question != "c" || got[1].Question != "a" {
		t.Errorf("topN = %v", got)
	}
}

func TestHandleEventDecodesBothTypes(t *testing.T) {
	a := NewAggregator(nil)

	question := []byte(`{"type":"question","route":"fallback","question":"q","latency_ms":5,"timestamp":"2026-08-31T00:00:00Z"}`)
	if err := a.handleEvent(t.Context(), nil, question); err != nil {
		t.Fatalf("handleEvent(question): %v", err)
	}
	ingest := []byte(`{"type":"ingest","stage":"paper"}`)
	if err := a.handleEvent(t.Context(), nil, ingest); err != nil {
		t.Fatalf("handleEvent(ingest): %v", err)
	}
	garbage := []byte(`not json`)
	if err := a.handleEvent(t.Context(), nil, garbage); err != nil {
		t.Fatalf("handleEvent(garbage) should not error: %v", err)
	}

	stats := a.Stats()
	if stats.TotalQuestions != 1 || stats.TotalIngests != 1 {
		t.Errorf("stats = %+v", stats)
	}
}
