package analytics

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/paperalign/paperalign/pkg/kafka"
)

// AggregatedStats is the rolling view served at the analytics endpoint.
type AggregatedStats struct {
	TotalQuestions     int64            `json:"total_questions"`
	TotalIngests       int64            `json:"total_ingests"`
	CacheHits          int64            `json:"cache_hits"`
	CacheMisses        int64            `json:"cache_misses"`
	InsufficientCount  int64            `json:"insufficient_count"`
	RouteCounts        map[string]int64 `json:"route_counts"`
	AvgLatencyMs       float64          `json:"avg_latency_ms"`
	P50LatencyMs       int64            `json:"p50_latency_ms"`
	P95LatencyMs       int64            `json:"p95_latency_ms"`
	P99LatencyMs       int64            `json:"p99_latency_ms"`
	TopQuestions       []QuestionCount  `json:"top_questions"`
	QuestionsPerMinute float64          `json:"questions_per_minute"`
}

type QuestionCount struct {
	Question string `json:"question"`
	Count    int64  `json:"count"`
}

// Aggregator consumes analytics events and maintains in-memory counters.
type Aggregator struct {
	mu             sync.RWMutex
	totalQuestions atomic.Int64
	totalIngests   atomic.Int64
	cacheHits      atomic.Int64
	cacheMisses    atomic.Int64
	insufficient   atomic.Int64
	latencies      []int64
	routeCounts    map[string]int64
	questionCounts map[string]int64
	startTime      time.Time

	consumers []*kafka.Consumer
	logger    *slog.Logger
}

// NewAggregator takes one consumer per analytics topic.
func NewAggregator(consumers ...*kafka.Consumer) *Aggregator {
	return &Aggregator{
		latencies:      make([]int64, 0, 10000),
		routeCounts:    make(map[string]int64),
		questionCounts: make(map[string]int64),
		startTime:      time.Now(),
		consumers:      consumers,
		logger:         slog.Default().With("component", "analytics-aggregator"),
	}
}

// Start consumes events from every topic until ctx is cancelled.
func (a *Aggregator) Start(ctx context.Context) error {
	a.logger.Info("analytics aggregator starting", "topics", len(a.consumers))
	g, gctx := errgroup.WithContext(ctx)
	for _, consumer := range a.consumers {
		if consumer == nil {
			continue
		}
		g.Go(func() error { return consumer.Run(gctx, a.handleEvent) })
	}
	return g.Wait()
}

func (a *Aggregator) handleEvent(ctx context.Context, key, value []byte) error {
	event, err := kafka.DecodeJSON[QuestionEvent](value)
	if err == nil && event.Type == EventQuestion {
		a.RecordQuestion(event)
		return nil
	}
	ingest, ingErr := kafka.DecodeJSON[IngestEvent](value)
	if ingErr == nil && ingest.Type == EventIngest {
		a.RecordIngest(ingest)
		return nil
	}
	// Unknown events are logged and committed, never redelivered.
	a.logger.Error("failed to decode analytics event", "error", err)
	return nil
}

func (a *Aggregator) RecordQuestion(event QuestionEvent) {
	a.totalQuestions.Add(1)
	if event.CacheHit {
		a.cacheHits.Add(1)
	} else {
		a.cacheMisses.Add(1)
	}
	if event.InsufficientEvidence {
		a.insufficient.Add(1)
	}

	a.mu.Lock()
	a.latencies = append(a.latencies, event.LatencyMs)
	a.routeCounts[event.Route]++
	a.questionCounts[event.Question]++
	a.mu.Unlock()
}

func (a *Aggregator) RecordIngest(IngestEvent) {
	a.totalIngests.Add(1)
}

func (a *Aggregator) Stats() AggregatedStats {
	a.mu.RLock()
	defer a.mu.RUnlock()

	stats := AggregatedStats{
		TotalQuestions:    a.totalQuestions.Load(),
		TotalIngests:      a.totalIngests.Load(),
		CacheHits:         a.cacheHits.Load(),
		CacheMisses:       a.cacheMisses.Load(),
		InsufficientCount: a.insufficient.Load(),
		RouteCounts:       make(map[string]int64, len(a.routeCounts)),
	}
	for route, count := range a.routeCounts {
		stats.RouteCounts[route] = count
	}

	if len(a.latencies) > 0 {
		sorted := make([]int64, len(a.latencies))
		copy(sorted, a.latencies)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

		var sum int64
		for _, l := range sorted {
			sum += l
		}
		stats.AvgLatencyMs = float64(sum) / float64(len(sorted))
		stats.P50LatencyMs = percentile(sorted, 50)
		stats.P95LatencyMs = percentile(sorted, 95)
		stats.P99LatencyMs = percentile(sorted, 99)
	}

	stats.TopQuestions = topN(a.questionCounts, 10)
	elapsed := time.Since(a.startTime).Minutes()
	if elapsed > 0 {
		stats.QuestionsPerMinute = float64(stats.TotalQuestions) / elapsed
	}
	return stats
}

func percentile(sorted []int64, pct int) int64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := (pct * len(sorted)) / 100
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

func topN(counts map[string]int64, n int) []QuestionCount {
	result := make([]QuestionCount, 0, len(counts))
	for q, count := range counts {
		result = append(result, QuestionCount{Question: q, Count: count})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Count != result[j].Count {
			return result[i].Count > result[j].Count
		}
		return result[i].Question < result[j].Question
	})
	if len(result) > n {
		result = result[:n]
	}
	return result
}
