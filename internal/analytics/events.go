// Package analytics tracks question and ingest activity. A Collector
// buffers events and publishes them to Kafka; an Aggregator consumes
// them and serves rolling statistics.
package analytics

import "time"

type EventType string

const (
	EventQuestion EventType = "question"
	EventIngest   EventType = "ingest"
)

// QuestionEvent records one answered question.
type QuestionEvent struct {
	Type                 EventType `json:"type"`
	ProjectID            string    `json:"project_id"`
	Question             string    `json:"question"`
	Route                string    `json:"route"`
	EvidenceCount        int       `json:"evidence_count"`
	InsufficientEvidence bool      `json:"insufficient_evidence"`
	CacheHit             bool      `json:"cache_hit"`
	LatencyMs            int64     `json:"latency_ms"`
	Timestamp            time.Time `json:"timestamp"`
	RequestID            string    `json:"request_id,omitempty"`
}

// IngestEvent records one ingest or index-build pass.
type IngestEvent struct {
	Type           EventType `json:"type"`
	ProjectID      string    `json:"project_id"`
	Stage          string    `json:"stage"`
	FileCount      int       `json:"file_count"`
	SymbolCount    int       `json:"symbol_count"`
	ParagraphCount int       `json:"paragraph_count"`
	LatencyMs      int64     `json:"latency_ms"`
	Timestamp      time.Time `json:"timestamp"`
}
