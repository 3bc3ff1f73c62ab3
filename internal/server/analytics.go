package server

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/paperalign/paperalign/internal/analytics"
)

// AnalyticsStats serves the aggregator's rolling statistics.
func AnalyticsStats(aggregator *analytics.Aggregator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		if err := json.NewEncoder(w).Encode(aggregator.Stats()); err != nil {
			slog.Default().Error("failed to write analytics response", "error", err)
		}
	}
}
