// Package qa answers questions about a paper/code pair: it routes each
// question to the relevant evidence pools, curates a deterministic evidence
// set from the retrieval indices, and hands the result to the answer
// generator.
package qa

import (
	"regexp"
	"strings"
)

// Route classifies which evidence pools a question should draw from.
type Route string

const (
	RoutePaperOnly Route = "paper_only"
	RouteCodeOnly  Route = "code_only"
	RouteHybrid    Route = "hybrid"
	RouteFallback  Route = "fallback"
)

var paperMarkers = []string{
	"paper", "section", "figure", "equation", "theorem", "lemma",
	"dataset", "ablation", "abstract", "baseline", "benchmark",
	"experiment", "citation", "appendix",
}

var codeMarkers = []string{
	"code", "repo", "repository", "file", "function", "class",
	"endpoint", "implementation", "module", "method", "script",
	"variable", "dependency",
}

var fileExtension = regexp.MustCompile(`\.(py|ts|tsx|js|jsx|go|rs|java|c|cpp|h|md|json|yaml|yml|toml|sh|sql)\b`)

// RouteQuestion classifies a question by counting marker-word hits for the
// paper and code domains. Code-shaped punctuation and file extensions add
// to the code score. Empty questions fall back.
func RouteQuestion(question string) Route {
	if strings.TrimSpace(question) == "" {
		return RouteFallback
	}
	lower := strings.ToLower(question)

	paperScore := 0
	for _, marker := range paperMarkers {
		if strings.Contains(lower, marker) {
			paperScore++
		}
	}
	codeScore := 0
	for _, marker := range codeMarkers {
		if strings.Contains(lower, marker) {
			codeScore++
		}
	}
	if strings.ContainsAny(question, "/(`") || strings.Contains(question, "::") {
		codeScore++
	}
	if fileExtension.MatchString(lower) {
		codeScore += 2
	}

	switch {
	case paperScore >= 2 && codeScore == 0:
		return RoutePaperOnly
	case codeScore >= 2 && paperScore == 0:
		return RouteCodeOnly
	case paperScore > 0 && codeScore > 0:
		return RouteHybrid
	default:
		return RouteFallback
	}
}
