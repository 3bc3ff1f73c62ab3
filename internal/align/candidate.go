// Package align builds the static paragraph-to-code alignment map: for
// every paper paragraph it finds the code symbols and files whose token
// sets overlap the paragraph's tokens, ranked by overlap count.
package align

import (
	"github.com/paperalign/paperalign/internal/index/token"
	"github.com/paperalign/paperalign/internal/ingest"
)

// Candidate kinds.
const (
	KindSymbol = "symbol"
	KindFile   = "file"
)

// Candidate is a matchable code entity with its precomputed token set.
type Candidate struct {
	Kind    string
	Path    string
	Name    string
	Type    string
	Line    string
	Excerpt string
	Tokens  []string
}

// textLookup maps file path to excerpt. The first excerpt seen per path
// wins.
func textLookup(entries []ingest.TextEntry) map[string]string {
	lookup := make(map[string]string, len(entries))
	for _, entry := range entries {
		if entry.Path == "" {
			continue
		}
		if _, seen := lookup[entry.Path]; seen {
			continue
		}
		lookup[entry.Path] = entry.Excerpt
	}
	return lookup
}

// symbolCandidates derives one candidate per symbol, tokenised with the
// identifier policy from its name and its path. Excerpts come from the
// text index when the symbol's file has one.
func symbolCandidates(symbols []ingest.Symbol, lookup map[string]string) []Candidate {
	candidates := make([]Candidate, 0, len(symbols))
	for _, sym := range symbols {
		tokens := append(token.Identifier(sym.Name), token.Identifier(sym.Path)...)
		candidates = append(candidates, Candidate{
			Kind:    KindSymbol,
			Path:    sym.Path,
			Name:    sym.Name,
			Type:    sym.Type,
			Line:    sym.Line,
			Excerpt: lookup[sym.Path],
			Tokens:  tokens,
		})
	}
	return candidates
}

// fileCandidates derives one candidate per text-index entry, tokenised
// from its path only.
func fileCandidates(entries []ingest.TextEntry) []Candidate {
	candidates := make([]Candidate, 0, len(entries))
	for _, entry := range entries {
		candidates = append(candidates, Candidate{
			Kind:    KindFile,
			Path:    entry.Path,
			Excerpt: entry.Excerpt,
			Tokens:  token.Identifier(entry.Path),
		})
	}
	return candidates
}

// invertedIndex maps candidate token stems to the indices of candidates
// carrying them, so matching touches only candidates sharing at least one
// stem. Stemmed keys let inflected paragraph words reach identifier
// pieces ("caching" finds "cache").
func invertedIndex(candidates []Candidate) map[string][]int {
	inverted := make(map[string][]int)
	for i, cand := range candidates {
		seen := make(map[string]struct{}, len(cand.Tokens))
		for _, t := range cand.Tokens {
			stem := token.Stem(t)
			if _, dup := seen[stem]; dup {
				continue
			}
			seen[stem] = struct{}{}
			inverted[stem] = append(inverted[stem], i)
		}
	}
	return inverted
}
