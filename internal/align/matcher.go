package align

import (
	"sort"

	"github.com/paperalign/paperalign/internal/index/token"
	"github.com/paperalign/paperalign/internal/ingest"
)

const (
	defaultTopN       = 5
	textExcerptLimit  = 240
	matchExcerptLimit = 200
)

// Match is one code entity aligned to a paragraph.
type Match struct {
	Kind          string   `json:"kind"`
	Path          string   `json:"path"`
	Name          string   `json:"name,omitempty"`
	Type          string   `json:"type,omitempty"`
	Line          string   `json:"line,omitempty"`
	Excerpt       string   `json:"excerpt"`
	MatchedTokens []string `json:"matched_tokens"`
	Score         int      `json:"score"`
}

// Result is the alignment outcome for one paragraph.
type Result struct {
	ParagraphIndex int     `json:"paragraph_index"`
	Page           string  `json:"page"`
	TextExcerpt    string  `json:"text_excerpt"`
	Confidence     float64 `json:"confidence"`
	Matches        []Match `json:"matches"`
}

// Map is the full paragraph-to-code alignment, persisted as
// alignment.json.
type Map struct {
	ParagraphCount int      `json:"paragraph_count"`
	MatchCount     int      `json:"match_count"`
	Results        []Result `json:"results"`
}

// BuildMap aligns every paper paragraph against the repository's symbols
// and files, keeping at most topN matches per paragraph (the default when
// topN is not positive). Paragraphs that tokenise to nothing are counted
// but produce no result.
func BuildMap(paper ingest.Paper, symbols ingest.SymbolIndex, texts ingest.TextIndex, topN int) Map {
	if topN <= 0 {
		topN = defaultTopN
	}
	lookup := textLookup(texts.Entries)
	symbolCands := symbolCandidates(symbols.Symbols, lookup)
	fileCands := fileCandidates(texts.Entries)
	symbolInverted := invertedIndex(symbolCands)
	fileInverted := invertedIndex(fileCands)

	out := Map{Results: []Result{}}
	out.ParagraphCount = len(paper.Paragraphs)
	for idx, paragraph := range paper.Paragraphs {
		tokens := token.Paragraph(paragraph.Text)
		if len(tokens) == 0 {
			continue
		}
		matches, confidence := rankCandidates(tokens, topN, symbolCands, fileCands, symbolInverted, fileInverted)
		out.Results = append(out.Results, Result{
			ParagraphIndex: idx,
			Page:           paragraph.Page,
			TextExcerpt:    truncate(paragraph.Text, textExcerptLimit),
			Confidence:     confidence,
			Matches:        matches,
		})
	}
	out.MatchCount = len(out.Results)
	return out
}

// rankCandidates scores every candidate sharing a token with the
// paragraph, keeps positive scores from both pools, and returns the top
// topN with the paragraph's confidence.
func rankCandidates(tokens []string, topN int, symbolCands, fileCands []Candidate, symbolInverted, fileInverted map[string][]int) ([]Match, float64) {
	tokenSet := make(map[string]struct{}, len(tokens))
	stemSet := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		tokenSet[t] = struct{}{}
		stemSet[token.Stem(t)] = struct{}{}
	}

	var scored []Match
	scored = appendScored(scored, stemSet, symbolCands, symbolInverted)
	scored = appendScored(scored, stemSet, fileCands, fileInverted)
	if len(scored) == 0 {
		return []Match{}, 0
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})
	if len(scored) > topN {
		scored = scored[:topN]
	}

	best := scored[0].Score
	confidence := float64(best) / float64(len(tokenSet))
	if confidence > 1 {
		confidence = 1
	}
	return scored, confidence
}

// appendScored walks only the candidates reachable through the inverted
// index and appends those with at least one stem-matched token, in
// candidate order. Matched tokens are recorded in their candidate form.
func appendScored(scored []Match, stemSet map[string]struct{}, candidates []Candidate, inverted map[string][]int) []Match {
	touched := make(map[int]struct{})
	var order []int
	for s := range stemSet {
		for _, i := range inverted[s] {
			if _, dup := touched[i]; dup {
				continue
			}
			touched[i] = struct{}{}
			order = append(order, i)
		}
	}
	sort.Ints(order)

	for _, i := range order {
		cand := candidates[i]
		var matched []string
		for _, t := range cand.Tokens {
			if _, ok := stemSet[token.Stem(t)]; ok {
				matched = append(matched, t)
			}
		}
		if len(matched) == 0 {
			continue
		}
		scored = append(scored, Match{
			Kind:          cand.Kind,
			Path:          cand.Path,
			Name:          cand.Name,
			Type:          cand.Type,
			Line:          cand.Line,
			Excerpt:       truncate(cand.Excerpt, matchExcerptLimit),
			MatchedTokens: matched,
			Score:         len(matched),
		})
	}
	return scored
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit]
}
