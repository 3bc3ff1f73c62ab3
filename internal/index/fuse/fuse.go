// Package fuse merges ranked result lists with Reciprocal Rank Fusion.
// RRF only looks at positions, which makes it robust to the incomparable
// score scales of BM25 and cosine similarity.
package fuse

import "sort"

// DefaultRRFK is the standard RRF dampening constant.
const DefaultRRFK = 60

// Entry is one ranked item. Input lists must already be sorted descending;
// the input Score is ignored by fusion and the output Score is the fused
// RRF score.
type Entry struct {
	DocID string
	Score float64
}

// RRF fuses the given ranked lists: each occurrence of a doc at 1-based
// rank r contributes 1/(rrfK + r). Returns the top topK ids by fused score
// descending, doc id ascending on ties.
func RRF(lists [][]Entry, rrfK, topK int) []Entry {
	if rrfK <= 0 {
		rrfK = DefaultRRFK
	}
	fused := make(map[string]float64)
	for _, list := range lists {
		for i, entry := range list {
			if entry.DocID == "" {
				continue
			}
			fused[entry.DocID] += 1 / float64(rrfK+i+1)
		}
	}
	if len(fused) == 0 {
		return nil
	}

	out := make([]Entry, 0, len(fused))
	for docID, score := range fused {
		out = append(out, Entry{DocID: docID, Score: score})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].DocID < out[j].DocID
	})
	if topK > 0 && len(out) > topK {
		out = out[:topK]
	}
	return out
}
