// Package lexical implements an inverted index with Okapi BM25 scoring.
// The index is built in a single pass over a document set, is immutable
// once built, and serialises to a portable JSON format.
package lexical

import (
	"encoding/json"
	"math"
	"sort"

	"github.com/paperalign/paperalign/internal/index/token"
)

// SchemaVersion identifies the on-disk index format.
const SchemaVersion = 2

// BM25 defaults applied when an Options field is zero.
const (
	DefaultK1      = 1.2
	DefaultB       = 0.75
	DefaultEpsilon = 0.25
)

// Document is a unit of indexable text with a caller-assigned id.
type Document struct {
	DocID string `json:"doc_id"`
	Text  string `json:"text"`
}

// Posting records one document's term frequency for a term. It serialises
// as a two-element array [doc_id, tf].
type Posting struct {
	DocID string
	TF    int
}

// MarshalJSON emits the posting as ["doc_id", tf].
func (p Posting) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]any{p.DocID, p.TF})
}

// UnmarshalJSON accepts ["doc_id", tf]. Malformed entries decode to the
// zero Posting, which loaders drop.
func (p *Posting) UnmarshalJSON(data []byte) error {
	var pair []json.RawMessage
	if err := json.Unmarshal(data, &pair); err != nil || len(pair) != 2 {
		return nil
	}
	var docID string
	if err := json.Unmarshal(pair[0], &docID); err != nil {
		return nil
	}
	var tf float64
	if err := json.Unmarshal(pair[1], &tf); err != nil {
		return nil
	}
	p.DocID = docID
	p.TF = int(tf)
	return nil
}

// Result is a scored document returned by Query.
type Result struct {
	DocID string
	Score float64
}

// Options carries the BM25 tuning constants. Zero fields take the package
// defaults.
type Options struct {
	K1      float64
	B       float64
	Epsilon float64
}

func (o Options) withDefaults() Options {
	if o.K1 == 0 {
		o.K1 = DefaultK1
	}
	if o.B == 0 {
		o.B = DefaultB
	}
	if o.Epsilon == 0 {
		o.Epsilon = DefaultEpsilon
	}
	return o
}

// Index is a built BM25 inverted index. All maps are read-only after Build.
type Index struct {
	SchemaVersion int                  `json:"schema_version"`
	DocCount      int                  `json:"doc_count"`
	AvgDocLen     float64              `json:"avgdl"`
	K1            float64              `json:"k1"`
	B             float64              `json:"b"`
	Epsilon       float64              `json:"epsilon"`
	IDF           map[string]float64   `json:"idf"`
	DocLen        map[string]int       `json:"doc_len"`
	Postings      map[string][]Posting `json:"postings"`
}

// Build constructs a BM25 index over docs. Documents with an empty id are
// dropped. Building from zero documents yields a valid empty index.
func Build(docs []Document, opts Options) *Index {
	opts = opts.withDefaults()
	idx := &Index{
		SchemaVersion: SchemaVersion,
		K1:            opts.K1,
		B:             opts.B,
		Epsilon:       opts.Epsilon,
		IDF:           make(map[string]float64),
		DocLen:        make(map[string]int),
		Postings:      make(map[string][]Posting),
	}

	df := make(map[string]int)
	totalLen := 0
	for _, doc := range docs {
		if doc.DocID == "" {
			continue
		}
		tokens := token.Document(doc.Text)
		idx.DocLen[doc.DocID] = len(tokens)
		idx.DocCount++
		totalLen += len(tokens)

		tf := make(map[string]int)
		for _, t := range tokens {
			tf[t]++
		}
		terms := make([]string, 0, len(tf))
		for term := range tf {
			terms = append(terms, term)
		}
		sort.Strings(terms)
		for _, term := range terms {
			df[term]++
			idx.Postings[term] = append(idx.Postings[term], Posting{DocID: doc.DocID, TF: tf[term]})
		}
	}

	if idx.DocCount > 0 {
		idx.AvgDocLen = float64(totalLen) / float64(idx.DocCount)
	}

	n := float64(idx.DocCount)
	for term, count := range df {
		idx.IDF[term] = math.Log((n - float64(count) + 0.5) / (float64(count) + 0.5))
	}

	// Floor negative idf values at epsilon times the mean idf so rare
	// terms never score below common ones by sign alone.
	if len(idx.IDF) > 0 && opts.Epsilon > 0 {
		sum := 0.0
		for _, v := range idx.IDF {
			sum += v
		}
		mean := sum / float64(len(idx.IDF))
		if mean > 0 {
			floor := opts.Epsilon * mean
			for term, v := range idx.IDF {
				if v < 0 {
					idx.IDF[term] = floor
				}
			}
		}
	}
	return idx
}

// Query scores the question against the index and returns up to topK
// documents ordered by score descending, doc id ascending on ties. An
// empty or unbuilt index returns nil.
func (idx *Index) Query(question string, topK int) []Result {
	if idx == nil || idx.AvgDocLen <= 0 || len(idx.Postings) == 0 || len(idx.DocLen) == 0 {
		return nil
	}
	tokens := token.Document(question)
	if len(tokens) == 0 {
		return nil
	}

	seen := make(map[string]struct{}, len(tokens))
	scores := make(map[string]float64)
	for _, t := range tokens {
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}

		idf := idx.IDF[t]
		if idf <= 0 {
			continue
		}
		for _, posting := range idx.Postings[t] {
			dl := float64(idx.DocLen[posting.DocID])
			if dl <= 0 || posting.TF <= 0 {
				continue
			}
			tf := float64(posting.TF)
			denom := tf + idx.K1*(1-idx.B+idx.B*dl/idx.AvgDocLen)
			if denom <= 0 {
				continue
			}
			scores[posting.DocID] += idf * tf * (idx.K1 + 1) / denom
		}
	}
	if len(scores) == 0 {
		return nil
	}

	results := make([]Result, 0, len(scores))
	for docID, score := range scores {
		results = append(results, Result{DocID: docID, Score: score})
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].DocID < results[j].DocID
	})
	if topK > 0 && len(results) > topK {
		results = results[:topK]
	}
	return results
}

// Marshal serialises the index to its portable JSON form.
func (idx *Index) Marshal() ([]byte, error) {
	return json.MarshalIndent(idx, "", "  ")
}

// Load parses a serialised index. Malformed input yields a valid empty
// index rather than an error; postings with non-positive term frequency
// are dropped.
func Load(data []byte) *Index {
	idx := &Index{
		SchemaVersion: SchemaVersion,
		IDF:           make(map[string]float64),
		DocLen:        make(map[string]int),
		Postings:      make(map[string][]Posting),
	}
	if len(data) == 0 {
		return idx
	}
	var parsed Index
	if err := json.Unmarshal(data, &parsed); err != nil {
		return idx
	}
	if parsed.IDF != nil {
		idx.IDF = parsed.IDF
	}
	if parsed.DocLen != nil {
		idx.DocLen = parsed.DocLen
	}
	for term, postings := range parsed.Postings {
		kept := postings[:0]
		for _, p := range postings {
			if p.DocID == "" || p.TF <= 0 {
				continue
			}
			kept = append(kept, p)
		}
		if len(kept) > 0 {
			idx.Postings[term] = kept
		}
	}
	idx.SchemaVersion = parsed.SchemaVersion
	idx.DocCount = parsed.DocCount
	idx.AvgDocLen = parsed.AvgDocLen
	idx.K1 = parsed.K1
	idx.B = parsed.B
	idx.Epsilon = parsed.Epsilon
	if idx.K1 == 0 {
		idx.K1 = DefaultK1
	}
	if idx.B == 0 {
		idx.B = DefaultB
	}
	return idx
}
