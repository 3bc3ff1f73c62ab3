package vector

import (
	"context"
	"encoding/json"
	"math"
	"sort"

	"github.com/paperalign/paperalign/internal/index/token"
)

// DefaultMaxTerms caps each TF-IDF document vector to the highest-weight
// terms.
const DefaultMaxTerms = 200

// tfidfIndex is the in-process fallback backend: sparse TF-IDF vectors
// compared by cosine similarity. It needs no external services and is the
// backend of last resort when no embedder is configured.
type tfidfIndex struct {
	docIDs   []string
	docCount int
	maxTerms int
	idf      map[string]float64
	vectors  map[string]map[string]float64
}

type tfidfPayload struct {
	DocCount int                           `json:"doc_count"`
	MaxTerms int                           `json:"max_terms"`
	IDF      map[string]float64            `json:"idf"`
	Vectors  map[string]map[string]float64 `json:"vectors"`
}

func buildTFIDF(opts Options, docs []Document) *tfidfIndex {
	maxTerms := opts.MaxTerms
	if maxTerms <= 0 {
		maxTerms = DefaultMaxTerms
	}
	idx := &tfidfIndex{
		docCount: len(docs),
		maxTerms: maxTerms,
		idf:      make(map[string]float64),
		vectors:  make(map[string]map[string]float64, len(docs)),
	}

	termFreqs := make([]map[string]int, len(docs))
	df := make(map[string]int)
	for i, doc := range docs {
		idx.docIDs = append(idx.docIDs, doc.DocID)
		tf := make(map[string]int)
		for _, t := range token.Document(doc.Text) {
			tf[t]++
		}
		termFreqs[i] = tf
		for term := range tf {
			df[term]++
		}
	}

	n := float64(len(docs))
	for term, count := range df {
		idx.idf[term] = math.Log((1+n)/(1+float64(count))) + 1
	}

	for i, doc := range docs {
		idx.vectors[doc.DocID] = idx.weigh(termFreqs[i])
	}
	return idx
}

// weigh converts raw term frequencies into a TF-IDF vector capped to
// maxTerms dimensions. Ties on weight break by term so builds are
// deterministic.
func (idx *tfidfIndex) weigh(tf map[string]int) map[string]float64 {
	type weighted struct {
		term   string
		weight float64
	}
	entries := make([]weighted, 0, len(tf))
	for term, count := range tf {
		idf, ok := idx.idf[term]
		if !ok {
			idf = math.Log(1+float64(idx.docCount)) + 1
		}
		entries = append(entries, weighted{term: term, weight: float64(count) * idf})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].weight != entries[j].weight {
			return entries[i].weight > entries[j].weight
		}
		return entries[i].term < entries[j].term
	})
	if len(entries) > idx.maxTerms {
		entries = entries[:idx.maxTerms]
	}
	vec := make(map[string]float64, len(entries))
	for _, e := range entries {
		vec[e.term] = e.weight
	}
	return vec
}

func (idx *tfidfIndex) Backend() string  { return BackendTFIDF }
func (idx *tfidfIndex) DocIDs() []string { return idx.docIDs }
func (idx *tfidfIndex) Dim() int         { return len(idx.idf) }

// Query builds a TF-IDF vector from the question and ranks documents by
// cosine similarity. Exact-zero similarities are excluded.
func (idx *tfidfIndex) Query(_ context.Context, question string, topK int) ([]Result, error) {
	tf := make(map[string]int)
	for _, t := range token.Document(question) {
		tf[t]++
	}
	if len(tf) == 0 {
		return nil, nil
	}
	query := idx.weigh(tf)

	results := make([]Result, 0, len(idx.docIDs))
	for _, docID := range idx.docIDs {
		score := cosine(query, idx.vectors[docID])
		if score == 0 {
			continue
		}
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
	return results, nil
}

func (idx *tfidfIndex) Manifest() (*Manifest, error) {
	payload, err := json.Marshal(tfidfPayload{
		DocCount: idx.docCount,
		MaxTerms: idx.maxTerms,
		IDF:      idx.idf,
		Vectors:  idx.vectors,
	})
	if err != nil {
		return nil, err
	}
	return &Manifest{
		Backend: BackendTFIDF,
		DocIDs:  idx.docIDs,
		Dim:     len(idx.idf),
		Payload: payload,
	}, nil
}

func loadTFIDF(manifest *Manifest) (Index, error) {
	var payload tfidfPayload
	if err := json.Unmarshal(manifest.Payload, &payload); err != nil {
		return nil, manifestError(BackendTFIDF, err)
	}
	idx := &tfidfIndex{
		docIDs:   manifest.DocIDs,
		docCount: payload.DocCount,
		maxTerms: payload.MaxTerms,
		idf:      payload.IDF,
		vectors:  payload.Vectors,
	}
	if idx.maxTerms <= 0 {
		idx.maxTerms = DefaultMaxTerms
	}
	if idx.idf == nil {
		idx.idf = make(map[string]float64)
	}
	if idx.vectors == nil {
		idx.vectors = make(map[string]map[string]float64)
	}
	return idx, nil
}

// cosine computes cosine similarity over the intersection of nonzero
// dimensions of two sparse vectors.
func cosine(a, b map[string]float64) float64 {
	var dot, normA, normB float64
	for term, av := range a {
		normA += av * av
		if bv, ok := b[term]; ok {
			dot += av * bv
		}
	}
	for _, bv := range b {
		normB += bv * bv
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / math.Sqrt(normA*normB)
}
