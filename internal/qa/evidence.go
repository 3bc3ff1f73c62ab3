package qa

import (
	"context"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/paperalign/paperalign/internal/align"
	"github.com/paperalign/paperalign/internal/index/fuse"
	"github.com/paperalign/paperalign/internal/index/lexical"
	"github.com/paperalign/paperalign/internal/index/token"
	"github.com/paperalign/paperalign/internal/index/vector"
	"github.com/paperalign/paperalign/internal/ingest"
)

// Evidence kinds produced by the curator.
const (
	KindPaperHybrid = "paper_hybrid"
	KindCodeHybrid  = "code_hybrid"
)

// Evidence is one curated item handed to the answer generator. Identity
// for deduplication is (kind, path, line, name, paragraph_index, doc_id)
// with missing fields as empty strings.
type Evidence struct {
	Kind           string  `json:"kind"`
	DocID          string  `json:"doc_id,omitempty"`
	Path           string  `json:"path,omitempty"`
	Name           string  `json:"name,omitempty"`
	Line           string  `json:"line,omitempty"`
	ParagraphIndex string  `json:"paragraph_index,omitempty"`
	Page           string  `json:"page,omitempty"`
	Score          float64 `json:"score"`
	Text           string  `json:"text,omitempty"`
	Excerpt        string  `json:"excerpt,omitempty"`
}

func (e Evidence) identity() string {
	return strings.Join([]string{e.Kind, e.Path, e.Line, e.Name, e.ParagraphIndex, e.DocID}, "\x1f")
}

// isPaperTagged reports whether the item counts on the paper side of the
// evidence mix. Unknown kinds count as code.
func (e Evidence) isPaperTagged() bool {
	return strings.HasPrefix(e.Kind, "paper")
}

// Mix summarises the paper/code split of the curated evidence.
type Mix struct {
	Paper    int     `json:"paper"`
	Code     int     `json:"code"`
	PaperPct float64 `json:"paper_pct"`
	CodePct  float64 `json:"code_pct"`
}

// Curated is the curator's output for one question.
type Curated struct {
	Route                Route      `json:"route"`
	Evidence             []Evidence `json:"evidence"`
	Mix                  Mix        `json:"evidence_mix"`
	InsufficientEvidence bool       `json:"insufficient_evidence"`
}

// Corpus bundles the two retrieval indices over one document set.
type Corpus struct {
	Lexical *lexical.Index
	Vector  vector.Index
}

// CuratorOptions carries the retrieval constants. Zero fields take the
// documented defaults.
type CuratorOptions struct {
	TopK      int // per-signal retrieval depth
	FusedTopK int // RRF results kept per corpus
	RRFK      int
	AlignMax  int // alignment items appended on hybrid routes
}

func (o CuratorOptions) withDefaults() CuratorOptions {
	if o.TopK <= 0 {
		o.TopK = 5
	}
	if o.FusedTopK <= 0 {
		o.FusedTopK = 3
	}
	if o.RRFK <= 0 {
		o.RRFK = fuse.DefaultRRFK
	}
	if o.AlignMax <= 0 {
		o.AlignMax = 2
	}
	return o
}

// Curator assembles evidence for a routed question from the paper and code
// corpora plus the static alignment map.
type Curator struct {
	opts      CuratorOptions
	paper     Corpus
	code      Corpus
	alignment align.Map

	paragraphs map[string]ingest.Paragraph // paper doc id -> source paragraph
	excerpts   map[string]string           // code doc id (path) -> excerpt
}

// NewCurator builds a Curator. Paper documents are labelled p<index>; code
// documents are labelled by path.
func NewCurator(opts CuratorOptions, paper Corpus, code Corpus, alignment align.Map, paperDoc ingest.Paper, texts ingest.TextIndex) *Curator {
	paragraphs := make(map[string]ingest.Paragraph, len(paperDoc.Paragraphs))
	for i, p := range paperDoc.Paragraphs {
		paragraphs[PaperDocID(i)] = p
	}
	excerpts := make(map[string]string, len(texts.Entries))
	for _, entry := range texts.Entries {
		if _, seen := excerpts[entry.Path]; seen {
			continue
		}
		excerpts[entry.Path] = entry.Excerpt
	}
	return &Curator{
		opts:       opts.withDefaults(),
		paper:      paper,
		code:       code,
		alignment:  alignment,
		paragraphs: paragraphs,
		excerpts:   excerpts,
	}
}

// PaperDocID labels the paper paragraph at index i for the indices.
func PaperDocID(i int) string {
	return "p" + strconv.Itoa(i)
}

// Curate retrieves, fuses, deduplicates and filters evidence for the
// question. Vector backend failures propagate so callers can decide
// whether to degrade to lexical-only retrieval.
func (c *Curator) Curate(ctx context.Context, question string, route Route) (Curated, error) {
	out := Curated{Route: route, Evidence: []Evidence{}}

	usePaper := route == RoutePaperOnly || route == RouteHybrid || route == RouteFallback
	useCode := route == RouteCodeOnly || route == RouteHybrid || route == RouteFallback

	// The corpora are read-only once built, so both retrievals can run
	// concurrently. Paper evidence still precedes code evidence in the
	// output regardless of which finishes first.
	var paperFused, codeFused []fuse.Entry
	g, gctx := errgroup.WithContext(ctx)
	if usePaper {
		g.Go(func() error {
			var err error
			paperFused, err = c.retrieve(gctx, c.paper, question)
			return err
		})
	}
	if useCode {
		g.Go(func() error {
			var err error
			codeFused, err = c.retrieve(gctx, c.code, question)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return out, err
	}

	var items []Evidence
	for _, entry := range paperFused {
		paragraph := c.paragraphs[entry.DocID]
		items = append(items, Evidence{
			Kind:  KindPaperHybrid,
			DocID: entry.DocID,
			Page:  paragraph.Page,
			Score: entry.Score,
			Text:  paragraph.Text,
		})
	}
	for _, entry := range codeFused {
		items = append(items, Evidence{
			Kind:    KindCodeHybrid,
			DocID:   entry.DocID,
			Path:    entry.DocID,
			Score:   entry.Score,
			Excerpt: c.excerpts[entry.DocID],
		})
	}
	if route == RouteHybrid {
		items = append(items, c.alignmentEvidence()...)
	}

	items = dedupe(items)
	items = relevanceFilter(question, items)
	if items == nil {
		items = []Evidence{}
	}

	out.Evidence = items
	out.Mix = computeMix(items)
	out.InsufficientEvidence = len(items) == 0
	return out, nil
}

// retrieve runs both signals over one corpus and fuses them by rank.
func (c *Curator) retrieve(ctx context.Context, corpus Corpus, question string) ([]fuse.Entry, error) {
	var lists [][]fuse.Entry

	lexResults := corpus.Lexical.Query(question, c.opts.TopK)
	if len(lexResults) > 0 {
		list := make([]fuse.Entry, len(lexResults))
		for i, r := range lexResults {
			list[i] = fuse.Entry{DocID: r.DocID, Score: r.Score}
		}
		lists = append(lists, list)
	}

	if corpus.Vector != nil {
		vecResults, err := corpus.Vector.Query(ctx, question, c.opts.TopK)
		if err != nil {
			return nil, err
		}
		if len(vecResults) > 0 {
			list := make([]fuse.Entry, len(vecResults))
			for i, r := range vecResults {
				list[i] = fuse.Entry{DocID: r.DocID, Score: r.Score}
			}
			lists = append(lists, list)
		}
	}
	return fuse.RRF(lists, c.opts.RRFK, c.opts.FusedTopK), nil
}

// alignmentEvidence selects the strongest alignment matches as auxiliary
// evidence, keyed on (match score, paragraph confidence).
func (c *Curator) alignmentEvidence() []Evidence {
	selector := align.NewSelector[Evidence](c.opts.AlignMax)
	for _, result := range c.alignment.Results {
		for _, match := range result.Matches {
			selector.Push(float64(match.Score), result.Confidence, Evidence{
				Kind:           match.Kind,
				Path:           match.Path,
				Name:           match.Name,
				Line:           match.Line,
				ParagraphIndex: strconv.Itoa(result.ParagraphIndex),
				Score:          float64(match.Score),
				Excerpt:        match.Excerpt,
			})
		}
	}
	return selector.Items()
}

func dedupe(items []Evidence) []Evidence {
	seen := make(map[string]struct{}, len(items))
	out := items[:0]
	for _, item := range items {
		key := item.identity()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, item)
	}
	return out
}

// relevanceFilter drops items sharing too few tokens with the question.
// Short queries (three tokens or fewer) need one overlapping token; longer
// queries need two, or a 12% overlap ratio. Filtering never empties a
// non-empty evidence set: the first three unfiltered items survive.
func relevanceFilter(question string, items []Evidence) []Evidence {
	if len(items) == 0 {
		return items
	}
	queryTokens := distinct(token.Document(question))
	if len(queryTokens) == 0 {
		return items
	}

	kept := make([]Evidence, 0, len(items))
	for _, item := range items {
		overlap := overlapCount(queryTokens, itemTokens(item))
		if len(queryTokens) <= 3 {
			if overlap >= 1 {
				kept = append(kept, item)
			}
			continue
		}
		ratio := float64(overlap) / float64(len(queryTokens))
		if overlap >= 2 || ratio >= 0.12 {
			kept = append(kept, item)
		}
	}
	if len(kept) == 0 {
		if len(items) > 3 {
			return items[:3]
		}
		return items
	}
	return kept
}

func itemTokens(item Evidence) map[string]struct{} {
	set := make(map[string]struct{})
	for _, t := range token.Document(item.Text + " " + item.Excerpt + " " + item.Name) {
		set[t] = struct{}{}
	}
	for _, t := range token.Identifier(item.Path) {
		set[t] = struct{}{}
	}
	return set
}

func distinct(tokens []string) map[string]struct{} {
	set := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		set[t] = struct{}{}
	}
	return set
}

func overlapCount(query map[string]struct{}, item map[string]struct{}) int {
	count := 0
	for t := range query {
		if _, ok := item[t]; ok {
			count++
		}
	}
	return count
}

func computeMix(items []Evidence) Mix {
	mix := Mix{}
	for _, item := range items {
		if item.isPaperTagged() {
			mix.Paper++
		} else {
			mix.Code++
		}
	}
	total := mix.Paper + mix.Code
	if total > 0 {
		mix.PaperPct = 100 * float64(mix.Paper) / float64(total)
		mix.CodePct = 100 * float64(mix.Code) / float64(total)
	}
	return mix
}
