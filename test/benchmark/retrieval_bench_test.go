package benchmark

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/paperalign/paperalign/internal/align"
	"github.com/paperalign/paperalign/internal/index/lexical"
	"github.com/paperalign/paperalign/internal/index/token"
	"github.com/paperalign/paperalign/internal/index/vector"
	"github.com/paperalign/paperalign/internal/ingest"
)

var sampleTexts = map[string]string{
	"short": "We propose a caching layer for intermediate attention scores",
	"medium": `The retrieval engine combines a lexical BM25 index with a dense
        vector index over the same documents. Each corpus is queried
        independently and the two rankings are fused by reciprocal rank so
        that documents appearing in both lists rise to the top. The paper
        corpus is split into paragraphs while the code corpus uses one
        document per source file with its leading excerpt as the text.`,
	"long": strings.Repeat(`Paper to code alignment matches each paragraph of a
        research paper against the symbols and file paths of its reference
        implementation. Paragraph tokens are compared with identifier tokens
        extracted by splitting paths on separators and names on camel case
        boundaries. Matches are scored by token overlap and the strongest
        candidates per paragraph are kept with a confidence derived from the
        covered fraction of the paragraph vocabulary. `, 20),
}

func BenchmarkTokenizeDocument(b *testing.B) {
	for name, text := range sampleTexts {
		b.Run(name, func(b *testing.B) {
			b.ReportAllocs()
			b.SetBytes(int64(len(text)))
			for i := 0; i < b.N; i++ {
				tokens := token.Document(text)
				_ = tokens
			}
		})
	}
}

func BenchmarkTokenizeIdentifier(b *testing.B) {
	identifiers := []string{
		"src/cache/lru_cache.py",
		"buildHTTPServer",
		"internal/index/vector/sqlitevec.go",
		"TransformerEncoderLayer",
	}
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		for _, id := range identifiers {
			tokens := token.Identifier(id)
			_ = tokens
		}
	}
}

func syntheticDocs(n int) []lexical.Document {
	topics := []string{
		"attention heads compute scaled dot products over query and key projections",
		"the caching layer stores intermediate results keyed by request hash",
		"gradient accumulation trades memory for effective batch size",
		"the tokenizer splits camel case identifiers into lowercase pieces",
		"reciprocal rank fusion merges lexical and dense rankings",
	}
	docs := make([]lexical.Document, n)
	for i := range docs {
		docs[i] = lexical.Document{
			DocID: fmt.Sprintf("p%d", i),
			Text:  topics[i%len(topics)] + fmt.Sprintf(" variant %d", i),
		}
	}
	return docs
}

func BenchmarkBM25Build(b *testing.B) {
	for _, size := range []int{100, 1000, 5000} {
		docs := syntheticDocs(size)
		b.Run(fmt.Sprintf("docs_%d", size), func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				idx := lexical.Build(docs, lexical.Options{})
				_ = idx
			}
		})
	}
}

func BenchmarkBM25Query(b *testing.B) {
	idx := lexical.Build(syntheticDocs(5000), lexical.Options{})
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		results := idx.Query("caching layer intermediate results", 5)
		_ = results
	}
}

func BenchmarkTFIDFQuery(b *testing.B) {
	docs := syntheticDocs(5000)
	vecDocs := make([]vector.Document, len(docs))
	for i, d := range docs {
		vecDocs[i] = vector.Document{DocID: d.DocID, Text: d.Text}
	}
	idx, err := vector.Build(context.Background(), vector.Options{Backend: vector.BackendTFIDF}, vecDocs)
	if err != nil {
		b.Fatalf("build: %v", err)
	}
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		results, err := idx.Query(context.Background(), "caching layer intermediate results", 5)
		if err != nil {
			b.Fatal(err)
		}
		_ = results
	}
}

func BenchmarkAlignmentBuildMap(b *testing.B) {
	paper := ingest.Paper{}
	for i := 0; i < 200; i++ {
		paper.Paragraphs = append(paper.Paragraphs, ingest.Paragraph{
			Page: "1",
			Text: fmt.Sprintf("Paragraph %d describes the caching layer and attention heads.", i),
		})
	}
	symbols := ingest.SymbolIndex{}
	texts := ingest.TextIndex{}
	for i := 0; i < 300; i++ {
		path := fmt.Sprintf("src/module_%d/cache_layer.py", i)
		symbols.Symbols = append(symbols.Symbols, ingest.Symbol{
			Path: path, Type: "class", Name: fmt.Sprintf("CacheLayer%d", i), Line: "1",
		})
		texts.Entries = append(texts.Entries, ingest.TextEntry{
			Path: path, Ext: ".py", Excerpt: "class CacheLayer: ...",
		})
	}

	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		m := align.BuildMap(paper, symbols, texts, 0)
		_ = m
	}
}
