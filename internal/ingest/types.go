// Package ingest turns a paper document and a code repository into the
// artifact structures the retrieval engine indexes: parsed paragraphs, a
// file index, a symbol index, and a text-excerpt index.
package ingest

// Paragraph is one unit of paper text with its 1-based page number.
type Paragraph struct {
	Page string `json:"page"`
	Text string `json:"text"`
}

// Paper is the parsed paper structure persisted as parsed.json.
type Paper struct {
	Paragraphs []Paragraph `json:"paragraphs"`
}

// Symbol is a top-level declaration found in a source file.
type Symbol struct {
	Path string `json:"path"`
	Type string `json:"type"`
	Name string `json:"name"`
	Line string `json:"line"`
}

// SymbolIndex is the symbol structure persisted as symbols.json.
type SymbolIndex struct {
	Symbols []Symbol `json:"symbols"`
}

// TextEntry is one file's leading excerpt, used as a code document and as
// the excerpt source for alignment matches.
type TextEntry struct {
	Path    string `json:"path"`
	Ext     string `json:"ext,omitempty"`
	Excerpt string `json:"excerpt"`
}

// TextIndex is the excerpt structure persisted as text_index.json.
type TextIndex struct {
	Entries []TextEntry `json:"entries"`
}

// FileEntry records a repository file's path and size.
type FileEntry struct {
	Path  string `json:"path"`
	Size  int64  `json:"size"`
	Mtime int64  `json:"mtime"`
}

// FileIndex is the full file listing persisted as index.json.
type FileIndex struct {
	Files []FileEntry `json:"files"`
}
