package ingest

import (
	"bytes"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/paperalign/paperalign/pkg/logger"
)

// Limits bounds how much of a repository is read during ingestion.
type Limits struct {
	MaxFileBytes int64
	ExcerptBytes int
}

// DefaultLimits mirrors the configured ingestion caps.
func DefaultLimits() Limits {
	return Limits{MaxFileBytes: 1_000_000, ExcerptBytes: 2000}
}

var binaryExts = map[string]struct{}{
	".png": {}, ".jpg": {}, ".jpeg": {}, ".gif": {}, ".mp4": {},
	".pt": {}, ".ckpt": {}, ".bin": {}, ".so": {}, ".zip": {},
}

var symbolExts = map[string]struct{}{
	".py": {}, ".ts": {}, ".tsx": {}, ".js": {}, ".jsx": {}, ".go": {},
}

var (
	pySymbol = regexp.MustCompile(`^\s*(class|def)\s+([A-Za-z_][A-Za-z0-9_]*)`)
	jsSymbol = regexp.MustCompile(`^\s*(?:export\s+)?(class|function)\s+([A-Za-z_][A-Za-z0-9_]*)`)
	goFunc   = regexp.MustCompile(`^func\s+(?:\([^)]+\)\s+)?([A-Za-z_][A-Za-z0-9_]*)`)
	goType   = regexp.MustCompile(`^type\s+([A-Za-z_][A-Za-z0-9_]*)`)
)

// WalkRepo walks a checked-out repository and produces the three code
// artifacts in one pass: the file listing, the symbol index, and the
// text-excerpt index. Oversized and binary files are listed but not read.
func WalkRepo(repoDir string, limits Limits) (FileIndex, SymbolIndex, TextIndex, error) {
	log := logger.WithComponent("code-ingest")
	files := FileIndex{Files: []FileEntry{}}
	symbols := SymbolIndex{Symbols: []Symbol{}}
	texts := TextIndex{Entries: []TextEntry{}}

	err := filepath.WalkDir(repoDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		rel, err := filepath.Rel(repoDir, path)
		if err != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)
		files.Files = append(files.Files, FileEntry{
			Path:  rel,
			Size:  info.Size(),
			Mtime: info.ModTime().Unix(),
		})

		ext := strings.ToLower(filepath.Ext(path))
		if _, binary := binaryExts[ext]; binary {
			return nil
		}
		content, ok := safeReadText(path, limits.MaxFileBytes)
		if !ok {
			return nil
		}

		excerpt := content
		if limits.ExcerptBytes > 0 && len(excerpt) > limits.ExcerptBytes {
			excerpt = excerpt[:limits.ExcerptBytes]
		}
		texts.Entries = append(texts.Entries, TextEntry{Path: rel, Ext: ext, Excerpt: excerpt})

		if _, wanted := symbolExts[ext]; wanted {
			symbols.Symbols = append(symbols.Symbols, extractSymbols(rel, ext, content)...)
		}
		return nil
	})
	if err != nil {
		return files, symbols, texts, err
	}
	log.Info("repository walked",
		"files", len(files.Files),
		"symbols", len(symbols.Symbols),
		"text_entries", len(texts.Entries),
	)
	return files, symbols, texts, nil
}

// extractSymbols scans file content line by line for top-level
// declarations.
func extractSymbols(relPath, ext, content string) []Symbol {
	var out []Symbol
	for i, line := range strings.Split(content, "\n") {
		symType, name := matchSymbol(ext, line)
		if name == "" {
			continue
		}
		out = append(out, Symbol{
			Path: relPath,
			Type: symType,
			Name: name,
			Line: strconv.Itoa(i + 1),
		})
	}
	return out
}

func matchSymbol(ext, line string) (symType, name string) {
	switch ext {
	case ".py":
		if m := pySymbol.FindStringSubmatch(line); m != nil {
			return m[1], m[2]
		}
	case ".go":
		if m := goFunc.FindStringSubmatch(line); m != nil {
			return "func", m[1]
		}
		if m := goType.FindStringSubmatch(line); m != nil {
			return "type", m[1]
		}
	default:
		if m := jsSymbol.FindStringSubmatch(line); m != nil {
			return m[1], m[2]
		}
	}
	return "", ""
}

// safeReadText reads a file as UTF-8 text. Files over the size cap or
// containing NUL bytes are skipped.
func safeReadText(path string, maxBytes int64) (string, bool) {
	info, err := os.Stat(path)
	if err != nil || (maxBytes > 0 && info.Size() > maxBytes) {
		return "", false
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", false
	}
	if bytes.IndexByte(data, 0) >= 0 {
		return "", false
	}
	return string(data), true
}
