// indexctl builds and queries a project's retrieval artifacts offline,
// without the HTTP service or its infrastructure. Artifacts are read and
// written under a local project directory.
//
// Usage:
//
//	indexctl ingest -dir proj -paper paper.html -repo ./repo
//	indexctl align -dir proj [-top N]
//	indexctl query -dir proj "How does the caching layer work?"
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"

	"github.com/paperalign/paperalign/internal/align"
	"github.com/paperalign/paperalign/internal/index/fuse"
	"github.com/paperalign/paperalign/internal/index/lexical"
	"github.com/paperalign/paperalign/internal/index/vector"
	"github.com/paperalign/paperalign/internal/ingest"
	"github.com/paperalign/paperalign/internal/project"
	"github.com/paperalign/paperalign/internal/qa"
	"github.com/paperalign/paperalign/pkg/logger"
)

const localProjectID = "local"

var (
	bold    = color.New(color.Bold).SprintFunc()
	green   = color.New(color.FgGreen).SprintFunc()
	cyan    = color.New(color.FgCyan).SprintFunc()
	yellow  = color.New(color.FgYellow).SprintFunc()
	redBold = color.New(color.FgRed, color.Bold).SprintFunc()
)

func main() {
	logger.Setup("warn", "text")

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "ingest":
		err = runIngest(os.Args[2:])
	case "align":
		err = runAlign(os.Args[2:])
	case "query":
		err = runQuery(os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", redBold("error:"), err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: indexctl <ingest|align|query> [flags]")
	fmt.Fprintln(os.Stderr, "  ingest -dir DIR [-paper FILE] [-repo DIR]")
	fmt.Fprintln(os.Stderr, "  align  -dir DIR")
	fmt.Fprintln(os.Stderr, "  query  -dir DIR [-top N] QUESTION")
}

func runIngest(args []string) error {
	fs := flag.NewFlagSet("ingest", flag.ExitOnError)
	dir := fs.String("dir", "projects", "artifact directory")
	paperFile := fs.String("paper", "", "paper document (text or HTML)")
	repoDir := fs.String("repo", "", "code repository directory")
	fs.Parse(args)

	if *paperFile == "" && *repoDir == "" {
		return fmt.Errorf("nothing to ingest: pass -paper and/or -repo")
	}
	artifacts := project.NewArtifacts(*dir)
	if err := artifacts.EnsureDirs(localProjectID); err != nil {
		return err
	}

	if *paperFile != "" {
		content, err := os.ReadFile(*paperFile)
		if err != nil {
			return fmt.Errorf("reading paper: %w", err)
		}
		paper := ingest.ParseDocument(string(content), 2000)
		if err := artifacts.WritePaper(localProjectID, paper); err != nil {
			return err
		}
		fmt.Printf("%s %d paragraphs from %s\n", green("paper:"), len(paper.Paragraphs), *paperFile)
	}

	if *repoDir != "" {
		files, symbols, texts, err := ingest.WalkRepo(*repoDir, ingest.DefaultLimits())
		if err != nil {
			return fmt.Errorf("walking repo: %w", err)
		}
		if err := artifacts.WriteFileIndex(localProjectID, files); err != nil {
			return err
		}
		if err := artifacts.WriteSymbols(localProjectID, symbols); err != nil {
			return err
		}
		if err := artifacts.WriteTextIndex(localProjectID, texts); err != nil {
			return err
		}
		fmt.Printf("%s %d files, %d symbols from %s\n",
			green("code:"), len(files.Files), len(symbols.Symbols), *repoDir)
	}
	return nil
}

func runAlign(args []string) error {
	fs := flag.NewFlagSet("align", flag.ExitOnError)
	dir := fs.String("dir", "projects", "artifact directory")
	topN := fs.Int("top", 0, "matches kept per paragraph (0 for the default)")
	fs.Parse(args)

	artifacts := project.NewArtifacts(*dir)
	paper, err := artifacts.ReadPaper(localProjectID)
	if err != nil {
		return err
	}
	symbols, err := artifacts.ReadSymbols(localProjectID)
	if err != nil {
		return err
	}
	texts, err := artifacts.ReadTextIndex(localProjectID)
	if err != nil {
		return err
	}

	m := align.BuildMap(paper, symbols, texts, *topN)
	if err := artifacts.WriteAlignment(localProjectID, m); err != nil {
		return err
	}

	fmt.Printf("%s %d paragraphs, %d matches\n", green("alignment:"), m.ParagraphCount, m.MatchCount)
	for _, result := range m.Results {
		if len(result.Matches) == 0 {
			continue
		}
		fmt.Printf("%s [%d] conf=%.2f %s\n",
			bold("¶"), result.ParagraphIndex, result.Confidence, truncate(result.TextExcerpt, 72))
		for _, match := range result.Matches {
			name := match.Name
			if name == "" {
				name = match.Path
			}
			fmt.Printf("    %s %s (%s, score %d)\n", cyan("->"), name, match.Kind, match.Score)
		}
	}
	return nil
}

func runQuery(args []string) error {
	fs := flag.NewFlagSet("query", flag.ExitOnError)
	dir := fs.String("dir", "projects", "artifact directory")
	topK := fs.Int("top", 5, "results per corpus")
	fs.Parse(args)
	question := strings.TrimSpace(strings.Join(fs.Args(), " "))
	if question == "" {
		return fmt.Errorf("query requires a question")
	}

	artifacts := project.NewArtifacts(*dir)
	paper, err := artifacts.ReadPaper(localProjectID)
	if err != nil {
		return err
	}
	texts, err := artifacts.ReadTextIndex(localProjectID)
	if err != nil {
		return err
	}

	route := qa.RouteQuestion(question)
	fmt.Printf("%s %s\n", bold("route:"), yellow(route))

	ctx := context.Background()
	if route != qa.RouteCodeOnly {
		docs := make([]lexical.Document, 0, len(paper.Paragraphs))
		for i, p := range paper.Paragraphs {
			docs = append(docs, lexical.Document{DocID: qa.PaperDocID(i), Text: p.Text})
		}
		printCorpus(ctx, "paper", docs, question, *topK)
	}
	if route != qa.RoutePaperOnly {
		docs := make([]lexical.Document, 0, len(texts.Entries))
		for _, entry := range texts.Entries {
			docs = append(docs, lexical.Document{DocID: entry.Path, Text: entry.Path + " " + entry.Excerpt})
		}
		printCorpus(ctx, "code", docs, question, *topK)
	}
	return nil
}

// printCorpus builds both indexes in memory, fuses the rankings and
// prints the top documents.
func printCorpus(ctx context.Context, corpus string, docs []lexical.Document, question string, topK int) {
	lex := lexical.Build(docs, lexical.Options{})
	vecDocs := make([]vector.Document, len(docs))
	for i, d := range docs {
		vecDocs[i] = vector.Document{DocID: d.DocID, Text: d.Text}
	}
	vec, err := vector.Build(ctx, vector.Options{Backend: vector.BackendTFIDF}, vecDocs)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s vector build failed: %v\n", yellow("warn:"), err)
	}

	var lists [][]fuse.Entry
	if results := lex.Query(question, topK); len(results) > 0 {
		list := make([]fuse.Entry, len(results))
		for i, r := range results {
			list[i] = fuse.Entry{DocID: r.DocID, Score: r.Score}
		}
		lists = append(lists, list)
	}
	if vec != nil {
		if results, err := vec.Query(ctx, question, topK); err == nil && len(results) > 0 {
			list := make([]fuse.Entry, len(results))
			for i, r := range results {
				list[i] = fuse.Entry{DocID: r.DocID, Score: r.Score}
			}
			lists = append(lists, list)
		}
	}

	fused := fuse.RRF(lists, fuse.DefaultRRFK, topK)
	fmt.Printf("%s\n", bold(corpus+":"))
	if len(fused) == 0 {
		fmt.Println("  (no results)")
		return
	}
	for i, entry := range fused {
		fmt.Printf("  %d. %s %s\n", i+1, cyan(entry.DocID), fmt.Sprintf("(%.4f)", entry.Score))
	}
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "…"
}
