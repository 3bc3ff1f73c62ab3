package ingest

import (
	"html"
	"regexp"
	"strconv"
	"strings"
)

var (
	blankLineSplit = regexp.MustCompile(`\n\s*\n`)
	whitespaceRun  = regexp.MustCompile(`\s+`)

	scriptBlock = regexp.MustCompile(`(?is)<script\b.*?</script>`)
	styleBlock  = regexp.MustCompile(`(?is)<style\b.*?</style>`)
	lineBreak   = regexp.MustCompile(`(?i)<br\s*/?>`)
	blockClose  = regexp.MustCompile(`(?i)</(p|div|section|article|li|h[1-6])>`)
	anyTag      = regexp.MustCompile(`<[^>]+>`)
	spaceRun    = regexp.MustCompile(`[ \t]+`)
	newlineRun  = regexp.MustCompile(`\n{3,}`)
)

// SplitParagraphs breaks text into paragraphs on blank lines, collapsing
// internal whitespace. Empty paragraphs are dropped.
func SplitParagraphs(text string) []string {
	var out []string
	for _, chunk := range blankLineSplit.Split(text, -1) {
		chunk = strings.TrimSpace(chunk)
		if chunk == "" {
			continue
		}
		out = append(out, whitespaceRun.ReplaceAllString(chunk, " "))
	}
	return out
}

// ParsePaperPages builds a Paper from per-page extracted text, capping the
// total paragraph count. Pages number from 1.
func ParsePaperPages(pages []string, maxParagraphs int) Paper {
	paper := Paper{Paragraphs: []Paragraph{}}
	for i, pageText := range pages {
		page := strconv.Itoa(i + 1)
		for _, text := range SplitParagraphs(pageText) {
			paper.Paragraphs = append(paper.Paragraphs, Paragraph{Page: page, Text: text})
			if maxParagraphs > 0 && len(paper.Paragraphs) >= maxParagraphs {
				return paper
			}
		}
	}
	return paper
}

// ParseDocument builds a Paper from a standalone text or HTML document,
// treating the whole document as page 1.
func ParseDocument(content string, maxParagraphs int) Paper {
	if looksLikeHTML(content) {
		content = HTMLToText(content)
	}
	return ParsePaperPages([]string{content}, maxParagraphs)
}

func looksLikeHTML(content string) bool {
	return strings.Contains(strings.ToLower(content), "<html")
}

// HTMLToText strips markup from an HTML document, keeping paragraph
// boundaries as blank lines.
func HTMLToText(raw string) string {
	cleaned := scriptBlock.ReplaceAllString(raw, " ")
	cleaned = styleBlock.ReplaceAllString(cleaned, " ")
	cleaned = lineBreak.ReplaceAllString(cleaned, "\n")
	cleaned = blockClose.ReplaceAllString(cleaned, "\n\n")
	cleaned = anyTag.ReplaceAllString(cleaned, " ")
	cleaned = html.UnescapeString(cleaned)
	cleaned = strings.ReplaceAll(cleaned, "\r\n", "\n")
	cleaned = strings.ReplaceAll(cleaned, "\r", "\n")
	cleaned = spaceRun.ReplaceAllString(cleaned, " ")
	cleaned = newlineRun.ReplaceAllString(cleaned, "\n\n")
	return strings.TrimSpace(cleaned)
}
