// Package token provides the two tokenisation policies used across the
// retrieval engine: document tokenisation for free text (with Han bigram
// fallback for CJK) and identifier tokenisation for code symbol names and
// file paths (with camelCase splitting).
package token

import (
	"regexp"
	"strings"
)

var (
	asciiRun   = regexp.MustCompile(`[A-Za-z][A-Za-z0-9_]+`)
	hanRun     = regexp.MustCompile(`[\x{4e00}-\x{9fff}]+`)
	segmentSep = regexp.MustCompile(`[\\/_\-.]`)
)

// Document tokenises free text for the lexical and vector indices:
// ASCII word runs lowercased with a minimum length of 3, plus Han
// ideograph runs reduced to sliding bigrams.
func Document(text string) []string {
	return documentTokens(text, 3)
}

// Paragraph tokenises paper paragraphs for alignment. It uses the document
// policy with a stricter minimum length of 4 to cut noisy short-word
// matches against code identifiers.
func Paragraph(text string) []string {
	return documentTokens(text, 4)
}

func documentTokens(text string, minLen int) []string {
	raw := asciiRun.FindAllString(text, -1)
	tokens := make([]string, 0, len(raw))
	for _, word := range raw {
		if len(word) < minLen {
			continue
		}
		tokens = append(tokens, strings.ToLower(word))
	}
	for _, run := range hanRun.FindAllString(text, -1) {
		chars := []rune(run)
		if len(chars) == 1 {
			tokens = append(tokens, string(chars))
			continue
		}
		for i := 0; i < len(chars)-1; i++ {
			tokens = append(tokens, string(chars[i:i+2]))
		}
	}
	return tokens
}

// Identifier tokenises a code symbol name or file path: segments split on
// path separators, underscores, hyphens and dots, each segment further
// split on camelCase and digit boundaries, lowercased, minimum length 3.
func Identifier(value string) []string {
	var tokens []string
	for _, segment := range segmentSep.Split(value, -1) {
		if segment == "" {
			continue
		}
		for _, piece := range splitCamel(segment) {
			if len(piece) < 3 {
				continue
			}
			tokens = append(tokens, strings.ToLower(piece))
		}
	}
	return tokens
}

// splitCamel breaks a segment into camelCase words, all-caps acronym runs
// and digit runs: "buildHTTPServer2" yields ["build", "HTTP", "Server", "2"].
func splitCamel(segment string) []string {
	runes := []rune(segment)
	var pieces []string
	i := 0
	for i < len(runes) {
		r := runes[i]
		switch {
		case isDigit(r):
			j := i
			for j < len(runes) && isDigit(runes[j]) {
				j++
			}
			pieces = append(pieces, string(runes[i:j]))
			i = j
		case isUpper(r):
			j := i
			for j < len(runes) && isUpper(runes[j]) {
				j++
			}
			// An acronym run followed by a lowercase letter donates its
			// last capital to the next word: "HTTPServer" -> HTTP, Server.
			if j < len(runes) && isLower(runes[j]) && j > i+1 {
				j--
			}
			if j == i+1 && i+1 < len(runes) && isLower(runes[i+1]) {
				k := i + 1
				for k < len(runes) && isLower(runes[k]) {
					k++
				}
				pieces = append(pieces, string(runes[i:k]))
				i = k
				break
			}
			pieces = append(pieces, string(runes[i:j]))
			i = j
		case isLower(r):
			j := i
			for j < len(runes) && isLower(runes[j]) {
				j++
			}
			pieces = append(pieces, string(runes[i:j]))
			i = j
		default:
			i++
		}
	}
	return pieces
}

func isUpper(r rune) bool { return r >= 'A' && r <= 'Z' }
func isLower(r rune) bool { return r >= 'a' && r <= 'z' }
func isDigit(r rune) bool { return r >= '0' && r <= '9' }

// stemRules is applied first-match-wins; replacement keeps the stem legal
// when a bare strip would leave too little of the word.
var stemRules = []struct {
	suffix      string
	replacement string
	minLen      int
}{
	{"ational", "ate", 2},
	{"tional", "tion", 2},
	{"encies", "ence", 2},
	{"ances", "ance", 2},
	{"ments", "ment", 2},
	{"izing", "ize", 2},
	{"ating", "ate", 2},
	{"iness", "y", 2},
	{"ously", "ous", 2},
	{"ively", "ive", 2},
	{"tion", "t", 3},
	{"sion", "s", 3},
	{"ying", "y", 2},
	{"ling", "l", 3},
	{"ies", "y", 2},
	{"ing", "", 3},
	{"ers", "er", 2},
	{"est", "", 3},
	{"ful", "", 3},
	{"ous", "", 3},
	{"ed", "", 3},
	{"er", "", 3},
	{"ly", "", 3},
	{"es", "", 3},
	{"ss", "ss", 2},
	{"s", "", 3},
	{"e", "", 4},
}

// Stem reduces a lowercased word to a comparison stem by stripping one
// common suffix, so inflected paragraph words line up with identifier
// pieces ("caching" and "cache" both stem to "cach"). Words shorter than
// the rule's minimum keep their suffix.
func Stem(word string) string {
	for _, rule := range stemRules {
		if !strings.HasSuffix(word, rule.suffix) {
			continue
		}
		stemmed := word[:len(word)-len(rule.suffix)] + rule.replacement
		if len(stemmed) >= rule.minLen {
			return stemmed
		}
	}
	return word
}
