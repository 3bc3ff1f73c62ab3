package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/paperalign/paperalign/internal/qa"
	"github.com/paperalign/paperalign/pkg/config"
	apperrors "github.com/paperalign/paperalign/pkg/errors"
)

func TestBuildPromptFormatsEvidence(t *testing.T) {
	evidence := []qa.Evidence{
		{Kind: "paper", ParagraphIndex: "3", Page: "2", Score: 0.0321, Text: "We cache intermediate\nresults aggressively."},
		{Kind: "symbol", Path: "src/cache.py", Name: "CacheLayer", Line: "10", Score: 0.0164, Excerpt: "class CacheLayer:"},
	}
	prompt := BuildPrompt("How does caching work?", evidence)

	for _, want := range []string{
		"Question: How does caching work?",
		"Evidence (cite like [E1], [E2]):",
		"[E1] kind=paper paragraph=3 page=2 score=0.0321",
		"excerpt: We cache intermediate results aggressively.",
		"[E2] kind=symbol path=src/cache.py line=10 name=CacheLayer score=0.0164",
		"excerpt: class CacheLayer:",
		"Include citations like [E1]",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q:\n%s", want, prompt)
		}
	}
}

func TestBuildPromptCapsEvidence(t *testing.T) {
	evidence := make([]qa.Evidence, 15)
	for i := range evidence {
		evidence[i] = qa.Evidence{Kind: "file", Path: "a.go", Score: 1}
	}
	prompt := BuildPrompt("q", evidence)
	if strings.Contains(prompt, "[E11]") {
		t.Error("prompt should stop at 10 evidence items")
	}
	if !strings.Contains(prompt, "[E10]") {
		t.Error("prompt should include the tenth item")
	}
}

func TestBuildPromptTruncatesExcerpt(t *testing.T) {
	long := strings.Repeat("x", 500)
	prompt := BuildPrompt("q", []qa.Evidence{{Kind: "file", Text: long}})
	if strings.Contains(prompt, strings.Repeat("x", 321)) {
		t.Error("excerpt should be capped at 320 bytes")
	}
	if !strings.Contains(prompt, strings.Repeat("x", 320)) {
		t.Error("excerpt should keep the first 320 bytes")
	}
}

func TestGenerateWithoutProvider(t *testing.T) {
	c := NewClient(config.LLMConfig{Provider: "none"})
	answer, err := c.Generate(context.Background(), "q", nil)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if !strings.Contains(answer, "not configured") {
		t.Errorf("expected placeholder answer, got %q", answer)
	}

	var chunks []string
	if err := c.GenerateStream(context.Background(), "q", nil, func(chunk string) error {
		chunks = append(chunks, chunk)
		return nil
	}); err != nil {
		t.Fatalf("GenerateStream: %v", err)
	}
	if len(chunks) != 1 || !strings.Contains(chunks[0], "not configured") {
		t.Errorf("expected single placeholder chunk, got %v", chunks)
	}
}

func TestGenerateStreamParsesSSE(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("Authorization = %q", got)
		}
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"Hel\"}}]}\n\n")
		fmt.Fprint(w, "data: not json\n\n")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"lo\"}}]}\n\n")
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer srv.Close()

	c := NewClient(config.LLMConfig{Provider: "openai", APIBase: srv.URL, APIKey: "test-key", Model: "m"})
	var got strings.Builder
	err := c.GenerateStream(context.Background(), "q", nil, func(chunk string) error {
		got.WriteString(chunk)
		return nil
	})
	if err != nil {
		t.Fatalf("GenerateStream: %v", err)
	}
	if got.String() != "Hello" {
		t.Errorf("streamed answer = %q, want %q", got.String(), "Hello")
	}
}

func TestGenerateUnauthorized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"bad key"}}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := NewClient(config.LLMConfig{Provider: "openai", APIBase: srv.URL, APIKey: "wrong", Model: "m"})
	_, err := c.Generate(context.Background(), "q", nil)
	if !errors.Is(err, apperrors.ErrLLMUnavailable) {
		t.Fatalf("expected ErrLLMUnavailable, got %v", err)
	}
	if !strings.Contains(err.Error(), "unauthorized") {
		t.Errorf("error should mention unauthorized: %v", err)
	}
}
