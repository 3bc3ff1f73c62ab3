// Package llm generates prose answers from curated evidence through an
// OpenAI-compatible chat-completions API. Provider "none" short-circuits
// to an evidence-only answer so the rest of the pipeline works without a
// key.
package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/paperalign/paperalign/internal/qa"
	"github.com/paperalign/paperalign/pkg/config"
	apperrors "github.com/paperalign/paperalign/pkg/errors"
	"github.com/paperalign/paperalign/pkg/resilience"
)

const maxPromptEvidence = 10

// Client calls the configured chat-completions backend. A circuit breaker
// keeps a failing provider from stalling every question.
type Client struct {
	cfg     config.LLMConfig
	http    *http.Client
	breaker *resilience.CircuitBreaker
	logger  *slog.Logger
}

func NewClient(cfg config.LLMConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &Client{
		cfg:     cfg,
		http:    &http.Client{Timeout: timeout},
		breaker: resilience.NewCircuitBreaker("llm", resilience.CircuitBreakerConfig{}),
		logger:  slog.Default().With("component", "llm"),
	}
}

// Enabled reports whether a real provider is configured.
func (c *Client) Enabled() bool {
	return c.cfg.Provider != "" && c.cfg.Provider != "none" && c.cfg.APIKey != ""
}

// BreakerState exposes the circuit state for metrics.
func (c *Client) BreakerState() resilience.State {
	return c.breaker.GetState()
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	Stream      bool          `json:"stream,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Generate produces one complete answer for the question and evidence.
// When no provider is configured it returns a placeholder so callers can
// still surface the evidence.
func (c *Client) Generate(ctx context.Context, question string, evidence []qa.Evidence) (string, error) {
	if !c.Enabled() {
		return "Answer generation is not configured. Evidence collected below.", nil
	}
	payload := c.buildRequest(question, evidence, false)

	var answer string
	err := c.breaker.Execute(func() error {
		return resilience.Retry(ctx, "llm-generate", resilience.RetryConfig{MaxAttempts: 2}, func() error {
			body, err := c.post(ctx, payload)
			if err != nil {
				return err
			}
			defer body.Close()
			var parsed chatResponse
			if err := json.NewDecoder(body).Decode(&parsed); err != nil {
				return fmt.Errorf("decoding completion: %w", err)
			}
			if len(parsed.Choices) == 0 {
				return fmt.Errorf("completion returned no choices")
			}
			answer = parsed.Choices[0].Message.Content
			return nil
		})
	})
	if err != nil {
		return "", apperrors.Newf(apperrors.ErrLLMUnavailable, http.StatusServiceUnavailable, "generating answer: %v", err)
	}
	return answer, nil
}

// GenerateStream streams answer chunks to emit until the provider signals
// completion. The callback runs once per content delta.
func (c *Client) GenerateStream(ctx context.Context, question string, evidence []qa.Evidence, emit func(chunk string) error) error {
	if !c.Enabled() {
		return emit("Answer generation is not configured. Evidence collected below.")
	}
	payload := c.buildRequest(question, evidence, true)

	err := c.breaker.Execute(func() error {
		body, err := c.post(ctx, payload)
		if err != nil {
			return err
		}
		defer body.Close()

		scanner := bufio.NewScanner(body)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			line := scanner.Text()
			if !strings.HasPrefix(line, "data: ") {
				continue
			}
			data := strings.TrimSpace(strings.TrimPrefix(line, "data: "))
			if data == "[DONE]" {
				return nil
			}
			var parsed chatResponse
			if err := json.Unmarshal([]byte(data), &parsed); err != nil {
				continue
			}
			if len(parsed.Choices) == 0 {
				continue
			}
			if chunk := parsed.Choices[0].Delta.Content; chunk != "" {
				if err := emit(chunk); err != nil {
					return err
				}
			}
		}
		return scanner.Err()
	})
	if err != nil {
		return apperrors.Newf(apperrors.ErrLLMUnavailable, http.StatusServiceUnavailable, "streaming answer: %v", err)
	}
	return nil
}

func (c *Client) buildRequest(question string, evidence []qa.Evidence, stream bool) chatRequest {
	return chatRequest{
		Model: c.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: BuildPrompt(question, evidence)},
		},
		Temperature: 0.2,
		Stream:      stream,
	}
}

func (c *Client) post(ctx context.Context, payload chatRequest) (io.ReadCloser, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	url := strings.TrimSuffix(c.cfg.APIBase, "/") + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	res, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling completion api: %w", err)
	}
	if res.StatusCode >= 400 {
		defer res.Body.Close()
		detail := readErrorDetail(res.Body)
		if res.StatusCode == http.StatusUnauthorized || res.StatusCode == http.StatusForbidden {
			return nil, fmt.Errorf("llm unauthorized (check api key and base url): %s", detail)
		}
		return nil, fmt.Errorf("llm request failed (%d): %s", res.StatusCode, detail)
	}
	return res.Body, nil
}

func readErrorDetail(body io.Reader) string {
	raw, err := io.ReadAll(io.LimitReader(body, 4096))
	if err != nil {
		return ""
	}
	var parsed chatResponse
	if err := json.Unmarshal(raw, &parsed); err == nil && parsed.Error.Message != "" {
		return parsed.Error.Message
	}
	return strings.TrimSpace(string(raw))
}

const systemPrompt = "Answer based on provided evidence. Be concise. " +
	"IMPORTANT: You must respond in the SAME LANGUAGE as the user's question. " +
	"If the user asks in Chinese, answer in Chinese. If the user asks in English, answer in English. " +
	"Maintain the same language throughout your entire response."

// BuildPrompt formats curated evidence into the citation-ready prompt
// handed to the model.
func BuildPrompt(question string, evidence []qa.Evidence) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Question: %s", question)
	b.WriteString("\n\nEvidence (cite like [E1], [E2]):\n")
	for i, item := range evidence {
		if i >= maxPromptEvidence {
			break
		}
		b.WriteString(formatEvidence(i+1, item))
	}
	b.WriteString("\n\nInstructions:\n")
	b.WriteString("- Answer using only the evidence above.\n")
	b.WriteString("- If evidence is insufficient, say what is missing.\n")
	b.WriteString("- Include citations like [E1] after relevant sentences.")
	return b.String()
}

func formatEvidence(idx int, item qa.Evidence) string {
	parts := []string{fmt.Sprintf("kind=%s", item.Kind)}
	if item.Path != "" {
		parts = append(parts, "path="+item.Path)
	}
	if item.Line != "" {
		parts = append(parts, "line="+item.Line)
	}
	if item.Name != "" {
		parts = append(parts, "name="+item.Name)
	}
	if item.ParagraphIndex != "" {
		parts = append(parts, "paragraph="+item.ParagraphIndex)
	}
	if item.Page != "" {
		parts = append(parts, "page="+item.Page)
	}
	if item.Score != 0 {
		parts = append(parts, fmt.Sprintf("score=%.4f", item.Score))
	}

	excerpt := item.Excerpt
	if excerpt == "" {
		excerpt = item.Text
	}
	excerpt = strings.ReplaceAll(strings.TrimSpace(excerpt), "\n", " ")
	if len(excerpt) > 320 {
		excerpt = excerpt[:320]
	}

	line := fmt.Sprintf("[E%d] %s", idx, strings.Join(parts, " "))
	if excerpt != "" {
		return line + "\nexcerpt: " + excerpt + "\n"
	}
	return line + "\n"
}
