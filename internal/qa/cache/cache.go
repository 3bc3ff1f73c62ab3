// Package cache provides the Redis-backed answer cache. Identical
// questions against the same project within the TTL reuse the stored
// answer, and singleflight collapses concurrent misses into one compute.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"

	"github.com/paperalign/paperalign/pkg/config"
	pkgredis "github.com/paperalign/paperalign/pkg/redis"
	"golang.org/x/sync/singleflight"
)

const keyPrefix = "answer:"

// Answer is the cached QA outcome for one (project, question) pair.
type Answer struct {
	Route                string          `json:"route"`
	Answer               string          `json:"answer"`
	Evidence             json.RawMessage `json:"evidence"`
	EvidenceMix          json.RawMessage `json:"evidence_mix"`
	InsufficientEvidence bool            `json:"insufficient_evidence"`
}

// AnswerCache stores answers in Redis keyed by a hash of the normalised
// question and the project id.
type AnswerCache struct {
	client *pkgredis.Client
	cfg    config.RedisConfig
	group  singleflight.Group
	logger *slog.Logger
	hits   atomic.Int64
	misses atomic.Int64
}

func New(client *pkgredis.Client, cfg config.RedisConfig) *AnswerCache {
	return &AnswerCache{
		client: client,
		cfg:    cfg,
		logger: slog.Default().With("component", "answer-cache"),
	}
}

func (c *AnswerCache) Get(ctx context.Context, projectID, question string) (*Answer, bool) {
	key := c.buildKey(projectID, question)
	data, err := c.client.Get(ctx, key)
	if err != nil {
		if !pkgredis.IsNilError(err) {
			c.logger.Error("cache get failed", "key", key, "error", err)
		}
		c.misses.Add(1)
		return nil, false
	}
	var answer Answer
	if err := json.Unmarshal([]byte(data), &answer); err != nil {
		c.logger.Error("cache unmarshal failed", "key", key, "error", err)
		c.misses.Add(1)
		return nil, false
	}
	c.hits.Add(1)
	c.logger.Debug("cache hit", "project_id", projectID, "key", key)
	return &answer, true
}

func (c *AnswerCache) Set(ctx context.Context, projectID, question string, answer *Answer) {
	key := c.buildKey(projectID, question)
	data, err := json.Marshal(answer)
	if err != nil {
		c.logger.Error("cache marshal failed", "key", key, "error", err)
		return
	}
	if err := c.client.Set(ctx, key, data, c.cfg.CacheTTL); err != nil {
		c.logger.Error("cache set failed", "key", key, "error", err)
	}
}

// GetOrCompute returns the cached answer or computes and stores it,
// collapsing concurrent identical questions into a single compute. The
// second return value reports whether the answer came from cache.
func (c *AnswerCache) GetOrCompute(
	ctx context.Context,
	projectID, question string,
	computeFn func() (*Answer, error),
) (*Answer, bool, error) {
	if answer, ok := c.Get(ctx, projectID, question); ok {
		return answer, true, nil
	}
	key := c.buildKey(projectID, question)
	val, err, _ := c.group.Do(key, func() (interface{}, error) {
		if answer, ok := c.Get(ctx, projectID, question); ok {
			return answer, nil
		}
		answer, err := computeFn()
		if err != nil {
			return nil, err
		}
		c.Set(ctx, projectID, question, answer)
		return answer, nil
	})
	if err != nil {
		return nil, false, err
	}
	return val.(*Answer), false, nil
}

// Invalidate drops every cached answer for a project, called after
// re-ingestion makes old evidence stale.
func (c *AnswerCache) Invalidate(ctx context.Context, projectID string) error {
	pattern := keyPrefix + projectID + ":*"
	deleted, err := c.client.FlushByPattern(ctx, pattern)
	if err != nil {
		return fmt.Errorf("invalidating answer cache: %w", err)
	}
	c.logger.Info("answer cache invalidated", "project_id", projectID, "keys_deleted", deleted)
	return nil
}

func (c *AnswerCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

func (c *AnswerCache) buildKey(projectID, question string) string {
	normalized := strings.Join(strings.Fields(strings.ToLower(question)), " ")
	hash := sha256.Sum256([]byte(normalized))
	return fmt.Sprintf("%s%s:%x", keyPrefix, projectID, hash[:16])
}
