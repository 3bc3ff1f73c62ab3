// Package service orchestrates the question-answering pipeline: it loads
// per-project artifacts, builds or restores the retrieval indexes, routes
// and curates each question, and generates the final answer.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/paperalign/paperalign/internal/align"
	"github.com/paperalign/paperalign/internal/analytics"
	"github.com/paperalign/paperalign/internal/index/lexical"
	"github.com/paperalign/paperalign/internal/index/vector"
	"github.com/paperalign/paperalign/internal/ingest"
	"github.com/paperalign/paperalign/internal/llm"
	"github.com/paperalign/paperalign/internal/project"
	"github.com/paperalign/paperalign/internal/qa"
	qacache "github.com/paperalign/paperalign/internal/qa/cache"
	"github.com/paperalign/paperalign/pkg/config"
	apperrors "github.com/paperalign/paperalign/pkg/errors"
	"github.com/paperalign/paperalign/pkg/metrics"
	"github.com/paperalign/paperalign/pkg/middleware"
	"github.com/paperalign/paperalign/pkg/tracing"
)

// Service wires project storage, artifacts, retrieval and answer
// generation together. Engines (loaded index sets) are cached per project
// and rebuilt lazily after ingest invalidates them.
type Service struct {
	cfg       *config.Config
	store     *project.Store
	artifacts *project.Artifacts
	cache     *qacache.AnswerCache
	llm       *llm.Client
	collector *analytics.Collector
	metrics   *metrics.Metrics
	logger    *slog.Logger

	mu      sync.RWMutex
	engines map[string]*engine
}

// engine holds one project's loaded retrieval state.
type engine struct {
	curator     *qa.Curator
	lexicalOnly *qa.Curator
}

// Options carries the optional collaborators; nil fields disable the
// corresponding concern (cache, analytics, metrics).
type Options struct {
	Cache     *qacache.AnswerCache
	Collector *analytics.Collector
	Metrics   *metrics.Metrics
}

func New(cfg *config.Config, store *project.Store, artifacts *project.Artifacts, llmClient *llm.Client, opts Options) *Service {
	return &Service{
		cfg:       cfg,
		store:     store,
		artifacts: artifacts,
		cache:     opts.Cache,
		llm:       llmClient,
		collector: opts.Collector,
		metrics:   opts.Metrics,
		logger:    slog.Default().With("component", "qa-service"),
		engines:   make(map[string]*engine),
	}
}

// CreateProject registers a project and prepares its artifact tree.
func (s *Service) CreateProject(ctx context.Context, req project.CreateRequest) (*project.Project, error) {
	p, err := s.store.Create(ctx, req)
	if err != nil {
		return nil, err
	}
	if err := s.artifacts.EnsureDirs(p.ID); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Service) ListProjects(ctx context.Context) ([]project.Project, error) {
	return s.store.List(ctx)
}

func (s *Service) GetProject(ctx context.Context, id string) (*project.Project, error) {
	return s.store.Get(ctx, id)
}

// DeleteProject removes the metadata record, the artifact tree, any cached
// answers and the loaded engine.
func (s *Service) DeleteProject(ctx context.Context, id string) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	if err := s.artifacts.RemoveAll(id); err != nil {
		s.logger.Warn("removing project artifacts failed", "project_id", id, "error", err)
	}
	s.invalidate(ctx, id)
	return nil
}

// IngestPaper parses a paper document (plain text or HTML) into paragraph
// artifacts. Ingesting again replaces the previous parse.
func (s *Service) IngestPaper(ctx context.Context, projectID, content string) (int, error) {
	if _, err := s.store.Get(ctx, projectID); err != nil {
		return 0, err
	}
	ctx, span := tracing.StartSpan(ctx, "ingest-paper", middleware.GetRequestID(ctx))
	defer func() {
		span.End()
		span.Log()
	}()
	span.SetAttr("project_id", projectID)
	start := time.Now()

	paper := ingest.ParseDocument(content, s.cfg.Projects.MaxParagraphs)
	if err := s.artifacts.WritePaper(projectID, paper); err != nil {
		return 0, fmt.Errorf("writing parsed paper: %w", err)
	}

	span.SetAttr("paragraphs", len(paper.Paragraphs))

	s.invalidate(ctx, projectID)
	s.trackIngest(analytics.IngestEvent{
		Type:           analytics.EventIngest,
		ProjectID:      projectID,
		Stage:          "paper",
		ParagraphCount: len(paper.Paragraphs),
		LatencyMs:      time.Since(start).Milliseconds(),
		Timestamp:      time.Now().UTC(),
	})
	s.logger.Info("paper ingested", "project_id", projectID, "paragraphs", len(paper.Paragraphs))
	return len(paper.Paragraphs), nil
}

// IngestCode walks a repository directory into file, symbol and text
// artifacts.
func (s *Service) IngestCode(ctx context.Context, projectID, repoDir string) (fileCount, symbolCount int, err error) {
	if _, err := s.store.Get(ctx, projectID); err != nil {
		return 0, 0, err
	}
	if info, statErr := os.Stat(repoDir); statErr != nil || !info.IsDir() {
		return 0, 0, apperrors.Newf(apperrors.ErrInvalidInput, http.StatusBadRequest, "repo dir %q is not a directory", repoDir)
	}
	ctx, span := tracing.StartSpan(ctx, "ingest-code", middleware.GetRequestID(ctx))
	defer func() {
		span.End()
		span.Log()
	}()
	span.SetAttr("project_id", projectID)
	start := time.Now()

	limits := ingest.Limits{
		MaxFileBytes: s.cfg.Projects.MaxFileBytes,
		ExcerptBytes: s.cfg.Projects.ExcerptBytes,
	}
	files, symbols, texts, err := ingest.WalkRepo(repoDir, limits)
	if err != nil {
		return 0, 0, fmt.Errorf("walking repo: %w", err)
	}
	if err := s.artifacts.WriteFileIndex(projectID, files); err != nil {
		return 0, 0, err
	}
	if err := s.artifacts.WriteSymbols(projectID, symbols); err != nil {
		return 0, 0, err
	}
	if err := s.artifacts.WriteTextIndex(projectID, texts); err != nil {
		return 0, 0, err
	}

	span.SetAttr("files", len(files.Files))
	span.SetAttr("symbols", len(symbols.Symbols))

	s.invalidate(ctx, projectID)
	s.trackIngest(analytics.IngestEvent{
		Type:        analytics.EventIngest,
		ProjectID:   projectID,
		Stage:       "code",
		FileCount:   len(files.Files),
		SymbolCount: len(symbols.Symbols),
		LatencyMs:   time.Since(start).Milliseconds(),
		Timestamp:   time.Now().UTC(),
	})
	s.logger.Info("code ingested", "project_id", projectID,
		"files", len(files.Files), "symbols", len(symbols.Symbols))
	return len(files.Files), len(symbols.Symbols), nil
}

// BuildAlignment computes the paragraph-to-code alignment map from the
// ingested artifacts.
func (s *Service) BuildAlignment(ctx context.Context, projectID string) (align.Map, error) {
	if _, err := s.store.Get(ctx, projectID); err != nil {
		return align.Map{}, err
	}
	paper, err := s.artifacts.ReadPaper(projectID)
	if err != nil {
		return align.Map{}, err
	}
	symbols, err := s.artifacts.ReadSymbols(projectID)
	if err != nil {
		return align.Map{}, err
	}
	texts, err := s.artifacts.ReadTextIndex(projectID)
	if err != nil {
		return align.Map{}, err
	}

	m := align.BuildMap(paper, symbols, texts, s.cfg.Retrieval.AlignTopN)
	if err := s.artifacts.WriteAlignment(projectID, m); err != nil {
		return align.Map{}, err
	}
	if s.metrics != nil {
		for _, result := range m.Results {
			s.metrics.AlignmentMatches.Observe(float64(len(result.Matches)))
		}
	}

	s.invalidate(ctx, projectID)
	s.logger.Info("alignment built", "project_id", projectID,
		"paragraphs", m.ParagraphCount, "matches", m.MatchCount)
	return m, nil
}

// BuildIndexes builds the lexical and vector indexes for both corpora and
// persists them. The four builds run concurrently.
func (s *Service) BuildIndexes(ctx context.Context, projectID string) error {
	if _, err := s.store.Get(ctx, projectID); err != nil {
		return err
	}
	ctx, span := tracing.StartSpan(ctx, "build-indexes", middleware.GetRequestID(ctx))
	defer func() {
		span.End()
		span.Log()
	}()
	span.SetAttr("project_id", projectID)

	paper, err := s.artifacts.ReadPaper(projectID)
	if err != nil {
		return err
	}
	texts, err := s.artifacts.ReadTextIndex(projectID)
	if err != nil {
		return err
	}

	paperDocs := paperDocuments(paper)
	codeDocs := codeDocuments(texts)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.buildLexical(projectID, "paper", paperDocs) })
	g.Go(func() error { return s.buildLexical(projectID, "code", codeDocs) })
	g.Go(func() error { return s.buildVector(gctx, projectID, "paper", toVectorDocs(paperDocs)) })
	g.Go(func() error { return s.buildVector(gctx, projectID, "code", toVectorDocs(codeDocs)) })
	if err := g.Wait(); err != nil {
		return err
	}
	span.SetAttr("paper_docs", len(paperDocs))
	span.SetAttr("code_docs", len(codeDocs))

	s.invalidate(ctx, projectID)
	s.logger.Info("indexes built", "project_id", projectID,
		"paper_docs", len(paperDocs), "code_docs", len(codeDocs))
	return nil
}

func (s *Service) buildLexical(projectID, corpus string, docs []lexical.Document) error {
	start := time.Now()
	idx := lexical.Build(docs, lexical.Options{
		K1:      s.cfg.Retrieval.K1,
		B:       s.cfg.Retrieval.B,
		Epsilon: s.cfg.Retrieval.Epsilon,
	})
	data, err := idx.Marshal()
	if err != nil {
		s.observeBuild("bm25_"+corpus, start, err)
		return fmt.Errorf("marshaling %s bm25 index: %w", corpus, err)
	}
	err = os.WriteFile(s.artifacts.LexicalIndexPath(projectID, corpus), data, 0o644)
	s.observeBuild("bm25_"+corpus, start, err)
	if err != nil {
		return fmt.Errorf("writing %s bm25 index: %w", corpus, err)
	}
	return nil
}

func (s *Service) buildVector(ctx context.Context, projectID, corpus string, docs []vector.Document) error {
	start := time.Now()
	opts, err := s.vectorOptions(projectID, corpus)
	if err != nil {
		return err
	}
	idx, err := vector.Build(ctx, opts, docs)
	if err != nil {
		s.observeBuild("vector_"+corpus, start, err)
		return fmt.Errorf("building %s vector index: %w", corpus, err)
	}
	manifest, err := idx.Manifest()
	if err != nil {
		s.observeBuild("vector_"+corpus, start, err)
		return fmt.Errorf("serialising %s vector index: %w", corpus, err)
	}
	data, err := manifest.Marshal()
	if err != nil {
		s.observeBuild("vector_"+corpus, start, err)
		return err
	}
	err = os.WriteFile(s.artifacts.VectorManifestPath(projectID, corpus), data, 0o644)
	s.observeBuild("vector_"+corpus, start, err)
	if err != nil {
		return fmt.Errorf("writing %s vector manifest: %w", corpus, err)
	}
	return nil
}

func (s *Service) observeBuild(kind string, start time.Time, err error) {
	if s.metrics == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	s.metrics.IndexBuildsTotal.WithLabelValues(kind, status).Inc()
	s.metrics.IndexBuildDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
}

// vectorOptions maps the vector config to build/load options for one
// corpus. The sqlitevec backend gets a per-corpus database path and an
// Ollama embedder.
func (s *Service) vectorOptions(projectID, corpus string) (vector.Options, error) {
	opts := vector.Options{
		Backend:  s.cfg.Vector.Backend,
		MaxTerms: s.cfg.Retrieval.MaxTerms,
		Dim:      s.cfg.Vector.Dim,
		Model:    s.cfg.Vector.Model,
	}
	if opts.Backend == vector.BackendSQLiteVec {
		opts.Path = s.artifacts.VectorDBPath(projectID, corpus)
		embedder, err := vector.NewOllamaEmbedder(s.cfg.Vector.OllamaURL, s.cfg.Vector.Model, s.cfg.Vector.Timeout)
		if err != nil {
			return vector.Options{}, err
		}
		opts.Embedder = embedder
	}
	return opts, nil
}

// AskResult is the complete QA outcome for one question.
type AskResult struct {
	Route                qa.Route      `json:"route"`
	Answer               string        `json:"answer"`
	Evidence             []qa.Evidence `json:"evidence"`
	EvidenceMix          qa.Mix        `json:"evidence_mix"`
	CodeRefs             []string      `json:"code_refs"`
	InsufficientEvidence bool          `json:"insufficient_evidence"`
	CacheHit             bool          `json:"cache_hit"`
}

// codeRefs lists the distinct code paths referenced by the evidence, in
// evidence order.
func codeRefs(evidence []qa.Evidence) []string {
	refs := []string{}
	seen := make(map[string]struct{}, len(evidence))
	for _, item := range evidence {
		if item.Path == "" {
			continue
		}
		if _, ok := seen[item.Path]; ok {
			continue
		}
		seen[item.Path] = struct{}{}
		refs = append(refs, item.Path)
	}
	return refs
}

// Ask answers a question over a project's corpora, consulting the answer
// cache first.
func (s *Service) Ask(ctx context.Context, projectID, question string) (*AskResult, error) {
	if err := validateQuestion(question); err != nil {
		return nil, err
	}
	if _, err := s.store.Get(ctx, projectID); err != nil {
		return nil, err
	}
	ctx, span := tracing.StartSpan(ctx, "ask", middleware.GetRequestID(ctx))
	defer func() {
		span.End()
		span.Log()
	}()
	span.SetAttr("project_id", projectID)
	start := time.Now()

	var result *AskResult
	var cacheHit bool
	if s.cache != nil {
		cached, hit, err := s.cache.GetOrCompute(ctx, projectID, question, func() (*qacache.Answer, error) {
			computed, err := s.answer(ctx, projectID, question)
			if err != nil {
				return nil, err
			}
			result = computed
			return toCacheAnswer(computed)
		})
		if err != nil {
			return nil, err
		}
		cacheHit = hit
		if result == nil {
			restored, err := fromCacheAnswer(cached)
			if err != nil {
				return nil, err
			}
			result = restored
		}
	} else {
		computed, err := s.answer(ctx, projectID, question)
		if err != nil {
			return nil, err
		}
		result = computed
	}
	result.CacheHit = cacheHit
	span.SetAttr("route", string(result.Route))
	span.SetAttr("cache_hit", cacheHit)

	s.recordQuestion(ctx, projectID, question, result, time.Since(start))
	return result, nil
}

// AskStream curates evidence, then streams answer chunks through emit.
// The returned result carries the final answer and curated evidence for
// the terminal event. Streams bypass the answer cache.
func (s *Service) AskStream(ctx context.Context, projectID, question string, emit func(chunk string) error) (*AskResult, error) {
	if err := validateQuestion(question); err != nil {
		return nil, err
	}
	if _, err := s.store.Get(ctx, projectID); err != nil {
		return nil, err
	}
	ctx, span := tracing.StartSpan(ctx, "ask-stream", middleware.GetRequestID(ctx))
	defer func() {
		span.End()
		span.Log()
	}()
	span.SetAttr("project_id", projectID)
	start := time.Now()

	curated, err := s.curate(ctx, projectID, question)
	if err != nil {
		return nil, err
	}
	span.SetAttr("route", string(curated.Route))

	var answer []byte
	llmCtx, llmSpan := tracing.StartChildSpan(ctx, "generate")
	llmStart := time.Now()
	err = s.llm.GenerateStream(llmCtx, question, curated.Evidence, func(chunk string) error {
		answer = append(answer, chunk...)
		return emit(chunk)
	})
	llmSpan.End()
	s.observeLLM(llmStart, err)
	if err != nil {
		return nil, err
	}

	result := &AskResult{
		Route:                curated.Route,
		Answer:               string(answer),
		Evidence:             curated.Evidence,
		EvidenceMix:          curated.Mix,
		CodeRefs:             codeRefs(curated.Evidence),
		InsufficientEvidence: curated.InsufficientEvidence,
	}
	s.recordQuestion(ctx, projectID, question, result, time.Since(start))
	return result, nil
}

func (s *Service) answer(ctx context.Context, projectID, question string) (*AskResult, error) {
	curated, err := s.curate(ctx, projectID, question)
	if err != nil {
		return nil, err
	}

	llmCtx, llmSpan := tracing.StartChildSpan(ctx, "generate")
	llmStart := time.Now()
	answer, err := s.llm.Generate(llmCtx, question, curated.Evidence)
	llmSpan.End()
	s.observeLLM(llmStart, err)
	if err != nil {
		return nil, err
	}

	return &AskResult{
		Route:                curated.Route,
		Answer:               answer,
		Evidence:             curated.Evidence,
		EvidenceMix:          curated.Mix,
		CodeRefs:             codeRefs(curated.Evidence),
		InsufficientEvidence: curated.InsufficientEvidence,
	}, nil
}

// curate routes the question and retrieves evidence. A vector backend
// failure degrades to lexical-only retrieval with a warning instead of
// failing the question.
func (s *Service) curate(ctx context.Context, projectID, question string) (qa.Curated, error) {
	eng, err := s.engine(ctx, projectID)
	if err != nil {
		return qa.Curated{}, err
	}
	route := qa.RouteQuestion(question)

	ctx, span := tracing.StartChildSpan(ctx, "curate")
	defer span.End()
	span.SetAttr("route", string(route))

	retrievalStart := time.Now()
	curated, err := eng.curator.Curate(ctx, question, route)
	if err != nil {
		s.logger.Warn("vector retrieval failed, degrading to lexical-only",
			"project_id", projectID, "error", err)
		curated, err = eng.lexicalOnly.Curate(ctx, question, route)
		if err != nil {
			return qa.Curated{}, err
		}
	}
	span.SetAttr("evidence", len(curated.Evidence))
	if s.metrics != nil {
		s.metrics.RetrievalLatency.WithLabelValues(string(route)).Observe(time.Since(retrievalStart).Seconds())
		s.metrics.EvidenceCount.Observe(float64(len(curated.Evidence)))
	}
	return curated, nil
}

// engine returns the cached engine for a project, loading artifacts and
// indexes on first use.
func (s *Service) engine(ctx context.Context, projectID string) (*engine, error) {
	s.mu.RLock()
	eng, ok := s.engines[projectID]
	s.mu.RUnlock()
	if ok {
		return eng, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if eng, ok := s.engines[projectID]; ok {
		return eng, nil
	}

	eng, err := s.loadEngine(ctx, projectID)
	if err != nil {
		return nil, err
	}
	s.engines[projectID] = eng
	return eng, nil
}

func (s *Service) loadEngine(ctx context.Context, projectID string) (*engine, error) {
	paper, err := s.artifacts.ReadPaper(projectID)
	if err != nil {
		return nil, err
	}
	texts, err := s.artifacts.ReadTextIndex(projectID)
	if err != nil {
		return nil, err
	}
	alignment, err := s.artifacts.ReadAlignment(projectID)
	if err != nil {
		return nil, err
	}

	paperLex := s.loadLexical(projectID, "paper", paperDocuments(paper))
	codeLex := s.loadLexical(projectID, "code", codeDocuments(texts))

	paperVec, err := s.loadVector(ctx, projectID, "paper", toVectorDocs(paperDocuments(paper)))
	if err != nil {
		return nil, err
	}
	codeVec, err := s.loadVector(ctx, projectID, "code", toVectorDocs(codeDocuments(texts)))
	if err != nil {
		return nil, err
	}

	opts := qa.CuratorOptions{
		TopK:      s.cfg.Retrieval.TopK,
		FusedTopK: s.cfg.Retrieval.FusedTopK,
		RRFK:      s.cfg.Retrieval.RRFK,
		AlignMax:  s.cfg.Retrieval.AlignMax,
	}
	return &engine{
		curator: qa.NewCurator(opts,
			qa.Corpus{Lexical: paperLex, Vector: paperVec},
			qa.Corpus{Lexical: codeLex, Vector: codeVec},
			alignment, paper, texts),
		lexicalOnly: qa.NewCurator(opts,
			qa.Corpus{Lexical: paperLex},
			qa.Corpus{Lexical: codeLex},
			alignment, paper, texts),
	}, nil
}

// loadLexical restores a persisted BM25 index, rebuilding from documents
// when the artifact is missing.
func (s *Service) loadLexical(projectID, corpus string, docs []lexical.Document) *lexical.Index {
	data, err := os.ReadFile(s.artifacts.LexicalIndexPath(projectID, corpus))
	if err == nil {
		return lexical.Load(data)
	}
	return lexical.Build(docs, lexical.Options{
		K1:      s.cfg.Retrieval.K1,
		B:       s.cfg.Retrieval.B,
		Epsilon: s.cfg.Retrieval.Epsilon,
	})
}

// loadVector restores a persisted vector index, rebuilding when the
// manifest is missing.
func (s *Service) loadVector(ctx context.Context, projectID, corpus string, docs []vector.Document) (vector.Index, error) {
	opts, err := s.vectorOptions(projectID, corpus)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.artifacts.VectorManifestPath(projectID, corpus))
	if err == nil {
		return vector.Load(ctx, opts, data)
	}
	return vector.Build(ctx, opts, docs)
}

// invalidate drops the loaded engine and cached answers after artifacts
// change.
func (s *Service) invalidate(ctx context.Context, projectID string) {
	s.mu.Lock()
	delete(s.engines, projectID)
	s.mu.Unlock()

	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, projectID); err != nil {
			s.logger.Warn("answer cache invalidation failed", "project_id", projectID, "error", err)
		}
	}
}

func (s *Service) recordQuestion(ctx context.Context, projectID, question string, result *AskResult, elapsed time.Duration) {
	if s.metrics != nil {
		s.metrics.QuestionsTotal.WithLabelValues(string(result.Route)).Inc()
		if result.CacheHit {
			s.metrics.CacheHitsTotal.Inc()
		} else {
			s.metrics.CacheMissesTotal.Inc()
		}
		s.metrics.LLMCircuitState.Set(float64(s.llm.BreakerState()))
	}

	if s.collector != nil {
		s.collector.Track(analytics.QuestionEvent{
			Type:                 analytics.EventQuestion,
			ProjectID:            projectID,
			Question:             question,
			Route:                string(result.Route),
			EvidenceCount:        len(result.Evidence),
			InsufficientEvidence: result.InsufficientEvidence,
			CacheHit:             result.CacheHit,
			LatencyMs:            elapsed.Milliseconds(),
			Timestamp:            time.Now().UTC(),
			RequestID:            middleware.GetRequestID(ctx),
		})
	}

	mix, err := json.Marshal(result.EvidenceMix)
	if err != nil {
		mix = nil
	}
	if err := s.artifacts.AppendQALog(projectID, project.QAEntry{
		Timestamp:            time.Now().UTC().Format(time.RFC3339),
		Question:             question,
		Route:                string(result.Route),
		Answer:               result.Answer,
		EvidenceCount:        len(result.Evidence),
		InsufficientEvidence: result.InsufficientEvidence,
		EvidenceMix:          mix,
		LatencyMS:            elapsed.Milliseconds(),
	}); err != nil {
		s.logger.Warn("appending qa log failed", "project_id", projectID, "error", err)
	}
}

func (s *Service) trackIngest(event analytics.IngestEvent) {
	if s.collector == nil {
		return
	}
	s.collector.Track(event)
}

func (s *Service) observeLLM(start time.Time, err error) {
	if s.metrics == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	s.metrics.LLMLatency.WithLabelValues(outcome).Observe(time.Since(start).Seconds())
}

// QALog returns the question history for a project.
func (s *Service) QALog(ctx context.Context, projectID string) ([]project.QAEntry, error) {
	if _, err := s.store.Get(ctx, projectID); err != nil {
		return nil, err
	}
	return s.artifacts.ReadQALog(projectID)
}

// InvalidateCache clears cached answers for a project on demand.
func (s *Service) InvalidateCache(ctx context.Context, projectID string) error {
	if _, err := s.store.Get(ctx, projectID); err != nil {
		return err
	}
	s.invalidate(ctx, projectID)
	return nil
}

func validateQuestion(question string) error {
	if len(question) == 0 || len(question) > 4000 {
		return apperrors.New(apperrors.ErrInvalidInput, http.StatusBadRequest, "question must be between 1 and 4000 bytes")
	}
	return nil
}

func paperDocuments(paper ingest.Paper) []lexical.Document {
	docs := make([]lexical.Document, 0, len(paper.Paragraphs))
	for i, p := range paper.Paragraphs {
		docs = append(docs, lexical.Document{DocID: qa.PaperDocID(i), Text: p.Text})
	}
	return docs
}

func codeDocuments(texts ingest.TextIndex) []lexical.Document {
	docs := make([]lexical.Document, 0, len(texts.Entries))
	for _, entry := range texts.Entries {
		docs = append(docs, lexical.Document{DocID: entry.Path, Text: entry.Path + " " + entry.Excerpt})
	}
	return docs
}

func toVectorDocs(docs []lexical.Document) []vector.Document {
	out := make([]vector.Document, len(docs))
	for i, d := range docs {
		out[i] = vector.Document{DocID: d.DocID, Text: d.Text}
	}
	return out
}

func toCacheAnswer(result *AskResult) (*qacache.Answer, error) {
	evidence, err := json.Marshal(result.Evidence)
	if err != nil {
		return nil, err
	}
	mix, err := json.Marshal(result.EvidenceMix)
	if err != nil {
		return nil, err
	}
	return &qacache.Answer{
		Route:                string(result.Route),
		Answer:               result.Answer,
		Evidence:             evidence,
		EvidenceMix:          mix,
		InsufficientEvidence: result.InsufficientEvidence,
	}, nil
}

func fromCacheAnswer(cached *qacache.Answer) (*AskResult, error) {
	result := &AskResult{
		Route:                qa.Route(cached.Route),
		Answer:               cached.Answer,
		Evidence:             []qa.Evidence{},
		InsufficientEvidence: cached.InsufficientEvidence,
	}
	if len(cached.Evidence) > 0 {
		if err := json.Unmarshal(cached.Evidence, &result.Evidence); err != nil {
			return nil, fmt.Errorf("decoding cached evidence: %w", err)
		}
	}
	if len(cached.EvidenceMix) > 0 {
		if err := json.Unmarshal(cached.EvidenceMix, &result.EvidenceMix); err != nil {
			return nil, fmt.Errorf("decoding cached evidence mix: %w", err)
		}
	}
	result.CodeRefs = codeRefs(result.Evidence)
	return result, nil
}
