package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"strings"
	"sync"
	"time"

	"reporag/internal/adapter/analyzer"
	"reporag/internal/adapter/fetcher"
	"reporag/internal/adapter/lazy"
	"reporag/internal/adapter/retriever"
	"reporag/internal/domain"
	"reporag/internal/port"
	"reporag/internal/workpool"
)

const DefaultTopK = 5

// Options wires the collaborators of a RAGService.
type Options struct {
	Fetcher   port.Fetcher
	Tokenizer port.Tokenizer
	Chunker   port.Chunker
	Text      port.Embedder
	Code      port.Embedder

	// Store is required unless Lazy is set.
	Store port.VectorStore

	// LLM is optional. Without it every answer is extractive.
	LLM port.LLM

	Workers       int
	BatchSize     int
	ContextTokens int

	// Lazy selects the metadata path: no chunking or vector store, file
	// heads are parsed and scored per query.
	Lazy      bool
	HeadLines int
	MaxFiles  int
	CacheSize int

	Progress ProgressFunc
	Now      func() time.Time
}

// RAGService analyzes one repository at a time and answers questions about
// it. One instance owns one repository context; callers serialize analyze
// calls per instance.
type RAGService struct {
	opts    Options
	pool    *workpool.Pool
	volume  *analyzer.VolumeAnalyzer
	indexer *IndexUseCase
	prompts *PromptBuilder
	logger  *slog.Logger

	mu       sync.RWMutex
	status   domain.Status
	retrieve *RetrieveUseCase
	lazy     *lazy.Retriever
	closed   bool
}

func NewRAGService(opts Options) (*RAGService, error) {
	switch {
	case opts.Fetcher == nil:
		return nil, errors.New("rag service: fetcher is required")
	case opts.Tokenizer == nil:
		return nil, errors.New("rag service: tokenizer is required")
	case opts.Text == nil || opts.Code == nil:
		return nil, errors.New("rag service: text and code embedders are required")
	case !opts.Lazy && opts.Chunker == nil:
		return nil, errors.New("rag service: chunker is required")
	case !opts.Lazy && opts.Store == nil:
		return nil, errors.New("rag service: vector store is required")
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	pool, err := workpool.New(opts.Workers)
	if err != nil {
		return nil, err
	}

	s := &RAGService{
		opts:    opts,
		pool:    pool,
		volume:  analyzer.NewVolumeAnalyzer(opts.Tokenizer),
		prompts: NewPromptBuilder(opts.Tokenizer, opts.ContextTokens),
		logger:  slog.Default().With("component", "rag-service"),
		status: domain.Status{
			Stage:   domain.StageIdle,
			Lazy:    opts.Lazy,
			Message: notReadyMessage,
		},
	}
	if !opts.Lazy {
		s.indexer = NewIndexUseCase(opts.Store, pool, opts.BatchSize)
	}
	return s, nil
}

const notReadyMessage = "No repository analyzed"

func readyMessage(repo string) string {
	return fmt.Sprintf("Repository '%s' is ready for queries", repo)
}

// AnalyzeRepository fetches, chunks, embeds and stores repo, or builds the
// metadata index in lazy mode. On failure the service is left not ready.
func (s *RAGService) AnalyzeRepository(ctx context.Context, repo string) (domain.AnalyzeResult, error) {
	repo = strings.TrimSpace(repo)
	if err := s.begin(repo); err != nil {
		return domain.AnalyzeResult{}, err
	}

	source, err := s.analyze(ctx, repo)
	if err != nil {
		s.fail(err)
		s.logger.Error("repository analysis failed", "repository", repo, "err", err)
		return domain.AnalyzeResult{}, err
	}
	s.markReady(source)

	st := s.GetStatus()
	s.logger.Info("repository analyzed",
		"repository", repo,
		"stored", st.Counters.Stored,
		"skipped", st.Counters.SkippedDuplicates,
		"elapsed", s.opts.Now().Sub(st.StartedAt))

	return domain.AnalyzeResult{
		Status:     "success",
		Message:    fmt.Sprintf("Repository %s analyzed successfully", repo),
		Repository: repo,
		Volume:     st.Volume,
	}, nil
}

// Attach reopens the collections persisted by an earlier analysis of repo
// and marks the service ready when they hold any chunks.
func (s *RAGService) Attach(ctx context.Context, repo string) error {
	if s.opts.Lazy {
		return fmt.Errorf("%w: the lazy path keeps no persisted index", domain.ErrNotReady)
	}
	repo = strings.TrimSpace(repo)
	if err := fetcher.ValidateIdentifier(repo); err != nil {
		return err
	}
	if err := s.begin(repo); err != nil {
		return err
	}

	textIx, codeIx, err := s.indexer.Open(ctx, s.opts.Text, s.opts.Code)
	if err != nil {
		s.fail(err)
		return err
	}
	total := 0
	for _, coll := range []port.Collection{textIx.Collection(), codeIx.Collection()} {
		n, err := coll.Count(ctx)
		if err != nil {
			s.fail(err)
			return fmt.Errorf("count stored chunks: %w", err)
		}
		total += n
	}
	if total == 0 {
		err := fmt.Errorf("%w: no stored chunks for %s", domain.ErrNotReady, repo)
		s.fail(err)
		return err
	}

	s.update(func(st *domain.Status) { st.Counters.Stored = total })
	s.markReady(VectorCandidates{
		Text: retriever.NewSemanticRetriever(textIx, s.opts.Text),
		Code: retriever.NewSemanticRetriever(codeIx, s.opts.Code),
	})
	return nil
}

func (s *RAGService) analyze(ctx context.Context, repo string) (Candidates, error) {
	s.enter(domain.StageFetching)
	files, err := workpool.Do(ctx, s.pool, func() ([]domain.RepoFile, error) {
		return s.opts.Fetcher.Fetch(ctx, repo)
	})
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", repo, err)
	}
	if len(files) == 0 {
		return nil, domain.ErrNoFiles
	}
	s.progress(domain.StageFetching, len(files), len(files))

	info := s.volume.Analyze(files)
	s.update(func(st *domain.Status) {
		st.Counters.Files = len(files)
		st.Volume = &info
	})

	if s.opts.Lazy {
		return s.prepareLazy(ctx, files)
	}
	return s.prepareIndex(ctx, files, info)
}

func (s *RAGService) prepareIndex(ctx context.Context, files []domain.RepoFile, info domain.VolumeInfo) (Candidates, error) {
	s.enter(domain.StageChunking)
	set, err := workpool.Do(ctx, s.pool, func() (domain.ChunkSet, error) {
		return s.opts.Chunker.Chunk(files, info.TextChunkSize, info.CodeChunkSize)
	})
	if err != nil {
		return nil, fmt.Errorf("chunk repository: %w", err)
	}
	s.update(func(st *domain.Status) {
		st.Counters.TextChunks = len(set.Text)
		st.Counters.CodeChunks = len(set.Code)
	})
	s.progress(domain.StageChunking, set.Len(), set.Len())

	res, err := s.indexer.Index(ctx, set, s.opts.Text, s.opts.Code, s.enter, s.opts.Progress)
	if err != nil {
		return nil, err
	}
	s.update(func(st *domain.Status) {
		st.Counters.Embedded = res.Embedded
		st.Counters.Stored = res.Stored
		st.Counters.SkippedDuplicates = res.Skipped
		st.Counters.FallbackEmbeddings = res.Fallbacks
	})

	return VectorCandidates{
		Text: retriever.NewSemanticRetriever(res.Text, s.opts.Text),
		Code: retriever.NewSemanticRetriever(res.Code, s.opts.Code),
	}, nil
}

func (s *RAGService) prepareLazy(ctx context.Context, files []domain.RepoFile) (Candidates, error) {
	s.enter(domain.StageMetadata)
	index, err := workpool.Do(ctx, s.pool, func() (*lazy.MetadataIndex, error) {
		return lazy.NewMetadataIndex(s.opts.HeadLines).Build(files), nil
	})
	if err != nil {
		return nil, fmt.Errorf("build metadata index: %w", err)
	}
	for _, e := range []port.Embedder{s.opts.Text, s.opts.Code} {
		if _, err := workpool.Do(ctx, s.pool, func() (port.Strategy, error) {
			return e.Probe(ctx), nil
		}); err != nil {
			return nil, fmt.Errorf("probe %s embedder: %w", e.Name(), err)
		}
	}

	parser := lazy.NewLazyFileParser(index, s.opts.CacheSize)
	r := lazy.NewRetriever(index, parser, s.opts.Text, s.opts.Code, s.opts.MaxFiles)

	s.mu.Lock()
	s.lazy = r
	s.status.Counters.IndexedFiles = index.Len()
	s.mu.Unlock()
	s.progress(domain.StageMetadata, index.Len(), index.Len())

	return LazyCandidates{Retriever: r}, nil
}

// QueryRepository answers question from the analyzed repository. The
// answer degrades to an extractive summary of the retrieved context when
// the language model is missing or fails; it is never empty.
func (s *RAGService) QueryRepository(ctx context.Context, question string, topK int) (domain.QueryResult, error) {
	s.mu.RLock()
	closed, ready, retrieve := s.closed, s.status.Ready, s.retrieve
	s.mu.RUnlock()

	if closed {
		return domain.QueryResult{}, domain.ErrClosed
	}
	if !ready || retrieve == nil {
		return domain.QueryResult{}, domain.ErrNotReady
	}
	question = strings.TrimSpace(question)
	if question == "" {
		return domain.QueryResult{}, domain.ErrEmptyQuestion
	}
	if topK <= 0 {
		topK = DefaultTopK
	}

	chunks, err := workpool.Do(ctx, s.pool, func() ([]domain.ScoredChunk, error) {
		_, merged, err := retrieve.Retrieve(ctx, question, topK)
		return merged, err
	})
	if err != nil {
		return domain.QueryResult{}, fmt.Errorf("retrieve context: %w", err)
	}
	chunks = s.prompts.Pack(chunks)

	return domain.QueryResult{
		Answer:  s.answer(ctx, question, chunks),
		Sources: FormatSources(chunks),
	}, nil
}

// AnalyzeAndQuery analyzes repo and asks question in one call.
func (s *RAGService) AnalyzeAndQuery(ctx context.Context, repo, question string, topK int) (domain.AnalyzeResult, domain.QueryResult, error) {
	analyzed, err := s.AnalyzeRepository(ctx, repo)
	if err != nil {
		return domain.AnalyzeResult{}, domain.QueryResult{}, err
	}
	answered, err := s.QueryRepository(ctx, question, topK)
	if err != nil {
		return analyzed, domain.QueryResult{}, err
	}
	return analyzed, answered, nil
}

func (s *RAGService) answer(ctx context.Context, question string, chunks []domain.ScoredChunk) string {
	if s.opts.LLM == nil {
		return ExtractiveAnswer(chunks)
	}

	prompt := s.prompts.Build(question, chunks)
	out, err := workpool.Do(ctx, s.pool, func() (string, error) {
		return s.opts.LLM.GenerateWithSystem(ctx, SystemPrompt, prompt)
	})
	if err != nil {
		s.logger.Warn("language model failed, using extractive answer", "model", s.opts.LLM.ModelName(), "err", err)
		return ExtractiveAnswer(chunks)
	}
	out = strings.TrimSpace(out)
	if out == "" {
		s.logger.Warn("language model returned an empty answer, using extractive answer", "model", s.opts.LLM.ModelName())
		return ExtractiveAnswer(chunks)
	}
	return out
}

// GetStatus returns a snapshot of the service state.
func (s *RAGService) GetStatus() domain.Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := s.status
	st.Timestamps = maps.Clone(s.status.Timestamps)
	st.Durations = maps.Clone(s.status.Durations)
	if s.status.Volume != nil {
		v := *s.status.Volume
		st.Volume = &v
	}
	return st
}

// Cleanup releases the worker pool and closes the vector store. It is safe
// to call more than once.
func (s *RAGService) Cleanup() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.status.Ready = false
	s.status.Message = notReadyMessage
	s.retrieve = nil
	lazyRetriever := s.lazy
	s.lazy = nil
	s.mu.Unlock()

	if lazyRetriever != nil {
		lazyRetriever.Reset()
	}
	s.pool.Release()
	if s.opts.Store != nil {
		if err := s.opts.Store.Close(); err != nil {
			return fmt.Errorf("close vector store: %w", err)
		}
	}
	return nil
}

// begin resets the status for a new run on repo.
func (s *RAGService) begin(repo string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return domain.ErrClosed
	}
	if s.lazy != nil {
		s.lazy.Reset()
		s.lazy = nil
	}
	s.retrieve = nil
	s.status = domain.Status{
		Repository: repo,
		Stage:      domain.StageIdle,
		Lazy:       s.opts.Lazy,
		Message:    notReadyMessage,
		StartedAt:  s.opts.Now(),
		Timestamps: map[domain.Stage]time.Time{},
		Durations:  map[domain.Stage]time.Duration{},
	}
	return nil
}

// enter moves to stage and closes the duration of the previous one.
func (s *RAGService) enter(stage domain.Stage) {
	s.mu.Lock()
	s.transition(stage)
	repo := s.status.Repository
	s.mu.Unlock()
	s.logger.Info("stage", "repository", repo, "stage", stage)
}

// transition must be called with mu held.
func (s *RAGService) transition(stage domain.Stage) {
	now := s.opts.Now()
	prev := s.status.Stage
	if started, ok := s.status.Timestamps[prev]; ok {
		s.status.Durations[prev] = now.Sub(started)
	}
	s.status.Stage = stage
	s.status.Timestamps[stage] = now
}

func (s *RAGService) markReady(source Candidates) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transition(domain.StageReady)
	s.status.Ready = true
	s.status.Message = readyMessage(s.status.Repository)
	s.retrieve = NewRetrieveUseCase(source)
}

func (s *RAGService) fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transition(domain.StageFailed)
	s.status.Ready = false
	s.status.Message = notReadyMessage
	s.status.Error = err.Error()
	s.retrieve = nil
	if s.lazy != nil {
		s.lazy.Reset()
		s.lazy = nil
	}
}

func (s *RAGService) update(fn func(st *domain.Status)) {
	s.mu.Lock()
	fn(&s.status)
	s.mu.Unlock()
}

func (s *RAGService) progress(stage domain.Stage, done, total int) {
	if s.opts.Progress != nil {
		s.opts.Progress(stage, done, total)
	}
}
