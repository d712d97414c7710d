package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log"
	"sync"
	"time"

	"github.com/paperbase-ai/paperbase/internal/domain"
	"github.com/paperbase-ai/paperbase/internal/model"
	"github.com/paperbase-ai/paperbase/internal/pagination"
)

// DocumentExtractor is the extraction adapter contract the ingest pipeline
// depends on.
type DocumentExtractor interface {
	Extract(ctx context.Context, fileBytes []byte, filename string) (*domain.Document, error)
	EstimateUsage(doc *domain.Document) (inputTokens, outputTokens int)
}

// DocumentRepository covers reads and deletes of published documents.
type DocumentRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Document, error)
	ListWithCursor(ctx context.Context, cursor *pagination.Cursor, limit int) (*DocumentPageResult, error)
	Delete(ctx context.Context, id string) error
	DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error)
}

// DocumentPageResult is one page of a cursor-paginated document listing.
type DocumentPageResult struct {
	Items      []*domain.Document
	NextCursor string
	HasMore    bool
}

// TxRepositories exposes the repositories participating in an index publish
// transaction.
type TxRepositories interface {
	Documents() DocumentTxRepository
	Chunks() ChunkTxRepository
}

// DocumentTxRepository writes a document and its pages inside a transaction.
type DocumentTxRepository interface {
	Create(ctx context.Context, doc *domain.Document) error
}

// ChunkTxRepository writes embedded chunks inside a transaction.
type ChunkTxRepository interface {
	InsertChunks(ctx context.Context, chunks []domain.Chunk) error
}

// TxRunner runs a function inside one database transaction. Commit is the
// publish point of an index: readers only ever see a fully built document.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(repos TxRepositories) error) error
}

// PDFArchiver stores the original uploaded bytes. Archival is best effort
// and happens after the index is published.
type PDFArchiver interface {
	ArchivePDF(ctx context.Context, documentID, filename string, fileBytes []byte) error
}

// UsageRecorder is the ledger write contract used by the pipeline services.
type UsageRecorder interface {
	Record(ctx context.Context, rec domain.UsageRecord) error
}

// EmbedderRegistry resolves an embedding capability by model identifier.
type EmbedderRegistry interface {
	EmbedderFor(id string) (model.Embedder, model.Entry, error)
}

// IngestConfig tunes the ingestion pipeline.
type IngestConfig struct {
	ChunkConfig    ChunkConfig
	EmbeddingModel string
	OCRModel       string
	DocumentTTL    time.Duration
}

// IngestService drives upload ingestion end to end: extract, chunk, embed,
// publish. A failure at any stage aborts the whole upload; no partial
// document is ever queryable.
type IngestService struct {
	extractor DocumentExtractor
	registry  EmbedderRegistry
	txRunner  TxRunner
	docs      DocumentRepository
	usage     UsageRecorder
	archiver  PDFArchiver
	cfg       IngestConfig
	now       func() time.Time

	mu       sync.Mutex
	inflight map[string]struct{}
}

func NewIngestService(
	extractor DocumentExtractor,
	registry EmbedderRegistry,
	txRunner TxRunner,
	docs DocumentRepository,
	usage UsageRecorder,
	cfg IngestConfig,
) *IngestService {
	if cfg.ChunkConfig.MaxChars <= 0 {
		cfg.ChunkConfig = DefaultChunkConfig()
	}
	if cfg.EmbeddingModel == "" {
		cfg.EmbeddingModel = "text-embedding-3-small"
	}
	if cfg.OCRModel == "" {
		cfg.OCRModel = "mistral-ocr-latest"
	}
	return &IngestService{
		extractor: extractor,
		registry:  registry,
		txRunner:  txRunner,
		docs:      docs,
		usage:     usage,
		cfg:       cfg,
		now:       func() time.Time { return time.Now().UTC() },
		inflight:  make(map[string]struct{}),
	}
}

// WithArchiver attaches an optional PDF archive store.
func (s *IngestService) WithArchiver(archiver PDFArchiver) *IngestService {
	s.archiver = archiver
	return s
}

// IngestResult is the outcome of a successful upload.
type IngestResult struct {
	Document   *domain.Document
	ChunkCount int
}

// Ingest runs the full upload pipeline. Builds are serialized per uploaded
// content: a second upload of the same bytes while a build is in flight
// fails fast with BUILD_IN_PROGRESS instead of racing to publish.
func (s *IngestService) Ingest(ctx context.Context, fileBytes []byte, filename string) (*IngestResult, error) {
	key := contentKey(fileBytes)
	if !s.acquireBuild(key) {
		return nil, domain.ErrBuildInProgress
	}
	defer s.releaseBuild(key)

	doc, err := s.extractor.Extract(ctx, fileBytes, filename)
	if err != nil {
		return nil, err
	}

	inputTokens, outputTokens := s.extractor.EstimateUsage(doc)
	s.recordUsage(ctx, domain.UsageRecord{
		Model:          s.cfg.OCRModel,
		Feature:        domain.FeatureExtraction,
		InputTokens:    inputTokens,
		OutputTokens:   outputTokens,
		DocumentSizeKB: doc.SizeKB,
	})

	chunks, err := ChunkDocument(doc, s.cfg.ChunkConfig)
	if err != nil {
		return nil, err
	}
	if len(chunks) == 0 {
		return nil, domain.ErrNoPages
	}

	embedder, entry, err := s.registry.EmbedderFor(s.cfg.EmbeddingModel)
	if err != nil {
		return nil, err
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	embeddings, err := embedder.GenerateEmbeddings(ctx, entry.ID, texts)
	if err != nil {
		return nil, domain.NewIndexBuildError(err)
	}
	for i := range chunks {
		chunks[i].Embedding = embeddings[i]
	}

	doc.EmbeddingModel = entry.ID
	if s.cfg.DocumentTTL > 0 {
		doc.ExpiresAt = doc.ExtractedAt.Add(s.cfg.DocumentTTL)
	}

	// Publish atomically: the document row and all chunk embeddings commit
	// together, so an index is either fully visible or absent.
	err = s.txRunner.WithTx(ctx, func(repos TxRepositories) error {
		if err := repos.Documents().Create(ctx, doc); err != nil {
			return err
		}
		return repos.Chunks().InsertChunks(ctx, chunks)
	})
	if err != nil {
		return nil, domain.NewIndexBuildError(err)
	}

	if s.archiver != nil {
		if err := s.archiver.ArchivePDF(ctx, doc.ID, filename, fileBytes); err != nil {
			log.Printf("pdf archive failed for document %s: %v", doc.ID, err)
		}
	}

	return &IngestResult{Document: doc, ChunkCount: len(chunks)}, nil
}

// Get returns a published document by ID. A document past its retention
// deadline is reported as missing even if the sweeper has not evicted the
// row yet.
func (s *IngestService) Get(ctx context.Context, id string) (*domain.Document, error) {
	doc, err := s.docs.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if doc.Expired(s.now()) {
		return nil, domain.ErrDocumentNotFound
	}
	return doc, nil
}

// ListInput parameterizes document listing.
type ListInput struct {
	Cursor string
	Limit  int
}

// List returns a cursor-paginated page of documents, newest first.
func (s *IngestService) List(ctx context.Context, input ListInput) (*DocumentPageResult, error) {
	var cursor *pagination.Cursor
	if input.Cursor != "" {
		decoded, err := pagination.DecodeCursor(input.Cursor)
		if err != nil {
			return nil, domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "invalid cursor", err)
		}
		cursor = decoded
	}
	return s.docs.ListWithCursor(ctx, cursor, input.Limit)
}

// Delete removes a document together with its chunks.
func (s *IngestService) Delete(ctx context.Context, id string) error {
	return s.docs.Delete(ctx, id)
}

func (s *IngestService) acquireBuild(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.inflight[key]; busy {
		return false
	}
	s.inflight[key] = struct{}{}
	return true
}

func (s *IngestService) releaseBuild(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inflight, key)
}

func (s *IngestService) recordUsage(ctx context.Context, rec domain.UsageRecord) {
	if s.usage == nil {
		return
	}
	if err := s.usage.Record(ctx, rec); err != nil {
		log.Printf("failed to record usage: %v", err)
	}
}

func contentKey(fileBytes []byte) string {
	sum := sha256.Sum256(fileBytes)
	return hex.EncodeToString(sum[:])
}
