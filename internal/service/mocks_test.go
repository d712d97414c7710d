package service

import (
	"context"
	"sync"
	"time"

	"github.com/paperbase-ai/paperbase/internal/domain"
	"github.com/paperbase-ai/paperbase/internal/model"
	"github.com/paperbase-ai/paperbase/internal/openai"
	"github.com/paperbase-ai/paperbase/internal/pagination"
	"github.com/stretchr/testify/mock"
)

// MockExtractor is a mock implementation of DocumentExtractor
type MockExtractor struct {
	mock.Mock
}

func (m *MockExtractor) Extract(ctx context.Context, fileBytes []byte, filename string) (*domain.Document, error) {
	args := m.Called(ctx, fileBytes, filename)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Document), args.Error(1)
}

func (m *MockExtractor) EstimateUsage(doc *domain.Document) (int, int) {
	args := m.Called(doc)
	return args.Int(0), args.Int(1)
}

// MockDocumentRepository is a mock implementation of DocumentRepository
type MockDocumentRepository struct {
	mock.Mock
}

func (m *MockDocumentRepository) GetByID(ctx context.Context, id string) (*domain.Document, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Document), args.Error(1)
}

func (m *MockDocumentRepository) ListWithCursor(ctx context.Context, cursor *pagination.Cursor, limit int) (*DocumentPageResult, error) {
	args := m.Called(ctx, cursor, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*DocumentPageResult), args.Error(1)
}

func (m *MockDocumentRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockDocumentRepository) DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	args := m.Called(ctx, cutoff)
	return args.Get(0).(int64), args.Error(1)
}

// MockChunkSearchRepository is a mock implementation of ChunkSearchRepository
type MockChunkSearchRepository struct {
	mock.Mock
}

func (m *MockChunkSearchRepository) SearchByEmbedding(ctx context.Context, documentID string, embedding []float32, limit int) ([]domain.ScoredChunk, error) {
	args := m.Called(ctx, documentID, embedding, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ScoredChunk), args.Error(1)
}

// MockEmbedder is a mock implementation of model.Embedder
type MockEmbedder struct {
	mock.Mock
}

func (m *MockEmbedder) GenerateEmbedding(ctx context.Context, modelID, text string) ([]float32, error) {
	args := m.Called(ctx, modelID, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]float32), args.Error(1)
}

func (m *MockEmbedder) GenerateEmbeddings(ctx context.Context, modelID string, texts []string) ([][]float32, error) {
	args := m.Called(ctx, modelID, texts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([][]float32), args.Error(1)
}

// MockGenerator is a mock implementation of model.Generator
type MockGenerator struct {
	mock.Mock
}

func (m *MockGenerator) CreateChatCompletion(ctx context.Context, modelID, systemPrompt, userPrompt string) (openai.ChatResult, error) {
	args := m.Called(ctx, modelID, systemPrompt, userPrompt)
	return args.Get(0).(openai.ChatResult), args.Error(1)
}

// MockRetriever is a mock implementation of Retriever
type MockRetriever struct {
	mock.Mock
}

func (m *MockRetriever) Retrieve(ctx context.Context, documentID, query string, topK int, minScore float32) (domain.RetrievalResult, error) {
	args := m.Called(ctx, documentID, query, topK, minScore)
	return args.Get(0).(domain.RetrievalResult), args.Error(1)
}

// fakeRegistry backs EmbedderRegistry and GeneratorRegistry with a real
// model.Registry over mock backends.
func fakeRegistry(generator model.Generator, embedder model.Embedder) *model.Registry {
	return model.NewRegistry(generator, embedder, model.DefaultEntries())
}

// recordingTxRunner implements TxRunner in-memory and captures what a commit
// would have published. Failing the document or chunk write simulates a
// transaction rollback: nothing is recorded.
type recordingTxRunner struct {
	mu        sync.Mutex
	docErr    error
	chunkErr  error
	published []*domain.Document
	chunkSets [][]domain.Chunk
	runErrs   []error
}

func (r *recordingTxRunner) WithTx(ctx context.Context, fn func(repos TxRepositories) error) error {
	tx := &recordingTxRepos{runner: r}
	err := fn(tx)
	r.mu.Lock()
	defer r.mu.Unlock()
	if err != nil {
		r.runErrs = append(r.runErrs, err)
		return err
	}
	r.published = append(r.published, tx.doc)
	r.chunkSets = append(r.chunkSets, tx.chunks)
	return nil
}

type recordingTxRepos struct {
	runner *recordingTxRunner
	doc    *domain.Document
	chunks []domain.Chunk
}

func (t *recordingTxRepos) Documents() DocumentTxRepository { return &recordingDocTx{t} }
func (t *recordingTxRepos) Chunks() ChunkTxRepository       { return &recordingChunkTx{t} }

type recordingDocTx struct{ repos *recordingTxRepos }

func (d *recordingDocTx) Create(ctx context.Context, doc *domain.Document) error {
	if d.repos.runner.docErr != nil {
		return d.repos.runner.docErr
	}
	d.repos.doc = doc
	return nil
}

type recordingChunkTx struct{ repos *recordingTxRepos }

func (c *recordingChunkTx) InsertChunks(ctx context.Context, chunks []domain.Chunk) error {
	if c.repos.runner.chunkErr != nil {
		return c.repos.runner.chunkErr
	}
	c.repos.chunks = chunks
	return nil
}

// memoryUsageRecorder is a thread-safe UsageRecorder fake.
type memoryUsageRecorder struct {
	mu      sync.Mutex
	records []domain.UsageRecord
}

func (m *memoryUsageRecorder) Record(ctx context.Context, rec domain.UsageRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, rec)
	return nil
}

func (m *memoryUsageRecorder) Records() []domain.UsageRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.UsageRecord, len(m.records))
	copy(out, m.records)
	return out
}
