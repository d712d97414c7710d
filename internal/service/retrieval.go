package service

import (
	"context"
	"strings"

	"github.com/paperbase-ai/paperbase/internal/domain"
)

const (
	defaultCandidateMultiplier = 4
	defaultMinCandidates       = 20
)

// ChunkSearchRepository performs nearest-neighbor search over one document's
// chunk embeddings. An empty index yields an empty slice, not an error.
type ChunkSearchRepository interface {
	SearchByEmbedding(ctx context.Context, documentID string, embedding []float32, limit int) ([]domain.ScoredChunk, error)
}

// DocumentGetter resolves a document by ID.
type DocumentGetter interface {
	GetByID(ctx context.Context, id string) (*domain.Document, error)
}

// QueryEmbedding is an already-embedded query together with the model that
// produced it, so the retriever can reject embedding-space mismatches.
type QueryEmbedding struct {
	Model  string
	Vector []float32
}

// RetrievalService embeds queries and returns the ranked, deduplicated
// chunks most similar to them.
type RetrievalService struct {
	docs     DocumentGetter
	chunks   ChunkSearchRepository
	registry EmbedderRegistry
}

func NewRetrievalService(docs DocumentGetter, chunks ChunkSearchRepository, registry EmbedderRegistry) *RetrievalService {
	return &RetrievalService{docs: docs, chunks: chunks, registry: registry}
}

// Retrieve embeds the query with the model the document's index was built
// with and searches it. Scores below minScore are dropped before truncating
// to topK; results are deduplicated by chunk ID and ordered by score
// descending with chunk sequence as tie-break.
func (s *RetrievalService) Retrieve(ctx context.Context, documentID, query string, topK int, minScore float32) (domain.RetrievalResult, error) {
	if strings.TrimSpace(query) == "" {
		return domain.RetrievalResult{}, domain.ErrEmptyQuery
	}

	doc, err := s.docs.GetByID(ctx, documentID)
	if err != nil {
		return domain.RetrievalResult{}, err
	}

	embedder, entry, err := s.registry.EmbedderFor(doc.EmbeddingModel)
	if err != nil {
		return domain.RetrievalResult{}, err
	}

	vector, err := embedder.GenerateEmbedding(ctx, entry.ID, query)
	if err != nil {
		return domain.RetrievalResult{}, domain.NewModelError(err)
	}

	return s.search(ctx, doc, QueryEmbedding{Model: entry.ID, Vector: vector}, topK, minScore)
}

// RetrieveEmbedded searches with a caller-supplied query embedding. A query
// embedded with a different model than the index was built with is a
// correctness bug and fails with EMBEDDING_MISMATCH.
func (s *RetrievalService) RetrieveEmbedded(ctx context.Context, documentID string, query QueryEmbedding, topK int, minScore float32) (domain.RetrievalResult, error) {
	doc, err := s.docs.GetByID(ctx, documentID)
	if err != nil {
		return domain.RetrievalResult{}, err
	}
	return s.search(ctx, doc, query, topK, minScore)
}

// search runs the vector search against an already-loaded document, so each
// retrieval costs exactly one document lookup regardless of entry point.
func (s *RetrievalService) search(ctx context.Context, doc *domain.Document, query QueryEmbedding, topK int, minScore float32) (domain.RetrievalResult, error) {
	if query.Model != doc.EmbeddingModel {
		return domain.RetrievalResult{}, domain.ErrEmbeddingMismatch
	}

	candidateLimit := topK * defaultCandidateMultiplier
	if candidateLimit < defaultMinCandidates {
		candidateLimit = defaultMinCandidates
	}

	hits, err := s.chunks.SearchByEmbedding(ctx, doc.ID, query.Vector, candidateLimit)
	if err != nil {
		return domain.RetrievalResult{}, err
	}

	result := domain.NewRetrievalResult(hits, topK, minScore)
	for i := range result.Chunks {
		result.Chunks[i].PageMarkdown = doc.PageMarkdown(result.Chunks[i].Page)
	}
	return result, nil
}
