package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/paperbase-ai/paperbase/internal/domain"
	"github.com/pgvector/pgvector-go"
)

// ChunkRepository persists chunk embeddings and performs similarity search.
type ChunkRepository struct {
	db dbtx
}

func NewChunkRepository(pool *pgxpool.Pool) *ChunkRepository {
	return &ChunkRepository{db: pool}
}

func NewChunkRepositoryWithTx(tx pgx.Tx) *ChunkRepository {
	return &ChunkRepository{db: tx}
}

// InsertChunks writes embedded chunks. Callers run this inside the publish
// transaction so a document's index becomes visible all at once.
func (r *ChunkRepository) InsertChunks(ctx context.Context, chunks []domain.Chunk) error {
	for _, c := range chunks {
		_, err := r.db.Exec(ctx,
			`INSERT INTO document_chunks
				(id, document_id, seq, page_number, content, start_offset, end_offset, embedding)
			 VALUES
				($1, $2, $3, $4, $5, $6, $7, $8)`,
			c.ID,
			c.DocumentID,
			c.Seq,
			c.Page,
			c.Text,
			c.StartOffset,
			c.EndOffset,
			pgvector.NewVector(c.Embedding),
		)
		if err != nil {
			return err
		}
	}
	return nil
}

// SearchByEmbedding returns the chunks of one document nearest to the query
// vector. Similarity is cosine: score = 1 - cosine distance. An empty index
// yields an empty slice.
func (r *ChunkRepository) SearchByEmbedding(ctx context.Context, documentID string, embedding []float32, limit int) ([]domain.ScoredChunk, error) {
	if limit <= 0 {
		limit = 20
	}

	vec := pgvector.NewVector(embedding)

	rows, err := r.db.Query(ctx,
		`SELECT id, document_id, seq, page_number, content,
		        1 - (embedding <=> $1) AS score
		 FROM document_chunks
		 WHERE document_id = $2
		 ORDER BY embedding <=> $1, seq
		 LIMIT $3`,
		vec, documentID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := make([]domain.ScoredChunk, 0, limit)
	for rows.Next() {
		var c domain.ScoredChunk
		if err := rows.Scan(&c.ChunkID, &c.DocumentID, &c.Seq, &c.Page, &c.Text, &c.Score); err != nil {
			return nil, err
		}
		results = append(results, c)
	}
	return results, rows.Err()
}

// CountByDocument returns the number of indexed chunks for a document.
func (r *ChunkRepository) CountByDocument(ctx context.Context, documentID string) (int64, error) {
	var count int64
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM document_chunks WHERE document_id = $1`,
		documentID,
	).Scan(&count)
	return count, err
}
