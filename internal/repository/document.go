package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/paperbase-ai/paperbase/internal/domain"
	"github.com/paperbase-ai/paperbase/internal/pagination"
	"github.com/paperbase-ai/paperbase/internal/service"
)

// DocumentRepository persists documents and their extracted pages.
type DocumentRepository struct {
	db dbtx
}

func NewDocumentRepository(pool *pgxpool.Pool) *DocumentRepository {
	return &DocumentRepository{db: pool}
}

func NewDocumentRepositoryWithTx(tx pgx.Tx) *DocumentRepository {
	return &DocumentRepository{db: tx}
}

// Create inserts the document row and all of its pages.
func (r *DocumentRepository) Create(ctx context.Context, doc *domain.Document) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO documents (id, filename, size_kb, embedding_model, extracted_at, expires_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		doc.ID, doc.Filename, doc.SizeKB, doc.EmbeddingModel, doc.ExtractedAt, nullableTime(doc.ExpiresAt),
	)
	if err != nil {
		return err
	}

	for _, p := range doc.Pages {
		_, err := r.db.Exec(ctx,
			`INSERT INTO document_pages (document_id, page_number, markdown, plain_text)
			 VALUES ($1, $2, $3, $4)`,
			doc.ID, p.Number, p.Markdown, p.Text,
		)
		if err != nil {
			return err
		}
	}

	return nil
}

// GetByID returns a document with its pages loaded.
func (r *DocumentRepository) GetByID(ctx context.Context, id string) (*domain.Document, error) {
	var doc domain.Document
	var expiresAt *time.Time
	err := r.db.QueryRow(ctx,
		`SELECT id, filename, size_kb, embedding_model, extracted_at, expires_at
		 FROM documents WHERE id = $1`,
		id,
	).Scan(&doc.ID, &doc.Filename, &doc.SizeKB, &doc.EmbeddingModel, &doc.ExtractedAt, &expiresAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrDocumentNotFound
		}
		return nil, err
	}
	if expiresAt != nil {
		doc.ExpiresAt = *expiresAt
	}

	rows, err := r.db.Query(ctx,
		`SELECT page_number, markdown, plain_text
		 FROM document_pages WHERE document_id = $1 ORDER BY page_number`,
		id,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var p domain.Page
		if err := rows.Scan(&p.Number, &p.Markdown, &p.Text); err != nil {
			return nil, err
		}
		doc.Pages = append(doc.Pages, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &doc, nil
}

// ListWithCursor returns documents newest first, without pages loaded.
func (r *DocumentRepository) ListWithCursor(ctx context.Context, cursor *pagination.Cursor, limit int) (*service.DocumentPageResult, error) {
	if limit <= 0 {
		limit = 20
	}

	var rows pgx.Rows
	var err error

	if cursor != nil {
		rows, err = r.db.Query(ctx,
			`SELECT id, filename, size_kb, embedding_model, extracted_at, expires_at
			 FROM documents
			 WHERE (extracted_at, id) < ($1, $2)
			 ORDER BY extracted_at DESC, id DESC
			 LIMIT $3`,
			cursor.Timestamp, cursor.LastID, limit+1,
		)
	} else {
		rows, err = r.db.Query(ctx,
			`SELECT id, filename, size_kb, embedding_model, extracted_at, expires_at
			 FROM documents
			 ORDER BY extracted_at DESC, id DESC
			 LIMIT $1`,
			limit+1,
		)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*domain.Document
	for rows.Next() {
		var doc domain.Document
		var expiresAt *time.Time
		if err := rows.Scan(&doc.ID, &doc.Filename, &doc.SizeKB, &doc.EmbeddingModel, &doc.ExtractedAt, &expiresAt); err != nil {
			return nil, err
		}
		if expiresAt != nil {
			doc.ExpiresAt = *expiresAt
		}
		items = append(items, &doc)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	hasMore := len(items) > limit
	if hasMore {
		items = items[:limit]
	}

	var nextCursor string
	if hasMore && len(items) > 0 {
		last := items[len(items)-1]
		nextCursor = pagination.EncodeCursor(last.ID, last.ExtractedAt)
	}

	return &service.DocumentPageResult{
		Items:      items,
		NextCursor: nextCursor,
		HasMore:    hasMore,
	}, nil
}

// Delete removes the document; pages and chunks cascade.
func (r *DocumentRepository) Delete(ctx context.Context, id string) error {
	cmdTag, err := r.db.Exec(ctx, `DELETE FROM documents WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrDocumentNotFound
	}
	return nil
}

// DeleteExpired removes documents whose retention deadline has passed.
func (r *DocumentRepository) DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	cmdTag, err := r.db.Exec(ctx,
		`DELETE FROM documents WHERE expires_at IS NOT NULL AND expires_at <= $1`,
		cutoff,
	)
	if err != nil {
		return 0, err
	}
	return cmdTag.RowsAffected(), nil
}
