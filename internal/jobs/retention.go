package jobs

import (
	"context"
	"fmt"
	"log"
	"time"
)

// ExpiredDocumentRepository deletes documents past their retention deadline.
type ExpiredDocumentRepository interface {
	DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error)
}

// RetentionSweeper evicts documents whose TTL has elapsed. Chunks and pages
// are removed with the document through cascading deletes.
type RetentionSweeper struct {
	repo ExpiredDocumentRepository
	now  func() time.Time
}

// NewRetentionSweeper creates a new RetentionSweeper instance
func NewRetentionSweeper(repo ExpiredDocumentRepository) *RetentionSweeper {
	return &RetentionSweeper{
		repo: repo,
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// ProcessJobs implements the JobProcessor interface
func (s *RetentionSweeper) ProcessJobs(ctx context.Context) error {
	deleted, err := s.repo.DeleteExpired(ctx, s.now())
	if err != nil {
		return fmt.Errorf("failed to sweep expired documents: %w", err)
	}
	if deleted > 0 {
		log.Printf("retention sweep evicted %d expired documents", deleted)
	}
	return nil
}
