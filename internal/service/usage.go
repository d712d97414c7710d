package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/paperbase-ai/paperbase/internal/domain"
)

// UsageRepository persists ledger entries. Inserts are independent and
// append-only; aggregation is computed on read and never mutates records.
type UsageRepository interface {
	Insert(ctx context.Context, rec domain.UsageRecord) error
	Aggregate(ctx context.Context, filter domain.UsageFilter) (*domain.AggregateStats, error)
}

// UsageService is the usage ledger: it meters every external model call by
// model and feature.
type UsageService struct {
	repo UsageRepository
	now  func() time.Time
}

func NewUsageService(repo UsageRepository) *UsageService {
	return &UsageService{
		repo: repo,
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// Record appends one entry to the ledger. The entry is assigned an ID and
// timestamp if the caller left them empty.
func (s *UsageService) Record(ctx context.Context, rec domain.UsageRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = s.now()
	}
	return s.repo.Insert(ctx, rec)
}

// Aggregate computes totals over the stored records. An empty filter
// aggregates everything.
func (s *UsageService) Aggregate(ctx context.Context, filter domain.UsageFilter) (*domain.AggregateStats, error) {
	return s.repo.Aggregate(ctx, filter)
}
