package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/paperbase-ai/paperbase/internal/domain"
)

// UsageRepository stores ledger entries. Inserts never touch existing rows;
// aggregation is read-only SQL.
type UsageRepository struct {
	pool *pgxpool.Pool
}

func NewUsageRepository(pool *pgxpool.Pool) *UsageRepository {
	return &UsageRepository{pool: pool}
}

// Insert appends one usage record.
func (r *UsageRepository) Insert(ctx context.Context, rec domain.UsageRecord) error {
	var sizeKB *float64
	if rec.DocumentSizeKB > 0 {
		sizeKB = &rec.DocumentSizeKB
	}
	_, err := r.pool.Exec(ctx,
		`INSERT INTO usage_records
			(id, model, feature, input_tokens, output_tokens, cost_usd, latency_ms, document_size_kb, created_at)
		 VALUES
			($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		rec.ID,
		rec.Model,
		string(rec.Feature),
		rec.InputTokens,
		rec.OutputTokens,
		rec.CostUSD,
		rec.LatencyMS,
		sizeKB,
		rec.CreatedAt,
	)
	return err
}

// Aggregate computes ledger totals under the given filter, including the
// per-model and per-feature breakdowns.
func (r *UsageRepository) Aggregate(ctx context.Context, filter domain.UsageFilter) (*domain.AggregateStats, error) {
	where, args := buildUsageFilter(filter)

	stats := &domain.AggregateStats{
		ByModel:   make(map[string]domain.ModelStats),
		ByFeature: make(map[string]domain.ModelStats),
	}

	err := r.pool.QueryRow(ctx,
		`SELECT COALESCE(SUM(input_tokens + output_tokens), 0),
		        COALESCE(SUM(cost_usd), 0),
		        COUNT(*)
		 FROM usage_records`+where,
		args...,
	).Scan(&stats.TotalTokens, &stats.TotalCostUSD, &stats.CallCount)
	if err != nil {
		return nil, err
	}

	if err := r.aggregateBy(ctx, "model", where, args, stats.ByModel); err != nil {
		return nil, err
	}
	if err := r.aggregateBy(ctx, "feature", where, args, stats.ByFeature); err != nil {
		return nil, err
	}

	return stats, nil
}

func (r *UsageRepository) aggregateBy(ctx context.Context, column, where string, args []any, out map[string]domain.ModelStats) error {
	rows, err := r.pool.Query(ctx,
		`SELECT `+column+`,
		        COALESCE(SUM(input_tokens + output_tokens), 0),
		        COALESCE(SUM(cost_usd), 0),
		        COUNT(*)
		 FROM usage_records`+where+`
		 GROUP BY `+column,
		args...,
	)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var key string
		var s domain.ModelStats
		if err := rows.Scan(&key, &s.TotalTokens, &s.TotalCostUSD, &s.CallCount); err != nil {
			return err
		}
		out[key] = s
	}
	return rows.Err()
}

func buildUsageFilter(filter domain.UsageFilter) (string, []any) {
	var clauses []string
	var args []any

	if !filter.From.IsZero() {
		args = append(args, filter.From)
		clauses = append(clauses, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if !filter.To.IsZero() {
		args = append(args, filter.To)
		clauses = append(clauses, fmt.Sprintf("created_at <= $%d", len(args)))
	}
	if filter.Feature != "" {
		args = append(args, string(filter.Feature))
		clauses = append(clauses, fmt.Sprintf("feature = $%d", len(args)))
	}
	if filter.Model != "" {
		args = append(args, filter.Model)
		clauses = append(clauses, fmt.Sprintf("model = $%d", len(args)))
	}

	if len(clauses) == 0 {
		return "", nil
	}

	where := " WHERE " + clauses[0]
	for _, c := range clauses[1:] {
		where += " AND " + c
	}
	return where, args
}
