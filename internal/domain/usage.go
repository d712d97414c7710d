package domain

import "time"

// Feature tags one metered call with the surface that triggered it.
type Feature string

const (
	FeatureChat         Feature = "chat"
	FeatureGenerate     Feature = "generate"
	FeatureBulkGenerate Feature = "bulk-generate"
	FeatureExtraction   Feature = "extraction"
)

// UsageRecord is one append-only entry of the usage ledger. Records are
// never mutated after creation; aggregation happens on read.
type UsageRecord struct {
	ID             string
	Model          string
	Feature        Feature
	InputTokens    int
	OutputTokens   int
	CostUSD        float64
	LatencyMS      int64
	DocumentSizeKB float64
	CreatedAt      time.Time
}

// TotalTokens returns input plus output tokens of a single record.
func (r UsageRecord) TotalTokens() int {
	return r.InputTokens + r.OutputTokens
}

// UsageFilter restricts aggregation. Zero values mean "no restriction"; the
// zero filter aggregates everything.
type UsageFilter struct {
	From    time.Time
	To      time.Time
	Feature Feature
	Model   string
}

// ModelStats is the aggregate slice for one model or feature.
type ModelStats struct {
	TotalTokens  int64
	TotalCostUSD float64
	CallCount    int64
}

// AggregateStats is the read-side view of the ledger.
type AggregateStats struct {
	TotalTokens  int64
	TotalCostUSD float64
	CallCount    int64
	ByModel      map[string]ModelStats
	ByFeature    map[string]ModelStats
}
