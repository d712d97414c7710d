package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/paperbase-ai/paperbase/internal/api"
	"github.com/paperbase-ai/paperbase/internal/domain"
)

type UsageAggregator interface {
	Aggregate(ctx context.Context, filter domain.UsageFilter) (*domain.AggregateStats, error)
}

type UsageHandler struct {
	svc UsageAggregator
}

func NewUsageHandler(svc UsageAggregator) *UsageHandler {
	return &UsageHandler{svc: svc}
}

type UsageSliceResponse struct {
	TotalTokens  int64   `json:"total_tokens"`
	TotalCostUSD float64 `json:"total_cost_usd"`
	CallCount    int64   `json:"call_count"`
}

type UsageResponse struct {
	TotalTokens  int64                         `json:"total_tokens"`
	TotalCostUSD float64                       `json:"total_cost_usd"`
	CallCount    int64                         `json:"call_count"`
	ByModel      map[string]UsageSliceResponse `json:"by_model"`
	ByFeature    map[string]UsageSliceResponse `json:"by_feature"`
}

// Aggregate returns ledger totals, optionally filtered by time window,
// feature, and model.
func (h *UsageHandler) Aggregate(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var filter domain.UsageFilter
	if raw := q.Get("from"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			api.Error(w, http.StatusBadRequest, "from must be an RFC3339 timestamp")
			return
		}
		filter.From = t
	}
	if raw := q.Get("to"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			api.Error(w, http.StatusBadRequest, "to must be an RFC3339 timestamp")
			return
		}
		filter.To = t
	}
	filter.Feature = domain.Feature(q.Get("feature"))
	filter.Model = q.Get("model")

	stats, err := h.svc.Aggregate(r.Context(), filter)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	resp := UsageResponse{
		TotalTokens:  stats.TotalTokens,
		TotalCostUSD: stats.TotalCostUSD,
		CallCount:    stats.CallCount,
		ByModel:      make(map[string]UsageSliceResponse, len(stats.ByModel)),
		ByFeature:    make(map[string]UsageSliceResponse, len(stats.ByFeature)),
	}
	for model, s := range stats.ByModel {
		resp.ByModel[model] = UsageSliceResponse{
			TotalTokens:  s.TotalTokens,
			TotalCostUSD: s.TotalCostUSD,
			CallCount:    s.CallCount,
		}
	}
	for feature, s := range stats.ByFeature {
		resp.ByFeature[feature] = UsageSliceResponse{
			TotalTokens:  s.TotalTokens,
			TotalCostUSD: s.TotalCostUSD,
			CallCount:    s.CallCount,
		}
	}

	api.Success(w, http.StatusOK, resp)
}
