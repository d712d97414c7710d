package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/paperbase-ai/paperbase/internal/api"
	"github.com/paperbase-ai/paperbase/internal/domain"
)

type AnswerService interface {
	Answer(ctx context.Context, documentID, question, modelID string) (*domain.Answer, error)
}

type AskHandler struct {
	svc          AnswerService
	defaultModel string
}

func NewAskHandler(svc AnswerService, defaultModel string) *AskHandler {
	return &AskHandler{svc: svc, defaultModel: defaultModel}
}

type AskRequest struct {
	Question string `json:"question"`
	Model    string `json:"model,omitempty"`
}

type SourceResponse struct {
	ChunkID      string  `json:"chunk_id"`
	Page         int     `json:"page"`
	Score        float32 `json:"score"`
	Snippet      string  `json:"snippet"`
	PageMarkdown string  `json:"page_markdown,omitempty"`
}

type AnswerResponse struct {
	Answer       string           `json:"answer"`
	Sources      []SourceResponse `json:"sources"`
	Model        string           `json:"model"`
	InputTokens  int              `json:"input_tokens"`
	OutputTokens int              `json:"output_tokens"`
	CostUSD      float64          `json:"cost_usd"`
	LatencyMS    int64            `json:"latency_ms"`
}

func answerToResponse(a *domain.Answer) *AnswerResponse {
	sources := make([]SourceResponse, 0, len(a.Sources))
	for _, s := range a.Sources {
		sources = append(sources, SourceResponse{
			ChunkID:      s.ChunkID,
			Page:         s.Page,
			Score:        s.Score,
			Snippet:      s.Snippet,
			PageMarkdown: s.PageMarkdown,
		})
	}
	return &AnswerResponse{
		Answer:       a.Text,
		Sources:      sources,
		Model:        a.ModelID,
		InputTokens:  a.InputTokens,
		OutputTokens: a.OutputTokens,
		CostUSD:      a.CostUSD,
		LatencyMS:    a.LatencyMS,
	}
}

// Ask answers a question grounded in one document's index.
func (h *AskHandler) Ask(w http.ResponseWriter, r *http.Request) {
	documentID := chi.URLParam(r, "id")
	if documentID == "" {
		api.Error(w, http.StatusBadRequest, "document id is required")
		return
	}

	var req AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Question == "" {
		api.Error(w, http.StatusBadRequest, "question is required")
		return
	}

	model := req.Model
	if model == "" {
		model = h.defaultModel
	}

	answer, err := h.svc.Answer(r.Context(), documentID, req.Question, model)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, answerToResponse(answer))
}
