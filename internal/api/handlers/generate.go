package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/paperbase-ai/paperbase/internal/api"
	"github.com/paperbase-ai/paperbase/internal/domain"
)

const maxBulkRows = 200

type GenerationService interface {
	GenerateRow(ctx context.Context, documentID string, row domain.GenerationRow, modelID string) (*domain.Answer, error)
	GenerateBulk(ctx context.Context, documentID string, rows []domain.GenerationRow, modelID string, queryLimit int) ([]domain.RowResult, error)
}

type GenerateHandler struct {
	gen          GenerationService
	docs         DocumentService
	defaultModel string
}

func NewGenerateHandler(gen GenerationService, docs DocumentService, defaultModel string) *GenerateHandler {
	return &GenerateHandler{gen: gen, docs: docs, defaultModel: defaultModel}
}

type GenerateResponse struct {
	DocumentID string          `json:"document_id"`
	Result     *AnswerResponse `json:"result"`
}

type BulkGenerateRequest struct {
	Rows       []BulkRow `json:"rows"`
	Model      string    `json:"model,omitempty"`
	QueryLimit int       `json:"query_limit,omitempty"`
}

type BulkRow struct {
	Activity   string `json:"activity"`
	Definition string `json:"definition,omitempty"`
}

type BulkRowResponse struct {
	Row    int             `json:"row"`
	Result *AnswerResponse `json:"result,omitempty"`
	Error  string          `json:"error,omitempty"`
}

type BulkGenerateResponse struct {
	DocumentID string            `json:"document_id"`
	Results    []BulkRowResponse `json:"results"`
	Failed     int               `json:"failed"`
}

// Generate produces content for one activity/definition pair. The source
// document comes either from a prior upload (document_id form field) or from
// a PDF attached to this request, which is ingested first.
func (h *GenerateHandler) Generate(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	activity := r.FormValue("activity")
	if activity == "" {
		api.Error(w, http.StatusBadRequest, "activity is required")
		return
	}

	model := r.FormValue("model")
	if model == "" {
		model = h.defaultModel
	}

	documentID := r.FormValue("document_id")
	if documentID == "" {
		fileBytes, filename, ok := readMultipartFile(w, r)
		if !ok {
			return
		}
		result, err := h.docs.Ingest(r.Context(), fileBytes, filename)
		if err != nil {
			api.HandleError(w, err)
			return
		}
		documentID = result.Document.ID
	}

	row := domain.GenerationRow{
		Activity:   activity,
		Definition: r.FormValue("definition"),
	}

	answer, err := h.gen.GenerateRow(r.Context(), documentID, row, model)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, GenerateResponse{
		DocumentID: documentID,
		Result:     answerToResponse(answer),
	})
}

// GenerateBulk runs generation for many rows against one document. Row
// failures are reported per row; the batch itself only fails on an unknown
// model or an invalid request.
func (h *GenerateHandler) GenerateBulk(w http.ResponseWriter, r *http.Request) {
	documentID := chi.URLParam(r, "id")
	if documentID == "" {
		api.Error(w, http.StatusBadRequest, "document id is required")
		return
	}

	var req BulkGenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Rows) == 0 {
		api.Error(w, http.StatusBadRequest, "rows are required")
		return
	}
	if len(req.Rows) > maxBulkRows {
		api.Error(w, http.StatusBadRequest, "too many rows in one batch")
		return
	}
	if req.QueryLimit < 0 {
		api.Error(w, http.StatusBadRequest, "query_limit must not be negative")
		return
	}

	model := req.Model
	if model == "" {
		model = h.defaultModel
	}

	rows := make([]domain.GenerationRow, len(req.Rows))
	for i, row := range req.Rows {
		rows[i] = domain.GenerationRow{Activity: row.Activity, Definition: row.Definition}
	}

	results, err := h.gen.GenerateBulk(r.Context(), documentID, rows, model, req.QueryLimit)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	resp := BulkGenerateResponse{
		DocumentID: documentID,
		Results:    make([]BulkRowResponse, len(results)),
	}
	for i, res := range results {
		out := BulkRowResponse{Row: res.Row, Error: res.Err}
		if res.Answer != nil {
			out.Result = answerToResponse(res.Answer)
		}
		if res.Failed() {
			resp.Failed++
		}
		resp.Results[i] = out
	}

	api.Success(w, http.StatusOK, resp)
}
