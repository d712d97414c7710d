package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/paperbase-ai/paperbase/internal/api"
	"github.com/paperbase-ai/paperbase/internal/domain"
	"github.com/paperbase-ai/paperbase/internal/service"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100

	fetchTimeout      = 60 * time.Second
	maxRemoteDocBytes = 50 << 20
)

type DocumentService interface {
	Ingest(ctx context.Context, fileBytes []byte, filename string) (*service.IngestResult, error)
	Get(ctx context.Context, id string) (*domain.Document, error)
	List(ctx context.Context, input service.ListInput) (*service.DocumentPageResult, error)
	Delete(ctx context.Context, id string) error
}

type DocumentHandler struct {
	svc    DocumentService
	client *http.Client
}

func NewDocumentHandler(svc DocumentService) *DocumentHandler {
	return &DocumentHandler{
		svc:    svc,
		client: &http.Client{Timeout: fetchTimeout},
	}
}

type UploadResponse struct {
	DocumentID string  `json:"document_id"`
	Filename   string  `json:"filename"`
	Pages      int     `json:"pages"`
	Chunks     int     `json:"chunks"`
	SizeKB     float64 `json:"size_kb"`
}

type UploadURLRequest struct {
	URL      string `json:"url"`
	Filename string `json:"filename,omitempty"`
}

type DocumentResponse struct {
	ID             string  `json:"id"`
	Filename       string  `json:"filename"`
	Pages          int     `json:"pages"`
	SizeKB         float64 `json:"size_kb"`
	EmbeddingModel string  `json:"embedding_model"`
	ExtractedAt    string  `json:"extracted_at"`
	ExpiresAt      string  `json:"expires_at,omitempty"`
}

type DocumentListResponse struct {
	Documents  []*DocumentResponse `json:"documents"`
	NextCursor string              `json:"next_cursor,omitempty"`
	HasMore    bool                `json:"has_more"`
}

func documentToResponse(d *domain.Document) *DocumentResponse {
	resp := &DocumentResponse{
		ID:             d.ID,
		Filename:       d.Filename,
		Pages:          len(d.Pages),
		SizeKB:         d.SizeKB,
		EmbeddingModel: d.EmbeddingModel,
		ExtractedAt:    d.ExtractedAt.UTC().Format(time.RFC3339),
	}
	if !d.ExpiresAt.IsZero() {
		resp.ExpiresAt = d.ExpiresAt.UTC().Format(time.RFC3339)
	}
	return resp
}

// Upload accepts a multipart PDF and runs the full ingestion pipeline.
// The response is only written after the index is published.
func (h *DocumentHandler) Upload(w http.ResponseWriter, r *http.Request) {
	fileBytes, filename, ok := readMultipartFile(w, r)
	if !ok {
		return
	}

	result, err := h.svc.Ingest(r.Context(), fileBytes, filename)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusCreated, UploadResponse{
		DocumentID: result.Document.ID,
		Filename:   result.Document.Filename,
		Pages:      len(result.Document.Pages),
		Chunks:     result.ChunkCount,
		SizeKB:     result.Document.SizeKB,
	})
}

// UploadByURL fetches a PDF from a remote URL and ingests it.
func (h *DocumentHandler) UploadByURL(w http.ResponseWriter, r *http.Request) {
	var req UploadURLRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.URL == "" {
		api.Error(w, http.StatusBadRequest, "url is required")
		return
	}

	parsed, err := url.Parse(req.URL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		api.Error(w, http.StatusBadRequest, "url must be http or https")
		return
	}

	fileBytes, err := h.fetch(r.Context(), req.URL)
	if err != nil {
		api.Error(w, http.StatusBadGateway, fmt.Sprintf("failed to fetch document: %v", err))
		return
	}

	filename := req.Filename
	if filename == "" {
		filename = path.Base(parsed.Path)
	}
	if filename == "" || filename == "." || filename == "/" {
		filename = "document.pdf"
	}

	result, err := h.svc.Ingest(r.Context(), fileBytes, filename)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusCreated, UploadResponse{
		DocumentID: result.Document.ID,
		Filename:   result.Document.Filename,
		Pages:      len(result.Document.Pages),
		Chunks:     result.ChunkCount,
		SizeKB:     result.Document.SizeKB,
	})
}

func (h *DocumentHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "document id is required")
		return
	}

	doc, err := h.svc.Get(r.Context(), id)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, documentToResponse(doc))
}

func (h *DocumentHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := defaultListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			api.Error(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = parsed
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	page, err := h.svc.List(r.Context(), service.ListInput{
		Cursor: r.URL.Query().Get("cursor"),
		Limit:  limit,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	docs := make([]*DocumentResponse, 0, len(page.Items))
	for _, d := range page.Items {
		docs = append(docs, documentToResponse(d))
	}

	api.Success(w, http.StatusOK, DocumentListResponse{
		Documents:  docs,
		NextCursor: page.NextCursor,
		HasMore:    page.HasMore,
	})
}

func (h *DocumentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "document id is required")
		return
	}

	if err := h.svc.Delete(r.Context(), id); err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, map[string]string{"id": id, "status": "deleted"})
}

func (h *DocumentHandler) fetch(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("remote returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxRemoteDocBytes+1))
	if err != nil {
		return nil, err
	}
	if len(body) > maxRemoteDocBytes {
		return nil, fmt.Errorf("remote document exceeds %d bytes", maxRemoteDocBytes)
	}
	return body, nil
}

// readMultipartFile pulls the "file" part out of a multipart upload. A false
// return means the error response has already been written.
func readMultipartFile(w http.ResponseWriter, r *http.Request) ([]byte, string, bool) {
	file, header, err := r.FormFile("file")
	if err != nil {
		api.Error(w, http.StatusBadRequest, "file is required")
		return nil, "", false
	}
	defer file.Close()

	fileBytes, err := io.ReadAll(file)
	if err != nil {
		api.Error(w, http.StatusBadRequest, "failed to read uploaded file")
		return nil, "", false
	}

	filename := r.FormValue("filename")
	if filename == "" {
		filename = header.Filename
	}
	if strings.TrimSpace(filename) == "" {
		filename = "document.pdf"
	}

	return fileBytes, filename, true
}
