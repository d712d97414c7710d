package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/paperbase-ai/paperbase/internal/domain"
	"github.com/paperbase-ai/paperbase/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockDocumentService struct {
	mock.Mock
}

func (m *MockDocumentService) Ingest(ctx context.Context, fileBytes []byte, filename string) (*service.IngestResult, error) {
	args := m.Called(ctx, fileBytes, filename)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.IngestResult), args.Error(1)
}

func (m *MockDocumentService) Get(ctx context.Context, id string) (*domain.Document, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Document), args.Error(1)
}

func (m *MockDocumentService) List(ctx context.Context, input service.ListInput) (*service.DocumentPageResult, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.DocumentPageResult), args.Error(1)
}

func (m *MockDocumentService) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func newTestDocument() *domain.Document {
	return &domain.Document{
		ID:       "doc-123",
		Filename: "report.pdf",
		Pages: []domain.Page{
			{Number: 1, Markdown: "# Page one", Text: "Page one"},
			{Number: 2, Markdown: "# Page two", Text: "Page two"},
		},
		SizeKB:         12.5,
		EmbeddingModel: "text-embedding-3-small",
		ExtractedAt:    time.Date(2026, 2, 10, 9, 30, 0, 0, time.UTC),
	}
}

func requestWithURLParam(req *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func multipartBody(t *testing.T, fields map[string]string, fileField, filename string, fileBytes []byte) (*bytes.Buffer, string) {
	t.Helper()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	for key, value := range fields {
		require.NoError(t, writer.WriteField(key, value))
	}
	if fileField != "" {
		part, err := writer.CreateFormFile(fileField, filename)
		require.NoError(t, err)
		_, err = part.Write(fileBytes)
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())
	return &buf, writer.FormDataContentType()
}

func TestDocumentHandler_Upload_Success(t *testing.T) {
	mockSvc := new(MockDocumentService)
	handler := NewDocumentHandler(mockSvc)

	doc := newTestDocument()
	pdfBytes := []byte("%PDF-1.7\ncontent")
	mockSvc.On("Ingest", mock.Anything, pdfBytes, "report.pdf").
		Return(&service.IngestResult{Document: doc, ChunkCount: 7}, nil)

	body, contentType := multipartBody(t, nil, "file", "report.pdf", pdfBytes)
	req := httptest.NewRequest(http.MethodPost, "/documents", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()

	handler.Upload(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)

	var resp struct {
		Data UploadResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "doc-123", resp.Data.DocumentID)
	assert.Equal(t, "report.pdf", resp.Data.Filename)
	assert.Equal(t, 2, resp.Data.Pages)
	assert.Equal(t, 7, resp.Data.Chunks)
	assert.InDelta(t, 12.5, resp.Data.SizeKB, 0.001)
	mockSvc.AssertExpectations(t)
}

func TestDocumentHandler_Upload_FilenameFieldOverridesHeader(t *testing.T) {
	mockSvc := new(MockDocumentService)
	handler := NewDocumentHandler(mockSvc)

	doc := newTestDocument()
	pdfBytes := []byte("%PDF-1.7\ncontent")
	mockSvc.On("Ingest", mock.Anything, pdfBytes, "renamed.pdf").
		Return(&service.IngestResult{Document: doc, ChunkCount: 1}, nil)

	body, contentType := multipartBody(t, map[string]string{"filename": "renamed.pdf"}, "file", "original.pdf", pdfBytes)
	req := httptest.NewRequest(http.MethodPost, "/documents", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()

	handler.Upload(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
	mockSvc.AssertExpectations(t)
}

func TestDocumentHandler_Upload_MissingFile(t *testing.T) {
	mockSvc := new(MockDocumentService)
	handler := NewDocumentHandler(mockSvc)

	body, contentType := multipartBody(t, map[string]string{"filename": "report.pdf"}, "", "", nil)
	req := httptest.NewRequest(http.MethodPost, "/documents", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()

	handler.Upload(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	mockSvc.AssertNotCalled(t, "Ingest", mock.Anything, mock.Anything, mock.Anything)
}

func TestDocumentHandler_Upload_IngestErrorMapped(t *testing.T) {
	mockSvc := new(MockDocumentService)
	handler := NewDocumentHandler(mockSvc)

	pdfBytes := []byte("not a pdf")
	mockSvc.On("Ingest", mock.Anything, pdfBytes, "report.pdf").
		Return(nil, domain.ErrNotPDF)

	body, contentType := multipartBody(t, nil, "file", "report.pdf", pdfBytes)
	req := httptest.NewRequest(http.MethodPost, "/documents", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()

	handler.Upload(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)

	var resp struct {
		Error string `json:"error"`
		Code  string `json:"code"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, domain.ErrCodeExtraction, resp.Code)
	mockSvc.AssertExpectations(t)
}

func TestDocumentHandler_Upload_BuildInProgressConflict(t *testing.T) {
	mockSvc := new(MockDocumentService)
	handler := NewDocumentHandler(mockSvc)

	pdfBytes := []byte("%PDF-1.7\ncontent")
	mockSvc.On("Ingest", mock.Anything, pdfBytes, "report.pdf").
		Return(nil, domain.ErrBuildInProgress)

	body, contentType := multipartBody(t, nil, "file", "report.pdf", pdfBytes)
	req := httptest.NewRequest(http.MethodPost, "/documents", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()

	handler.Upload(w, req)

	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestDocumentHandler_UploadByURL_Success(t *testing.T) {
	pdfBytes := []byte("%PDF-1.7\nremote content")
	remote := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		_, _ = w.Write(pdfBytes)
	}))
	defer remote.Close()

	mockSvc := new(MockDocumentService)
	handler := NewDocumentHandler(mockSvc)

	doc := newTestDocument()
	mockSvc.On("Ingest", mock.Anything, pdfBytes, "remote.pdf").
		Return(&service.IngestResult{Document: doc, ChunkCount: 3}, nil)

	body := `{"url":"` + remote.URL + `/files/remote.pdf"}`
	req := httptest.NewRequest(http.MethodPost, "/documents/url", bytes.NewReader([]byte(body)))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	handler.UploadByURL(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
	mockSvc.AssertExpectations(t)
}

func TestDocumentHandler_UploadByURL_MissingURL(t *testing.T) {
	mockSvc := new(MockDocumentService)
	handler := NewDocumentHandler(mockSvc)

	req := httptest.NewRequest(http.MethodPost, "/documents/url", bytes.NewReader([]byte(`{}`)))
	w := httptest.NewRecorder()

	handler.UploadByURL(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	mockSvc.AssertNotCalled(t, "Ingest", mock.Anything, mock.Anything, mock.Anything)
}

func TestDocumentHandler_UploadByURL_RejectsNonHTTPScheme(t *testing.T) {
	mockSvc := new(MockDocumentService)
	handler := NewDocumentHandler(mockSvc)

	body := `{"url":"file:///etc/passwd"}`
	req := httptest.NewRequest(http.MethodPost, "/documents/url", bytes.NewReader([]byte(body)))
	w := httptest.NewRecorder()

	handler.UploadByURL(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDocumentHandler_UploadByURL_RemoteFailure(t *testing.T) {
	remote := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer remote.Close()

	mockSvc := new(MockDocumentService)
	handler := NewDocumentHandler(mockSvc)

	body := `{"url":"` + remote.URL + `/missing.pdf"}`
	req := httptest.NewRequest(http.MethodPost, "/documents/url", bytes.NewReader([]byte(body)))
	w := httptest.NewRecorder()

	handler.UploadByURL(w, req)

	assert.Equal(t, http.StatusBadGateway, w.Code)
	mockSvc.AssertNotCalled(t, "Ingest", mock.Anything, mock.Anything, mock.Anything)
}

func TestDocumentHandler_Get_Success(t *testing.T) {
	mockSvc := new(MockDocumentService)
	handler := NewDocumentHandler(mockSvc)

	doc := newTestDocument()
	mockSvc.On("Get", mock.Anything, "doc-123").Return(doc, nil)

	req := httptest.NewRequest(http.MethodGet, "/documents/doc-123", nil)
	req = requestWithURLParam(req, "id", "doc-123")
	w := httptest.NewRecorder()

	handler.Get(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data DocumentResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "doc-123", resp.Data.ID)
	assert.Equal(t, 2, resp.Data.Pages)
	assert.Equal(t, "text-embedding-3-small", resp.Data.EmbeddingModel)
	assert.Equal(t, "2026-02-10T09:30:00Z", resp.Data.ExtractedAt)
	assert.Empty(t, resp.Data.ExpiresAt)
	mockSvc.AssertExpectations(t)
}

func TestDocumentHandler_Get_NotFound(t *testing.T) {
	mockSvc := new(MockDocumentService)
	handler := NewDocumentHandler(mockSvc)

	mockSvc.On("Get", mock.Anything, "doc-999").Return(nil, domain.ErrDocumentNotFound)

	req := httptest.NewRequest(http.MethodGet, "/documents/doc-999", nil)
	req = requestWithURLParam(req, "id", "doc-999")
	w := httptest.NewRecorder()

	handler.Get(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDocumentHandler_List_Success(t *testing.T) {
	mockSvc := new(MockDocumentService)
	handler := NewDocumentHandler(mockSvc)

	doc := newTestDocument()
	mockSvc.On("List", mock.Anything, service.ListInput{Cursor: "", Limit: 20}).
		Return(&service.DocumentPageResult{
			Items:      []*domain.Document{doc},
			NextCursor: "next-cursor",
			HasMore:    true,
		}, nil)

	req := httptest.NewRequest(http.MethodGet, "/documents", nil)
	w := httptest.NewRecorder()

	handler.List(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data DocumentListResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Data.Documents, 1)
	assert.Equal(t, "doc-123", resp.Data.Documents[0].ID)
	assert.Equal(t, "next-cursor", resp.Data.NextCursor)
	assert.True(t, resp.Data.HasMore)
	mockSvc.AssertExpectations(t)
}

func TestDocumentHandler_List_LimitClampedToMax(t *testing.T) {
	mockSvc := new(MockDocumentService)
	handler := NewDocumentHandler(mockSvc)

	mockSvc.On("List", mock.Anything, service.ListInput{Limit: 100}).
		Return(&service.DocumentPageResult{Items: nil}, nil)

	req := httptest.NewRequest(http.MethodGet, "/documents?limit=500", nil)
	w := httptest.NewRecorder()

	handler.List(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	mockSvc.AssertExpectations(t)
}

func TestDocumentHandler_List_InvalidLimit(t *testing.T) {
	mockSvc := new(MockDocumentService)
	handler := NewDocumentHandler(mockSvc)

	req := httptest.NewRequest(http.MethodGet, "/documents?limit=abc", nil)
	w := httptest.NewRecorder()

	handler.List(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	mockSvc.AssertNotCalled(t, "List", mock.Anything, mock.Anything)
}

func TestDocumentHandler_List_InvalidCursor(t *testing.T) {
	mockSvc := new(MockDocumentService)
	handler := NewDocumentHandler(mockSvc)

	mockSvc.On("List", mock.Anything, service.ListInput{Cursor: "garbage", Limit: 20}).
		Return(nil, domain.NewDomainError(domain.ErrCodeValidation, "invalid cursor"))

	req := httptest.NewRequest(http.MethodGet, "/documents?cursor=garbage", nil)
	w := httptest.NewRecorder()

	handler.List(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDocumentHandler_Delete_Success(t *testing.T) {
	mockSvc := new(MockDocumentService)
	handler := NewDocumentHandler(mockSvc)

	mockSvc.On("Delete", mock.Anything, "doc-123").Return(nil)

	req := httptest.NewRequest(http.MethodDelete, "/documents/doc-123", nil)
	req = requestWithURLParam(req, "id", "doc-123")
	w := httptest.NewRecorder()

	handler.Delete(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data map[string]string `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "deleted", resp.Data["status"])
	mockSvc.AssertExpectations(t)
}

func TestDocumentHandler_Delete_NotFound(t *testing.T) {
	mockSvc := new(MockDocumentService)
	handler := NewDocumentHandler(mockSvc)

	mockSvc.On("Delete", mock.Anything, "doc-999").Return(domain.ErrDocumentNotFound)

	req := httptest.NewRequest(http.MethodDelete, "/documents/doc-999", nil)
	req = requestWithURLParam(req, "id", "doc-999")
	w := httptest.NewRecorder()

	handler.Delete(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDocumentHandler_Delete_InternalError(t *testing.T) {
	mockSvc := new(MockDocumentService)
	handler := NewDocumentHandler(mockSvc)

	mockSvc.On("Delete", mock.Anything, "doc-123").Return(errors.New("connection reset"))

	req := httptest.NewRequest(http.MethodDelete, "/documents/doc-123", nil)
	req = requestWithURLParam(req, "id", "doc-123")
	w := httptest.NewRecorder()

	handler.Delete(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
