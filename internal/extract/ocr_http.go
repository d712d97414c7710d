package extract

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const defaultOCRTimeout = 120 * time.Second

// HTTPOCRClient calls a Mistral-OCR-shaped HTTP endpoint. The request ships
// the document as base64; the response is a page-ordered list of markdown
// blocks.
type HTTPOCRClient struct {
	endpoint   string
	apiKey     string
	model      string
	httpClient *http.Client
}

type HTTPOCRConfig struct {
	Endpoint string
	APIKey   string
	Model    string
	Timeout  time.Duration
}

func NewHTTPOCRClient(cfg HTTPOCRConfig) *HTTPOCRClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultOCRTimeout
	}
	model := cfg.Model
	if model == "" {
		model = "mistral-ocr-latest"
	}
	return &HTTPOCRClient{
		endpoint:   cfg.Endpoint,
		apiKey:     cfg.APIKey,
		model:      model,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Model returns the OCR model identifier used for ledger entries.
func (c *HTTPOCRClient) Model() string {
	return c.model
}

type ocrRequest struct {
	Model    string `json:"model"`
	Filename string `json:"filename"`
	Document string `json:"document"`
}

type ocrResponsePage struct {
	Index    int    `json:"index"`
	Markdown string `json:"markdown"`
}

type ocrResponse struct {
	Pages []ocrResponsePage `json:"pages"`
}

// Process implements OCRClient over HTTP.
func (c *HTTPOCRClient) Process(ctx context.Context, fileBytes []byte, filename string) ([]OCRPage, error) {
	payload, err := json.Marshal(ocrRequest{
		Model:    c.model,
		Filename: filename,
		Document: base64.StdEncoding.EncodeToString(fileBytes),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode ocr request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build ocr request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ocr request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("ocr service returned status %d: %s", resp.StatusCode, string(body))
	}

	var parsed ocrResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode ocr response: %w", err)
	}

	pages := make([]OCRPage, 0, len(parsed.Pages))
	for _, p := range parsed.Pages {
		pages = append(pages, OCRPage{Index: p.Index, Markdown: p.Markdown})
	}
	return pages, nil
}
