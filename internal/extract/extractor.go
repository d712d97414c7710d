// Package extract wraps the external OCR service behind a page-ordered
// extraction contract. The adapter validates input PDFs, calls the service
// and normalizes the response into a domain.Document whose page boundaries
// stay traceable through the rest of the pipeline.
package extract

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/paperbase-ai/paperbase/internal/domain"
)

// OCRPage is one page as returned by the external OCR service.
type OCRPage struct {
	Index    int
	Markdown string
}

// OCRClient is the external text-extraction service contract.
type OCRClient interface {
	Process(ctx context.Context, fileBytes []byte, filename string) ([]OCRPage, error)
}

// Extractor turns raw PDF bytes into an extracted Document.
type Extractor struct {
	ocr OCRClient
	now func() time.Time
}

func NewExtractor(ocr OCRClient) *Extractor {
	return &Extractor{ocr: ocr, now: func() time.Time { return time.Now().UTC() }}
}

// Extract validates the PDF, runs OCR and assembles the page-ordered
// document. All failure modes surface as EXTRACTION_ERROR; page order and
// boundaries are preserved as delivered by the service.
func (e *Extractor) Extract(ctx context.Context, fileBytes []byte, filename string) (*domain.Document, error) {
	if err := ValidatePDF(fileBytes); err != nil {
		return nil, err
	}

	ocrPages, err := e.ocr.Process(ctx, fileBytes, filename)
	if err != nil {
		if ctx.Err() != nil {
			return nil, domain.NewExtractionError("extraction timed out or was cancelled", ctx.Err())
		}
		return nil, domain.NewExtractionError("ocr service call failed", err)
	}
	if len(ocrPages) == 0 {
		return nil, domain.ErrNoPages
	}

	doc := domain.NewDocument(uuid.NewString(), filename, float64(len(fileBytes))/1024, e.now())
	doc.Pages = make([]domain.Page, 0, len(ocrPages))
	for _, p := range ocrPages {
		doc.Pages = append(doc.Pages, domain.Page{
			Number:   p.Index,
			Markdown: p.Markdown,
			Text:     CleanPlainText(p.Markdown),
		})
	}

	return doc, nil
}

// EstimateUsage returns the estimated token usage of an extraction for the
// ledger: input scales with the file size, output with the extracted text.
func (e *Extractor) EstimateUsage(doc *domain.Document) (inputTokens, outputTokens int) {
	inputTokens = EstimateFileTokens(doc.SizeKB)
	for _, p := range doc.Pages {
		outputTokens += EstimateTextTokens(p.Text)
	}
	return inputTokens, outputTokens
}
