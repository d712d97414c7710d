package domain

import "time"

// Page holds one extracted page of a document. Markdown is the raw OCR
// output, Text the cleaned plain text used for chunking and search.
type Page struct {
	Number   int
	Markdown string
	Text     string
}

// Document represents an uploaded and extracted PDF. It is immutable once
// extraction has finished; deletion or TTL eviction removes it together with
// its chunks.
type Document struct {
	ID             string
	Filename       string
	Pages          []Page
	SizeKB         float64
	EmbeddingModel string
	ExtractedAt    time.Time
	ExpiresAt      time.Time
}

// NewDocument creates a Document shell before pages are attached.
func NewDocument(id, filename string, sizeKB float64, extractedAt time.Time) *Document {
	return &Document{
		ID:          id,
		Filename:    filename,
		SizeKB:      sizeKB,
		ExtractedAt: extractedAt,
	}
}

// PageMarkdown returns the markdown of the page with the given number, or ""
// if the document has no such page.
func (d *Document) PageMarkdown(number int) string {
	for _, p := range d.Pages {
		if p.Number == number {
			return p.Markdown
		}
	}
	return ""
}

// Expired reports whether the document has passed its retention deadline.
func (d *Document) Expired(now time.Time) bool {
	return !d.ExpiresAt.IsZero() && now.After(d.ExpiresAt)
}
