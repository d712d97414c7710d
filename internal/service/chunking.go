package service

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/paperbase-ai/paperbase/internal/domain"
)

// ChunkConfig controls how page text is split into retrieval units.
type ChunkConfig struct {
	MaxChars int
	Overlap  int
	Lookback int
}

// DefaultChunkConfig provides sane defaults for chunking.
func DefaultChunkConfig() ChunkConfig {
	return ChunkConfig{
		MaxChars: 1200,
		Overlap:  200,
		Lookback: 400,
	}
}

// ChunkDocument splits every page of the document into chunks of at most
// MaxChars runes, each chunk after the first starting Overlap runes before
// the previous chunk's end. Chunks never span two pages, so every chunk maps
// to exactly one source page. Splitting prefers a whitespace boundary within
// the Lookback window behind the cut point, falling back to a hard cut.
//
// Sequence numbers are dense across the document and offsets are rune
// offsets into the page text, monotonically increasing per page.
func ChunkDocument(doc *domain.Document, cfg ChunkConfig) ([]domain.Chunk, error) {
	if cfg.MaxChars <= 0 {
		cfg = DefaultChunkConfig()
	}
	if cfg.Overlap < 0 || cfg.Overlap >= cfg.MaxChars {
		return nil, domain.ErrDegenerateChunking
	}
	if cfg.Lookback <= 0 {
		cfg.Lookback = cfg.MaxChars / 3
	}

	var chunks []domain.Chunk
	seq := 0
	for _, page := range doc.Pages {
		pageChunks := chunkPage(doc.ID, page, cfg, &seq)
		chunks = append(chunks, pageChunks...)
	}
	return chunks, nil
}

func chunkPage(docID string, page domain.Page, cfg ChunkConfig, seq *int) []domain.Chunk {
	runes := []rune(page.Text)
	if len(strings.TrimSpace(page.Text)) == 0 {
		return nil
	}

	var chunks []domain.Chunk
	start := 0
	for start < len(runes) {
		end := start + cfg.MaxChars
		if end > len(runes) {
			end = len(runes)
		}

		// Prefer a whitespace boundary near the cut point over a hard cut.
		if end < len(runes) {
			cut := end
			minCut := end - cfg.Lookback
			if minCut <= start {
				minCut = start + 1
			}
			for i := end; i > minCut; i-- {
				if unicode.IsSpace(runes[i-1]) {
					cut = i
					break
				}
			}
			end = cut
		}

		text := string(runes[start:end])
		if strings.TrimSpace(text) != "" {
			chunks = append(chunks, domain.Chunk{
				ID:          chunkID(docID, *seq),
				DocumentID:  docID,
				Seq:         *seq,
				Page:        page.Number,
				Text:        text,
				StartOffset: start,
				EndOffset:   end,
			})
			*seq++
		}

		if end >= len(runes) {
			break
		}

		next := end - cfg.Overlap
		if next <= start {
			next = end
		}
		start = next
	}

	return chunks
}

func chunkID(docID string, seq int) string {
	return fmt.Sprintf("%s:%d", docID, seq)
}
