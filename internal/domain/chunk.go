package domain

// Chunk is a bounded span of a single page used as the unit of retrieval.
// Offsets are rune offsets into the page's plain text and are monotonically
// increasing across the chunks of a document. The embedding is populated by
// the index build and never mutated afterwards.
type Chunk struct {
	ID          string
	DocumentID  string
	Seq         int
	Page        int
	Text        string
	StartOffset int
	EndOffset   int
	Embedding   []float32
}
