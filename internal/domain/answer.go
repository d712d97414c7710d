package domain

// SourceChunk is the provenance of one context passage used in an answer.
// PageMarkdown is the raw OCR markdown of the source page.
type SourceChunk struct {
	ChunkID      string
	Page         int
	Score        float32
	Snippet      string
	PageMarkdown string
}

// Answer is the result of one grounded generation call.
type Answer struct {
	Text         string
	Sources      []SourceChunk
	ModelID      string
	InputTokens  int
	OutputTokens int
	CostUSD      float64
	LatencyMS    int64
}

// GenerationRow is one input row of a bulk run: an activity name and its
// definition, both fed into the generation prompt.
type GenerationRow struct {
	Activity   string
	Definition string
}

// RowResult is the per-row outcome of a bulk run. Exactly one of Answer or
// Err is set; a failed row never aborts the batch.
type RowResult struct {
	Row    int
	Answer *Answer
	Err    string
}

// Failed reports whether the row's generation was captured as an error.
func (r RowResult) Failed() bool {
	return r.Err != ""
}
