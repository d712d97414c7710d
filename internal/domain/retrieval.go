package domain

import "sort"

// ScoredChunk is one retrieval hit: a chunk reference plus its cosine
// similarity to the query. PageMarkdown carries the raw OCR markdown of the
// source page and is attached by the retriever, not stored per chunk.
type ScoredChunk struct {
	ChunkID      string
	DocumentID   string
	Seq          int
	Page         int
	Text         string
	PageMarkdown string
	Score        float32
}

// RetrievalResult is an ordered set of scored chunks, descending by score,
// ties broken by chunk sequence, deduplicated by chunk ID and bounded to the
// requested top-K.
type RetrievalResult struct {
	Chunks []ScoredChunk
}

// Empty reports whether retrieval produced no hits.
func (r RetrievalResult) Empty() bool {
	return len(r.Chunks) == 0
}

// NewRetrievalResult normalizes raw hits into the result contract: dedupe by
// chunk ID (keeping the best score), drop scores below minScore, sort by
// score descending with Seq as tie-break, truncate to topK.
func NewRetrievalResult(hits []ScoredChunk, topK int, minScore float32) RetrievalResult {
	best := make(map[string]ScoredChunk, len(hits))
	for _, h := range hits {
		if h.Score < minScore {
			continue
		}
		if existing, ok := best[h.ChunkID]; !ok || h.Score > existing.Score {
			best[h.ChunkID] = h
		}
	}

	out := make([]ScoredChunk, 0, len(best))
	for _, h := range best {
		out = append(out, h)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Seq < out[j].Seq
	})

	if topK > 0 && len(out) > topK {
		out = out[:topK]
	}
	return RetrievalResult{Chunks: out}
}
