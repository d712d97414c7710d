// Package model holds the capability registry mapping model identifiers to
// generation and embedding capabilities. The registry is populated once at
// startup and read-only afterwards; every dispatch by model identifier goes
// through it so that unknown identifiers fail before any paid call.
package model

import (
	"context"

	"github.com/paperbase-ai/paperbase/internal/domain"
	"github.com/paperbase-ai/paperbase/internal/openai"
)

// Generator is the uniform generation contract a registered model exposes.
type Generator interface {
	CreateChatCompletion(ctx context.Context, model, systemPrompt, userPrompt string) (openai.ChatResult, error)
}

// Embedder is the uniform embedding contract a registered model exposes.
type Embedder interface {
	GenerateEmbedding(ctx context.Context, model, text string) ([]float32, error)
	GenerateEmbeddings(ctx context.Context, model string, texts []string) ([][]float32, error)
}

// Pricing is the per-million-token price of a model, used for ledger cost
// estimates.
type Pricing struct {
	InputPerMTok  float64
	OutputPerMTok float64
}

// Cost estimates the USD cost of a call with the given token counts.
func (p Pricing) Cost(inputTokens, outputTokens int) float64 {
	return float64(inputTokens)/1e6*p.InputPerMTok + float64(outputTokens)/1e6*p.OutputPerMTok
}

// Entry describes one registered model and what it can do.
type Entry struct {
	ID       string
	Generate bool
	Embed    bool
	Pricing  Pricing
}

// Registry is the closed model capability table.
type Registry struct {
	generator Generator
	embedder  Embedder
	entries   map[string]Entry
}

// NewRegistry builds a registry over the given backends. Entries with
// duplicate IDs overwrite earlier ones.
func NewRegistry(generator Generator, embedder Embedder, entries []Entry) *Registry {
	m := make(map[string]Entry, len(entries))
	for _, e := range entries {
		m[e.ID] = e
	}
	return &Registry{
		generator: generator,
		embedder:  embedder,
		entries:   m,
	}
}

// DefaultEntries lists the models registered out of the box.
func DefaultEntries() []Entry {
	return []Entry{
		{ID: "gpt-4o", Generate: true, Pricing: Pricing{InputPerMTok: 2.50, OutputPerMTok: 10.00}},
		{ID: "gpt-4o-mini", Generate: true, Pricing: Pricing{InputPerMTok: 0.15, OutputPerMTok: 0.60}},
		{ID: "gpt-4.1-mini", Generate: true, Pricing: Pricing{InputPerMTok: 0.40, OutputPerMTok: 1.60}},
		{ID: "text-embedding-3-small", Embed: true, Pricing: Pricing{InputPerMTok: 0.02}},
		{ID: "text-embedding-3-large", Embed: true, Pricing: Pricing{InputPerMTok: 0.13}},
	}
}

// Lookup returns the entry for a model identifier, or ErrUnknownModel.
func (r *Registry) Lookup(id string) (Entry, error) {
	entry, ok := r.entries[id]
	if !ok {
		return Entry{}, domain.ErrUnknownModel
	}
	return entry, nil
}

// GeneratorFor returns the generation backend for the identifier. Unknown or
// non-generative identifiers fail with ErrUnknownModel before any call is
// made.
func (r *Registry) GeneratorFor(id string) (Generator, Entry, error) {
	entry, err := r.Lookup(id)
	if err != nil {
		return nil, Entry{}, err
	}
	if !entry.Generate {
		return nil, Entry{}, domain.ErrUnknownModel
	}
	return r.generator, entry, nil
}

// EmbedderFor returns the embedding backend for the identifier.
func (r *Registry) EmbedderFor(id string) (Embedder, Entry, error) {
	entry, err := r.Lookup(id)
	if err != nil {
		return nil, Entry{}, err
	}
	if !entry.Embed {
		return nil, Entry{}, domain.ErrUnknownModel
	}
	return r.embedder, entry, nil
}
