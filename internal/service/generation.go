package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/paperbase-ai/paperbase/internal/domain"
	"github.com/paperbase-ai/paperbase/internal/model"
)

const (
	defaultTopK            = 3
	defaultBulkWorkers     = 4
	defaultMaxContextChars = 6000
	snippetMaxChars        = 220

	answerSystemPrompt = `You are a document assistant. Answer strictly from the context passages provided by the user. Each passage is tagged with its source page. If the context does not contain the answer, say so; do not invent information.`

	generateSystemPrompt = `You are a content generator working from a source document. Using only the context passages provided, write the requested content for the given activity. Each passage is tagged with its source page. If the context is insufficient, say so; do not invent information.`
)

// Retriever is the retrieval contract the orchestrator depends on.
type Retriever interface {
	Retrieve(ctx context.Context, documentID, query string, topK int, minScore float32) (domain.RetrievalResult, error)
}

// GeneratorRegistry resolves a generation capability by model identifier.
type GeneratorRegistry interface {
	GeneratorFor(id string) (model.Generator, model.Entry, error)
}

// GenerationConfig tunes the retrieve-then-generate path.
type GenerationConfig struct {
	TopK            int
	MinScore        float32
	MaxContextChars int
	BulkWorkers     int
}

// GenerationService orchestrates grounded generation: it retrieves context,
// assembles prompts, dispatches to the selected model and meters every call.
type GenerationService struct {
	retriever Retriever
	registry  GeneratorRegistry
	usage     UsageRecorder
	cfg       GenerationConfig
	now       func() time.Time
}

func NewGenerationService(retriever Retriever, registry GeneratorRegistry, usage UsageRecorder, cfg GenerationConfig) *GenerationService {
	if cfg.TopK <= 0 {
		cfg.TopK = defaultTopK
	}
	if cfg.MaxContextChars <= 0 {
		cfg.MaxContextChars = defaultMaxContextChars
	}
	if cfg.BulkWorkers <= 0 {
		cfg.BulkWorkers = defaultBulkWorkers
	}
	return &GenerationService{
		retriever: retriever,
		registry:  registry,
		usage:     usage,
		cfg:       cfg,
		now:       time.Now,
	}
}

// Answer answers a single question from the document's index. The model
// identifier is validated before retrieval so an unknown model never incurs
// retrieval or generation cost.
func (s *GenerationService) Answer(ctx context.Context, documentID, question, modelID string) (*domain.Answer, error) {
	if strings.TrimSpace(question) == "" {
		return nil, domain.ErrEmptyQuery
	}
	return s.generate(ctx, documentID, question, answerSystemPrompt, question, modelID, domain.FeatureChat)
}

// GenerateRow produces content for one activity/definition pair grounded in
// the document.
func (s *GenerationService) GenerateRow(ctx context.Context, documentID string, row domain.GenerationRow, modelID string) (*domain.Answer, error) {
	if strings.TrimSpace(row.Activity) == "" {
		return nil, domain.ErrMissingRequiredField
	}
	query := row.Activity
	if row.Definition != "" {
		query += ": " + row.Definition
	}
	prompt := fmt.Sprintf("Activity: %s\nDefinition: %s\n\nWrite the content for this activity based on the context.", row.Activity, row.Definition)
	return s.generate(ctx, documentID, query, generateSystemPrompt, prompt, modelID, domain.FeatureGenerate)
}

// GenerateBulk runs the single-row path once per input row, up to
// min(len(rows), queryLimit) rows; a queryLimit of zero processes all rows.
// Rows run concurrently on a bounded worker pool. Per-row failures are
// captured in the row's result; the batch always returns one result per
// attempted row, in input order. Cancelling ctx stops rows that have not
// started, but completed results and their ledger entries are kept.
func (s *GenerationService) GenerateBulk(ctx context.Context, documentID string, rows []domain.GenerationRow, modelID string, queryLimit int) ([]domain.RowResult, error) {
	// Fail fast on an unknown model before any retrieval or paid call.
	if _, _, err := s.registry.GeneratorFor(modelID); err != nil {
		return nil, err
	}

	n := len(rows)
	if queryLimit > 0 && queryLimit < n {
		n = queryLimit
	}

	results := make([]domain.RowResult, n)

	var g errgroup.Group
	g.SetLimit(s.cfg.BulkWorkers)
	for i := 0; i < n; i++ {
		g.Go(func() error {
			results[i] = domain.RowResult{Row: i}
			if err := ctx.Err(); err != nil {
				results[i].Err = domain.NewModelError(err).Error()
				return nil
			}
			answer, err := s.generateBulkRow(ctx, documentID, rows[i], modelID)
			if err != nil {
				results[i].Err = err.Error()
				return nil
			}
			results[i].Answer = answer
			return nil
		})
	}
	_ = g.Wait()

	return results, nil
}

func (s *GenerationService) generateBulkRow(ctx context.Context, documentID string, row domain.GenerationRow, modelID string) (*domain.Answer, error) {
	if strings.TrimSpace(row.Activity) == "" {
		return nil, domain.ErrMissingRequiredField
	}
	query := row.Activity
	if row.Definition != "" {
		query += ": " + row.Definition
	}
	prompt := fmt.Sprintf("Activity: %s\nDefinition: %s\n\nWrite the content for this activity based on the context.", row.Activity, row.Definition)
	return s.generate(ctx, documentID, query, generateSystemPrompt, prompt, modelID, domain.FeatureBulkGenerate)
}

func (s *GenerationService) generate(ctx context.Context, documentID, query, systemPrompt, userRequest, modelID string, feature domain.Feature) (*domain.Answer, error) {
	generator, entry, err := s.registry.GeneratorFor(modelID)
	if err != nil {
		return nil, err
	}

	retrieval, err := s.retriever.Retrieve(ctx, documentID, query, s.cfg.TopK, s.cfg.MinScore)
	if err != nil {
		return nil, err
	}

	contextBlock, sources := buildContext(retrieval, s.cfg.MaxContextChars)
	userPrompt := fmt.Sprintf("Context:\n%s\n\n%s", contextBlock, userRequest)

	start := s.now()
	result, err := generator.CreateChatCompletion(ctx, entry.ID, systemPrompt, userPrompt)
	latency := s.now().Sub(start).Milliseconds()
	if err != nil {
		return nil, domain.NewModelError(err)
	}

	cost := entry.Pricing.Cost(result.InputTokens, result.OutputTokens)
	s.recordUsage(ctx, domain.UsageRecord{
		Model:        entry.ID,
		Feature:      feature,
		InputTokens:  result.InputTokens,
		OutputTokens: result.OutputTokens,
		CostUSD:      cost,
		LatencyMS:    latency,
	})

	return &domain.Answer{
		Text:         result.Text,
		Sources:      sources,
		ModelID:      entry.ID,
		InputTokens:  result.InputTokens,
		OutputTokens: result.OutputTokens,
		CostUSD:      cost,
		LatencyMS:    latency,
	}, nil
}

// buildContext concatenates retrieved chunks in score order into a bounded
// context window, each block tagged with its source page.
func buildContext(retrieval domain.RetrievalResult, maxChars int) (string, []domain.SourceChunk) {
	if retrieval.Empty() {
		return "(no relevant passages found)", nil
	}

	var b strings.Builder
	sources := make([]domain.SourceChunk, 0, len(retrieval.Chunks))
	for _, c := range retrieval.Chunks {
		block := fmt.Sprintf("[Page %d] %s", c.Page+1, c.Text)
		if b.Len() > 0 && b.Len()+len(block) > maxChars {
			break
		}
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(block)
		sources = append(sources, domain.SourceChunk{
			ChunkID:      c.ChunkID,
			Page:         c.Page,
			Score:        c.Score,
			Snippet:      makeSnippet(c.Text),
			PageMarkdown: c.PageMarkdown,
		})
	}
	return b.String(), sources
}

func makeSnippet(content string) string {
	clean := strings.Join(strings.Fields(content), " ")
	runes := []rune(clean)
	if len(runes) <= snippetMaxChars {
		return clean
	}
	return string(runes[:snippetMaxChars-3]) + "..."
}

func (s *GenerationService) recordUsage(ctx context.Context, rec domain.UsageRecord) {
	if s.usage == nil {
		return
	}
	if err := s.usage.Record(ctx, rec); err != nil {
		log.Printf("failed to record usage: %v", err)
	}
}
