package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/paperbase-ai/paperbase/internal/domain"
	"github.com/paperbase-ai/paperbase/internal/openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func retrievalHits() domain.RetrievalResult {
	return domain.RetrievalResult{Chunks: []domain.ScoredChunk{
		{ChunkID: "doc-1:0", Seq: 0, Page: 0, Score: 0.9, Text: "relevant passage"},
		{ChunkID: "doc-1:3", Seq: 3, Page: 1, Score: 0.7, Text: "another passage"},
	}}
}

func TestAnswer_GroundedInRetrievedChunks(t *testing.T) {
	retriever := new(MockRetriever)
	retriever.On("Retrieve", mock.Anything, "doc-1", "what is this about?", 3, float32(0)).
		Return(retrievalHits(), nil)

	generator := new(MockGenerator)
	generator.On("CreateChatCompletion", mock.Anything, "gpt-4o-mini", mock.Anything, mock.MatchedBy(func(prompt string) bool {
		return strings.Contains(prompt, "relevant passage") && strings.Contains(prompt, "what is this about?")
	})).Return(openai.ChatResult{Text: "an answer", InputTokens: 200, OutputTokens: 50}, nil)

	usage := &memoryUsageRecorder{}
	svc := NewGenerationService(retriever, fakeRegistry(generator, nil), usage, GenerationConfig{})

	answer, err := svc.Answer(context.Background(), "doc-1", "what is this about?", "gpt-4o-mini")

	require.NoError(t, err)
	assert.Equal(t, "an answer", answer.Text)
	assert.Equal(t, "gpt-4o-mini", answer.ModelID)
	require.Len(t, answer.Sources, 2)
	assert.Equal(t, "doc-1:0", answer.Sources[0].ChunkID)
	assert.Equal(t, 200, answer.InputTokens)
	assert.Equal(t, 50, answer.OutputTokens)
	// gpt-4o-mini: 200 tokens at $0.15/M plus 50 at $0.60/M
	assert.InDelta(t, 200.0/1e6*0.15+50.0/1e6*0.60, answer.CostUSD, 1e-12)

	records := usage.Records()
	require.Len(t, records, 1)
	assert.Equal(t, domain.FeatureChat, records[0].Feature)
	assert.Equal(t, answer.CostUSD, records[0].CostUSD)
}

func TestAnswer_EmptyQuestion(t *testing.T) {
	svc := NewGenerationService(new(MockRetriever), fakeRegistry(new(MockGenerator), nil), nil, GenerationConfig{})

	_, err := svc.Answer(context.Background(), "doc-1", "  ", "gpt-4o-mini")

	assert.ErrorIs(t, err, domain.ErrEmptyQuery)
}

func TestAnswer_UnknownModelBeforeRetrieval(t *testing.T) {
	retriever := new(MockRetriever)

	svc := NewGenerationService(retriever, fakeRegistry(new(MockGenerator), nil), nil, GenerationConfig{})

	_, err := svc.Answer(context.Background(), "doc-1", "question", "made-up-model")

	assert.ErrorIs(t, err, domain.ErrUnknownModel)
	retriever.AssertNotCalled(t, "Retrieve")
}

func TestAnswer_EmbeddingOnlyModelRejected(t *testing.T) {
	svc := NewGenerationService(new(MockRetriever), fakeRegistry(new(MockGenerator), nil), nil, GenerationConfig{})

	_, err := svc.Answer(context.Background(), "doc-1", "question", "text-embedding-3-small")

	assert.ErrorIs(t, err, domain.ErrUnknownModel)
}

func TestAnswer_ModelCallFailure(t *testing.T) {
	retriever := new(MockRetriever)
	retriever.On("Retrieve", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(retrievalHits(), nil)

	generator := new(MockGenerator)
	generator.On("CreateChatCompletion", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(openai.ChatResult{}, errors.New("upstream 500"))

	usage := &memoryUsageRecorder{}
	svc := NewGenerationService(retriever, fakeRegistry(generator, nil), usage, GenerationConfig{})

	_, err := svc.Answer(context.Background(), "doc-1", "question", "gpt-4o-mini")

	var domainErr *domain.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, domain.ErrCodeModel, domainErr.Code)
	assert.Empty(t, usage.Records(), "failed calls are not metered")
}

func TestGenerateRow_RequiresActivity(t *testing.T) {
	svc := NewGenerationService(new(MockRetriever), fakeRegistry(new(MockGenerator), nil), nil, GenerationConfig{})

	_, err := svc.GenerateRow(context.Background(), "doc-1", domain.GenerationRow{Definition: "only definition"}, "gpt-4o-mini")

	assert.ErrorIs(t, err, domain.ErrMissingRequiredField)
}

func TestGenerateBulk_QueryLimitBoundsRows(t *testing.T) {
	retriever := new(MockRetriever)
	retriever.On("Retrieve", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(retrievalHits(), nil)

	generator := new(MockGenerator)
	generator.On("CreateChatCompletion", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(openai.ChatResult{Text: "row output", InputTokens: 10, OutputTokens: 5}, nil)

	svc := NewGenerationService(retriever, fakeRegistry(generator, nil), &memoryUsageRecorder{}, GenerationConfig{BulkWorkers: 2})

	rows := []domain.GenerationRow{
		{Activity: "a"}, {Activity: "b"}, {Activity: "c"}, {Activity: "d"}, {Activity: "e"},
	}

	results, err := svc.GenerateBulk(context.Background(), "doc-1", rows, "gpt-4o-mini", 3)

	require.NoError(t, err)
	require.Len(t, results, 3)
	for i, res := range results {
		assert.Equal(t, i, res.Row)
		assert.False(t, res.Failed())
		assert.Equal(t, "row output", res.Answer.Text)
	}
}

func TestGenerateBulk_ZeroLimitProcessesAll(t *testing.T) {
	retriever := new(MockRetriever)
	retriever.On("Retrieve", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(retrievalHits(), nil)

	generator := new(MockGenerator)
	generator.On("CreateChatCompletion", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(openai.ChatResult{Text: "row output"}, nil)

	svc := NewGenerationService(retriever, fakeRegistry(generator, nil), &memoryUsageRecorder{}, GenerationConfig{})

	rows := []domain.GenerationRow{
		{Activity: "a"}, {Activity: "b"}, {Activity: "c"}, {Activity: "d"}, {Activity: "e"},
	}

	results, err := svc.GenerateBulk(context.Background(), "doc-1", rows, "gpt-4o-mini", 0)

	require.NoError(t, err)
	assert.Len(t, results, 5)
}

func TestGenerateBulk_RowFailureDoesNotAbortBatch(t *testing.T) {
	retriever := new(MockRetriever)
	retriever.On("Retrieve", mock.Anything, "doc-1", "bad", mock.Anything, mock.Anything).
		Return(domain.RetrievalResult{}, domain.NewModelError(errors.New("embedding failed")))
	retriever.On("Retrieve", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(retrievalHits(), nil)

	generator := new(MockGenerator)
	generator.On("CreateChatCompletion", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(openai.ChatResult{Text: "ok"}, nil)

	svc := NewGenerationService(retriever, fakeRegistry(generator, nil), &memoryUsageRecorder{}, GenerationConfig{})

	rows := []domain.GenerationRow{
		{Activity: "good one"}, {Activity: "bad"}, {Activity: "good two"},
	}

	results, err := svc.GenerateBulk(context.Background(), "doc-1", rows, "gpt-4o-mini", 0)

	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.False(t, results[0].Failed())
	assert.True(t, results[1].Failed())
	assert.Contains(t, results[1].Err, "model call failed")
	assert.False(t, results[2].Failed())
}

func TestGenerateBulk_UnknownModelFailsFast(t *testing.T) {
	retriever := new(MockRetriever)

	svc := NewGenerationService(retriever, fakeRegistry(new(MockGenerator), nil), nil, GenerationConfig{})

	_, err := svc.GenerateBulk(context.Background(), "doc-1", []domain.GenerationRow{{Activity: "a"}}, "made-up-model", 0)

	assert.ErrorIs(t, err, domain.ErrUnknownModel)
	retriever.AssertNotCalled(t, "Retrieve")
}

func TestGenerateBulk_CancelledContextCapturedPerRow(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	svc := NewGenerationService(new(MockRetriever), fakeRegistry(new(MockGenerator), nil), nil, GenerationConfig{})

	results, err := svc.GenerateBulk(ctx, "doc-1", []domain.GenerationRow{{Activity: "a"}, {Activity: "b"}}, "gpt-4o-mini", 0)

	require.NoError(t, err)
	require.Len(t, results, 2)
	for _, res := range results {
		assert.True(t, res.Failed())
	}
}

func TestBuildContext_BoundedAndTagged(t *testing.T) {
	retrieval := domain.RetrievalResult{Chunks: []domain.ScoredChunk{
		{ChunkID: "a", Page: 0, Score: 0.9, Text: "first chunk text"},
		{ChunkID: "b", Page: 2, Score: 0.8, Text: "second chunk text"},
	}}

	contextBlock, sources := buildContext(retrieval, 6000)

	assert.Contains(t, contextBlock, "[Page 1] first chunk text")
	assert.Contains(t, contextBlock, "[Page 3] second chunk text")
	require.Len(t, sources, 2)
	assert.Equal(t, "first chunk text", sources[0].Snippet)
}

func TestBuildContext_TruncatesAtLimit(t *testing.T) {
	retrieval := domain.RetrievalResult{Chunks: []domain.ScoredChunk{
		{ChunkID: "a", Page: 0, Score: 0.9, Text: "first chunk text"},
		{ChunkID: "b", Page: 1, Score: 0.8, Text: "second chunk text"},
	}}

	contextBlock, sources := buildContext(retrieval, 30)

	assert.Contains(t, contextBlock, "first chunk text")
	assert.NotContains(t, contextBlock, "second chunk text")
	assert.Len(t, sources, 1)
}

func TestBuildContext_EmptyRetrieval(t *testing.T) {
	contextBlock, sources := buildContext(domain.RetrievalResult{}, 6000)

	assert.Equal(t, "(no relevant passages found)", contextBlock)
	assert.Empty(t, sources)
}

func TestBuildContext_CarriesPageMarkdown(t *testing.T) {
	retrieval := domain.RetrievalResult{Chunks: []domain.ScoredChunk{
		{ChunkID: "a", Page: 0, Score: 0.9, Text: "plain text", PageMarkdown: "# Heading\nplain text"},
	}}

	_, sources := buildContext(retrieval, 6000)

	require.Len(t, sources, 1)
	assert.Equal(t, "# Heading\nplain text", sources[0].PageMarkdown)
}

func TestMakeSnippet_TruncatesOnRuneBoundary(t *testing.T) {
	long := strings.Repeat("é", snippetMaxChars+50)

	snippet := makeSnippet(long)

	assert.True(t, utf8.ValidString(snippet))
	assert.Equal(t, snippetMaxChars, len([]rune(snippet)))
	assert.True(t, strings.HasSuffix(snippet, "..."))
}

func TestMakeSnippet_ShortContentUntouched(t *testing.T) {
	assert.Equal(t, "héllo wörld", makeSnippet("héllo   wörld"))
}
