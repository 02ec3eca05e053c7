package chatclient

import (
	"context"

	"github.com/quirybot/pipeline/internal/schema"
)

// Mock is a deterministic stand-in for Client used in tests.
type Mock struct {
	SummarizeFunc func(ctx context.Context, text string) (string, error)
}

func (m *Mock) Summarize(ctx context.Context, text string) (string, error) {
	if m.SummarizeFunc != nil {
		return m.SummarizeFunc(ctx, text)
	}
	return "mock summary", nil
}

func (m *Mock) AnswerFromMessages(ctx context.Context, query string, context_ []schema.QueryResult) (string, error) {
	return "mock answer to: " + query, nil
}

func (m *Mock) AnswerFromChunks(ctx context.Context, query string, chunks []schema.ChunkQueryResult) (string, error) {
	return "mock answer to: " + query, nil
}
