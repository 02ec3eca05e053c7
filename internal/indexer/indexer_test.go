package indexer

import (
	"context"
	"errors"
	"testing"

	"github.com/quirybot/pipeline/internal/metrics"
	"github.com/quirybot/pipeline/internal/schema"
)

type fakeWriter struct {
	indexed []schema.MessageEvent
	err     error
}

func (f *fakeWriter) IndexMessage(ctx context.Context, msg schema.MessageEvent) error {
	if f.err != nil {
		return f.err
	}
	f.indexed = append(f.indexed, msg)
	return nil
}

func TestIndexer_HandleMessage(t *testing.T) {
	w := &fakeWriter{}
	idx := New(w, metrics.NewRegistry())

	msg := schema.MessageEvent{MessageID: "m1", Text: "hello world"}
	if err := idx.HandleMessage(context.Background(), msg); err != nil {
		t.Fatalf("HandleMessage returned error: %v", err)
	}
	if len(w.indexed) != 1 || w.indexed[0].MessageID != "m1" {
		t.Fatalf("expected message indexed, got %+v", w.indexed)
	}
}

func TestIndexer_HandleMessage_PropagatesError(t *testing.T) {
	w := &fakeWriter{err: errors.New("elasticsearch unreachable")}
	idx := New(w, metrics.NewRegistry())

	if err := idx.HandleMessage(context.Background(), schema.MessageEvent{MessageID: "m1"}); err == nil {
		t.Fatalf("expected error to propagate")
	}
}
