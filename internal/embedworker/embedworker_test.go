package embedworker

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/quirybot/pipeline/internal/metrics"
	"github.com/quirybot/pipeline/internal/schema"
	"github.com/quirybot/pipeline/internal/vectorstore"
)

type fakeEmbedder struct {
	calls []string
	err   error
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	f.calls = append(f.calls, text)
	if f.err != nil {
		return nil, f.err
	}
	return []float32{1, 2, 3}, nil
}

type fakeSummarizer struct {
	summary string
	err     error
}

func (f *fakeSummarizer) Summarize(ctx context.Context, text string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.summary, nil
}

type fakeUpserter struct {
	upserted []vectorstore.Vector
	err      error
}

func (f *fakeUpserter) Upsert(ctx context.Context, vectors []vectorstore.Vector) error {
	if f.err != nil {
		return f.err
	}
	f.upserted = append(f.upserted, vectors...)
	return nil
}

func TestWorker_HandleMessage(t *testing.T) {
	emb := &fakeEmbedder{}
	up := &fakeUpserter{}
	w := New(emb, &fakeSummarizer{}, up, metrics.NewRegistry())

	msg := schema.MessageEvent{MessageID: "m1", ChannelID: "c1", AuthorID: "u1", Text: "hello", Timestamp: time.Now()}
	if err := w.HandleMessage(context.Background(), msg); err != nil {
		t.Fatalf("HandleMessage returned error: %v", err)
	}
	if len(up.upserted) != 1 || up.upserted[0].ID != "m1" {
		t.Fatalf("expected message upserted under its own id, got %+v", up.upserted)
	}
}

func TestWorker_HandleChunk_ShortTextSkipsSummary(t *testing.T) {
	emb := &fakeEmbedder{}
	summarizer := &fakeSummarizer{summary: "should not be used"}
	up := &fakeUpserter{}
	w := New(emb, summarizer, up, metrics.NewRegistry())

	chunk := schema.MessageChunk{ChunkID: "c1", FirstMsgID: "m1", LastMsgID: "m3", Text: "short chunk text", MessageCount: 3}
	if err := w.HandleChunk(context.Background(), chunk); err != nil {
		t.Fatalf("HandleChunk returned error: %v", err)
	}
	if emb.calls[0] != "short chunk text" {
		t.Errorf("expected full text embedded for short chunk, got %q", emb.calls[0])
	}
	if len(up.upserted) != 1 || up.upserted[0].ID != "chunk_c1" {
		t.Fatalf("expected chunk upserted under chunk_-prefixed id, got %+v", up.upserted)
	}
	meta := up.upserted[0].Metadata
	if meta["chunk_id"] != "c1" || meta["first_msg_id"] != "m1" || meta["last_msg_id"] != "m3" {
		t.Errorf("expected chunk identity fields in metadata, got %+v", meta)
	}
	if meta["has_summary"] != "false" {
		t.Errorf("expected has_summary=false for a chunk without a summary, got %q", meta["has_summary"])
	}
	if _, ok := meta["summary"]; ok {
		t.Errorf("expected no summary key in metadata when no summary was produced")
	}
}

func TestWorker_HandleChunk_LongTextUsesSummary(t *testing.T) {
	longText := strings.Repeat("word ", SummaryThreshold)
	emb := &fakeEmbedder{}
	summarizer := &fakeSummarizer{summary: "a short summary"}
	up := &fakeUpserter{}
	w := New(emb, summarizer, up, metrics.NewRegistry())

	chunk := schema.MessageChunk{ChunkID: "c1", Text: longText, MessageCount: 12}
	if err := w.HandleChunk(context.Background(), chunk); err != nil {
		t.Fatalf("HandleChunk returned error: %v", err)
	}
	if emb.calls[0] != "a short summary" {
		t.Errorf("expected summary embedded for long chunk, got %q", emb.calls[0])
	}
	meta := up.upserted[0].Metadata
	if meta["has_summary"] != "true" || meta["summary"] != "a short summary" {
		t.Errorf("expected summary stamped onto chunk metadata, got %+v", meta)
	}
}

func TestWorker_HandleChunk_SummaryFailureFallsBackToFullText(t *testing.T) {
	longText := strings.Repeat("word ", SummaryThreshold)
	emb := &fakeEmbedder{}
	summarizer := &fakeSummarizer{err: errors.New("cohere down")}
	up := &fakeUpserter{}
	w := New(emb, summarizer, up, metrics.NewRegistry())

	chunk := schema.MessageChunk{ChunkID: "c1", Text: longText, MessageCount: 12}
	if err := w.HandleChunk(context.Background(), chunk); err != nil {
		t.Fatalf("expected HandleChunk to succeed despite summary failure, got: %v", err)
	}
	if emb.calls[0] != longText {
		t.Errorf("expected fallback to full text embedding on summary failure")
	}
}

func TestWorker_HandleMessage_EmbedErrorPropagates(t *testing.T) {
	emb := &fakeEmbedder{err: errors.New("cohere unreachable")}
	up := &fakeUpserter{}
	w := New(emb, &fakeSummarizer{}, up, metrics.NewRegistry())

	err := w.HandleMessage(context.Background(), schema.MessageEvent{MessageID: "m1", Text: "hi"})
	if err == nil {
		t.Fatalf("expected error to propagate")
	}
	if len(up.upserted) != 0 {
		t.Errorf("expected no upsert on embed failure")
	}
}
