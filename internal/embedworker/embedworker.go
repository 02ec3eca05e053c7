// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package embedworker

import (
	"context"
	"fmt"

	"github.com/quirybot/pipeline/internal/logger"
	"github.com/quirybot/pipeline/internal/metrics"
	"github.com/quirybot/pipeline/internal/schema"
	"github.com/quirybot/pipeline/internal/vectorstore"
)

// SummaryThreshold is the character count above which a chunk is summarized
// before embedding instead of embedding its full text.
const SummaryThreshold = 2000

// Embedder generates a vector for a piece of text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Summarizer condenses long text before embedding.
type Summarizer interface {
	Summarize(ctx context.Context, text string) (string, error)
}

// VectorUpserter writes vectors to the vector store.
type VectorUpserter interface {
	Upsert(ctx context.Context, vectors []vectorstore.Vector) error
}

// Worker embeds both individual messages and flushed chunks, and upserts
// the resulting vectors. Both code paths run unconditionally by default,
// matching the original implementation's "both" behavior rather than a
// mutually-exclusive choice.
type Worker struct {
	embedder   Embedder
	summarizer Summarizer
	vectors    VectorUpserter
	metrics    *metrics.Registry
}

// New creates an embed worker.
func New(embedder Embedder, summarizer Summarizer, vectors VectorUpserter, m *metrics.Registry) *Worker {
	return &Worker{embedder: embedder, summarizer: summarizer, vectors: vectors, metrics: m}
}

// HandleMessage embeds a single message and upserts it under its message ID.
func (w *Worker) HandleMessage(ctx context.Context, msg schema.MessageEvent) error {
	vec, err := w.embedder.Embed(ctx, msg.Text)
	if err != nil {
		w.metrics.EmbeddingRequests.WithLabelValues("error").Inc()
		return fmt.Errorf("embedworker: embed message %s: %w", msg.MessageID, err)
	}
	w.metrics.EmbeddingRequests.WithLabelValues("ok").Inc()

	metadata := map[string]string{
		"type":       "message",
		"channel_id": msg.ChannelID,
		"author_id":  msg.AuthorID,
		"timestamp":  msg.Timestamp.Format("2006-01-02T15:04:05Z07:00"),
		"text":       msg.Text,
	}
	if msg.GuildID != "" {
		metadata["guild_id"] = msg.GuildID
	}

	if err := w.vectors.Upsert(ctx, []vectorstore.Vector{{ID: msg.MessageID, Values: vec, Metadata: metadata}}); err != nil {
		w.metrics.VectorUpserts.WithLabelValues("error").Inc()
		return fmt.Errorf("embedworker: upsert message %s: %w", msg.MessageID, err)
	}
	w.metrics.VectorUpserts.WithLabelValues("ok").Inc()
	return nil
}

// HandleChunk summarizes the chunk if it's long enough, embeds the summary
// (or the full text), and upserts the result under the chunk ID. Summary
// and embedding failures are independent: a failed summary falls back to
// embedding the full text rather than aborting the chunk.
func (w *Worker) HandleChunk(ctx context.Context, chunk schema.MessageChunk) error {
	textToEmbed := chunk.Text

	if len(chunk.Text) > SummaryThreshold {
		summary, err := w.summarizer.Summarize(ctx, chunk.Text)
		if err != nil {
			logger.Warnf("embedworker: failed to summarize chunk %s, embedding full text instead: %v", chunk.ChunkID, err)
		} else {
			chunk.Summary = summary
			chunk.HasSummary = true
			textToEmbed = summary
			logger.Printf("embedworker: generated summary for chunk %s", chunk.ChunkID)
		}
	}

	vec, err := w.embedder.Embed(ctx, textToEmbed)
	if err != nil {
		w.metrics.EmbeddingRequests.WithLabelValues("error").Inc()
		return fmt.Errorf("embedworker: embed chunk %s: %w", chunk.ChunkID, err)
	}
	w.metrics.EmbeddingRequests.WithLabelValues("ok").Inc()

	metadata := map[string]string{
		"type":            "chunk",
		"chunk_id":        chunk.ChunkID,
		"guild_id":        chunk.GuildID,
		"channel_id":      chunk.ChannelID,
		"first_msg_id":    chunk.FirstMsgID,
		"last_msg_id":     chunk.LastMsgID,
		"authors":         joinAuthors(chunk.Authors),
		"message_count":   fmt.Sprintf("%d", chunk.MessageCount),
		"first_timestamp": chunk.FirstTimestamp.Format("2006-01-02T15:04:05Z07:00"),
		"last_timestamp":  chunk.LastTimestamp.Format("2006-01-02T15:04:05Z07:00"),
		"text":            chunk.Text,
		"has_summary":     fmt.Sprintf("%t", chunk.HasSummary),
	}
	if chunk.GuildID != "" {
		metadata["guild_id"] = chunk.GuildID
	}
	if chunk.HasSummary {
		metadata["summary"] = chunk.Summary
	}

	if err := w.vectors.Upsert(ctx, []vectorstore.Vector{{ID: "chunk_" + chunk.ChunkID, Values: vec, Metadata: metadata}}); err != nil {
		w.metrics.VectorUpserts.WithLabelValues("error").Inc()
		return fmt.Errorf("embedworker: upsert chunk %s: %w", chunk.ChunkID, err)
	}
	w.metrics.VectorUpserts.WithLabelValues("ok").Inc()
	return nil
}

func joinAuthors(authors []string) string {
	out := ""
	for i, a := range authors {
		if i > 0 {
			out += ","
		}
		out += a
	}
	return out
}
