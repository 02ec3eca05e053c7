// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package supervisor

import (
	"context"
	"fmt"
	"time"

	"github.com/quirybot/pipeline/internal/logger"
	"github.com/quirybot/pipeline/internal/schema"
)

// LogPublisher durably persists an envelope. Absent (nil) when Kafka is
// unconfigured, which routes Ingest through the degraded inline path.
type LogPublisher interface {
	Publish(ctx context.Context, env schema.LogEnvelope) error
}

// ChunkProcessor buffers messages and periodically flushes completed chunks.
type ChunkProcessor interface {
	Process(msg schema.MessageEvent) []schema.MessageChunk
	FlushAll() []schema.MessageChunk
}

// MessageChunkHandler embeds both messages and chunks, matching
// embedworker.Worker's two entry points.
type MessageChunkHandler interface {
	HandleMessage(ctx context.Context, msg schema.MessageEvent) error
	HandleChunk(ctx context.Context, chunk schema.MessageChunk) error
}

// MessageHandler indexes a single message, matching indexer.Indexer.
type MessageHandler interface {
	HandleMessage(ctx context.Context, msg schema.MessageEvent) error
}

// ConfigureIngest wires the degraded-mode inline path. producer may be nil
// (durable log disabled); keyword may be nil (keyword index disabled).
// chunker and embed are required: every ingest path embeds and chunks
// messages regardless of which optional collaborators are present.
func (s *Supervisor) ConfigureIngest(producer LogPublisher, chunker ChunkProcessor, embed MessageChunkHandler, keyword MessageHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.producer = producer
	s.chunker = chunker
	s.embed = embed
	s.keyword = keyword
}

// Ingest accepts a single chat message. When the durable log is configured
// it publishes the envelope and returns, leaving chunking/embedding/indexing
// to the ingest worker's own consumer loop. When the log is absent it runs
// the same work inline, synchronously, matching spec.md §4.7's degraded
// mode: the pipeline keeps answering, just without the durability and
// horizontal fan-out the log would otherwise provide.
func (s *Supervisor) Ingest(ctx context.Context, msg schema.MessageEvent) error {
	s.mu.RLock()
	producer := s.producer
	chunker := s.chunker
	embed := s.embed
	keyword := s.keyword
	s.mu.RUnlock()

	if producer != nil {
		env := schema.LogEnvelope{
			EventType:      schema.EventTypeDiscordMessage,
			MessageID:      msg.MessageID,
			GuildID:        msg.GuildID,
			ChannelID:      msg.ChannelID,
			Timestamp:      msg.Timestamp,
			DiscordMessage: &msg,
		}
		return producer.Publish(ctx, env)
	}

	logger.Debugf("supervisor: durable log disabled, ingesting message %s inline", msg.MessageID)

	if keyword != nil {
		if err := keyword.HandleMessage(ctx, msg); err != nil {
			logger.Warnf("supervisor: inline keyword indexing failed for %s: %v", msg.MessageID, err)
		}
	}

	if err := embed.HandleMessage(ctx, msg); err != nil {
		return fmt.Errorf("supervisor: inline message embedding failed: %w", err)
	}

	for _, chunk := range chunker.Process(msg) {
		if err := embed.HandleChunk(ctx, chunk); err != nil {
			logger.Warnf("supervisor: inline chunk embedding failed for %s: %v", chunk.ChunkID, err)
		}
	}
	return nil
}

// Shutdown drains every buffered chunk through the embed worker before the
// process exits, so a buffer that never reached MaxChunkSize or the time
// gap isn't silently dropped on restart.
func (s *Supervisor) Shutdown(ctx context.Context) error {
	s.mu.RLock()
	chunker := s.chunker
	embed := s.embed
	s.mu.RUnlock()

	if chunker == nil || embed == nil {
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	for _, chunk := range chunker.FlushAll() {
		if err := embed.HandleChunk(shutdownCtx, chunk); err != nil {
			logger.Warnf("supervisor: shutdown flush failed for chunk %s: %v", chunk.ChunkID, err)
		}
	}
	return nil
}
