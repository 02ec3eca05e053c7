// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package chunker

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/quirybot/pipeline/internal/logger"
	"github.com/quirybot/pipeline/internal/schema"
)

const (
	// MaxChunkSize is the message count at which a buffer is flushed
	// unconditionally, even mid-conversation.
	MaxChunkSize = 12
	// MinChunkSize is the minimum message count a buffer must reach before
	// a flush produces a chunk; shorter buffers are dropped on flush.
	MinChunkSize = 3
	// TimeGap is the idle period after which a buffer is flushed even if it
	// hasn't reached MaxChunkSize.
	TimeGap = 15 * time.Minute
)

// buffer accumulates messages for a single (guild, channel) or (dm, channel)
// conversation until it is flushed into a chunk.
type buffer struct {
	messages        []schema.MessageEvent
	lastMessageTime time.Time
}

func (b *buffer) shouldFlush(now time.Time) bool {
	if len(b.messages) == 0 {
		return false
	}
	if len(b.messages) >= MaxChunkSize {
		return true
	}
	return now.Sub(b.lastMessageTime) > TimeGap
}

// Manager tracks one buffer per conversation key and flushes them into
// chunks according to the size/time-gap state machine.
type Manager struct {
	mu      sync.Mutex
	buffers map[string]*buffer
}

// NewManager creates an empty chunk manager.
func NewManager() *Manager {
	return &Manager{buffers: make(map[string]*buffer)}
}

// Process appends msg to its conversation's buffer, flushing it first if it
// was already due for a flush, and again afterward if the append itself
// pushed it to MaxChunkSize. This double-check ordering matches the
// original implementation: a buffer that would overflow on append is
// flushed before the new message joins a fresh buffer, and a buffer that
// exactly reaches MaxChunkSize on append is flushed immediately rather than
// waiting for the next message.
func (m *Manager) Process(msg schema.MessageEvent) []schema.MessageChunk {
	key := msg.BufferKey()
	now := msg.Timestamp

	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.buffers[key]
	if !ok {
		b = &buffer{}
		m.buffers[key] = b
	}

	var chunks []schema.MessageChunk

	if b.shouldFlush(now) {
		if chunk, ok := flush(b, key, msg.GuildID, msg.ChannelID); ok {
			chunks = append(chunks, chunk)
		}
	}

	b.messages = append(b.messages, msg)
	b.lastMessageTime = now

	if len(b.messages) >= MaxChunkSize {
		if chunk, ok := flush(b, key, msg.GuildID, msg.ChannelID); ok {
			chunks = append(chunks, chunk)
		}
	}

	return chunks
}

// FlushAll drains every buffer regardless of MinChunkSize, for use on
// graceful shutdown so in-flight conversations aren't silently dropped.
func (m *Manager) FlushAll() []schema.MessageChunk {
	m.mu.Lock()
	defer m.mu.Unlock()

	var chunks []schema.MessageChunk
	for key, b := range m.buffers {
		if len(b.messages) == 0 {
			continue
		}
		chunk := buildChunk(b, bufferGuildID(key), bufferChannelID(key))
		chunks = append(chunks, chunk)
		b.messages = nil
	}
	logger.Printf("chunker: FlushAll drained %d chunk(s) from %d buffer(s)", len(chunks), len(m.buffers))
	return chunks
}

// flush clears the buffer and returns a chunk if it met MinChunkSize; a
// short buffer is dropped rather than chunked.
func flush(b *buffer, key, guildID, channelID string) (schema.MessageChunk, bool) {
	if len(b.messages) < MinChunkSize {
		logger.Debugf("chunker: buffer %q below MinChunkSize (%d < %d), dropping on flush", key, len(b.messages), MinChunkSize)
		b.messages = nil
		return schema.MessageChunk{}, false
	}
	chunk := buildChunk(b, guildID, channelID)
	b.messages = nil
	return chunk, true
}

func buildChunk(b *buffer, guildID, channelID string) schema.MessageChunk {
	authorSet := make(map[string]struct{})
	lines := make([]string, 0, len(b.messages))
	for _, msg := range b.messages {
		authorSet[msg.AuthorID] = struct{}{}
		lines = append(lines, msg.AuthorID+": "+msg.Text)
	}

	authors := make([]string, 0, len(authorSet))
	for a := range authorSet {
		authors = append(authors, a)
	}
	sort.Strings(authors)

	chunk := schema.MessageChunk{
		ChunkID:        uuid.NewString(),
		GuildID:        guildID,
		ChannelID:      channelID,
		FirstMsgID:     b.messages[0].MessageID,
		LastMsgID:      b.messages[len(b.messages)-1].MessageID,
		Authors:        authors,
		Text:           strings.Join(lines, "\n"),
		MessageCount:   len(b.messages),
		FirstTimestamp: b.messages[0].Timestamp,
		LastTimestamp:  b.messages[len(b.messages)-1].Timestamp,
	}
	logger.Printf("chunker: flushed chunk_id=%s channel=%s messages=%d", chunk.ChunkID, channelID, chunk.MessageCount)
	return chunk
}

func bufferGuildID(key string) string {
	if strings.HasPrefix(key, "dm:") {
		return ""
	}
	parts := strings.SplitN(key, ":", 2)
	return parts[0]
}

func bufferChannelID(key string) string {
	parts := strings.SplitN(key, ":", 2)
	if len(parts) == 2 {
		return parts[1]
	}
	return parts[0]
}
