// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package schema

import "time"

// MessageEvent is a single chat message as produced by the chat-source
// adapter. GuildID is empty for direct messages.
type MessageEvent struct {
	MessageID string    `json:"message_id"`
	GuildID   string    `json:"guild_id,omitempty"`
	ChannelID string    `json:"channel_id"`
	AuthorID  string    `json:"author_id"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// BufferKey returns the key ChunkManager groups this message's buffer under:
// "guild:channel" for guild messages, "dm:channel" for direct messages.
func (m MessageEvent) BufferKey() string {
	if m.GuildID == "" {
		return "dm:" + m.ChannelID
	}
	return m.GuildID + ":" + m.ChannelID
}

// MessageChunk is a flushed run of MIN_CHUNK_SIZE..MAX_CHUNK_SIZE consecutive
// messages from the same buffer (fewer when drained by FlushAll on
// shutdown), optionally summarized before embedding.
type MessageChunk struct {
	ChunkID        string    `json:"chunk_id"`
	GuildID        string    `json:"guild_id,omitempty"`
	ChannelID      string    `json:"channel_id"`
	FirstMsgID     string    `json:"first_msg_id"`
	LastMsgID      string    `json:"last_msg_id"`
	Authors        []string  `json:"authors"`
	Text           string    `json:"text"`
	MessageCount   int       `json:"message_count"`
	FirstTimestamp time.Time `json:"first_timestamp"`
	LastTimestamp  time.Time `json:"last_timestamp"`
	Summary        string    `json:"summary,omitempty"`
	HasSummary     bool      `json:"has_summary"`
}

// EventType discriminates the payload carried by a LogEnvelope.
type EventType string

const (
	EventTypeDiscordMessage  EventType = "discord_message"
	EventTypeMessageChunk    EventType = "message_chunk"
	EventTypeEmbeddingReq    EventType = "embedding_request"
	EventTypePineconeUpsert  EventType = "pinecone_upsert"
	EventTypeQueryRequest    EventType = "query_request"
)

// LogEnvelope wraps every payload published to the durable log. Exactly one
// of the Discord/Chunk/Embedding/Upsert/Query fields is populated, matching
// EventType.
type LogEnvelope struct {
	EventType EventType `json:"event_type"`
	MessageID string    `json:"message_id"`
	GuildID   string    `json:"guild_id,omitempty"`
	ChannelID string    `json:"channel_id"`
	Timestamp time.Time `json:"timestamp"`

	DiscordMessage  *MessageEvent    `json:"discord_message,omitempty"`
	MessageChunk    *MessageChunk    `json:"message_chunk,omitempty"`
	EmbeddingReq    *EmbeddingRequest `json:"embedding_request,omitempty"`
	PineconeUpsert  *PineconeUpsert  `json:"pinecone_upsert,omitempty"`
	QueryRequest    *QueryRequestPayload `json:"query_request,omitempty"`
}

// PartitionKey returns the log partition key for this envelope: guild_id if
// present, otherwise channel_id (direct messages). It is derived from the
// envelope's routing headers on every call.
func (e LogEnvelope) PartitionKey() string {
	if e.GuildID != "" {
		return e.GuildID
	}
	return e.ChannelID
}

// EmbeddingRequest asks the embed worker to vectorize arbitrary text tied to
// a source message or chunk.
type EmbeddingRequest struct {
	SourceID string `json:"source_id"`
	Text     string `json:"text"`
}

// PineconeUpsert carries a vector ready to be written to the vector store.
type PineconeUpsert struct {
	ID       string            `json:"id"`
	Values   []float32         `json:"values"`
	Metadata map[string]string `json:"metadata"`
}

// QueryRequestPayload is the supplement feature: answering a question
// asynchronously over the log instead of synchronously over HTTP.
type QueryRequestPayload struct {
	Query    string `json:"query"`
	AuthorID string `json:"author_id"`
}

// QueryResult is a single per-message hit from the vector store, carrying
// the store's raw similarity score.
type QueryResult struct {
	MessageID string  `json:"message_id"`
	AuthorID  string  `json:"author_id"`
	Text      string  `json:"text"`
	Score     float32 `json:"score"`
}

// ChunkQueryResult is a single chunk hit from the vector store.
type ChunkQueryResult struct {
	ChunkID        string   `json:"chunk_id"`
	Authors        []string `json:"authors"`
	Text           string   `json:"text"`
	MessageCount   int      `json:"message_count"`
	FirstTimestamp string   `json:"first_timestamp"`
	LastTimestamp  string   `json:"last_timestamp"`
	Summary        string   `json:"summary,omitempty"`
	Score          float32  `json:"score"`
}

// KeywordResult is a single hit from the keyword index, pre-normalization.
type KeywordResult struct {
	MessageID string  `json:"message_id"`
	AuthorID  string  `json:"author_id"`
	ChannelID string  `json:"channel_id"`
	GuildID   string  `json:"guild_id,omitempty"`
	Timestamp string  `json:"timestamp"`
	Text      string  `json:"text"`
	Score     float32 `json:"score"`
}
