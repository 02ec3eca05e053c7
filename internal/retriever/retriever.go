// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package retriever

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/quirybot/pipeline/internal/logger"
	"github.com/quirybot/pipeline/internal/metrics"
	"github.com/quirybot/pipeline/internal/schema"
	"github.com/quirybot/pipeline/internal/vectorstore"
)

// NoRelevantMessages is returned verbatim when every fallback tier comes up
// empty, matching the original implementation's fixed response.
const NoRelevantMessages = "I couldn't find any relevant messages in the history to answer your question."

// DenseFusionWeight is alpha in the weighted fusion score:
// alpha*dense + (1-alpha)*keyword.
const DenseFusionWeight = 0.65

const chunksTopK = 3
const messagesTopK = 5

// Embedder generates a query vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// VectorQuerier searches the vector store.
type VectorQuerier interface {
	Query(ctx context.Context, vector []float32, topK int, guildID, itemType string) ([]vectorstore.Match, error)
}

// KeywordSearcher searches the keyword index. Nil when the keyword index is
// not configured, which routes retrieval through the dense-only tiers.
type KeywordSearcher interface {
	Search(ctx context.Context, query string, guildID, channelID, authorID string, size int) ([]schema.KeywordResult, error)
}

// AnswerGenerator turns retrieved context into a natural-language answer.
type AnswerGenerator interface {
	AnswerFromMessages(ctx context.Context, query string, context []schema.QueryResult) (string, error)
	AnswerFromChunks(ctx context.Context, query string, chunks []schema.ChunkQueryResult) (string, error)
}

// Mode names the retrieval tier that ultimately served an answer, for
// metrics and for callers that want to show the user how confident the
// answer is.
type Mode string

const (
	ModeHybrid        Mode = "hybrid"
	ModeDenseChunks   Mode = "dense_chunks"
	ModeDenseMessages Mode = "dense_messages"
	ModeNone          Mode = "none"
)

// Retriever answers questions over the ingested conversation history,
// preferring hybrid dense+keyword fusion and falling back through
// progressively cheaper tiers as collaborators degrade.
type Retriever struct {
	embedder Embedder
	vectors  VectorQuerier
	keyword  KeywordSearcher // nil disables the keyword leg
	chat     AnswerGenerator
	metrics  *metrics.Registry
}

// New creates a retriever. keyword may be nil to run in dense-only mode.
func New(embedder Embedder, vectors VectorQuerier, keyword KeywordSearcher, chat AnswerGenerator, m *metrics.Registry) *Retriever {
	return &Retriever{embedder: embedder, vectors: vectors, keyword: keyword, chat: chat, metrics: m}
}

// Ask answers query, scoped to guildID (empty for direct messages).
func (r *Retriever) Ask(ctx context.Context, query, guildID, channelID string) (answer string, mode Mode, err error) {
	start := time.Now()
	defer func() {
		r.metrics.RetrievalMode.WithLabelValues(string(mode)).Inc()
		r.metrics.RetrievalLatency.WithLabelValues(string(mode)).Observe(time.Since(start).Seconds())
	}()

	vector, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return "", ModeNone, fmt.Errorf("retriever: embed query: %w", err)
	}

	chunkMatches, chunkErr := r.vectors.Query(ctx, vector, chunksTopK, guildID, "chunk")
	if chunkErr != nil {
		logger.Warnf("retriever: chunk query failed, continuing without chunk context: %v", chunkErr)
	}

	if r.keyword != nil {
		if results, ok := r.tryHybrid(ctx, query, guildID, channelID, chunkMatches); ok {
			return results, ModeHybrid, nil
		}
	}

	if len(chunkMatches) > 0 {
		chunks := toChunkResults(chunkMatches)
		answer, err := r.chat.AnswerFromChunks(ctx, query, chunks)
		if err != nil {
			logger.Warnf("retriever: chunk-based answer generation failed: %v", err)
		} else {
			return answer, ModeDenseChunks, nil
		}
	}

	msgMatches, err := r.vectors.Query(ctx, vector, messagesTopK, guildID, "message")
	if err != nil {
		logger.Warnf("retriever: message query failed: %v", err)
		msgMatches = nil
	}
	if len(msgMatches) == 0 {
		return NoRelevantMessages, ModeNone, nil
	}

	answer, err = r.chat.AnswerFromMessages(ctx, query, toQueryResults(msgMatches))
	if err != nil {
		return "", ModeDenseMessages, fmt.Errorf("retriever: message-based answer generation failed: %w", err)
	}
	return answer, ModeDenseMessages, nil
}

// tryHybrid fuses the step-1 chunk dense scores with keyword scores per
// spec §4.6 step 3; returns ok=false if the fused result set is empty so
// the caller can fall further down the tier chain.
func (r *Retriever) tryHybrid(ctx context.Context, query string, guildID, channelID string, chunkMatches []vectorstore.Match) (string, bool) {
	keywordResults, err := r.keyword.Search(ctx, query, guildID, channelID, "", messagesTopK)
	if err != nil {
		logger.Warnf("retriever: hybrid keyword leg failed: %v", err)
		return "", false
	}

	fused := fuse(chunkMatches, keywordResults)
	if len(fused) == 0 {
		return "", false
	}

	answer, err := r.chat.AnswerFromChunks(ctx, query, fused)
	if err != nil {
		logger.Warnf("retriever: hybrid answer generation failed: %v", err)
		return "", false
	}
	return answer, true
}

// fuse normalizes a chunk's cosine score from [-1,1] to [0,1] and a keyword
// score by dividing by 10 (Elasticsearch's practical score ceiling for this
// corpus size) and weights them with DenseFusionWeight. Entries are keyed by
// text: among dense matches with the same text the higher score is kept, and
// a keyword hit whose text is already present adds its weighted score to that
// entry, so an item found by both legs appears once with the combined score.
// Other keyword hits are single-message matches and are folded in as
// one-message pseudo-chunks so both legs flow through the same chunk-shaped
// context into generation.
func fuse(dense []vectorstore.Match, keyword []schema.KeywordResult) []schema.ChunkQueryResult {
	byText := make(map[string]schema.ChunkQueryResult)

	for _, m := range dense {
		text := m.Metadata["text"]
		if text == "" {
			continue
		}
		normalized := (m.Score + 1) / 2
		score := float32(DenseFusionWeight) * normalized
		if existing, ok := byText[text]; !ok || score > existing.Score {
			byText[text] = schema.ChunkQueryResult{
				ChunkID:        stripChunkPrefix(m.ID),
				Authors:        splitAuthors(m.Metadata["authors"]),
				Text:           text,
				MessageCount:   atoiSafe(m.Metadata["message_count"]),
				FirstTimestamp: m.Metadata["first_timestamp"],
				LastTimestamp:  m.Metadata["last_timestamp"],
				Summary:        m.Metadata["summary"],
				Score:          score,
			}
		}
	}

	for _, k := range keyword {
		normalized := k.Score / 10
		score := float32(1-DenseFusionWeight) * normalized
		if existing, ok := byText[k.Text]; ok {
			existing.Score += score
			byText[k.Text] = existing
		} else {
			byText[k.Text] = schema.ChunkQueryResult{
				ChunkID:        k.MessageID,
				Authors:        []string{k.AuthorID},
				Text:           k.Text,
				MessageCount:   1,
				FirstTimestamp: k.Timestamp,
				LastTimestamp:  k.Timestamp,
				Score:          score,
			}
		}
	}

	results := make([]schema.ChunkQueryResult, 0, len(byText))
	for _, v := range byText {
		results = append(results, v)
	}
	sort.Slice(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	return results
}

func toQueryResults(matches []vectorstore.Match) []schema.QueryResult {
	out := make([]schema.QueryResult, 0, len(matches))
	for _, m := range matches {
		text := m.Metadata["text"]
		if text == "" {
			continue
		}
		out = append(out, schema.QueryResult{
			MessageID: m.ID,
			AuthorID:  m.Metadata["author_id"],
			Text:      text,
			Score:     m.Score,
		})
	}
	return out
}

func toChunkResults(matches []vectorstore.Match) []schema.ChunkQueryResult {
	out := make([]schema.ChunkQueryResult, 0, len(matches))
	for _, m := range matches {
		text := m.Metadata["text"]
		if text == "" {
			continue
		}
		authors := splitAuthors(m.Metadata["authors"])
		out = append(out, schema.ChunkQueryResult{
			ChunkID:        stripChunkPrefix(m.ID),
			Authors:        authors,
			Text:           text,
			MessageCount:   atoiSafe(m.Metadata["message_count"]),
			FirstTimestamp: m.Metadata["first_timestamp"],
			LastTimestamp:  m.Metadata["last_timestamp"],
			Summary:        m.Metadata["summary"],
			Score:          m.Score,
		})
	}
	return out
}

// stripChunkPrefix undoes the "chunk_" vector-ID prefix embedworker applies
// on upsert to keep the chunk and message keyspaces disjoint.
func stripChunkPrefix(id string) string {
	const prefix = "chunk_"
	if len(id) > len(prefix) && id[:len(prefix)] == prefix {
		return id[len(prefix):]
	}
	return id
}

func splitAuthors(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == ',' {
			out = append(out, s[start:i])
			start = i + 1
		}
	}
	out = append(out, s[start:])
	return out
}

func atoiSafe(s string) int {
	n := 0
	for _, c := range s {
		if c < '0' || c > '9' {
			return 0
		}
		n = n*10 + int(c-'0')
	}
	return n
}
