// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package keywordindex

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/quirybot/pipeline/internal/logger"
	"github.com/quirybot/pipeline/internal/schema"
)

// Index talks to an Elasticsearch-shaped REST keyword index, hand-rolled
// over net/http rather than the official client: the exact raw query body
// this package needs (bool/must/multi_match with fuzziness) has no example
// in the retrieved corpus using the official client's query builder, while
// the teacher's own HTTP clients (internal/ai/openai.go) show this raw-JSON
// idiom directly.
type Index struct {
	baseURL string
	index   string
	http    *http.Client
}

// New creates a keyword index client bound to a single index.
func New(baseURL, index string) *Index {
	return &Index{baseURL: baseURL, index: index, http: &http.Client{Timeout: 15 * time.Second}}
}

// EnsureIndex creates the index with its mapping and settings if it does not
// already exist. Safe to call on every startup.
func (idx *Index) EnsureIndex(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, idx.baseURL+"/"+idx.index, nil)
	if err != nil {
		return fmt.Errorf("keywordindex: build head request: %w", err)
	}
	resp, err := idx.http.Do(req)
	if err != nil {
		return fmt.Errorf("keywordindex: head request failed: %w", err)
	}
	resp.Body.Close()
	if resp.StatusCode == http.StatusOK {
		logger.Debugf("keywordindex: index %q already exists", idx.index)
		return nil
	}

	mapping := map[string]any{
		"settings": map[string]any{
			"number_of_shards":   1,
			"number_of_replicas": 0,
			"analysis": map[string]any{
				"analyzer": map[string]any{
					"default": map[string]any{
						"type":      "standard",
						"stopwords": "_english_",
					},
				},
			},
		},
		"mappings": map[string]any{
			"properties": map[string]any{
				"message_id": map[string]any{"type": "keyword"},
				"guild_id":   map[string]any{"type": "keyword"},
				"channel_id": map[string]any{"type": "keyword"},
				"author_id":  map[string]any{"type": "keyword"},
				"text": map[string]any{
					"type": "text",
					"fields": map[string]any{
						"raw": map[string]any{"type": "keyword"},
					},
				},
				"timestamp":  map[string]any{"type": "date"},
				"created_at": map[string]any{"type": "date"},
			},
		},
	}
	body, err := json.Marshal(mapping)
	if err != nil {
		return fmt.Errorf("keywordindex: marshal mapping: %w", err)
	}

	putReq, err := http.NewRequestWithContext(ctx, http.MethodPut, idx.baseURL+"/"+idx.index, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("keywordindex: build create-index request: %w", err)
	}
	putReq.Header.Set("Content-Type", "application/json")
	putResp, err := idx.http.Do(putReq)
	if err != nil {
		return fmt.Errorf("keywordindex: create-index request failed: %w", err)
	}
	defer putResp.Body.Close()
	if putResp.StatusCode != http.StatusOK && putResp.StatusCode != http.StatusCreated {
		raw, _ := io.ReadAll(putResp.Body)
		return fmt.Errorf("keywordindex: create index returned %d: %s", putResp.StatusCode, raw)
	}
	logger.Printf("keywordindex: created index %q", idx.index)
	return nil
}

type indexedMessage struct {
	MessageID string    `json:"message_id"`
	GuildID   string    `json:"guild_id,omitempty"`
	ChannelID string    `json:"channel_id"`
	AuthorID  string    `json:"author_id"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
	CreatedAt time.Time `json:"created_at"`
}

// IndexMessage writes a single message document, keyed by its message ID.
func (idx *Index) IndexMessage(ctx context.Context, msg schema.MessageEvent) error {
	doc := indexedMessage{
		MessageID: msg.MessageID,
		GuildID:   msg.GuildID,
		ChannelID: msg.ChannelID,
		AuthorID:  msg.AuthorID,
		Text:      msg.Text,
		Timestamp: msg.Timestamp,
		CreatedAt: time.Now(),
	}
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("keywordindex: marshal document: %w", err)
	}

	url := fmt.Sprintf("%s/%s/_doc/%s", idx.baseURL, idx.index, msg.MessageID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("keywordindex: build index request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := idx.http.Do(req)
	if err != nil {
		return fmt.Errorf("keywordindex: index request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		raw, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("keywordindex: index returned %d: %s", resp.StatusCode, raw)
	}
	return nil
}

type searchHit struct {
	Score  float32        `json:"_score"`
	Source indexedMessage `json:"_source"`
}

type searchResponse struct {
	Hits struct {
		Hits []searchHit `json:"hits"`
	} `json:"hits"`
}

// Search runs a fuzzy multi_match query over text/text.raw, optionally
// filtered by guild/channel/author, sorted by score then recency.
func (idx *Index) Search(ctx context.Context, query string, guildID, channelID, authorID string, size int) ([]schema.KeywordResult, error) {
	must := []map[string]any{
		{
			"multi_match": map[string]any{
				"query":     query,
				"fields":    []string{"text^2", "text.raw"},
				"type":      "best_fields",
				"fuzziness": "AUTO",
			},
		},
	}
	if guildID != "" {
		must = append(must, map[string]any{"term": map[string]any{"guild_id": guildID}})
	}
	if channelID != "" {
		must = append(must, map[string]any{"term": map[string]any{"channel_id": channelID}})
	}
	if authorID != "" {
		must = append(must, map[string]any{"term": map[string]any{"author_id": authorID}})
	}

	body, err := json.Marshal(map[string]any{
		"size":  size,
		"query": map[string]any{"bool": map[string]any{"must": must}},
		"sort": []map[string]any{
			{"_score": "desc"},
			{"timestamp": "desc"},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("keywordindex: marshal search request: %w", err)
	}

	url := fmt.Sprintf("%s/%s/_search", idx.baseURL, idx.index)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("keywordindex: build search request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := idx.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("keywordindex: search request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("keywordindex: search returned %d: %s", resp.StatusCode, raw)
	}

	var parsed searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("keywordindex: decode search response: %w", err)
	}

	results := make([]schema.KeywordResult, 0, len(parsed.Hits.Hits))
	for _, hit := range parsed.Hits.Hits {
		results = append(results, schema.KeywordResult{
			MessageID: hit.Source.MessageID,
			AuthorID:  hit.Source.AuthorID,
			ChannelID: hit.Source.ChannelID,
			GuildID:   hit.Source.GuildID,
			Timestamp: hit.Source.Timestamp.Format("2006-01-02T15:04:05Z07:00"),
			Text:      hit.Source.Text,
			Score:     hit.Score,
		})
	}
	logger.Debugf("keywordindex: search %q returned %d hit(s)", query, len(results))
	return results, nil
}

// HealthCheck hits the cluster health endpoint.
func (idx *Index) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, idx.baseURL+"/_cluster/health", nil)
	if err != nil {
		return fmt.Errorf("keywordindex: build health request: %w", err)
	}
	resp, err := idx.http.Do(req)
	if err != nil {
		return fmt.Errorf("keywordindex: health request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("keywordindex: health check returned %d", resp.StatusCode)
	}
	return nil
}
