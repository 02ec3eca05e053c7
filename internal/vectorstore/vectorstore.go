// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package vectorstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/quirybot/pipeline/internal/logger"
)

// Vector is a single embedding ready to be written to the store.
type Vector struct {
	ID       string            `json:"id"`
	Values   []float32         `json:"values"`
	Metadata map[string]string `json:"metadata"`
}

// Match is a single hit returned by Query.
type Match struct {
	ID       string            `json:"id"`
	Score    float32           `json:"score"`
	Metadata map[string]string `json:"metadata"`
}

// Store talks to a Pinecone-shaped REST vector database.
type Store struct {
	apiKey    string
	host      string
	namespace string
	http      *http.Client
}

// New creates a vector store client bound to a single index host.
func New(apiKey, host, namespace string) *Store {
	return &Store{
		apiKey:    apiKey,
		host:      host,
		namespace: namespace,
		http:      &http.Client{Timeout: 30 * time.Second},
	}
}

type upsertRequest struct {
	Namespace string   `json:"namespace"`
	Vectors   []Vector `json:"vectors"`
}

// Upsert writes one or more vectors to the store.
func (s *Store) Upsert(ctx context.Context, vectors []Vector) error {
	body, err := json.Marshal(upsertRequest{Namespace: s.namespace, Vectors: vectors})
	if err != nil {
		return fmt.Errorf("vectorstore: marshal upsert request: %w", err)
	}

	resp, err := s.do(ctx, "/vectors/upsert", body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("vectorstore: upsert returned %d: %s", resp.StatusCode, raw)
	}
	logger.Debugf("vectorstore: upserted %d vector(s)", len(vectors))
	return nil
}

type queryRequest struct {
	Namespace      string         `json:"namespace"`
	Vector         []float32      `json:"vector"`
	TopK           int            `json:"topK"`
	IncludeMetadata bool          `json:"includeMetadata"`
	IncludeValues  bool           `json:"includeValues"`
	Filter         map[string]any `json:"filter,omitempty"`
}

type queryResponse struct {
	Matches []Match `json:"matches"`
}

// Query searches for the topK nearest vectors to vector, scoped to guildID
// (empty guildID means "direct messages", matching the existence filter the
// original implementation applies: $eq when present, $exists:false when
// absent), and optionally scoped to itemType ("message" or "chunk", the tag
// the embed worker stamps into metadata so the two embedding kinds sharing
// one index can be queried separately; empty itemType matches both).
func (s *Store) Query(ctx context.Context, vector []float32, topK int, guildID, itemType string) ([]Match, error) {
	var guildFilter map[string]any
	if guildID != "" {
		guildFilter = map[string]any{"guild_id": map[string]any{"$eq": guildID}}
	} else {
		guildFilter = map[string]any{"guild_id": map[string]any{"$exists": false}}
	}

	filter := guildFilter
	if itemType != "" {
		filter = map[string]any{
			"$and": []map[string]any{
				guildFilter,
				{"type": map[string]any{"$eq": itemType}},
			},
		}
	}

	body, err := json.Marshal(queryRequest{
		Namespace:       s.namespace,
		Vector:          vector,
		TopK:            topK,
		IncludeMetadata: true,
		IncludeValues:   false,
		Filter:          filter,
	})
	if err != nil {
		return nil, fmt.Errorf("vectorstore: marshal query request: %w", err)
	}

	resp, err := s.do(ctx, "/query", body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("vectorstore: query returned %d: %s", resp.StatusCode, raw)
	}

	var parsed queryResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("vectorstore: decode query response: %w", err)
	}
	logger.Debugf("vectorstore: query returned %d match(es)", len(parsed.Matches))
	return parsed.Matches, nil
}

func (s *Store) do(ctx context.Context, path string, body []byte) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.host+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("vectorstore: build request: %w", err)
	}
	req.Header.Set("Api-Key", s.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("vectorstore: request failed: %w", err)
	}
	return resp, nil
}
