// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package embedclient

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

const cohereEmbedURL = "https://api.cohere.ai/v1/embed"
const cohereEmbedModel = "embed-english-v3.0"
const cohereDimension = 1024

// CohereClient talks to Cohere's embed endpoint over raw HTTP.
type CohereClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

// NewCohereClient creates a Cohere-backed embedding client.
func NewCohereClient(apiKey string) *CohereClient {
	return &CohereClient{
		apiKey:  apiKey,
		baseURL: cohereEmbedURL,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

// newCohereClientWithBaseURL is used by tests to point the client at an
// httptest server instead of the real Cohere endpoint.
func newCohereClientWithBaseURL(apiKey, baseURL string) *CohereClient {
	return &CohereClient{apiKey: apiKey, baseURL: baseURL, http: &http.Client{Timeout: 5 * time.Second}}
}

func (c *CohereClient) Dimension() int {
	return cohereDimension
}

type embedRequest struct {
	Model     string   `json:"model"`
	InputType string   `json:"input_type"`
	Texts     []string `json:"texts"`
}

type embedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

// Embed generates an embedding for a single piece of text.
func (c *CohereClient) Embed(ctx context.Context, text string) ([]float32, error) {
	body, err := json.Marshal(embedRequest{
		Model:     cohereEmbedModel,
		InputType: "search_document",
		Texts:     []string{text},
	})
	if err != nil {
		return nil, fmt.Errorf("embedclient: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("embedclient: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embedclient: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("embedclient: cohere returned %d: %s", resp.StatusCode, raw)
	}

	var parsed embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("embedclient: decode response: %w", err)
	}
	if len(parsed.Embeddings) == 0 {
		logger.Warnf("embedclient: cohere response had no embeddings for text of length %d", len(text))
		return nil, fmt.Errorf("embedclient: no embeddings in response")
	}

	emb := parsed.Embeddings[0]
	logger.Debugf("embedclient: got embedding len=%d", len(emb))
	return emb, nil
}
