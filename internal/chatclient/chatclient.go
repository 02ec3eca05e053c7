// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package chatclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/quirybot/pipeline/internal/logger"
	"github.com/quirybot/pipeline/internal/schema"
)

const cohereChatURL = "https://api.cohere.ai/v1/chat"
const cohereChatModel = "command-r-08-2024"

// Client generates chat completions for summarization and answer
// generation, both backed by the same underlying chat model.
type Client struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

// New creates a Cohere-backed chat client.
func New(apiKey string) *Client {
	return &Client{
		apiKey:  apiKey,
		baseURL: cohereChatURL,
		http:    &http.Client{Timeout: 60 * time.Second},
	}
}

// newWithBaseURL is used by tests to point the client at an httptest server.
func newWithBaseURL(apiKey, baseURL string) *Client {
	return &Client{apiKey: apiKey, baseURL: baseURL, http: &http.Client{Timeout: 5 * time.Second}}
}

type chatRequest struct {
	Model       string  `json:"model"`
	Message     string  `json:"message"`
	Preamble    string  `json:"preamble"`
	MaxTokens   int     `json:"max_tokens"`
	Temperature float64 `json:"temperature"`
}

type chatResponse struct {
	Text string `json:"text"`
}

func (c *Client) call(ctx context.Context, message, preamble string, maxTokens int, temperature float64) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model:       cohereChatModel,
		Message:     message,
		Preamble:    preamble,
		MaxTokens:   maxTokens,
		Temperature: temperature,
	})
	if err != nil {
		return "", fmt.Errorf("chatclient: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("chatclient: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("chatclient: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("chatclient: cohere returned %d: %s", resp.StatusCode, raw)
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("chatclient: decode response: %w", err)
	}
	if parsed.Text == "" {
		logger.Warnf("chatclient: cohere response had no text")
		return "", fmt.Errorf("chatclient: no text in response")
	}
	return strings.TrimSpace(parsed.Text), nil
}

// Summarize condenses chunk text into a 2-3 sentence summary. Used by the
// embed worker when a chunk's combined text exceeds the summarization
// threshold.
func (c *Client) Summarize(ctx context.Context, text string) (string, error) {
	preamble := fmt.Sprintf(
		"You are a helpful assistant that summarizes Discord conversations. "+
			"Here is the conversation to summarize:\n\n%s\n\n"+
			"Focus on the main topics discussed and key information shared.",
		text,
	)
	summary, err := c.call(ctx, "Please provide a concise summary of this Discord conversation in 2-3 sentences.", preamble, 150, 0.3)
	if err != nil {
		return "", err
	}
	logger.Debugf("chatclient: generated summary len=%d", len(summary))
	return summary, nil
}

// AnswerFromMessages answers a query using raw per-message context.
func (c *Client) AnswerFromMessages(ctx context.Context, query string, context_ []schema.QueryResult) (string, error) {
	lines := make([]string, 0, len(context_))
	for _, msg := range context_ {
		lines = append(lines, "- "+msg.Text)
	}
	preamble := fmt.Sprintf(
		"You are a helpful assistant that answers questions based on Discord message history. "+
			"Here are some relevant messages from the conversation:\n\n%s\n\n"+
			"Please provide a helpful answer based on the context above. If the context doesn't contain "+
			"enough information to answer the question, say so.",
		strings.Join(lines, "\n"),
	)
	return c.call(ctx, query, preamble, 300, 0.7)
}

// AnswerFromChunks answers a query using chunk-level context, which carries
// authorship and time-range metadata that per-message context lacks.
func (c *Client) AnswerFromChunks(ctx context.Context, query string, chunks []schema.ChunkQueryResult) (string, error) {
	sections := make([]string, 0, len(chunks))
	for _, chunk := range chunks {
		timeRange := fmt.Sprintf("at %s", chunk.FirstTimestamp)
		if chunk.FirstTimestamp != chunk.LastTimestamp {
			timeRange = fmt.Sprintf("from %s to %s", chunk.FirstTimestamp, chunk.LastTimestamp)
		}
		sections = append(sections, fmt.Sprintf(
			"Conversation %s (%d messages by %s): %s",
			timeRange, chunk.MessageCount, strings.Join(chunk.Authors, ", "), chunk.Text,
		))
	}
	preamble := fmt.Sprintf(
		"You are a helpful assistant that answers questions based on Discord conversation history. "+
			"Here are some relevant conversation chunks from the history:\n\n%s\n\n"+
			"Please provide a helpful answer based on the context above. If the context doesn't contain "+
			"enough information to answer the question, say so.",
		strings.Join(sections, "\n\n"),
	)
	return c.call(ctx, query, preamble, 300, 0.7)
}
