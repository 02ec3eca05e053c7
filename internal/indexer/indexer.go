// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package indexer

import (
	"context"
	"fmt"

	"github.com/quirybot/pipeline/internal/metrics"
	"github.com/quirybot/pipeline/internal/schema"
)

// KeywordWriter writes a single message document to the keyword index.
type KeywordWriter interface {
	IndexMessage(ctx context.Context, msg schema.MessageEvent) error
}

// Indexer writes every ingested message into the keyword index so it's
// available to hybrid retrieval's keyword leg. It has no analogue for
// chunks: the keyword index only ever holds raw messages, per spec.md §4.6.
type Indexer struct {
	writer  KeywordWriter
	metrics *metrics.Registry
}

// New creates an indexer.
func New(writer KeywordWriter, m *metrics.Registry) *Indexer {
	return &Indexer{writer: writer, metrics: m}
}

// HandleMessage writes msg into the keyword index.
func (i *Indexer) HandleMessage(ctx context.Context, msg schema.MessageEvent) error {
	if err := i.writer.IndexMessage(ctx, msg); err != nil {
		i.metrics.KeywordIndexed.WithLabelValues("error").Inc()
		return fmt.Errorf("indexer: index message %s: %w", msg.MessageID, err)
	}
	i.metrics.KeywordIndexed.WithLabelValues("ok").Inc()
	return nil
}
