// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"net/http"
)

// Registry groups every counter/histogram exposed by a worker's /metrics
// endpoint.
type Registry struct {
	reg               *prometheus.Registry
	MessagesIngested  *prometheus.CounterVec
	ChunksCreated     prometheus.Counter
	EmbeddingRequests *prometheus.CounterVec
	VectorUpserts     *prometheus.CounterVec
	KeywordIndexed    *prometheus.CounterVec
	RetrievalLatency  *prometheus.HistogramVec
	RetrievalMode     *prometheus.CounterVec
	CollaboratorErrors *prometheus.CounterVec
}

// NewRegistry constructs and registers every metric against a fresh,
// independent prometheus registry (not the global default), so multiple
// workers — or multiple tests — can each hold their own without colliding
// on duplicate registration.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()
	r := &Registry{reg: reg,
		MessagesIngested: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "quiry_messages_ingested_total",
			Help: "Messages ingested, labeled by source (log or inline).",
		}, []string{"source"}),
		ChunksCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "quiry_chunks_created_total",
			Help: "Conversation chunks flushed by the chunker.",
		}),
		EmbeddingRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "quiry_embedding_requests_total",
			Help: "Embedding requests, labeled by outcome.",
		}, []string{"outcome"}),
		VectorUpserts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "quiry_vector_upserts_total",
			Help: "Vector store upserts, labeled by outcome.",
		}, []string{"outcome"}),
		KeywordIndexed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "quiry_keyword_indexed_total",
			Help: "Keyword index document writes, labeled by outcome.",
		}, []string{"outcome"}),
		RetrievalLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "quiry_retrieval_latency_seconds",
			Help:    "End-to-end /ask latency, labeled by the retrieval mode that served the answer.",
			Buckets: prometheus.DefBuckets,
		}, []string{"mode"}),
		RetrievalMode: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "quiry_retrieval_mode_total",
			Help: "Answers served, labeled by which fallback tier handled them.",
		}, []string{"mode"}),
		CollaboratorErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "quiry_collaborator_errors_total",
			Help: "Errors talking to an external collaborator, labeled by collaborator name.",
		}, []string{"collaborator"}),
	}

	reg.MustRegister(
		r.MessagesIngested, r.ChunksCreated, r.EmbeddingRequests, r.VectorUpserts,
		r.KeywordIndexed, r.RetrievalLatency, r.RetrievalMode, r.CollaboratorErrors,
	)
	return r
}

// Handler returns a promhttp handler bound to this registry's own metrics.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}
