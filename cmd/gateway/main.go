// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/quirybot/pipeline/internal/chatclient"
	"github.com/quirybot/pipeline/internal/chunker"
	"github.com/quirybot/pipeline/internal/config"
	"github.com/quirybot/pipeline/internal/embedclient"
	"github.com/quirybot/pipeline/internal/embedworker"
	"github.com/quirybot/pipeline/internal/eventlog"
	"github.com/quirybot/pipeline/internal/indexer"
	"github.com/quirybot/pipeline/internal/keywordindex"
	"github.com/quirybot/pipeline/internal/logger"
	"github.com/quirybot/pipeline/internal/metrics"
	"github.com/quirybot/pipeline/internal/schema"
	"github.com/quirybot/pipeline/internal/server"
	"github.com/quirybot/pipeline/internal/supervisor"
	"github.com/quirybot/pipeline/internal/vectorstore"
)

// gateway is the thinnest possible stand-in for the real chat-source
// adapter named out of scope elsewhere in this pipeline: it accepts a
// MessageEvent over HTTP and hands it to the supervisor, which either
// publishes it to the durable log or, when the log is unconfigured, runs
// the chunking/embedding/indexing pipeline inline.
func main() {
	if _, err := logger.Init("gateway.log"); err != nil {
		log.Printf("failed to initialize logger: %v, using stdout only", err)
	}

	cfg, err := config.FromEnv("gateway")
	if err != nil {
		logger.Fatalf("config error: %v", err)
	}

	embedder := embedclient.NewCohereClient(cfg.Cohere.APIKey)
	chat := chatclient.New(cfg.Cohere.APIKey)
	vectors := vectorstore.New(cfg.Vector.APIKey, cfg.Vector.Host, cfg.Vector.Namespace)
	m := metrics.NewRegistry()

	chunkManager := chunker.NewManager()
	embedWorker := embedworker.New(embedder, chat, vectors, m)

	var keywordHandler *indexer.Indexer
	var keywordIdx *keywordindex.Index
	if cfg.Search.Enabled {
		keywordIdx = keywordindex.New(cfg.Search.URL, cfg.Search.Index)
		keywordHandler = indexer.New(keywordIdx, m)
	}

	var producer *eventlog.Producer
	sup := supervisor.New(15 * time.Second)
	if cfg.Kafka.Enabled {
		producer = eventlog.NewProducer(cfg.Kafka.Brokers)
		sup.Register("log", false, func(ctx context.Context) error { return nil })
	} else {
		sup.Register("log", true, nil)
		logger.Warnf("gateway: durable log disabled, running in degraded inline-processing mode")
	}

	sup.Register("vector_store", false, func(ctx context.Context) error {
		_, err := vectors.Query(ctx, make([]float32, embedder.Dimension()), 1, "", "")
		return err
	})
	sup.Register("chat_model", false, func(ctx context.Context) error {
		_, err := chat.Summarize(ctx, "healthcheck")
		return err
	})
	if keywordIdx != nil {
		sup.Register("keyword_index", false, keywordIdx.HealthCheck)
	} else {
		sup.Register("keyword_index", true, nil)
	}

	if producer != nil {
		sup.ConfigureIngest(producer, chunkManager, embedWorker, ingestKeywordHandler(keywordHandler))
	} else {
		sup.ConfigureIngest(nil, chunkManager, embedWorker, ingestKeywordHandler(keywordHandler))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go sup.Run(ctx)

	router := server.NewRouter(sup, m, nil)
	router.Post("/v1/messages", newMessagesHandler(sup, m, producer != nil))

	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: router,
	}

	go func() {
		logger.Printf("gateway listening on %d", cfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("http server error: %v", err)
		}
	}()

	waitForShutdown(cancel, httpServer, sup, producer)
}

// ingestKeywordHandler returns nil through the supervisor.MessageHandler
// interface (not a non-nil interface wrapping a nil pointer) when the
// keyword index is disabled.
func ingestKeywordHandler(h *indexer.Indexer) supervisor.MessageHandler {
	if h == nil {
		return nil
	}
	return h
}

func newMessagesHandler(sup *supervisor.Supervisor, m *metrics.Registry, published bool) http.HandlerFunc {
	source := "inline"
	if published {
		source = "log"
	}
	return func(w http.ResponseWriter, r *http.Request) {
		var msg schema.MessageEvent
		if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(map[string]string{"error": fmt.Sprintf("invalid JSON: %v", err)})
			return
		}
		if msg.MessageID == "" || msg.Text == "" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(map[string]string{"error": "message_id and text are required"})
			return
		}

		if err := sup.Ingest(r.Context(), msg); err != nil {
			logger.Errorf("gateway: ingest failed for %s: %v", msg.MessageID, err)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusInternalServerError)
			json.NewEncoder(w).Encode(map[string]string{"error": "ingest failed"})
			return
		}

		m.MessagesIngested.WithLabelValues(source).Inc()
		w.WriteHeader(http.StatusAccepted)
	}
}

func waitForShutdown(cancel context.CancelFunc, httpServer *http.Server, sup *supervisor.Supervisor, producer *eventlog.Producer) {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	ctx, done := context.WithTimeout(context.Background(), 10*time.Second)
	defer done()

	logger.Println("gateway: shutting down")
	cancel()

	if err := sup.Shutdown(ctx); err != nil {
		logger.Errorf("gateway: shutdown flush error: %v", err)
	}
	if producer != nil {
		if err := producer.Close(); err != nil {
			logger.Errorf("gateway: producer close error: %v", err)
		}
	}

	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Errorf("gateway: http shutdown error: %v", err)
	}

	if err := logger.GetDefault().Close(); err != nil {
		log.Printf("failed to close logger: %v", err)
	}
}
