// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package main

import (
	"context"
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

const workerCount = 5

func main() {
	if _, err := logger.Init("ingestworker.log"); err != nil {
		log.Printf("failed to initialize logger: %v, using stdout only", err)
	}

	cfg, err := config.FromEnv("ingestworker")
	if err != nil {
		logger.Fatalf("config error: %v", err)
	}

	embedder := embedclient.NewCohereClient(cfg.Cohere.APIKey)
	chat := chatclient.New(cfg.Cohere.APIKey)
	vectors := vectorstore.New(cfg.Vector.APIKey, cfg.Vector.Host, cfg.Vector.Namespace)
	m := metrics.NewRegistry()

	chunkManager := chunker.NewManager()
	embedWorker := embedworker.New(embedder, chat, vectors, m)

	var keywordIdx *keywordindex.Index
	var keywordHandler *indexer.Indexer
	if cfg.Search.Enabled {
		keywordIdx = keywordindex.New(cfg.Search.URL, cfg.Search.Index)
		if err := keywordIdx.EnsureIndex(context.Background()); err != nil {
			logger.Warnf("ingestworker: failed to ensure keyword index exists: %v", err)
		}
		keywordHandler = indexer.New(keywordIdx, m)
	}

	sup := supervisor.New(15 * time.Second)
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

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Kafka.Enabled {
		sup.Register("log", false, func(ctx context.Context) error { return nil })

		handler := func(ctx context.Context, env schema.LogEnvelope) error {
			return handleEnvelope(ctx, env, chunkManager, embedWorker, keywordHandler, m)
		}
		go eventlog.StartConsumers(ctx, cfg.Kafka.Brokers, cfg.Kafka.GroupID, handler, workerCount)
	} else {
		sup.Register("log", true, nil)
		logger.Warnf("ingestworker: durable log disabled, nothing to consume; run the gateway in degraded mode instead")
	}

	go sup.Run(ctx)

	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: server.NewRouter(sup, m, nil),
	}

	go func() {
		logger.Printf("ingestworker listening on %d", cfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("http server error: %v", err)
		}
	}()

	waitForShutdown(cancel, httpServer, sup, chunkManager, embedWorker)
}

func handleEnvelope(ctx context.Context, env schema.LogEnvelope, chunkManager *chunker.Manager, embedWorker *embedworker.Worker, keywordHandler *indexer.Indexer, m *metrics.Registry) error {
	switch env.EventType {
	case schema.EventTypeDiscordMessage:
		if env.DiscordMessage == nil {
			return fmt.Errorf("ingestworker: discord_message envelope missing payload")
		}
		msg := *env.DiscordMessage
		m.MessagesIngested.WithLabelValues("log").Inc()

		if keywordHandler != nil {
			if err := keywordHandler.HandleMessage(ctx, msg); err != nil {
				logger.Warnf("ingestworker: keyword indexing failed for %s: %v", msg.MessageID, err)
			}
		}
		if err := embedWorker.HandleMessage(ctx, msg); err != nil {
			return fmt.Errorf("ingestworker: embed message %s: %w", msg.MessageID, err)
		}
		for _, chunk := range chunkManager.Process(msg) {
			m.ChunksCreated.Inc()
			if err := embedWorker.HandleChunk(ctx, chunk); err != nil {
				logger.Warnf("ingestworker: embed chunk %s failed: %v", chunk.ChunkID, err)
			}
		}
		return nil
	default:
		logger.Debugf("ingestworker: ignoring envelope of type %s", env.EventType)
		return nil
	}
}

func waitForShutdown(cancel context.CancelFunc, httpServer *http.Server, sup *supervisor.Supervisor, chunkManager *chunker.Manager, embedWorker *embedworker.Worker) {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	ctx, done := context.WithTimeout(context.Background(), 10*time.Second)
	defer done()

	logger.Println("ingestworker: shutting down")
	cancel()

	sup.ConfigureIngest(nil, chunkManager, embedWorker, nil)
	if err := sup.Shutdown(ctx); err != nil {
		logger.Errorf("ingestworker: shutdown flush error: %v", err)
	}

	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Errorf("ingestworker: http shutdown error: %v", err)
	}

	if err := logger.GetDefault().Close(); err != nil {
		log.Printf("failed to close logger: %v", err)
	}
}
