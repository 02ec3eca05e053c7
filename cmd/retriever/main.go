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
	"github.com/quirybot/pipeline/internal/config"
	"github.com/quirybot/pipeline/internal/embedclient"
	"github.com/quirybot/pipeline/internal/eventlog"
	"github.com/quirybot/pipeline/internal/keywordindex"
	"github.com/quirybot/pipeline/internal/logger"
	"github.com/quirybot/pipeline/internal/metrics"
	"github.com/quirybot/pipeline/internal/retriever"
	"github.com/quirybot/pipeline/internal/schema"
	"github.com/quirybot/pipeline/internal/server"
	"github.com/quirybot/pipeline/internal/supervisor"
	"github.com/quirybot/pipeline/internal/vectorstore"
)

// asyncConsumerWorkers mirrors the original's single-threaded
// query-consumer: the async-answer path isn't latency sensitive, so it
// doesn't need the ingest worker's wider fan-out.
const asyncConsumerWorkers = 1

func main() {
	if _, err := logger.Init("retriever.log"); err != nil {
		log.Printf("failed to initialize logger: %v, using stdout only", err)
	}

	cfg, err := config.FromEnv("retriever")
	if err != nil {
		logger.Fatalf("config error: %v", err)
	}

	embedder := embedclient.NewCohereClient(cfg.Cohere.APIKey)
	chat := chatclient.New(cfg.Cohere.APIKey)
	vectors := vectorstore.New(cfg.Vector.APIKey, cfg.Vector.Host, cfg.Vector.Namespace)
	m := metrics.NewRegistry()

	var keywordIdx *keywordindex.Index
	if cfg.Search.Enabled {
		keywordIdx = keywordindex.New(cfg.Search.URL, cfg.Search.Index)
	}

	ret := newRetriever(embedder, vectors, keywordIdx, chat, m)

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
		groupID := "quiry-retriever"
		handler := func(ctx context.Context, env schema.LogEnvelope) error {
			return handleQueryRequest(ctx, env, ret)
		}
		go eventlog.StartConsumers(ctx, cfg.Kafka.Brokers, groupID, handler, asyncConsumerWorkers)
	} else {
		sup.Register("log", true, nil)
	}

	go sup.Run(ctx)

	askHandler := server.NewAskHandler(ret)
	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: server.NewRouter(sup, m, askHandler),
	}

	go func() {
		logger.Printf("retriever listening on %d", cfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("http server error: %v", err)
		}
	}()

	waitForShutdown(cancel, httpServer)
}

func newRetriever(embedder *embedclient.CohereClient, vectors *vectorstore.Store, keywordIdx *keywordindex.Index, chat *chatclient.Client, m *metrics.Registry) *retriever.Retriever {
	if keywordIdx == nil {
		return retriever.New(embedder, vectors, nil, chat, m)
	}
	return retriever.New(embedder, vectors, keywordIdx, chat, m)
}

// handleQueryRequest answers a QueryRequest envelope asynchronously and logs
// the answer instead of replying over HTTP, matching the original's
// placeholder behavior for the async path (there is no outbound gateway
// channel in scope to deliver the answer to).
func handleQueryRequest(ctx context.Context, env schema.LogEnvelope, ret *retriever.Retriever) error {
	if env.EventType != schema.EventTypeQueryRequest || env.QueryRequest == nil {
		return nil
	}

	answer, mode, err := ret.Ask(ctx, env.QueryRequest.Query, env.GuildID, env.ChannelID)
	if err != nil {
		return fmt.Errorf("retriever: async ask failed: %w", err)
	}
	logger.Printf("retriever: async answer for channel=%s mode=%s answer=%q", env.ChannelID, mode, answer)
	return nil
}

func waitForShutdown(cancel context.CancelFunc, httpServer *http.Server) {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	ctx, done := context.WithTimeout(context.Background(), 10*time.Second)
	defer done()

	logger.Println("retriever: shutting down")
	cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Errorf("retriever: http shutdown error: %v", err)
	}

	if err := logger.GetDefault().Close(); err != nil {
		log.Printf("failed to close logger: %v", err)
	}
}
