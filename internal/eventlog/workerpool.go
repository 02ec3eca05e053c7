// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package eventlog

import (
	"context"
	"sync"

	"github.com/quirybot/pipeline/internal/logger"
	"github.com/quirybot/pipeline/internal/schema"
)

// HandlerFunc processes a single envelope read from the log. It should
// return an error if processing fails; the envelope is logged and skipped
// rather than retried, matching spec.md's "log and continue" error policy
// for downstream processing failures.
type HandlerFunc func(ctx context.Context, env schema.LogEnvelope) error

// StartConsumers starts workerCount independent readers, each joining the
// same consumer group so Kafka distributes partitions across them. Blocks
// until ctx is cancelled.
func StartConsumers(ctx context.Context, brokers []string, groupID string, handler HandlerFunc, workerCount int) {
	logger.Printf("eventlog: StartConsumers group_id=%s workerCount=%d", groupID, workerCount)

	var wg sync.WaitGroup
	wg.Add(workerCount)

	for i := 0; i < workerCount; i++ {
		workerID := i + 1
		go func() {
			defer wg.Done()
			consumerLoop(ctx, brokers, groupID, handler, workerID)
		}()
	}

	wg.Wait()
	logger.Printf("eventlog: StartConsumers group_id=%s all workers stopped", groupID)
}

func consumerLoop(ctx context.Context, brokers []string, groupID string, handler HandlerFunc, workerID int) {
	consumer := NewConsumer(brokers, groupID)
	defer consumer.Close()

	logger.Printf("eventlog: consumerLoop workerID=%d started", workerID)

	for {
		select {
		case <-ctx.Done():
			logger.Printf("eventlog: consumerLoop workerID=%d context cancelled, stopping", workerID)
			return
		default:
		}

		env, err := consumer.ReadOne(ctx)
		if err != nil {
			if ctx.Err() != nil {
				logger.Printf("eventlog: consumerLoop workerID=%d context cancelled during read", workerID)
				return
			}
			logger.Errorf("eventlog: consumerLoop workerID=%d read error: %v, continuing", workerID, err)
			continue
		}

		logger.Debugf("eventlog: consumerLoop workerID=%d processing event_type=%s key=%s", workerID, env.EventType, env.PartitionKey())

		if err := handler(ctx, env); err != nil {
			logger.Errorf("eventlog: consumerLoop workerID=%d handler error for event_type=%s: %v", workerID, env.EventType, err)
			continue
		}
	}
}
