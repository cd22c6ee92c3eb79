// consumer/consumer.go
package consumer

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/wfunc/gameengine/config"
	"github.com/wfunc/gameengine/logger"
	"github.com/wfunc/gameengine/monitor"
)

// Consumer is the ingestion boundary: a fixed pool of workers, each with
// its own group reader, so the broker spreads partitions across the pool
// and events for one room always land on the same worker in log order.
//
// Precondition: the inbound topic is keyed by room id and this group is
// its only consumer. The single-writer-per-room guarantee comes entirely
// from that partitioning; nothing here re-checks it.
type Consumer struct {
	cfg       config.KafkaConfig
	processor *Processor
	monitor   *monitor.Monitor
}

func New(cfg config.KafkaConfig, processor *Processor, mon *monitor.Monitor) *Consumer {
	return &Consumer{
		cfg:       cfg,
		processor: processor,
		monitor:   mon,
	}
}

// Run starts the worker pool and blocks until the context is cancelled
// and every worker has drained. Uncommitted batches at teardown are
// redelivered by the broker to whoever picks up the partitions.
func (c *Consumer) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for i := 0; i < c.cfg.Workers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			c.runWorker(ctx, id)
		}(i)
	}

	c.monitor.SetActiveWorkers(c.cfg.Workers)
	logger.Log.Infow("Consumer pool started",
		"workers", c.cfg.Workers, "topic", c.cfg.PlayerEventsTopic, "group", c.cfg.GroupID)

	wg.Wait()
	c.monitor.SetActiveWorkers(0)
	logger.Log.Info("Consumer pool stopped")
}

func (c *Consumer) runWorker(ctx context.Context, id int) {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  c.cfg.Brokers,
		GroupID:  c.cfg.GroupID,
		Topic:    c.cfg.PlayerEventsTopic,
		MinBytes: 1,
		MaxBytes: 10e6,
		MaxWait:  c.cfg.PollInterval,
	})
	defer reader.Close()

	for {
		batch, err := c.fetchBatch(ctx, reader)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, io.EOF) {
				return
			}
			logger.Log.Errorw("Fetch failed", "worker", id, "error", err)
			continue
		}
		if len(batch) == 0 {
			continue
		}

		c.processBatch(ctx, batch)
		c.commitBatch(ctx, reader, batch)
	}
}

// fetchBatch blocks for the first message, then keeps accumulating until
// the batch is full or the poll interval elapses.
func (c *Consumer) fetchBatch(ctx context.Context, reader *kafka.Reader) ([]kafka.Message, error) {
	first, err := reader.FetchMessage(ctx)
	if err != nil {
		return nil, err
	}

	batch := []kafka.Message{first}
	deadline := time.Now().Add(c.cfg.PollInterval)

	for len(batch) < c.cfg.BatchSize {
		fetchCtx, cancel := context.WithDeadline(ctx, deadline)
		msg, err := reader.FetchMessage(fetchCtx)
		cancel()
		if err != nil {
			break
		}
		batch = append(batch, msg)
	}

	return batch, nil
}

// processBatch attempts every event, isolating per-event failures: a bad
// event is logged and counted, the rest of the batch still runs.
func (c *Consumer) processBatch(ctx context.Context, batch []kafka.Message) {
	for _, msg := range batch {
		now := time.Now().UnixMilli()
		if err := c.processor.ProcessEvent(ctx, msg.Value, now); err != nil {
			logger.Log.Warnw("Skipping event",
				"key", string(msg.Key), "partition", msg.Partition, "offset", msg.Offset, "error", err)
			c.monitor.IncEventsSkipped()
			continue
		}
		c.monitor.IncEventsProcessed()
	}
}

// commitBatch acknowledges the whole batch after all events were
// attempted. Commit failures get a bounded number of fixed-backoff
// retries; after that the batch is dropped with an error log and the
// broker redelivers it.
func (c *Consumer) commitBatch(ctx context.Context, reader *kafka.Reader, batch []kafka.Message) {
	var err error
	for attempt := 0; attempt <= c.cfg.CommitRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return
			case <-time.After(c.cfg.RetryBackoff):
			}
		}
		if err = reader.CommitMessages(ctx, batch...); err == nil {
			c.monitor.IncBatchesAcked()
			return
		}
		logger.Log.Warnw("Batch commit failed",
			"attempt", attempt+1, "size", len(batch), "error", err)
	}

	logger.Log.Errorw("Dropping batch after commit retries",
		"size", len(batch), "retries", c.cfg.CommitRetries, "error", err)
	c.monitor.IncBatchesDropped()
}
