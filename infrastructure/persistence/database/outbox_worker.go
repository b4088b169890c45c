package database

import (
	"context"
	"fmt"
	"time"

	"fitquest/config"
	"fitquest/domain/shared"
	"fitquest/pkg/logger"

	"go.uber.org/zap"
)

// EventRelay 把 outbox 记录还原成领域事件并重新分发，由 eventbus.Dispatcher 实现
type EventRelay interface {
	Decode(eventType shared.EventType, payload []byte) (shared.DomainEvent, error)
	Publish(ctx context.Context, event shared.DomainEvent) error
}

// RedeliveryObserver 记录重投结果：published / retry / decode_error
type RedeliveryObserver interface {
	OutboxRedelivered(outcome string)
}

type OutboxWorker struct {
	repository   *OutboxRepository
	relay        EventRelay
	observer     RedeliveryObserver
	log          *zap.Logger
	pollInterval time.Duration
	batchSize    int
	maxRetries   int
	backoff      time.Duration
}

func NewOutboxWorker(repository *OutboxRepository, relay EventRelay, cfg config.WorkerConfig) (*OutboxWorker, error) {
	if repository == nil {
		return nil, fmt.Errorf("outbox repository is required")
	}
	if relay == nil {
		return nil, fmt.Errorf("event relay is required")
	}
	if cfg.PollInterval <= 0 {
		return nil, fmt.Errorf("poll interval must be positive")
	}
	if cfg.BatchSize <= 0 {
		return nil, fmt.Errorf("batch size must be positive")
	}
	if cfg.MaxRetries <= 0 {
		return nil, fmt.Errorf("max retries must be positive")
	}
	backoff := cfg.RedeliveryDelay
	if backoff <= 0 {
		backoff = cfg.PollInterval
	}
	return &OutboxWorker{
		repository:   repository,
		relay:        relay,
		log:          logger.Named("outbox_worker"),
		pollInterval: cfg.PollInterval,
		batchSize:    cfg.BatchSize,
		maxRetries:   cfg.MaxRetries,
		backoff:      backoff,
	}, nil
}

func (w *OutboxWorker) WithObserver(o RedeliveryObserver) *OutboxWorker {
	w.observer = o
	return w
}

func (w *OutboxWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	w.log.Info("Outbox worker started",
		zap.Duration("poll_interval", w.pollInterval),
		zap.Int("batch_size", w.batchSize))
	for {
		select {
		case <-ctx.Done():
			w.log.Info("Outbox worker stopped")
			return ctx.Err()
		case <-ticker.C:
			if _, err := w.ProcessBatch(ctx); err != nil {
				w.log.Error("Outbox batch processing failed", zap.Error(err))
			}
		}
	}
}

// ProcessBatch 处理一批到期记录，返回成功重投的数量
func (w *OutboxWorker) ProcessBatch(ctx context.Context) (int, error) {
	rows, err := w.repository.ClaimDue(ctx, w.batchSize, 10*w.pollInterval)
	if err != nil {
		return 0, err
	}

	published := 0
	for _, row := range rows {
		if ctx.Err() != nil {
			return published, ctx.Err()
		}
		log := w.log.With(
			zap.String("event_id", row.ID),
			zap.String("event_type", row.EventType),
			zap.Int("retry_count", row.RetryCount))

		event, err := w.relay.Decode(shared.EventType(row.EventType), []byte(row.Payload))
		if err != nil {
			// 无法解码的记录重试也没有用，直接标记失败
			log.Error("Outbox event cannot be decoded", zap.Error(err))
			w.observe("decode_error")
			if markErr := w.repository.MarkEventFailed(ctx, row.ID, err, 0, w.backoff); markErr != nil {
				log.Error("Failed to mark outbox event as failed", zap.Error(markErr))
			}
			continue
		}

		if err := w.relay.Publish(ctx, event); err != nil {
			log.Warn("Outbox redelivery reported failures", zap.Error(err))
			w.observe("retry")
			if markErr := w.repository.MarkEventFailed(ctx, row.ID, err, w.maxRetries, w.backoff); markErr != nil {
				log.Error("Failed to mark outbox event as failed", zap.Error(markErr))
			}
			continue
		}

		if err := w.repository.MarkEventPublished(ctx, row.ID); err != nil {
			log.Error("Failed to mark outbox event as published", zap.Error(err))
			continue
		}
		w.observe("published")
		published++
	}
	return published, nil
}

func (w *OutboxWorker) observe(outcome string) {
	if w.observer != nil {
		w.observer.OutboxRedelivered(outcome)
	}
}
