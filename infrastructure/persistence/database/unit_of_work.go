package database

import (
	"context"
	"fmt"
	"time"

	"fitquest/domain/shared"
	"fitquest/infrastructure/persistence"
	"fitquest/pkg/logger"
	"fitquest/pkg/retry"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// UnitOfWork 一个业务操作一个实例，不可跨 goroutine 共享
//
// Execute 的顺序：开启事务 → 执行业务 → 收集事件写入 outbox → 提交 → 清空聚合事件
// → 用外层 ctx 分发。分发成功的 outbox 记录标记为已发布，失败的留给 worker。
type UnitOfWork struct {
	db          *gorm.DB
	outbox      *OutboxRepository
	publisher   shared.EventPublisher
	hooks       persistence.Hooks
	retryConfig retry.Config
	outboxDelay time.Duration
	aggregates  []shared.AggregateRoot
}

func (u *UnitOfWork) Execute(ctx context.Context, fn func(ctx context.Context) error) error {
	var committed []persistence.CommittedEvent
	err := retry.ExecuteWithRetry(ctx, u.retryConfig, func(ctx context.Context) error {
		var err error
		committed, err = u.executeOnce(ctx, fn)
		return err
	})
	if err != nil {
		return err
	}

	persistence.DispatchCommitted(ctx, u.publisher, u.hooks, committed, u.afterDispatch)
	return nil
}

func (u *UnitOfWork) executeOnce(ctx context.Context, fn func(ctx context.Context) error) ([]persistence.CommittedEvent, error) {
	u.aggregates = u.aggregates[:0]

	tx := u.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", tx.Error)
	}
	txCtx := persistence.ContextWithTx(ctx, tx)

	rollback := func(cause error) error {
		if err := tx.Rollback().Error; err != nil {
			logger.Warn("Transaction rollback failed", zap.Error(err))
		}
		u.hooks.UnitOfWorkRolledBack()
		return cause
	}

	if err := fn(txCtx); err != nil {
		return nil, rollback(err)
	}

	events := shared.CollectEvents(u.aggregates...)
	if err := u.outbox.SaveEvents(txCtx, events, u.outboxDelay); err != nil {
		return nil, rollback(err)
	}

	if err := tx.Commit().Error; err != nil {
		u.hooks.UnitOfWorkRolledBack()
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	u.hooks.UnitOfWorkCommitted()

	for _, agg := range u.aggregates {
		agg.ClearRecordedEvents()
	}
	committed := make([]persistence.CommittedEvent, len(events))
	for i, e := range events {
		committed[i] = persistence.CommittedEvent{Event: e, OutboxID: e.EventID()}
	}
	return committed, nil
}

func (u *UnitOfWork) afterDispatch(ctx context.Context, ce persistence.CommittedEvent, err error) {
	if err != nil {
		// 留在 outbox 中，available_at 之后由 worker 重投
		return
	}
	if markErr := u.outbox.MarkEventPublished(context.WithoutCancel(ctx), ce.OutboxID); markErr != nil {
		logger.Warn("Failed to mark outbox event as published",
			zap.String("event_id", ce.OutboxID),
			zap.Error(markErr))
	}
}

func (u *UnitOfWork) RegisterNew(aggregate shared.AggregateRoot) {
	u.aggregates = append(u.aggregates, aggregate)
}

func (u *UnitOfWork) RegisterDirty(aggregate shared.AggregateRoot) {
	u.aggregates = append(u.aggregates, aggregate)
}

func (u *UnitOfWork) RegisterRemoved(aggregate shared.AggregateRoot) {
	u.aggregates = append(u.aggregates, aggregate)
}

type UnitOfWorkFactory struct {
	db          *gorm.DB
	outbox      *OutboxRepository
	publisher   shared.EventPublisher
	hooks       persistence.Hooks
	retryConfig retry.Config
	outboxDelay time.Duration
}

// NewUnitOfWorkFactory outboxDelay 是进程内分发的窗口，过后 worker 才会接手
func NewUnitOfWorkFactory(db *gorm.DB, retryConfig retry.Config, outboxDelay time.Duration) *UnitOfWorkFactory {
	return &UnitOfWorkFactory{
		db:          db,
		outbox:      NewOutboxRepository(db),
		publisher:   shared.NopPublisher,
		hooks:       persistence.NopHooks{},
		retryConfig: retryConfig,
		outboxDelay: outboxDelay,
	}
}

func (f *UnitOfWorkFactory) WithHooks(h persistence.Hooks) *UnitOfWorkFactory {
	f.hooks = h
	return f
}

func (f *UnitOfWorkFactory) SetPublisher(p shared.EventPublisher) {
	if p == nil {
		p = shared.NopPublisher
	}
	f.publisher = p
}

func (f *UnitOfWorkFactory) New() shared.UnitOfWork {
	return &UnitOfWork{
		db:          f.db,
		outbox:      f.outbox,
		publisher:   f.publisher,
		hooks:       f.hooks,
		retryConfig: f.retryConfig,
		outboxDelay: f.outboxDelay,
	}
}

var (
	_ shared.UnitOfWork        = (*UnitOfWork)(nil)
	_ shared.UnitOfWorkFactory = (*UnitOfWorkFactory)(nil)
)
