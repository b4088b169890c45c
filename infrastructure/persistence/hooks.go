package persistence

import (
	"context"
	"errors"

	"fitquest/domain/shared"
	"fitquest/pkg/logger"

	"go.uber.org/zap"
)

// Hooks 工作单元的观测钩子
type Hooks interface {
	UnitOfWorkCommitted()
	UnitOfWorkRolledBack()
	DispatchFailed()
}

type NopHooks struct{}

func (NopHooks) UnitOfWorkCommitted()  {}
func (NopHooks) UnitOfWorkRolledBack() {}
func (NopHooks) DispatchFailed()       {}

// CommittedEvent 已随事务提交的事件；OutboxID 为空表示没有 outbox 记录
type CommittedEvent struct {
	Event    shared.DomainEvent
	OutboxID string
}

// DispatchCommitted 提交之后逐个分发事件。
// 处理器的失败不会返回给命令调用方：记录日志、计数，并通过 onResult 告知结果
// （数据库实现据此把 outbox 记录标记为已发布或留待重投）。
func DispatchCommitted(
	ctx context.Context,
	publisher shared.EventPublisher,
	hooks Hooks,
	events []CommittedEvent,
	onResult func(ctx context.Context, ce CommittedEvent, err error),
) {
	for _, ce := range events {
		// 分发不能沿用已提交事务，处理器会开启自己的工作单元
		err := publisher.Publish(ctx, ce.Event)
		if err != nil {
			hooks.DispatchFailed()
			logger.Warn("post-commit dispatch reported failures",
				zap.String("event_type", ce.Event.EventType().String()),
				zap.String("event_id", ce.Event.EventID()),
				zap.String("outbox_id", ce.OutboxID),
				zap.Error(err))
		}
		if onResult != nil {
			onResult(ctx, ce, err)
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			logger.Warn("post-commit dispatch interrupted", zap.Int("remaining", len(events)))
			return
		}
	}
}
