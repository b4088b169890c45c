package memory

import (
	"context"

	"fitquest/domain/shared"
	"fitquest/infrastructure/persistence"
	"fitquest/pkg/retry"
)

// UnitOfWork 内存事务：写操作在 fn 返回后一次性原子提交，提交成功后才分发事件
type UnitOfWork struct {
	store       *Store
	publisher   shared.EventPublisher
	hooks       persistence.Hooks
	retryConfig retry.Config
	aggregates  []shared.AggregateRoot
}

func NewUnitOfWork(store *Store, publisher shared.EventPublisher) *UnitOfWork {
	if publisher == nil {
		publisher = shared.NopPublisher
	}
	return &UnitOfWork{
		store:       store,
		publisher:   publisher,
		hooks:       persistence.NopHooks{},
		retryConfig: retry.NoRetry,
	}
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
	persistence.DispatchCommitted(ctx, u.publisher, u.hooks, committed, nil)
	return nil
}

func (u *UnitOfWork) executeOnce(ctx context.Context, fn func(ctx context.Context) error) ([]persistence.CommittedEvent, error) {
	u.aggregates = u.aggregates[:0]
	t := &tx{}
	txCtx := context.WithValue(ctx, txKey{}, t)

	if err := fn(txCtx); err != nil {
		u.hooks.UnitOfWorkRolledBack()
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		u.hooks.UnitOfWorkRolledBack()
		return nil, err
	}

	events := shared.CollectEvents(u.aggregates...)
	if err := u.store.apply(t.ops); err != nil {
		u.hooks.UnitOfWorkRolledBack()
		return nil, err
	}
	u.hooks.UnitOfWorkCommitted()

	for _, agg := range u.aggregates {
		agg.ClearRecordedEvents()
	}
	committed := make([]persistence.CommittedEvent, len(events))
	for i, e := range events {
		committed[i] = persistence.CommittedEvent{Event: e}
	}
	return committed, nil
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
	store       *Store
	publisher   shared.EventPublisher
	hooks       persistence.Hooks
	retryConfig retry.Config
}

func NewUnitOfWorkFactory(store *Store, publisher shared.EventPublisher) *UnitOfWorkFactory {
	return &UnitOfWorkFactory{
		store:       store,
		publisher:   publisher,
		hooks:       persistence.NopHooks{},
		retryConfig: retry.NoRetry,
	}
}

func (f *UnitOfWorkFactory) WithHooks(h persistence.Hooks) *UnitOfWorkFactory {
	f.hooks = h
	return f
}

func (f *UnitOfWorkFactory) WithRetry(cfg retry.Config) *UnitOfWorkFactory {
	f.retryConfig = cfg
	return f
}

// SetPublisher 分发器依赖工作单元工厂（处理器内部要开事务），构建完成后再注入
func (f *UnitOfWorkFactory) SetPublisher(p shared.EventPublisher) {
	f.publisher = p
}

func (f *UnitOfWorkFactory) New() shared.UnitOfWork {
	uow := NewUnitOfWork(f.store, f.publisher)
	uow.hooks = f.hooks
	uow.retryConfig = f.retryConfig
	return uow
}

var (
	_ shared.UnitOfWork        = (*UnitOfWork)(nil)
	_ shared.UnitOfWorkFactory = (*UnitOfWorkFactory)(nil)
)
