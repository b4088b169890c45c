package shared

import "context"

// UnitOfWork 管理事务边界与聚合事件收集。
// Execute 成功返回意味着事务已提交；已登记聚合的事件在提交之后才交给分发器，
// 事务失败时不会分发任何事件。
type UnitOfWork interface {
	Execute(ctx context.Context, fn func(ctx context.Context) error) error
	RegisterNew(aggregate AggregateRoot)
	RegisterDirty(aggregate AggregateRoot)
	RegisterRemoved(aggregate AggregateRoot)
}

type UnitOfWorkFactory interface {
	New() UnitOfWork
}

// KeyLocker 按业务键串行化读-改-写
type KeyLocker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

// HealthChecker 持久化适配器的连通性探测
type HealthChecker interface {
	CanConnect(ctx context.Context) bool
}
