/*
Package eventbus 进程内同步领域事件分发。

注册表在启动时通过 Builder 一次性构建，Build 之后不可变；
Publish 按注册顺序逐个调用处理器，默认隔离失败（记录日志后继续）。
*/
package eventbus

import (
	"context"
	"fmt"

	"fitquest/domain/shared"
)

// Handler 处理某个具体事件类型 E
type Handler[E shared.DomainEvent] interface {
	Handle(ctx context.Context, event E) error
}

// HandlerFunc 函数适配器
type HandlerFunc[E shared.DomainEvent] func(ctx context.Context, event E) error

func (f HandlerFunc[E]) Handle(ctx context.Context, event E) error {
	return f(ctx, event)
}

// Policy 处理器失败时的分发策略
type Policy int

const (
	// Isolate 记录日志与指标，继续调用后续处理器
	Isolate Policy = iota
	// Required 失败时停止向该事件的后续处理器分发
	Required
)

func (p Policy) String() string {
	switch p {
	case Isolate:
		return "isolate"
	case Required:
		return "required"
	default:
		return fmt.Sprintf("policy(%d)", int(p))
	}
}

// ParsePolicy 解析配置中的策略名，未知值回退为 Isolate
func ParsePolicy(s string) Policy {
	if s == "required" {
		return Required
	}
	return Isolate
}

// HandlerError 单个处理器的失败
type HandlerError struct {
	EventType shared.EventType
	EventID   string
	Handler   string
	Err       error
}

func (e *HandlerError) Error() string {
	return fmt.Sprintf("handler %s failed on %s(%s): %v", e.Handler, e.EventType, e.EventID, e.Err)
}

func (e *HandlerError) Unwrap() error {
	return e.Err
}

type subscription struct {
	name      string
	eventType shared.EventType
	policy    Policy
	invoke    func(ctx context.Context, event shared.DomainEvent) error
}

// Option 订阅选项
type Option func(*subscription)

// WithName 处理器名称，用于日志、指标和去重
func WithName(name string) Option {
	return func(s *subscription) { s.name = name }
}

func WithPolicy(p Policy) Option {
	return func(s *subscription) { s.policy = p }
}
