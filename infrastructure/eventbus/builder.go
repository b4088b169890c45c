package eventbus

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"slices"

	"fitquest/domain/shared"
	"fitquest/pkg/logger"

	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

type decoder func(payload []byte) (shared.DomainEvent, error)

// Builder 启动阶段收集订阅，Build 后不再接受修改
type Builder struct {
	subs          map[shared.EventType][]subscription
	decoders      map[shared.EventType]decoder
	observer      Observer
	logger        *zap.Logger
	defaultPolicy Policy
	errs          []error
	built         bool
}

func NewBuilder() *Builder {
	return &Builder{
		subs:     make(map[shared.EventType][]subscription),
		decoders: make(map[shared.EventType]decoder),
	}
}

func (b *Builder) WithObserver(o Observer) *Builder {
	b.observer = o
	return b
}

func (b *Builder) WithLogger(l *zap.Logger) *Builder {
	b.logger = l
	return b
}

// WithDefaultPolicy 未显式指定 WithPolicy 的订阅使用该策略
func (b *Builder) WithDefaultPolicy(p Policy) *Builder {
	b.defaultPolicy = p
	return b
}

// eventTypeOf 事件是值类型，零值即可给出类型标签
func eventTypeOf[E shared.DomainEvent]() shared.EventType {
	var zero E
	return zero.EventType()
}

// Register 只登记事件编解码，不订阅处理器（供 outbox 重放使用）
func Register[E shared.DomainEvent](b *Builder) {
	eventType := eventTypeOf[E]()
	if _, ok := b.decoders[eventType]; ok {
		return
	}
	b.decoders[eventType] = func(payload []byte) (shared.DomainEvent, error) {
		var event E
		if err := json.Unmarshal(payload, &event); err != nil {
			return nil, fmt.Errorf("decode %s: %w", eventType, err)
		}
		return event, nil
	}
}

// Subscribe 为事件类型 E 注册处理器；类型在编译期检查，注册键就是 E 的 EventType
func Subscribe[E shared.DomainEvent](b *Builder, h Handler[E], opts ...Option) {
	if b.built {
		b.errs = append(b.errs, fmt.Errorf("eventbus: subscribe after build"))
		return
	}
	if h == nil {
		b.errs = append(b.errs, fmt.Errorf("eventbus: nil handler"))
		return
	}

	eventType := eventTypeOf[E]()
	sub := subscription{
		name:      fmt.Sprintf("%T", h),
		eventType: eventType,
		policy:    -1,
		invoke: func(ctx context.Context, event shared.DomainEvent) error {
			typed, ok := event.(E)
			if !ok {
				return fmt.Errorf("eventbus: %s delivered as %T", eventType, event)
			}
			return h.Handle(ctx, typed)
		},
	}
	for _, opt := range opts {
		opt(&sub)
	}

	for _, existing := range b.subs[eventType] {
		if existing.name == sub.name {
			b.errs = append(b.errs, fmt.Errorf("eventbus: handler %s already subscribed to %s", sub.name, eventType))
			return
		}
	}
	b.subs[eventType] = append(b.subs[eventType], sub)
	Register[E](b)
}

// Build 冻结注册表；重复订阅等注册错误在这里统一返回
func (b *Builder) Build() (*Dispatcher, error) {
	if len(b.errs) > 0 {
		return nil, b.errs[0]
	}
	b.built = true

	subs := make(map[shared.EventType][]subscription, len(b.subs))
	for eventType, list := range b.subs {
		frozen := slices.Clone(list)
		for i := range frozen {
			if frozen[i].policy < 0 {
				frozen[i].policy = b.defaultPolicy
			}
		}
		subs[eventType] = frozen
	}

	log := b.logger
	if log == nil {
		log = logger.With(zap.String("component", "eventbus"))
	}
	observer := b.observer
	if observer == nil {
		observer = nopObserver{}
	}

	return &Dispatcher{
		subs:     subs,
		decoders: maps.Clone(b.decoders),
		observer: observer,
		logger:   log,
		tracer:   otel.Tracer("fitquest/eventbus"),
	}, nil
}
