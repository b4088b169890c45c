package eventbus

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fitquest/domain/shared"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// ErrUnknownEventType outbox 中的事件类型没有登记编解码
var ErrUnknownEventType = errors.New("eventbus: unknown event type")

// Dispatcher 不可变的事件分发器，可被多个 goroutine 并发使用
type Dispatcher struct {
	subs     map[shared.EventType][]subscription
	decoders map[shared.EventType]decoder
	observer Observer
	logger   *zap.Logger
	tracer   trace.Tracer
}

// Publish 按注册顺序同步调用 event 类型的全部处理器。
//
// Isolate 处理器失败只记录日志并继续；Required 处理器失败则停止本次分发。
// 所有失败在结束后以 errors.Join 返回；ctx 取消时不再调用后续处理器。
// 分发器本身不重试、不持久化。
func (d *Dispatcher) Publish(ctx context.Context, event shared.DomainEvent) error {
	if event == nil {
		return errors.New("eventbus: nil event")
	}
	eventType := event.EventType()
	subs := d.subs[eventType]

	ctx, span := d.tracer.Start(ctx, "eventbus.publish "+eventType.String(),
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("event.type", eventType.String()),
			attribute.String("event.id", event.EventID()),
			attribute.Int("event.handlers", len(subs)),
		))
	defer span.End()

	d.observer.EventPublished(eventType, len(subs))
	if len(subs) == 0 {
		d.logger.Debug("no handlers registered",
			zap.String("event_type", eventType.String()),
			zap.String("event_id", event.EventID()))
		return nil
	}

	var faults []error
	for i, sub := range subs {
		if err := ctx.Err(); err != nil {
			d.logger.Warn("event dispatch aborted",
				zap.String("event_type", eventType.String()),
				zap.String("event_id", event.EventID()),
				zap.Int("remaining_handlers", len(subs)-i),
				zap.Error(err))
			faults = append(faults, err)
			break
		}

		if err := d.invoke(ctx, sub, event); err != nil {
			faults = append(faults, err)
			if sub.policy == Required {
				d.logger.Error("required handler failed, stopping dispatch",
					zap.String("event_type", eventType.String()),
					zap.String("event_id", event.EventID()),
					zap.String("handler", sub.name),
					zap.Int("skipped_handlers", len(subs)-i-1),
					zap.Error(err))
				break
			}
			d.logger.Warn("handler failed, continuing",
				zap.String("event_type", eventType.String()),
				zap.String("event_id", event.EventID()),
				zap.String("handler", sub.name),
				zap.Error(err))
		}
	}

	if len(faults) > 0 {
		err := errors.Join(faults...)
		span.RecordError(err)
		span.SetStatus(codes.Error, "handler failures")
		return err
	}
	return nil
}

func (d *Dispatcher) invoke(ctx context.Context, sub subscription, event shared.DomainEvent) (err error) {
	ctx, span := d.tracer.Start(ctx, "eventbus.handle "+sub.name,
		trace.WithAttributes(attribute.String("handler", sub.name)))
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
		elapsed := time.Since(start)
		if err != nil {
			err = &HandlerError{
				EventType: sub.eventType,
				EventID:   event.EventID(),
				Handler:   sub.name,
				Err:       err,
			}
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			d.observer.HandlerFailed(sub.eventType, sub.name, elapsed)
		} else {
			d.observer.HandlerSucceeded(sub.eventType, sub.name, elapsed)
		}
		span.End()
	}()

	return sub.invoke(ctx, event)
}

// PublishAll 依次发布多个事件；单个事件的失败不影响后续事件
func (d *Dispatcher) PublishAll(ctx context.Context, events []shared.DomainEvent) error {
	var errs []error
	for _, event := range events {
		if err := d.Publish(ctx, event); err != nil {
			errs = append(errs, err)
		}
		if ctx.Err() != nil {
			break
		}
	}
	return errors.Join(errs...)
}

// Decode 按事件类型把 outbox 负载还原为具体事件
func (d *Dispatcher) Decode(eventType shared.EventType, payload []byte) (shared.DomainEvent, error) {
	dec, ok := d.decoders[eventType]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownEventType, eventType)
	}
	return dec(payload)
}

// HandlerNames 某事件类型按注册顺序的处理器名称
func (d *Dispatcher) HandlerNames(eventType shared.EventType) []string {
	subs := d.subs[eventType]
	names := make([]string, len(subs))
	for i, s := range subs {
		names[i] = s.name
	}
	return names
}

var _ shared.EventPublisher = (*Dispatcher)(nil)
