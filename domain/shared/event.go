package shared

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// EventType 事件类型标签，每个具体事件对应唯一一个值
type EventType string

func (t EventType) String() string { return string(t) }

// DomainEvent 领域事件契约
// 具体事件一律是值类型（值接收者），发布后任何处理器拿到的都是副本，不会被修改。
type DomainEvent interface {
	EventID() string
	OccurredAt() time.Time
	EventType() EventType
	AggregateID() string
}

// EventMetadata 所有事件共有的元数据，嵌入到具体事件结构体中
type EventMetadata struct {
	ID        string    `json:"event_id"`
	Timestamp time.Time `json:"occurred_at"`
	Aggregate string    `json:"aggregate_id"`
}

// NewEventMetadata 为聚合生成新的事件元数据，ID 使用时间有序的 UUIDv7
func NewEventMetadata(aggregateID string, occurredAt time.Time) EventMetadata {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	return EventMetadata{
		ID:        id.String(),
		Timestamp: occurredAt.UTC(),
		Aggregate: aggregateID,
	}
}

func (m EventMetadata) EventID() string       { return m.ID }
func (m EventMetadata) OccurredAt() time.Time { return m.Timestamp }
func (m EventMetadata) AggregateID() string   { return m.Aggregate }

// EventPublisher 提交成功后由工作单元调用
type EventPublisher interface {
	Publish(ctx context.Context, event DomainEvent) error
}

// EventPublisherFunc 函数适配器
type EventPublisherFunc func(ctx context.Context, event DomainEvent) error

func (f EventPublisherFunc) Publish(ctx context.Context, event DomainEvent) error {
	return f(ctx, event)
}

// NopPublisher 丢弃所有事件，用于不需要分发的场景（如 migrate 命令）
var NopPublisher EventPublisher = EventPublisherFunc(func(context.Context, DomainEvent) error { return nil })
