package shared

import (
	"iter"
	"slices"
)

// AggregateRoot 聚合根接口
// 聚合根是一致性边界的入口，所有修改都经过它；领域事件只能由聚合自身的方法产生。
type AggregateRoot interface {
	ID() string

	// Version 当前持久化版本号，用于乐观锁
	Version() int

	// RecordedEvents 返回尚未分发的事件快照，只读
	RecordedEvents() iter.Seq[DomainEvent]

	// ClearRecordedEvents 仅由工作单元在提交成功后调用
	ClearRecordedEvents()
}

// EventRecorder 聚合内部的事件记录器
// 聚合以未导出字段持有它，外部代码无法绕过聚合方法追加事件。
type EventRecorder struct {
	events []DomainEvent
}

func (r *EventRecorder) Record(event DomainEvent) {
	r.events = append(r.events, event)
}

// Events 返回调用时刻的快照，之后的 Record/Clear 不影响已返回的序列
func (r *EventRecorder) Events() iter.Seq[DomainEvent] {
	return slices.Values(slices.Clone(r.events))
}

func (r *EventRecorder) Clear() {
	r.events = nil
}

func (r *EventRecorder) Len() int {
	return len(r.events)
}

// CollectEvents 依次收集多个聚合记录的事件，保持登记顺序
func CollectEvents(aggregates ...AggregateRoot) []DomainEvent {
	var events []DomainEvent
	for _, agg := range aggregates {
		events = slices.AppendSeq(events, agg.RecordedEvents())
	}
	return events
}

// Entity 有唯一标识的实体
type Entity interface {
	ID() string
}
