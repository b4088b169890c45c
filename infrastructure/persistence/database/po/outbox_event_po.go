package po

import (
	"encoding/json"
	"fmt"
	"time"

	"fitquest/domain/shared"
)

// OutboxEventPO 与业务数据同事务写入的事件，ID 即事件 ID
type OutboxEventPO struct {
	ID          string    `gorm:"primaryKey;size:64"`
	AggregateID string    `gorm:"size:128;index;not null"`
	EventType   string    `gorm:"size:100;index;not null"`
	Payload     string    `gorm:"type:text;not null"`
	Status      string    `gorm:"size:20;not null;default:PENDING;index:idx_outbox_due,priority:1"`
	RetryCount  int       `gorm:"not null;default:0"`
	LastError   string    `gorm:"size:1024"`
	AvailableAt time.Time `gorm:"not null;index:idx_outbox_due,priority:2"`
	CreatedAt   time.Time `gorm:"not null"`
	UpdatedAt   time.Time `gorm:"not null"`
}

func (OutboxEventPO) TableName() string {
	return "outbox_events"
}

type EventStatus string

const (
	EventStatusPending    EventStatus = "PENDING"
	EventStatusProcessing EventStatus = "PROCESSING"
	EventStatusPublished  EventStatus = "PUBLISHED"
	EventStatusFailed     EventStatus = "FAILED"
)

// FromDomainEvent availableAt 之前 worker 不会接手，留给进程内分发
func FromDomainEvent(event shared.DomainEvent, now, availableAt time.Time) (*OutboxEventPO, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("marshal %s: %w", event.EventType(), err)
	}
	return &OutboxEventPO{
		ID:          event.EventID(),
		AggregateID: event.AggregateID(),
		EventType:   event.EventType().String(),
		Payload:     string(payload),
		Status:      string(EventStatusPending),
		AvailableAt: availableAt,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}
