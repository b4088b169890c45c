package po

import "time"

// ProcessedEventPO 消费者已处理的事件，(consumer, event_id) 唯一
type ProcessedEventPO struct {
	Consumer    string    `gorm:"primaryKey;size:64"`
	EventID     string    `gorm:"primaryKey;size:64"`
	ProcessedAt time.Time `gorm:"not null"`
}

func (ProcessedEventPO) TableName() string {
	return "processed_events"
}
