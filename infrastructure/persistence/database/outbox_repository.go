package database

import (
	"context"
	"fmt"
	"time"

	"fitquest/domain/shared"
	"fitquest/infrastructure/persistence/database/po"

	"gorm.io/gorm"
)

// OutboxRepository 事务性 outbox：事件与业务数据同事务写入，进程内分发失败时由 worker 重投
type OutboxRepository struct {
	db  *gorm.DB
	now func() time.Time
}

func NewOutboxRepository(db *gorm.DB) *OutboxRepository {
	return &OutboxRepository{db: db, now: func() time.Time { return time.Now().UTC() }}
}

// SaveEvents delay 内 worker 不会接手这些记录
func (r *OutboxRepository) SaveEvents(ctx context.Context, events []shared.DomainEvent, delay time.Duration) error {
	if len(events) == 0 {
		return nil
	}
	now := r.now()
	rows := make([]*po.OutboxEventPO, 0, len(events))
	for _, e := range events {
		row, err := po.FromDomainEvent(e, now, now.Add(delay))
		if err != nil {
			return err
		}
		rows = append(rows, row)
	}
	return inTx(ctx, r.db, func(tx *gorm.DB) error {
		if err := tx.Create(rows).Error; err != nil {
			return fmt.Errorf("failed to save events to outbox: %w", err)
		}
		return nil
	})
}

// ClaimDue 取到期的待处理记录并标记为处理中；超时未完成的处理中记录视为 worker 崩溃，重新领取
func (r *OutboxRepository) ClaimDue(ctx context.Context, limit int, staleAfter time.Duration) ([]*po.OutboxEventPO, error) {
	now := r.now()
	var candidates []*po.OutboxEventPO
	err := dbFrom(ctx, r.db).
		Where("(status = ? AND available_at <= ?) OR (status = ? AND updated_at <= ?)",
			string(po.EventStatusPending), now,
			string(po.EventStatusProcessing), now.Add(-staleAfter)).
		Order("created_at ASC").
		Limit(limit).
		Find(&candidates).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get pending events: %w", err)
	}

	claimed := candidates[:0]
	for _, row := range candidates {
		// 条件更新保证多个 worker 只有一个能领取
		q := dbFrom(ctx, r.db).Model(&po.OutboxEventPO{}).Where("id = ? AND status = ?", row.ID, row.Status)
		if row.Status == string(po.EventStatusProcessing) {
			q = q.Where("updated_at <= ?", now.Add(-staleAfter))
		}
		result := q.
			Updates(map[string]any{
				"status":     string(po.EventStatusProcessing),
				"updated_at": now,
			})
		if result.Error != nil {
			return nil, result.Error
		}
		if result.RowsAffected == 1 {
			row.Status = string(po.EventStatusProcessing)
			row.UpdatedAt = now
			claimed = append(claimed, row)
		}
	}
	return claimed, nil
}

func (r *OutboxRepository) MarkEventPublished(ctx context.Context, eventID string) error {
	result := dbFrom(ctx, r.db).Model(&po.OutboxEventPO{}).
		Where("id = ?", eventID).
		Updates(map[string]any{
			"status":     string(po.EventStatusPublished),
			"last_error": "",
			"updated_at": r.now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("outbox event not found: %s", eventID)
	}
	return nil
}

// MarkEventFailed 累加重试次数，未超限时退回待处理并推迟 backoff
func (r *OutboxRepository) MarkEventFailed(ctx context.Context, eventID string, cause error, maxRetries int, backoff time.Duration) error {
	db := dbFrom(ctx, r.db)
	var row po.OutboxEventPO
	if err := db.First(&row, "id = ?", eventID).Error; err != nil {
		return fmt.Errorf("failed to find event: %w", err)
	}

	retries := row.RetryCount + 1
	status := string(po.EventStatusFailed)
	if retries < maxRetries {
		status = string(po.EventStatusPending)
	}
	now := r.now()
	return db.Model(&po.OutboxEventPO{}).
		Where("id = ?", eventID).
		Updates(map[string]any{
			"status":       status,
			"retry_count":  retries,
			"last_error":   truncate(cause.Error(), 1024),
			"available_at": now.Add(backoff * time.Duration(retries)),
			"updated_at":   now,
		}).Error
}

func (r *OutboxRepository) FindByID(ctx context.Context, eventID string) (*po.OutboxEventPO, error) {
	var row po.OutboxEventPO
	if err := dbFrom(ctx, r.db).First(&row, "id = ?", eventID).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
