package database

import (
	"context"
	"time"

	"fitquest/domain/competition"
	"fitquest/domain/shared"
	"fitquest/infrastructure/persistence/database/po"

	"gorm.io/gorm"
)

type LedgerRepository struct {
	db *gorm.DB
}

func NewLedgerRepository(db *gorm.DB) *LedgerRepository {
	return &LedgerRepository{db: db}
}

func (r *LedgerRepository) IsProcessed(ctx context.Context, consumer, eventID string) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}
	var count int64
	err := dbFrom(ctx, r.db).Model(&po.ProcessedEventPO{}).
		Where("consumer = ? AND event_id = ?", consumer, eventID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// MarkProcessed 主键冲突说明另一次投递已经处理，映射为可重试的并发冲突
func (r *LedgerRepository) MarkProcessed(ctx context.Context, consumer, eventID string, processedAt time.Time) error {
	return inTx(ctx, r.db, func(tx *gorm.DB) error {
		err := tx.Create(&po.ProcessedEventPO{
			Consumer:    consumer,
			EventID:     eventID,
			ProcessedAt: processedAt.UTC(),
		}).Error
		if isDuplicateKeyError(err) {
			return shared.NewConcurrentModificationError("processed_event", consumer+"/"+eventID)
		}
		return err
	})
}

var _ competition.ProcessedEventLedger = (*LedgerRepository)(nil)
