package database

import (
	"context"
	"errors"

	"fitquest/domain/gamification"
	"fitquest/domain/shared"
	"fitquest/infrastructure/persistence/database/po"

	"gorm.io/gorm"
)

type ProfileRepository struct {
	db *gorm.DB
}

func NewProfileRepository(db *gorm.DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

func (r *ProfileRepository) Save(ctx context.Context, p *gamification.PointsProfile) error {
	if err := inTx(ctx, r.db, func(tx *gorm.DB) error { return r.saveWithTx(tx, p) }); err != nil {
		return err
	}
	p.MarkPersisted()
	return nil
}

func (r *ProfileRepository) saveWithTx(tx *gorm.DB, p *gamification.PointsProfile) error {
	profilePO := po.FromProfileDomain(p)

	if p.IsNew() {
		if err := tx.Create(profilePO).Error; err != nil {
			if isDuplicateKeyError(err) {
				// 两个请求同时为同一用户建档，后到者重读重试
				return shared.NewConcurrentModificationError("points_profile", p.UserID())
			}
			return err
		}
		return nil
	}

	expectedVersion := p.Version()
	result := tx.Model(&po.PointsProfilePO{}).
		Where("user_id = ? AND version = ?", p.UserID(), expectedVersion).
		Updates(map[string]any{
			"total_points":       profilePO.TotalPoints,
			"current_streak":     profilePO.CurrentStreak,
			"longest_streak":     profilePO.LongestStreak,
			"last_activity_date": profilePO.LastActivityDate,
			"version":            expectedVersion + 1,
			"updated_at":         profilePO.UpdatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		var count int64
		if err := tx.Model(&po.PointsProfilePO{}).Where("user_id = ?", p.UserID()).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return shared.NewNotFoundError("points_profile")
		}
		return shared.NewConcurrentModificationError("points_profile", p.UserID())
	}
	return nil
}

func (r *ProfileRepository) FindByUserID(ctx context.Context, userID string) (*gamification.PointsProfile, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	var profilePO po.PointsProfilePO
	if err := dbFrom(ctx, r.db).First(&profilePO, "user_id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return profilePO.ToDomain(), nil
}

var _ gamification.Repository = (*ProfileRepository)(nil)
