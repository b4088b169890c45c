package database

import (
	"context"
	"errors"
	"strings"

	"fitquest/domain/identity"
	"fitquest/domain/shared"
	"fitquest/infrastructure/persistence/database/po"

	"gorm.io/gorm"
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Save(ctx context.Context, u *identity.User) error {
	if err := inTx(ctx, r.db, func(tx *gorm.DB) error { return r.saveWithTx(tx, u) }); err != nil {
		return err
	}
	u.MarkPersisted()
	return nil
}

func (r *UserRepository) saveWithTx(tx *gorm.DB, u *identity.User) error {
	userPO := po.FromUserDomain(u)

	if u.IsNew() {
		if err := tx.Create(userPO).Error; err != nil {
			if isDuplicateKeyError(err) {
				return identity.NewEmailAlreadyExistsError(userPO.Email)
			}
			return err
		}
		return nil
	}

	expectedVersion := u.Version()
	userPO.Version = expectedVersion + 1

	// 结构体更新才会经过 json 序列化器；Select 保证零值字段也写入
	result := tx.Model(&po.UserPO{}).
		Where("id = ? AND version = ?", u.ID(), expectedVersion).
		Select("display_name", "email", "permissions", "device_tokens", "version", "updated_at").
		Updates(userPO)
	if result.Error != nil {
		if isDuplicateKeyError(result.Error) {
			return identity.NewEmailAlreadyExistsError(userPO.Email)
		}
		return result.Error
	}
	if result.RowsAffected == 0 {
		var count int64
		if err := tx.Model(&po.UserPO{}).Where("id = ?", u.ID()).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return identity.NewUserNotFoundError(u.ID())
		}
		return shared.NewConcurrentModificationError("user", u.ID())
	}
	return nil
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (*identity.User, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	var userPO po.UserPO
	if err := dbFrom(ctx, r.db).First(&userPO, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, identity.NewUserNotFoundError(id)
		}
		return nil, err
	}
	return userPO.ToDomain(), nil
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*identity.User, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	var userPO po.UserPO
	normalized := strings.ToLower(strings.TrimSpace(email))
	if err := dbFrom(ctx, r.db).First(&userPO, "email = ?", normalized).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewNotFoundError("user")
		}
		return nil, err
	}
	return userPO.ToDomain(), nil
}

var _ identity.Repository = (*UserRepository)(nil)
