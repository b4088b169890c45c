package po

import (
	"time"

	"fitquest/domain/identity"
)

type UserPO struct {
	ID           string                 `gorm:"primaryKey;size:64"`
	DisplayName  string                 `gorm:"size:100;not null"`
	Email        string                 `gorm:"size:255;uniqueIndex;not null"`
	Permissions  []identity.HealthScope `gorm:"serializer:json;type:text"`
	DeviceTokens []string               `gorm:"serializer:json;type:text"`
	Version      int                    `gorm:"not null;default:0"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (UserPO) TableName() string {
	return "users"
}

func FromUserDomain(u *identity.User) *UserPO {
	dto := u.ToDTO()
	return &UserPO{
		ID:           dto.ID,
		DisplayName:  dto.DisplayName,
		Email:        dto.Email,
		Permissions:  dto.Permissions,
		DeviceTokens: dto.DeviceTokens,
		Version:      dto.Version,
		CreatedAt:    dto.CreatedAt,
		UpdatedAt:    dto.UpdatedAt,
	}
}

func (po *UserPO) ToDomain() *identity.User {
	return identity.RebuildFromDTO(identity.ReconstructionDTO{
		ID:           po.ID,
		DisplayName:  po.DisplayName,
		Email:        po.Email,
		Permissions:  po.Permissions,
		DeviceTokens: po.DeviceTokens,
		Version:      po.Version,
		CreatedAt:    po.CreatedAt,
		UpdatedAt:    po.UpdatedAt,
	})
}
