package po

import (
	"time"

	"fitquest/domain/gamification"
)

type PointsProfilePO struct {
	UserID           string `gorm:"primaryKey;size:64"`
	TotalPoints      int    `gorm:"not null;default:0"`
	CurrentStreak    int    `gorm:"not null;default:0"`
	LongestStreak    int    `gorm:"not null;default:0"`
	LastActivityDate *time.Time
	Version          int `gorm:"not null;default:0"`
	UpdatedAt        time.Time
}

func (PointsProfilePO) TableName() string {
	return "points_profiles"
}

func FromProfileDomain(p *gamification.PointsProfile) *PointsProfilePO {
	dto := p.ToDTO()
	po := &PointsProfilePO{
		UserID:        dto.UserID,
		TotalPoints:   dto.TotalPoints,
		CurrentStreak: dto.CurrentStreak,
		LongestStreak: dto.LongestStreak,
		Version:       dto.Version,
		UpdatedAt:     dto.UpdatedAt,
	}
	// 没有活动记录时存 NULL
	if !dto.LastActivityDate.IsZero() {
		d := dto.LastActivityDate
		po.LastActivityDate = &d
	}
	return po
}

func (po *PointsProfilePO) ToDomain() *gamification.PointsProfile {
	dto := gamification.ReconstructionDTO{
		UserID:        po.UserID,
		TotalPoints:   po.TotalPoints,
		CurrentStreak: po.CurrentStreak,
		LongestStreak: po.LongestStreak,
		Version:       po.Version,
		UpdatedAt:     po.UpdatedAt,
	}
	if po.LastActivityDate != nil {
		dto.LastActivityDate = po.LastActivityDate.UTC()
	}
	return gamification.RebuildFromDTO(dto)
}
