package po

import (
	"fmt"
	"time"

	"fitquest/domain/competition"
	"fitquest/domain/shared"
)

// LeagueMemberPO 主键 (user_id, week_id) 保证一个用户每周只在一个房间
type LeagueMemberPO struct {
	UserID       string `gorm:"primaryKey;size:64"`
	WeekID       string `gorm:"primaryKey;size:8"`
	RoomID       string `gorm:"size:64;not null;index:idx_room_week,priority:1"`
	PointsInRoom int    `gorm:"not null;default:0"`
	JoinedAt     time.Time
	UpdatedAt    time.Time
	Version      int `gorm:"not null;default:0"`
}

func (LeagueMemberPO) TableName() string {
	return "league_members"
}

func FromMemberDomain(m *competition.LeagueMember) *LeagueMemberPO {
	dto := m.ToDTO()
	return &LeagueMemberPO{
		UserID:       dto.UserID,
		WeekID:       dto.WeekID.String(),
		RoomID:       dto.RoomID,
		PointsInRoom: dto.PointsInRoom,
		JoinedAt:     dto.JoinedAt,
		UpdatedAt:    dto.UpdatedAt,
		Version:      dto.Version,
	}
}

func (po *LeagueMemberPO) ToDomain() (*competition.LeagueMember, error) {
	week, err := shared.ParseWeekID(po.WeekID)
	if err != nil {
		return nil, fmt.Errorf("league member %s: %w", po.UserID, err)
	}
	return competition.RebuildFromDTO(competition.ReconstructionDTO{
		UserID:       po.UserID,
		WeekID:       week,
		RoomID:       po.RoomID,
		PointsInRoom: po.PointsInRoom,
		JoinedAt:     po.JoinedAt,
		UpdatedAt:    po.UpdatedAt,
		Version:      po.Version,
	}), nil
}
