package gamification

import (
	"time"

	"fitquest/domain/shared"
)

const (
	EventTypeUserPointsEarned shared.EventType = "gamification.user_points_earned"
	EventTypeStreakLost       shared.EventType = "gamification.streak_lost"
)

// UserPointsEarned 用户获得积分
// LogDate 是活动发生的日期，下游按它归属 ISO 周。
type UserPointsEarned struct {
	shared.EventMetadata
	UserID       string     `json:"user_id"`
	PointsEarned int        `json:"points_earned"`
	SourceType   SourceType `json:"source_type"`
	LogDate      time.Time  `json:"log_date"`
}

func (UserPointsEarned) EventType() shared.EventType { return EventTypeUserPointsEarned }

// StreakLost 连续打卡中断
type StreakLost struct {
	shared.EventMetadata
	UserID           string    `json:"user_id"`
	LostStreak       int       `json:"lost_streak"`
	LastActivityDate time.Time `json:"last_activity_date"`
}

func (StreakLost) EventType() shared.EventType { return EventTypeStreakLost }
