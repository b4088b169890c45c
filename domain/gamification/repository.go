/*
Package gamification 积分与连续打卡。
*/
package gamification

import "context"

// SourceType 积分来源
type SourceType string

const (
	SourceWorkout   SourceType = "workout"
	SourceSteps     SourceType = "steps"
	SourceMission   SourceType = "mission"
	SourceChallenge SourceType = "challenge"
)

func (s SourceType) IsValid() bool {
	switch s {
	case SourceWorkout, SourceSteps, SourceMission, SourceChallenge:
		return true
	}
	return false
}

// Repository 积分档案仓储，档案不存在时 FindByUserID 返回 (nil, nil)
type Repository interface {
	Save(ctx context.Context, profile *PointsProfile) error
	FindByUserID(ctx context.Context, userID string) (*PointsProfile, error)
}

