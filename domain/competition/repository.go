/*
Package competition 每周联赛房间与积分。
*/
package competition

import (
	"context"
	"errors"
	"time"

	"fitquest/domain/shared"
)

// Repository 联赛成员仓储
type Repository interface {
	// Save 新建或按版本号更新；版本不匹配返回 shared.ErrConcurrentModification，
	// 同一 (UserID, WeekID) 重复新建返回 shared.ErrConflict
	Save(ctx context.Context, member *LeagueMember) error

	// FindByUserAndWeek 不存在时返回 (nil, nil)
	FindByUserAndWeek(ctx context.Context, userID string, week shared.WeekID) (*LeagueMember, error)

	FindBySpecification(ctx context.Context, spec shared.Specification[*LeagueMember]) ([]*LeagueMember, error)
}

// ProcessedEventLedger 消费者幂等账本
// 记录 (consumer, eventID)，与业务写入在同一事务中提交。
type ProcessedEventLedger interface {
	IsProcessed(ctx context.Context, consumer, eventID string) (bool, error)
	MarkProcessed(ctx context.Context, consumer, eventID string, processedAt time.Time) error
}

var ErrAlreadyJoined = errors.New("already joined a room this week")

// NewMemberAlreadyJoinedError 同时匹配 ErrAlreadyJoined 与 shared.ErrConflict
func NewMemberAlreadyJoinedError(key MemberKey) error {
	return &shared.DomainError{
		Err:     errors.Join(ErrAlreadyJoined, shared.ErrConflict),
		Entity:  "league_member",
		Message: "user already joined a room for " + key.String(),
	}
}
