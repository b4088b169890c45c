package database

import (
	"context"
	"errors"

	"fitquest/domain/competition"
	"fitquest/domain/shared"
	"fitquest/infrastructure/persistence/database/po"
	"fitquest/infrastructure/persistence/specification"

	"gorm.io/gorm"
)

type MemberRepository struct {
	db         *gorm.DB
	translator specification.MemberTranslator
}

func NewMemberRepository(db *gorm.DB) *MemberRepository {
	return &MemberRepository{db: db}
}

func (r *MemberRepository) Save(ctx context.Context, m *competition.LeagueMember) error {
	if err := inTx(ctx, r.db, func(tx *gorm.DB) error { return r.saveWithTx(tx, m) }); err != nil {
		return err
	}
	m.MarkPersisted()
	return nil
}

func (r *MemberRepository) saveWithTx(tx *gorm.DB, m *competition.LeagueMember) error {
	memberPO := po.FromMemberDomain(m)

	if m.IsNew() {
		if err := tx.Create(memberPO).Error; err != nil {
			if isDuplicateKeyError(err) {
				return competition.NewMemberAlreadyJoinedError(m.Key())
			}
			return err
		}
		return nil
	}

	expectedVersion := m.Version()
	result := tx.Model(&po.LeagueMemberPO{}).
		Where("user_id = ? AND week_id = ? AND version = ?", memberPO.UserID, memberPO.WeekID, expectedVersion).
		Updates(map[string]any{
			"room_id":        memberPO.RoomID,
			"points_in_room": memberPO.PointsInRoom,
			"version":        expectedVersion + 1,
			"updated_at":     memberPO.UpdatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		var count int64
		if err := tx.Model(&po.LeagueMemberPO{}).
			Where("user_id = ? AND week_id = ?", memberPO.UserID, memberPO.WeekID).
			Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return shared.NewNotFoundError("league_member")
		}
		return shared.NewConcurrentModificationError("league_member", m.Key().String())
	}
	return nil
}

func (r *MemberRepository) FindByUserAndWeek(ctx context.Context, userID string, week shared.WeekID) (*competition.LeagueMember, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	var memberPO po.LeagueMemberPO
	err := dbFrom(ctx, r.db).
		First(&memberPO, "user_id = ? AND week_id = ?", userID, week.String()).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return memberPO.ToDomain()
}

// FindBySpecification 能翻译的规格下推到 SQL，否则取全表后在内存过滤
func (r *MemberRepository) FindBySpecification(ctx context.Context, spec shared.Specification[*competition.LeagueMember]) ([]*competition.LeagueMember, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	db := dbFrom(ctx, r.db).Order("user_id ASC").Order("week_id ASC")
	pushedDown := false
	if spec != nil {
		if expr, ok := r.translator.Translate(spec); ok {
			db = db.Where(expr)
			pushedDown = true
		}
	}

	var memberPOs []po.LeagueMemberPO
	if err := db.Find(&memberPOs).Error; err != nil {
		return nil, err
	}
	members := make([]*competition.LeagueMember, 0, len(memberPOs))
	for i := range memberPOs {
		m, err := memberPOs[i].ToDomain()
		if err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	if !pushedDown {
		members = shared.Filter(ctx, spec, members)
	}
	return members, nil
}

var _ competition.Repository = (*MemberRepository)(nil)
