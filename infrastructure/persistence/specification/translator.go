/*
Package specification 把领域规格翻译成 GORM 查询条件。
*/
package specification

import (
	"fitquest/domain/competition"
	"fitquest/domain/shared"

	"gorm.io/gorm/clause"
)

// MemberTranslator 翻译 LeagueMember 的规格。
// 含有未知规格时返回 false，调用方应改为在内存中过滤。
type MemberTranslator struct{}

func (t MemberTranslator) Translate(spec shared.Specification[*competition.LeagueMember]) (clause.Expression, bool) {
	switch s := spec.(type) {
	case nil:
		return nil, false
	case shared.AndSpecification[*competition.LeagueMember]:
		return t.binary(s.Left, s.Right, func(l, r clause.Expression) clause.Expression { return clause.And(l, r) })
	case shared.OrSpecification[*competition.LeagueMember]:
		return t.binary(s.Left, s.Right, func(l, r clause.Expression) clause.Expression { return clause.Or(l, r) })
	case shared.NotSpecification[*competition.LeagueMember]:
		inner, ok := t.Translate(s.Spec)
		if !ok {
			return nil, false
		}
		return clause.Not(inner), true
	case competition.InRoomSpecification:
		return clause.Eq{Column: "room_id", Value: s.RoomID}, true
	case competition.ForWeekSpecification:
		return clause.Eq{Column: "week_id", Value: s.Week.String()}, true
	case competition.MinPointsSpecification:
		return clause.Gte{Column: "points_in_room", Value: s.Min}, true
	default:
		return nil, false
	}
}

func (t MemberTranslator) binary(
	left, right shared.Specification[*competition.LeagueMember],
	combine func(l, r clause.Expression) clause.Expression,
) (clause.Expression, bool) {
	l, ok := t.Translate(left)
	if !ok {
		return nil, false
	}
	r, ok := t.Translate(right)
	if !ok {
		return nil, false
	}
	return combine(l, r), true
}
