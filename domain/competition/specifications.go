package competition

import (
	"context"

	"fitquest/domain/shared"
)

type InRoomSpecification struct {
	RoomID string
}

func (s InRoomSpecification) IsSatisfiedBy(_ context.Context, m *LeagueMember) bool {
	return m.RoomID() == s.RoomID
}

type ForWeekSpecification struct {
	Week shared.WeekID
}

func (s ForWeekSpecification) IsSatisfiedBy(_ context.Context, m *LeagueMember) bool {
	return m.WeekID() == s.Week
}

type MinPointsSpecification struct {
	Min int
}

func (s MinPointsSpecification) IsSatisfiedBy(_ context.Context, m *LeagueMember) bool {
	return m.PointsInRoom() >= s.Min
}

// RoomWeekSpecification 某房间某周的全部成员
func RoomWeekSpecification(roomID string, week shared.WeekID) shared.Specification[*LeagueMember] {
	return shared.And[*LeagueMember](InRoomSpecification{RoomID: roomID}, ForWeekSpecification{Week: week})
}
