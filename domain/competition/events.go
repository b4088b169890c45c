package competition

import "fitquest/domain/shared"

const (
	EventTypeMemberJoinedRoom    shared.EventType = "competition.member_joined_room"
	EventTypeLeaguePointsAwarded shared.EventType = "competition.league_points_awarded"
)

type MemberJoinedRoom struct {
	shared.EventMetadata
	UserID string `json:"user_id"`
	RoomID string `json:"room_id"`
	WeekID string `json:"week_id"`
}

func (MemberJoinedRoom) EventType() shared.EventType { return EventTypeMemberJoinedRoom }

// LeaguePointsAwarded 房间积分已累加；SourceEventID 指向触发它的上游事件
type LeaguePointsAwarded struct {
	shared.EventMetadata
	UserID        string `json:"user_id"`
	RoomID        string `json:"room_id"`
	WeekID        string `json:"week_id"`
	Points        int    `json:"points"`
	PointsInRoom  int    `json:"points_in_room"`
	SourceEventID string `json:"source_event_id"`
}

func (LeaguePointsAwarded) EventType() shared.EventType { return EventTypeLeaguePointsAwarded }
