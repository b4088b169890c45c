/*
Package competition 联赛房间的应用服务与积分事件处理器。
*/
package competition

import (
	"context"
	"time"

	"fitquest/domain/competition"
	"fitquest/domain/shared"
)

type ApplicationService struct {
	members competition.Repository
	uows    shared.UnitOfWorkFactory
	now     func() time.Time
}

func NewApplicationService(members competition.Repository, uows shared.UnitOfWorkFactory) *ApplicationService {
	return &ApplicationService{
		members: members,
		uows:    uows,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

type JoinRoomRequest struct {
	UserID string `json:"-"`
	RoomID string `json:"room_id" binding:"required"`
	// Week 为空表示当前周，格式 2025-W11
	Week string `json:"week"`
}

type MembershipResponse struct {
	UserID       string    `json:"user_id"`
	RoomID       string    `json:"room_id"`
	Week         string    `json:"week"`
	PointsInRoom int       `json:"points_in_room"`
	JoinedAt     time.Time `json:"joined_at"`
}

type StandingResponse struct {
	Rank         int    `json:"rank"`
	UserID       string `json:"user_id"`
	PointsInRoom int    `json:"points_in_room"`
}

type StandingsResponse struct {
	RoomID    string             `json:"room_id"`
	Week      string             `json:"week"`
	Standings []StandingResponse `json:"standings"`
}

func (s *ApplicationService) resolveWeek(raw string) (shared.WeekID, error) {
	if raw == "" {
		return shared.WeekIDFromDate(s.now()), nil
	}
	week, err := shared.ParseWeekID(raw)
	if err != nil {
		return shared.WeekID{}, shared.NewValidationError("league_member", "week", err.Error())
	}
	return week, nil
}

// JoinRoom 加入某周的房间；同一周重复加入返回冲突
func (s *ApplicationService) JoinRoom(ctx context.Context, req JoinRoomRequest) (*MembershipResponse, error) {
	week, err := s.resolveWeek(req.Week)
	if err != nil {
		return nil, err
	}

	var member *competition.LeagueMember
	uow := s.uows.New()
	err = uow.Execute(ctx, func(ctx context.Context) error {
		existing, err := s.members.FindByUserAndWeek(ctx, req.UserID, week)
		if err != nil {
			return err
		}
		if existing != nil {
			return competition.NewMemberAlreadyJoinedError(existing.Key())
		}

		r := competition.JoinRoom(req.UserID, req.RoomID, week, s.now())
		if r.IsFailure() {
			return shared.FromResultError("league_member", r.Error())
		}
		member = r.Value()
		if err := s.members.Save(ctx, member); err != nil {
			return err
		}
		uow.RegisterNew(member)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return toMembershipResponse(member), nil
}

func (s *ApplicationService) GetMembership(ctx context.Context, userID, rawWeek string) (*MembershipResponse, error) {
	week, err := s.resolveWeek(rawWeek)
	if err != nil {
		return nil, err
	}
	member, err := s.members.FindByUserAndWeek(ctx, userID, week)
	if err != nil {
		return nil, err
	}
	if member == nil {
		return nil, shared.NewNotFoundError("league_member")
	}
	return toMembershipResponse(member), nil
}

// Standings 房间某周的排名
func (s *ApplicationService) Standings(ctx context.Context, roomID, rawWeek string) (*StandingsResponse, error) {
	week, err := s.resolveWeek(rawWeek)
	if err != nil {
		return nil, err
	}
	members, err := s.members.FindBySpecification(ctx, competition.RoomWeekSpecification(roomID, week))
	if err != nil {
		return nil, err
	}

	ranked := competition.RankStandings(members)
	out := &StandingsResponse{
		RoomID:    roomID,
		Week:      week.String(),
		Standings: make([]StandingResponse, len(ranked)),
	}
	for i, st := range ranked {
		out.Standings[i] = StandingResponse{Rank: st.Rank, UserID: st.UserID, PointsInRoom: st.PointsInRoom}
	}
	return out, nil
}

func toMembershipResponse(m *competition.LeagueMember) *MembershipResponse {
	return &MembershipResponse{
		UserID:       m.UserID(),
		RoomID:       m.RoomID(),
		Week:         m.WeekID().String(),
		PointsInRoom: m.PointsInRoom(),
		JoinedAt:     m.JoinedAt(),
	}
}
