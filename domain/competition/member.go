package competition

import (
	"fmt"
	"iter"
	"strings"
	"time"

	"fitquest/domain/shared"
)

// MemberKey (UserID, WeekID) 唯一确定一条联赛成员记录
type MemberKey struct {
	UserID string
	WeekID shared.WeekID
}

func (k MemberKey) String() string {
	return k.UserID + ":" + k.WeekID.String()
}

// LockKey 读-改-写串行化使用的锁键
func (k MemberKey) LockKey() string {
	return "league:" + k.String()
}

// LeagueMember 用户在某个 ISO 周所在房间的积分记录
// PointsInRoom 非负且单调不减，只能通过 AwardPoints 增加。
type LeagueMember struct {
	userID       string
	weekID       shared.WeekID
	roomID       string
	pointsInRoom int
	joinedAt     time.Time
	updatedAt    time.Time
	version      int
	isNew        bool

	recorder shared.EventRecorder
}

// JoinRoom 用户加入某周的房间，积分从 0 开始
func JoinRoom(userID, roomID string, week shared.WeekID, now time.Time) shared.ResultOf[*LeagueMember] {
	userID = strings.TrimSpace(userID)
	roomID = strings.TrimSpace(roomID)
	if userID == "" {
		return shared.FailureOf[*LeagueMember](shared.ValidationError("user id is required"))
	}
	if roomID == "" {
		return shared.FailureOf[*LeagueMember](shared.ValidationError("room id is required"))
	}
	if week.IsZero() {
		return shared.FailureOf[*LeagueMember](shared.ValidationError("week is required"))
	}

	m := &LeagueMember{
		userID:    userID,
		weekID:    week,
		roomID:    roomID,
		joinedAt:  now,
		updatedAt: now,
		isNew:     true,
	}
	m.recorder.Record(MemberJoinedRoom{
		EventMetadata: shared.NewEventMetadata(m.Key().String(), now),
		UserID:        userID,
		RoomID:        roomID,
		WeekID:        week.String(),
	})
	return shared.SuccessOf(m)
}

// AwardPoints 增加房间积分，points 必须为正
func (m *LeagueMember) AwardPoints(points int, sourceEventID string, now time.Time) shared.Result {
	if points <= 0 {
		return shared.Failure(shared.ValidationError(fmt.Sprintf("points must be positive, got %d", points)))
	}
	m.pointsInRoom += points
	m.updatedAt = now
	m.recorder.Record(LeaguePointsAwarded{
		EventMetadata: shared.NewEventMetadata(m.Key().String(), now),
		UserID:        m.userID,
		RoomID:        m.roomID,
		WeekID:        m.weekID.String(),
		Points:        points,
		PointsInRoom:  m.pointsInRoom,
		SourceEventID: sourceEventID,
	})
	return shared.Success()
}

func (m *LeagueMember) Key() MemberKey {
	return MemberKey{UserID: m.userID, WeekID: m.weekID}
}

func (m *LeagueMember) ID() string            { return m.Key().String() }
func (m *LeagueMember) UserID() string        { return m.userID }
func (m *LeagueMember) WeekID() shared.WeekID { return m.weekID }
func (m *LeagueMember) RoomID() string        { return m.roomID }
func (m *LeagueMember) PointsInRoom() int     { return m.pointsInRoom }
func (m *LeagueMember) JoinedAt() time.Time   { return m.joinedAt }
func (m *LeagueMember) UpdatedAt() time.Time  { return m.updatedAt }
func (m *LeagueMember) Version() int          { return m.version }
func (m *LeagueMember) IsNew() bool           { return m.isNew }

func (m *LeagueMember) RecordedEvents() iter.Seq[shared.DomainEvent] { return m.recorder.Events() }
func (m *LeagueMember) ClearRecordedEvents()                         { m.recorder.Clear() }

func (m *LeagueMember) MarkPersisted() {
	if !m.isNew {
		m.version++
	}
	m.isNew = false
}

// ReconstructionDTO 仅限仓储层使用
type ReconstructionDTO struct {
	UserID       string
	WeekID       shared.WeekID
	RoomID       string
	PointsInRoom int
	JoinedAt     time.Time
	UpdatedAt    time.Time
	Version      int
}

func RebuildFromDTO(dto ReconstructionDTO) *LeagueMember {
	return &LeagueMember{
		userID:       dto.UserID,
		weekID:       dto.WeekID,
		roomID:       dto.RoomID,
		pointsInRoom: dto.PointsInRoom,
		joinedAt:     dto.JoinedAt,
		updatedAt:    dto.UpdatedAt,
		version:      dto.Version,
	}
}

func (m *LeagueMember) ToDTO() ReconstructionDTO {
	return ReconstructionDTO{
		UserID:       m.userID,
		WeekID:       m.weekID,
		RoomID:       m.roomID,
		PointsInRoom: m.pointsInRoom,
		JoinedAt:     m.joinedAt,
		UpdatedAt:    m.updatedAt,
		Version:      m.version,
	}
}

var _ shared.AggregateRoot = (*LeagueMember)(nil)
