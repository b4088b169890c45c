package gamification

import (
	"fmt"
	"iter"
	"strings"
	"time"

	"fitquest/domain/shared"
)

// PointsProfile 用户积分与连续打卡聚合根
// 连续打卡按日历日计算：同一天多次得分不改变 streak，隔天得分 streak+1，
// 中断超过一天则记录 StreakLost 并从 1 重新开始。
type PointsProfile struct {
	userID           string
	totalPoints      int
	currentStreak    int
	longestStreak    int
	lastActivityDate time.Time
	version          int
	isNew            bool
	updatedAt        time.Time

	recorder shared.EventRecorder
}

func NewPointsProfile(userID string, now time.Time) shared.ResultOf[*PointsProfile] {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return shared.FailureOf[*PointsProfile](shared.ValidationError("user id is required"))
	}
	return shared.SuccessOf(&PointsProfile{
		userID:    userID,
		isNew:     true,
		updatedAt: now,
	})
}

// EarnPoints 记一次得分，logDate 是活动发生的日期（不是上报时间）
func (p *PointsProfile) EarnPoints(points int, source SourceType, logDate time.Time, now time.Time) shared.Result {
	if points <= 0 {
		return shared.Failure(shared.ValidationError(fmt.Sprintf("points must be positive, got %d", points)))
	}
	if !source.IsValid() {
		return shared.Failure(shared.ValidationError("unknown points source: " + string(source)))
	}
	if logDate.IsZero() {
		return shared.Failure(shared.ValidationError("log date is required"))
	}

	day := truncateToDay(logDate)
	p.advanceStreak(day, now)

	p.totalPoints += points
	p.updatedAt = now
	p.recorder.Record(UserPointsEarned{
		EventMetadata: shared.NewEventMetadata(p.userID, now),
		UserID:        p.userID,
		PointsEarned:  points,
		SourceType:    source,
		LogDate:       logDate,
	})
	return shared.Success()
}

// BreakStreak 日终检查：asOf 前一天没有活动则判定连续打卡中断。
// 返回是否真的中断；streak 仍有效或已为 0 时不产生事件。
func (p *PointsProfile) BreakStreak(asOf time.Time, now time.Time) bool {
	if p.currentStreak == 0 {
		return false
	}
	if daysBetween(p.lastActivityDate, truncateToDay(asOf)) <= 1 {
		return false
	}
	p.loseStreak(now)
	return true
}

func (p *PointsProfile) advanceStreak(day time.Time, now time.Time) {
	switch {
	case p.lastActivityDate.IsZero():
		p.currentStreak = 1
	case day.Before(p.lastActivityDate):
		// 补录历史日期不影响当前 streak
		return
	default:
		switch gap := daysBetween(p.lastActivityDate, day); {
		case gap == 0:
		case gap == 1:
			p.currentStreak++
		default:
			if p.currentStreak > 0 {
				p.loseStreak(now)
			}
			p.currentStreak = 1
		}
	}
	p.lastActivityDate = day
	if p.currentStreak > p.longestStreak {
		p.longestStreak = p.currentStreak
	}
}

func (p *PointsProfile) loseStreak(now time.Time) {
	lost := p.currentStreak
	p.currentStreak = 0
	p.updatedAt = now
	p.recorder.Record(StreakLost{
		EventMetadata:    shared.NewEventMetadata(p.userID, now),
		UserID:           p.userID,
		LostStreak:       lost,
		LastActivityDate: p.lastActivityDate,
	})
}

func (p *PointsProfile) ID() string                  { return p.userID }
func (p *PointsProfile) UserID() string              { return p.userID }
func (p *PointsProfile) TotalPoints() int            { return p.totalPoints }
func (p *PointsProfile) CurrentStreak() int          { return p.currentStreak }
func (p *PointsProfile) LongestStreak() int          { return p.longestStreak }
func (p *PointsProfile) LastActivityDate() time.Time { return p.lastActivityDate }
func (p *PointsProfile) Version() int                { return p.version }
func (p *PointsProfile) IsNew() bool                 { return p.isNew }
func (p *PointsProfile) UpdatedAt() time.Time        { return p.updatedAt }

func (p *PointsProfile) RecordedEvents() iter.Seq[shared.DomainEvent] { return p.recorder.Events() }
func (p *PointsProfile) ClearRecordedEvents()                         { p.recorder.Clear() }

func (p *PointsProfile) MarkPersisted() {
	if !p.isNew {
		p.version++
	}
	p.isNew = false
}

type ReconstructionDTO struct {
	UserID           string
	TotalPoints      int
	CurrentStreak    int
	LongestStreak    int
	LastActivityDate time.Time
	Version          int
	UpdatedAt        time.Time
}

func RebuildFromDTO(dto ReconstructionDTO) *PointsProfile {
	return &PointsProfile{
		userID:           dto.UserID,
		totalPoints:      dto.TotalPoints,
		currentStreak:    dto.CurrentStreak,
		longestStreak:    dto.LongestStreak,
		lastActivityDate: dto.LastActivityDate,
		version:          dto.Version,
		updatedAt:        dto.UpdatedAt,
	}
}

func (p *PointsProfile) ToDTO() ReconstructionDTO {
	return ReconstructionDTO{
		UserID:           p.userID,
		TotalPoints:      p.totalPoints,
		CurrentStreak:    p.currentStreak,
		LongestStreak:    p.longestStreak,
		LastActivityDate: p.lastActivityDate,
		Version:          p.version,
		UpdatedAt:        p.updatedAt,
	}
}

func truncateToDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func daysBetween(from, to time.Time) int {
	return int(to.Sub(from).Hours() / 24)
}

var _ shared.AggregateRoot = (*PointsProfile)(nil)
