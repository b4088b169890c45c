/*
Package gamification 积分记录与连续打卡检查。
*/
package gamification

import (
	"context"
	"time"

	"fitquest/domain/gamification"
	"fitquest/domain/identity"
	"fitquest/domain/shared"
)

// PermissionChecker 跨模块查询健康数据授权，由 identity 模块的适配器实现
type PermissionChecker interface {
	HasHealthPermission(ctx context.Context, userID string, scope identity.HealthScope) (bool, error)
}

// 需要健康数据授权的积分来源
var requiredScope = map[gamification.SourceType]identity.HealthScope{
	gamification.SourceWorkout: identity.ScopeWorkouts,
	gamification.SourceSteps:   identity.ScopeSteps,
}

type ApplicationService struct {
	profiles    gamification.Repository
	uows        shared.UnitOfWorkFactory
	permissions PermissionChecker
	now         func() time.Time
}

// NewApplicationService permissions 为 nil 时不校验授权
func NewApplicationService(profiles gamification.Repository, uows shared.UnitOfWorkFactory, permissions PermissionChecker) *ApplicationService {
	return &ApplicationService{
		profiles:    profiles,
		uows:        uows,
		permissions: permissions,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

type EarnPointsRequest struct {
	UserID string `json:"-"`
	Points int    `json:"points" binding:"required"`
	Source string `json:"source" binding:"required"`
	// LogDate 活动发生的日期，为空表示今天
	LogDate *time.Time `json:"log_date"`
}

type ProfileResponse struct {
	UserID           string     `json:"user_id"`
	TotalPoints      int        `json:"total_points"`
	CurrentStreak    int        `json:"current_streak"`
	LongestStreak    int        `json:"longest_streak"`
	LastActivityDate *time.Time `json:"last_activity_date,omitempty"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// EarnPoints 记一次得分；档案不存在时先创建
func (s *ApplicationService) EarnPoints(ctx context.Context, req EarnPointsRequest) (*ProfileResponse, error) {
	source := gamification.SourceType(req.Source)
	if err := s.checkPermission(ctx, req.UserID, source); err != nil {
		return nil, err
	}

	now := s.now()
	logDate := now
	if req.LogDate != nil {
		logDate = *req.LogDate
	}
	if logDate.After(now) {
		return nil, shared.NewValidationError("points_profile", "log_date", "log date is in the future")
	}

	var profile *gamification.PointsProfile
	uow := s.uows.New()
	err := uow.Execute(ctx, func(ctx context.Context) error {
		var err error
		profile, err = s.loadOrCreate(ctx, req.UserID, now)
		if err != nil {
			return err
		}
		if r := profile.EarnPoints(req.Points, source, logDate, now); r.IsFailure() {
			return shared.FromResultError("points_profile", r.Error())
		}
		return s.save(ctx, uow, profile)
	})
	if err != nil {
		return nil, err
	}
	return toProfileResponse(profile), nil
}

// BreakStreak 日终检查，asOf 前一天没有活动时中断连续打卡。
// 返回是否发生了中断；用户没有档案时视为无需处理。
func (s *ApplicationService) BreakStreak(ctx context.Context, userID string, asOf time.Time) (bool, error) {
	broken := false
	uow := s.uows.New()
	err := uow.Execute(ctx, func(ctx context.Context) error {
		broken = false
		profile, err := s.profiles.FindByUserID(ctx, userID)
		if err != nil || profile == nil {
			return err
		}
		if !profile.BreakStreak(asOf, s.now()) {
			return nil
		}
		broken = true
		return s.save(ctx, uow, profile)
	})
	return broken, err
}

func (s *ApplicationService) GetProfile(ctx context.Context, userID string) (*ProfileResponse, error) {
	profile, err := s.profiles.FindByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, shared.NewNotFoundError("points_profile")
	}
	return toProfileResponse(profile), nil
}

func (s *ApplicationService) checkPermission(ctx context.Context, userID string, source gamification.SourceType) error {
	scope, ok := requiredScope[source]
	if !ok || s.permissions == nil {
		return nil
	}
	granted, err := s.permissions.HasHealthPermission(ctx, userID, scope)
	if err != nil {
		return err
	}
	if !granted {
		return shared.NewForbiddenError("points_profile", "health permission not granted: "+string(scope))
	}
	return nil
}

func (s *ApplicationService) loadOrCreate(ctx context.Context, userID string, now time.Time) (*gamification.PointsProfile, error) {
	profile, err := s.profiles.FindByUserID(ctx, userID)
	if err != nil || profile != nil {
		return profile, err
	}
	r := gamification.NewPointsProfile(userID, now)
	if r.IsFailure() {
		return nil, shared.FromResultError("points_profile", r.Error())
	}
	return r.Value(), nil
}

func (s *ApplicationService) save(ctx context.Context, uow shared.UnitOfWork, profile *gamification.PointsProfile) error {
	isNew := profile.IsNew()
	if err := s.profiles.Save(ctx, profile); err != nil {
		return err
	}
	if isNew {
		uow.RegisterNew(profile)
	} else {
		uow.RegisterDirty(profile)
	}
	return nil
}

func toProfileResponse(p *gamification.PointsProfile) *ProfileResponse {
	out := &ProfileResponse{
		UserID:        p.UserID(),
		TotalPoints:   p.TotalPoints(),
		CurrentStreak: p.CurrentStreak(),
		LongestStreak: p.LongestStreak(),
		UpdatedAt:     p.UpdatedAt(),
	}
	if d := p.LastActivityDate(); !d.IsZero() {
		out.LastActivityDate = &d
	}
	return out
}
