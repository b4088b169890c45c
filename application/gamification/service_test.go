package gamification

import (
	"context"
	"testing"
	"time"

	appcompetition "fitquest/application/competition"
	"fitquest/domain/competition"
	"fitquest/domain/gamification"
	"fitquest/domain/identity"
	"fitquest/domain/shared"
	"fitquest/infrastructure/eventbus"
	"fitquest/infrastructure/locking"
	"fitquest/infrastructure/persistence/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2025, 3, 12, 9, 0, 0, 0, time.UTC)

type fakePermissions map[identity.HealthScope]bool

func (f fakePermissions) HasHealthPermission(_ context.Context, _ string, scope identity.HealthScope) (bool, error) {
	return f[scope], nil
}

type app struct {
	store    *memory.Store
	profiles *memory.ProfileRepository
	members  *memory.MemberRepository
	service  *ApplicationService
	streaks  []gamification.StreakLost
}

// newApp 内存存储 + 真实分发器，联赛处理器订阅积分事件
func newApp(t *testing.T, perms PermissionChecker) *app {
	t.Helper()
	store := memory.NewStore()
	uows := memory.NewUnitOfWorkFactory(store, nil)
	a := &app{
		store:    store,
		profiles: memory.NewProfileRepository(store),
		members:  memory.NewMemberRepository(store),
	}

	league := appcompetition.NewLeaguePointsHandler(a.members, uows, locking.NewKeyedMutex(),
		appcompetition.WithLedger(memory.NewLedgerRepository(store), 16))
	b := eventbus.NewBuilder()
	eventbus.Subscribe[gamification.UserPointsEarned](b, league, eventbus.WithName("league_points"))
	eventbus.Subscribe[gamification.StreakLost](b, eventbus.HandlerFunc[gamification.StreakLost](
		func(_ context.Context, e gamification.StreakLost) error {
			a.streaks = append(a.streaks, e)
			return nil
		}), eventbus.WithName("streak_recorder"))
	d, err := b.Build()
	require.NoError(t, err)
	uows.SetPublisher(d)

	a.service = NewApplicationService(a.profiles, uows, perms)
	a.service.now = func() time.Time { return now }
	return a
}

func (a *app) join(t *testing.T, userID string, points int) {
	t.Helper()
	m := competition.JoinRoom(userID, "room-1", shared.WeekIDFromDate(now), now).Value()
	if points > 0 {
		require.True(t, m.AwardPoints(points, "seed", now).IsSuccess())
	}
	require.NoError(t, a.members.Save(context.Background(), m))
}

func (a *app) leaguePoints(t *testing.T, userID string) int {
	t.Helper()
	m, err := a.members.FindByUserAndWeek(context.Background(), userID, shared.WeekIDFromDate(now))
	require.NoError(t, err)
	require.NotNil(t, m)
	return m.PointsInRoom()
}

func TestEarnPoints_PropagatesToLeague(t *testing.T) {
	a := newApp(t, nil)
	a.join(t, "u1", 40)

	resp, err := a.service.EarnPoints(context.Background(), EarnPointsRequest{
		UserID: "u1", Points: 15, Source: string(gamification.SourceWorkout),
	})
	require.NoError(t, err)

	assert.Equal(t, 15, resp.TotalPoints)
	assert.Equal(t, 1, resp.CurrentStreak)
	assert.Equal(t, 55, a.leaguePoints(t, "u1"))
}

func TestEarnPoints_WithoutMembershipOnlyUpdatesProfile(t *testing.T) {
	a := newApp(t, nil)

	_, err := a.service.EarnPoints(context.Background(), EarnPointsRequest{
		UserID: "u1", Points: 15, Source: string(gamification.SourceMission),
	})
	require.NoError(t, err)

	m, err := a.members.FindByUserAndWeek(context.Background(), "u1", shared.WeekIDFromDate(now))
	require.NoError(t, err)
	assert.Nil(t, m)

	p, err := a.service.GetProfile(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, 15, p.TotalPoints)
}

func TestEarnPoints_Validation(t *testing.T) {
	a := newApp(t, nil)
	future := now.Add(48 * time.Hour)

	cases := []EarnPointsRequest{
		{UserID: "u1", Points: 0, Source: "workout"},
		{UserID: "u1", Points: 10, Source: "sleeping"},
		{UserID: "u1", Points: 10, Source: "workout", LogDate: &future},
	}
	for _, req := range cases {
		_, err := a.service.EarnPoints(context.Background(), req)
		assert.ErrorIs(t, err, shared.ErrInvalidInput)
	}
	_, err := a.service.GetProfile(context.Background(), "u1")
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestEarnPoints_RequiresHealthPermission(t *testing.T) {
	a := newApp(t, fakePermissions{identity.ScopeSteps: true})

	_, err := a.service.EarnPoints(context.Background(), EarnPointsRequest{UserID: "u1", Points: 5, Source: "workout"})
	assert.ErrorIs(t, err, shared.ErrForbidden)

	_, err = a.service.EarnPoints(context.Background(), EarnPointsRequest{UserID: "u1", Points: 5, Source: "steps"})
	assert.NoError(t, err)

	// 任务积分不依赖健康数据
	_, err = a.service.EarnPoints(context.Background(), EarnPointsRequest{UserID: "u1", Points: 5, Source: "mission"})
	assert.NoError(t, err)
}

func TestEarnPoints_StreakAcrossDays(t *testing.T) {
	a := newApp(t, nil)
	for i := 2; i >= 0; i-- {
		day := now.AddDate(0, 0, -i)
		_, err := a.service.EarnPoints(context.Background(), EarnPointsRequest{
			UserID: "u1", Points: 5, Source: "mission", LogDate: &day,
		})
		require.NoError(t, err)
	}

	p, err := a.service.GetProfile(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, 3, p.CurrentStreak)
	assert.Equal(t, 3, p.LongestStreak)
	assert.Equal(t, 15, p.TotalPoints)
}

func TestBreakStreak(t *testing.T) {
	a := newApp(t, nil)
	_, err := a.service.EarnPoints(context.Background(), EarnPointsRequest{UserID: "u1", Points: 5, Source: "mission"})
	require.NoError(t, err)

	// 第二天检查：昨天有活动，不中断
	broken, err := a.service.BreakStreak(context.Background(), "u1", now.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.False(t, broken)
	assert.Empty(t, a.streaks)

	broken, err = a.service.BreakStreak(context.Background(), "u1", now.AddDate(0, 0, 3))
	require.NoError(t, err)
	assert.True(t, broken)
	require.Len(t, a.streaks, 1)
	assert.Equal(t, 1, a.streaks[0].LostStreak)

	p, err := a.service.GetProfile(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, 0, p.CurrentStreak)
	assert.Equal(t, 1, p.LongestStreak)
}

func TestBreakStreak_NoProfile(t *testing.T) {
	a := newApp(t, nil)
	broken, err := a.service.BreakStreak(context.Background(), "ghost", now)
	require.NoError(t, err)
	assert.False(t, broken)
}
