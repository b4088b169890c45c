package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"fitquest/domain/competition"
	"fitquest/domain/gamification"
	"fitquest/domain/identity"
	"fitquest/domain/shared"
	"fitquest/pkg/retry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	now  = time.Date(2025, 3, 12, 9, 0, 0, 0, time.UTC)
	week = shared.WeekIDFromDate(now)
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []shared.DomainEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, e shared.DomainEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return p.err
}

func (p *recordingPublisher) Events() []shared.DomainEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]shared.DomainEvent(nil), p.events...)
}

type countingHooks struct {
	committed, rolledBack, dispatchFailed int
}

func (h *countingHooks) UnitOfWorkCommitted()  { h.committed++ }
func (h *countingHooks) UnitOfWorkRolledBack() { h.rolledBack++ }
func (h *countingHooks) DispatchFailed()       { h.dispatchFailed++ }

func joinMember(t *testing.T, store *Store, userID string) *competition.LeagueMember {
	t.Helper()
	r := competition.JoinRoom(userID, "room-1", week, now)
	require.True(t, r.IsSuccess())
	m := r.Value()
	require.NoError(t, NewMemberRepository(store).Save(context.Background(), m))
	m.ClearRecordedEvents()
	return m
}

func TestUnitOfWork_CommitThenDispatch(t *testing.T) {
	store := NewStore()
	pub := &recordingPublisher{}
	hooks := &countingHooks{}
	factory := NewUnitOfWorkFactory(store, pub).WithHooks(hooks)
	members := NewMemberRepository(store)
	joinMember(t, store, "u1")

	uow := factory.New()
	err := uow.Execute(context.Background(), func(ctx context.Context) error {
		m, err := members.FindByUserAndWeek(ctx, "u1", week)
		require.NoError(t, err)
		require.True(t, m.AwardPoints(10, "evt-1", now).IsSuccess())
		if err := members.Save(ctx, m); err != nil {
			return err
		}
		uow.RegisterDirty(m)

		// 提交之前不可见
		assert.Empty(t, pub.Events())
		return nil
	})
	require.NoError(t, err)

	got, err := members.FindByUserAndWeek(context.Background(), "u1", week)
	require.NoError(t, err)
	assert.Equal(t, 10, got.PointsInRoom())
	assert.Equal(t, 1, got.Version())

	events := pub.Events()
	require.Len(t, events, 1)
	assert.Equal(t, competition.EventTypeLeaguePointsAwarded, events[0].EventType())
	assert.Equal(t, 1, hooks.committed)
}

func TestUnitOfWork_FailedCommitDispatchesNothing(t *testing.T) {
	store := NewStore()
	pub := &recordingPublisher{}
	hooks := &countingHooks{}
	factory := NewUnitOfWorkFactory(store, pub).WithHooks(hooks)
	profiles := NewProfileRepository(store)

	store.FailNextCommit(errors.New("disk full"))
	before := store.Commits()

	var profile *gamification.PointsProfile
	uow := factory.New()
	err := uow.Execute(context.Background(), func(ctx context.Context) error {
		profile = gamification.NewPointsProfile("u1", now).Value()
		require.True(t, profile.EarnPoints(15, gamification.SourceWorkout, now, now).IsSuccess())
		if err := profiles.Save(ctx, profile); err != nil {
			return err
		}
		uow.RegisterNew(profile)
		return nil
	})
	require.Error(t, err)

	assert.Empty(t, pub.Events())
	assert.Equal(t, before, store.Commits())
	assert.Equal(t, 1, hooks.rolledBack)

	stored, err := profiles.FindByUserID(context.Background(), "u1")
	require.NoError(t, err)
	assert.Nil(t, stored)
	assert.Equal(t, 1, countEvents(profile))
}

func TestUnitOfWork_RollbackOnFnError(t *testing.T) {
	store := NewStore()
	pub := &recordingPublisher{}
	factory := NewUnitOfWorkFactory(store, pub)
	members := NewMemberRepository(store)
	ledger := NewLedgerRepository(store)
	joinMember(t, store, "u1")

	boom := errors.New("boom")
	uow := factory.New()
	err := uow.Execute(context.Background(), func(ctx context.Context) error {
		m, _ := members.FindByUserAndWeek(ctx, "u1", week)
		m.AwardPoints(5, "evt-1", now)
		require.NoError(t, members.Save(ctx, m))
		require.NoError(t, ledger.MarkProcessed(ctx, "league", "evt-1", now))
		uow.RegisterDirty(m)
		return boom
	})
	require.ErrorIs(t, err, boom)

	m, _ := members.FindByUserAndWeek(context.Background(), "u1", week)
	assert.Equal(t, 0, m.PointsInRoom())
	processed, _ := ledger.IsProcessed(context.Background(), "league", "evt-1")
	assert.False(t, processed)
	assert.Empty(t, pub.Events())
}

func TestUnitOfWork_DispatchFailureNotReturned(t *testing.T) {
	store := NewStore()
	pub := &recordingPublisher{err: errors.New("handler failed")}
	hooks := &countingHooks{}
	factory := NewUnitOfWorkFactory(store, pub).WithHooks(hooks)
	users := NewUserRepository(store)

	uow := factory.New()
	err := uow.Execute(context.Background(), func(ctx context.Context) error {
		u := identity.Register("u1", "Ada", "ada@example.com", now).Value()
		if err := users.Save(ctx, u); err != nil {
			return err
		}
		uow.RegisterNew(u)
		return nil
	})
	require.NoError(t, err)
	assert.Len(t, pub.Events(), 1)
	assert.Equal(t, 1, hooks.dispatchFailed)
}

func TestUnitOfWork_RetriesConflict(t *testing.T) {
	store := NewStore()
	factory := NewUnitOfWorkFactory(store, nil).WithRetry(retry.ConflictOnly(3))
	members := NewMemberRepository(store)
	joinMember(t, store, "u1")

	attempts := 0
	uow := factory.New()
	err := uow.Execute(context.Background(), func(ctx context.Context) error {
		attempts++
		m, err := members.FindByUserAndWeek(ctx, "u1", week)
		require.NoError(t, err)
		if attempts == 1 {
			// 另一个写者抢先提交
			other, _ := members.FindByUserAndWeek(context.Background(), "u1", week)
			other.AwardPoints(1, "evt-other", now)
			require.NoError(t, members.Save(context.Background(), other))
		}
		m.AwardPoints(10, "evt-1", now)
		if err := members.Save(ctx, m); err != nil {
			return err
		}
		uow.RegisterDirty(m)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, attempts)

	m, _ := members.FindByUserAndWeek(context.Background(), "u1", week)
	assert.Equal(t, 11, m.PointsInRoom())
}

func countEvents(agg shared.AggregateRoot) int {
	n := 0
	for range agg.RecordedEvents() {
		n++
	}
	return n
}
