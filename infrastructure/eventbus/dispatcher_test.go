package eventbus

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"fitquest/domain/shared"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type pointsEarned struct {
	shared.EventMetadata
	UserID string `json:"user_id"`
	Points int    `json:"points"`
}

func (pointsEarned) EventType() shared.EventType { return "test.points_earned" }

type streakLost struct {
	shared.EventMetadata
	UserID string `json:"user_id"`
}

func (streakLost) EventType() shared.EventType { return "test.streak_lost" }

func newEvent(points int) pointsEarned {
	return pointsEarned{
		EventMetadata: shared.NewEventMetadata("user-1", time.Now()),
		UserID:        "user-1",
		Points:        points,
	}
}

type callLog struct {
	mu    sync.Mutex
	calls []string
}

func (c *callLog) add(s string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, s)
}

func recording[E shared.DomainEvent](log *callLog, name string, err error) Handler[E] {
	return HandlerFunc[E](func(context.Context, E) error {
		log.add(name)
		return err
	})
}

func observedLogger() (*zap.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return zap.New(core), logs
}

func TestPublish_RegistrationOrder(t *testing.T) {
	calls := &callLog{}
	b := NewBuilder().WithLogger(zap.NewNop())
	Subscribe(b, recording[pointsEarned](calls, "first", nil), WithName("first"))
	Subscribe(b, recording[pointsEarned](calls, "second", nil), WithName("second"))
	Subscribe(b, recording[pointsEarned](calls, "third", nil), WithName("third"))
	d, err := b.Build()
	require.NoError(t, err)

	require.NoError(t, d.Publish(context.Background(), newEvent(10)))
	assert.Equal(t, []string{"first", "second", "third"}, calls.calls)
	assert.Equal(t, []string{"first", "second", "third"}, d.HandlerNames("test.points_earned"))
}

func TestPublish_OnlyExactType(t *testing.T) {
	calls := &callLog{}
	b := NewBuilder().WithLogger(zap.NewNop())
	Subscribe(b, recording[pointsEarned](calls, "points", nil), WithName("points"))
	Subscribe(b, recording[streakLost](calls, "streak", nil), WithName("streak"))
	d, err := b.Build()
	require.NoError(t, err)

	require.NoError(t, d.Publish(context.Background(), streakLost{UserID: "u"}))
	assert.Equal(t, []string{"streak"}, calls.calls)
}

func TestPublish_NoHandlers(t *testing.T) {
	d, err := NewBuilder().WithLogger(zap.NewNop()).Build()
	require.NoError(t, err)
	assert.NoError(t, d.Publish(context.Background(), newEvent(1)))
	assert.Error(t, d.Publish(context.Background(), nil))
}

func TestPublish_IsolatesFailures(t *testing.T) {
	calls := &callLog{}
	boom := errors.New("boom")
	log, logs := observedLogger()

	b := NewBuilder().WithLogger(log)
	Subscribe(b, recording[pointsEarned](calls, "h1", nil), WithName("h1"))
	Subscribe(b, recording[pointsEarned](calls, "h2", boom), WithName("h2"))
	Subscribe(b, recording[pointsEarned](calls, "h3", nil), WithName("h3"))
	d, err := b.Build()
	require.NoError(t, err)

	event := newEvent(5)
	err = d.Publish(context.Background(), event)
	assert.Equal(t, []string{"h1", "h2", "h3"}, calls.calls, "h3 still runs after h2 fails")

	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	var he *HandlerError
	require.ErrorAs(t, err, &he)
	assert.Equal(t, "h2", he.Handler)
	assert.Equal(t, event.EventID(), he.EventID)

	warnings := logs.FilterMessage("handler failed, continuing").All()
	require.Len(t, warnings, 1)
	assert.Equal(t, "h2", warnings[0].ContextMap()["handler"])
}

func TestPublish_RequiredStopsDelivery(t *testing.T) {
	calls := &callLog{}
	b := NewBuilder().WithLogger(zap.NewNop())
	Subscribe(b, recording[pointsEarned](calls, "h1", nil), WithName("h1"))
	Subscribe(b, recording[pointsEarned](calls, "h2", errors.New("nope")), WithName("h2"), WithPolicy(Required))
	Subscribe(b, recording[pointsEarned](calls, "h3", nil), WithName("h3"))
	d, err := b.Build()
	require.NoError(t, err)

	assert.Error(t, d.Publish(context.Background(), newEvent(5)))
	assert.Equal(t, []string{"h1", "h2"}, calls.calls)
}

func TestPublish_DefaultPolicy(t *testing.T) {
	calls := &callLog{}
	b := NewBuilder().WithLogger(zap.NewNop()).WithDefaultPolicy(Required)
	Subscribe(b, recording[pointsEarned](calls, "h1", errors.New("x")), WithName("h1"))
	Subscribe(b, recording[pointsEarned](calls, "h2", nil), WithName("h2"), WithPolicy(Isolate))
	d, err := b.Build()
	require.NoError(t, err)

	assert.Error(t, d.Publish(context.Background(), newEvent(5)))
	assert.Equal(t, []string{"h1"}, calls.calls)
}

func TestPublish_RecoversPanics(t *testing.T) {
	calls := &callLog{}
	b := NewBuilder().WithLogger(zap.NewNop())
	Subscribe[pointsEarned](b, HandlerFunc[pointsEarned](func(context.Context, pointsEarned) error {
		panic("kaboom")
	}), WithName("panicky"))
	Subscribe(b, recording[pointsEarned](calls, "after", nil), WithName("after"))
	d, err := b.Build()
	require.NoError(t, err)

	err = d.Publish(context.Background(), newEvent(5))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "kaboom")
	assert.Equal(t, []string{"after"}, calls.calls)
}

func TestPublish_HonorsCancellation(t *testing.T) {
	calls := &callLog{}
	ctx, cancel := context.WithCancel(context.Background())

	b := NewBuilder().WithLogger(zap.NewNop())
	Subscribe[pointsEarned](b, HandlerFunc[pointsEarned](func(context.Context, pointsEarned) error {
		calls.add("cancels")
		cancel()
		return nil
	}), WithName("cancels"))
	Subscribe(b, recording[pointsEarned](calls, "never", nil), WithName("never"))
	d, err := b.Build()
	require.NoError(t, err)

	err = d.Publish(ctx, newEvent(5))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []string{"cancels"}, calls.calls)
}

func TestPublish_HandlersReceiveCopies(t *testing.T) {
	b := NewBuilder().WithLogger(zap.NewNop())
	Subscribe[pointsEarned](b, HandlerFunc[pointsEarned](func(_ context.Context, e pointsEarned) error {
		e.Points = 999
		return nil
	}), WithName("mutator"))
	var seen int
	Subscribe[pointsEarned](b, HandlerFunc[pointsEarned](func(_ context.Context, e pointsEarned) error {
		seen = e.Points
		return nil
	}), WithName("reader"))
	d, err := b.Build()
	require.NoError(t, err)

	event := newEvent(7)
	require.NoError(t, d.Publish(context.Background(), event))
	assert.Equal(t, 7, seen)
	assert.Equal(t, 7, event.Points)
}

func TestBuild_RejectsDuplicateNames(t *testing.T) {
	calls := &callLog{}
	b := NewBuilder()
	Subscribe(b, recording[pointsEarned](calls, "a", nil), WithName("same"))
	Subscribe(b, recording[pointsEarned](calls, "b", nil), WithName("same"))
	_, err := b.Build()
	assert.Error(t, err)
}

func TestBuild_RegistryIsFrozen(t *testing.T) {
	calls := &callLog{}
	b := NewBuilder().WithLogger(zap.NewNop())
	Subscribe(b, recording[pointsEarned](calls, "a", nil), WithName("a"))
	d, err := b.Build()
	require.NoError(t, err)

	Subscribe(b, recording[pointsEarned](calls, "late", nil), WithName("late"))
	require.NoError(t, d.Publish(context.Background(), newEvent(1)))
	assert.Equal(t, []string{"a"}, calls.calls)
	_, err = b.Build()
	assert.Error(t, err)
}

func TestDecode(t *testing.T) {
	b := NewBuilder().WithLogger(zap.NewNop())
	Register[pointsEarned](b)
	d, err := b.Build()
	require.NoError(t, err)

	original := newEvent(12)
	payload, err := json.Marshal(original)
	require.NoError(t, err)

	decoded, err := d.Decode(original.EventType(), payload)
	require.NoError(t, err)
	typed, ok := decoded.(pointsEarned)
	require.True(t, ok)
	assert.Equal(t, original.EventID(), typed.EventID())
	assert.Equal(t, 12, typed.Points)

	_, err = d.Decode("test.unknown", payload)
	assert.ErrorIs(t, err, ErrUnknownEventType)
}

type countingObserver struct {
	published, succeeded, failed int
}

func (o *countingObserver) EventPublished(shared.EventType, int) { o.published++ }
func (o *countingObserver) HandlerSucceeded(shared.EventType, string, time.Duration) {
	o.succeeded++
}
func (o *countingObserver) HandlerFailed(shared.EventType, string, time.Duration) { o.failed++ }

func TestPublish_NotifiesObserver(t *testing.T) {
	calls := &callLog{}
	obs := &countingObserver{}
	b := NewBuilder().WithLogger(zap.NewNop()).WithObserver(obs)
	Subscribe(b, recording[pointsEarned](calls, "ok", nil), WithName("ok"))
	Subscribe(b, recording[pointsEarned](calls, "bad", errors.New("x")), WithName("bad"))
	d, err := b.Build()
	require.NoError(t, err)

	_ = d.Publish(context.Background(), newEvent(1))
	assert.Equal(t, 1, obs.published)
	assert.Equal(t, 1, obs.succeeded)
	assert.Equal(t, 1, obs.failed)
}
