package competition

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fitquest/domain/competition"
	"fitquest/domain/gamification"
	"fitquest/domain/shared"
	"fitquest/pkg/logger"
	"fitquest/pkg/retry"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
)

// LeaguePointsConsumer 账本中的消费者名
const LeaguePointsConsumer = "competition.league_points"

// 处理结果，同时用作指标标签
const (
	OutcomeAwarded     = "awarded"
	OutcomeDuplicate   = "duplicate"
	OutcomeNoMember    = "no_member"
	OutcomeNonPositive = "non_positive"
	OutcomeConflict    = "conflict"
	OutcomeError       = "error"
)

// LeagueMetrics 由 observability.Metrics 实现
type LeagueMetrics interface {
	LeagueOutcome(outcome string)
	LeagueConflict()
}

type nopLeagueMetrics struct{}

func (nopLeagueMetrics) LeagueOutcome(string) {}
func (nopLeagueMetrics) LeagueConflict()      {}

// LeaguePointsHandler 把 UserPointsEarned 累加到用户当周所在房间
//
// 同一 (user, week) 的更新先拿按键锁，再在工作单元内按版本号保存；
// 版本冲突时重读重试，次数有上限。账本保证同一事件只计一次。
type LeaguePointsHandler struct {
	members     competition.Repository
	ledger      competition.ProcessedEventLedger
	uows        shared.UnitOfWorkFactory
	locker      shared.KeyLocker
	seen        *lru.Cache[string, struct{}]
	retryConfig retry.Config
	metrics     LeagueMetrics
	log         *zap.Logger
	now         func() time.Time
}

type HandlerOption func(*LeaguePointsHandler)

// WithLedger 启用幂等账本；cacheSize > 0 时在内存中缓存已处理的事件 ID
func WithLedger(ledger competition.ProcessedEventLedger, cacheSize int) HandlerOption {
	return func(h *LeaguePointsHandler) {
		h.ledger = ledger
		if cacheSize > 0 {
			cache, err := lru.New[string, struct{}](cacheSize)
			if err == nil {
				h.seen = cache
			}
		}
	}
}

// WithMaxConflictRetries 版本冲突时的最大尝试次数
func WithMaxConflictRetries(n int) HandlerOption {
	return func(h *LeaguePointsHandler) {
		h.retryConfig = retry.ConflictOnly(n)
	}
}

func WithMetrics(m LeagueMetrics) HandlerOption {
	return func(h *LeaguePointsHandler) {
		if m != nil {
			h.metrics = m
		}
	}
}

func WithClock(now func() time.Time) HandlerOption {
	return func(h *LeaguePointsHandler) {
		h.now = now
	}
}

func NewLeaguePointsHandler(
	members competition.Repository,
	uows shared.UnitOfWorkFactory,
	locker shared.KeyLocker,
	opts ...HandlerOption,
) *LeaguePointsHandler {
	h := &LeaguePointsHandler{
		members:     members,
		uows:        uows,
		locker:      locker,
		retryConfig: retry.ConflictOnly(5),
		metrics:     nopLeagueMetrics{},
		log:         logger.Named("league_points"),
		now:         func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *LeaguePointsHandler) Handle(ctx context.Context, event gamification.UserPointsEarned) error {
	log := h.log.With(
		zap.String("event_id", event.EventID()),
		zap.String("user_id", event.UserID),
		zap.Int("points", event.PointsEarned))

	if event.PointsEarned <= 0 {
		h.metrics.LeagueOutcome(OutcomeNonPositive)
		log.Debug("ignoring non-positive points")
		return nil
	}
	if h.seen != nil && h.seen.Contains(event.EventID()) {
		h.metrics.LeagueOutcome(OutcomeDuplicate)
		return nil
	}

	key := competition.MemberKey{UserID: event.UserID, WeekID: shared.WeekIDFromDate(event.LogDate)}
	unlock, err := h.locker.Lock(ctx, key.LockKey())
	if err != nil {
		h.metrics.LeagueOutcome(OutcomeError)
		return fmt.Errorf("lock %s: %w", key, err)
	}
	defer unlock()

	cfg := h.retryConfig
	cfg.OnRetry = func(attempt int, err error) {
		h.metrics.LeagueConflict()
		log.Debug("league member version conflict, retrying", zap.Int("attempt", attempt))
	}

	var outcome string
	err = retry.ExecuteWithRetry(ctx, cfg, func(ctx context.Context) error {
		var err error
		outcome, err = h.apply(ctx, key, event)
		return err
	})
	switch {
	case err == nil:
	case errors.Is(err, shared.ErrConcurrentModification):
		h.metrics.LeagueOutcome(OutcomeConflict)
		log.Warn("league points not applied after retries", zap.Error(err))
		return fmt.Errorf("award league points for %s: %w", key, err)
	default:
		h.metrics.LeagueOutcome(OutcomeError)
		return err
	}

	if h.seen != nil && (outcome == OutcomeAwarded || outcome == OutcomeDuplicate) {
		h.seen.Add(event.EventID(), struct{}{})
	}
	h.metrics.LeagueOutcome(outcome)
	log.Debug("league points handled", zap.String("outcome", outcome), zap.String("week", key.WeekID.String()))
	return nil
}

// apply 一次尝试：一个新的工作单元，读账本、读成员、累加、保存、记账
func (h *LeaguePointsHandler) apply(ctx context.Context, key competition.MemberKey, event gamification.UserPointsEarned) (string, error) {
	outcome := OutcomeAwarded
	uow := h.uows.New()
	err := uow.Execute(ctx, func(ctx context.Context) error {
		outcome = OutcomeAwarded
		if h.ledger != nil {
			done, err := h.ledger.IsProcessed(ctx, LeaguePointsConsumer, event.EventID())
			if err != nil {
				return err
			}
			if done {
				outcome = OutcomeDuplicate
				return nil
			}
		}

		member, err := h.members.FindByUserAndWeek(ctx, key.UserID, key.WeekID)
		if err != nil {
			return err
		}
		if member == nil {
			// 积分发生时还没有加入房间，不补记
			outcome = OutcomeNoMember
			return nil
		}

		now := h.now()
		if r := member.AwardPoints(event.PointsEarned, event.EventID(), now); r.IsFailure() {
			return shared.FromResultError("league_member", r.Error())
		}
		if err := h.members.Save(ctx, member); err != nil {
			return err
		}
		uow.RegisterDirty(member)

		if h.ledger != nil {
			return h.ledger.MarkProcessed(ctx, LeaguePointsConsumer, event.EventID(), now)
		}
		return nil
	})
	return outcome, err
}
