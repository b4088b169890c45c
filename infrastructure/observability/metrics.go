/*
Package observability Prometheus 指标。
*/
package observability

import (
	"time"

	"fitquest/domain/shared"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	eventsPublished  *prometheus.CounterVec
	handlerDuration  *prometheus.HistogramVec
	handlerFailures  *prometheus.CounterVec
	uowCommits       *prometheus.CounterVec
	dispatchFailures prometheus.Counter
	leaguePoints     *prometheus.CounterVec
	leagueConflicts  prometheus.Counter
	outboxRedelivery *prometheus.CounterVec
}

// NewMetrics 在 reg 上注册全部指标；测试传入独立的 prometheus.NewRegistry()
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		eventsPublished: f.NewCounterVec(prometheus.CounterOpts{
			Name: "fitquest_events_published_total",
			Help: "Domain events handed to the dispatcher",
		}, []string{"event_type"}),

		handlerDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "fitquest_event_handler_duration_seconds",
			Help:    "Duration of domain event handler invocations",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}, []string{"event_type", "handler", "outcome"}),

		handlerFailures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "fitquest_event_handler_failures_total",
			Help: "Domain event handler invocations that returned an error",
		}, []string{"event_type", "handler"}),

		uowCommits: f.NewCounterVec(prometheus.CounterOpts{
			Name: "fitquest_uow_commits_total",
			Help: "Unit of work executions by outcome",
		}, []string{"outcome"}),

		dispatchFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "fitquest_post_commit_dispatch_failures_total",
			Help: "Committed events whose in-process dispatch reported handler faults",
		}),

		leaguePoints: f.NewCounterVec(prometheus.CounterOpts{
			Name: "fitquest_league_points_events_total",
			Help: "UserPointsEarned deliveries seen by the league handler, by outcome",
		}, []string{"outcome"}),

		leagueConflicts: f.NewCounter(prometheus.CounterOpts{
			Name: "fitquest_league_points_conflicts_total",
			Help: "Optimistic lock conflicts retried by the league handler",
		}),

		outboxRedelivery: f.NewCounterVec(prometheus.CounterOpts{
			Name: "fitquest_outbox_redeliveries_total",
			Help: "Outbox events redelivered by the worker, by outcome",
		}, []string{"outcome"}),
	}
}

func (m *Metrics) EventPublished(eventType shared.EventType, _ int) {
	m.eventsPublished.WithLabelValues(eventType.String()).Inc()
}

func (m *Metrics) HandlerSucceeded(eventType shared.EventType, handler string, elapsed time.Duration) {
	m.handlerDuration.WithLabelValues(eventType.String(), handler, "success").Observe(elapsed.Seconds())
}

func (m *Metrics) HandlerFailed(eventType shared.EventType, handler string, elapsed time.Duration) {
	m.handlerDuration.WithLabelValues(eventType.String(), handler, "failure").Observe(elapsed.Seconds())
	m.handlerFailures.WithLabelValues(eventType.String(), handler).Inc()
}

func (m *Metrics) UnitOfWorkCommitted()  { m.uowCommits.WithLabelValues("committed").Inc() }
func (m *Metrics) UnitOfWorkRolledBack() { m.uowCommits.WithLabelValues("rolled_back").Inc() }
func (m *Metrics) DispatchFailed()       { m.dispatchFailures.Inc() }

// LeagueOutcome outcome 取 applied / skipped_nonpositive / skipped_duplicate / skipped_no_member / failed
func (m *Metrics) LeagueOutcome(outcome string) { m.leaguePoints.WithLabelValues(outcome).Inc() }
func (m *Metrics) LeagueConflict()              { m.leagueConflicts.Inc() }

func (m *Metrics) OutboxRedelivered(outcome string) {
	m.outboxRedelivery.WithLabelValues(outcome).Inc()
}
