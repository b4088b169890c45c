package eventbus

import (
	"time"

	"fitquest/domain/shared"
)

// Observer 分发过程的观测钩子，由 observability 包以 Prometheus 实现
type Observer interface {
	EventPublished(eventType shared.EventType, handlers int)
	HandlerSucceeded(eventType shared.EventType, handler string, elapsed time.Duration)
	HandlerFailed(eventType shared.EventType, handler string, elapsed time.Duration)
}

type nopObserver struct{}

func (nopObserver) EventPublished(shared.EventType, int)                          {}
func (nopObserver) HandlerSucceeded(shared.EventType, string, time.Duration)      {}
func (nopObserver) HandlerFailed(shared.EventType, string, time.Duration)         {}
