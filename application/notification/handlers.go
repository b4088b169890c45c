/*
Package notification 订阅其他模块的事件并推送到用户设备。
*/
package notification

import (
	"context"

	"fitquest/domain/gamification"
	"fitquest/domain/identity"
	"fitquest/domain/notification"
	"fitquest/pkg/logger"

	"go.uber.org/zap"
)

// PushHandlers 推送失败只记录日志，不影响发布方
type PushHandlers struct {
	devices notification.DeviceDirectory
	sender  notification.Sender
	log     *zap.Logger
}

func NewPushHandlers(devices notification.DeviceDirectory, sender notification.Sender) *PushHandlers {
	return &PushHandlers{
		devices: devices,
		sender:  sender,
		log:     logger.Named("notification"),
	}
}

// HandleStreakLost 连续打卡中断时提醒用户
func (h *PushHandlers) HandleStreakLost(ctx context.Context, event gamification.StreakLost) error {
	return h.push(ctx, event.UserID, event.EventID(), notification.StreakLostMessage(event.LostStreak))
}

// HandleUserCreated 新用户欢迎消息
func (h *PushHandlers) HandleUserCreated(ctx context.Context, event identity.UserCreated) error {
	return h.push(ctx, event.UserID, event.EventID(), notification.WelcomeMessage(event.DisplayName))
}

// push 返回的 error 只表示设备查询失败；单个设备投递失败不中断其余设备
func (h *PushHandlers) push(ctx context.Context, userID, eventID string, payload notification.Payload) error {
	tokens, err := h.devices.DeviceTokens(ctx, userID)
	if err != nil {
		return err
	}
	log := h.log.With(zap.String("user_id", userID), zap.String("event_id", eventID))
	if len(tokens) == 0 {
		log.Debug("no registered devices, skipping push")
		return nil
	}

	sent := 0
	for _, token := range tokens {
		if err := ctx.Err(); err != nil {
			return err
		}
		if r := h.sender.Send(ctx, token, payload); r.IsFailure() {
			log.Warn("push delivery failed", zap.String("reason", r.Error().Message))
			continue
		}
		sent++
	}
	log.Debug("push delivered", zap.Int("devices", len(tokens)), zap.Int("sent", sent))
	return nil
}
