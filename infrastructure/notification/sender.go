/*
Package notification 推送通道实现：开发环境写日志，部署环境发布到 Redis 频道由推送网关消费。
*/
package notification

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"fitquest/domain/notification"
	"fitquest/domain/shared"
	"fitquest/pkg/logger"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// LoggingSender 只记录日志
type LoggingSender struct {
	log *zap.Logger
}

func NewLoggingSender() *LoggingSender {
	return &LoggingSender{log: logger.Named("push")}
}

func (s *LoggingSender) Send(ctx context.Context, deviceToken string, payload notification.Payload) shared.Result {
	if strings.TrimSpace(deviceToken) == "" {
		return shared.Failure(shared.ValidationError("device token is required"))
	}
	logger.FromContext(ctx).Info("push notification",
		zap.String("device", maskToken(deviceToken)),
		zap.String("title", payload.Title),
		zap.String("body", payload.Body))
	return shared.Success()
}

// Message Redis 频道上的消息体
type Message struct {
	DeviceToken string               `json:"device_token"`
	Payload     notification.Payload `json:"payload"`
	SentAt      time.Time            `json:"sent_at"`
}

// RedisSender PUBLISH 到频道；没有订阅者也视为成功
type RedisSender struct {
	client  redis.UniversalClient
	channel string
	log     *zap.Logger
}

func NewRedisSender(client redis.UniversalClient, channel string) *RedisSender {
	return &RedisSender{client: client, channel: channel, log: logger.Named("push")}
}

func (s *RedisSender) Send(ctx context.Context, deviceToken string, payload notification.Payload) shared.Result {
	if strings.TrimSpace(deviceToken) == "" {
		return shared.Failure(shared.ValidationError("device token is required"))
	}
	body, err := json.Marshal(Message{DeviceToken: deviceToken, Payload: payload, SentAt: time.Now().UTC()})
	if err != nil {
		return shared.Failure(shared.ValidationError("encode push payload: " + err.Error()))
	}
	receivers, err := s.client.Publish(ctx, s.channel, body).Result()
	if err != nil {
		s.log.Warn("redis publish failed", zap.String("channel", s.channel), zap.Error(err))
		return shared.Failure(shared.UnavailableError("push channel unavailable: " + err.Error()))
	}
	s.log.Debug("push published",
		zap.String("channel", s.channel),
		zap.String("device", maskToken(deviceToken)),
		zap.Int64("receivers", receivers))
	return shared.Success()
}

// CanConnect 供健康检查使用
func (s *RedisSender) CanConnect(ctx context.Context) bool {
	return s.client.Ping(ctx).Err() == nil
}

func maskToken(token string) string {
	if len(token) <= 8 {
		return "****"
	}
	return token[:4] + "****" + token[len(token)-4:]
}
