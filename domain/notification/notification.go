/*
Package notification 推送通知的领域契约与消息模板。
*/
package notification

import (
	"context"
	"fmt"

	"fitquest/domain/shared"
)

// Payload 推送内容
type Payload struct {
	Title string            `json:"title"`
	Body  string            `json:"body"`
	Data  map[string]string `json:"data,omitempty"`
}

// Sender 推送通道；投递失败以 Result 返回，调用方决定是否忽略
type Sender interface {
	Send(ctx context.Context, deviceToken string, payload Payload) shared.Result
}

// DeviceDirectory 查询用户已绑定的设备令牌
type DeviceDirectory interface {
	DeviceTokens(ctx context.Context, userID string) ([]string, error)
}

func StreakLostMessage(lostStreak int) Payload {
	return Payload{
		Title: "Your streak ended",
		Body:  fmt.Sprintf("You lost a %d-day streak. Log an activity today to start a new one!", lostStreak),
		Data:  map[string]string{"type": "streak_lost", "lost_streak": fmt.Sprint(lostStreak)},
	}
}

func WelcomeMessage(displayName string) Payload {
	return Payload{
		Title: "Welcome to FitQuest",
		Body:  fmt.Sprintf("Hi %s, join a league room to start competing this week.", displayName),
		Data:  map[string]string{"type": "welcome"},
	}
}
