package identity

import "fitquest/domain/shared"

const (
	EventTypeUserCreated             shared.EventType = "identity.user_created"
	EventTypeHealthPermissionGranted shared.EventType = "identity.health_permission_granted"
)

// UserCreated 新用户注册完成
type UserCreated struct {
	shared.EventMetadata
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
	Email       string `json:"email"`
}

func (UserCreated) EventType() shared.EventType { return EventTypeUserCreated }

// HealthPermissionGranted 用户授权读取某类健康数据
type HealthPermissionGranted struct {
	shared.EventMetadata
	UserID string      `json:"user_id"`
	Scope  HealthScope `json:"scope"`
}

func (HealthPermissionGranted) EventType() shared.EventType { return EventTypeHealthPermissionGranted }
