package identity

import (
	"context"
	"errors"

	"fitquest/domain/identity"
	"fitquest/domain/shared"
)

// DeviceDirectory 把 identity.Repository 适配为通知模块需要的设备令牌查询
type DeviceDirectory struct {
	users identity.Repository
}

func NewDeviceDirectory(users identity.Repository) *DeviceDirectory {
	return &DeviceDirectory{users: users}
}

// DeviceTokens 用户不存在时返回空列表
func (d *DeviceDirectory) DeviceTokens(ctx context.Context, userID string) ([]string, error) {
	u, err := d.users.FindByID(ctx, userID)
	if errors.Is(err, shared.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return u.DeviceTokens(), nil
}

// PermissionChecker 供积分模块校验健康数据授权
type PermissionChecker struct {
	users identity.Repository
}

func NewPermissionChecker(users identity.Repository) *PermissionChecker {
	return &PermissionChecker{users: users}
}

func (c *PermissionChecker) HasHealthPermission(ctx context.Context, userID string, scope identity.HealthScope) (bool, error) {
	u, err := c.users.FindByID(ctx, userID)
	if err != nil {
		return false, err
	}
	return u.HasPermission(scope), nil
}
