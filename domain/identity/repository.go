package identity

import (
	"context"
	"time"
)

// Repository 用户仓储
// FindByID/FindByEmail 找不到时返回 shared.ErrNotFound 分类的错误。
type Repository interface {
	Save(ctx context.Context, user *User) error
	FindByID(ctx context.Context, id string) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
}

// VerifiedIdentity 认证通过后的调用方身份
type VerifiedIdentity struct {
	Subject   string
	Email     string
	Name      string
	ExpiresAt time.Time
}

// TokenVerifier 认证令牌校验
// 令牌无效时返回 (nil, nil)；只有校验过程本身出错才返回 error。
type TokenVerifier interface {
	VerifyToken(ctx context.Context, token string) (*VerifiedIdentity, error)
}
