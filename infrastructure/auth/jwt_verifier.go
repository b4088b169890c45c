/*
Package auth 认证令牌校验的基础设施实现。
*/
package auth

import (
	"context"
	"errors"
	"time"

	"fitquest/config"
	"fitquest/domain/identity"
	"fitquest/pkg/logger"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

// Claims 令牌中的自定义字段
type Claims struct {
	Email string `json:"email,omitempty"`
	Name  string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// JWTVerifier HS256 签名校验
type JWTVerifier struct {
	secret []byte
	parser *jwt.Parser
	log    *zap.Logger
}

func NewJWTVerifier(cfg config.AuthConfig) *JWTVerifier {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(cfg.Leeway),
		jwt.WithExpirationRequired(),
	}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	if cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(cfg.Audience))
	}
	return &JWTVerifier{
		secret: []byte(cfg.JWTSecret),
		parser: jwt.NewParser(opts...),
		log:    logger.Named("auth"),
	}
}

// VerifyToken 签名、过期或声明不合法时返回 (nil, nil)
func (v *JWTVerifier) VerifyToken(ctx context.Context, token string) (*identity.VerifiedIdentity, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(v.secret) == 0 {
		return nil, errors.New("jwt secret is not configured")
	}

	claims := &Claims{}
	_, err := v.parser.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	})
	if err != nil {
		v.log.Debug("token rejected", zap.Error(err))
		return nil, nil
	}
	if claims.Subject == "" {
		return nil, nil
	}

	id := &identity.VerifiedIdentity{
		Subject: claims.Subject,
		Email:   claims.Email,
		Name:    claims.Name,
	}
	if claims.ExpiresAt != nil {
		id.ExpiresAt = claims.ExpiresAt.Time
	}
	return id, nil
}

// IssueToken 签发令牌，供 CLI 与测试使用
func (v *JWTVerifier) IssueToken(subject, email, name, issuer string, ttl time.Duration, now time.Time) (string, error) {
	claims := Claims{
		Email: email,
		Name:  name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}
