/*
Package identity 用户注册、健康数据授权与设备绑定。
*/
package identity

import (
	"context"
	"errors"
	"time"

	"fitquest/domain/identity"
	"fitquest/domain/shared"
)

type ApplicationService struct {
	users identity.Repository
	uows  shared.UnitOfWorkFactory
	now   func() time.Time
}

func NewApplicationService(users identity.Repository, uows shared.UnitOfWorkFactory) *ApplicationService {
	return &ApplicationService{
		users: users,
		uows:  uows,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// RegisterRequest UserID 取自认证令牌的 subject，不从请求体读取
type RegisterRequest struct {
	UserID      string `json:"-"`
	DisplayName string `json:"display_name" binding:"required,max=100"`
	Email       string `json:"email" binding:"required,email"`
}

type UserResponse struct {
	ID          string    `json:"id"`
	DisplayName string    `json:"display_name"`
	Email       string    `json:"email"`
	Permissions []string  `json:"permissions"`
	DeviceCount int       `json:"device_count"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (s *ApplicationService) Register(ctx context.Context, req RegisterRequest) (*UserResponse, error) {
	var u *identity.User
	uow := s.uows.New()
	err := uow.Execute(ctx, func(ctx context.Context) error {
		if _, err := s.users.FindByID(ctx, req.UserID); err == nil {
			return shared.NewConflictError("user", "user already registered: "+req.UserID)
		} else if !errors.Is(err, shared.ErrNotFound) {
			return err
		}

		existing, err := s.users.FindByEmail(ctx, req.Email)
		if err != nil && !errors.Is(err, shared.ErrNotFound) {
			return err
		}
		if existing != nil {
			return identity.NewEmailAlreadyExistsError(req.Email)
		}

		r := identity.Register(req.UserID, req.DisplayName, req.Email, s.now())
		if r.IsFailure() {
			return shared.FromResultError("user", r.Error())
		}
		u = r.Value()
		if err := s.users.Save(ctx, u); err != nil {
			return err
		}
		uow.RegisterNew(u)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return toUserResponse(u), nil
}

func (s *ApplicationService) GetUser(ctx context.Context, userID string) (*UserResponse, error) {
	u, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return toUserResponse(u), nil
}

type GrantPermissionRequest struct {
	UserID string `json:"-"`
	Scope  string `json:"scope" binding:"required"`
}

func (s *ApplicationService) GrantHealthPermission(ctx context.Context, req GrantPermissionRequest) (*UserResponse, error) {
	return s.modify(ctx, req.UserID, func(u *identity.User) shared.Result {
		return u.GrantHealthPermission(identity.HealthScope(req.Scope), s.now())
	})
}

type RegisterDeviceRequest struct {
	UserID string `json:"-"`
	Token  string `json:"token" binding:"required"`
}

func (s *ApplicationService) RegisterDevice(ctx context.Context, req RegisterDeviceRequest) (*UserResponse, error) {
	return s.modify(ctx, req.UserID, func(u *identity.User) shared.Result {
		return u.RegisterDevice(req.Token, s.now())
	})
}

func (s *ApplicationService) modify(ctx context.Context, userID string, change func(u *identity.User) shared.Result) (*UserResponse, error) {
	var u *identity.User
	uow := s.uows.New()
	err := uow.Execute(ctx, func(ctx context.Context) error {
		var err error
		u, err = s.users.FindByID(ctx, userID)
		if err != nil {
			return err
		}
		if r := change(u); r.IsFailure() {
			return shared.FromResultError("user", r.Error())
		}
		if err := s.users.Save(ctx, u); err != nil {
			return err
		}
		uow.RegisterDirty(u)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return toUserResponse(u), nil
}

func toUserResponse(u *identity.User) *UserResponse {
	perms := make([]string, 0, len(u.Permissions()))
	for _, p := range u.Permissions() {
		perms = append(perms, string(p))
	}
	return &UserResponse{
		ID:          u.ID(),
		DisplayName: u.DisplayName(),
		Email:       u.Email().Value(),
		Permissions: perms,
		DeviceCount: len(u.DeviceTokens()),
		CreatedAt:   u.CreatedAt(),
		UpdatedAt:   u.UpdatedAt(),
	}
}
