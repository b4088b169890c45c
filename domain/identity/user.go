package identity

import (
	"iter"
	"slices"
	"strings"
	"time"

	"fitquest/domain/shared"
)

// User 身份聚合根
// id 直接使用认证系统签发的 subject，保证同一个外部身份只对应一个用户。
type User struct {
	id           string
	displayName  string
	email        Email
	permissions  []HealthScope
	deviceTokens []string
	version      int
	isNew        bool
	createdAt    time.Time
	updatedAt    time.Time

	recorder shared.EventRecorder
}

// Register 创建新用户并记录 UserCreated
func Register(id, displayName, email string, now time.Time) shared.ResultOf[*User] {
	id = strings.TrimSpace(id)
	if id == "" {
		return shared.FailureOf[*User](shared.ValidationError("user id is required"))
	}
	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		return shared.FailureOf[*User](shared.ValidationError("display name is required"))
	}
	emailVO, err := NewEmail(email)
	if err != nil {
		return shared.FailureOf[*User](shared.ValidationError(err.Error()))
	}

	u := &User{
		id:          id,
		displayName: displayName,
		email:       emailVO,
		isNew:       true,
		createdAt:   now,
		updatedAt:   now,
	}
	u.recorder.Record(UserCreated{
		EventMetadata: shared.NewEventMetadata(u.id, now),
		UserID:        u.id,
		DisplayName:   u.displayName,
		Email:         u.email.Value(),
	})
	return shared.SuccessOf(u)
}

// GrantHealthPermission 授权读取某类健康数据；重复授权是幂等的，不产生事件
func (u *User) GrantHealthPermission(scope HealthScope, now time.Time) shared.Result {
	if !scope.IsValid() {
		return shared.Failure(shared.ValidationError("unknown health scope: " + string(scope)))
	}
	if u.HasPermission(scope) {
		return shared.Success()
	}
	u.permissions = append(u.permissions, scope)
	u.updatedAt = now
	u.recorder.Record(HealthPermissionGranted{
		EventMetadata: shared.NewEventMetadata(u.id, now),
		UserID:        u.id,
		Scope:         scope,
	})
	return shared.Success()
}

// RegisterDevice 绑定推送设备令牌
func (u *User) RegisterDevice(token string, now time.Time) shared.Result {
	token = strings.TrimSpace(token)
	if token == "" {
		return shared.Failure(shared.ValidationError("device token is required"))
	}
	if slices.Contains(u.deviceTokens, token) {
		return shared.Success()
	}
	u.deviceTokens = append(u.deviceTokens, token)
	u.updatedAt = now
	return shared.Success()
}

func (u *User) HasPermission(scope HealthScope) bool {
	return slices.Contains(u.permissions, scope)
}

func (u *User) ID() string                  { return u.id }
func (u *User) DisplayName() string         { return u.displayName }
func (u *User) Email() Email                { return u.email }
func (u *User) Permissions() []HealthScope  { return slices.Clone(u.permissions) }
func (u *User) DeviceTokens() []string      { return slices.Clone(u.deviceTokens) }
func (u *User) Version() int                { return u.version }
func (u *User) IsNew() bool                 { return u.isNew }
func (u *User) CreatedAt() time.Time        { return u.createdAt }
func (u *User) UpdatedAt() time.Time        { return u.updatedAt }

func (u *User) RecordedEvents() iter.Seq[shared.DomainEvent] { return u.recorder.Events() }
func (u *User) ClearRecordedEvents()                         { u.recorder.Clear() }

// MarkPersisted 仓储保存成功后调用：新建标记清除，更新时版本号递增
func (u *User) MarkPersisted() {
	if !u.isNew {
		u.version++
	}
	u.isNew = false
}

// ReconstructionDTO 仅限仓储层使用，用于从存储重建聚合根
type ReconstructionDTO struct {
	ID           string
	DisplayName  string
	Email        string
	Permissions  []HealthScope
	DeviceTokens []string
	Version      int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func RebuildFromDTO(dto ReconstructionDTO) *User {
	return &User{
		id:           dto.ID,
		displayName:  dto.DisplayName,
		email:        Email{value: dto.Email},
		permissions:  slices.Clone(dto.Permissions),
		deviceTokens: slices.Clone(dto.DeviceTokens),
		version:      dto.Version,
		createdAt:    dto.CreatedAt,
		updatedAt:    dto.UpdatedAt,
	}
}

// ToDTO 导出持久化快照
func (u *User) ToDTO() ReconstructionDTO {
	return ReconstructionDTO{
		ID:           u.id,
		DisplayName:  u.displayName,
		Email:        u.email.Value(),
		Permissions:  slices.Clone(u.permissions),
		DeviceTokens: slices.Clone(u.deviceTokens),
		Version:      u.version,
		CreatedAt:    u.createdAt,
		UpdatedAt:    u.updatedAt,
	}
}

var _ shared.AggregateRoot = (*User)(nil)
