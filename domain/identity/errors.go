/*
Package identity 用户身份、健康数据授权与设备绑定。
*/
package identity

import (
	"errors"

	"fitquest/domain/shared"
)

var (
	ErrInvalidEmail       = errors.New("invalid email format")
	ErrEmailAlreadyExists = errors.New("email already exists")
)

func NewUserNotFoundError(userID string) error {
	return &shared.DomainError{
		Err:     shared.ErrNotFound,
		Entity:  "user",
		Message: "user not found: " + userID,
	}
}

// NewEmailAlreadyExistsError 同时匹配 ErrEmailAlreadyExists 与 shared.ErrConflict
func NewEmailAlreadyExistsError(email string) error {
	return &shared.DomainError{
		Err:     errors.Join(ErrEmailAlreadyExists, shared.ErrConflict),
		Entity:  "user",
		Field:   "email",
		Message: "email already exists: " + email,
	}
}
