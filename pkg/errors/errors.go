package errors

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"fitquest/domain/competition"
	"fitquest/domain/identity"
	"fitquest/domain/shared"
)

// ErrorCode API 错误码
type ErrorCode string

const (
	// 通用错误码
	CodeInternal       ErrorCode = "INTERNAL_ERROR"
	CodeBadRequest     ErrorCode = "BAD_REQUEST"
	CodeUnauthorized   ErrorCode = "UNAUTHORIZED"
	CodeForbidden      ErrorCode = "FORBIDDEN"
	CodeNotFound       ErrorCode = "NOT_FOUND"
	CodeConflict       ErrorCode = "CONFLICT"
	CodeTooManyRequest ErrorCode = "TOO_MANY_REQUESTS"
	CodeValidation     ErrorCode = "VALIDATION_ERROR"
	CodeUnavailable    ErrorCode = "SERVICE_UNAVAILABLE"
	CodeTimeout        ErrorCode = "TIMEOUT"

	// 业务错误码
	CodeEmailExists          ErrorCode = "EMAIL_EXISTS"
	CodeAlreadyJoined        ErrorCode = "ALREADY_JOINED"
	CodeConcurrentModified   ErrorCode = "CONCURRENT_MODIFICATION"
	CodePermissionNotGranted ErrorCode = "PERMISSION_NOT_GRANTED"
)

// AppError 应用错误
type AppError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Field   string    `json:"field,omitempty"`
	Err     error     `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// HTTPStatusCode 返回对应的HTTP状态码
func (e *AppError) HTTPStatusCode() int {
	switch e.Code {
	case CodeBadRequest, CodeValidation:
		return http.StatusBadRequest
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeForbidden, CodePermissionNotGranted:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict, CodeEmailExists, CodeAlreadyJoined, CodeConcurrentModified:
		return http.StatusConflict
	case CodeTooManyRequest:
		return http.StatusTooManyRequests
	case CodeUnavailable:
		return http.StatusServiceUnavailable
	case CodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// New 创建新错误
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap 包装错误
func Wrap(err error, code ErrorCode, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

func BadRequest(message string) *AppError {
	return New(CodeBadRequest, message)
}

func NotFound(message string) *AppError {
	return New(CodeNotFound, message)
}

func Internal(message string) *AppError {
	return New(CodeInternal, message)
}

func Unauthorized(message string) *AppError {
	return New(CodeUnauthorized, message)
}

func Forbidden(message string) *AppError {
	return New(CodeForbidden, message)
}

func Conflict(message string) *AppError {
	return New(CodeConflict, message)
}

func TooManyRequests(message string) *AppError {
	return New(CodeTooManyRequest, message)
}

func Validation(message string) *AppError {
	return New(CodeValidation, message)
}

// Is 检查是否为特定错误码
func Is(err error, code ErrorCode) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// FromDomainError 按哨兵错误把领域错误映射为应用错误，先匹配具体的业务错误
func FromDomainError(err error) *AppError {
	if err == nil {
		return nil
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	var resultErr shared.Error
	if errors.As(err, &resultErr) && resultErr.Code == shared.CodeUnavailable {
		return Wrap(err, CodeUnavailable, resultErr.Message)
	}

	msg := err.Error()
	var field string
	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		msg = domainErr.Message
		field = domainErr.Field
	}

	var code ErrorCode
	switch {
	case errors.Is(err, identity.ErrEmailAlreadyExists):
		code = CodeEmailExists
	case errors.Is(err, competition.ErrAlreadyJoined):
		code = CodeAlreadyJoined
	case errors.Is(err, shared.ErrConcurrentModification):
		code = CodeConcurrentModified
	case errors.Is(err, shared.ErrInvalidInput):
		code = CodeValidation
	case errors.Is(err, shared.ErrNotFound):
		code = CodeNotFound
	case errors.Is(err, shared.ErrConflict):
		code = CodeConflict
	case errors.Is(err, shared.ErrUnauthorized):
		code = CodeUnauthorized
	case errors.Is(err, shared.ErrForbidden):
		code = CodePermissionNotGranted
	case errors.Is(err, context.DeadlineExceeded):
		return Wrap(err, CodeTimeout, "request timed out")
	case errors.Is(err, context.Canceled):
		return Wrap(err, CodeUnavailable, "request canceled")
	default:
		return Wrap(err, CodeInternal, "internal server error")
	}
	return &AppError{Code: code, Message: msg, Field: field, Err: err}
}
