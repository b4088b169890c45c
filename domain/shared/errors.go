/*
Package shared - 跨模块共享的领域内核

错误约定:
1. 哨兵错误用于 errors.Is() 判断错误类别
2. DomainError 在创建时捕获堆栈，日志打印时再格式化
3. 可预期的业务失败通过 Result/Error 返回，基础设施故障走普通 error
4. 领域层不包含 HTTP 状态码等传输层概念
*/
package shared

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrInvalidInput = errors.New("invalid input")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")

	// ErrConcurrentModification 乐观锁版本不匹配，属于可重试的冲突
	ErrConcurrentModification = fmt.Errorf("%w: concurrent modification", ErrConflict)
)

// DomainError 携带业务上下文和发生点堆栈，支持 errors.Is() 和 errors.As()
type DomainError struct {
	Err     error
	Entity  string
	Message string
	Field   string

	stack []uintptr
}

func (e *DomainError) Error() string {
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// Stack 按需格式化堆栈
func (e *DomainError) Stack() []string {
	return FormatStack(e.stack)
}

// CaptureStack 捕获当前调用栈
// skip: 跳过的帧数（通常为 3：Callers, CaptureStack, NewXxxError）
func CaptureStack(skip int) []uintptr {
	var pcs [32]uintptr
	n := runtime.Callers(skip, pcs[:])
	return pcs[:n]
}

// FormatStack 过滤 runtime 内部帧，最多返回 10 帧
func FormatStack(stack []uintptr) []string {
	if len(stack) == 0 {
		return nil
	}

	frames := runtime.CallersFrames(stack)
	var result []string
	for {
		frame, more := frames.Next()
		if !strings.Contains(frame.File, "runtime/") {
			result = append(result, fmt.Sprintf("%s:%d %s", frame.File, frame.Line, frame.Function))
		}
		if !more || len(result) > 10 {
			break
		}
	}
	return result
}

func NewNotFoundError(entity string) error {
	return &DomainError{
		Err:     ErrNotFound,
		Entity:  entity,
		Message: entity + " not found",
		stack:   CaptureStack(3),
	}
}

func NewConflictError(entity, message string) error {
	return &DomainError{
		Err:     ErrConflict,
		Entity:  entity,
		Message: message,
		stack:   CaptureStack(3),
	}
}

// NewConcurrentModificationError 版本冲突，errors.Is 同时匹配 ErrConflict
func NewConcurrentModificationError(entity, id string) error {
	return &DomainError{
		Err:     ErrConcurrentModification,
		Entity:  entity,
		Message: fmt.Sprintf("%s %s was modified concurrently", entity, id),
		stack:   CaptureStack(3),
	}
}

func NewValidationError(entity, field, reason string) error {
	return &DomainError{
		Err:     ErrInvalidInput,
		Entity:  entity,
		Field:   field,
		Message: reason,
		stack:   CaptureStack(3),
	}
}

func NewForbiddenError(entity, reason string) error {
	return &DomainError{
		Err:     ErrForbidden,
		Entity:  entity,
		Message: reason,
		stack:   CaptureStack(3),
	}
}

// FromResultError 把 Result 中的业务失败转换为带堆栈的 DomainError
func FromResultError(entity string, e Error) error {
	if e.IsZero() {
		return nil
	}
	return &DomainError{
		Err:     e.Unwrap(),
		Entity:  entity,
		Message: e.Message,
		stack:   CaptureStack(3),
	}
}

// Stacker 可提供堆栈的错误接口，API 层统一提取
type Stacker interface {
	Stack() []string
}
