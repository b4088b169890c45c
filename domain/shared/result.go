package shared

import "fmt"

// ErrorCode 领域错误分类
type ErrorCode string

const (
	CodeValidation ErrorCode = "validation"
	CodeNotFound   ErrorCode = "not_found"
	CodeConflict   ErrorCode = "conflict"
	CodeForbidden  ErrorCode = "forbidden"

	// CodeUnavailable 外部通道暂不可用，没有对应的哨兵错误
	CodeUnavailable ErrorCode = "unavailable"
)

// Error 可预期的业务失败，随 Result 返回，不用于基础设施故障
type Error struct {
	Code    ErrorCode
	Message string
}

// NoError 表示“没有错误”的零值
var NoError = Error{}

func ValidationError(message string) Error { return Error{Code: CodeValidation, Message: message} }
func NotFoundError(message string) Error   { return Error{Code: CodeNotFound, Message: message} }
func ConflictError(message string) Error   { return Error{Code: CodeConflict, Message: message} }
func ForbiddenError(message string) Error  { return Error{Code: CodeForbidden, Message: message} }
func UnavailableError(message string) Error {
	return Error{Code: CodeUnavailable, Message: message}
}

// IsZero 判断是否为 NoError
func (e Error) IsZero() bool {
	return e.Code == "" && e.Message == ""
}

func (e Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap 映射到对应的哨兵错误，使 errors.Is(err, ErrNotFound) 等判断可用
func (e Error) Unwrap() error {
	switch e.Code {
	case CodeValidation:
		return ErrInvalidInput
	case CodeNotFound:
		return ErrNotFound
	case CodeConflict:
		return ErrConflict
	case CodeForbidden:
		return ErrForbidden
	default:
		return nil
	}
}

// Result 无返回值操作的结果：要么成功，要么携带一个非空 Error。
// 构造时违反该不变量会直接 panic，这属于编程错误而非业务失败。
type Result struct {
	ok  bool
	err Error
}

func newResult(ok bool, err Error) Result {
	if ok && !err.IsZero() {
		panic("shared: successful result cannot carry an error")
	}
	if !ok && err.IsZero() {
		panic("shared: failed result must carry an error")
	}
	return Result{ok: ok, err: err}
}

func Success() Result {
	return newResult(true, NoError)
}

func Failure(err Error) Result {
	return newResult(false, err)
}

func (r Result) IsSuccess() bool { return r.ok }
func (r Result) IsFailure() bool { return !r.ok }

// Error 返回失败原因；成功时为 NoError
func (r Result) Error() Error { return r.err }

// Err 转换为 Go error，成功时返回 nil
func (r Result) Err() error {
	if r.ok {
		return nil
	}
	return r.err
}

// ResultOf 携带值的结果
type ResultOf[T any] struct {
	Result
	value T
}

func SuccessOf[T any](value T) ResultOf[T] {
	return ResultOf[T]{Result: newResult(true, NoError), value: value}
}

func FailureOf[T any](err Error) ResultOf[T] {
	return ResultOf[T]{Result: newResult(false, err)}
}

// Value 读取成功结果的值；对失败结果调用会 panic
func (r ResultOf[T]) Value() T {
	if !r.ok {
		panic(fmt.Sprintf("shared: value of failed result accessed (%s)", r.err))
	}
	return r.value
}
