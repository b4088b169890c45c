package shared

import (
	"context"
)

// Specification 封装查询条件的业务规则
// IsSatisfiedBy 用于内存过滤；数据库仓储按具体类型翻译成 SQL 条件。
type Specification[T any] interface {
	IsSatisfiedBy(ctx context.Context, candidate T) bool
}

type AndSpecification[T any] struct {
	Left  Specification[T]
	Right Specification[T]
}

func (s AndSpecification[T]) IsSatisfiedBy(ctx context.Context, candidate T) bool {
	return s.Left.IsSatisfiedBy(ctx, candidate) && s.Right.IsSatisfiedBy(ctx, candidate)
}

func And[T any](left, right Specification[T]) Specification[T] {
	return AndSpecification[T]{Left: left, Right: right}
}

type OrSpecification[T any] struct {
	Left  Specification[T]
	Right Specification[T]
}

func (s OrSpecification[T]) IsSatisfiedBy(ctx context.Context, candidate T) bool {
	return s.Left.IsSatisfiedBy(ctx, candidate) || s.Right.IsSatisfiedBy(ctx, candidate)
}

func Or[T any](left, right Specification[T]) Specification[T] {
	return OrSpecification[T]{Left: left, Right: right}
}

type NotSpecification[T any] struct {
	Spec Specification[T]
}

func (s NotSpecification[T]) IsSatisfiedBy(ctx context.Context, candidate T) bool {
	return !s.Spec.IsSatisfiedBy(ctx, candidate)
}

func Not[T any](inner Specification[T]) Specification[T] {
	return NotSpecification[T]{Spec: inner}
}

// Filter 内存仓储使用的过滤辅助
func Filter[T any](ctx context.Context, spec Specification[T], candidates []T) []T {
	if spec == nil {
		return candidates
	}
	out := make([]T, 0, len(candidates))
	for _, c := range candidates {
		if spec.IsSatisfiedBy(ctx, c) {
			out = append(out, c)
		}
	}
	return out
}
