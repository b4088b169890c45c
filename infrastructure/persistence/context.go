package persistence

import (
	"context"

	"gorm.io/gorm"
)

type txKey struct{}

// TxFromContext 返回工作单元放入 ctx 的 GORM 事务，没有时返回 nil
func TxFromContext(ctx context.Context) *gorm.DB {
	if tx, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return tx
	}
	return nil
}

func ContextWithTx(ctx context.Context, tx *gorm.DB) context.Context {
	return context.WithValue(ctx, txKey{}, tx)
}
