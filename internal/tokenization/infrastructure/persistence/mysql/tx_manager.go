// Package mysql 提供通证化领域仓储的 GORM 实现
package mysql

import (
	"context"

	"gorm.io/gorm"
)

// txKey 事务在 context 中的存放键
type txKey struct{}

// GormTxManager 基于 GORM 的事务管理器
// 事务句柄放入 context 传递，仓储方法统一经 dbFromCtx 取得句柄
type GormTxManager struct {
	db *gorm.DB
}

// NewGormTxManager 创建事务管理器
func NewGormTxManager(db *gorm.DB) *GormTxManager {
	return &GormTxManager{db: db}
}

// WithTx 在事务中执行 fn，fn 内通过 ctx 取得的仓储调用共享同一事务
// 已在事务内时直接复用外层事务，不再嵌套开启
func (m *GormTxManager) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return fn(ctx)
	}
	return m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(context.WithValue(ctx, txKey{}, tx))
	})
}

// dbFromCtx 取出当前事务句柄，无事务时回退到基础连接
func dbFromCtx(ctx context.Context, fallback *gorm.DB) *gorm.DB {
	if tx, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return tx
	}
	return fallback.WithContext(ctx)
}

// DBFromContext 供其他基础设施组件（如 outbox 发布器）加入当前事务
func DBFromContext(ctx context.Context, fallback *gorm.DB) *gorm.DB {
	return dbFromCtx(ctx, fallback)
}
