package repository

import (
	"context"
	"database/sql"

	"gorm.io/gorm"

	"github.com/fisker/salesflow/internal/approval"
)

// UnitOfWork 基于 gorm 事务的 approval.UnitOfWork 实现
type UnitOfWork struct {
	db        *gorm.DB
	cache     FormCache
	registry  *approval.Registry
	txOptions *sql.TxOptions
}

// UnitOfWorkOption UnitOfWork 可选项
type UnitOfWorkOption func(*UnitOfWork)

// WithIsolation 指定审批事务的隔离级别
func WithIsolation(level sql.IsolationLevel) UnitOfWorkOption {
	return func(u *UnitOfWork) {
		u.txOptions = &sql.TxOptions{Isolation: level}
	}
}

func NewUnitOfWork(db *gorm.DB, cache FormCache, registry *approval.Registry, opts ...UnitOfWorkOption) *UnitOfWork {
	u := &UnitOfWork{db: db, cache: cache, registry: registry}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// TxOptions 返回事务选项，nil 表示使用驱动默认值
func (u *UnitOfWork) TxOptions() *sql.TxOptions {
	return u.txOptions
}

func (u *UnitOfWork) stores(db *gorm.DB) approval.Stores {
	return approval.Stores{
		Directory: NewDirectoryRepository(db, u.cache),
		Ledger:    NewLedgerRepository(db),
		Documents: NewDocumentRepository(db, u.registry),
	}
}

// Transaction fn 返回错误时回滚，否则提交
func (u *UnitOfWork) Transaction(ctx context.Context, fn func(ctx context.Context, s approval.Stores) error) error {
	var opts []*sql.TxOptions
	if u.txOptions != nil {
		opts = append(opts, u.txOptions)
	}
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(ctx, u.stores(tx))
	}, opts...)
}

func (u *UnitOfWork) Reader() approval.Stores {
	return u.stores(u.db)
}
