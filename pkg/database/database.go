package database

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/fisker/salesflow/internal/model"
	"github.com/fisker/salesflow/pkg/config"
	"github.com/fisker/salesflow/pkg/logger"
)

var DB *gorm.DB

func Init(cfg *config.DatabaseConfig) error {
	// 设置默认值
	cfg.SetDefaults()

	// 初始化数据库连接（内部已经 Ping 验证）
	if err := InitDatabase(cfg); err != nil {
		return err
	}

	if cfg.AutoMigrate {
		if err := Migrate(DB); err != nil {
			return fmt.Errorf("failed to auto-migrate database: %w", err)
		}
	}

	logger.Infof("Database initialized successfully")
	return nil
}

// Models 审批流程使用的全部表
func Models() []interface{} {
	return []interface{}{
		&model.User{},
		&model.Role{},
		&model.UserRole{},
		&model.Form{},
		&model.FormRole{},
		&model.FormRoleApprover{},
		&model.SalesRFQ{},
		&model.SalesOrder{},
		&model.SalesQuotation{},
		&model.SalesInvoice{},
		&model.PurchaseInvoice{},
		&model.ApprovalRecord{},
	}
}

// Migrate 自动迁移审批相关表（表已存在时只补充缺失的列和索引）
func Migrate(db *gorm.DB) error {
	if db == nil {
		return fmt.Errorf("database connection is not initialized")
	}
	logger.Info("Migrating approval tables...")
	return db.AutoMigrate(Models()...)
}

func Close() error {
	if DB == nil {
		return nil
	}
	sqlDB, err := DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
