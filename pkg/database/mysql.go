package database

import (
	"fmt"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"profitops-go/internal/model"
	"profitops-go/pkg/log"
)

// OpenMySQL 连接活动历史数据库并执行表结构迁移。
func OpenMySQL(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}
	// 活动历史写入量很小，连接池保持较小规模
	sqlDB.SetMaxIdleConns(2)
	sqlDB.SetMaxOpenConns(10)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := db.AutoMigrate(&model.Activity{}); err != nil {
		return nil, fmt.Errorf("failed to migrate activities: %w", err)
	}

	log.Info("MySQL database connected successfully")
	return db, nil
}
