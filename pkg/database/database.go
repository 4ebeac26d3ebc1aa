package database

import (
    "fmt"
    "time"

    "gorm.io/driver/postgres"
    "gorm.io/gorm"
    glogger "gorm.io/gorm/logger"

    "github.com/d60-Lab/home-timeline/config"
    "github.com/d60-Lab/home-timeline/internal/model"
)

// InitDB 建立主库连接并迁移表结构
func InitDB(cfg *config.Config) (*gorm.DB, error) {
    db, err := Open(cfg.Database.DSN, cfg)
    if err != nil {
        return nil, err
    }
    if err := Migrate(db); err != nil {
        return nil, fmt.Errorf("migrate: %w", err)
    }
    return db, nil
}

// Open 打开单个 postgres 连接（分片场景下按 DSN 逐个调用，迁移由调用方负责）
func Open(dsn string, cfg *config.Config) (*gorm.DB, error) {
    db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
        Logger: glogger.Default.LogMode(glogger.Warn),
    })
    if err != nil {
        return nil, fmt.Errorf("open postgres: %w", err)
    }
    sqlDB, err := db.DB()
    if err != nil {
        return nil, err
    }
    sqlDB.SetMaxOpenConns(cfg.Database.MaxOpenConns)
    sqlDB.SetMaxIdleConns(cfg.Database.MaxIdleConns)
    sqlDB.SetConnMaxLifetime(time.Hour)
    return db, nil
}

// Migrate 迁移本服务用到的全部表
func Migrate(db *gorm.DB) error {
    return db.AutoMigrate(
        &model.UserProfile{},
        &model.Post{},
        &model.Follow{},
        &model.Fan{},
        &model.TimelineEntry{},
        &model.DeadLetter{},
    )
}
