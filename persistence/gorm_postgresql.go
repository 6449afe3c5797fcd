// persistence/gorm_postgresql.go
package persistence

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/wfunc/rpsarena/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// GormPostgreSQL 使用GORM的PostgreSQL实现
type GormPostgreSQL struct {
	db *gorm.DB
}

// NewGormPostgreSQL 创建GORM PostgreSQL数据库连接
func NewGormPostgreSQL(dsn string) (*GormPostgreSQL, error) {
	// 配置GORM日志
	gormLogger := logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold: time.Second,
			LogLevel:      logger.Silent,
			Colorful:      false,
		},
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormLogger,
	})
	if err != nil {
		return nil, fmt.Errorf("open gorm postgres: %w", err)
	}
	return newGorm(db)
}

func newGorm(db *gorm.DB) (*GormPostgreSQL, error) {
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	// 设置连接池
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	// 自动迁移表结构
	if err := db.AutoMigrate(&models.GormRoundRecord{}); err != nil {
		return nil, fmt.Errorf("auto migrate: %w", err)
	}
	return &GormPostgreSQL{db: db}, nil
}

// SaveRoundRecord 保存一局记录
func (p *GormPostgreSQL) SaveRoundRecord(ctx context.Context, record *models.RoundRecord) error {
	row := models.GormRoundRecordFrom(*record)
	return p.db.WithContext(ctx).Create(&row).Error
}

// RecentRounds 查询最近的对局
func (p *GormPostgreSQL) RecentRounds(ctx context.Context, roomID string, limit int) ([]models.RoundRecord, error) {
	var rows []models.GormRoundRecord
	q := p.db.WithContext(ctx).Order("resolved_at DESC").Order("id DESC").Limit(normalizeLimit(limit))
	if roomID != "" {
		q = q.Where("room_id = ?", roomID)
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}

	records := make([]models.RoundRecord, len(rows))
	for i, r := range rows {
		records[i] = r.ToRecord()
	}
	return records, nil
}

// Close 关闭数据库连接
func (p *GormPostgreSQL) Close() error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
