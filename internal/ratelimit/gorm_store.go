package ratelimit

import (
	"context"
	"errors"
	"time"

	"github.com/pklatka/modernblog/internal/db"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const maxAttempts = 3

// GormStore 把计数保存在 rate_limits 表中。
type GormStore struct {
	db *gorm.DB
}

// NewGormStore creates a GormStore instance.
func NewGormStore(gdb *gorm.DB) *GormStore {
	return &GormStore{db: gdb}
}

// Hit 先尝试条件更新：窗口已过期则重置为 1，未达上限则加 1。
// 条件不满足时再尝试插入新记录；两者都未生效说明已达上限，或与并发请求竞争，需要重读确认。
func (s *GormStore) Hit(ctx context.Context, key string, max int, window time.Duration, now time.Time) (bool, error) {
	now = now.UTC()
	cutoff := now.Add(-window)
	tx := s.db.WithContext(ctx)

	for attempt := 0; attempt < maxAttempts; attempt++ {
		result := tx.Model(&db.RateLimitRecord{}).
			Where("ip_address = ?", key).
			Where("window_start < ? OR request_count < ?", cutoff, max).
			Updates(map[string]any{
				"request_count": gorm.Expr("CASE WHEN window_start < ? THEN 1 ELSE request_count + 1 END", cutoff),
				"window_start":  gorm.Expr("CASE WHEN window_start < ? THEN ? ELSE window_start END", cutoff, now),
			})
		if result.Error != nil {
			return false, result.Error
		}
		if result.RowsAffected == 1 {
			return true, nil
		}

		created := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&db.RateLimitRecord{
			IPAddress:    key,
			RequestCount: 1,
			WindowStart:  now,
		})
		if created.Error != nil {
			return false, created.Error
		}
		if created.RowsAffected == 1 {
			return true, nil
		}

		var record db.RateLimitRecord
		if err := tx.Where("ip_address = ?", key).First(&record).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				continue
			}
			return false, err
		}
		if record.RequestCount >= max && !record.WindowStart.Before(cutoff) {
			return false, nil
		}
	}
	return false, ErrContention
}
