package service

import (
	"fmt"
	"testing"
	"time"

	"github.com/pklatka/modernblog/internal/db"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupServiceTestDB(t *testing.T, name string) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s-%d?mode=memory&cache=shared", name, time.Now().UnixNano())
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:  logger.Default.LogMode(logger.Silent),
		NowFunc: db.NowUTC,
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	if err := db.Migrate(gdb); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	t.Cleanup(func() {
		if sqlDB, err := gdb.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return gdb
}

// fixedClock 返回一个可手动推进的时间源。
type fixedClock struct {
	current time.Time
}

func newFixedClock() *fixedClock {
	return &fixedClock{current: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fixedClock) Now() time.Time {
	return c.current
}

func (c *fixedClock) Advance(d time.Duration) {
	c.current = c.current.Add(d)
}

func seedPost(t *testing.T, gdb *gorm.DB, slug string, publishedAt *time.Time) db.Post {
	t.Helper()
	post := db.Post{
		Slug:        slug,
		Title:       slug,
		Content:     "body",
		ReadingTime: 1,
		IsPublished: publishedAt != nil,
		PublishedAt: publishedAt,
	}
	if err := gdb.Create(&post).Error; err != nil {
		t.Fatalf("seed post %s: %v", slug, err)
	}
	return post
}

func timePtr(t time.Time) *time.Time {
	return &t
}
