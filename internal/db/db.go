package db

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open 根据 DATABASE_URL 打开数据库连接并执行自动迁移。
// 支持 sqlite://path 与 postgres://dsn 两种前缀，未带前缀时按 SQLite 文件路径处理。
func Open(databaseURL string) (*gorm.DB, error) {
	dialector, err := dialectorFor(databaseURL)
	if err != nil {
		return nil, err
	}

	gdb, err := gorm.Open(dialector, &gorm.Config{
		Logger:  logger.Default.LogMode(logger.Warn),
		NowFunc: NowUTC,
	})
	if err != nil {
		return nil, err
	}

	if err := Migrate(gdb); err != nil {
		return nil, err
	}
	return gdb, nil
}

// NowUTC 是全局统一的 UTC 时间源；SQLite 按字符串比较时间，时区必须一致。
func NowUTC() time.Time {
	return time.Now().UTC()
}

// Migrate 为核心模型创建或更新表结构。
func Migrate(gdb *gorm.DB) error {
	return gdb.AutoMigrate(
		&Tag{},
		&Post{},
		&Comment{},
		&Image{},
		&Subscriber{},
		&RateLimitRecord{},
	)
}

func dialectorFor(databaseURL string) (gorm.Dialector, error) {
	url := strings.TrimSpace(databaseURL)
	switch {
	case strings.HasPrefix(url, "postgres://"), strings.HasPrefix(url, "postgresql://"):
		return postgres.Open(url), nil
	case strings.HasPrefix(url, "sqlite://"):
		url = strings.TrimPrefix(url, "sqlite://")
	case strings.Contains(url, "://"):
		return nil, fmt.Errorf("unsupported database url %q", databaseURL)
	}

	if url == "" {
		url = "modernblog.db"
	}
	if !strings.HasPrefix(url, "file:") {
		if err := ensureParentDir(url); err != nil {
			return nil, err
		}
	}
	return sqlite.Open(withSQLiteLocking(url)), nil
}

// sqliteLockParams: 事务以 BEGIN IMMEDIATE 开始，锁冲突时最多等待 5 秒。
var sqliteLockParams = []struct{ key, value string }{
	{"_busy_timeout", "5000"},
	{"_txlock", "immediate"},
}

// withSQLiteLocking 为文件数据库补充未显式设置的锁参数，内存库保持原样。
func withSQLiteLocking(dsn string) string {
	if strings.Contains(dsn, "mode=memory") || strings.HasPrefix(dsn, ":memory:") {
		return dsn
	}

	var params []string
	for _, p := range sqliteLockParams {
		if !strings.Contains(dsn, p.key+"=") {
			params = append(params, p.key+"="+p.value)
		}
	}
	if len(params) == 0 {
		return dsn
	}

	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + strings.Join(params, "&")
}

func ensureParentDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}

	info, err := os.Stat(dir)
	if err == nil {
		if !info.IsDir() {
			return errors.New("database path parent is not a directory")
		}
		return nil
	}

	if os.IsNotExist(err) {
		return os.MkdirAll(dir, 0o755)
	}

	return err
}
