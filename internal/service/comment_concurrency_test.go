package service

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/pklatka/modernblog/internal/db"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func openFileTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	gdb, err := db.Open("sqlite://" + filepath.Join(t.TempDir(), "blog.db"))
	if err != nil {
		t.Fatalf("open file database: %v", err)
	}
	gdb.Logger = logger.Default.LogMode(logger.Silent)
	t.Cleanup(func() {
		if sqlDB, err := gdb.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return gdb
}

// createConcurrently 并发提交 n 条评论，ipFor 决定每条评论的来源 IP。
func createConcurrently(svc *CommentService, n int, ipFor func(i int) string) (accepted int, errs []error) {
	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	start := make(chan struct{})
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			_, err := svc.Create("post", validComment(), ipFor(i))
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, err)
				return
			}
			accepted++
		}(i)
	}
	close(start)
	wg.Wait()
	return accepted, errs
}

func TestCommentServiceConcurrentCreatesOnFileDatabase(t *testing.T) {
	gdb := openFileTestDB(t)
	seedPost(t, gdb, "post", timePtr(time.Now().UTC().Add(-time.Hour)))
	svc := NewCommentService(gdb, testCommentConfig())

	accepted, errs := createConcurrently(svc, 20, func(i int) string { return fmt.Sprintf("10.1.0.%d", i+1) })
	if accepted != 20 || len(errs) != 0 {
		t.Fatalf("independent clients: accepted=%d errors=%v", accepted, errs)
	}

	accepted, errs = createConcurrently(svc, 20, func(int) string { return "10.2.0.1" })
	if accepted != 5 {
		t.Fatalf("single client: expected exactly 5 accepted, got %d (errors=%v)", accepted, errs)
	}
	for _, err := range errs {
		if !errors.Is(err, ErrTooManyComments) {
			t.Fatalf("single client: expected only rate limit rejections, got %v", err)
		}
	}

	var stored int64
	gdb.Model(&db.Comment{}).Where("ip_address = ?", "10.2.0.1").Count(&stored)
	if stored != 5 {
		t.Fatalf("expected 5 stored comments for the client, got %d", stored)
	}
}

// postgresNamed 让 SQLite 连接以 postgres 方言名出现，只用于检查生成的语句。
type postgresNamed struct {
	gorm.Dialector
}

func (postgresNamed) Name() string {
	return "postgres"
}

func TestCheckFrequencyLocksClientOnPostgres(t *testing.T) {
	dsn := fmt.Sprintf("file:advisory-%d?mode=memory&cache=shared", time.Now().UnixNano())
	gdb, err := gorm.Open(postgresNamed{sqlite.Open(dsn)}, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
		DryRun: true,
	})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := gdb.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	var statements []string
	if err := gdb.Callback().Raw().After("gorm:raw").Register("test:capture_raw", func(d *gorm.DB) {
		statements = append(statements, d.Statement.SQL.String())
	}); err != nil {
		t.Fatalf("register callback: %v", err)
	}

	gate := NewSpamGate(testCommentConfig())
	if err := gate.CheckFrequency(gdb, "10.0.0.1"); err != nil {
		t.Fatalf("check frequency: %v", err)
	}
	if len(statements) != 1 || !strings.Contains(statements[0], "pg_advisory_xact_lock") {
		t.Fatalf("expected an advisory lock before counting, got %v", statements)
	}

	statements = nil
	plain := setupServiceTestDB(t, "advisory-sqlite")
	if err := plain.Callback().Raw().After("gorm:raw").Register("test:capture_raw", func(d *gorm.DB) {
		statements = append(statements, d.Statement.SQL.String())
	}); err != nil {
		t.Fatalf("register callback: %v", err)
	}
	if err := gate.CheckFrequency(plain, "10.0.0.1"); err != nil {
		t.Fatalf("check frequency: %v", err)
	}
	if len(statements) != 0 {
		t.Fatalf("sqlite must not issue lock statements, got %v", statements)
	}
}
