package service

import (
	"strings"
	"time"

	"github.com/pklatka/modernblog/internal/config"
	"github.com/pklatka/modernblog/internal/db"
	"gorm.io/gorm"
)

// SpamGate 在创建评论前执行反垃圾检查：蜜罐字段、表单停留时间、同 IP 评论频率。
type SpamGate struct {
	minFormTime  time.Duration
	window       time.Duration
	maxPerWindow int
	now          func() time.Time
}

// FormSignals 是表单随评论一起提交的反垃圾字段。
type FormSignals struct {
	Honeypot string
	// FormTimestamp 为表单渲染时的 Unix 秒；为空时跳过停留时间检查。
	FormTimestamp *int64
}

// NewSpamGate creates a SpamGate from the comment settings.
func NewSpamGate(cfg config.CommentConfig) *SpamGate {
	return &SpamGate{
		minFormTime:  cfg.MinFormTime,
		window:       cfg.Window,
		maxPerWindow: cfg.MaxPerWindow,
		now:          db.NowUTC,
	}
}

// WithClock 替换时间源，便于测试。
func (g *SpamGate) WithClock(now func() time.Time) *SpamGate {
	if now != nil {
		g.now = now
	}
	return g
}

// CheckForm 执行不依赖数据库的检查，应在频率检查之前调用。
func (g *SpamGate) CheckForm(signals FormSignals) error {
	if strings.TrimSpace(signals.Honeypot) != "" {
		return ErrHoneypotFilled
	}

	if signals.FormTimestamp != nil && g.minFormTime > 0 {
		rendered := time.Unix(*signals.FormTimestamp, 0)
		if g.now().Sub(rendered) < g.minFormTime {
			return ErrSubmittedTooFast
		}
	}
	return nil
}

// CheckFrequency 统计该 IP 在滑动窗口内的评论数，达到上限时拒绝。
// 必须在写入评论的同一事务中调用，计数前先锁定该 IP，同 IP 的并发提交按顺序计数。
func (g *SpamGate) CheckFrequency(tx *gorm.DB, ipAddress string) error {
	if g.maxPerWindow <= 0 {
		return nil
	}
	if err := lockCommentClient(tx, ipAddress); err != nil {
		return err
	}

	since := g.now().Add(-g.window)
	var count int64
	if err := tx.Model(&db.Comment{}).
		Where("ip_address = ? AND created_at >= ?", ipAddress, since).
		Count(&count).Error; err != nil {
		return err
	}
	if count >= int64(g.maxPerWindow) {
		return ErrTooManyComments
	}
	return nil
}

// lockCommentClient 在 PostgreSQL 上获取事务级咨询锁，提交或回滚时自动释放。
// SQLite 的写事务以 BEGIN IMMEDIATE 开始，本身已串行。
func lockCommentClient(tx *gorm.DB, ipAddress string) error {
	if tx.Dialector.Name() != "postgres" {
		return nil
	}
	return tx.Exec("SELECT pg_advisory_xact_lock(hashtext(?))", "comment:"+ipAddress).Error
}
