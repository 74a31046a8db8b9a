// Package ratelimit 实现按客户端 IP 的固定窗口请求限流。
package ratelimit

import (
	"context"
	"errors"
	"log"
	"time"
)

// ErrContention 表示乐观重试用尽仍未能完成计数。
var ErrContention = errors.New("rate limit counter contention")

// Store 原子地对 key 计数并判断是否放行。
type Store interface {
	Hit(ctx context.Context, key string, max int, window time.Duration, now time.Time) (bool, error)
}

// Limiter 在 Store 之上提供失败放行语义。
type Limiter struct {
	store  Store
	max    int
	window time.Duration
	now    func() time.Time
}

// New creates a Limiter with the given store and limits.
func New(store Store, max int, window time.Duration) *Limiter {
	return &Limiter{
		store:  store,
		max:    max,
		window: window,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// WithClock 替换时间源，便于测试。
func (l *Limiter) WithClock(now func() time.Time) *Limiter {
	if now != nil {
		l.now = now
	}
	return l
}

// Allow 判断 key 的本次请求是否放行。key 为空或存储出错时放行，错误只记录日志。
func (l *Limiter) Allow(ctx context.Context, key string) bool {
	if key == "" || l.max <= 0 || l.window <= 0 {
		return true
	}

	allowed, err := l.store.Hit(ctx, key, l.max, l.window, l.now())
	if err != nil {
		log.Printf("rate limit check for %s failed, allowing request: %v", key, err)
		return true
	}
	return allowed
}

// Window returns the configured window length.
func (l *Limiter) Window() time.Duration {
	return l.window
}
