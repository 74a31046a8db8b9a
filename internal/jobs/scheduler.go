// Package jobs 运行周期性后台任务。
package jobs

import (
	"fmt"
	"log"

	"github.com/robfig/cron/v3"
)

// DueNotificationDispatcher 投递已到发布时间的文章通知。
type DueNotificationDispatcher interface {
	DispatchDueNotifications(baseURL string) (int, error)
}

// Scheduler 包装 cron，注册定时发布的通知清扫任务。
type Scheduler struct {
	cron *cron.Cron
}

// NewScheduler creates a Scheduler that sweeps scheduled posts on spec.
func NewScheduler(spec string, posts DueNotificationDispatcher, baseURL string) (*Scheduler, error) {
	c := cron.New()
	if _, err := c.AddFunc(spec, func() {
		SweepScheduledPosts(posts, baseURL)
	}); err != nil {
		return nil, fmt.Errorf("schedule sweep %q: %w", spec, err)
	}
	return &Scheduler{cron: c}, nil
}

// Start runs the scheduler in its own goroutine.
func (s *Scheduler) Start() {
	s.cron.Start()
	log.Printf("[SCHEDULER] scheduled publication sweep started")
}

// Stop 停止调度并等待正在执行的任务结束。
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

// SweepScheduledPosts 执行一次清扫，错误只记录日志。
func SweepScheduledPosts(posts DueNotificationDispatcher, baseURL string) {
	sent, err := posts.DispatchDueNotifications(baseURL)
	if err != nil {
		log.Printf("[SCHEDULER] scheduled post sweep failed: %v", err)
		return
	}
	if sent > 0 {
		log.Printf("[SCHEDULER] queued notifications for %d scheduled posts", sent)
	}
}
