package db

import "time"

// RateLimitRecord 按客户端 IP 保存固定窗口内的请求计数。
type RateLimitRecord struct {
	IPAddress    string    `gorm:"primaryKey;size:45"`
	RequestCount int       `gorm:"not null;default:0"`
	WindowStart  time.Time `gorm:"not null"`
}

// TableName 指定自定义表名。
func (RateLimitRecord) TableName() string {
	return "rate_limits"
}
