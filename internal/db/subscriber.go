package db

import "time"

// Subscriber 是新文章通知的订阅者。
type Subscriber struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	Email            string    `gorm:"size:255;uniqueIndex;not null" json:"email"`
	UnsubscribeToken string    `gorm:"size:36;uniqueIndex;not null" json:"-"`
	IsActive         bool      `gorm:"not null;default:false;index" json:"is_active"`
	CreatedAt        time.Time `json:"created_at"`
}
