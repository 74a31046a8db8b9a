package db

import "time"

// Comment 是读者评论，ParentID 为空时为根评论。
type Comment struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	PostID      uint      `gorm:"not null;index" json:"post_id"`
	ParentID    *uint     `gorm:"index" json:"parent_id"`
	AuthorName  string    `gorm:"size:100;not null" json:"author_name"`
	AuthorEmail string    `gorm:"size:255" json:"author_email,omitempty"`
	Content     string    `gorm:"type:text;not null" json:"content"`
	IPAddress   string    `gorm:"size:45;index" json:"ip_address,omitempty"`
	IsApproved  bool      `gorm:"not null;default:false;index" json:"is_approved"`
	CreatedAt   time.Time `gorm:"index" json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
