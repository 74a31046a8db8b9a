package db

import "time"

// Image 记录上传的图片文件，PostID 为空表示独立图片。
type Image struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	PostID    *uint     `gorm:"index" json:"post_id"`
	Filename  string    `gorm:"size:255;not null" json:"filename"`
	Filepath  string    `gorm:"size:500;not null" json:"-"`
	URL       string    `gorm:"size:500" json:"url"`
	AltText   string    `gorm:"size:500" json:"alt_text"`
	Width     int       `json:"width"`
	Height    int       `json:"height"`
	SizeBytes int64     `json:"size_bytes"`
	CreatedAt time.Time `json:"created_at"`
}
