package db

import "time"

// Post 定义了文章模型
type Post struct {
	ID            uint       `gorm:"primaryKey" json:"id"`
	Slug          string     `gorm:"size:255;uniqueIndex;not null" json:"slug"`
	Title         string     `gorm:"size:500;not null" json:"title"`
	Excerpt       string     `gorm:"type:text" json:"excerpt"`
	Content       string     `gorm:"type:text;not null" json:"content"`
	CoverImage    string     `gorm:"size:500" json:"cover_image"`
	ReadingTime   int        `gorm:"not null;default:1" json:"reading_time"`
	IsPublished   bool       `gorm:"not null;default:false;index" json:"is_published"`
	IsFeatured    bool       `gorm:"not null;default:false;index" json:"is_featured"`
	Views         uint64     `gorm:"not null;default:0" json:"views"`
	NotifyPending bool       `gorm:"not null;default:false;index" json:"-"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
	PublishedAt   *time.Time `gorm:"index" json:"published_at"`
	Tags          []Tag      `gorm:"many2many:post_tags;" json:"tags"`
	Comments      []Comment  `json:"-"`
	Images        []Image    `json:"-"`
}

// IsVisible 判断文章在给定时间点是否对公众可见。
func (p Post) IsVisible(now time.Time) bool {
	return p.IsPublished && p.PublishedAt != nil && !p.PublishedAt.After(now)
}
