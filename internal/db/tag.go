package db

// DefaultTagColor 是未指定颜色时的标签色值。
const DefaultTagColor = "#6366f1"

// Tag 定义了标签模型
type Tag struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	Name        string `gorm:"size:100;uniqueIndex;not null" json:"name"`
	Slug        string `gorm:"size:100;uniqueIndex;not null" json:"slug"`
	Description string `gorm:"type:text" json:"description"`
	Color       string `gorm:"size:7;default:#6366f1" json:"color"`
	Posts       []Post `gorm:"many2many:post_tags;" json:"-"`
}
