package service

import (
	"errors"
	"strings"
	"time"

	"github.com/pklatka/modernblog/internal/db"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrTagExists   = errors.New("tag already exists")
	ErrTagNotFound = errors.New("tag not found")
)

// TagService wraps tag related operations.
type TagService struct {
	db  *gorm.DB
	now func() time.Time
}

// TagInput 是创建或更新标签时接受的字段。
type TagInput struct {
	Name        string `json:"name" validate:"required,min=1,max=100"`
	Description string `json:"description" validate:"max=1000"`
	Color       string `json:"color" validate:"omitempty,hexcolor"`
}

// NewTagService creates a TagService instance.
func NewTagService(gdb *gorm.DB) *TagService {
	return &TagService{db: gdb, now: db.NowUTC}
}

// List 返回按名称排序的标签。includeHidden 为 false 时只返回关联了公开文章的标签。
func (s *TagService) List(includeHidden bool) ([]db.Tag, error) {
	query := s.db.Model(&db.Tag{})
	if !includeHidden {
		visible := s.db.Table("post_tags").
			Select("post_tags.tag_id").
			Joins("JOIN posts ON posts.id = post_tags.post_id").
			Where("posts.is_published = ? AND posts.published_at IS NOT NULL AND posts.published_at <= ?", true, s.now())
		query = query.Where("tags.id IN (?)", visible)
	}

	var tags []db.Tag
	if err := query.Order("tags.name asc").Order("tags.id asc").Find(&tags).Error; err != nil {
		return nil, err
	}
	return tags, nil
}

// GetBySlug fetches a single tag.
func (s *TagService) GetBySlug(slug string) (*db.Tag, error) {
	var tag db.Tag
	if err := s.db.Where("slug = ?", slug).First(&tag).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTagNotFound
		}
		return nil, err
	}
	return &tag, nil
}

// Create inserts a new tag with unique name.
func (s *TagService) Create(input TagInput) (*db.Tag, error) {
	input.Name = strings.TrimSpace(input.Name)
	if err := validateStruct(input); err != nil {
		return nil, err
	}

	tag := db.Tag{
		Name:        input.Name,
		Slug:        Slugify(input.Name, "tag"),
		Description: strings.TrimSpace(input.Description),
		Color:       normalizeTagColor(input.Color),
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&db.Tag{}).Where("name = ? OR slug = ?", tag.Name, tag.Slug).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return ErrTagExists
		}
		return tx.Create(&tag).Error
	})
	if err != nil {
		return nil, err
	}
	return &tag, nil
}

// Update changes the tag while keeping name and slug uniqueness.
func (s *TagService) Update(slug string, input TagInput) (*db.Tag, error) {
	input.Name = strings.TrimSpace(input.Name)
	if err := validateStruct(input); err != nil {
		return nil, err
	}

	var tag db.Tag
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("slug = ?", slug).First(&tag).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrTagNotFound
			}
			return err
		}

		newSlug := Slugify(input.Name, "tag")
		var count int64
		if err := tx.Model(&db.Tag{}).
			Where("(name = ? OR slug = ?) AND id <> ?", input.Name, newSlug, tag.ID).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return ErrTagExists
		}

		tag.Name = input.Name
		tag.Slug = newSlug
		tag.Description = strings.TrimSpace(input.Description)
		if input.Color != "" {
			tag.Color = normalizeTagColor(input.Color)
		}
		return tx.Save(&tag).Error
	})
	if err != nil {
		return nil, err
	}
	return &tag, nil
}

// Delete 删除标签并解除其与文章的关联，文章本身保留。
func (s *TagService) Delete(slug string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var tag db.Tag
		if err := tx.Where("slug = ?", slug).First(&tag).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrTagNotFound
			}
			return err
		}
		if err := tx.Model(&tag).Association("Posts").Clear(); err != nil {
			return err
		}
		return tx.Delete(&tag).Error
	})
}

// getOrCreateTags 按名称查找标签，不存在的自动创建。返回顺序与去重后的输入一致。
func getOrCreateTags(tx *gorm.DB, names []string) ([]db.Tag, error) {
	seen := make(map[string]struct{}, len(names))
	cleaned := make([]string, 0, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		cleaned = append(cleaned, name)
	}
	if len(cleaned) == 0 {
		return []db.Tag{}, nil
	}

	for _, name := range cleaned {
		if len(name) > 100 {
			return nil, newValidationError("tags", "tag names must be at most 100 characters")
		}
		tag := db.Tag{Name: name, Slug: Slugify(name, "tag"), Color: db.DefaultTagColor}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&tag).Error; err != nil {
			return nil, err
		}
	}

	var existing []db.Tag
	if err := tx.Where("name IN ?", cleaned).Find(&existing).Error; err != nil {
		return nil, err
	}
	byName := make(map[string]db.Tag, len(existing))
	for _, tag := range existing {
		byName[tag.Name] = tag
	}

	tags := make([]db.Tag, 0, len(cleaned))
	for _, name := range cleaned {
		tag, ok := byName[name]
		if !ok {
			// slug 与其他名称的标签冲突，插入被忽略
			return nil, newValidationError("tags", "tag "+name+" conflicts with an existing tag")
		}
		tags = append(tags, tag)
	}
	return tags, nil
}

func normalizeTagColor(color string) string {
	color = strings.TrimSpace(color)
	if color == "" {
		return db.DefaultTagColor
	}
	return strings.ToLower(color)
}
