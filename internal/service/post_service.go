package service

import (
	"errors"
	"log"
	"os"
	"strings"
	"time"

	"github.com/pklatka/modernblog/internal/db"
	"gorm.io/gorm"
)

const (
	defaultFeaturedLimit = 3
	maxFeaturedLimit     = 10
	defaultRecentLimit   = 5
	maxRecentLimit       = 20
	maxSearchResults     = 20
	minSearchLength      = 2
)

// NewPostNotice 是文章发布后交给通知模块的任务。
type NewPostNotice struct {
	Title   string
	Slug    string
	Excerpt string
	BaseURL string
}

// PostNotifier 接收新文章通知任务，实现方不得阻塞调用方。
type PostNotifier interface {
	NotifyNewPost(notice NewPostNotice)
}

// PostService wraps post related database operations.
type PostService struct {
	db       *gorm.DB
	notifier PostNotifier
	now      func() time.Time
}

// PostFilter describes filters for listing posts.
type PostFilter struct {
	Page          int
	PerPage       int
	TagSlug       string
	Featured      *bool
	IncludeDrafts bool
}

// PostSummary 是列表接口返回的文章摘要，不含正文。
type PostSummary struct {
	ID          uint       `json:"id"`
	Slug        string     `json:"slug"`
	Title       string     `json:"title"`
	Excerpt     string     `json:"excerpt"`
	CoverImage  string     `json:"cover_image"`
	ReadingTime int        `json:"reading_time"`
	IsFeatured  bool       `json:"is_featured"`
	IsPublished bool       `json:"is_published"`
	Views       uint64     `json:"views"`
	CreatedAt   time.Time  `json:"created_at"`
	PublishedAt *time.Time `json:"published_at"`
	Tags        []db.Tag   `json:"tags"`
}

// PostListResult aggregates paginated list data.
type PostListResult struct {
	Posts      []PostSummary `json:"posts"`
	Total      int64         `json:"total"`
	Page       int           `json:"page"`
	PerPage    int           `json:"per_page"`
	TotalPages int           `json:"total_pages"`
}

// PostDetail 是单篇文章及其已审核评论树。
type PostDetail struct {
	db.Post
	Comments []*CommentNode `json:"comments"`
}

// PostInput represents fields accepted when creating a post.
type PostInput struct {
	Title             string     `json:"title" validate:"required,max=500"`
	Excerpt           string     `json:"excerpt" validate:"max=1000"`
	Content           string     `json:"content" validate:"required"`
	CoverImage        string     `json:"cover_image" validate:"max=500"`
	IsPublished       bool       `json:"is_published"`
	IsFeatured        bool       `json:"is_featured"`
	PublishedAt       *time.Time `json:"published_at"`
	Tags              []string   `json:"tags"`
	NotifySubscribers bool       `json:"notify_subscribers"`
}

// PostUpdate 只修改非 nil 的字段。
type PostUpdate struct {
	Title             *string    `json:"title" validate:"omitempty,max=500"`
	Excerpt           *string    `json:"excerpt" validate:"omitempty,max=1000"`
	Content           *string    `json:"content"`
	CoverImage        *string    `json:"cover_image" validate:"omitempty,max=500"`
	IsPublished       *bool      `json:"is_published"`
	IsFeatured        *bool      `json:"is_featured"`
	PublishedAt       *time.Time `json:"published_at"`
	Tags              *[]string  `json:"tags"`
	NotifySubscribers bool       `json:"notify_subscribers"`
}

// PostStats 是公开文章的汇总数据。
type PostStats struct {
	TotalPosts int64
	TotalViews int64
}

// NewPostService creates a PostService instance.
func NewPostService(gdb *gorm.DB) *PostService {
	return &PostService{db: gdb, now: db.NowUTC}
}

// WithNotifier 设置发布通知的接收方。
func (s *PostService) WithNotifier(notifier PostNotifier) *PostService {
	s.notifier = notifier
	return s
}

// WithClock 替换时间源，便于测试。
func (s *PostService) WithClock(now func() time.Time) *PostService {
	if now != nil {
		s.now = now
	}
	return s
}

// Create persists a post and associates tags in a transaction.
// baseURL 用于拼接通知邮件中的文章链接。
func (s *PostService) Create(input PostInput, baseURL string) (*db.Post, error) {
	input.Title = strings.TrimSpace(input.Title)
	if err := validateStruct(input); err != nil {
		return nil, err
	}
	if strings.TrimSpace(input.Content) == "" {
		return nil, newValidationError("content", "is required")
	}

	now := s.now()
	post := db.Post{
		Title:       input.Title,
		Excerpt:     strings.TrimSpace(input.Excerpt),
		Content:     input.Content,
		CoverImage:  strings.TrimSpace(input.CoverImage),
		ReadingTime: EstimateReadingTime(input.Content),
		IsFeatured:  input.IsFeatured,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	published := applyPublishState(&post, input.IsPublished, input.PublishedAt, now)

	err := s.db.Transaction(func(tx *gorm.DB) error {
		slug, err := GenerateUniqueSlug(tx, post.Title, 0)
		if err != nil {
			return err
		}
		post.Slug = slug

		tags, err := getOrCreateTags(tx, input.Tags)
		if err != nil {
			return err
		}
		post.Tags = tags

		if published && input.NotifySubscribers && !post.IsVisible(now) {
			post.NotifyPending = true
		}
		return tx.Create(&post).Error
	})
	if err != nil {
		return nil, err
	}

	if published && input.NotifySubscribers && post.IsVisible(now) {
		s.notify(post, baseURL)
	}
	return &post, nil
}

// Update applies updates to an existing post.
func (s *PostService) Update(slug string, input PostUpdate, baseURL string) (*db.Post, error) {
	if err := validateStruct(input); err != nil {
		return nil, err
	}
	if input.Title != nil && strings.TrimSpace(*input.Title) == "" {
		return nil, newValidationError("title", "is required")
	}
	if input.Content != nil && strings.TrimSpace(*input.Content) == "" {
		return nil, newValidationError("content", "is required")
	}

	now := s.now()
	var (
		post      db.Post
		published bool
	)
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("slug = ?", slug).First(&post).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrPostNotFound
			}
			return err
		}

		if input.Title != nil {
			title := strings.TrimSpace(*input.Title)
			if title != post.Title {
				newSlug, err := GenerateUniqueSlug(tx, title, post.ID)
				if err != nil {
					return err
				}
				post.Title = title
				post.Slug = newSlug
			}
		}
		if input.Excerpt != nil {
			post.Excerpt = strings.TrimSpace(*input.Excerpt)
		}
		if input.Content != nil {
			post.Content = *input.Content
			post.ReadingTime = EstimateReadingTime(post.Content)
		}
		if input.CoverImage != nil {
			post.CoverImage = strings.TrimSpace(*input.CoverImage)
		}
		if input.IsFeatured != nil {
			post.IsFeatured = *input.IsFeatured
		}
		if input.IsPublished != nil {
			published = applyPublishState(&post, *input.IsPublished, input.PublishedAt, now)
		}
		if !post.IsPublished {
			post.NotifyPending = false
		} else if published && input.NotifySubscribers && !post.IsVisible(now) {
			post.NotifyPending = true
		}
		post.UpdatedAt = now

		if err := tx.Omit("Tags").Save(&post).Error; err != nil {
			return err
		}

		if input.Tags != nil {
			tags, err := getOrCreateTags(tx, *input.Tags)
			if err != nil {
				return err
			}
			if err := tx.Model(&post).Association("Tags").Replace(tags); err != nil {
				return err
			}
		}
		return tx.Preload("Tags").First(&post, post.ID).Error
	})
	if err != nil {
		return nil, err
	}

	if published && input.NotifySubscribers && post.IsVisible(now) {
		s.notify(post, baseURL)
	}
	return &post, nil
}

// Delete 删除文章及其评论、图片记录和标签关联，随后尽力删除图片文件。
func (s *PostService) Delete(slug string) error {
	var files []string
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var post db.Post
		if err := tx.Where("slug = ?", slug).First(&post).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrPostNotFound
			}
			return err
		}

		if err := tx.Model(&db.Image{}).Where("post_id = ?", post.ID).Pluck("filepath", &files).Error; err != nil {
			return err
		}
		if err := tx.Where("post_id = ?", post.ID).Delete(&db.Image{}).Error; err != nil {
			return err
		}
		if err := tx.Where("post_id = ?", post.ID).Delete(&db.Comment{}).Error; err != nil {
			return err
		}
		if err := tx.Model(&post).Association("Tags").Clear(); err != nil {
			return err
		}
		return tx.Delete(&post).Error
	})
	if err != nil {
		return err
	}

	for _, path := range files {
		if path == "" {
			continue
		}
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			log.Printf("post %s: remove image file %s: %v", slug, path, err)
		}
	}
	return nil
}

// GetBySlug 返回文章详情并累加阅读数。非管理员只能读取公开文章。
func (s *PostService) GetBySlug(slug string, isAdmin bool) (*PostDetail, error) {
	var post db.Post
	if err := s.db.Preload("Tags").Where("slug = ?", slug).First(&post).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPostNotFound
		}
		return nil, err
	}
	if !isAdmin && !post.IsVisible(s.now()) {
		return nil, ErrPostNotFound
	}

	if err := s.db.Model(&db.Post{}).Where("id = ?", post.ID).
		UpdateColumn("views", gorm.Expr("views + ?", 1)).Error; err != nil {
		return nil, err
	}
	post.Views++

	var comments []db.Comment
	if err := s.db.Where("post_id = ? AND is_approved = ?", post.ID, true).
		Order("created_at asc").Order("id asc").
		Find(&comments).Error; err != nil {
		return nil, err
	}

	return &PostDetail{Post: post, Comments: BuildCommentTree(comments)}, nil
}

// List returns paginated posts. IncludeDrafts 为 true 时不做可见性过滤，权限由调用方校验。
func (s *PostService) List(filter PostFilter) (*PostListResult, error) {
	page := normalizePage(filter.Page)
	perPage := normalizePerPage(filter.PerPage, defaultPerPage)

	query := s.db.Model(&db.Post{})
	if !filter.IncludeDrafts {
		query = s.visible(query)
	}
	if filter.TagSlug != "" {
		query = query.Where("posts.id IN (?)", s.db.Table("post_tags").
			Select("post_tags.post_id").
			Joins("JOIN tags ON tags.id = post_tags.tag_id").
			Where("tags.slug = ?", filter.TagSlug))
	}
	if filter.Featured != nil {
		query = query.Where("posts.is_featured = ?", *filter.Featured)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}

	var posts []db.Post
	if err := query.Preload("Tags").
		Order("posts.published_at IS NULL DESC").
		Order("posts.published_at DESC").
		Order("posts.created_at DESC").
		Offset((page - 1) * perPage).
		Limit(perPage).
		Find(&posts).Error; err != nil {
		return nil, err
	}

	return &PostListResult{
		Posts:      summarize(posts),
		Total:      total,
		Page:       page,
		PerPage:    perPage,
		TotalPages: calculateTotalPages(total, perPage),
	}, nil
}

// Featured returns the newest visible featured posts.
func (s *PostService) Featured(limit int) ([]PostSummary, error) {
	limit = clampLimit(limit, defaultFeaturedLimit, maxFeaturedLimit)
	var posts []db.Post
	if err := s.visible(s.db.Model(&db.Post{})).
		Where("posts.is_featured = ?", true).
		Preload("Tags").
		Order("posts.published_at DESC").
		Limit(limit).
		Find(&posts).Error; err != nil {
		return nil, err
	}
	return summarize(posts), nil
}

// Recent returns the newest visible posts.
func (s *PostService) Recent(limit int) ([]PostSummary, error) {
	limit = clampLimit(limit, defaultRecentLimit, maxRecentLimit)
	var posts []db.Post
	if err := s.visible(s.db.Model(&db.Post{})).
		Preload("Tags").
		Order("posts.published_at DESC").
		Limit(limit).
		Find(&posts).Error; err != nil {
		return nil, err
	}
	return summarize(posts), nil
}

// Published 返回带标签的公开文章，按发布时间倒序；limit <= 0 时返回全部。
func (s *PostService) Published(limit int) ([]db.Post, error) {
	query := s.visible(s.db.Model(&db.Post{})).
		Preload("Tags").
		Order("posts.published_at DESC").
		Order("posts.id DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var posts []db.Post
	if err := query.Find(&posts).Error; err != nil {
		return nil, err
	}
	return posts, nil
}

// Search 在标题、正文、摘要中做不区分大小写的子串匹配，仅返回公开文章。
func (s *PostService) Search(q string) ([]PostSummary, error) {
	q = strings.TrimSpace(q)
	if len([]rune(q)) < minSearchLength {
		return nil, newValidationError("q", "must be at least 2 characters")
	}

	term := "%" + strings.ToLower(q) + "%"
	var posts []db.Post
	if err := s.visible(s.db.Model(&db.Post{})).
		Where("LOWER(posts.title) LIKE ? OR LOWER(posts.content) LIKE ? OR LOWER(posts.excerpt) LIKE ?", term, term, term).
		Preload("Tags").
		Order("posts.published_at DESC").
		Limit(maxSearchResults).
		Find(&posts).Error; err != nil {
		return nil, err
	}
	return summarize(posts), nil
}

// Stats 统计公开文章数量与总阅读数。
func (s *PostService) Stats() (PostStats, error) {
	var stats PostStats
	if err := s.visible(s.db.Model(&db.Post{})).Count(&stats.TotalPosts).Error; err != nil {
		return stats, err
	}
	if err := s.visible(s.db.Model(&db.Post{})).
		Select("COALESCE(SUM(posts.views), 0)").
		Scan(&stats.TotalViews).Error; err != nil {
		return stats, err
	}
	return stats, nil
}

// DispatchDueNotifications 为已到发布时间且挂起通知的文章投递通知，返回投递数量。
func (s *PostService) DispatchDueNotifications(baseURL string) (int, error) {
	var due []db.Post
	if err := s.visible(s.db.Model(&db.Post{})).
		Where("posts.notify_pending = ?", true).
		Order("posts.published_at asc").
		Find(&due).Error; err != nil {
		return 0, err
	}

	sent := 0
	for _, post := range due {
		// 条件更新保证并发的清扫任务只会投递一次
		result := s.db.Model(&db.Post{}).
			Where("id = ? AND notify_pending = ?", post.ID, true).
			UpdateColumn("notify_pending", false)
		if result.Error != nil {
			return sent, result.Error
		}
		if result.RowsAffected == 0 {
			continue
		}
		s.notify(post, baseURL)
		sent++
	}
	return sent, nil
}

func (s *PostService) visible(query *gorm.DB) *gorm.DB {
	return query.Where("posts.is_published = ? AND posts.published_at IS NOT NULL AND posts.published_at <= ?", true, s.now())
}

func (s *PostService) notify(post db.Post, baseURL string) {
	if s.notifier == nil {
		return
	}
	s.notifier.NotifyNewPost(NewPostNotice{
		Title:   post.Title,
		Slug:    post.Slug,
		Excerpt: post.Excerpt,
		BaseURL: baseURL,
	})
}

// applyPublishState 应用发布状态并返回是否发生了 draft→published 转换。
// 只有该转换会写入 PublishedAt，explicitAt 非空时按指定时间发布。
func applyPublishState(post *db.Post, publish bool, explicitAt *time.Time, now time.Time) bool {
	wasPublished := post.IsPublished
	post.IsPublished = publish
	if !publish || wasPublished {
		return false
	}

	stamp := now
	if explicitAt != nil && !explicitAt.IsZero() {
		stamp = explicitAt.UTC()
	}
	post.PublishedAt = &stamp
	return true
}

func summarize(posts []db.Post) []PostSummary {
	summaries := make([]PostSummary, 0, len(posts))
	for _, p := range posts {
		tags := p.Tags
		if tags == nil {
			tags = []db.Tag{}
		}
		summaries = append(summaries, PostSummary{
			ID:          p.ID,
			Slug:        p.Slug,
			Title:       p.Title,
			Excerpt:     p.Excerpt,
			CoverImage:  p.CoverImage,
			ReadingTime: p.ReadingTime,
			IsFeatured:  p.IsFeatured,
			IsPublished: p.IsPublished,
			Views:       p.Views,
			CreatedAt:   p.CreatedAt,
			PublishedAt: p.PublishedAt,
			Tags:        tags,
		})
	}
	return summaries
}
