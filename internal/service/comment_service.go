package service

import (
	"errors"
	"html"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/pklatka/modernblog/internal/config"
	"github.com/pklatka/modernblog/internal/db"
	"gorm.io/gorm"
)

const defaultCommentsPerPage = 50

// 评论状态过滤值
const (
	CommentStatusApproved = "approved"
	CommentStatusPending  = "pending"
	CommentStatusAll      = "all"
)

// CommentService 处理评论的创建、审核与删除。
type CommentService struct {
	db               *gorm.DB
	gate             *SpamGate
	approvalRequired bool
	sanitizer        *bluemonday.Policy
	now              func() time.Time
	onCreated        []func(db.Comment)
}

// CommentInput 是读者提交评论时的字段，Honeypot 与 FormTimestamp 为反垃圾字段。
type CommentInput struct {
	AuthorName    string `json:"author_name" validate:"required,min=2,max=100"`
	AuthorEmail   string `json:"author_email" validate:"omitempty,email,max=255"`
	Content       string `json:"content" validate:"required,min=1,max=5000"`
	ParentID      *uint  `json:"parent_id"`
	Honeypot      string `json:"honeypot"`
	FormTimestamp *int64 `json:"form_timestamp"`
}

// CommentFilter describes filters for the admin comment list.
type CommentFilter struct {
	Page    int
	PerPage int
	Status  string
}

// NewCommentService creates a CommentService instance.
func NewCommentService(gdb *gorm.DB, cfg config.CommentConfig) *CommentService {
	return &CommentService{
		db:               gdb,
		gate:             NewSpamGate(cfg),
		approvalRequired: cfg.ApprovalRequired,
		sanitizer:        bluemonday.StrictPolicy(),
		now:              db.NowUTC,
	}
}

// WithClock 替换时间源，同时作用于反垃圾检查。
func (s *CommentService) WithClock(now func() time.Time) *CommentService {
	if now != nil {
		s.now = now
		s.gate.WithClock(now)
	}
	return s
}

// OnCreated 注册评论创建成功后的回调，回调在事务提交后同步执行。
func (s *CommentService) OnCreated(fn func(db.Comment)) {
	if fn != nil {
		s.onCreated = append(s.onCreated, fn)
	}
}

// Create 依次执行蜜罐、表单时间、字段校验、IP 频率、文章可见性与父评论检查，通过后写入评论。
func (s *CommentService) Create(postSlug string, input CommentInput, ipAddress string) (*db.Comment, error) {
	if err := s.gate.CheckForm(FormSignals{Honeypot: input.Honeypot, FormTimestamp: input.FormTimestamp}); err != nil {
		return nil, err
	}

	if input.ParentID != nil && *input.ParentID == 0 {
		input.ParentID = nil
	}
	input.AuthorName = s.clean(input.AuthorName)
	input.AuthorEmail = strings.ToLower(strings.TrimSpace(input.AuthorEmail))
	input.Content = s.clean(input.Content)
	if err := validateStruct(input); err != nil {
		return nil, err
	}

	now := s.now()
	var comment db.Comment
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.gate.CheckFrequency(tx, ipAddress); err != nil {
			return err
		}

		var post db.Post
		if err := tx.Where("slug = ?", postSlug).First(&post).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrPostNotFound
			}
			return err
		}
		if !post.IsVisible(now) {
			return ErrPostNotFound
		}

		if input.ParentID != nil {
			var count int64
			if err := tx.Model(&db.Comment{}).
				Where("id = ? AND post_id = ?", *input.ParentID, post.ID).
				Count(&count).Error; err != nil {
				return err
			}
			if count == 0 {
				return ErrParentCommentNotFound
			}
		}

		comment = db.Comment{
			PostID:      post.ID,
			ParentID:    input.ParentID,
			AuthorName:  input.AuthorName,
			AuthorEmail: input.AuthorEmail,
			Content:     input.Content,
			IPAddress:   ipAddress,
			IsApproved:  !s.approvalRequired,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		return tx.Create(&comment).Error
	})
	if err != nil {
		return nil, err
	}

	for _, fn := range s.onCreated {
		fn(comment)
	}
	return &comment, nil
}

// Approve 将评论标记为已审核，重复调用无副作用。
func (s *CommentService) Approve(id uint) error {
	return s.setApproved(id, true)
}

// Reject 隐藏评论，重复调用无副作用。
func (s *CommentService) Reject(id uint) error {
	return s.setApproved(id, false)
}

func (s *CommentService) setApproved(id uint, approved bool) error {
	var comment db.Comment
	if err := s.db.First(&comment, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrCommentNotFound
		}
		return err
	}
	if comment.IsApproved == approved {
		return nil
	}
	return s.db.Model(&comment).Updates(map[string]any{
		"is_approved": approved,
		"updated_at":  s.now(),
	}).Error
}

// Delete 删除评论及其全部后代回复。逐层向下收集 id，避免递归。
func (s *CommentService) Delete(id uint) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var root db.Comment
		if err := tx.First(&root, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrCommentNotFound
			}
			return err
		}

		ids := []uint{root.ID}
		frontier := []uint{root.ID}
		for len(frontier) > 0 {
			var children []uint
			if err := tx.Model(&db.Comment{}).Where("parent_id IN ?", frontier).Pluck("id", &children).Error; err != nil {
				return err
			}
			ids = append(ids, children...)
			frontier = children
		}

		return tx.Where("id IN ?", ids).Delete(&db.Comment{}).Error
	})
}

// List 返回管理端评论列表，按创建时间倒序。
func (s *CommentService) List(filter CommentFilter) ([]db.Comment, error) {
	page := normalizePage(filter.Page)
	perPage := normalizePerPage(filter.PerPage, defaultCommentsPerPage)

	query := s.db.Model(&db.Comment{})
	switch filter.Status {
	case "", CommentStatusAll:
	case CommentStatusApproved:
		query = query.Where("is_approved = ?", true)
	case CommentStatusPending:
		query = query.Where("is_approved = ?", false)
	default:
		return nil, newValidationError("status", "must be one of approved, pending, all")
	}

	var comments []db.Comment
	if err := query.Order("created_at desc").Order("id desc").
		Offset((page - 1) * perPage).
		Limit(perPage).
		Find(&comments).Error; err != nil {
		return nil, err
	}
	return comments, nil
}

// clean 去掉所有 HTML 标签，再还原实体，存储纯文本。
func (s *CommentService) clean(value string) string {
	return strings.TrimSpace(html.UnescapeString(s.sanitizer.Sanitize(value)))
}
