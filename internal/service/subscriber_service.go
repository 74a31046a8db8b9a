package service

import (
	"errors"
	"log"
	"strings"

	"github.com/google/uuid"
	"github.com/pklatka/modernblog/internal/db"
	"gorm.io/gorm"
)

var (
	ErrAlreadySubscribed     = errors.New("email already subscribed")
	ErrInvalidUnsubscribe    = errors.New("invalid unsubscribe token")
	ErrNoPostsSelected       = errors.New("no valid posts selected")
	ErrNoActiveSubscribers   = errors.New("no active subscribers")
	ErrNewsletterUnavailable = errors.New("newsletter delivery is not configured")
)

// MailingListManager 同步订阅变更到外部邮件列表。
type MailingListManager interface {
	SubscribeAddress(email string)
	UnsubscribeAddress(email string)
}

// NewsletterPost 是通讯中列出的一篇文章。
type NewsletterPost struct {
	Title   string
	Slug    string
	Excerpt string
}

// Newsletter 是交给通知模块的通讯任务。
type Newsletter struct {
	Subject string
	Message string
	BaseURL string
	Posts   []NewsletterPost
}

// NewsletterSender 接收通讯任务，返回 false 表示队列已满。
type NewsletterSender interface {
	SendNewsletter(newsletter Newsletter) bool
	UsesMailingList() bool
}

// NewsletterInput 是管理员发送通讯时提交的字段。
type NewsletterInput struct {
	PostIDs       []uint `json:"post_ids" validate:"required,min=1"`
	Subject       string `json:"subject" validate:"required,max=200"`
	CustomMessage string `json:"custom_message" validate:"max=5000"`
}

// NewsletterResult 描述一次通讯投递请求的结果。
type NewsletterResult struct {
	TotalSubscribers int64
	ViaMailingList   bool
}

// SubscriberService 管理订阅者。
type SubscriberService struct {
	db      *gorm.DB
	mailing MailingListManager
	sender  NewsletterSender
}

type subscriberEmail struct {
	Email string `json:"email" validate:"required,email,max=255"`
}

// NewSubscriberService creates a SubscriberService instance.
func NewSubscriberService(gdb *gorm.DB) *SubscriberService {
	return &SubscriberService{db: gdb}
}

// WithMailingList 启用邮件列表同步。
func (s *SubscriberService) WithMailingList(m MailingListManager) *SubscriberService {
	s.mailing = m
	return s
}

// WithNewsletterSender 设置通讯投递方。
func (s *SubscriberService) WithNewsletterSender(sender NewsletterSender) *SubscriberService {
	s.sender = sender
	return s
}

// Subscribe 新增订阅；已退订的邮箱重新激活并生成新的退订 token。
func (s *SubscriberService) Subscribe(email string) (*db.Subscriber, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if err := validateStruct(subscriberEmail{Email: email}); err != nil {
		return nil, err
	}

	var subscriber db.Subscriber
	err := s.db.Transaction(func(tx *gorm.DB) error {
		err := tx.Where("email = ?", email).First(&subscriber).Error
		switch {
		case err == nil:
			if subscriber.IsActive {
				return ErrAlreadySubscribed
			}
			subscriber.IsActive = true
			subscriber.UnsubscribeToken = uuid.NewString()
			return tx.Save(&subscriber).Error
		case errors.Is(err, gorm.ErrRecordNotFound):
			subscriber = db.Subscriber{
				Email:            email,
				UnsubscribeToken: uuid.NewString(),
				IsActive:         true,
			}
			return tx.Create(&subscriber).Error
		default:
			return err
		}
	})
	if err != nil {
		return nil, err
	}

	if s.mailing != nil {
		s.mailing.SubscribeAddress(subscriber.Email)
	}
	return &subscriber, nil
}

// Unsubscribe 通过 token 退订。alreadyInactive 为 true 表示此前已退订。
func (s *SubscriberService) Unsubscribe(token string) (subscriber *db.Subscriber, alreadyInactive bool, err error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, false, ErrInvalidUnsubscribe
	}

	var found db.Subscriber
	if err := s.db.Where("unsubscribe_token = ?", token).First(&found).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, ErrInvalidUnsubscribe
		}
		return nil, false, err
	}
	if !found.IsActive {
		return &found, true, nil
	}

	if err := s.db.Model(&found).Update("is_active", false).Error; err != nil {
		return nil, false, err
	}
	found.IsActive = false

	if s.mailing != nil {
		s.mailing.UnsubscribeAddress(found.Email)
	}
	return &found, false, nil
}

// ListActive returns active subscribers ordered by id.
func (s *SubscriberService) ListActive() ([]db.Subscriber, error) {
	var subscribers []db.Subscriber
	if err := s.db.Where("is_active = ?", true).Order("id asc").Find(&subscribers).Error; err != nil {
		return nil, err
	}
	return subscribers, nil
}

// CountActive returns the number of active subscribers.
func (s *SubscriberService) CountActive() (int64, error) {
	var count int64
	if err := s.db.Model(&db.Subscriber{}).Where("is_active = ?", true).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// ForEachActiveBatch 以 id 为游标分批遍历活跃订阅者，fn 返回错误时停止。
func (s *SubscriberService) ForEachActiveBatch(batchSize int, fn func([]db.Subscriber) error) error {
	if batchSize <= 0 {
		batchSize = 100
	}

	var lastID uint
	for {
		var batch []db.Subscriber
		if err := s.db.Where("is_active = ? AND id > ?", true, lastID).
			Order("id asc").
			Limit(batchSize).
			Find(&batch).Error; err != nil {
			return err
		}
		if len(batch) == 0 {
			return nil
		}
		if err := fn(batch); err != nil {
			return err
		}
		if len(batch) < batchSize {
			return nil
		}
		lastID = batch[len(batch)-1].ID
	}
}

// SendNewsletter 校验输入并把通讯交给后台投递。
func (s *SubscriberService) SendNewsletter(input NewsletterInput, baseURL string) (*NewsletterResult, error) {
	input.Subject = strings.TrimSpace(input.Subject)
	if err := validateStruct(input); err != nil {
		return nil, err
	}
	if s.sender == nil {
		return nil, ErrNewsletterUnavailable
	}

	var posts []db.Post
	if err := s.db.Where("id IN ?", input.PostIDs).Order("id asc").Find(&posts).Error; err != nil {
		return nil, err
	}
	if len(posts) == 0 {
		return nil, ErrNoPostsSelected
	}

	total, err := s.CountActive()
	if err != nil {
		return nil, err
	}
	if total == 0 {
		return nil, ErrNoActiveSubscribers
	}

	items := make([]NewsletterPost, 0, len(posts))
	for _, p := range posts {
		items = append(items, NewsletterPost{Title: p.Title, Slug: p.Slug, Excerpt: p.Excerpt})
	}
	newsletter := Newsletter{
		Subject: input.Subject,
		Message: strings.TrimSpace(input.CustomMessage),
		BaseURL: baseURL,
		Posts:   items,
	}
	if !s.sender.SendNewsletter(newsletter) {
		log.Printf("newsletter %q dropped: notification queue is full", newsletter.Subject)
		return nil, ErrNewsletterUnavailable
	}

	return &NewsletterResult{TotalSubscribers: total, ViaMailingList: s.sender.UsesMailingList()}, nil
}
