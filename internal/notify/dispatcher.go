package notify

import (
	"context"
	"fmt"
	"html/template"
	"log"
	"net/url"
	"strings"
	"sync"

	"github.com/pklatka/modernblog/internal/config"
	"github.com/pklatka/modernblog/internal/db"
	"github.com/pklatka/modernblog/internal/service"
	"golang.org/x/time/rate"
)

// SubscriberSource 分批提供活跃订阅者。
type SubscriberSource interface {
	ForEachActiveBatch(batchSize int, fn func([]db.Subscriber) error) error
}

type jobKind int

const (
	jobNewPost jobKind = iota
	jobNewsletter
	jobListCommand
)

type job struct {
	kind       jobKind
	notice     service.NewPostNotice
	newsletter service.Newsletter
	command    string
}

// Dispatcher 通过有界队列在后台投递通知，发送失败只记录日志不影响请求。
type Dispatcher struct {
	mailer      Mailer
	subscribers SubscriberSource
	renderer    *renderer
	limiter     *rate.Limiter
	batchSize   int
	blogTitle   string
	mailing     config.MailingListConfig

	jobs      chan job
	closeOnce sync.Once
	done      chan struct{}
}

// NewDispatcher creates a Dispatcher. Run must be called to start delivery.
func NewDispatcher(mailer Mailer, subscribers SubscriberSource, cfg config.AppConfig) *Dispatcher {
	queueSize := cfg.Notify.QueueSize
	if queueSize <= 0 {
		queueSize = 64
	}
	batchSize := cfg.Notify.BatchSize
	if batchSize <= 0 {
		batchSize = 100
	}
	limit := rate.Inf
	if cfg.Notify.SendPerSecond > 0 {
		limit = rate.Limit(cfg.Notify.SendPerSecond)
	}

	return &Dispatcher{
		mailer:      mailer,
		subscribers: subscribers,
		renderer:    newRenderer(),
		limiter:     rate.NewLimiter(limit, 1),
		batchSize:   batchSize,
		blogTitle:   cfg.Blog.Title,
		mailing:     cfg.Mailing,
		jobs:        make(chan job, queueSize),
		done:        make(chan struct{}),
	}
}

// UsesMailingList reports whether messages go to a mailing list instead of individual subscribers.
func (d *Dispatcher) UsesMailingList() bool {
	return d.mailing.Configured()
}

// NotifyNewPost 投递新文章通知，队列满时丢弃并记录日志。
func (d *Dispatcher) NotifyNewPost(notice service.NewPostNotice) {
	if !d.enqueue(job{kind: jobNewPost, notice: notice}) {
		log.Printf("notification queue full, dropping new post notice for %s", notice.Slug)
	}
}

// SendNewsletter 投递通讯，队列满时返回 false。
func (d *Dispatcher) SendNewsletter(newsletter service.Newsletter) bool {
	return d.enqueue(job{kind: jobNewsletter, newsletter: newsletter})
}

// SubscribeAddress 向 Majordomo 发送订阅命令。
func (d *Dispatcher) SubscribeAddress(email string) {
	d.listCommand("subscribe", email)
}

// UnsubscribeAddress 向 Majordomo 发送退订命令。
func (d *Dispatcher) UnsubscribeAddress(email string) {
	d.listCommand("unsubscribe", email)
}

func (d *Dispatcher) listCommand(action, email string) {
	if !d.mailing.Configured() {
		return
	}
	command := fmt.Sprintf("approve %s %s %s %s", d.mailing.Password, action, d.mailing.Name, email)
	if !d.enqueue(job{kind: jobListCommand, command: command}) {
		log.Printf("notification queue full, dropping mailing list %s for %s", action, email)
	}
}

func (d *Dispatcher) enqueue(j job) bool {
	select {
	case <-d.done:
		return false
	default:
	}

	select {
	case d.jobs <- j:
		return true
	default:
		return false
	}
}

// Run 消费队列直到 ctx 取消或 Close 被调用。
func (d *Dispatcher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-d.done:
			d.drain(ctx)
			return
		case j := <-d.jobs:
			d.handle(ctx, j)
		}
	}
}

// Close 停止接收新任务，Run 处理完已排队的任务后返回。
func (d *Dispatcher) Close() {
	d.closeOnce.Do(func() { close(d.done) })
}

func (d *Dispatcher) drain(ctx context.Context) {
	for {
		select {
		case j := <-d.jobs:
			d.handle(ctx, j)
		default:
			return
		}
	}
}

func (d *Dispatcher) handle(ctx context.Context, j job) {
	var (
		sent int
		err  error
	)
	switch j.kind {
	case jobNewPost:
		sent, err = d.deliverNewPost(ctx, j.notice)
		if err == nil {
			log.Printf("sent new post notification for %s to %d recipients", j.notice.Slug, sent)
		}
	case jobNewsletter:
		sent, err = d.deliverNewsletter(ctx, j.newsletter)
		if err == nil {
			log.Printf("sent newsletter %q to %d recipients", j.newsletter.Subject, sent)
		}
	case jobListCommand:
		err = d.send(ctx, Message{To: "majordomo@" + d.mailing.Domain, Text: j.command})
	}
	if err != nil {
		log.Printf("notification job failed: %v", err)
	}
}

func (d *Dispatcher) deliverNewPost(ctx context.Context, notice service.NewPostNotice) (int, error) {
	subject := "New Post: " + notice.Title
	data := newPostData{
		emailData: emailData{Heading: "New Post Published!", BlogTitle: d.blogTitle},
		Title:     notice.Title,
		Excerpt:   d.renderer.markdownHTML(notice.Excerpt),
		PostURL:   postURL(notice.BaseURL, notice.Slug),
	}

	if d.UsesMailingList() {
		return d.sendToList(ctx, subject, newPostTemplate, data)
	}

	return d.sendToSubscribers(ctx, func(sub db.Subscriber) (Message, error) {
		data.UnsubscribeURL = unsubscribeURL(notice.BaseURL, sub.UnsubscribeToken)
		html, err := d.renderer.render(newPostTemplate, data)
		return Message{To: sub.Email, Subject: subject, HTML: html}, err
	})
}

func (d *Dispatcher) deliverNewsletter(ctx context.Context, newsletter service.Newsletter) (int, error) {
	items := make([]newsletterItem, 0, len(newsletter.Posts))
	for _, p := range newsletter.Posts {
		items = append(items, newsletterItem{
			Title:   p.Title,
			Excerpt: d.renderer.markdownHTML(p.Excerpt),
			URL:     postURL(newsletter.BaseURL, p.Slug),
		})
	}
	data := newsletterData{
		emailData: emailData{Heading: d.blogTitle + " Newsletter", BlogTitle: d.blogTitle},
		Message:   d.renderer.markdownHTML(newsletter.Message),
		Posts:     items,
	}

	if d.UsesMailingList() {
		return d.sendToList(ctx, newsletter.Subject, newsletterTemplate, data)
	}

	return d.sendToSubscribers(ctx, func(sub db.Subscriber) (Message, error) {
		data.UnsubscribeURL = unsubscribeURL(newsletter.BaseURL, sub.UnsubscribeToken)
		html, err := d.renderer.render(newsletterTemplate, data)
		return Message{To: sub.Email, Subject: newsletter.Subject, HTML: html}, err
	})
}

func (d *Dispatcher) sendToList(ctx context.Context, subject string, tpl *template.Template, data any) (int, error) {
	html, err := d.renderer.render(tpl, data)
	if err != nil {
		return 0, err
	}
	msg := Message{
		To:      d.mailing.Name + "@" + d.mailing.Domain,
		Subject: subject,
		HTML:    html,
		Headers: map[string]string{"Approve": d.mailing.Password},
	}
	if err := d.send(ctx, msg); err != nil {
		return 0, err
	}
	return 1, nil
}

// sendToSubscribers 逐批发送，单封失败只记录日志并继续。
func (d *Dispatcher) sendToSubscribers(ctx context.Context, build func(db.Subscriber) (Message, error)) (int, error) {
	sent := 0
	err := d.subscribers.ForEachActiveBatch(d.batchSize, func(batch []db.Subscriber) error {
		for _, sub := range batch {
			msg, err := build(sub)
			if err != nil {
				return err
			}
			if err := d.send(ctx, msg); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				log.Printf("notify %s failed: %v", sub.Email, err)
				continue
			}
			sent++
		}
		return nil
	})
	return sent, err
}

func (d *Dispatcher) send(ctx context.Context, msg Message) error {
	if err := d.limiter.Wait(ctx); err != nil {
		return err
	}
	return d.mailer.Send(ctx, msg)
}

func postURL(baseURL, slug string) string {
	return strings.TrimRight(baseURL, "/") + "/post/" + url.PathEscape(slug)
}

func unsubscribeURL(baseURL, token string) string {
	return strings.TrimRight(baseURL, "/") + "/unsubscribe?token=" + url.QueryEscape(token)
}
