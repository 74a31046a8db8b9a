package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/pklatka/modernblog/internal/db"
	"github.com/pklatka/modernblog/internal/service"
	"gorm.io/gorm"
)

type seedSummary struct {
	Posts       int
	Comments    int
	Subscribers int
	Skipped     bool
}

type demoPost struct {
	Title     string
	Excerpt   string
	Paragraph string
	Words     int
	Tags      []string
	Published bool
	Featured  bool
	// 相对当前时间的发布时间偏移，正数表示定时发布
	Offset time.Duration
}

var demoPosts = []demoPost{
	{
		Title:     "Getting Started with Go Modules",
		Excerpt:   "A practical tour of go.mod, versions and replace directives.",
		Paragraph: "Modules make dependency management explicit and reproducible.",
		Words:     450,
		Tags:      []string{"Go", "Tooling"},
		Published: true,
		Featured:  true,
		Offset:    -72 * time.Hour,
	},
	{
		Title:     "Designing Small HTTP APIs",
		Excerpt:   "Keeping handlers thin and services testable.",
		Paragraph: "A handler should translate HTTP into calls and errors into status codes.",
		Words:     900,
		Tags:      []string{"Go", "Web"},
		Published: true,
		Offset:    -48 * time.Hour,
	},
	{
		Title:     "Notes on SQLite in Production",
		Excerpt:   "When a single file database is enough.",
		Paragraph: "SQLite handles far more traffic than most personal sites will ever see.",
		Words:     650,
		Tags:      []string{"Databases"},
		Published: true,
		Featured:  true,
		Offset:    -24 * time.Hour,
	},
	{
		Title:     "Scheduled: Year in Review",
		Excerpt:   "Goes live next week.",
		Paragraph: "Looking back at what worked and what did not.",
		Words:     300,
		Tags:      []string{"Life"},
		Published: true,
		Offset:    7 * 24 * time.Hour,
	},
	{
		Title:     "Draft: Half Finished Thoughts",
		Excerpt:   "Not ready yet.",
		Paragraph: "Ideas that still need work.",
		Words:     120,
		Tags:      []string{"Life", "Drafts"},
	},
}

var demoSubscribers = []string{"alice@example.com", "bob@example.com", "carol@example.com"}

// seedDemo 写入演示文章、线程评论与订阅者；已有文章时不做任何修改。
func seedDemo(gdb *gorm.DB, baseURL string) (seedSummary, error) {
	var summary seedSummary

	var existing int64
	if err := gdb.Model(&db.Post{}).Count(&existing).Error; err != nil {
		return summary, err
	}
	if existing > 0 {
		summary.Skipped = true
		return summary, nil
	}

	posts := service.NewPostService(gdb)
	now := db.NowUTC()
	for _, demo := range demoPosts {
		input := service.PostInput{
			Title:       demo.Title,
			Excerpt:     demo.Excerpt,
			Content:     demoContent(demo),
			IsPublished: demo.Published,
			IsFeatured:  demo.Featured,
			Tags:        demo.Tags,
		}
		if demo.Published {
			at := now.Add(demo.Offset)
			input.PublishedAt = &at
		}

		post, err := posts.Create(input, baseURL)
		if err != nil {
			return summary, fmt.Errorf("create post %q: %w", demo.Title, err)
		}
		summary.Posts++

		if post.IsVisible(now) {
			count, err := seedThread(gdb, post, now)
			if err != nil {
				return summary, err
			}
			summary.Comments += count
		}
	}

	subscribers := service.NewSubscriberService(gdb)
	for _, email := range demoSubscribers {
		if _, err := subscribers.Subscribe(email); err != nil {
			return summary, fmt.Errorf("subscribe %s: %w", email, err)
		}
		summary.Subscribers++
	}
	return summary, nil
}

// demoContent 生成指定词数的 Markdown 正文。
func demoContent(demo demoPost) string {
	var b strings.Builder
	b.WriteString("# " + demo.Title + "\n\n")

	sentence := strings.Fields(demo.Paragraph)
	for written := 0; written < demo.Words; {
		for _, word := range sentence {
			if written == demo.Words {
				break
			}
			b.WriteString(word)
			b.WriteByte(' ')
			written++
		}
		b.WriteString("\n\n")
	}
	return b.String()
}

// seedThread 为文章写入一段两层回复的讨论和一条待审核评论。
func seedThread(gdb *gorm.DB, post *db.Post, now time.Time) (int, error) {
	at := now.Add(-time.Hour)
	root := db.Comment{
		PostID:     post.ID,
		AuthorName: "Alice",
		Content:    "Great write-up, thanks for sharing!",
		IPAddress:  "198.51.100.1",
		IsApproved: true,
		CreatedAt:  at,
		UpdatedAt:  at,
	}
	if err := gdb.Create(&root).Error; err != nil {
		return 0, err
	}

	at = at.Add(10 * time.Minute)
	reply := db.Comment{
		PostID:     post.ID,
		ParentID:   &root.ID,
		AuthorName: "Bob",
		Content:    "Agreed, the code samples helped a lot.",
		IPAddress:  "198.51.100.2",
		IsApproved: true,
		CreatedAt:  at,
		UpdatedAt:  at,
	}
	if err := gdb.Create(&reply).Error; err != nil {
		return 1, err
	}

	at = at.Add(10 * time.Minute)
	nested := db.Comment{
		PostID:     post.ID,
		ParentID:   &reply.ID,
		AuthorName: "Alice",
		Content:    "Glad to hear it.",
		IPAddress:  "198.51.100.1",
		IsApproved: true,
		CreatedAt:  at,
		UpdatedAt:  at,
	}
	if err := gdb.Create(&nested).Error; err != nil {
		return 2, err
	}

	pending := db.Comment{
		PostID:     post.ID,
		AuthorName: "Mallory",
		Content:    "Check out my site",
		IPAddress:  "203.0.113.9",
		CreatedAt:  at,
		UpdatedAt:  at,
	}
	if err := gdb.Create(&pending).Error; err != nil {
		return 3, err
	}
	return 4, nil
}
