package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// AppConfig 汇总运行服务所需的基础配置。
type AppConfig struct {
	ListenAddr    string
	Port          string
	GinMode       string
	DatabaseURL   string
	SiteBaseURL   string
	AllowedOrigin []string

	// TrustedProxies 为空时不信任任何转发头，客户端 IP 取连接对端地址。
	TrustedProxies []string

	SecretKey         string
	AdminPasswordHash string
	AdminTokenTTL     time.Duration

	UploadDir     string
	UploadURLPath string
	MaxImageSize  int64

	Blog      BlogConfig
	RateLimit RateLimitConfig
	Comments  CommentConfig
	Redis     RedisConfig
	SMTP      SMTPConfig
	Mailing   MailingListConfig
	Notify    NotifyConfig
}

// BlogConfig 描述对外展示的博客元信息。
type BlogConfig struct {
	Title            string
	Description      string
	AuthorName       string
	AuthorBio        string
	GithubSponsorURL string
	Language         string
}

// RateLimitConfig 是全局按 IP 的请求限流参数。
type RateLimitConfig struct {
	MaxCount int
	Window   time.Duration
}

// CommentConfig 控制评论的反垃圾与审核策略。
type CommentConfig struct {
	Window           time.Duration
	MaxPerWindow     int
	MinFormTime      time.Duration
	ApprovalRequired bool
}

// RedisConfig 为空地址时限流计数落在数据库中。
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// SMTPConfig 邮件发送配置。
type SMTPConfig struct {
	Host      string
	Port      int
	User      string
	Password  string
	FromEmail string
	FromName  string
}

// Enabled 在主机和发件人都配置时返回 true。
func (c SMTPConfig) Enabled() bool {
	return c.Host != "" && c.FromEmail != ""
}

// MailingListConfig 是 Majordomo 邮件列表配置。
type MailingListConfig struct {
	Enabled  bool
	Domain   string
	Name     string
	Password string
}

// Configured 仅当列表启用且域名、名称、口令齐全时返回 true。
func (c MailingListConfig) Configured() bool {
	return c.Enabled && c.Domain != "" && c.Name != "" && c.Password != ""
}

// NotifyConfig 控制后台通知队列。
type NotifyConfig struct {
	BatchSize     int
	QueueSize     int
	SendPerSecond float64
	SweepSpec     string
}

// PublicBaseURL 返回用于生成绝对链接的站点地址。未配置 SITE_BASE_URL 时按监听地址推断。
func (c AppConfig) PublicBaseURL() string {
	if c.SiteBaseURL != "" {
		return c.SiteBaseURL
	}
	addr := c.ListenAddr
	if strings.HasPrefix(addr, ":") {
		addr = "localhost" + addr
	}
	if addr == "" {
		addr = "localhost:" + c.Port
	}
	return "http://" + addr
}

// Load 从环境变量读取应用配置，并为缺失项提供安全的默认值。
func Load() AppConfig {
	port := envString("PORT", "8000")

	listenAddr := envString("LISTEN_ADDR", "")
	if listenAddr == "" {
		listenAddr = fmt.Sprintf(":%s", port)
	}

	databaseURL := envString("DATABASE_URL", "")
	if databaseURL == "" {
		databaseURL = "sqlite://" + envString("DATABASE_PATH", "modernblog.db")
	}

	origins := envList("ALLOWED_ORIGINS", "http://localhost:5173,http://127.0.0.1:5173,http://localhost:8080,http://127.0.0.1:8080")

	return AppConfig{
		ListenAddr:        listenAddr,
		Port:              port,
		GinMode:           envString("GIN_MODE", "release"),
		DatabaseURL:       databaseURL,
		SiteBaseURL:       strings.TrimRight(envString("SITE_BASE_URL", ""), "/"),
		AllowedOrigin:     origins,
		TrustedProxies:    envList("TRUSTED_PROXIES", ""),
		SecretKey:         envString("SECRET_KEY", "change-me-in-setup"),
		AdminPasswordHash: envString("ADMIN_PASSWORD_HASH", ""),
		AdminTokenTTL:     envDuration("ADMIN_TOKEN_TTL", 24*time.Hour),
		UploadDir:         envString("UPLOAD_DIR", "data/uploads"),
		UploadURLPath:     envString("UPLOAD_URL_PATH", "/uploads"),
		MaxImageSize:      int64(envInt("MAX_IMAGE_SIZE", 10*1024*1024)),
		Blog: BlogConfig{
			Title:            envString("BLOG_TITLE", "My Blog"),
			Description:      envString("BLOG_DESCRIPTION", "A personal blog powered by ModernBlog"),
			AuthorName:       envString("AUTHOR_NAME", "Anonymous"),
			AuthorBio:        envString("AUTHOR_BIO", ""),
			GithubSponsorURL: envString("GITHUB_SPONSOR_URL", ""),
			Language:         envString("LANGUAGE", "en"),
		},
		RateLimit: RateLimitConfig{
			MaxCount: envInt("GLOBAL_RATE_LIMIT_COUNT", 1000),
			Window:   time.Duration(envInt("GLOBAL_RATE_LIMIT_WINDOW_SECONDS", 3600)) * time.Second,
		},
		Comments: CommentConfig{
			Window:           time.Duration(envInt("RATE_LIMIT_WINDOW", 300)) * time.Second,
			MaxPerWindow:     envInt("RATE_LIMIT_MAX_COMMENTS", 5),
			MinFormTime:      time.Duration(envInt("MIN_FORM_TIME_SECONDS", 3)) * time.Second,
			ApprovalRequired: envBool("COMMENT_APPROVAL_REQUIRED", false),
		},
		Redis: RedisConfig{
			Addr:     envString("REDIS_ADDR", ""),
			Password: envString("REDIS_PASSWORD", ""),
			DB:       envInt("REDIS_DB", 0),
		},
		SMTP: SMTPConfig{
			Host:      envString("SMTP_HOST", ""),
			Port:      envInt("SMTP_PORT", 587),
			User:      envString("SMTP_USER", ""),
			Password:  envString("SMTP_PASSWORD", ""),
			FromEmail: envString("SMTP_FROM_EMAIL", ""),
			FromName:  envString("SMTP_FROM_NAME", "ModernBlog"),
		},
		Mailing: MailingListConfig{
			Enabled:  envBool("MAILING_LIST_ENABLED", false),
			Domain:   envString("MAILING_LIST_DOMAIN", ""),
			Name:     envString("MAILING_LIST_NAME", ""),
			Password: envString("MAILING_LIST_PASSWORD", ""),
		},
		Notify: NotifyConfig{
			BatchSize:     envInt("NOTIFY_BATCH_SIZE", 100),
			QueueSize:     envInt("NOTIFY_QUEUE_SIZE", 64),
			SendPerSecond: envFloat("NOTIFY_SEND_RATE", 5),
			SweepSpec:     envString("SCHEDULE_SWEEP_SPEC", "@every 1m"),
		},
	}
}

func envString(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func envList(key, fallback string) []string {
	items := make([]string, 0)
	for _, item := range strings.Split(envString(key, fallback), ",") {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			items = append(items, trimmed)
		}
	}
	return items
}

func envInt(key string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func envFloat(key string, fallback float64) float64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func envBool(key string, fallback bool) bool {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func envDuration(key string, fallback time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}
