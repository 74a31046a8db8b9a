package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	"github.com/pklatka/modernblog/internal/auth"
	"github.com/pklatka/modernblog/internal/config"
	"github.com/pklatka/modernblog/internal/db"
	"github.com/pklatka/modernblog/internal/handler"
	"github.com/pklatka/modernblog/internal/jobs"
	"github.com/pklatka/modernblog/internal/notify"
	"github.com/pklatka/modernblog/internal/ratelimit"
	"github.com/pklatka/modernblog/internal/router"
	"github.com/pklatka/modernblog/internal/ws"
	"gorm.io/gorm"
)

func main() {
	// 生产环境直接使用环境变量，.env 可选
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, reading from environment")
	}

	cfg := config.Load()
	gin.SetMode(cfg.GinMode)
	if cfg.AdminPasswordHash == "" {
		log.Println("ADMIN_PASSWORD_HASH is not set, admin login is disabled")
	}

	// 初始化数据库
	gdb, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to initialize database: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	services := handler.NewServices(gdb, cfg)

	dispatcher := notify.NewDispatcher(newMailer(cfg), services.Subscribers, cfg)
	dispatcherDone := make(chan struct{})
	go func() {
		defer close(dispatcherDone)
		dispatcher.Run(ctx)
	}()
	services.Posts.WithNotifier(dispatcher)
	services.Subscribers.WithMailingList(dispatcher).WithNewsletterSender(dispatcher)

	hub := ws.NewHub(cfg.AllowedOrigin)
	go hub.Run(ctx)
	services.Comments.OnCreated(func(comment db.Comment) {
		hub.Publish("comment.created", comment)
	})

	// 定时清扫没有请求上下文，邮件中的链接只能依赖配置的站点地址
	sweepBaseURL := cfg.PublicBaseURL()
	if cfg.SiteBaseURL == "" {
		log.Printf("SITE_BASE_URL is not set, scheduled post emails will link to %s", sweepBaseURL)
	}
	scheduler, err := jobs.NewScheduler(cfg.Notify.SweepSpec, services.Posts, sweepBaseURL)
	if err != nil {
		log.Fatalf("failed to create scheduler: %v", err)
	}
	scheduler.Start()

	authenticator := auth.NewAuthenticator(cfg.AdminPasswordHash, cfg.SecretKey, cfg.AdminTokenTTL)
	limiter := ratelimit.New(newRateLimitStore(ctx, cfg, gdb), cfg.RateLimit.MaxCount, cfg.RateLimit.Window)

	api := handler.NewAPI(cfg, services, authenticator, limiter, hub)
	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           router.SetupRouter(api),
		ReadHeaderTimeout: 10 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("Server listening on %s", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("failed to run server: %v", err)
		}
	}()

	<-quit
	log.Println("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("server forced to shutdown: %v", err)
	}
	scheduler.Stop()

	// 先停止接收新任务，等待已排队的通知发送完毕
	dispatcher.Close()
	select {
	case <-dispatcherDone:
	case <-shutdownCtx.Done():
		log.Println("notification queue not drained before timeout")
	}
	cancel()

	log.Println("Server exiting")
}

func newMailer(cfg config.AppConfig) notify.Mailer {
	if cfg.SMTP.Enabled() {
		return notify.NewSMTPMailer(cfg.SMTP)
	}
	log.Println("SMTP is not configured, emails will only be logged")
	return notify.LogMailer{}
}

func newRateLimitStore(ctx context.Context, cfg config.AppConfig, gdb *gorm.DB) ratelimit.Store {
	if cfg.Redis.Addr == "" {
		return ratelimit.NewGormStore(gdb)
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		log.Printf("redis %s unavailable, falling back to database rate limiting: %v", cfg.Redis.Addr, err)
		client.Close()
		return ratelimit.NewGormStore(gdb)
	}
	log.Printf("rate limiting backed by redis at %s", cfg.Redis.Addr)
	return ratelimit.NewRedisStore(client, "modernblog:ratelimit:")
}
