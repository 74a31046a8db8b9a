package handler

import (
	"github.com/pklatka/modernblog/internal/auth"
	"github.com/pklatka/modernblog/internal/config"
	"github.com/pklatka/modernblog/internal/ratelimit"
	"github.com/pklatka/modernblog/internal/service"
	"github.com/pklatka/modernblog/internal/ws"
	"gorm.io/gorm"
)

// Services groups the domain services used by the HTTP layer.
type Services struct {
	Posts       *service.PostService
	Tags        *service.TagService
	Comments    *service.CommentService
	Subscribers *service.SubscriberService
	Images      *service.ImageService
}

// NewServices 使用默认依赖构造全部服务，通知等协作方由调用方再行注入。
func NewServices(gdb *gorm.DB, cfg config.AppConfig) Services {
	return Services{
		Posts:       service.NewPostService(gdb),
		Tags:        service.NewTagService(gdb),
		Comments:    service.NewCommentService(gdb, cfg.Comments),
		Subscribers: service.NewSubscriberService(gdb),
		Images:      service.NewImageService(gdb, cfg),
	}
}

// API bundles shared dependencies for HTTP handlers.
type API struct {
	cfg         config.AppConfig
	posts       *service.PostService
	tags        *service.TagService
	comments    *service.CommentService
	subscribers *service.SubscriberService
	images      *service.ImageService
	auth        *auth.Authenticator
	limiter     *ratelimit.Limiter
	hub         *ws.Hub
}

// NewAPI constructs a handler set with shared services.
// limiter 与 hub 可以为 nil，对应的中间件和 websocket 接口会被跳过或返回 503。
func NewAPI(cfg config.AppConfig, services Services, authenticator *auth.Authenticator, limiter *ratelimit.Limiter, hub *ws.Hub) *API {
	return &API{
		cfg:         cfg,
		posts:       services.Posts,
		tags:        services.Tags,
		comments:    services.Comments,
		subscribers: services.Subscribers,
		images:      services.Images,
		auth:        authenticator,
		limiter:     limiter,
		hub:         hub,
	}
}

// Config exposes the configuration the handlers were built with.
func (a *API) Config() config.AppConfig {
	return a.cfg
}
