package router

import (
	"log"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/pklatka/modernblog/internal/handler"
)

const sessionName = "modernblog_session"

// SetupRouter 配置 Gin 引擎和路由
func SetupRouter(api *handler.API) *gin.Engine {
	cfg := api.Config()

	r := gin.New()
	// 默认只以连接对端地址作为客户端 IP，转发头仅在来自受信代理时生效
	if err := r.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		log.Printf("invalid TRUSTED_PROXIES %v, ignoring forwarded headers: %v", cfg.TrustedProxies, err)
		_ = r.SetTrustedProxies(nil)
	}
	r.Use(gin.Logger(), gin.Recovery())
	r.Use(handler.SecurityHeaders())

	// 未配置来源时只允许同源访问
	if len(cfg.AllowedOrigin) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.AllowedOrigin,
			AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	// 配置会话中间件
	store := cookie.NewStore([]byte(cfg.SecretKey))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   int(cfg.AdminTokenTTL.Seconds()),
		HttpOnly: true,
	})
	r.Use(sessions.Sessions(sessionName, store))

	// 静态文件服务
	r.Static(cfg.UploadURLPath, cfg.UploadDir)

	feeds := r.Group("")
	feeds.Use(api.RateLimit())
	{
		feeds.GET("/sitemap.xml", api.Sitemap)
		feeds.GET("/robots.txt", api.RobotsTxt)
		feeds.GET("/rss.xml", api.RSSFeed)
		feeds.GET("/feed.xml", api.RSSFeed)
		feeds.GET("/atom.xml", api.RSSFeed)
	}

	apiGroup := r.Group("/api")
	apiGroup.Use(api.RateLimit())
	{
		apiGroup.GET("", api.Root)
		apiGroup.GET("/health", api.Health)
		apiGroup.GET("/info", api.BlogInfo)
		apiGroup.GET("/seo/metadata", api.SEOMetadata)

		apiGroup.POST("/auth/login", api.Login)
		apiGroup.POST("/auth/logout", api.Logout)

		apiGroup.GET("/posts", api.GetPosts)
		apiGroup.GET("/posts/featured", api.GetFeaturedPosts)
		apiGroup.GET("/posts/recent", api.GetRecentPosts)
		apiGroup.GET("/posts/search", api.SearchPosts)
		apiGroup.GET("/posts/:slug", api.GetPost)

		apiGroup.GET("/tags", api.GetTags)
		apiGroup.GET("/tags/:slug", api.GetTag)

		apiGroup.POST("/comments/:slug", api.CreateComment)

		apiGroup.POST("/subscribers", api.Subscribe)
		apiGroup.GET("/subscribers/unsubscribe/:token", api.Unsubscribe)

		// 需要认证的后台路由
		admin := apiGroup.Group("")
		admin.Use(api.RequireAdmin())
		{
			admin.POST("/posts", api.CreatePost)
			admin.PUT("/posts/:slug", api.UpdatePost)
			admin.DELETE("/posts/:slug", api.DeletePost)

			admin.POST("/tags", api.CreateTag)
			admin.PUT("/tags/:slug", api.UpdateTag)
			admin.DELETE("/tags/:slug", api.DeleteTag)

			admin.GET("/comments", api.ListComments)
			admin.PUT("/comments/:id/approve", api.ApproveComment)
			admin.PUT("/comments/:id/reject", api.RejectComment)
			admin.DELETE("/comments/:id", api.DeleteComment)

			admin.GET("/subscribers", api.ListSubscribers)
			admin.POST("/subscribers/send-newsletter", api.SendNewsletter)

			admin.POST("/images/upload", api.UploadImage)
			admin.DELETE("/images/:id", api.DeleteImage)

			admin.GET("/admin/ws", api.AdminFeed)
		}
	}

	return r
}
