package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// BlogInfo 返回博客元信息与公开文章统计。
func (a *API) BlogInfo(c *gin.Context) {
	stats, err := a.posts.Stats()
	if err != nil {
		respondServiceError(c, err, "Failed to load blog info")
		return
	}

	blog := a.cfg.Blog
	c.JSON(http.StatusOK, gin.H{
		"title":                blog.Title,
		"description":          blog.Description,
		"author_name":          blog.AuthorName,
		"author_bio":           blog.AuthorBio,
		"github_sponsor_url":   blog.GithubSponsorURL,
		"language":             blog.Language,
		"total_posts":          stats.TotalPosts,
		"total_views":          stats.TotalViews,
		"subscription_enabled": a.cfg.SMTP.Enabled() || a.cfg.Mailing.Configured(),
		"comment_approval":     a.cfg.Comments.ApprovalRequired,
	})
}

// Health 健康检查
func (a *API) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

// Root 返回 API 名称与版本。
func (a *API) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": a.cfg.Blog.Title + " API", "version": "1.0.0"})
}
