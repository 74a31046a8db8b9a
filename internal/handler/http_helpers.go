package handler

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/pklatka/modernblog/internal/service"
)

func respondError(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"error": message})
}

func bindJSON(c *gin.Context, dst interface{}, message string) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		respondError(c, http.StatusBadRequest, message)
		return false
	}
	return true
}

func parseUintParam(c *gin.Context, key string) (uint, error) {
	raw := c.Param(key)
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return uint(id), nil
}

// queryInt 解析整数查询参数，缺失或非法时返回 fallback。
func queryInt(c *gin.Context, key string, fallback int) int {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}

// queryBool 解析布尔查询参数，缺失或非法时返回 nil。
func queryBool(c *gin.Context, key string) *bool {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return nil
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return nil
	}
	return &value
}

// baseURL 优先使用配置的站点地址，否则根据请求推断。
func (a *API) baseURL(c *gin.Context) string {
	if a.cfg.SiteBaseURL != "" {
		return a.cfg.SiteBaseURL
	}
	scheme := "http"
	if c.Request.TLS != nil {
		scheme = "https"
	}
	if forwarded := c.GetHeader("X-Forwarded-Proto"); forwarded != "" {
		scheme = strings.TrimSpace(strings.Split(forwarded, ",")[0])
	}
	return scheme + "://" + c.Request.Host
}

// respondServiceError 将服务层错误映射为 HTTP 响应。
func respondServiceError(c *gin.Context, err error, fallback string) {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{"error": verr.Message, "field": verr.Field})
	case errors.Is(err, service.ErrSpamRejected):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Comment rejected", "code": "spam_rejected"})
	case errors.Is(err, service.ErrTooManyComments):
		respondError(c, http.StatusTooManyRequests, "Too many comments. Please wait before posting again.")
	case errors.Is(err, service.ErrPostNotFound):
		respondError(c, http.StatusNotFound, "Post not found")
	case errors.Is(err, service.ErrCommentNotFound):
		respondError(c, http.StatusNotFound, "Comment not found")
	case errors.Is(err, service.ErrParentCommentNotFound):
		respondError(c, http.StatusNotFound, "Parent comment not found")
	case errors.Is(err, service.ErrTagNotFound):
		respondError(c, http.StatusNotFound, "Tag not found")
	case errors.Is(err, service.ErrImageNotFound):
		respondError(c, http.StatusNotFound, "Image not found")
	case errors.Is(err, service.ErrTagExists):
		respondError(c, http.StatusBadRequest, "Tag already exists")
	case errors.Is(err, service.ErrAlreadySubscribed):
		respondError(c, http.StatusBadRequest, "Email already subscribed")
	case errors.Is(err, service.ErrInvalidUnsubscribe):
		respondError(c, http.StatusNotFound, "Invalid unsubscribe link")
	case errors.Is(err, service.ErrNoPostsSelected):
		respondError(c, http.StatusBadRequest, "No valid posts selected")
	case errors.Is(err, service.ErrNoActiveSubscribers):
		respondError(c, http.StatusBadRequest, "No active subscribers")
	case errors.Is(err, service.ErrNewsletterUnavailable):
		respondError(c, http.StatusServiceUnavailable, "Newsletter delivery is unavailable")
	case errors.Is(err, service.ErrInvalidImageType):
		respondError(c, http.StatusBadRequest, "Invalid file type. Allowed: "+service.AllowedImageExtensions())
	case errors.Is(err, service.ErrImageTooLarge):
		respondError(c, http.StatusBadRequest, "File too large")
	default:
		log.Printf("%s: %v", fallback, err)
		respondError(c, http.StatusInternalServerError, fallback)
	}
}
