package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/pklatka/modernblog/internal/service"
)

// GetPosts 获取文章列表，include_drafts 仅对管理员开放。
func (a *API) GetPosts(c *gin.Context) {
	filter := service.PostFilter{
		Page:     queryInt(c, "page", 1),
		PerPage:  queryInt(c, "per_page", 10),
		TagSlug:  strings.TrimSpace(c.Query("tag")),
		Featured: queryBool(c, "featured"),
	}

	if drafts := queryBool(c, "include_drafts"); drafts != nil && *drafts {
		if !a.IsAdmin(c) {
			respondError(c, http.StatusUnauthorized, "Unauthorized")
			return
		}
		filter.IncludeDrafts = true
	}

	result, err := a.posts.List(filter)
	if err != nil {
		respondServiceError(c, err, "Failed to list posts")
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetFeaturedPosts 获取精选文章。
func (a *API) GetFeaturedPosts(c *gin.Context) {
	posts, err := a.posts.Featured(queryInt(c, "limit", 0))
	if err != nil {
		respondServiceError(c, err, "Failed to list featured posts")
		return
	}
	c.JSON(http.StatusOK, posts)
}

// GetRecentPosts 获取最新文章。
func (a *API) GetRecentPosts(c *gin.Context) {
	posts, err := a.posts.Recent(queryInt(c, "limit", 0))
	if err != nil {
		respondServiceError(c, err, "Failed to list recent posts")
		return
	}
	c.JSON(http.StatusOK, posts)
}

// SearchPosts 全文搜索公开文章。
func (a *API) SearchPosts(c *gin.Context) {
	posts, err := a.posts.Search(c.Query("q"))
	if err != nil {
		respondServiceError(c, err, "Failed to search posts")
		return
	}
	c.JSON(http.StatusOK, posts)
}

// GetPost 获取单篇文章及评论树，同时累加阅读数。
func (a *API) GetPost(c *gin.Context) {
	post, err := a.posts.GetBySlug(c.Param("slug"), a.IsAdmin(c))
	if err != nil {
		respondServiceError(c, err, "Failed to load post")
		return
	}
	c.JSON(http.StatusOK, post)
}

// CreatePost 创建文章
func (a *API) CreatePost(c *gin.Context) {
	var input service.PostInput
	if !bindJSON(c, &input, "Invalid post payload") {
		return
	}

	post, err := a.posts.Create(input, a.baseURL(c))
	if err != nil {
		respondServiceError(c, err, "Failed to create post")
		return
	}
	c.JSON(http.StatusCreated, post)
}

// UpdatePost 更新文章，未提供的字段保持不变。
func (a *API) UpdatePost(c *gin.Context) {
	var input service.PostUpdate
	if !bindJSON(c, &input, "Invalid post payload") {
		return
	}

	post, err := a.posts.Update(c.Param("slug"), input, a.baseURL(c))
	if err != nil {
		respondServiceError(c, err, "Failed to update post")
		return
	}
	c.JSON(http.StatusOK, post)
}

// DeletePost 删除文章及其评论、图片。
func (a *API) DeletePost(c *gin.Context) {
	if err := a.posts.Delete(c.Param("slug")); err != nil {
		respondServiceError(c, err, "Failed to delete post")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Post deleted"})
}
