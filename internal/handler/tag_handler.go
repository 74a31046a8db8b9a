package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pklatka/modernblog/internal/service"
)

// GetTags 获取标签列表，管理员可以看到未被公开文章使用的标签。
func (a *API) GetTags(c *gin.Context) {
	tags, err := a.tags.List(a.IsAdmin(c))
	if err != nil {
		respondServiceError(c, err, "Failed to list tags")
		return
	}
	c.JSON(http.StatusOK, tags)
}

// GetTag 获取单个标签
func (a *API) GetTag(c *gin.Context) {
	tag, err := a.tags.GetBySlug(c.Param("slug"))
	if err != nil {
		respondServiceError(c, err, "Failed to load tag")
		return
	}
	c.JSON(http.StatusOK, tag)
}

// CreateTag 创建新标签
func (a *API) CreateTag(c *gin.Context) {
	var input service.TagInput
	if !bindJSON(c, &input, "Invalid tag payload") {
		return
	}

	tag, err := a.tags.Create(input)
	if err != nil {
		respondServiceError(c, err, "Failed to create tag")
		return
	}
	c.JSON(http.StatusCreated, tag)
}

// UpdateTag 更新标签
func (a *API) UpdateTag(c *gin.Context) {
	var input service.TagInput
	if !bindJSON(c, &input, "Invalid tag payload") {
		return
	}

	tag, err := a.tags.Update(c.Param("slug"), input)
	if err != nil {
		respondServiceError(c, err, "Failed to update tag")
		return
	}
	c.JSON(http.StatusOK, tag)
}

// DeleteTag 删除标签
func (a *API) DeleteTag(c *gin.Context) {
	if err := a.tags.Delete(c.Param("slug")); err != nil {
		respondServiceError(c, err, "Failed to delete tag")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Tag deleted"})
}
