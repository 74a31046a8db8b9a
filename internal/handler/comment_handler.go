package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pklatka/modernblog/internal/db"
	"github.com/pklatka/modernblog/internal/service"
)

// CreateComment 为公开文章提交评论。
func (a *API) CreateComment(c *gin.Context) {
	var input service.CommentInput
	if !bindJSON(c, &input, "Invalid comment payload") {
		return
	}

	comment, err := a.comments.Create(c.Param("slug"), input, c.ClientIP())
	if err != nil {
		respondServiceError(c, err, "Failed to create comment")
		return
	}
	// 公开接口不回显邮箱与 IP
	c.JSON(http.StatusCreated, service.BuildCommentTree([]db.Comment{*comment})[0])
}

// ListComments 管理端评论列表，status 可选 approved、pending、all。
func (a *API) ListComments(c *gin.Context) {
	comments, err := a.comments.List(service.CommentFilter{
		Page:    queryInt(c, "page", 1),
		PerPage: queryInt(c, "per_page", 50),
		Status:  c.DefaultQuery("status", service.CommentStatusAll),
	})
	if err != nil {
		respondServiceError(c, err, "Failed to list comments")
		return
	}
	c.JSON(http.StatusOK, comments)
}

// ApproveComment 审核通过评论
func (a *API) ApproveComment(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "Invalid comment ID")
		return
	}
	if err := a.comments.Approve(id); err != nil {
		respondServiceError(c, err, "Failed to approve comment")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Comment approved"})
}

// RejectComment 撤回评论的审核状态
func (a *API) RejectComment(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "Invalid comment ID")
		return
	}
	if err := a.comments.Reject(id); err != nil {
		respondServiceError(c, err, "Failed to reject comment")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Comment rejected"})
}

// DeleteComment 删除评论及其全部回复。
func (a *API) DeleteComment(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "Invalid comment ID")
		return
	}
	if err := a.comments.Delete(id); err != nil {
		respondServiceError(c, err, "Failed to delete comment")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Comment deleted"})
}
