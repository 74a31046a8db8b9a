package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/pklatka/modernblog/internal/service"
)

// UploadImage 处理图片上传请求
func (a *API) UploadImage(c *gin.Context) {
	// 获取上传的文件
	file, err := c.FormFile("file")
	if err != nil {
		respondError(c, http.StatusBadRequest, "No file uploaded")
		return
	}

	upload := service.ImageUpload{
		Filename: file.Filename,
		AltText:  strings.TrimSpace(c.PostForm("alt_text")),
	}
	if raw := strings.TrimSpace(c.PostForm("post_id")); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			respondError(c, http.StatusBadRequest, "Invalid post ID")
			return
		}
		postID := uint(id)
		upload.PostID = &postID
	}

	body, err := file.Open()
	if err != nil {
		respondError(c, http.StatusBadRequest, "Failed to read upload")
		return
	}
	defer body.Close()
	upload.Body = body

	image, err := a.images.Upload(upload)
	if err != nil {
		respondServiceError(c, err, "Failed to save image")
		return
	}
	c.JSON(http.StatusCreated, image)
}

// DeleteImage 删除图片记录及文件
func (a *API) DeleteImage(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "Invalid image ID")
		return
	}
	if err := a.images.Delete(id); err != nil {
		respondServiceError(c, err, "Failed to delete image")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Image deleted"})
}
