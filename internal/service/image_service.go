package service

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"log"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/pklatka/modernblog/internal/config"
	"github.com/pklatka/modernblog/internal/db"
	_ "golang.org/x/image/webp"
	"gorm.io/gorm"
)

var (
	ErrInvalidImageType = errors.New("invalid file type")
	ErrImageTooLarge    = errors.New("file too large")
)

var allowedImageExtensions = map[string]struct{}{
	".jpg":  {},
	".jpeg": {},
	".png":  {},
	".gif":  {},
	".webp": {},
	".svg":  {},
}

// ImageService 保存上传的图片并记录元数据。
type ImageService struct {
	db        *gorm.DB
	uploadDir string
	urlPath   string
	maxSize   int64
}

// ImageUpload 是一次上传请求的内容。
type ImageUpload struct {
	Filename string
	Body     io.Reader
	AltText  string
	PostID   *uint
}

// NewImageService creates an ImageService instance.
func NewImageService(gdb *gorm.DB, cfg config.AppConfig) *ImageService {
	return &ImageService{
		db:        gdb,
		uploadDir: cfg.UploadDir,
		urlPath:   "/" + strings.Trim(cfg.UploadURLPath, "/"),
		maxSize:   cfg.MaxImageSize,
	}
}

// AllowedImageExtensions 返回允许上传的扩展名，用于错误提示。
func AllowedImageExtensions() string {
	return ".jpg, .jpeg, .png, .gif, .webp, .svg"
}

// Upload 校验扩展名和大小，以 uuid 文件名落盘；非 SVG 图片记录宽高。
func (s *ImageService) Upload(upload ImageUpload) (*db.Image, error) {
	ext := strings.ToLower(filepath.Ext(upload.Filename))
	if _, ok := allowedImageExtensions[ext]; !ok {
		return nil, fmt.Errorf("%w: allowed %s", ErrInvalidImageType, AllowedImageExtensions())
	}

	content, err := io.ReadAll(io.LimitReader(upload.Body, s.maxSize+1))
	if err != nil {
		return nil, err
	}
	if int64(len(content)) > s.maxSize {
		return nil, fmt.Errorf("%w: maximum size %d bytes", ErrImageTooLarge, s.maxSize)
	}

	if upload.PostID != nil {
		var count int64
		if err := s.db.Model(&db.Post{}).Where("id = ?", *upload.PostID).Count(&count).Error; err != nil {
			return nil, err
		}
		if count == 0 {
			return nil, ErrPostNotFound
		}
	}

	if err := os.MkdirAll(s.uploadDir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}

	filename := uuid.NewString() + ext
	fullPath := filepath.Join(s.uploadDir, filename)
	if err := os.WriteFile(fullPath, content, 0o644); err != nil {
		return nil, fmt.Errorf("save image: %w", err)
	}

	record := db.Image{
		PostID:    upload.PostID,
		Filename:  filename,
		Filepath:  fullPath,
		URL:       path.Join(s.urlPath, filename),
		AltText:   strings.TrimSpace(upload.AltText),
		SizeBytes: int64(len(content)),
	}
	if ext != ".svg" {
		// 解码失败时保留文件，只是不记录宽高
		if cfg, _, err := image.DecodeConfig(bytes.NewReader(content)); err == nil {
			record.Width = cfg.Width
			record.Height = cfg.Height
		}
	}

	if err := s.db.Create(&record).Error; err != nil {
		_ = os.Remove(fullPath)
		return nil, err
	}
	return &record, nil
}

// Delete removes the image record and its file.
func (s *ImageService) Delete(id uint) error {
	var record db.Image
	if err := s.db.First(&record, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrImageNotFound
		}
		return err
	}

	if err := s.db.Delete(&record).Error; err != nil {
		return err
	}
	if err := os.Remove(record.Filepath); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("image %d: remove file %s: %v", record.ID, record.Filepath, err)
	}
	return nil
}
