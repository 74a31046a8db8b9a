package service

import (
	"fmt"
	"strings"

	"github.com/gosimple/slug"
	"github.com/pklatka/modernblog/internal/db"
	"gorm.io/gorm"
)

const maxBaseSlugLength = 200

// Slugify 将标题音译为小写、以连字符连接的 URL 片段。
// 无法产出任何字符时返回 fallback。
func Slugify(title, fallback string) string {
	s := slug.Make(title)
	if len(s) > maxBaseSlugLength {
		s = strings.Trim(s[:maxBaseSlugLength], "-")
	}
	if s == "" {
		return fallback
	}
	return s
}

// GenerateUniqueSlug 基于标题生成文章 slug，与已有文章冲突时依次追加 -1、-2 …。
// excludeID 非零时忽略该文章自身，用于更新标题的场景。
func GenerateUniqueSlug(tx *gorm.DB, title string, excludeID uint) (string, error) {
	base := Slugify(title, "post")

	query := tx.Model(&db.Post{}).Where("slug = ? OR slug LIKE ?", base, base+"-%")
	if excludeID != 0 {
		query = query.Where("id <> ?", excludeID)
	}

	var taken []string
	if err := query.Pluck("slug", &taken).Error; err != nil {
		return "", err
	}

	used := make(map[string]struct{}, len(taken))
	for _, s := range taken {
		used[s] = struct{}{}
	}
	if _, ok := used[base]; !ok {
		return base, nil
	}

	// base 本身已被占用，剩余候选最多 len(taken)-1 个被占，因此循环必然在上限内返回。
	for i := 1; i <= len(taken); i++ {
		candidate := fmt.Sprintf("%s-%d", base, i)
		if _, ok := used[candidate]; !ok {
			return candidate, nil
		}
	}
	return fmt.Sprintf("%s-%d", base, len(taken)+1), nil
}
