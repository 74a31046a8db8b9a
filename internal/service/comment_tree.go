package service

import (
	"time"

	"github.com/pklatka/modernblog/internal/db"
)

// CommentNode 是公开评论树中的一个节点。
type CommentNode struct {
	ID         uint           `json:"id"`
	PostID     uint           `json:"post_id"`
	ParentID   *uint          `json:"parent_id"`
	AuthorName string         `json:"author_name"`
	Content    string         `json:"content"`
	IsApproved bool           `json:"is_approved"`
	CreatedAt  time.Time      `json:"created_at"`
	Replies    []*CommentNode `json:"replies"`
}

// BuildCommentTree 把已审核的扁平评论列表组装成回复树。
// 父评论不在输入集合中（未审核或已删除）的评论提升为根节点；兄弟节点与根节点保持输入顺序。
func BuildCommentTree(comments []db.Comment) []*CommentNode {
	nodes := make(map[uint]*CommentNode, len(comments))
	for _, c := range comments {
		nodes[c.ID] = &CommentNode{
			ID:         c.ID,
			PostID:     c.PostID,
			ParentID:   c.ParentID,
			AuthorName: c.AuthorName,
			Content:    c.Content,
			IsApproved: c.IsApproved,
			CreatedAt:  c.CreatedAt,
			Replies:    []*CommentNode{},
		}
	}

	roots := make([]*CommentNode, 0, len(comments))
	for _, c := range comments {
		node := nodes[c.ID]
		if c.ParentID != nil && *c.ParentID != c.ID {
			if parent, ok := nodes[*c.ParentID]; ok {
				parent.Replies = append(parent.Replies, node)
				continue
			}
		}
		roots = append(roots, node)
	}
	return roots
}
