package service

import (
	"testing"

	"github.com/pklatka/modernblog/internal/db"
)

func uintPtr(v uint) *uint {
	return &v
}

func TestBuildCommentTreeNestsReplies(t *testing.T) {
	comments := []db.Comment{
		{ID: 1, PostID: 1, AuthorName: "A", IsApproved: true},
		{ID: 2, PostID: 1, ParentID: uintPtr(1), AuthorName: "B", IsApproved: true},
		{ID: 3, PostID: 1, ParentID: uintPtr(2), AuthorName: "C", IsApproved: true},
	}

	roots := BuildCommentTree(comments)
	if len(roots) != 1 || roots[0].ID != 1 {
		t.Fatalf("expected single root A, got %+v", roots)
	}
	if len(roots[0].Replies) != 1 || roots[0].Replies[0].ID != 2 {
		t.Fatalf("expected A -> B, got %+v", roots[0].Replies)
	}
	b := roots[0].Replies[0]
	if len(b.Replies) != 1 || b.Replies[0].ID != 3 {
		t.Fatalf("expected B -> C, got %+v", b.Replies)
	}
	if b.Replies[0].Replies == nil {
		t.Fatalf("leaf replies should be an empty slice, not nil")
	}
}

func TestBuildCommentTreePromotesOrphans(t *testing.T) {
	// 1 未审核，不在输入中
	comments := []db.Comment{
		{ID: 2, PostID: 1, ParentID: uintPtr(1), AuthorName: "B"},
		{ID: 3, PostID: 1, ParentID: uintPtr(2), AuthorName: "C"},
		{ID: 4, PostID: 1, AuthorName: "D"},
	}

	roots := BuildCommentTree(comments)
	if len(roots) != 2 {
		t.Fatalf("expected 2 roots, got %d", len(roots))
	}
	if roots[0].ID != 2 || roots[1].ID != 4 {
		t.Fatalf("expected roots in input order [2 4], got [%d %d]", roots[0].ID, roots[1].ID)
	}
	if len(roots[0].Replies) != 1 || roots[0].Replies[0].ID != 3 {
		t.Fatalf("expected promoted orphan to keep its replies")
	}
}

func TestBuildCommentTreeKeepsSiblingOrder(t *testing.T) {
	comments := []db.Comment{
		{ID: 10, PostID: 1},
		{ID: 12, PostID: 1, ParentID: uintPtr(10)},
		{ID: 11, PostID: 1, ParentID: uintPtr(10)},
		{ID: 13, PostID: 1, ParentID: uintPtr(13)},
	}

	roots := BuildCommentTree(comments)
	if len(roots) != 2 || roots[1].ID != 13 {
		t.Fatalf("self-referencing comment should become a root, got %+v", roots)
	}
	replies := roots[0].Replies
	if len(replies) != 2 || replies[0].ID != 12 || replies[1].ID != 11 {
		t.Fatalf("expected replies in input order [12 11]")
	}
}

func TestBuildCommentTreeEmpty(t *testing.T) {
	roots := BuildCommentTree(nil)
	if roots == nil || len(roots) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", roots)
	}
}
