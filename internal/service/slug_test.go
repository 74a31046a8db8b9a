package service

import (
	"testing"

	"github.com/pklatka/modernblog/internal/db"
)

func TestSlugifyTransliterates(t *testing.T) {
	cases := []struct {
		title string
		want  string
	}{
		{"Hello World", "hello-world"},
		{"  Go & Gorm: Tips!  ", "go-and-gorm-tips"},
		{"Zażółć gęślą jaźń", "zazolc-gesla-jazn"},
		{"", "post"},
		{"!!!", "post"},
	}
	for _, tc := range cases {
		if got := Slugify(tc.title, "post"); got != tc.want {
			t.Fatalf("Slugify(%q) = %q, want %q", tc.title, got, tc.want)
		}
	}
}

func TestGenerateUniqueSlugAppendsCounter(t *testing.T) {
	gdb := setupServiceTestDB(t, "slug")

	first, err := GenerateUniqueSlug(gdb, "Hello World", 0)
	if err != nil {
		t.Fatalf("generate first slug: %v", err)
	}
	if first != "hello-world" {
		t.Fatalf("expected hello-world, got %s", first)
	}
	seedPost(t, gdb, first, nil)

	second, err := GenerateUniqueSlug(gdb, "Hello World", 0)
	if err != nil {
		t.Fatalf("generate second slug: %v", err)
	}
	if second != "hello-world-1" {
		t.Fatalf("expected hello-world-1, got %s", second)
	}
	seedPost(t, gdb, second, nil)

	third, err := GenerateUniqueSlug(gdb, "Hello, World!", 0)
	if err != nil {
		t.Fatalf("generate third slug: %v", err)
	}
	if third != "hello-world-2" {
		t.Fatalf("expected hello-world-2, got %s", third)
	}
}

func TestGenerateUniqueSlugFillsGaps(t *testing.T) {
	gdb := setupServiceTestDB(t, "slug-gap")
	seedPost(t, gdb, "release", nil)
	seedPost(t, gdb, "release-2", nil)
	seedPost(t, gdb, "release-notes", nil)

	got, err := GenerateUniqueSlug(gdb, "Release", 0)
	if err != nil {
		t.Fatalf("generate slug: %v", err)
	}
	if got != "release-1" {
		t.Fatalf("expected release-1, got %s", got)
	}
}

func TestGenerateUniqueSlugExcludesSelf(t *testing.T) {
	gdb := setupServiceTestDB(t, "slug-self")
	post := seedPost(t, gdb, "my-post", nil)

	got, err := GenerateUniqueSlug(gdb, "My Post", post.ID)
	if err != nil {
		t.Fatalf("generate slug: %v", err)
	}
	if got != "my-post" {
		t.Fatalf("expected my-post to be kept for its own post, got %s", got)
	}

	var count int64
	gdb.Model(&db.Post{}).Count(&count)
	if count != 1 {
		t.Fatalf("slug generation must not write, found %d posts", count)
	}
}
