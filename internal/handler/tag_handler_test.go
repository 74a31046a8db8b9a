package handler

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/pklatka/modernblog/internal/db"
)

func TestCreateTagDuplicateName(t *testing.T) {
	api, gdb := setupTestDB(t)

	existing := db.Tag{Name: "Go", Slug: "go", Color: db.DefaultTagColor}
	if err := gdb.Create(&existing).Error; err != nil {
		t.Fatalf("failed to seed tag: %v", err)
	}

	w := callHandler(api.CreateTag, http.MethodPost, "/api/tags", map[string]any{"name": "Go"}, nil, "")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", w.Code)
	}

	w = callHandler(api.CreateTag, http.MethodPost, "/api/tags", map[string]any{"name": "Gin", "color": "#FF0000"}, nil, "")
	if w.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", w.Code, w.Body.String())
	}
	var tag db.Tag
	decodeBody(t, w, &tag)
	if tag.Slug != "gin" || tag.Color != "#ff0000" {
		t.Fatalf("unexpected tag %+v", tag)
	}
}

func TestGetTagsHidesUnusedForPublic(t *testing.T) {
	api, gdb := setupTestDB(t)
	createPost(t, api, "Visible", true, "Go")
	createPost(t, api, "Draft", false, "Secret")
	gdb.Create(&db.Tag{Name: "Unused", Slug: "unused", Color: db.DefaultTagColor})

	w := callHandler(api.GetTags, http.MethodGet, "/api/tags", nil, nil, "")
	var public []db.Tag
	decodeBody(t, w, &public)
	if len(public) != 1 || public[0].Name != "Go" {
		t.Fatalf("expected only Go for public, got %+v", public)
	}

	w = callHandler(api.GetTags, http.MethodGet, "/api/tags", nil, nil, adminToken(t, api))
	var all []db.Tag
	decodeBody(t, w, &all)
	if len(all) != 3 {
		t.Fatalf("expected 3 tags for admin, got %d", len(all))
	}
}

func TestUpdateAndDeleteTag(t *testing.T) {
	api, _ := setupTestDB(t)
	createPost(t, api, "Post", true, "Golang")

	params := gin.Params{gin.Param{Key: "slug", Value: "golang"}}
	w := callHandler(api.UpdateTag, http.MethodPut, "/api/tags/golang", map[string]any{"name": "Go"}, params, "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}

	params = gin.Params{gin.Param{Key: "slug", Value: "go"}}
	if w := callHandler(api.GetTag, http.MethodGet, "/api/tags/go", nil, params, ""); w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	if w := callHandler(api.DeleteTag, http.MethodDelete, "/api/tags/go", nil, params, ""); w.Code != http.StatusOK {
		t.Fatalf("expected tag in use to be deletable, got %d", w.Code)
	}
	if w := callHandler(api.GetTag, http.MethodGet, "/api/tags/go", nil, params, ""); w.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", w.Code)
	}
}
