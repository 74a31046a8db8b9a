package handler

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/pklatka/modernblog/internal/db"
)

func multipartUpload(t *testing.T, filename string, content []byte, fields map[string]string) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("failed to create form file: %v", err)
	}
	part.Write(content)
	for key, value := range fields {
		writer.WriteField(key, value)
	}
	writer.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/images/upload", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("failed to encode png: %v", err)
	}
	return buf.Bytes()
}

func TestUploadImageRecordsDimensions(t *testing.T) {
	api, gdb := setupTestDB(t)
	post := createPost(t, api, "Post", true)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = multipartUpload(t, "photo.PNG", pngBytes(t, 4, 3), map[string]string{
		"alt_text": "A red dot",
		"post_id":  strconv.Itoa(int(post.ID)),
	})
	api.UploadImage(c)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", w.Code, w.Body.String())
	}
	var img db.Image
	decodeBody(t, w, &img)
	if img.Width != 4 || img.Height != 3 {
		t.Fatalf("expected 4x3, got %dx%d", img.Width, img.Height)
	}
	if img.AltText != "A red dot" || img.PostID == nil || *img.PostID != post.ID {
		t.Fatalf("unexpected image %+v", img)
	}
	if filepath.Ext(img.Filename) != ".png" || img.URL != "/uploads/"+img.Filename {
		t.Fatalf("unexpected filename or url: %s %s", img.Filename, img.URL)
	}

	var stored db.Image
	gdb.First(&stored, img.ID)
	if _, err := os.Stat(stored.Filepath); err != nil {
		t.Fatalf("expected file on disk: %v", err)
	}

	params := gin.Params{gin.Param{Key: "id", Value: strconv.Itoa(int(img.ID))}}
	if w := callHandler(api.DeleteImage, http.MethodDelete, "/api/images/1", nil, params, ""); w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	if _, err := os.Stat(stored.Filepath); !os.IsNotExist(err) {
		t.Fatalf("expected file to be removed, got %v", err)
	}
}

func TestUploadImageRejectsBadInput(t *testing.T) {
	api, _ := setupTestDB(t)

	cases := []struct {
		name     string
		filename string
		content  []byte
		fields   map[string]string
		status   int
	}{
		{name: "extension", filename: "script.exe", content: []byte("MZ"), status: http.StatusBadRequest},
		{name: "too large", filename: "big.png", content: make([]byte, 2<<20), status: http.StatusBadRequest},
		{name: "bad post id", filename: "a.png", content: pngBytes(t, 1, 1), fields: map[string]string{"post_id": "x"}, status: http.StatusBadRequest},
		{name: "missing post", filename: "a.png", content: pngBytes(t, 1, 1), fields: map[string]string{"post_id": "999"}, status: http.StatusNotFound},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = multipartUpload(t, tc.filename, tc.content, tc.fields)
			api.UploadImage(c)
			if w.Code != tc.status {
				t.Fatalf("expected status %d, got %d: %s", tc.status, w.Code, w.Body.String())
			}
		})
	}

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/api/images/upload", nil)
	api.UploadImage(c)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400 without file, got %d", w.Code)
	}
}
