package router

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pklatka/modernblog/internal/auth"
	"github.com/pklatka/modernblog/internal/config"
	"github.com/pklatka/modernblog/internal/db"
	"github.com/pklatka/modernblog/internal/handler"
	"github.com/pklatka/modernblog/internal/service"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type httpClient interface {
	Do(req *http.Request) (*http.Response, error)
}

type localClient struct {
	handler http.Handler
	jar     http.CookieJar
}

func newLocalClient(handler http.Handler, withJar bool) *localClient {
	var jar http.CookieJar
	if withJar {
		if j, err := cookiejar.New(nil); err == nil {
			jar = j
		}
	}
	return &localClient{handler: handler, jar: jar}
}

func (c *localClient) Do(req *http.Request) (*http.Response, error) {
	if c.jar != nil {
		for _, ck := range c.jar.Cookies(req.URL) {
			req.AddCookie(ck)
		}
	}
	w := httptest.NewRecorder()
	c.handler.ServeHTTP(w, req)
	resp := w.Result()
	if c.jar != nil {
		c.jar.SetCookies(req.URL, resp.Cookies())
	}
	return resp, nil
}

type recordingNotifier struct {
	mu      sync.Mutex
	notices []service.NewPostNotice
}

func (n *recordingNotifier) NotifyNewPost(notice service.NewPostNotice) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notices = append(n.notices, notice)
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.notices)
}

type e2eSuite struct {
	services  handler.Services
	notifier  *recordingNotifier
	public    httpClient
	admin     httpClient
	baseURL   string
	adminPass string
}

func newE2ESuite(t *testing.T) *e2eSuite {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:e2e-%d?mode=memory&cache=shared", time.Now().UnixNano())
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:  logger.Default.LogMode(logger.Silent),
		NowFunc: db.NowUTC,
	})
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	if err := db.Migrate(gdb); err != nil {
		t.Fatalf("failed to migrate schema: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := gdb.DB(); err == nil {
			sqlDB.Close()
		}
	})

	adminPass := "e2e-secret"
	hashed, err := bcrypt.GenerateFromPassword([]byte(adminPass), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	cfg := config.AppConfig{
		SecretKey:     "test-session-secret",
		AdminTokenTTL: time.Hour,
		UploadDir:     t.TempDir(),
		UploadURLPath: "/uploads",
		MaxImageSize:  1 << 20,
		Blog:          config.BlogConfig{Title: "E2E Blog"},
		Comments: config.CommentConfig{
			Window:       5 * time.Minute,
			MaxPerWindow: 5,
			MinFormTime:  3 * time.Second,
		},
	}

	notifier := &recordingNotifier{}
	services := handler.NewServices(gdb, cfg)
	services.Posts.WithNotifier(notifier)

	authenticator := auth.NewAuthenticator(string(hashed), cfg.SecretKey, cfg.AdminTokenTTL)
	engine := SetupRouter(handler.NewAPI(cfg, services, authenticator, nil, nil))

	return &e2eSuite{
		services:  services,
		notifier:  notifier,
		public:    newLocalClient(engine, false),
		admin:     newLocalClient(engine, true),
		baseURL:   "http://example.test",
		adminPass: adminPass,
	}
}

func TestE2E_PublishingFlow(t *testing.T) {
	s := newE2ESuite(t)

	resp := s.mustRequestJSON(t, s.admin, http.MethodPost, "/api/auth/login", map[string]any{"token": s.adminPass})
	expectStatus(t, resp, http.StatusOK)

	// 发布文章并通知订阅者
	resp = s.mustRequestJSON(t, s.admin, http.MethodPost, "/api/posts", map[string]any{
		"title":              "Hello E2E",
		"content":            "# Hello\nFirst post body.",
		"is_published":       true,
		"tags":               []string{"Go"},
		"notify_subscribers": true,
	})
	expectStatus(t, resp, http.StatusCreated)
	if s.notifier.count() != 1 {
		t.Fatalf("expected 1 notification, got %d", s.notifier.count())
	}
	if got := s.notifier.notices[0]; got.Slug != "hello-e2e" || got.BaseURL != s.baseURL {
		t.Fatalf("unexpected notice %+v", got)
	}

	// 定时发布的文章在到期前不可见、不通知
	future := time.Now().UTC().Add(time.Hour).Format(time.RFC3339)
	resp = s.mustRequestJSON(t, s.admin, http.MethodPost, "/api/posts", map[string]any{
		"title":              "Later",
		"content":            "Scheduled body.",
		"is_published":       true,
		"published_at":       future,
		"tags":               []string{"Scheduled"},
		"notify_subscribers": true,
	})
	expectStatus(t, resp, http.StatusCreated)
	if s.notifier.count() != 1 {
		t.Fatalf("scheduled post must not notify yet")
	}

	var list service.PostListResult
	resp = s.mustRequest(t, s.public, http.MethodGet, "/api/posts", nil, nil)
	decodeJSON(t, resp, &list)
	if list.Total != 1 || list.Posts[0].Slug != "hello-e2e" {
		t.Fatalf("expected only the published post, got %+v", list)
	}

	var tags []db.Tag
	resp = s.mustRequest(t, s.public, http.MethodGet, "/api/tags", nil, nil)
	decodeJSON(t, resp, &tags)
	if len(tags) != 1 || tags[0].Name != "Go" {
		t.Fatalf("expected only tags of visible posts, got %+v", tags)
	}

	// 评论与回复
	var root service.CommentNode
	resp = s.mustRequestJSON(t, s.public, http.MethodPost, "/api/comments/hello-e2e", map[string]any{
		"author_name": "Reader",
		"content":     "Nice post",
	})
	decodeJSON(t, resp, &root)
	resp = s.mustRequestJSON(t, s.public, http.MethodPost, "/api/comments/hello-e2e", map[string]any{
		"author_name": "Author",
		"content":     "Thanks!",
		"parent_id":   root.ID,
	})
	expectStatus(t, resp, http.StatusCreated)

	var detail struct {
		Views    uint64                 `json:"views"`
		Comments []*service.CommentNode `json:"comments"`
	}
	resp = s.mustRequest(t, s.public, http.MethodGet, "/api/posts/hello-e2e", nil, nil)
	decodeJSON(t, resp, &detail)
	if detail.Views != 1 {
		t.Fatalf("expected 1 view, got %d", detail.Views)
	}
	if len(detail.Comments) != 1 || len(detail.Comments[0].Replies) != 1 {
		t.Fatalf("expected threaded comments, got %+v", detail.Comments)
	}

	var comments []db.Comment
	resp = s.mustRequest(t, s.admin, http.MethodGet, "/api/comments?status=all", nil, nil)
	decodeJSON(t, resp, &comments)
	if len(comments) != 2 {
		t.Fatalf("expected 2 comments in admin list, got %d", len(comments))
	}

	resp = s.mustRequestJSON(t, s.public, http.MethodPost, "/api/subscribers", map[string]any{"email": "reader@example.com"})
	expectStatus(t, resp, http.StatusCreated)

	// 到期后清扫任务补发通知，且只补发一次
	later := func() time.Time { return time.Now().UTC().Add(2 * time.Hour) }
	s.services.Posts.WithClock(later)
	sent, err := s.services.Posts.DispatchDueNotifications(s.baseURL)
	if err != nil || sent != 1 {
		t.Fatalf("expected 1 due notification, got %d (%v)", sent, err)
	}
	if sent, _ := s.services.Posts.DispatchDueNotifications(s.baseURL); sent != 0 {
		t.Fatalf("expected due notification to be sent once, got %d", sent)
	}
	if s.notifier.count() != 2 {
		t.Fatalf("expected 2 notifications, got %d", s.notifier.count())
	}

	resp = s.mustRequest(t, s.admin, http.MethodPost, "/api/auth/logout", nil, nil)
	expectStatus(t, resp, http.StatusOK)
	resp = s.mustRequest(t, s.admin, http.MethodGet, "/api/comments", nil, nil)
	expectStatus(t, resp, http.StatusUnauthorized)
}

func (s *e2eSuite) mustRequest(t *testing.T, client httpClient, method, path string, body io.Reader, headers map[string]string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, s.baseURL+path, body)
	if err != nil {
		t.Fatalf("failed to build request %s %s: %v", method, path, err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("request %s %s failed: %v", method, path, err)
	}
	return resp
}

func (s *e2eSuite) mustRequestJSON(t *testing.T, client httpClient, method, path string, payload map[string]any) *http.Response {
	t.Helper()
	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("failed to marshal payload: %v", err)
	}
	headers := map[string]string{"Content-Type": "application/json"}
	return s.mustRequest(t, client, method, path, bytes.NewReader(data), headers)
}

func expectStatus(t *testing.T, resp *http.Response, code int) {
	t.Helper()
	defer resp.Body.Close()
	if resp.StatusCode != code {
		t.Fatalf("expected status %d, got %d: %s", code, resp.StatusCode, readBody(t, resp))
	}
}

func decodeJSON(t *testing.T, resp *http.Response, dst any) {
	t.Helper()
	defer resp.Body.Close()
	body := readBody(t, resp)
	if err := json.Unmarshal([]byte(body), dst); err != nil {
		t.Fatalf("failed to decode json: %v\nbody=%s", err, body)
	}
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read response body: %v", err)
	}
	return string(data)
}
