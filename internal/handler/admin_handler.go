package handler

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/pklatka/modernblog/internal/auth"
)

type loginRequest struct {
	Token string `json:"token" binding:"required"`
}

// Login 校验管理员口令，返回访问令牌并写入会话。
func (a *API) Login(c *gin.Context) {
	var req loginRequest
	if !bindJSON(c, &req, "Password is required") {
		return
	}

	if a.auth == nil {
		respondError(c, http.StatusUnauthorized, "Unauthorized")
		return
	}

	token, err := a.auth.Login(req.Token)
	if err != nil {
		if !errors.Is(err, auth.ErrInvalidPassword) {
			log.Printf("admin login failed: %v", err)
		}
		respondError(c, http.StatusUnauthorized, "Unauthorized")
		return
	}

	if _, exists := c.Get(sessions.DefaultKey); exists {
		session := sessions.Default(c)
		session.Set(sessionAdminKey, true)
		if err := session.Save(); err != nil {
			log.Printf("save admin session: %v", err)
		}
	}

	c.JSON(http.StatusOK, gin.H{"access_token": token, "token_type": "bearer"})
}

// Logout 清除管理员会话。
func (a *API) Logout(c *gin.Context) {
	if _, exists := c.Get(sessions.DefaultKey); exists {
		session := sessions.Default(c)
		session.Clear()
		session.Options(sessions.Options{Path: "/", MaxAge: -1})
		if err := session.Save(); err != nil {
			log.Printf("clear admin session: %v", err)
		}
	}
	c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}

// AdminFeed 升级为 websocket，推送评论等实时事件。
func (a *API) AdminFeed(c *gin.Context) {
	if a.hub == nil {
		respondError(c, http.StatusServiceUnavailable, "Live feed is unavailable")
		return
	}
	a.hub.ServeWs(c.Writer, c.Request)
}
