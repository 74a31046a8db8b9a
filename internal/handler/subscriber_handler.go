package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pklatka/modernblog/internal/service"
)

type subscribeRequest struct {
	Email string `json:"email" binding:"required"`
}

// Subscribe 订阅新文章通知，已退订的地址会被重新激活。
func (a *API) Subscribe(c *gin.Context) {
	var req subscribeRequest
	if !bindJSON(c, &req, "Email is required") {
		return
	}

	subscriber, err := a.subscribers.Subscribe(req.Email)
	if err != nil {
		respondServiceError(c, err, "Failed to subscribe")
		return
	}
	c.JSON(http.StatusCreated, subscriber)
}

// Unsubscribe 通过邮件中的 token 退订。
func (a *API) Unsubscribe(c *gin.Context) {
	subscriber, alreadyInactive, err := a.subscribers.Unsubscribe(c.Param("token"))
	if err != nil {
		respondServiceError(c, err, "Failed to unsubscribe")
		return
	}

	message := "Successfully unsubscribed"
	if alreadyInactive {
		message = "Already unsubscribed"
	}
	c.JSON(http.StatusOK, gin.H{"message": message, "email": subscriber.Email})
}

// ListSubscribers 返回活跃订阅者
func (a *API) ListSubscribers(c *gin.Context) {
	subscribers, err := a.subscribers.ListActive()
	if err != nil {
		respondServiceError(c, err, "Failed to list subscribers")
		return
	}
	c.JSON(http.StatusOK, subscribers)
}

// SendNewsletter 把所选文章组成通讯交给后台投递。
func (a *API) SendNewsletter(c *gin.Context) {
	var input service.NewsletterInput
	if !bindJSON(c, &input, "Invalid newsletter payload") {
		return
	}

	result, err := a.subscribers.SendNewsletter(input, a.baseURL(c))
	if err != nil {
		respondServiceError(c, err, "Failed to send newsletter")
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"message":           "Newsletter queued",
		"total_subscribers": result.TotalSubscribers,
		"via_mailing_list":  result.ViaMailingList,
	})
}
