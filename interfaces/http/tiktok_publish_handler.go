package http

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"crosspost/domain/dto"
	"crosspost/domain/model"
	"crosspost/domain/repository"
	"crosspost/infrastructure/logger"
	"crosspost/usecase"

	"github.com/gin-gonic/gin"
)

const (
	ErrorUnmarshal = "Error while unmarshal"
)

type ITikTokPublishHandler interface {
	Publish(c *gin.Context)
}

type TikTokPublishHandler struct {
	publisher usecase.IPublishUsecase
	accounts  repository.IAccount
}

func NewTikTokPublishHandler(publisher usecase.IPublishUsecase, accounts repository.IAccount) ITikTokPublishHandler {
	return &TikTokPublishHandler{publisher: publisher, accounts: accounts}
}

// Publish runs the pipeline synchronously and returns the result envelope.
// Failures reported by the pipeline come back as 422 with the same envelope.
func (h *TikTokPublishHandler) Publish(c *gin.Context) {
	var req dto.PublishVideoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.GetLogger().WithField("error", err).Error(ErrorUnmarshal)
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("%s %v", ErrorUnmarshal, err.Error())})
		return
	}
	if strings.TrimSpace(req.Video.URL) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "video.url is required"})
		return
	}
	if req.Settings.PrivacyLevel != "" && !req.Settings.PrivacyLevel.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid privacy_level"})
		return
	}

	account, err := h.accounts.GetByID(c.Request.Context(), req.AccountID)
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "account not found"})
			return
		}
		logger.GetLogger().WithField("error", err).Error("Failed to load account")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load account"})
		return
	}
	if account.UserID != c.GetString("user_id") {
		c.JSON(http.StatusNotFound, gin.H{"error": "account not found"})
		return
	}

	res := h.publisher.PublishVideo(c.Request.Context(), account, req.Video, req.Settings)
	c.JSON(envelopeStatus(res), res)
}

func envelopeStatus(res model.PublishResult) int {
	if res.Success {
		return http.StatusOK
	}
	return http.StatusUnprocessableEntity
}
