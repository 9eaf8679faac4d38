package http

import (
	"errors"
	"net/http"

	"crosspost/infrastructure/logger"
	"crosspost/usecase"

	"github.com/gin-gonic/gin"
)

type IScheduleHandler interface {
	Publish(c *gin.Context)
	Result(c *gin.Context)
}

type ScheduleHandler struct {
	schedules usecase.IScheduleUsecase
}

func NewScheduleHandler(schedules usecase.IScheduleUsecase) IScheduleHandler {
	return &ScheduleHandler{schedules: schedules}
}

// Publish runs a stored schedule now.
func (h *ScheduleHandler) Publish(c *gin.Context) {
	id := c.Param("id")
	res, err := h.schedules.RunSchedule(c.Request.Context(), c.GetString("user_id"), id)
	if err != nil {
		h.writeError(c, id, err)
		return
	}
	c.JSON(envelopeStatus(res), res)
}

func (h *ScheduleHandler) Result(c *gin.Context) {
	id := c.Param("id")
	res, err := h.schedules.GetResult(c.Request.Context(), c.GetString("user_id"), id)
	if err != nil {
		h.writeError(c, id, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *ScheduleHandler) writeError(c *gin.Context, id string, err error) {
	switch {
	case usecase.IsNotFound(err):
		c.JSON(http.StatusNotFound, gin.H{"error": "schedule not found"})
	case errors.Is(err, usecase.ErrScheduleNotRunnable):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		logger.GetLogger().WithField("schedule_id", id).WithField("error", err).Error("Schedule request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
