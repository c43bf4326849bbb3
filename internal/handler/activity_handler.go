package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"profitops-go/internal/model"
	"profitops-go/internal/service"
	"profitops-go/pkg/log"
)

// ActivityHandler 处理活动历史的查询。
type ActivityHandler struct {
	activityService service.ActivityService
}

// NewActivityHandler 创建一个新的 ActivityHandler。activityService 为 nil 表示活动历史未启用。
func NewActivityHandler(activityService service.ActivityService) *ActivityHandler {
	return &ActivityHandler{activityService: activityService}
}

// ActivityView 是活动记录的展示结构。
type ActivityView struct {
	ID        uint            `json:"id"`
	Kind      string          `json:"kind"`
	SessionID string          `json:"sessionId,omitempty"`
	Subject   string          `json:"subject"`
	Detail    string          `json:"detail,omitempty"`
	Success   bool            `json:"success"`
	CreatedAt model.LocalTime `json:"createdAt"`
}

// ListActivities 按时间倒序返回活动，支持 kind 与 limit 参数。
func (h *ActivityHandler) ListActivities(c *gin.Context) {
	if h.activityService == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"code": http.StatusServiceUnavailable, "message": "活动历史未启用", "data": nil})
		return
	}

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"code": http.StatusBadRequest, "message": "limit 参数无效", "data": nil})
			return
		}
		limit = n
	}

	activities, err := h.activityService.List(c.Request.Context(), c.Query("kind"), limit)
	if err != nil {
		log.Error("ListActivities: Failed to list activities", err)
		c.JSON(http.StatusInternalServerError, gin.H{"code": http.StatusInternalServerError, "message": "获取活动历史失败", "data": nil})
		return
	}

	views := make([]ActivityView, 0, len(activities))
	for _, a := range activities {
		views = append(views, ActivityView{
			ID:        a.ID,
			Kind:      a.Kind,
			SessionID: a.SessionID,
			Subject:   a.Subject,
			Detail:    a.Detail,
			Success:   a.Success,
			CreatedAt: model.LocalTime(a.CreatedAt),
		})
	}
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "success", "data": views})
}

// Health 是存活探针。
func Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "success", "data": gin.H{
		"status": "ok",
		"time":   model.LocalTime(time.Now()),
	}})
}
