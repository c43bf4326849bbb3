// Package handler 包含了处理 HTTP 请求的控制器逻辑。
package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"profitops-go/internal/model"
	"profitops-go/internal/service"
	"profitops-go/pkg/log"
)

const fetchErrorMessage = "Error cargando datos del pipeline"

// DashboardHandler 负责 pipeline 仪表盘的 API 请求。
type DashboardHandler struct {
	dashboardService service.DashboardService
}

// NewDashboardHandler 创建一个新的 DashboardHandler。
func NewDashboardHandler(dashboardService service.DashboardService) *DashboardHandler {
	return &DashboardHandler{dashboardService: dashboardService}
}

// DashboardResponse 是仪表盘接口返回的数据。
type DashboardResponse struct {
	Data        *model.DashboardData     `json:"data"`
	Summary     service.DashboardSummary `json:"summary"`
	LastUpdated time.Time                `json:"last_updated"`
}

// GetDashboard 返回最近的快照，尚无快照时先拉取。
func (h *DashboardHandler) GetDashboard(c *gin.Context) {
	data, at, err := h.dashboardService.Current(c.Request.Context())
	if err != nil {
		log.Errorf("GetDashboard: %v", err)
		c.JSON(http.StatusBadGateway, gin.H{"code": http.StatusBadGateway, "message": fetchErrorMessage, "data": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "success", "data": newDashboardResponse(data, at)})
}

// RefreshDashboard 手动刷新，与定时刷新走同一路径。
func (h *DashboardHandler) RefreshDashboard(c *gin.Context) {
	data, err := h.dashboardService.Refresh(c.Request.Context())
	if err != nil {
		log.Errorf("RefreshDashboard: %v", err)
		c.JSON(http.StatusBadGateway, gin.H{"code": http.StatusBadGateway, "message": fetchErrorMessage, "data": nil})
		return
	}
	_, at := h.dashboardService.Latest()
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "success", "data": newDashboardResponse(data, at)})
}

func newDashboardResponse(data *model.DashboardData, at time.Time) DashboardResponse {
	return DashboardResponse{Data: data, Summary: service.Summary(data), LastUpdated: at}
}
