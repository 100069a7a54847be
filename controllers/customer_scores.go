package controllers

import (
	"strconv"

	"github.com/BerniceZTT/crm_analytics/models"
	"github.com/BerniceZTT/crm_analytics/service"
	"github.com/BerniceZTT/crm_analytics/utils"

	"github.com/gin-gonic/gin"
)

// queryInt 读取整数查询参数，缺省或无效时返回 def
func queryInt(c *gin.Context, key string, def int) int {
	v, err := strconv.Atoi(c.Query(key))
	if err != nil {
		return def
	}
	return v
}

// GetSegmentDistribution 分群分布
// GET /api/analytics/customers/segments
func (ac *AnalyticsController) GetSegmentDistribution(c *gin.Context) {
	counts, err := ac.svc.GetSegmentDistribution(c.Request.Context())
	if err != nil {
		utils.HandleError(c, err)
		return
	}
	if counts == nil {
		counts = []models.SegmentCount{}
	}
	utils.SuccessResponse(c, counts, "")
}

// ListCustomerScores 客户评分列表
// GET /api/analytics/customers/scores?segment=&page=&limit=
func (ac *AnalyticsController) ListCustomerScores(c *gin.Context) {
	page, limit := utils.PageParams(c)
	scores, total, err := ac.svc.ListCustomerScores(c.Request.Context(), service.ScoreFilter{Segment: c.Query("segment")}, page, limit)
	if err != nil {
		utils.HandleError(c, err)
		return
	}
	if scores == nil {
		scores = []models.CustomerScore{}
	}
	utils.PaginatedResponse(c, scores, total, page, limit)
}

// GetAlerts 分群变化预警
// GET /api/analytics/alerts?limit=&unread=true
func (ac *AnalyticsController) GetAlerts(c *gin.Context) {
	alerts, err := ac.svc.GetAlerts(c.Request.Context(), queryInt(c, "limit", 0), c.Query("unread") == "true")
	if err != nil {
		utils.HandleError(c, err)
		return
	}
	if alerts == nil {
		alerts = []models.SegmentAlert{}
	}
	utils.SuccessResponse(c, alerts, "")
}

// MarkAlertRead 标记预警已读，请求体可传 {"isRead": false} 恢复未读
// PUT /api/analytics/alerts/:id/read
func (ac *AnalyticsController) MarkAlertRead(c *gin.Context) {
	read := true
	var req models.MarkAlertReadRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.HandleError(c, utils.CreateBadRequestError("请求参数错误: "+err.Error()))
			return
		}
		if req.IsRead != nil {
			read = *req.IsRead
		}
	}

	if err := ac.svc.MarkAlertRead(c.Request.Context(), c.Param("id"), read); err != nil {
		utils.HandleError(c, err)
		return
	}
	utils.SuccessResponse(c, gin.H{"id": c.Param("id"), "isRead": read}, "预警状态已更新")
}

// CreateHistorySnapshot 生成当日评分快照
// POST /api/analytics/customers/history/snapshot
func (ac *AnalyticsController) CreateHistorySnapshot(c *gin.Context) {
	created, err := ac.svc.CreateHistorySnapshot(c.Request.Context())
	if err != nil {
		utils.HandleError(c, err)
		return
	}
	utils.SuccessResponse(c, gin.H{"created": created}, "快照已生成")
}

// GetTrend 客户评分趋势
// GET /api/analytics/customers/trend/:customerId?days=
func (ac *AnalyticsController) GetTrend(c *gin.Context) {
	history, err := ac.svc.GetTrendData(c.Request.Context(), c.Param("customerId"), queryInt(c, "days", 0))
	if err != nil {
		utils.HandleError(c, err)
		return
	}
	if history == nil {
		history = []models.RFMHistory{}
	}
	utils.SuccessResponse(c, history, "")
}
