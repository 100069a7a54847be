package controllers

import (
	"strings"

	"github.com/BerniceZTT/crm_analytics/models"
	"github.com/BerniceZTT/crm_analytics/service"
	"github.com/BerniceZTT/crm_analytics/utils"

	"github.com/gin-gonic/gin"
)

// ListItemAnalytics 产品分析列表
// GET /api/analytics/products/items?abc=&xyz=&page=&limit=
func (ac *AnalyticsController) ListItemAnalytics(c *gin.Context) {
	page, limit := utils.PageParams(c)
	filter := service.ItemFilter{
		ABCCategory: strings.ToUpper(c.Query("abc")),
		XYZCategory: strings.ToUpper(c.Query("xyz")),
	}

	items, total, err := ac.svc.ListItemAnalytics(c.Request.Context(), filter, page, limit)
	if err != nil {
		utils.HandleError(c, err)
		return
	}
	if items == nil {
		items = []models.ItemAnalytics{}
	}
	utils.PaginatedResponse(c, items, total, page, limit)
}

// GetMatrix ABC-XYZ 九宫格
// GET /api/analytics/products/matrix
func (ac *AnalyticsController) GetMatrix(c *gin.Context) {
	cells, err := ac.svc.GetMatrixCounts(c.Request.Context())
	if err != nil {
		utils.HandleError(c, err)
		return
	}
	utils.SuccessResponse(c, cells, "")
}

// GetTopBaskets 关联度最高的产品组合
// GET /api/analytics/products/baskets?limit=
func (ac *AnalyticsController) GetTopBaskets(c *gin.Context) {
	rules, err := ac.svc.GetTopAssociations(c.Request.Context(), queryInt(c, "limit", 0))
	if err != nil {
		utils.HandleError(c, err)
		return
	}
	if rules == nil {
		rules = []models.BasketAssociation{}
	}
	utils.SuccessResponse(c, rules, "")
}
