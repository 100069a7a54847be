package controllers

import (
	"github.com/BerniceZTT/crm_analytics/models"
	"github.com/BerniceZTT/crm_analytics/utils"

	"github.com/gin-gonic/gin"
)

// GetSettings 获取分析参数
// GET /api/analytics/settings
func (ac *AnalyticsController) GetSettings(c *gin.Context) {
	utils.Logger.Info().Msg("[配置管理] 获取分析参数")

	settings, err := ac.svc.GetSettings(c.Request.Context())
	if err != nil {
		utils.Logger.Error().Err(err).Msg("[配置管理] 获取分析参数失败")
		utils.HandleError(c, err)
		return
	}
	utils.SuccessResponse(c, gin.H{
		"configType": models.ConfigTypeAnalyticsSettings,
		"configKey":  models.AnalyticsSettingsKey,
		"settings":   settings,
	}, "")
}

// UpdateSettings 更新分析参数，请求体为完整参数，未传的字段保留当前值
// PUT /api/analytics/settings
func (ac *AnalyticsController) UpdateSettings(c *gin.Context) {
	user, err := utils.GetUser(c)
	if err != nil {
		utils.HandleError(c, utils.NewApiError(err.Error(), 401, "UNAUTHENTICATED"))
		return
	}

	settings, err := ac.svc.GetSettings(c.Request.Context())
	if err != nil {
		utils.HandleError(c, err)
		return
	}
	if err := c.ShouldBindJSON(&settings); err != nil {
		utils.HandleError(c, utils.CreateBadRequestError("请求参数错误: "+err.Error()))
		return
	}

	utils.Logger.Info().
		Str("updater", user.Username).
		Interface("settings", settings).
		Msg("[配置管理] 更新分析参数")

	if err := ac.svc.SaveSettings(c.Request.Context(), settings, user.ID, user.Username); err != nil {
		utils.Logger.Error().Err(err).Msg("[配置管理] 更新分析参数失败")
		utils.HandleError(c, err)
		return
	}
	utils.SuccessResponse(c, settings, "分析参数已更新")
}
