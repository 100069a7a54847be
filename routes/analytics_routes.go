package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/BerniceZTT/crm_analytics/controllers"
	"github.com/BerniceZTT/crm_analytics/middleware"
)

// RegisterAnalyticsRoutes 注册客户评分与产品分析路由
func RegisterAnalyticsRoutes(group *gin.RouterGroup, ac *controllers.AnalyticsController) {
	authed := group.Group("")
	authed.Use(middleware.AuthMiddleware())

	read := middleware.PermissionMiddleware("analytics", "read")
	recompute := middleware.PermissionMiddleware("analytics", "recompute")

	authed.POST("/customers/recompute", recompute, ac.RecomputeCustomers)
	authed.POST("/products/recompute", recompute, ac.RecomputeProducts)
	authed.GET("/jobs/:id", read, ac.GetJob)

	authed.GET("/customers/segments", read, ac.GetSegmentDistribution)
	authed.GET("/customers/scores", read, ac.ListCustomerScores)
	authed.GET("/customers/trend/:customerId", read, ac.GetTrend)
	authed.POST("/customers/history/snapshot", recompute, ac.CreateHistorySnapshot)

	authed.GET("/alerts", middleware.PermissionMiddleware("alerts", "read"), ac.GetAlerts)
	authed.PUT("/alerts/:id/read", middleware.PermissionMiddleware("alerts", "update"), ac.MarkAlertRead)

	authed.GET("/products/items", read, ac.ListItemAnalytics)
	authed.GET("/products/matrix", read, ac.GetMatrix)
	authed.GET("/products/baskets", read, ac.GetTopBaskets)

	authed.GET("/settings", read, ac.GetSettings)
	authed.PUT("/settings", middleware.PermissionMiddleware("settings", "update"), ac.UpdateSettings)
}
