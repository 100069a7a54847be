package controllers

import (
	"context"
	"net/http"

	"github.com/BerniceZTT/crm_analytics/models"
	"github.com/BerniceZTT/crm_analytics/service"
	"github.com/BerniceZTT/crm_analytics/utils"

	"github.com/gin-gonic/gin"
)

// AnalyticsService 控制器依赖的分析能力，由 service.Engine 实现
type AnalyticsService interface {
	RecomputeCustomerScores(ctx context.Context) (models.CustomerRunResult, error)
	RecomputeProductAnalytics(ctx context.Context) (models.ProductRunResult, error)

	GetSegmentDistribution(ctx context.Context) ([]models.SegmentCount, error)
	GetAlerts(ctx context.Context, limit int, unreadOnly bool) ([]models.SegmentAlert, error)
	MarkAlertRead(ctx context.Context, id string, read bool) error
	CreateHistorySnapshot(ctx context.Context) (int, error)
	GetTrendData(ctx context.Context, customerID string, days int) ([]models.RFMHistory, error)
	ListCustomerScores(ctx context.Context, filter service.ScoreFilter, page, limit int64) ([]models.CustomerScore, int64, error)

	GetMatrixCounts(ctx context.Context) ([]models.MatrixCell, error)
	GetTopAssociations(ctx context.Context, limit int) ([]models.BasketAssociation, error)
	ListItemAnalytics(ctx context.Context, filter service.ItemFilter, page, limit int64) ([]models.ItemAnalytics, int64, error)

	GetSettings(ctx context.Context) (models.AnalyticsSettings, error)
	SaveSettings(ctx context.Context, settings models.AnalyticsSettings, updaterID, updaterName string) error
}

// JobDispatcher 后台任务提交与查询，由 service.JobRunner 实现
type JobDispatcher interface {
	Submit(kind string, fn service.JobFunc) (service.Job, error)
	Get(id string) (service.Job, bool)
}

// AnalyticsController 客户评分与产品分析接口
type AnalyticsController struct {
	svc  AnalyticsService
	jobs JobDispatcher
}

// NewAnalyticsController 创建控制器
func NewAnalyticsController(svc AnalyticsService, jobs JobDispatcher) *AnalyticsController {
	return &AnalyticsController{svc: svc, jobs: jobs}
}

// RecomputeCustomers 重算客户评分
// POST /api/analytics/customers/recompute?wait=true
func (ac *AnalyticsController) RecomputeCustomers(c *gin.Context) {
	ac.recompute(c, service.JobCustomerScores, func(ctx context.Context) (interface{}, error) {
		return ac.svc.RecomputeCustomerScores(ctx)
	})
}

// RecomputeProducts 重算产品分析
// POST /api/analytics/products/recompute?wait=true
func (ac *AnalyticsController) RecomputeProducts(c *gin.Context) {
	ac.recompute(c, service.JobProductAnalytics, func(ctx context.Context) (interface{}, error) {
		return ac.svc.RecomputeProductAnalytics(ctx)
	})
}

func (ac *AnalyticsController) recompute(c *gin.Context, kind string, fn service.JobFunc) {
	operator := "unknown"
	if user, err := utils.GetUser(c); err == nil {
		operator = user.Username
	}
	utils.Logger.Info().Str("job", kind).Str("operator", operator).Msg("[分析] 触发重算")

	if c.Query("wait") == "true" {
		result, err := fn(c.Request.Context())
		if err != nil {
			utils.HandleError(c, err)
			return
		}
		utils.SuccessResponse(c, result, "重算完成")
		return
	}

	job, err := ac.jobs.Submit(kind, fn)
	if err != nil {
		utils.HandleError(c, err)
		return
	}
	utils.SuccessResponse(c, models.RecomputeResponse{JobID: job.ID, Status: string(job.Status)}, "重算任务已提交", http.StatusAccepted)
}

// GetJob 查询重算任务状态
// GET /api/analytics/jobs/:id
func (ac *AnalyticsController) GetJob(c *gin.Context) {
	job, ok := ac.jobs.Get(c.Param("id"))
	if !ok {
		utils.HandleError(c, utils.CreateNotFoundError("任务"))
		return
	}
	utils.SuccessResponse(c, job, "")
}
