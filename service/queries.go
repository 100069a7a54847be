package service

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/BerniceZTT/crm_analytics/models"
	"github.com/BerniceZTT/crm_analytics/utils"
)

const (
	defaultAlertLimit = 20
	maxAlertLimit     = 500
	defaultTrendDays  = 90
)

// GetSegmentDistribution 各分群客户数，按数量降序
func (e *Engine) GetSegmentDistribution(ctx context.Context) ([]models.SegmentCount, error) {
	counts, err := e.store.SegmentDistribution(ctx)
	if err != nil {
		return nil, fmt.Errorf("查询分群分布失败: %w", err)
	}
	sort.SliceStable(counts, func(i, j int) bool {
		if counts[i].Count != counts[j].Count {
			return counts[i].Count > counts[j].Count
		}
		return counts[i].Segment < counts[j].Segment
	})
	return counts, nil
}

// GetAlerts 最近的分群预警，按创建时间降序
func (e *Engine) GetAlerts(ctx context.Context, limit int, unreadOnly bool) ([]models.SegmentAlert, error) {
	if limit <= 0 {
		limit = defaultAlertLimit
	}
	if limit > maxAlertLimit {
		limit = maxAlertLimit
	}
	alerts, err := e.store.ListAlerts(ctx, limit, unreadOnly)
	if err != nil {
		return nil, fmt.Errorf("查询分群预警失败: %w", err)
	}
	return alerts, nil
}

// MarkAlertRead 标记预警已读/未读
func (e *Engine) MarkAlertRead(ctx context.Context, id string, read bool) error {
	if strings.TrimSpace(id) == "" {
		return utils.CreateBadRequestError("预警ID不能为空")
	}
	return e.store.MarkAlertRead(ctx, id, read)
}

// CreateHistorySnapshot 把当前评分写入当日快照，同一客户同一天只保留第一份
func (e *Engine) CreateHistorySnapshot(ctx context.Context) (int, error) {
	scores, _, err := e.store.ListCustomerScores(ctx, ScoreFilter{}, 1, 0)
	if err != nil {
		return 0, fmt.Errorf("读取客户评分失败: %w", err)
	}
	if len(scores) == 0 {
		return 0, nil
	}

	date := e.now().Format("2006-01-02")
	snapshots := make([]models.RFMHistory, 0, len(scores))
	for _, s := range scores {
		snapshots = append(snapshots, models.RFMHistory{
			CustomerID:     s.CustomerID,
			SnapshotDate:   date,
			RecencyScore:   s.RecencyScore,
			FrequencyScore: s.FrequencyScore,
			MonetaryScore:  s.MonetaryScore,
			PaymentScore:   s.PaymentScore,
			Segment:        s.Segment,
			RFMCode:        s.RFMCode,
		})
	}

	created, err := e.store.UpsertHistory(ctx, snapshots)
	if err != nil {
		return 0, fmt.Errorf("写入评分快照失败: %w", err)
	}
	utils.Logger.Info().Str("snapshotDate", date).Int("created", created).Msg("评分快照完成")
	return created, nil
}

// GetTrendData 客户最近 days 天的评分快照，按日期升序
func (e *Engine) GetTrendData(ctx context.Context, customerID string, days int) ([]models.RFMHistory, error) {
	if strings.TrimSpace(customerID) == "" {
		return nil, utils.CreateBadRequestError("客户ID不能为空")
	}
	if days <= 0 {
		days = defaultTrendDays
	}
	from := e.now().AddDate(0, 0, -days).Format("2006-01-02")
	history, err := e.store.TrendData(ctx, customerID, from)
	if err != nil {
		return nil, fmt.Errorf("查询评分趋势失败: %w", err)
	}
	return history, nil
}

// GetMatrixCounts ABC×XYZ 九宫格计数，缺失的单元补0
func (e *Engine) GetMatrixCounts(ctx context.Context) ([]models.MatrixCell, error) {
	cells, err := e.store.MatrixCounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("查询ABC-XYZ矩阵失败: %w", err)
	}

	counts := make(map[string]int, len(cells))
	for _, c := range cells {
		counts[c.ABCCategory+c.XYZCategory] += c.Count
	}

	matrix := make([]models.MatrixCell, 0, 9)
	for _, abc := range []string{models.ABCClassA, models.ABCClassB, models.ABCClassC} {
		for _, xyz := range []string{models.XYZClassX, models.XYZClassY, models.XYZClassZ} {
			matrix = append(matrix, models.MatrixCell{
				ABCCategory: abc,
				XYZCategory: xyz,
				Count:       counts[abc+xyz],
			})
		}
	}
	return matrix, nil
}

// GetTopAssociations 置信度最高的关联规则
func (e *Engine) GetTopAssociations(ctx context.Context, limit int) ([]models.BasketAssociation, error) {
	if limit <= 0 {
		limit = defaultAlertLimit
	}
	if limit > maxAlertLimit {
		limit = maxAlertLimit
	}
	rules, err := e.store.TopAssociations(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("查询购物篮关联失败: %w", err)
	}
	return rules, nil
}

// ListCustomerScores 分页查询客户评分
func (e *Engine) ListCustomerScores(ctx context.Context, filter ScoreFilter, page, limit int64) ([]models.CustomerScore, int64, error) {
	return e.store.ListCustomerScores(ctx, filter, page, limit)
}

// ListItemAnalytics 分页查询产品分析
func (e *Engine) ListItemAnalytics(ctx context.Context, filter ItemFilter, page, limit int64) ([]models.ItemAnalytics, int64, error) {
	if filter.ABCCategory != "" && !validClass(filter.ABCCategory, models.ABCClassA, models.ABCClassB, models.ABCClassC) {
		return nil, 0, utils.CreateBadRequestError("无效的ABC分类: " + filter.ABCCategory)
	}
	if filter.XYZCategory != "" && !validClass(filter.XYZCategory, models.XYZClassX, models.XYZClassY, models.XYZClassZ) {
		return nil, 0, utils.CreateBadRequestError("无效的XYZ分类: " + filter.XYZCategory)
	}
	return e.store.ListItemAnalytics(ctx, filter, page, limit)
}

// GetSettings 当前生效的分析参数
func (e *Engine) GetSettings(ctx context.Context) (models.AnalyticsSettings, error) {
	return e.store.LoadSettings(ctx)
}

// SaveSettings 校验通过后保存分析参数
func (e *Engine) SaveSettings(ctx context.Context, settings models.AnalyticsSettings, updaterID, updaterName string) error {
	if err := ValidateSettings(settings); err != nil {
		return err
	}
	if err := e.store.SaveSettings(ctx, settings, updaterID, updaterName); err != nil {
		return fmt.Errorf("保存分析参数失败: %w", err)
	}
	utils.Logger.Info().Str("updater", updaterName).Interface("settings", settings).Msg("分析参数已更新")
	return nil
}

func validClass(value string, allowed ...string) bool {
	for _, a := range allowed {
		if value == a {
			return true
		}
	}
	return false
}
