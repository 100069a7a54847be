package service

import (
	"context"
	"time"

	"github.com/BerniceZTT/crm_analytics/models"
)

// SourceReader 交易历史与主数据，只读
type SourceReader interface {
	ListCustomers(ctx context.Context) ([]models.Customer, error)
	ListProducts(ctx context.Context) ([]models.Product, error)
	ListInvoices(ctx context.Context, from, to time.Time) ([]models.SalesInvoice, error)
}

// SettingsStore 分析参数存取
type SettingsStore interface {
	LoadSettings(ctx context.Context) (models.AnalyticsSettings, error)
	SaveSettings(ctx context.Context, settings models.AnalyticsSettings, updaterID, updaterName string) error
}

// RunLocker 单写者运行锁，锁被占用或已被接管时返回 ConcurrentRunConflict
type RunLocker interface {
	AcquireRunLock(ctx context.Context, name, runID string, ttl time.Duration) error
	RenewRunLock(ctx context.Context, name, runID string, ttl time.Duration) error
	ReleaseRunLock(ctx context.Context, name, runID string) error
}

// ScoreFilter 客户评分列表筛选
type ScoreFilter struct {
	Segment string
}

// ItemFilter 产品分析列表筛选
type ItemFilter struct {
	ABCCategory string
	XYZCategory string
}

// ResultStore 结果集合读写。Commit* 以整个集合为单位原子替换，失败时旧数据保持可见。
type ResultStore interface {
	LoadSegmentStates(ctx context.Context) (map[string]models.SegmentState, error)
	CommitCustomerScores(ctx context.Context, runID string, scores []models.CustomerScore, alerts []models.SegmentAlert) error
	CommitProductAnalytics(ctx context.Context, runID string, items []models.ItemAnalytics, associations []models.BasketAssociation) error

	SegmentDistribution(ctx context.Context) ([]models.SegmentCount, error)
	ListAlerts(ctx context.Context, limit int, unreadOnly bool) ([]models.SegmentAlert, error)
	MarkAlertRead(ctx context.Context, id string, read bool) error
	ListCustomerScores(ctx context.Context, filter ScoreFilter, page, limit int64) ([]models.CustomerScore, int64, error)
	ListItemAnalytics(ctx context.Context, filter ItemFilter, page, limit int64) ([]models.ItemAnalytics, int64, error)
	MatrixCounts(ctx context.Context) ([]models.MatrixCell, error)
	TopAssociations(ctx context.Context, limit int) ([]models.BasketAssociation, error)

	UpsertHistory(ctx context.Context, snapshots []models.RFMHistory) (int, error)
	TrendData(ctx context.Context, customerID, fromDate string) ([]models.RFMHistory, error)
}

// Store 引擎依赖的全部存储能力
type Store interface {
	SourceReader
	SettingsStore
	RunLocker
	ResultStore
}
