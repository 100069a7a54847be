package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/BerniceZTT/crm_analytics/models"
	"github.com/BerniceZTT/crm_analytics/utils"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// 运行锁名称，同时也是任务类型
const (
	JobCustomerScores   = "customer_scores"
	JobProductAnalytics = "product_analytics"
)

const defaultLockTTL = 30 * time.Minute

// Progress 进度回调，方法签名与 progressbar.ProgressBar 一致
type Progress interface {
	Describe(description string)
	ChangeMax(max int)
	Add(num int) error
}

type nopProgress struct{}

func (nopProgress) Describe(string) {}
func (nopProgress) ChangeMax(int)   {}
func (nopProgress) Add(int) error   { return nil }

// Engine 客户评分与产品分析引擎
type Engine struct {
	store     Store
	publisher AlertPublisher
	progress  Progress
	now       func() time.Time
	lockTTL   time.Duration
}

// EngineOption 引擎选项
type EngineOption func(*Engine)

// WithAlertPublisher 预警提交后额外推送到外部
func WithAlertPublisher(p AlertPublisher) EngineOption {
	return func(e *Engine) { e.publisher = p }
}

// WithProgress 设置进度回调
func WithProgress(p Progress) EngineOption {
	return func(e *Engine) { e.progress = p }
}

// WithClock 替换时钟
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) { e.now = now }
}

// WithLockTTL 设置运行锁过期时间
func WithLockTTL(ttl time.Duration) EngineOption {
	return func(e *Engine) { e.lockTTL = ttl }
}

// NewEngine 创建引擎
func NewEngine(store Store, opts ...EngineOption) *Engine {
	e := &Engine{
		store:     store,
		publisher: NopAlertPublisher{},
		progress:  nopProgress{},
		now:       time.Now,
		lockTTL:   defaultLockTTL,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// loadSettings 读取并校验参数快照
func (e *Engine) loadSettings(ctx context.Context) (models.AnalyticsSettings, error) {
	settings, err := e.store.LoadSettings(ctx)
	if err != nil {
		return settings, fmt.Errorf("读取分析参数失败: %w", err)
	}
	if err := ValidateSettings(settings); err != nil {
		return settings, err
	}
	return settings, nil
}

// withRunLock 持有运行锁执行 fn，运行期间定期续期，结束后释放。
// 续期发现锁已被其他运行接管时取消 fn 的 ctx，并返回 ConcurrentRunConflict。
func (e *Engine) withRunLock(ctx context.Context, name, runID string, fn func(ctx context.Context) error) error {
	if err := e.store.AcquireRunLock(ctx, name, runID, e.lockTTL); err != nil {
		return err
	}

	runCtx, cancel := context.WithCancelCause(ctx)
	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		e.keepRunLock(runCtx, name, runID, done, cancel)
	}()

	defer func() {
		close(done)
		wg.Wait()
		cancel(nil)

		releaseCtx, releaseCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer releaseCancel()
		if err := e.store.ReleaseRunLock(releaseCtx, name, runID); err != nil {
			utils.Logger.Error().Err(err).Str("lock", name).Str("runId", runID).Msg("释放运行锁失败")
		}
	}()

	err := guard(func() error { return fn(runCtx) })
	if err != nil {
		if cause := context.Cause(runCtx); utils.IsKind(cause, utils.KindConcurrentRunConflict) {
			return cause
		}
	}
	return err
}

// keepRunLock 每 lockTTL/3 续期一次；锁丢失时以冲突错误取消运行
func (e *Engine) keepRunLock(ctx context.Context, name, runID string, done <-chan struct{}, cancel context.CancelCauseFunc) {
	interval := e.lockTTL / 3
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			err := e.store.RenewRunLock(ctx, name, runID, e.lockTTL)
			if err == nil {
				continue
			}
			if utils.IsKind(err, utils.KindConcurrentRunConflict) {
				utils.Logger.Error().Err(err).Str("lock", name).Str("runId", runID).Msg("运行锁已被接管，中止本次运行")
				cancel(err)
				return
			}
			utils.Logger.Warn().Err(err).Str("lock", name).Str("runId", runID).Msg("运行锁续期失败")
		}
	}
}

// guard 把计算过程中的 panic 和未分类错误转换为 PartialComputeFailure
func guard(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = utils.NewAnalyticsError(utils.KindPartialComputeFailure, "计算过程异常中止", fmt.Errorf("panic: %v", r))
		}
	}()
	if err = fn(); err != nil {
		var ae *utils.AnalyticsError
		if !errors.As(err, &ae) {
			err = utils.NewAnalyticsError(utils.KindPartialComputeFailure, "计算未完成，结果未提交", err)
		}
	}
	return err
}

func (e *Engine) stage(description string) {
	e.progress.Describe(description)
	_ = e.progress.Add(1)
}

// RecomputeCustomerScores 重算全部客户的RFM(P)评分并检测分群变化
func (e *Engine) RecomputeCustomerScores(ctx context.Context) (models.CustomerRunResult, error) {
	var result models.CustomerRunResult

	settings, err := e.loadSettings(ctx)
	if err != nil {
		return result, err
	}

	runID := uuid.NewString()
	result.RunID = runID
	start := e.now()
	logger := utils.Logger.With().Str("job", JobCustomerScores).Str("runId", runID).Logger()
	logger.Info().Int("lookbackDays", settings.LookbackDays).Str("segmentMode", string(settings.SegmentMode)).Msg("开始重算客户评分")

	err = e.withRunLock(ctx, JobCustomerScores, runID, func(ctx context.Context) error {
		e.progress.ChangeMax(5)
		now := e.now()
		window := NewWindow(now, settings.LookbackDays)

		customers, err := e.store.ListCustomers(ctx)
		if err != nil {
			return fmt.Errorf("读取客户失败: %w", err)
		}
		invoices, err := e.store.ListInvoices(ctx, window.Start, window.End)
		if err != nil {
			return fmt.Errorf("读取销售发票失败: %w", err)
		}
		e.stage("读取交易")

		aggs, skipped := AggregateCustomers(invoices, customers, window)
		e.stage("汇总客户")

		scores := ScoreCustomers(aggs, settings, now, runID)
		e.stage("计算评分")

		prior, err := e.store.LoadSegmentStates(ctx)
		if err != nil {
			return fmt.Errorf("读取历史分群失败: %w", err)
		}
		alerts := DetectSegmentChanges(scores, prior, settings.AlertsEnabled, now, runID)
		e.stage("检测分群变化")

		if err := ctx.Err(); err != nil {
			return err
		}
		if err := e.store.RenewRunLock(ctx, JobCustomerScores, runID, e.lockTTL); err != nil {
			return err
		}
		if err := e.store.CommitCustomerScores(ctx, runID, scores, alerts); err != nil {
			return fmt.Errorf("提交客户评分失败: %w", err)
		}
		e.stage("提交结果")

		result.Processed = len(scores)
		result.AlertsCreated = len(alerts)
		result.Skipped = skipped

		if len(alerts) > 0 {
			if err := e.publisher.PublishAlerts(ctx, alerts); err != nil {
				// 预警已持久化，推送失败不影响本次结果
				logger.Error().Err(err).Int("alerts", len(alerts)).Msg("推送分群预警失败")
			}
		}
		return nil
	})
	if err != nil {
		logger.Error().Err(err).Msg("客户评分重算失败")
		return result, err
	}

	logger.Info().
		Int("processed", result.Processed).
		Int("alertsCreated", result.AlertsCreated).
		Int("skipped", result.Skipped).
		Dur("elapsed", e.now().Sub(start)).
		Msg("客户评分重算完成")
	return result, nil
}

// RecomputeProductAnalytics 重算产品ABC-XYZ分类与购物篮关联
func (e *Engine) RecomputeProductAnalytics(ctx context.Context) (models.ProductRunResult, error) {
	var result models.ProductRunResult

	settings, err := e.loadSettings(ctx)
	if err != nil {
		return result, err
	}

	runID := uuid.NewString()
	result.RunID = runID
	start := e.now()
	logger := utils.Logger.With().Str("job", JobProductAnalytics).Str("runId", runID).Logger()
	logger.Info().Int("lookbackDays", settings.LookbackDays).Msg("开始重算产品分析")

	err = e.withRunLock(ctx, JobProductAnalytics, runID, func(ctx context.Context) error {
		e.progress.ChangeMax(4)
		now := e.now()
		window := NewWindow(now, settings.LookbackDays)

		products, err := e.store.ListProducts(ctx)
		if err != nil {
			return fmt.Errorf("读取产品失败: %w", err)
		}
		invoices, err := e.store.ListInvoices(ctx, window.Start, window.End)
		if err != nil {
			return fmt.Errorf("读取销售发票失败: %w", err)
		}
		e.stage("读取交易")

		items, skipped := AggregateItems(invoices, products, window, settings)
		baskets := BuildBaskets(invoices, window)
		e.stage("汇总产品")

		// 全量汇总完成后，分类与关联挖掘互不依赖
		var analytics []models.ItemAnalytics
		var associations []models.BasketAssociation
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			analytics = ClassifyItems(items, settings, now, runID)
			return gctx.Err()
		})
		g.Go(func() error {
			rules, err := MineBaskets(baskets, ItemNames(items), settings.BasketMinSupport, settings.BasketMaxPairs)
			if err != nil {
				return err
			}
			associations = TopPerItem(rules, settings.BasketTopN)
			for i := range associations {
				associations[i].RunID = runID
			}
			return gctx.Err()
		})
		if err := g.Wait(); err != nil {
			return err
		}
		e.stage("分类与关联挖掘")

		if err := ctx.Err(); err != nil {
			return err
		}
		if err := e.store.RenewRunLock(ctx, JobProductAnalytics, runID, e.lockTTL); err != nil {
			return err
		}
		if err := e.store.CommitProductAnalytics(ctx, runID, analytics, associations); err != nil {
			return fmt.Errorf("提交产品分析失败: %w", err)
		}
		e.stage("提交结果")

		result.Processed = len(analytics)
		result.Associations = len(associations)
		result.Skipped = skipped
		return nil
	})
	if err != nil {
		logger.Error().Err(err).Msg("产品分析重算失败")
		return result, err
	}

	logger.Info().
		Int("processed", result.Processed).
		Int("associations", result.Associations).
		Int("skipped", result.Skipped).
		Dur("elapsed", e.now().Sub(start)).
		Msg("产品分析重算完成")
	return result, nil
}
