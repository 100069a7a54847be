package service

import (
	"context"
	"time"

	"github.com/BerniceZTT/crm_analytics/utils"
)

// nextRunAt 下一次 hour:min:sec 的时间点
func nextRunAt(now time.Time, hour, min, sec int) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, min, sec, 0, now.Location())
	if !next.After(now) {
		next = next.Add(24 * time.Hour)
	}
	return next
}

// 每天指定时间执行任务，ctx 取消后退出
func ScheduleDailyTaskAt(ctx context.Context, hour, min, sec int, task func(context.Context)) {
	go func() {
		for {
			timer := time.NewTimer(time.Until(nextRunAt(time.Now(), hour, min, sec)))
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case <-timer.C:
				task(ctx)
			}
		}
	}()
}

// DailyRecompute 每日重算：先客户评分与快照，再产品分析
func DailyRecompute(engine *Engine) func(context.Context) {
	return func(ctx context.Context) {
		utils.Logger.Info().Time("time", time.Now()).Msg("开始执行每日分析重算任务...")

		if result, err := engine.RecomputeCustomerScores(ctx); err != nil {
			utils.Logger.Error().Err(err).Msg("每日客户评分重算失败")
		} else {
			utils.Logger.Info().Interface("result", result).Msg("每日客户评分重算完成")
			if _, err := engine.CreateHistorySnapshot(ctx); err != nil {
				utils.Logger.Error().Err(err).Msg("每日评分快照失败")
			}
		}

		if result, err := engine.RecomputeProductAnalytics(ctx); err != nil {
			utils.Logger.Error().Err(err).Msg("每日产品分析重算失败")
		} else {
			utils.Logger.Info().Interface("result", result).Msg("每日产品分析重算完成")
		}
	}
}
