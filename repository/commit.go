package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/BerniceZTT/crm_analytics/models"
	"github.com/BerniceZTT/crm_analytics/service"
	"github.com/BerniceZTT/crm_analytics/utils"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const insertBatchSize = 1000

// stagingName 本次运行的临时集合名
func stagingName(target, runID string) string {
	return target + "_staging_" + strings.ReplaceAll(runID, "-", "")
}

// stage 把结果写入临时集合并建好索引
func (s *AnalyticsStore) stage(ctx context.Context, target, runID string, docs []interface{}, indexes []mongo.IndexModel) (string, error) {
	name := stagingName(target, runID)
	coll := s.collection(name)

	if err := coll.Drop(ctx); err != nil {
		return name, fmt.Errorf("清理临时集合失败: %w", err)
	}
	if err := s.db.CreateCollection(ctx, name); err != nil {
		return name, fmt.Errorf("创建临时集合失败: %w", err)
	}
	if len(indexes) > 0 {
		if _, err := coll.Indexes().CreateMany(ctx, indexes); err != nil {
			return name, fmt.Errorf("创建临时集合索引失败: %w", err)
		}
	}

	for start := 0; start < len(docs); start += insertBatchSize {
		end := start + insertBatchSize
		if end > len(docs) {
			end = len(docs)
		}
		if _, err := coll.InsertMany(ctx, docs[start:end], options.InsertMany().SetOrdered(false)); err != nil {
			return name, fmt.Errorf("写入临时集合失败: %w", err)
		}
	}

	utils.LogDbOperation("stage", name, bson.M{"runId": runID}, bson.M{"count": len(docs)})
	return name, nil
}

// swap 用临时集合原子替换目标集合
func (s *AnalyticsStore) swap(ctx context.Context, staging, target string) error {
	cmd := bson.D{
		{Key: "renameCollection", Value: s.db.Name() + "." + staging},
		{Key: "to", Value: s.db.Name() + "." + target},
		{Key: "dropTarget", Value: true},
	}
	if err := s.db.Client().Database("admin").RunCommand(ctx, cmd).Err(); err != nil {
		return fmt.Errorf("替换集合 %s 失败: %w", target, err)
	}
	utils.LogDbOperation("renameCollection", target, bson.M{"from": staging}, nil)
	return nil
}

// cleanup 删除临时集合，不受调用方 ctx 取消影响
func (s *AnalyticsStore) cleanup(names ...string) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	for _, name := range names {
		if name == "" {
			continue
		}
		if err := s.collection(name).Drop(ctx); err != nil {
			utils.Logger.Error().Err(err).Str("collection", name).Msg("删除临时集合失败")
		}
	}
}

// removeAlerts 撤回某次运行写入的预警
func (s *AnalyticsStore) removeAlerts(runID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if _, err := s.collection(RFMAlertsCollection).DeleteMany(ctx, bson.M{"runId": runID}); err != nil {
		utils.Logger.Error().Err(err).Str("runId", runID).Msg("撤回分群预警失败")
	}
}

func toDocs[T any](items []T) []interface{} {
	docs := make([]interface{}, len(items))
	for i := range items {
		docs[i] = items[i]
	}
	return docs
}

// CommitCustomerScores 暂存评分，写入预警，确认仍持有运行锁后整体替换评分集合。
// 锁已被接管或替换失败时撤回本次预警，旧评分保持可见。
func (s *AnalyticsStore) CommitCustomerScores(ctx context.Context, runID string, scores []models.CustomerScore, alerts []models.SegmentAlert) error {
	staging, err := s.stage(ctx, CustomerScoresCollection, runID, toDocs(scores), customerScoreIndexes())
	if err != nil {
		s.cleanup(staging)
		return err
	}

	if len(alerts) > 0 {
		if _, err := s.collection(RFMAlertsCollection).InsertMany(ctx, toDocs(alerts)); err != nil {
			s.removeAlerts(runID)
			s.cleanup(staging)
			return fmt.Errorf("写入分群预警失败: %w", err)
		}
	}

	if err := ctx.Err(); err != nil {
		s.removeAlerts(runID)
		s.cleanup(staging)
		return err
	}
	if err := s.holdsRunLock(ctx, service.JobCustomerScores, runID); err != nil {
		s.removeAlerts(runID)
		s.cleanup(staging)
		return err
	}
	if err := s.swap(ctx, staging, CustomerScoresCollection); err != nil {
		s.removeAlerts(runID)
		s.cleanup(staging)
		return err
	}
	return nil
}

// CommitProductAnalytics 两个结果集合分别暂存，全部暂存成功后依次替换
func (s *AnalyticsStore) CommitProductAnalytics(ctx context.Context, runID string, items []models.ItemAnalytics, associations []models.BasketAssociation) error {
	itemStaging, err := s.stage(ctx, ItemAnalyticsCollection, runID, toDocs(items), itemAnalyticsIndexes())
	if err != nil {
		s.cleanup(itemStaging)
		return err
	}
	basketStaging, err := s.stage(ctx, BasketAnalysisCollection, runID, toDocs(associations), basketIndexes())
	if err != nil {
		s.cleanup(itemStaging, basketStaging)
		return err
	}

	if err := ctx.Err(); err != nil {
		s.cleanup(itemStaging, basketStaging)
		return err
	}
	if err := s.holdsRunLock(ctx, service.JobProductAnalytics, runID); err != nil {
		s.cleanup(itemStaging, basketStaging)
		return err
	}
	if err := s.swap(ctx, itemStaging, ItemAnalyticsCollection); err != nil {
		s.cleanup(itemStaging, basketStaging)
		return err
	}
	if err := s.swap(ctx, basketStaging, BasketAnalysisCollection); err != nil {
		utils.Logger.Error().Err(err).Str("runId", runID).Msg("产品分类已替换，购物篮关联仍为上一次结果")
		s.cleanup(basketStaging)
		return err
	}
	return nil
}
