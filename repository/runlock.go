package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/BerniceZTT/crm_analytics/models"
	"github.com/BerniceZTT/crm_analytics/utils"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// AcquireRunLock 插入锁文档；已存在时只接管已过期的锁
func (s *AnalyticsStore) AcquireRunLock(ctx context.Context, name, runID string, ttl time.Duration) error {
	now := s.now()
	lock := models.RunLock{
		Name:       name,
		RunID:      runID,
		AcquiredAt: now,
		ExpiresAt:  now.Add(ttl),
	}
	coll := s.collection(RunLocksCollection)

	_, err := coll.InsertOne(ctx, lock)
	if err == nil {
		return nil
	}
	if !mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("获取运行锁失败: %w", err)
	}

	res, err := coll.ReplaceOne(ctx, bson.M{"_id": name, "expiresAt": bson.M{"$lt": now}}, lock)
	if err != nil {
		return fmt.Errorf("接管运行锁失败: %w", err)
	}
	if res.MatchedCount == 1 {
		utils.Logger.Warn().Str("lock", name).Str("runId", runID).Msg("接管已过期的运行锁")
		return nil
	}

	var held models.RunLock
	if err := coll.FindOne(ctx, bson.M{"_id": name}).Decode(&held); err != nil && !errors.Is(err, mongo.ErrNoDocuments) {
		return fmt.Errorf("查询运行锁失败: %w", err)
	}
	return utils.NewAnalyticsError(utils.KindConcurrentRunConflict,
		fmt.Sprintf("%s 正在运行 (runId=%s)", name, held.RunID), nil)
}

// RenewRunLock 延长本次运行持有的锁；锁已不属于 runID 时返回冲突
func (s *AnalyticsStore) RenewRunLock(ctx context.Context, name, runID string, ttl time.Duration) error {
	res, err := s.collection(RunLocksCollection).UpdateOne(ctx,
		bson.M{"_id": name, "runId": runID},
		bson.M{"$set": bson.M{"expiresAt": s.now().Add(ttl)}})
	if err != nil {
		return fmt.Errorf("续期运行锁失败: %w", err)
	}
	if res.MatchedCount == 0 {
		return lockLostError(name, runID)
	}
	return nil
}

// holdsRunLock 确认锁仍由 runID 持有，提交切换前调用
func (s *AnalyticsStore) holdsRunLock(ctx context.Context, name, runID string) error {
	n, err := s.collection(RunLocksCollection).CountDocuments(ctx, bson.M{"_id": name, "runId": runID})
	if err != nil {
		return fmt.Errorf("查询运行锁失败: %w", err)
	}
	if n == 0 {
		return lockLostError(name, runID)
	}
	return nil
}

func lockLostError(name, runID string) error {
	return utils.NewAnalyticsError(utils.KindConcurrentRunConflict,
		fmt.Sprintf("%s 运行锁已被接管 (runId=%s)", name, runID), nil)
}

// ReleaseRunLock 只释放本次运行持有的锁
func (s *AnalyticsStore) ReleaseRunLock(ctx context.Context, name, runID string) error {
	_, err := s.collection(RunLocksCollection).DeleteOne(ctx, bson.M{"_id": name, "runId": runID})
	if err != nil {
		return fmt.Errorf("释放运行锁失败: %w", err)
	}
	return nil
}
