package repository

import (
	"context"

	"github.com/BerniceZTT/crm_analytics/models"

	"go.mongodb.org/mongo-driver/mongo"
)

// OperationLogStore 写操作审计日志
type OperationLogStore struct {
	coll *mongo.Collection
}

// NewOperationLogStore 创建审计日志存储
func NewOperationLogStore(database *mongo.Database) *OperationLogStore {
	return &OperationLogStore{coll: database.Collection(ApiOperationLogsCollection)}
}

// SaveOperationLog 保存操作日志到数据库
func (s *OperationLogStore) SaveOperationLog(ctx context.Context, log *models.OperationLog) error {
	_, err := s.coll.InsertOne(ctx, *log)
	return err
}
