package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/BerniceZTT/crm_analytics/models"
	"github.com/BerniceZTT/crm_analytics/service"
	"github.com/BerniceZTT/crm_analytics/utils"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// LoadSegmentStates 读取当前已发布的分群状态
func (s *AnalyticsStore) LoadSegmentStates(ctx context.Context) (map[string]models.SegmentState, error) {
	type stateDoc struct {
		CustomerID       string    `bson:"customerId"`
		Segment          string    `bson:"segment"`
		PreviousSegment  string    `bson:"previousSegment,omitempty"`
		SegmentChangedOn time.Time `bson:"segmentChangedOn,omitempty"`
	}

	opts := options.Find().SetProjection(bson.M{
		"customerId": 1, "segment": 1, "previousSegment": 1, "segmentChangedOn": 1,
	})
	docs, err := findAll[stateDoc](ctx, s.collection(CustomerScoresCollection), bson.M{}, opts)
	if err != nil {
		return nil, err
	}

	states := make(map[string]models.SegmentState, len(docs))
	for _, d := range docs {
		states[d.CustomerID] = models.SegmentState{
			Segment:          d.Segment,
			PreviousSegment:  d.PreviousSegment,
			SegmentChangedOn: d.SegmentChangedOn,
		}
	}
	return states, nil
}

// SegmentDistribution 按分群聚合客户数
func (s *AnalyticsStore) SegmentDistribution(ctx context.Context) ([]models.SegmentCount, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.M{"_id": "$segment", "count": bson.M{"$sum": 1}}}},
		{{Key: "$sort", Value: bson.D{{Key: "count", Value: -1}, {Key: "_id", Value: 1}}}},
	}
	cursor, err := s.collection(CustomerScoresCollection).Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var counts []models.SegmentCount
	if err := cursor.All(ctx, &counts); err != nil {
		return nil, err
	}
	return counts, nil
}

// ListAlerts 最近的分群预警
func (s *AnalyticsStore) ListAlerts(ctx context.Context, limit int, unreadOnly bool) ([]models.SegmentAlert, error) {
	filter := bson.M{}
	if unreadOnly {
		filter["isRead"] = false
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "createdOn", Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(int64(limit))
	return findAll[models.SegmentAlert](ctx, s.collection(RFMAlertsCollection), filter, opts)
}

// MarkAlertRead 更新预警已读状态
func (s *AnalyticsStore) MarkAlertRead(ctx context.Context, id string, read bool) error {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return utils.CreateBadRequestError("无效的预警ID")
	}
	res, err := s.collection(RFMAlertsCollection).UpdateOne(ctx, bson.M{"_id": objID}, bson.M{"$set": bson.M{"isRead": read}})
	if err != nil {
		return fmt.Errorf("更新预警失败: %w", err)
	}
	if res.MatchedCount == 0 {
		return utils.CreateNotFoundError("预警")
	}
	return nil
}

// pageOptions limit 为0时返回全部
func pageOptions(page, limit int64, sort bson.D) *options.FindOptions {
	opts := options.Find().SetSort(sort)
	if limit > 0 {
		if page < 1 {
			page = 1
		}
		opts.SetSkip((page - 1) * limit).SetLimit(limit)
	}
	return opts
}

// ListCustomerScores 分页查询客户评分，按消费金额降序
func (s *AnalyticsStore) ListCustomerScores(ctx context.Context, filter service.ScoreFilter, page, limit int64) ([]models.CustomerScore, int64, error) {
	query := bson.M{}
	if filter.Segment != "" {
		query["segment"] = filter.Segment
	}
	coll := s.collection(CustomerScoresCollection)

	total, err := coll.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, err
	}
	opts := pageOptions(page, limit, bson.D{{Key: "totalSpent", Value: -1}, {Key: "customerId", Value: 1}})
	scores, err := findAll[models.CustomerScore](ctx, coll, query, opts)
	if err != nil {
		return nil, 0, err
	}
	return scores, total, nil
}

// ListItemAnalytics 分页查询产品分析，按收入降序
func (s *AnalyticsStore) ListItemAnalytics(ctx context.Context, filter service.ItemFilter, page, limit int64) ([]models.ItemAnalytics, int64, error) {
	query := bson.M{}
	if filter.ABCCategory != "" {
		query["abcCategory"] = filter.ABCCategory
	}
	if filter.XYZCategory != "" {
		query["xyzCategory"] = filter.XYZCategory
	}
	coll := s.collection(ItemAnalyticsCollection)

	total, err := coll.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, err
	}
	opts := pageOptions(page, limit, bson.D{{Key: "revenue", Value: -1}, {Key: "itemCode", Value: 1}})
	items, err := findAll[models.ItemAnalytics](ctx, coll, query, opts)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// MatrixCounts 按 ABC、XYZ 分类聚合产品数
func (s *AnalyticsStore) MatrixCounts(ctx context.Context) ([]models.MatrixCell, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.M{
			"_id":   bson.M{"abc": "$abcCategory", "xyz": "$xyzCategory"},
			"count": bson.M{"$sum": 1},
		}}},
		{{Key: "$project", Value: bson.M{
			"_id":         0,
			"abcCategory": "$_id.abc",
			"xyzCategory": "$_id.xyz",
			"count":       1,
		}}},
	}
	cursor, err := s.collection(ItemAnalyticsCollection).Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var cells []models.MatrixCell
	if err := cursor.All(ctx, &cells); err != nil {
		return nil, err
	}
	return cells, nil
}

// TopAssociations 置信度最高的关联规则
func (s *AnalyticsStore) TopAssociations(ctx context.Context, limit int) ([]models.BasketAssociation, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "confidence", Value: -1}, {Key: "support", Value: -1}, {Key: "itemA", Value: 1}, {Key: "itemB", Value: 1}}).
		SetLimit(int64(limit))
	return findAll[models.BasketAssociation](ctx, s.collection(BasketAnalysisCollection), bson.M{}, opts)
}

// UpsertHistory 写入每日快照，已存在的 (customerId, snapshotDate) 不覆盖
func (s *AnalyticsStore) UpsertHistory(ctx context.Context, snapshots []models.RFMHistory) (int, error) {
	if len(snapshots) == 0 {
		return 0, nil
	}
	writes := make([]mongo.WriteModel, 0, len(snapshots))
	for _, snap := range snapshots {
		writes = append(writes, mongo.NewUpdateOneModel().
			SetFilter(bson.M{"customerId": snap.CustomerID, "snapshotDate": snap.SnapshotDate}).
			SetUpdate(bson.M{"$setOnInsert": snap}).
			SetUpsert(true))
	}

	res, err := s.collection(RFMHistoryCollection).BulkWrite(ctx, writes, options.BulkWrite().SetOrdered(false))
	if err != nil {
		var bulkErr mongo.BulkWriteException
		if !errors.As(err, &bulkErr) || res == nil {
			return 0, err
		}
		// 并发快照时唯一索引冲突，视为已存在
		for _, we := range bulkErr.WriteErrors {
			if !mongo.IsDuplicateKeyError(we) {
				return int(res.UpsertedCount), err
			}
		}
	}
	return int(res.UpsertedCount), nil
}

// TrendData 客户自 fromDate 起的评分快照
func (s *AnalyticsStore) TrendData(ctx context.Context, customerID, fromDate string) ([]models.RFMHistory, error) {
	filter := bson.M{
		"customerId":   customerID,
		"snapshotDate": bson.M{"$gte": fromDate},
	}
	opts := options.Find().SetSort(bson.D{{Key: "snapshotDate", Value: 1}})
	return findAll[models.RFMHistory](ctx, s.collection(RFMHistoryCollection), filter, opts)
}
