package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/BerniceZTT/crm_analytics/utils"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const (
	// 集合名（源数据，只读）
	CustomersCollection     = "customers"
	ProductsCollection      = "products"
	SalesInvoicesCollection = "salesInvoices"

	// 集合名（分析结果）
	CustomerScoresCollection = "customerRfmScores"
	RFMAlertsCollection      = "rfmAlerts"
	RFMHistoryCollection     = "rfmHistory"
	ItemAnalyticsCollection  = "itemAnalytics"
	BasketAnalysisCollection = "itemBasketAnalysis"

	SystemConfigsCollection    = "systemConfigs"
	RunLocksCollection         = "analyticsRunLocks"
	ApiOperationLogsCollection = "apiOperationLogs"
)

var (
	client *mongo.Client
	db     *mongo.Database
	ctx    = context.Background()
)

// InitMongoDB 初始化MongoDB连接
func InitMongoDB(uri, dbName string) error {
	// 设置连接超时
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	// 创建客户端
	var err error
	clientOptions := options.Client().ApplyURI(uri)
	client, err = mongo.Connect(connectCtx, clientOptions)
	if err != nil {
		return fmt.Errorf("连接MongoDB失败: %w", err)
	}

	// 检查连接
	pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
	defer pingCancel()

	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		return fmt.Errorf("ping MongoDB失败: %w", err)
	}

	// 选择数据库
	db = client.Database(dbName)
	utils.Logger.Info().Str("database", dbName).Msg("已连接到MongoDB")

	return nil
}

// CloseMongoDB 关闭MongoDB连接
func CloseMongoDB() {
	if client != nil {
		if err := client.Disconnect(ctx); err != nil {
			utils.Logger.Error().Err(err).Msg("断开MongoDB连接失败")
			return
		}
		utils.Logger.Info().Msg("已断开MongoDB连接")
	}
}

// GetDB 返回MongoDB数据库实例，InitMongoDB 之前为 nil
func GetDB() *mongo.Database {
	return db
}

// ExecuteDbOperation 执行数据库操作，提供错误处理和重试机制
func ExecuteDbOperation(operation func() (interface{}, error), retries int) (interface{}, error) {
	if retries <= 0 {
		retries = 3
	}

	var lastErr error
	for i := 0; i < retries; i++ {
		result, err := operation()
		if err == nil {
			return result, nil
		}

		lastErr = err
		utils.Logger.Error().Err(err).Msgf("数据库操作失败，重试 (%d/%d)", i+1, retries)

		// 如果是不可重试的错误，立即返回
		if !isRetryableError(err) {
			break
		}

		// 延迟后重试
		time.Sleep(time.Duration(500*(i+1)) * time.Millisecond)
	}

	return nil, lastErr
}

// isRetryableError 判断错误是否可重试
func isRetryableError(err error) bool {
	// MongoDB可重试错误代码
	retryableCodes := map[int]bool{
		6:     true, // HostUnreachable
		7:     true, // HostNotFound
		89:    true, // NetworkTimeout
		91:    true, // ShutdownInProgress
		189:   true, // PrimarySteppedDown
		10107: true, // NotMaster
		13436: true, // NotMasterNoSlaveOk
		11600: true, // InterruptedAtShutdown
		11602: true, // InterruptedDueToReplStateChange
	}

	var cmdErr mongo.CommandError
	if errors.As(err, &cmdErr) {
		return retryableCodes[int(cmdErr.Code)]
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if mongo.IsNetworkError(err) || mongo.IsTimeout(err) {
		return true
	}

	// 检查常见网络错误
	return isNetworkError(err)
}

// isNetworkError 检查是否是网络错误
func isNetworkError(err error) bool {
	errMsg := strings.ToLower(err.Error())
	networkErrors := []string{
		"connection refused",
		"connection reset",
		"connection closed",
		"no reachable servers",
		"server selection error",
	}

	for _, ne := range networkErrors {
		if strings.Contains(errMsg, ne) {
			return true
		}
	}

	return false
}

// collectionIndexes 各集合需要的索引
func collectionIndexes() map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		SalesInvoicesCollection: {
			{Keys: bson.D{{Key: "postingDate", Value: 1}}},
			{Keys: bson.D{{Key: "customerId", Value: 1}, {Key: "postingDate", Value: -1}}},
		},
		CustomerScoresCollection: customerScoreIndexes(),
		ItemAnalyticsCollection:  itemAnalyticsIndexes(),
		BasketAnalysisCollection: basketIndexes(),
		RFMAlertsCollection: {
			{Keys: bson.D{{Key: "createdOn", Value: -1}}},
			{Keys: bson.D{{Key: "isRead", Value: 1}, {Key: "createdOn", Value: -1}}},
			{Keys: bson.D{{Key: "runId", Value: 1}}},
		},
		RFMHistoryCollection: {
			{
				Keys:    bson.D{{Key: "customerId", Value: 1}, {Key: "snapshotDate", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
		},
		SystemConfigsCollection: {
			{
				Keys:    bson.D{{Key: "configType", Value: 1}, {Key: "configKey", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
		},
	}
}

func customerScoreIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		{Keys: bson.D{{Key: "customerId", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "segment", Value: 1}}},
	}
}

func itemAnalyticsIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		{Keys: bson.D{{Key: "itemCode", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "abcCategory", Value: 1}, {Key: "xyzCategory", Value: 1}}},
	}
}

func basketIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		{Keys: bson.D{{Key: "itemA", Value: 1}, {Key: "itemB", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "confidence", Value: -1}, {Key: "support", Value: -1}}},
	}
}

// InitializeCollections 初始化数据库集合与索引
func InitializeCollections() error {
	collections := []string{
		CustomersCollection,
		ProductsCollection,
		SalesInvoicesCollection,
		CustomerScoresCollection,
		RFMAlertsCollection,
		RFMHistoryCollection,
		ItemAnalyticsCollection,
		BasketAnalysisCollection,
		SystemConfigsCollection,
		RunLocksCollection,
		ApiOperationLogsCollection,
	}

	for _, collName := range collections {
		// 检查集合是否存在
		collExists, err := CollectionExists(collName)
		if err != nil {
			return fmt.Errorf("检查集合失败: %w", err)
		}

		// 如果不存在则创建
		if !collExists {
			if err := db.CreateCollection(ctx, collName); err != nil {
				return fmt.Errorf("创建集合失败: %w", err)
			}
			utils.Logger.Info().Str("collection", collName).Msg("创建集合成功")
		} else {
			utils.Logger.Info().Str("collection", collName).Msg("集合已存在")
		}
	}

	for collName, indexes := range collectionIndexes() {
		if _, err := db.Collection(collName).Indexes().CreateMany(ctx, indexes); err != nil {
			return fmt.Errorf("创建索引失败 %s: %w", collName, err)
		}
	}

	return nil
}

// CollectionExists 检查集合是否存在
func CollectionExists(collName string) (bool, error) {
	collections, err := db.ListCollectionNames(ctx, bson.M{"name": collName})
	if err != nil {
		return false, err
	}

	for _, name := range collections {
		if name == collName {
			return true, nil
		}
	}

	return false, nil
}

// GetDatabaseStatus 获取分析结果集合的数据量
func GetDatabaseStatus() (map[string]interface{}, error) {
	if db == nil {
		return nil, fmt.Errorf("数据库未连接")
	}

	collections := []string{
		CustomerScoresCollection,
		RFMAlertsCollection,
		RFMHistoryCollection,
		ItemAnalyticsCollection,
		BasketAnalysisCollection,
	}

	result := make(map[string]interface{})

	for _, collName := range collections {
		count, err := db.Collection(collName).EstimatedDocumentCount(ctx)
		if err != nil {
			utils.Logger.Error().Err(err).Str("collection", collName).Msg("获取集合计数失败")
			result[collName] = map[string]interface{}{
				"count": 0,
				"error": err.Error(),
			}
			continue
		}
		result[collName] = map[string]interface{}{
			"count": count,
		}
	}

	return result, nil
}
