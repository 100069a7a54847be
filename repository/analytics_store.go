package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/BerniceZTT/crm_analytics/models"
	"github.com/BerniceZTT/crm_analytics/service"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// AnalyticsStore 分析引擎的 MongoDB 存储实现
type AnalyticsStore struct {
	db       *mongo.Database
	defaults models.AnalyticsSettings
	now      func() time.Time
}

var _ service.Store = (*AnalyticsStore)(nil)

// NewAnalyticsStore 创建存储，defaults 在数据库中没有分析参数时使用
func NewAnalyticsStore(database *mongo.Database, defaults models.AnalyticsSettings) *AnalyticsStore {
	return &AnalyticsStore{db: database, defaults: defaults, now: time.Now}
}

func (s *AnalyticsStore) collection(name string) *mongo.Collection {
	return s.db.Collection(name)
}

// findAll 带重试地读取整个结果集
func findAll[T any](ctx context.Context, coll *mongo.Collection, filter interface{}, opts ...*options.FindOptions) ([]T, error) {
	result, err := ExecuteDbOperation(func() (interface{}, error) {
		cursor, err := coll.Find(ctx, filter, opts...)
		if err != nil {
			return nil, err
		}
		defer cursor.Close(ctx)

		var docs []T
		if err := cursor.All(ctx, &docs); err != nil {
			return nil, err
		}
		return docs, nil
	}, 3)
	if err != nil {
		return nil, err
	}
	docs, _ := result.([]T)
	return docs, nil
}

// ListCustomers 读取客户身份字段
func (s *AnalyticsStore) ListCustomers(ctx context.Context) ([]models.Customer, error) {
	opts := options.Find().SetProjection(bson.M{"_id": 1, "name": 1})
	customers, err := findAll[models.Customer](ctx, s.collection(CustomersCollection), bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("查询客户失败: %w", err)
	}
	return customers, nil
}

// ListProducts 读取产品主数据
func (s *AnalyticsStore) ListProducts(ctx context.Context) ([]models.Product, error) {
	opts := options.Find().SetProjection(bson.M{"_id": 1, "modelName": 1, "stock": 1, "valuationRate": 1})
	products, err := findAll[models.Product](ctx, s.collection(ProductsCollection), bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("查询产品失败: %w", err)
	}
	return products, nil
}

// ListInvoices 读取窗口内已提交的销售发票
func (s *AnalyticsStore) ListInvoices(ctx context.Context, from, to time.Time) ([]models.SalesInvoice, error) {
	filter := bson.M{
		"status":      models.InvoiceStatusSubmitted,
		"postingDate": bson.M{"$gte": from, "$lte": to},
	}
	invoices, err := findAll[models.SalesInvoice](ctx, s.collection(SalesInvoicesCollection), filter)
	if err != nil {
		return nil, fmt.Errorf("查询销售发票失败: %w", err)
	}
	return invoices, nil
}
