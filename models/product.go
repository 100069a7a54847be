package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PricingTier 产品价格阶梯
type PricingTier struct {
	Quantity int     `json:"quantity" bson:"quantity"`
	Price    float64 `json:"price" bson:"price"`
}

// Product 产品模型
type Product struct {
	ID            primitive.ObjectID `json:"_id,omitempty" bson:"_id,omitempty"`
	ModelName     string             `json:"modelName" bson:"modelName"`
	PackageType   string             `json:"packageType" bson:"packageType"`
	Stock         int                `json:"stock" bson:"stock"`
	ValuationRate float64            `json:"valuationRate" bson:"valuationRate"` // 单位成本
	Pricing       []PricingTier      `json:"pricing" bson:"pricing"`
	CreatedAt     time.Time          `json:"createdAt,omitempty" bson:"createdAt,omitempty"`
	UpdatedAt     time.Time          `json:"updatedAt,omitempty" bson:"updatedAt,omitempty"`
}
