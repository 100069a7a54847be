package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ConfigType 配置类型枚举
type ConfigType string

const (
	// ConfigTypeAnalyticsSettings 客户/产品分析参数
	ConfigTypeAnalyticsSettings ConfigType = "analytics_settings"
)

// AnalyticsSettingsKey 分析参数的配置键
const AnalyticsSettingsKey = "default"

// SystemConfig 系统配置模型 (MongoDB文档结构)
type SystemConfig struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	ConfigType  ConfigType         `bson:"configType" json:"configType" binding:"required"`
	ConfigKey   string             `bson:"configKey" json:"configKey" binding:"required"`
	ConfigValue interface{}        `bson:"configValue" json:"configValue" binding:"required"` // 使用interface{}存储任意类型值
	Description string             `bson:"description" json:"description"`
	IsEnabled   bool               `bson:"isEnabled" json:"isEnabled"`

	// 更新信息
	UpdaterID   string    `bson:"updaterId,omitempty" json:"updaterId,omitempty"`
	UpdaterName string    `bson:"updaterName,omitempty" json:"updaterName,omitempty"`
	UpdatedAt   time.Time `bson:"updatedAt,omitempty" json:"updatedAt,omitempty"`
}
