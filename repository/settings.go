package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/BerniceZTT/crm_analytics/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func settingsFilter() bson.M {
	return bson.M{
		"configType": models.ConfigTypeAnalyticsSettings,
		"configKey":  models.AnalyticsSettingsKey,
	}
}

// LoadSettings 读取分析参数，未配置或已停用时返回默认值
func (s *AnalyticsStore) LoadSettings(ctx context.Context) (models.AnalyticsSettings, error) {
	var cfg models.SystemConfig
	err := s.collection(SystemConfigsCollection).FindOne(ctx, settingsFilter()).Decode(&cfg)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return s.defaults, nil
	}
	if err != nil {
		return s.defaults, fmt.Errorf("查询分析参数失败: %w", err)
	}
	if !cfg.IsEnabled || cfg.ConfigValue == nil {
		return s.defaults, nil
	}
	return decodeSettings(cfg.ConfigValue, s.defaults)
}

// decodeSettings 通过 BSON 序列化/反序列化把 ConfigValue 覆盖到默认值上
func decodeSettings(value interface{}, defaults models.AnalyticsSettings) (models.AnalyticsSettings, error) {
	settings := defaults
	data, err := bson.Marshal(value)
	if err != nil {
		return defaults, fmt.Errorf("BSON 序列化失败: %v", err)
	}
	if err := bson.Unmarshal(data, &settings); err != nil {
		return defaults, fmt.Errorf("无法解析 ConfigValue，实际类型: %T", value)
	}
	return settings, nil
}

// SaveSettings 保存分析参数
func (s *AnalyticsStore) SaveSettings(ctx context.Context, settings models.AnalyticsSettings, updaterID, updaterName string) error {
	update := bson.M{
		"$set": bson.M{
			"configValue": settings,
			"description": "客户评分与产品分析参数",
			"isEnabled":   true,
			"updaterId":   updaterID,
			"updaterName": updaterName,
			"updatedAt":   s.now(),
		},
	}
	_, err := s.collection(SystemConfigsCollection).UpdateOne(ctx, settingsFilter(), update, options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("保存分析参数失败: %w", err)
	}
	return nil
}
