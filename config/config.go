package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/BerniceZTT/crm_analytics/models"

	"gopkg.in/yaml.v3"
)

// Config 应用配置
type Config struct {
	Port            int
	MongoURI        string
	MongoDB         string
	JWTKey          string
	Debug           bool
	KafkaBrokers    []string
	KafkaAlertTopic string
	RecomputeAt     string // HH:MM，为空则不启用每日重算
	SettingsFile    string
	CORSOrigins     []string
}

// LoadConfig 从环境变量加载配置
func LoadConfig() *Config {
	port, _ := strconv.Atoi(getEnv("PORT", "8080"))
	return &Config{
		Port:            port,
		MongoURI:        getEnv("MONGO_URI", "mongodb://127.0.0.1:27017/crm"),
		MongoDB:         getEnv("MONGO_DB", "crm"),
		JWTKey:          getEnv("JWT_KEY", "your-secret-key"), // 实际环境应替换为安全密钥
		Debug:           getEnv("GIN_MODE", "debug") == "debug",
		KafkaBrokers:    splitList(getEnv("KAFKA_BROKERS", "")),
		KafkaAlertTopic: getEnv("KAFKA_ALERT_TOPIC", "rfm.alerts"),
		RecomputeAt:     getEnv("RECOMPUTE_AT", "02:30"),
		SettingsFile:    getEnv("ANALYTICS_SETTINGS_FILE", ""),
		CORSOrigins:     splitList(getEnv("CORS_ORIGINS", "")),
	}
}

// RecomputeTime 解析每日重算时间
func (c *Config) RecomputeTime() (hour, min int, ok bool) {
	if c.RecomputeAt == "" {
		return 0, 0, false
	}
	parts := strings.Split(c.RecomputeAt, ":")
	if len(parts) != 2 {
		return 0, 0, false
	}
	h, err1 := strconv.Atoi(parts[0])
	m, err2 := strconv.Atoi(parts[1])
	if err1 != nil || err2 != nil || h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, 0, false
	}
	return h, m, true
}

// LoadAnalyticsDefaults 读取默认分析参数，文件中缺省的字段保留内置默认值
func LoadAnalyticsDefaults(path string) (models.AnalyticsSettings, error) {
	settings := models.DefaultAnalyticsSettings()
	if path == "" {
		return settings, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return settings, fmt.Errorf("读取分析参数文件失败: %w", err)
	}
	if err := yaml.Unmarshal(data, &settings); err != nil {
		return settings, fmt.Errorf("解析分析参数文件失败: %w", err)
	}
	return settings, nil
}

// getEnv 获取环境变量，如果不存在则返回默认值
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
