package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/BerniceZTT/crm_analytics/models"

	"github.com/segmentio/kafka-go"
)

// ErrPublisherClosed 推送器已关闭
var ErrPublisherClosed = errors.New("alert publisher closed")

// AlertPublisher 分群预警的外部推送
type AlertPublisher interface {
	PublishAlerts(ctx context.Context, alerts []models.SegmentAlert) error
	Close() error
}

// NopAlertPublisher 未配置消息队列时使用
type NopAlertPublisher struct{}

func (NopAlertPublisher) PublishAlerts(context.Context, []models.SegmentAlert) error { return nil }
func (NopAlertPublisher) Close() error                                               { return nil }

// alertEvent 推送到 Kafka 的消息体
type alertEvent struct {
	RunID           string `json:"runId"`
	CustomerID      string `json:"customerId"`
	CustomerName    string `json:"customerName"`
	AlertType       string `json:"alertType"`
	PreviousSegment string `json:"previousSegment"`
	NewSegment      string `json:"newSegment"`
	CreatedOn       int64  `json:"createdOn"`
}

// KafkaAlertPublisher 把分群预警写入 Kafka 主题，按客户ID分区
type KafkaAlertPublisher struct {
	writer *kafka.Writer
	mu     sync.Mutex
	closed bool
}

// NewKafkaAlertPublisher 创建 Kafka 推送器
func NewKafkaAlertPublisher(brokers []string, topic string) (*KafkaAlertPublisher, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("未配置 Kafka brokers")
	}
	if topic == "" {
		return nil, fmt.Errorf("未配置预警主题")
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		Compression:  kafka.Gzip,
		RequiredAcks: kafka.RequireAll,
	}
	return &KafkaAlertPublisher{writer: writer}, nil
}

// PublishAlerts 批量写入预警
func (p *KafkaAlertPublisher) PublishAlerts(ctx context.Context, alerts []models.SegmentAlert) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrPublisherClosed
	}
	p.mu.Unlock()

	messages, err := alertMessages(alerts)
	if err != nil {
		return err
	}
	if len(messages) == 0 {
		return nil
	}
	return p.writer.WriteMessages(ctx, messages...)
}

// Close 关闭写入器
func (p *KafkaAlertPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true
	return p.writer.Close()
}

func alertMessages(alerts []models.SegmentAlert) ([]kafka.Message, error) {
	messages := make([]kafka.Message, 0, len(alerts))
	for _, a := range alerts {
		value, err := json.Marshal(alertEvent{
			RunID:           a.RunID,
			CustomerID:      a.CustomerID,
			CustomerName:    a.CustomerName,
			AlertType:       string(a.AlertType),
			PreviousSegment: a.PreviousSegment,
			NewSegment:      a.NewSegment,
			CreatedOn:       a.CreatedOn.Unix(),
		})
		if err != nil {
			return nil, fmt.Errorf("序列化预警失败: %w", err)
		}
		messages = append(messages, kafka.Message{
			Key:   []byte(a.CustomerID),
			Value: value,
			Time:  a.CreatedOn,
		})
	}
	return messages, nil
}
