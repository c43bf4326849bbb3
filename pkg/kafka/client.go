// Package kafka 提供了通过 Kafka 传输活动历史的功能。
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"

	"profitops-go/internal/config"
	"profitops-go/internal/model"
	"profitops-go/pkg/log"
	"profitops-go/pkg/tasks"
)

// ActivitySink 是消费者写入活动的目标，解耦 Kafka 与具体的存储实现。
type ActivitySink interface {
	Create(ctx context.Context, activity *model.Activity) error
}

// Publisher 把活动写入 Kafka 主题。
type Publisher struct {
	writer *kafka.Writer
	now    func() time.Time
}

// NewPublisher 初始化 Kafka 生产者。
func NewPublisher(cfg config.KafkaConfig) *Publisher {
	w := &kafka.Writer{
		Addr:         kafka.TCP(brokers(cfg.Brokers)...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 50 * time.Millisecond,
		Async:        true,
		Completion: func(messages []kafka.Message, err error) {
			if err != nil {
				log.Errorf("发送活动消息失败 (%d 条): %v", len(messages), err)
			}
		},
	}
	log.Info("Kafka 生产者初始化成功")
	return &Publisher{writer: w, now: time.Now}
}

// Record 发布一条活动，失败只记录日志。
func (p *Publisher) Record(ctx context.Context, activity model.Activity) {
	value, err := json.Marshal(tasks.NewActivityTask(activity, p.now()))
	if err != nil {
		log.Errorf("无法序列化活动: %v", err)
		return
	}
	msg := kafka.Message{Key: []byte(activity.Kind), Value: value}
	if err := p.writer.WriteMessages(context.WithoutCancel(ctx), msg); err != nil {
		log.Errorf("发送活动消息失败: %v", err)
	}
}

// Close 刷新并关闭生产者。
func (p *Publisher) Close() error {
	return p.writer.Close()
}

// StartConsumer 消费活动主题并写入 sink，直到 ctx 被取消。
func StartConsumer(ctx context.Context, cfg config.KafkaConfig, sink ActivitySink) {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers(cfg.Brokers),
		Topic:    cfg.Topic,
		GroupID:  cfg.GroupID,
		MinBytes: 1,
		MaxBytes: 1e6,
	})
	defer func() {
		if err := r.Close(); err != nil {
			log.Errorf("关闭 Kafka 消费者失败: %v", err)
		}
	}()

	log.Infof("Kafka 消费者已启动，正在监听主题 '%s'", cfg.Topic)

	for {
		m, err := r.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				log.Info("Kafka 消费者已停止")
				return
			}
			log.Error("从 Kafka 读取消息失败", err)
			return
		}

		if err := store(ctx, sink, m.Value, retryBackoff); err != nil {
			if errors.Is(err, context.Canceled) {
				log.Info("Kafka 消费者已停止")
				return
			}
			// 活动历史尽力而为，重试用尽后丢弃并提交
			log.Errorf("写入活动失败，已丢弃: %v", err)
		}
		commit(ctx, r, m)
	}
}

// 写库失败时的重试次数与间隔
const maxStoreAttempts = 3

const retryBackoff = 500 * time.Millisecond

// store 解析一条活动消息并写入 sink，失败时按递增间隔重试。
// 格式错误的消息不重试。
func store(ctx context.Context, sink ActivitySink, value []byte, backoff time.Duration) error {
	var task tasks.ActivityTask
	if err := json.Unmarshal(value, &task); err != nil {
		return fmt.Errorf("无法解析 Kafka 消息: %w, value: %s", err, string(value))
	}

	var err error
	for attempt := 1; attempt <= maxStoreAttempts; attempt++ {
		activity := task.Activity()
		if err = sink.Create(ctx, &activity); err == nil {
			return nil
		}
		log.Warnf("写入活动失败 (第 %d 次): kind=%s, err=%v", attempt, task.Kind, err)
		if attempt == maxStoreAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff * time.Duration(attempt)):
		}
	}
	return fmt.Errorf("kind=%s: %w", task.Kind, err)
}

func commit(ctx context.Context, r *kafka.Reader, m kafka.Message) {
	if err := r.CommitMessages(ctx, m); err != nil {
		log.Errorf("提交 Kafka 消息 offset 失败: %v", err)
	}
}

func brokers(list string) []string {
	var out []string
	for _, b := range strings.Split(list, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}
