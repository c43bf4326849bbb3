package database

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"profitops-go/internal/config"
	"profitops-go/pkg/log"
)

// NewRedis 创建会话存储使用的 Redis 客户端并测试连接。
func NewRedis(cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  3 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Addr, err)
	}

	log.Infof("Redis client connected to %s", cfg.Addr)
	return client, nil
}
