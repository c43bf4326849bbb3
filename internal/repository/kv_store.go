// Package repository 提供了数据访问层的实现。
package repository

import (
	"context"
	"sync"

	"github.com/go-redis/redis/v8"

	"profitops-go/pkg/log"
)

// KVStore 是会话持久化使用的键值存储端口。
// Read 在键不存在或读取失败时返回 ok=false；Write 返回是否写入成功。
type KVStore interface {
	Read(ctx context.Context, key string) (string, bool)
	Write(ctx context.Context, key, value string) bool
}

type redisKVStore struct {
	redisClient *redis.Client
}

// NewRedisKVStore 创建一个基于 Redis 的 KVStore，键不设置过期时间。
func NewRedisKVStore(redisClient *redis.Client) KVStore {
	return &redisKVStore{redisClient: redisClient}
}

func (s *redisKVStore) Read(ctx context.Context, key string) (string, bool) {
	val, err := s.redisClient.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", false
	}
	if err != nil {
		log.Warnw("kv read failed", "key", key, "error", err)
		return "", false
	}
	return val, true
}

func (s *redisKVStore) Write(ctx context.Context, key, value string) bool {
	if err := s.redisClient.Set(ctx, key, value, 0).Err(); err != nil {
		log.Warnw("kv write failed", "key", key, "error", err)
		return false
	}
	return true
}

type memoryKVStore struct {
	mu   sync.RWMutex
	data map[string]string
}

// NewMemoryKVStore 创建一个进程内的 KVStore。
func NewMemoryKVStore() KVStore {
	return &memoryKVStore{data: make(map[string]string)}
}

func (s *memoryKVStore) Read(_ context.Context, key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[key]
	return v, ok
}

func (s *memoryKVStore) Write(_ context.Context, key, value string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
	return true
}
