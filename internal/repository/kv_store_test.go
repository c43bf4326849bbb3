package repository

import (
	"context"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
)

func TestMemoryKVStore_ReadWrite(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKVStore()

	_, ok := kv.Read(ctx, "missing")
	assert.False(t, ok)

	assert.True(t, kv.Write(ctx, "k", "v"))
	v, ok := kv.Read(ctx, "k")
	assert.True(t, ok)
	assert.Equal(t, "v", v)
}

func TestRedisKVStore_UnreachableServerDegrades(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()
	kv := NewRedisKVStore(client)
	ctx := context.Background()

	_, ok := kv.Read(ctx, "profitops_conversations")
	assert.False(t, ok)
	assert.False(t, kv.Write(ctx, "profitops_conversations", "[]"))

	repo := NewConversationRepository(kv, ConversationStoreOptions{})
	assert.Empty(t, repo.List(ctx))
}
