package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"profitops-go/internal/model"
	"profitops-go/pkg/tasks"
)

type flakySink struct {
	failures int
	calls    int
	stored   []model.Activity
}

func (s *flakySink) Create(_ context.Context, a *model.Activity) error {
	s.calls++
	if s.calls <= s.failures {
		return errors.New("database is locked")
	}
	s.stored = append(s.stored, *a)
	return nil
}

func encodeActivity(t *testing.T, a model.Activity) []byte {
	t.Helper()
	b, err := json.Marshal(tasks.NewActivityTask(a, time.Date(2026, 10, 19, 9, 30, 0, 0, time.UTC)))
	require.NoError(t, err)
	return b
}

func TestBrokers(t *testing.T) {
	assert.Equal(t, []string{"a:9092", "b:9092"}, brokers(" a:9092, ,b:9092 "))
	assert.Nil(t, brokers(""))
}

func TestStore_RetriesUntilSinkAccepts(t *testing.T) {
	sink := &flakySink{failures: 2}
	value := encodeActivity(t, model.Activity{Kind: model.ActivityChatExchange, SessionID: "s1", Success: true})

	require.NoError(t, store(context.Background(), sink, value, time.Millisecond))
	assert.Equal(t, 3, sink.calls)
	require.Len(t, sink.stored, 1)
	assert.Equal(t, "s1", sink.stored[0].SessionID)
}

func TestStore_GivesUpAfterMaxAttempts(t *testing.T) {
	sink := &flakySink{failures: maxStoreAttempts}
	value := encodeActivity(t, model.Activity{Kind: model.ActivityDashboardRefresh})

	err := store(context.Background(), sink, value, time.Millisecond)
	assert.ErrorContains(t, err, "database is locked")
	assert.Equal(t, maxStoreAttempts, sink.calls)
	assert.Empty(t, sink.stored)
}

func TestStore_MalformedMessageIsNotRetried(t *testing.T) {
	sink := &flakySink{}
	assert.Error(t, store(context.Background(), sink, []byte("{not json"), time.Millisecond))
	assert.Zero(t, sink.calls)
}

func TestStore_StopsWhenContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	sink := &flakySink{failures: maxStoreAttempts}
	value := encodeActivity(t, model.Activity{Kind: model.ActivityChatExchange})

	err := store(ctx, sink, value, time.Hour)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, sink.calls)
}
