package tasks

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"profitops-go/internal/model"
)

func TestActivityTask_PreservesOccurrenceTime(t *testing.T) {
	at := time.Date(2026, 10, 19, 8, 0, 0, 0, time.UTC)
	task := NewActivityTask(model.Activity{Kind: model.ActivityConversationSaved, Subject: "Q3 follow-up", Success: true}, at)

	b, err := json.Marshal(task)
	require.NoError(t, err)
	var decoded ActivityTask
	require.NoError(t, json.Unmarshal(b, &decoded))

	a := decoded.Activity()
	assert.Equal(t, model.ActivityConversationSaved, a.Kind)
	assert.Equal(t, "Q3 follow-up", a.Subject)
	assert.True(t, a.Success)
	assert.True(t, at.Equal(a.CreatedAt))
}
