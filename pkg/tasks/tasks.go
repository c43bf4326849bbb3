// Package tasks defines the structure of the messages that are sent to Kafka.
package tasks

import (
	"time"

	"profitops-go/internal/model"
)

// ActivityTask is one activity-history entry travelling through Kafka.
type ActivityTask struct {
	Kind       string    `json:"kind"`
	SessionID  string    `json:"session_id,omitempty"`
	Subject    string    `json:"subject,omitempty"`
	Detail     string    `json:"detail,omitempty"`
	Success    bool      `json:"success"`
	OccurredAt time.Time `json:"occurred_at"`
}

// NewActivityTask wraps an activity for publishing.
func NewActivityTask(a model.Activity, now time.Time) ActivityTask {
	return ActivityTask{
		Kind:       a.Kind,
		SessionID:  a.SessionID,
		Subject:    a.Subject,
		Detail:     a.Detail,
		Success:    a.Success,
		OccurredAt: now,
	}
}

// Activity converts the task back into a storable activity.
func (t ActivityTask) Activity() model.Activity {
	return model.Activity{
		Kind:      t.Kind,
		SessionID: t.SessionID,
		Subject:   t.Subject,
		Detail:    t.Detail,
		Success:   t.Success,
		CreatedAt: t.OccurredAt,
	}
}
