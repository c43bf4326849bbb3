package model

import "time"

// 活动类型
const (
	ActivityDashboardRefresh    = "dashboard_refresh"
	ActivityChatExchange        = "chat_exchange"
	ActivityConversationSaved   = "conversation_saved"
	ActivityConversationUpdated = "conversation_updated"
	ActivityConversationDeleted = "conversation_deleted"
)

// Activity 代表活动历史中的一条记录。
type Activity struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Kind      string    `gorm:"type:varchar(64);index;not null" json:"kind"`
	SessionID string    `gorm:"type:varchar(128);index" json:"sessionId"`
	Subject   string    `gorm:"type:varchar(255)" json:"subject"`
	Detail    string    `gorm:"type:text" json:"detail"`
	Success   bool      `json:"success"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`
}

func (Activity) TableName() string {
	return "activities"
}
