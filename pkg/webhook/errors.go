package webhook

import "fmt"

// FetchError 表示拉取仪表盘数据失败：非 2xx 状态或网络错误。
type FetchError struct {
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("error fetching dashboard: %d", e.StatusCode)
	}
	return fmt.Sprintf("error fetching dashboard: %v", e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// SendError 表示发送聊天消息失败：非 2xx 状态或网络错误。
type SendError struct {
	StatusCode int
	Err        error
}

func (e *SendError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("error sending chat: %d", e.StatusCode)
	}
	return fmt.Sprintf("error sending chat: %v", e.Err)
}

func (e *SendError) Unwrap() error { return e.Err }
