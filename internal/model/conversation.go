package model

// 消息角色
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatMessage 是发送给聊天 webhook 的历史消息，只包含角色与内容。
type ChatMessage struct {
	Role    string `json:"role"` // "user" 或 "assistant"
	Content string `json:"content"`
}

// Message 是对话界面中的一条消息，带有 id 与显示用时间。
type Message struct {
	ID        string `json:"id"`
	Role      string `json:"role"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp"`
}

// SavedMessage 是已保存会话中的一条消息。
type SavedMessage Message

// SavedConversation 是一次被命名保存的对话记录。
type SavedConversation struct {
	ID       string         `json:"id"`
	Nombre   string         `json:"nombre"`
	Fecha    string         `json:"fecha"`
	Mensajes []SavedMessage `json:"mensajes"`
	Preview  string         `json:"preview"`
}

// ToSaved 把界面消息转换为可持久化的消息。
func ToSaved(msgs []Message) []SavedMessage {
	out := make([]SavedMessage, len(msgs))
	for i, m := range msgs {
		out[i] = SavedMessage(m)
	}
	return out
}

// FromSaved 把已保存消息还原为界面消息。
func FromSaved(msgs []SavedMessage) []Message {
	out := make([]Message, len(msgs))
	for i, m := range msgs {
		out[i] = Message(m)
	}
	return out
}

// ToChatHistory 取 msgs 最近 window 条，只保留 role 与 content。
func ToChatHistory(msgs []Message, window int) []ChatMessage {
	if window > 0 && len(msgs) > window {
		msgs = msgs[len(msgs)-window:]
	}
	out := make([]ChatMessage, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, ChatMessage{Role: m.Role, Content: m.Content})
	}
	return out
}
