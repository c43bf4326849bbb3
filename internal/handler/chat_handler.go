package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"profitops-go/internal/model"
	"profitops-go/internal/service"
	"profitops-go/pkg/log"
	"profitops-go/pkg/webhook"
)

var (
	upgrader = websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			return true // 来源由 CORS 配置约束
		},
	}
)

// ChatHandler 负责销售教练对话的 REST 与 WebSocket 请求。
type ChatHandler struct {
	chatService         service.ChatService
	conversationService service.ConversationService
}

// NewChatHandler 创建一个新的 ChatHandler。
func NewChatHandler(chatService service.ChatService, conversationService service.ConversationService) *ChatHandler {
	return &ChatHandler{chatService: chatService, conversationService: conversationService}
}

// SendMessageRequest 定义了发送消息的请求体。
type SendMessageRequest struct {
	Message string `json:"message" binding:"required"`
}

// GetMessages 返回 session 的当前对话与快捷提问。
func (h *ChatHandler) GetMessages(c *gin.Context) {
	msgs := h.chatService.Transcript(c.Request.Context(), c.Param("session"))
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "success", "data": gin.H{
		"messages":      msgs,
		"quick_actions": service.QuickActions,
	}})
}

// SendMessage 发送一条消息并返回更新后的对话。
func (h *ChatHandler) SendMessage(c *gin.Context) {
	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warnf("SendMessage: Invalid request payload, error: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"code": http.StatusBadRequest, "message": "无效的请求负载", "data": nil})
		return
	}

	msgs, err := h.chatService.Send(c.Request.Context(), c.Param("session"), req.Message)
	if err != nil {
		status, message := chatErrorStatus(err)
		c.JSON(status, gin.H{"code": status, "message": message, "data": transcriptData(msgs)})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "success", "data": transcriptData(msgs)})
}

// ResetConversation 开始新的对话。
func (h *ChatHandler) ResetConversation(c *gin.Context) {
	msgs := h.chatService.Reset(c.Request.Context(), c.Param("session"))
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "success", "data": transcriptData(msgs)})
}

// LoadConversation 用已保存的会话替换 session 的对话。
func (h *ChatHandler) LoadConversation(c *gin.Context) {
	msgs, err := h.conversationService.LoadIntoSession(c.Request.Context(), c.Param("id"), c.Param("session"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"code": http.StatusNotFound, "message": err.Error(), "data": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "success", "data": transcriptData(msgs)})
}

func transcriptData(msgs []model.Message) gin.H {
	if msgs == nil {
		return nil
	}
	return gin.H{"messages": msgs}
}

// chatErrorStatus 把服务层错误映射为 HTTP 状态码与提示。
func chatErrorStatus(err error) (int, string) {
	var sendErr *webhook.SendError
	switch {
	case errors.Is(err, service.ErrEmptyMessage):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, service.ErrSendInProgress), errors.Is(err, service.ErrSessionReset):
		return http.StatusConflict, err.Error()
	case errors.As(err, &sendErr):
		return http.StatusBadGateway, sendErr.Error()
	default:
		log.Errorf("chat send failed: %v", err)
		return http.StatusInternalServerError, "AI服务暂时不可用，请稍后重试"
	}
}

// wsRequest 是 WebSocket 客户端发送的指令。纯文本消息按 message 处理。
type wsRequest struct {
	Type    string `json:"type"`
	Content string `json:"content"`
}

type wsResponse struct {
	Type      string          `json:"type"`
	Status    string          `json:"status,omitempty"`
	Message   string          `json:"message,omitempty"`
	Messages  []model.Message `json:"messages,omitempty"`
	Timestamp int64           `json:"timestamp"`
}

// Handle 处理一个 WebSocket 对话连接。读取循环逐条处理，天然串行化同一连接上的发送。
func (h *ChatHandler) Handle(c *gin.Context) {
	sessionID := c.Param("session")

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error("WebSocket 升级失败", err)
		return
	}
	defer conn.Close()

	log.Infof("WebSocket 连接已建立，session: %s", sessionID)
	ctx := c.Request.Context()
	writeWS(conn, wsResponse{Type: "transcript", Messages: h.chatService.Transcript(ctx, sessionID)})

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Warnf("从 WebSocket 读取消息失败: %v", err)
			}
			return
		}

		req := wsRequest{Type: "message", Content: string(raw)}
		if len(raw) > 0 && raw[0] == '{' {
			if err := json.Unmarshal(raw, &req); err != nil {
				writeWS(conn, wsResponse{Type: "error", Message: "无效的消息格式"})
				continue
			}
		}

		switch req.Type {
		case "reset":
			writeWS(conn, wsResponse{Type: "transcript", Messages: h.chatService.Reset(ctx, sessionID)})
		case "message":
			writeWS(conn, wsResponse{Type: "typing"})
			msgs, err := h.chatService.Send(ctx, sessionID, req.Content)
			if err != nil {
				_, message := chatErrorStatus(err)
				writeWS(conn, wsResponse{Type: "error", Message: message, Messages: msgs})
			} else {
				writeWS(conn, wsResponse{Type: "transcript", Messages: msgs})
			}
			writeWS(conn, wsResponse{Type: "completion", Status: "finished"})
		default:
			writeWS(conn, wsResponse{Type: "error", Message: "未知的指令类型: " + req.Type})
		}
	}
}

func writeWS(conn *websocket.Conn, resp wsResponse) {
	resp.Timestamp = time.Now().UnixMilli()
	if err := conn.WriteJSON(resp); err != nil {
		log.Warnf("写入 WebSocket 消息失败: %v", err)
	}
}
