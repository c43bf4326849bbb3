package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"profitops-go/internal/service"
	"profitops-go/pkg/log"
)

// ConversationHandler 处理已保存会话的 API 请求。
type ConversationHandler struct {
	service service.ConversationService
}

// NewConversationHandler 创建一个新的 ConversationHandler。
func NewConversationHandler(service service.ConversationService) *ConversationHandler {
	return &ConversationHandler{service: service}
}

// SaveConversationRequest 定义了保存会话的请求体。
type SaveConversationRequest struct {
	SessionID string `json:"session_id" binding:"required"`
	Nombre    string `json:"nombre"`
}

// UpdateConversationRequest 定义了更新会话的请求体。
type UpdateConversationRequest struct {
	SessionID string `json:"session_id" binding:"required"`
}

// GetConversations 返回按新到旧排列的已保存会话。
func (h *ConversationHandler) GetConversations(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "success", "data": h.service.List(c.Request.Context())})
}

// GetConversation 按 id 返回一条会话。
func (h *ConversationHandler) GetConversation(c *gin.Context) {
	conv, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"code": http.StatusNotFound, "message": err.Error(), "data": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "success", "data": conv})
}

// SaveConversation 把 session 的当前对话保存为新会话。
func (h *ConversationHandler) SaveConversation(c *gin.Context) {
	var req SaveConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warnf("SaveConversation: Invalid request payload, error: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"code": http.StatusBadRequest, "message": "无效的请求负载", "data": nil})
		return
	}
	conv, err := h.service.SaveSession(c.Request.Context(), req.SessionID, req.Nombre)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": http.StatusBadRequest, "message": err.Error(), "data": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "success", "data": conv})
}

// UpdateConversation 用 session 的当前对话覆盖已保存的会话。
func (h *ConversationHandler) UpdateConversation(c *gin.Context) {
	var req UpdateConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warnf("UpdateConversation: Invalid request payload, error: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"code": http.StatusBadRequest, "message": "无效的请求负载", "data": nil})
		return
	}
	conv, err := h.service.UpdateFromSession(c.Request.Context(), c.Param("id"), req.SessionID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"code": http.StatusNotFound, "message": err.Error(), "data": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "success", "data": conv})
}

// DeleteConversation 删除会话，id 不存在时同样成功。
func (h *ConversationHandler) DeleteConversation(c *gin.Context) {
	h.service.Delete(c.Request.Context(), c.Param("id"))
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "success", "data": nil})
}

// ExportConversation 导出为 Markdown。带 ?download=1 且内容内联时直接返回文件。
func (h *ConversationHandler) ExportConversation(c *gin.Context) {
	exp, err := h.service.ExportMarkdown(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, service.ErrConversationNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"code": http.StatusNotFound, "message": err.Error(), "data": nil})
			return
		}
		log.Error("ExportConversation: Failed to export conversation", err)
		c.JSON(http.StatusInternalServerError, gin.H{"code": http.StatusInternalServerError, "message": "导出会话失败", "data": nil})
		return
	}
	if c.Query("download") != "" && exp.Markdown != "" {
		c.Header("Content-Disposition", `attachment; filename="`+exp.FileName+`"`)
		c.Data(http.StatusOK, "text/markdown; charset=utf-8", []byte(exp.Markdown))
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "success", "data": exp})
}
