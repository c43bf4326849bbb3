package handler

import "github.com/gin-gonic/gin"

// Handlers 汇总所有路由需要的处理器。
type Handlers struct {
	Dashboard    *DashboardHandler
	Chat         *ChatHandler
	Conversation *ConversationHandler
	Activity     *ActivityHandler
}

// RegisterRoutes 注册所有 HTTP 路由。
func RegisterRoutes(r *gin.Engine, h Handlers) {
	r.GET("/health", Health)

	apiV1 := r.Group("/api/v1")
	{
		dashboard := apiV1.Group("/dashboard")
		{
			dashboard.GET("", h.Dashboard.GetDashboard)
			dashboard.POST("/refresh", h.Dashboard.RefreshDashboard)
		}

		coach := apiV1.Group("/coach/:session")
		{
			coach.GET("/messages", h.Chat.GetMessages)
			coach.POST("/messages", h.Chat.SendMessage)
			coach.POST("/reset", h.Chat.ResetConversation)
			coach.POST("/load/:id", h.Chat.LoadConversation)
			coach.GET("/ws", h.Chat.Handle)
		}

		conversations := apiV1.Group("/conversations")
		{
			conversations.GET("", h.Conversation.GetConversations)
			conversations.POST("", h.Conversation.SaveConversation)
			conversations.GET("/:id", h.Conversation.GetConversation)
			conversations.PUT("/:id", h.Conversation.UpdateConversation)
			conversations.DELETE("/:id", h.Conversation.DeleteConversation)
			conversations.GET("/:id/export", h.Conversation.ExportConversation)
		}

		apiV1.GET("/activities", h.Activity.ListActivities)
	}
}
