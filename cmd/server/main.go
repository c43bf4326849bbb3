// Package main 是应用程序的入口点。
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"profitops-go/internal/config"
	"profitops-go/internal/handler"
	"profitops-go/internal/middleware"
	"profitops-go/internal/repository"
	"profitops-go/internal/service"
	"profitops-go/pkg/database"
	"profitops-go/pkg/kafka"
	"profitops-go/pkg/log"
	"profitops-go/pkg/storage"
	"profitops-go/pkg/webhook"
)

func main() {
	// 1. 初始化配置
	config.Init("./configs/config.yaml")
	cfg := config.Conf

	// 2. 初始化日志记录器
	log.Init(cfg.Log.Level, cfg.Log.Format, cfg.Log.OutputPath)
	defer log.Sync()
	log.Info("日志记录器初始化成功")

	bgCtx, cancelBg := context.WithCancel(context.Background())
	defer cancelBg()

	// 3. 初始化会话存储
	kv := newKVStore(cfg)
	conversationRepo := repository.NewConversationRepository(kv, repository.ConversationStoreOptions{
		ConversationsKey: cfg.Store.ConversationsKey,
		TranscriptKey:    cfg.Store.TranscriptKey,
		MaxConversations: cfg.Store.MaxConversations,
		MaxTranscript:    cfg.Store.MaxTranscript,
	})

	// 4. 初始化活动历史
	recorder, activityService, closeActivity := newActivity(bgCtx, cfg)
	defer closeActivity()

	// 5. 初始化导出存储（可选）
	var uploader service.Uploader
	if cfg.MinIO.Endpoint != "" {
		u, err := storage.NewMinIOUploader(bgCtx, cfg.MinIO)
		if err != nil {
			log.Warnf("MinIO 不可用，导出将以内联方式返回: %v", err)
		} else {
			uploader = u
		}
	}

	// 6. 初始化 Service (依赖注入)
	webhookClient := webhook.NewClient(cfg.Webhook)
	dashboardService := service.NewDashboardService(webhookClient, recorder)
	chatService := service.NewChatService(webhookClient, dashboardService, conversationRepo, recorder, service.ChatOptions{
		BasePrompt:    cfg.Coach.BasePrompt,
		HistoryWindow: cfg.Coach.HistoryWindow,
		MaxSessions:   cfg.Coach.MaxSessions,
	})
	conversationService := service.NewConversationService(conversationRepo, chatService, uploader, recorder)

	// 7. 定时刷新仪表盘
	if cfg.Dashboard.RefreshSpec != "" {
		stopRefresh, err := dashboardService.StartAutoRefresh(cfg.Dashboard.RefreshSpec)
		if err != nil {
			log.Fatalf("仪表盘定时刷新配置无效: %v", err)
		}
		defer stopRefresh()
		go func() {
			if _, err := dashboardService.Refresh(bgCtx); err != nil {
				log.Warnf("首次加载仪表盘失败: %v", err)
			}
		}()
	}

	// 8. 设置 Gin 模式并创建路由引擎
	gin.SetMode(cfg.Server.Mode)
	r := gin.New()
	r.Use(middleware.RequestLogger(), gin.Recovery(), cors.New(corsConfig(cfg.Server.CORSOrigins)))

	// 9. 注册路由
	handler.RegisterRoutes(r, handler.Handlers{
		Dashboard:    handler.NewDashboardHandler(dashboardService),
		Chat:         handler.NewChatHandler(chatService, conversationService),
		Conversation: handler.NewConversationHandler(conversationService),
		Activity:     handler.NewActivityHandler(activityService),
	})

	// 启动 HTTP 服务器并实现优雅停机
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: r,
	}

	go func() {
		log.Infof("服务启动于 %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("HTTP 服务监听失败: %s\n", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("接收到停机信号，正在关闭服务...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Errorf("HTTP 服务器关闭失败: %v", err)
	}
	log.Info("服务已优雅关闭")
}

// newKVStore 按配置选择 Redis 或进程内存储；Redis 不可用时退化为内存。
func newKVStore(cfg config.Config) repository.KVStore {
	if cfg.Store.Backend != "redis" {
		log.Info("会话存储使用进程内内存")
		return repository.NewMemoryKVStore()
	}
	rdb, err := database.NewRedis(cfg.Database.Redis)
	if err != nil {
		log.Warnf("Redis 不可用，会话存储退化为进程内内存: %v", err)
		return repository.NewMemoryKVStore()
	}
	return repository.NewRedisKVStore(rdb)
}

// newActivity 按配置组装活动历史：关闭、直接写库或经由 Kafka。
func newActivity(ctx context.Context, cfg config.Config) (service.ActivityRecorder, service.ActivityService, func()) {
	noop := func() {}
	if !cfg.Activity.Enabled {
		return service.NopRecorder{}, nil, noop
	}

	db, err := database.OpenMySQL(cfg.Database.MySQL.DSN)
	if err != nil {
		log.Warnf("活动历史数据库不可用，活动历史已关闭: %v", err)
		return service.NopRecorder{}, nil, noop
	}
	activityRepo := repository.NewActivityRepository(db)
	activityService := service.NewActivityService(activityRepo)

	if cfg.Activity.Transport != "kafka" {
		return activityService, activityService, noop
	}

	publisher := kafka.NewPublisher(cfg.Kafka)
	go kafka.StartConsumer(ctx, cfg.Kafka, activityRepo)
	return publisher, activityService, func() {
		if err := publisher.Close(); err != nil {
			log.Errorf("关闭 Kafka 生产者失败: %v", err)
		}
	}
}

func corsConfig(origins []string) cors.Config {
	c := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		// 允许任意来源时不能携带凭证
		c.AllowAllOrigins = true
		c.AllowCredentials = false
	} else {
		c.AllowOrigins = origins
	}
	return c
}
