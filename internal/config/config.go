// Package config 负责加载和管理应用程序的配置。
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// 全局配置变量，存储从配置文件加载的所有设置。
var Conf Config

// Config 是整个应用程序的配置结构体，与 config.yaml 文件结构对应。
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Log       LogConfig       `mapstructure:"log"`
	Webhook   WebhookConfig   `mapstructure:"webhook"`
	Store     StoreConfig     `mapstructure:"store"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Activity  ActivityConfig  `mapstructure:"activity"`
	Kafka     KafkaConfig     `mapstructure:"kafka"`
	MinIO     MinIOConfig     `mapstructure:"minio"`
	Dashboard DashboardConfig `mapstructure:"dashboard"`
	Coach     CoachConfig     `mapstructure:"coach"`
}

// ServerConfig 存储服务器相关的配置。
type ServerConfig struct {
	Port        string   `mapstructure:"port"`
	Mode        string   `mapstructure:"mode"`
	CORSOrigins []string `mapstructure:"cors_origins"`
}

// LogConfig 存储日志相关的配置。
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"output_path"`
}

// WebhookConfig 描述 n8n 自动化服务的地址与超时。
type WebhookConfig struct {
	BaseURL          string `mapstructure:"base_url"`
	DashboardPath    string `mapstructure:"dashboard_path"`
	ChatPath         string `mapstructure:"chat_path"`
	DashboardTimeout int    `mapstructure:"dashboard_timeout_seconds"`
	ChatTimeout      int    `mapstructure:"chat_timeout_seconds"`
}

// DashboardURL 返回仪表盘 webhook 的完整地址。
func (c WebhookConfig) DashboardURL() string {
	return strings.TrimRight(c.BaseURL, "/") + c.DashboardPath
}

// ChatURL 返回聊天 webhook 的完整地址。
func (c WebhookConfig) ChatURL() string {
	return strings.TrimRight(c.BaseURL, "/") + c.ChatPath
}

// StoreConfig 控制会话存储的后端与键名。
type StoreConfig struct {
	Backend          string `mapstructure:"backend"` // "redis" 或 "memory"
	ConversationsKey string `mapstructure:"conversations_key"`
	TranscriptKey    string `mapstructure:"transcript_key"`
	MaxConversations int    `mapstructure:"max_conversations"`
	MaxTranscript    int    `mapstructure:"max_transcript"`
}

// DatabaseConfig 存储所有数据库连接的配置。
type DatabaseConfig struct {
	MySQL MySQLConfig `mapstructure:"mysql"`
	Redis RedisConfig `mapstructure:"redis"`
}

// MySQLConfig 存储 MySQL 数据库的配置。
type MySQLConfig struct {
	DSN string `mapstructure:"dsn"`
}

// RedisConfig 存储 Redis 的配置。
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// ActivityConfig 控制活动历史的记录方式。
type ActivityConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Transport string `mapstructure:"transport"` // "direct" 或 "kafka"
}

// KafkaConfig 存储 Kafka 相关的配置。
type KafkaConfig struct {
	Brokers string `mapstructure:"brokers"`
	Topic   string `mapstructure:"topic"`
	GroupID string `mapstructure:"group_id"`
}

// MinIOConfig 存储 MinIO 对象存储的配置，Endpoint 为空时不启用导出上传。
type MinIOConfig struct {
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	UseSSL          bool   `mapstructure:"use_ssl"`
	BucketName      string `mapstructure:"bucket_name"`
	PresignMinutes  int    `mapstructure:"presign_minutes"`
}

// DashboardConfig 控制仪表盘自动刷新。
type DashboardConfig struct {
	RefreshSpec string `mapstructure:"refresh_spec"`
}

// CoachConfig 配置销售教练对话。
type CoachConfig struct {
	BasePrompt    string `mapstructure:"base_prompt"`
	HistoryWindow int    `mapstructure:"history_window"`
	MaxSessions   int    `mapstructure:"max_sessions"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8081")
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.cors_origins", []string{"http://localhost:3000"})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("webhook.base_url", "https://profitops.app.n8n.cloud")
	v.SetDefault("webhook.dashboard_path", "/webhook/profitops-coaching")
	v.SetDefault("webhook.chat_path", "/webhook/profitops-chat")
	v.SetDefault("webhook.dashboard_timeout_seconds", 20)
	v.SetDefault("webhook.chat_timeout_seconds", 60)
	v.SetDefault("store.backend", "memory")
	v.SetDefault("store.conversations_key", "profitops_conversations")
	v.SetDefault("store.transcript_key", "profitops_chat_history")
	v.SetDefault("store.max_conversations", 50)
	v.SetDefault("store.max_transcript", 50)
	v.SetDefault("activity.transport", "direct")
	v.SetDefault("kafka.group_id", "profitops-activity")
	v.SetDefault("minio.presign_minutes", 60)
	v.SetDefault("dashboard.refresh_spec", "@every 5m")
	v.SetDefault("coach.history_window", 10)
	v.SetDefault("coach.max_sessions", 1000)
}

// Load 读取 .env 与 YAML 配置文件，环境变量（前缀 PROFITOPS_）优先。
func Load(configPath string) (Config, error) {
	// .env 不存在时直接使用系统环境变量
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("profitops")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("读取配置文件失败: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("无法将配置解析到结构体中: %w", err)
	}
	return c, nil
}

// Init 加载配置到全局 Conf，失败时 panic。
func Init(configPath string) {
	c, err := Load(configPath)
	if err != nil {
		panic(err)
	}
	Conf = c
}

// Seconds 把以秒为单位的配置值转换为 time.Duration，非正数使用 fallback。
func Seconds(n int, fallback time.Duration) time.Duration {
	if n <= 0 {
		return fallback
	}
	return time.Duration(n) * time.Second
}
