package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
server:
  port: "8081"
webhook:
  base_url: "https://profitops.app.n8n.cloud/"
  chat_timeout_seconds: 45
store:
  backend: "redis"
activity:
  enabled: true
  transport: "kafka"
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_FileDefaultsAndEnv(t *testing.T) {
	t.Setenv("PROFITOPS_SERVER_PORT", "9090")

	c, err := Load(writeConfig(t, sampleYAML))
	require.NoError(t, err)

	assert.Equal(t, "9090", c.Server.Port)
	assert.Equal(t, "redis", c.Store.Backend)
	assert.True(t, c.Activity.Enabled)
	assert.Equal(t, "kafka", c.Activity.Transport)
	assert.Equal(t, 45, c.Webhook.ChatTimeout)
	assert.Equal(t, 20, c.Webhook.DashboardTimeout)
	assert.Equal(t, 50, c.Store.MaxConversations)
	assert.Equal(t, "@every 5m", c.Dashboard.RefreshSpec)
	assert.Equal(t, 10, c.Coach.HistoryWindow)
	assert.Equal(t, 1000, c.Coach.MaxSessions)

	assert.Equal(t, "https://profitops.app.n8n.cloud/webhook/profitops-coaching", c.Webhook.DashboardURL())
	assert.Equal(t, "https://profitops.app.n8n.cloud/webhook/profitops-chat", c.Webhook.ChatURL())
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoad_DefaultsOnly(t *testing.T) {
	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "memory", c.Store.Backend)
	assert.False(t, c.Activity.Enabled)
}

func TestSeconds(t *testing.T) {
	assert.Equal(t, 20*time.Second, Seconds(0, 20*time.Second))
	assert.Equal(t, 20*time.Second, Seconds(-3, 20*time.Second))
	assert.Equal(t, 45*time.Second, Seconds(45, 20*time.Second))
}
