// Package webhook provides the clients for the n8n automation webhooks that
// back the dashboard and the sales coach.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"profitops-go/internal/config"
	"profitops-go/internal/model"
	"profitops-go/pkg/log"
)

const (
	// MaxHistory is the number of prior messages forwarded with each chat call.
	MaxHistory = 10

	maxBodyBytes = 10 << 20
)

// Client defines the two webhook operations. Every call is independent; the
// client keeps no conversational state.
type Client interface {
	// FetchDashboard performs one GET against the dashboard webhook and returns
	// a fully defaulted snapshot.
	FetchDashboard(ctx context.Context) (*model.DashboardData, error)
	// SendChat posts one message with its history and returns the response text.
	SendChat(ctx context.Context, req ChatRequest) (string, error)
}

// ChatRequest is the body posted to the chat webhook.
type ChatRequest struct {
	Message      string               `json:"message"`
	History      []model.ChatMessage  `json:"history"`
	System       string               `json:"system"`
	PipelineData *model.DashboardData `json:"pipelineData,omitempty"`
}

type n8nClient struct {
	dashboardURL string
	chatURL      string
	dashboard    *http.Client
	chat         *http.Client
}

// NewClient creates a webhook client from the webhook config.
func NewClient(cfg config.WebhookConfig) Client {
	return &n8nClient{
		dashboardURL: cfg.DashboardURL(),
		chatURL:      cfg.ChatURL(),
		dashboard:    &http.Client{Timeout: config.Seconds(cfg.DashboardTimeout, 20*time.Second)},
		chat:         &http.Client{Timeout: config.Seconds(cfg.ChatTimeout, 60*time.Second)},
	}
}

func (c *n8nClient) FetchDashboard(ctx context.Context) (*model.DashboardData, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.dashboardURL, nil)
	if err != nil {
		return nil, &FetchError{Err: fmt.Errorf("failed to create dashboard request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.dashboard.Do(req)
	if err != nil {
		log.Errorf("Error fetching dashboard data: %v", err)
		return nil, &FetchError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		log.Errorf("dashboard webhook returned status %s", resp.Status)
		return nil, &FetchError{StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, &FetchError{Err: fmt.Errorf("failed to read dashboard body: %w", err)}
	}
	data, err := ParseDashboard(body)
	if err != nil {
		return nil, &FetchError{Err: err}
	}
	return data, nil
}

func (c *n8nClient) SendChat(ctx context.Context, chatReq ChatRequest) (string, error) {
	if len(chatReq.History) > MaxHistory {
		chatReq.History = chatReq.History[len(chatReq.History)-MaxHistory:]
	}
	if chatReq.History == nil {
		chatReq.History = []model.ChatMessage{}
	}

	reqBytes, err := json.Marshal(chatReq)
	if err != nil {
		return "", &SendError{Err: fmt.Errorf("failed to marshal chat request: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.chatURL, bytes.NewReader(reqBytes))
	if err != nil {
		return "", &SendError{Err: fmt.Errorf("failed to create chat request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.chat.Do(req)
	if err != nil {
		log.Errorf("Error sending chat message: %v", err)
		return "", &SendError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		log.Errorf("chat webhook returned status %s", resp.Status)
		return "", &SendError{StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", &SendError{Err: fmt.Errorf("failed to read chat body: %w", err)}
	}
	return ExtractResponseText(body), nil
}
