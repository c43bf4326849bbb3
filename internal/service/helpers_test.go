package service

import (
	"context"
	"sync"
	"time"

	"profitops-go/internal/model"
	"profitops-go/internal/repository"
	"profitops-go/pkg/webhook"
)

var fixedNow = time.Date(2026, 10, 19, 9, 30, 0, 0, time.UTC)

func fixedClock() time.Time { return fixedNow }

func newMemoryRepo() repository.ConversationRepository {
	return repository.NewConversationRepository(repository.NewMemoryKVStore(), repository.ConversationStoreOptions{})
}

type recordingActivity struct {
	mu         sync.Mutex
	activities []model.Activity
}

func (r *recordingActivity) Record(_ context.Context, a model.Activity) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.activities = append(r.activities, a)
}

func (r *recordingActivity) kinds() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.activities))
	for _, a := range r.activities {
		out = append(out, a.Kind)
	}
	return out
}

type fakeFetcher struct {
	mu      sync.Mutex
	calls   int
	data    *model.DashboardData
	err     error
	entered chan struct{}
	release chan struct{}
}

func (f *fakeFetcher) FetchDashboard(ctx context.Context) (*model.DashboardData, error) {
	f.mu.Lock()
	f.calls++
	data, err := f.data, f.err
	f.mu.Unlock()
	if f.entered != nil {
		f.entered <- struct{}{}
	}
	if f.release != nil {
		<-f.release
	}
	return data, err
}

func (f *fakeFetcher) set(data *model.DashboardData, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data, f.err = data, err
}

func (f *fakeFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeSender struct {
	mu       sync.Mutex
	requests []webhook.ChatRequest
	reply    string
	err      error
	entered  chan struct{}
	release  chan struct{}
}

func (f *fakeSender) SendChat(ctx context.Context, req webhook.ChatRequest) (string, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	reply, err := f.reply, f.err
	f.mu.Unlock()
	if f.entered != nil {
		f.entered <- struct{}{}
	}
	if f.release != nil {
		<-f.release
	}
	return reply, err
}

func (f *fakeSender) lastRequest() webhook.ChatRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[len(f.requests)-1]
}

type staticSnapshot struct {
	data *model.DashboardData
}

func (s staticSnapshot) Latest() (*model.DashboardData, time.Time) {
	return s.data, fixedNow
}
