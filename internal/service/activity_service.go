// Package service 包含了应用的业务逻辑层。
package service

import (
	"context"

	"profitops-go/internal/model"
	"profitops-go/internal/repository"
	"profitops-go/pkg/log"
)

// ActivityRecorder 记录活动历史。实现不得影响触发它的操作。
type ActivityRecorder interface {
	Record(ctx context.Context, activity model.Activity)
}

// NopRecorder 在活动历史关闭时使用。
type NopRecorder struct{}

func (NopRecorder) Record(context.Context, model.Activity) {}

// ActivityService 定义了活动历史的查询与直接写入。
type ActivityService interface {
	ActivityRecorder
	List(ctx context.Context, kind string, limit int) ([]model.Activity, error)
}

type activityService struct {
	repo repository.ActivityRepository
}

// NewActivityService 创建一个直接写库的 ActivityService。
func NewActivityService(repo repository.ActivityRepository) ActivityService {
	return &activityService{repo: repo}
}

func (s *activityService) Record(ctx context.Context, activity model.Activity) {
	// 即使请求已结束也要落库
	if err := s.repo.Create(context.WithoutCancel(ctx), &activity); err != nil {
		log.Errorf("Failed to record activity %s: %v", activity.Kind, err)
	}
}

func (s *activityService) List(ctx context.Context, kind string, limit int) ([]model.Activity, error) {
	return s.repo.List(ctx, kind, limit)
}

// truncate 限制写入活动摘要的长度。
func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max]) + "…"
}
