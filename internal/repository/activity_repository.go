package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"profitops-go/internal/model"
)

const defaultActivityLimit = 100

// ActivityRepository 定义了活动历史的存取接口。
type ActivityRepository interface {
	Create(ctx context.Context, activity *model.Activity) error
	List(ctx context.Context, kind string, limit int) ([]model.Activity, error)
}

type activityRepository struct {
	db *gorm.DB
}

// NewActivityRepository 创建一个新的 ActivityRepository 实例。
func NewActivityRepository(db *gorm.DB) ActivityRepository {
	return &activityRepository{db: db}
}

// Create 追加一条活动记录。
func (r *activityRepository) Create(ctx context.Context, activity *model.Activity) error {
	if err := r.db.WithContext(ctx).Create(activity).Error; err != nil {
		return fmt.Errorf("failed to create activity: %w", err)
	}
	return nil
}

// List 按时间倒序返回活动，kind 为空时不过滤。
func (r *activityRepository) List(ctx context.Context, kind string, limit int) ([]model.Activity, error) {
	if limit <= 0 || limit > 500 {
		limit = defaultActivityLimit
	}
	var activities []model.Activity
	q := r.db.WithContext(ctx).Order("created_at DESC").Order("id DESC").Limit(limit)
	if kind != "" {
		q = q.Where("kind = ?", kind)
	}
	if err := q.Find(&activities).Error; err != nil {
		return nil, fmt.Errorf("failed to list activities: %w", err)
	}
	return activities, nil
}
