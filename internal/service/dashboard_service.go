package service

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/singleflight"

	"profitops-go/internal/model"
	"profitops-go/pkg/format"
	"profitops-go/pkg/log"
	"profitops-go/pkg/webhook"
)

const priorityDealCount = 5

// DashboardFetcher 是仪表盘 webhook 的最小依赖。
type DashboardFetcher interface {
	FetchDashboard(ctx context.Context) (*model.DashboardData, error)
}

// DashboardService 维护最近一次成功拉取的 pipeline 快照。
type DashboardService interface {
	// Refresh 拉取最新快照；并发调用会合并为一次请求。
	Refresh(ctx context.Context) (*model.DashboardData, error)
	// Latest 返回最近一次成功的快照，尚未成功拉取时为 nil。
	Latest() (*model.DashboardData, time.Time)
	// Current 返回最近的快照，没有快照时先拉取一次。
	Current(ctx context.Context) (*model.DashboardData, time.Time, error)
	// StartAutoRefresh 按 cron 表达式定时调用 Refresh，返回的函数用于停止。
	StartAutoRefresh(spec string) (func(), error)
}

type dashboardService struct {
	fetcher  DashboardFetcher
	activity ActivityRecorder
	now      func() time.Time

	group singleflight.Group

	mu          sync.RWMutex
	latest      *model.DashboardData
	lastUpdated time.Time
}

// NewDashboardService 创建一个新的 DashboardService 实例。
func NewDashboardService(fetcher DashboardFetcher, activity ActivityRecorder) DashboardService {
	if activity == nil {
		activity = NopRecorder{}
	}
	return &dashboardService{fetcher: fetcher, activity: activity, now: time.Now}
}

func (s *dashboardService) Refresh(ctx context.Context) (*model.DashboardData, error) {
	v, err, _ := s.group.Do("dashboard", func() (interface{}, error) {
		// 合并的调用方共享这次请求，不因单个调用方取消而中断
		data, err := s.fetcher.FetchDashboard(context.WithoutCancel(ctx))
		s.activity.Record(ctx, refreshActivity(data, err))
		if err != nil {
			return nil, err
		}
		s.mu.Lock()
		s.latest = data
		s.lastUpdated = s.now()
		s.mu.Unlock()
		return data, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*model.DashboardData), nil
}

func (s *dashboardService) Latest() (*model.DashboardData, time.Time) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest, s.lastUpdated
}

func (s *dashboardService) Current(ctx context.Context) (*model.DashboardData, time.Time, error) {
	if data, at := s.Latest(); data != nil {
		return data, at, nil
	}
	if _, err := s.Refresh(ctx); err != nil {
		return nil, time.Time{}, err
	}
	data, at := s.Latest()
	return data, at, nil
}

func (s *dashboardService) StartAutoRefresh(spec string) (func(), error) {
	c := cron.New()
	_, err := c.AddFunc(spec, func() {
		if _, err := s.Refresh(context.Background()); err != nil {
			log.Warnf("自动刷新仪表盘失败: %v", err)
			return
		}
		log.Info("仪表盘数据已自动刷新")
	})
	if err != nil {
		return nil, fmt.Errorf("invalid refresh spec %q: %w", spec, err)
	}
	c.Start()
	return func() {
		<-c.Stop().Done()
	}, nil
}

func refreshActivity(data *model.DashboardData, err error) model.Activity {
	a := model.Activity{Kind: model.ActivityDashboardRefresh, Success: err == nil}
	if err != nil {
		a.Detail = err.Error()
		return a
	}
	a.Subject = fmt.Sprintf("%d deals abiertos, %d con acción inmediata", data.DealsAbiertos, len(data.AccionInmediata))
	return a
}

// DealView 是界面展示用的 deal。
type DealView struct {
	model.Deal
	Color         string `json:"color"`
	ValueIMRShort string `json:"value_imr_short"`
	ValueVTCShort string `json:"value_vtc_short,omitempty"`
}

// DashboardSummary 是仪表盘卡片所需的派生数据。
type DashboardSummary struct {
	PipelineTotal   string     `json:"pipeline_total"`
	GanadoMes       string     `json:"ganado_mes"`
	Objetivo        string     `json:"objetivo"`
	ObjetivoFull    string     `json:"objetivo_full"`
	ProgressPercent int        `json:"progress_percent"`
	PriorityDeals   []DealView `json:"priority_deals"`
	AccionInmediata []DealView `json:"accion_inmediata"`
}

// Summary 计算仪表盘卡片的展示数据。
func Summary(data *model.DashboardData) DashboardSummary {
	if data == nil {
		data = &model.DashboardData{}
	}
	target := data.Target()
	sum := DashboardSummary{
		PipelineTotal:   format.CurrencyShort(data.PipelineGeneradoIMR),
		GanadoMes:       format.CurrencyShort(data.GanadoIMRMes),
		Objetivo:        format.CurrencyShort(target),
		ObjetivoFull:    format.Currency(target),
		ProgressPercent: int(math.Round(data.GanadoIMRMes / target * 100)),
		AccionInmediata: make([]DealView, 0, len(data.AccionInmediata)),
	}
	for _, d := range data.AccionInmediata {
		sum.AccionInmediata = append(sum.AccionInmediata, dealView(d))
	}
	n := len(sum.AccionInmediata)
	if n > priorityDealCount {
		n = priorityDealCount
	}
	sum.PriorityDeals = sum.AccionInmediata[:n]
	return sum
}

func dealView(d model.Deal) DealView {
	v := DealView{Deal: d, Color: d.Estado.Color(), ValueIMRShort: format.CurrencyShort(d.ValueIMR)}
	if d.ValueVTC != 0 && d.ValueVTC != d.ValueIMR {
		v.ValueVTCShort = format.CurrencyShort(d.ValueVTC)
	}
	return v
}

// 保证 webhook.Client 满足 DashboardFetcher。
var _ DashboardFetcher = webhook.Client(nil)
