package service

import (
	"context"
	"sync"
	"time"

	"crm-web/internal/config"
	"crm-web/internal/models"
	"crm-web/internal/monitor"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// SummarySource is satisfied by *crmapi.Client.
type SummarySource interface {
	GetFinOpsSummary(ctx context.Context) (*models.FinOpsSummary, error)
	GetActivitySummary(ctx context.Context) (*models.ActivitySummary, error)
}

// DashboardService owns the FinOps and activity pollers.
type DashboardService struct {
	finops   *monitor.Poller[models.FinOpsSummary]
	activity *monitor.Poller[models.ActivitySummary]
	logger   *logrus.Logger
}

func NewDashboardService(source SummarySource, cache *redis.Client, cfg *config.Config, logger *logrus.Logger) *DashboardService {
	finops := monitor.NewPoller("finops", cfg.FinOpsPollInterval,
		func(ctx context.Context) (models.FinOpsSummary, error) {
			s, err := source.GetFinOpsSummary(ctx)
			if err != nil {
				return models.FinOpsSummary{}, err
			}
			s.LastRefreshed = time.Now()
			return *s, nil
		},
		func() models.FinOpsSummary {
			return models.FinOpsSummary{LastRefreshed: time.Now(), Stale: true}
		},
		cache, logger)

	activity := monitor.NewPoller("activity", cfg.ActivityPollInterval,
		func(ctx context.Context) (models.ActivitySummary, error) {
			s, err := source.GetActivitySummary(ctx)
			if err != nil {
				return models.ActivitySummary{}, err
			}
			if s.Items == nil {
				s.Items = []models.ActivityItem{}
			}
			s.LastRefreshed = time.Now()
			return *s, nil
		},
		func() models.ActivitySummary {
			return models.ActivitySummary{Items: []models.ActivityItem{}, LastRefreshed: time.Now(), Stale: true}
		},
		cache, logger)

	return &DashboardService{finops: finops, activity: activity, logger: logger}
}

// Start runs both pollers until ctx is cancelled. The returned WaitGroup is
// done once both have stopped.
func (s *DashboardService) Start(ctx context.Context) *sync.WaitGroup {
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		s.finops.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		s.activity.Run(ctx)
	}()
	s.logger.Info("Dashboard pollers started")
	return &wg
}

func (s *DashboardService) FinOps() models.FinOpsSummary {
	return s.finops.Latest()
}

func (s *DashboardService) Activity() models.ActivitySummary {
	return s.activity.Latest()
}

// Refresh forces an immediate tick of both pollers.
func (s *DashboardService) Refresh(ctx context.Context) {
	s.finops.Refresh(ctx)
	s.activity.Refresh(ctx)
}
