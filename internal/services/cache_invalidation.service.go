package services

import (
	"context"
	"time"

	"fitadmin/internal/database"
	"fitadmin/internal/events"
	"fitadmin/internal/logger"
)

const (
	StatisticsCacheKey = "statistics"
	DashboardCacheKey  = "dashboard"
)

type CacheInvalidationService struct {
	db       database.DB
	eventBus *events.EventBus
	log      logger.Logger
}

func NewCacheInvalidationService(
	db database.DB,
	eventBus *events.EventBus,
) *CacheInvalidationService {
	return &CacheInvalidationService{
		db:       db,
		eventBus: eventBus,
		log:      logger.New("CacheInvalidationService"),
	}
}

// InvalidateRecords drops cached aggregates after subjects or results change
// and tells connected dashboards what changed.
func (s *CacheInvalidationService) InvalidateRecords(
	ctx context.Context,
	reason string,
	data map[string]any,
) error {
	log := s.log.Function("InvalidateRecords")

	err := database.NewCacheBuilder(s.db.Cache.Statistics, StatisticsCacheKey).
		WithContext(ctx).
		Delete()
	if err != nil {
		log.Warn("failed to invalidate statistics cache", "reason", reason, "error", err)
	}
	if dashErr := database.NewCacheBuilder(s.db.Cache.General, DashboardCacheKey).
		WithContext(ctx).
		Delete(); dashErr != nil {
		log.Warn("failed to invalidate dashboard cache", "reason", reason, "error", dashErr)
	}

	if s.eventBus != nil {
		event := events.Event{
			Type:      reason,
			Channel:   events.ChannelDashboard,
			Data:      data,
			Timestamp: time.Now().UTC(),
		}
		if pubErr := s.eventBus.Publish(events.ChannelDashboard, event); pubErr != nil {
			log.Warn("failed to publish invalidation event", "reason", reason, "error", pubErr)
		}
	}

	return err
}
