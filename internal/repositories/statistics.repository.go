package repositories

import (
	"context"
	"time"

	"fitadmin/internal/database"
	"fitadmin/internal/logger"
	. "fitadmin/internal/models"
	"fitadmin/internal/services"

	"gorm.io/gorm"
)

type TypeAggregate struct {
	TestType TestType
	Count    int64
	Average  float64
}

// StatisticsRepository reads aggregates over a [from, to] tested_at range.
type StatisticsRepository interface {
	TypeAggregates(ctx context.Context, from, to time.Time) ([]TypeAggregate, error)
	TestedAt(ctx context.Context, from, to time.Time) ([]time.Time, error)
	RiskDistribution(ctx context.Context, from, to time.Time) ([]RiskCount, error)
}

type statisticsRepository struct {
	db  database.DB
	log logger.Logger
}

func NewStatistics(db database.DB) StatisticsRepository {
	return &statisticsRepository{
		db:  db,
		log: logger.New("statisticsRepository"),
	}
}

func (r *statisticsRepository) getDB(ctx context.Context) *gorm.DB {
	if tx, ok := services.GetTransaction(ctx); ok {
		return tx
	}
	return r.db.SQLWithContext(ctx)
}

func (r *statisticsRepository) TypeAggregates(ctx context.Context, from, to time.Time) ([]TypeAggregate, error) {
	log := r.log.Function("TypeAggregates")

	var rows []TypeAggregate
	err := r.getDB(ctx).Model(&TestResult{}).
		Select("test_type, COUNT(*) AS count, AVG(result_value) AS average").
		Where("tested_at >= ? AND tested_at <= ?", from.UTC(), to.UTC()).
		Group("test_type").
		Order("test_type").
		Scan(&rows).Error
	if err != nil {
		return nil, log.Err("failed to aggregate test results by type", err)
	}

	return rows, nil
}

// TestedAt returns raw instants; day bucketing happens in the caller's
// display timezone.
func (r *statisticsRepository) TestedAt(ctx context.Context, from, to time.Time) ([]time.Time, error) {
	log := r.log.Function("TestedAt")

	var instants []time.Time
	err := r.getDB(ctx).Model(&TestResult{}).
		Where("tested_at >= ? AND tested_at <= ?", from.UTC(), to.UTC()).
		Pluck("tested_at", &instants).Error
	if err != nil {
		return nil, log.Err("failed to list tested_at instants", err)
	}

	return instants, nil
}

func (r *statisticsRepository) RiskDistribution(ctx context.Context, from, to time.Time) ([]RiskCount, error) {
	log := r.log.Function("RiskDistribution")

	var rows []RiskCount
	err := r.getDB(ctx).Model(&SPPBAssessment{}).
		Select("risk_level AS level, COUNT(*) AS count").
		Where("assessed_at >= ? AND assessed_at <= ?", from.UTC(), to.UTC()).
		Where("risk_level IS NOT NULL").
		Group("risk_level").
		Scan(&rows).Error
	if err != nil {
		return nil, log.Err("failed to aggregate risk levels", err)
	}

	return rows, nil
}
