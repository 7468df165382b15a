package statisticsController

import (
	"context"
	"errors"
	"sort"
	"time"

	"fitadmin/internal/database"
	"fitadmin/internal/logger"
	"fitadmin/internal/metrics"
	. "fitadmin/internal/models"
	"fitadmin/internal/repositories"
	"fitadmin/internal/services"
	"fitadmin/internal/utils"
)

const (
	dateLayout     = "2006-01-02"
	dayLabelLayout = "01/02"
	DefaultRange   = 30 * 24 * time.Hour
	CacheTTL       = 5 * time.Minute
	DashboardTTL   = time.Minute
)

var ErrInvalidRange = errors.New("invalid date range")

var riskLevels = []RiskLevel{RiskLevelLow, RiskLevelModerate, RiskLevelHigh}

type StatisticsController struct {
	statisticsRepo repositories.StatisticsRepository
	subjectRepo    repositories.SubjectRepository
	testResultRepo repositories.TestResultRepository
	memberRepo     repositories.MemberRepository
	syncLogRepo    repositories.SyncLogRepository
	cache          database.CacheClient
	dashboardCache database.CacheClient
	location       *time.Location
	now            func() time.Time
	log            logger.Logger
}

func New(
	statisticsRepo repositories.StatisticsRepository,
	subjectRepo repositories.SubjectRepository,
	testResultRepo repositories.TestResultRepository,
	memberRepo repositories.MemberRepository,
	syncLogRepo repositories.SyncLogRepository,
	cache database.CacheClient,
	location *time.Location,
) *StatisticsController {
	if location == nil {
		location = time.UTC
	}
	return &StatisticsController{
		statisticsRepo: statisticsRepo,
		subjectRepo:    subjectRepo,
		testResultRepo: testResultRepo,
		memberRepo:     memberRepo,
		syncLogRepo:    syncLogRepo,
		cache:          cache,
		location:       location,
		now:            time.Now,
		log:            logger.New("StatisticsController"),
	}
}

// WithDashboardCache keeps the dashboard counters in client for DashboardTTL.
func (sc *StatisticsController) WithDashboardCache(client database.CacheClient) *StatisticsController {
	sc.dashboardCache = client
	return sc
}

func (sc *StatisticsController) WithClock(now func() time.Time) *StatisticsController {
	sc.now = now
	return sc
}

// GetStatistics aggregates tests between two calendar dates in the display
// timezone. Both bounds are inclusive; empty bounds default to the last 30
// days.
func (sc *StatisticsController) GetStatistics(ctx context.Context, from, to string) (Statistics, error) {
	log := sc.log.Function("GetStatistics")

	start, end, err := sc.dateRange(from, to)
	if err != nil {
		return Statistics{}, err
	}

	field := start.Format(dateLayout) + ":" + end.Format(dateLayout)
	cache := database.NewCacheBuilder(sc.cache, services.StatisticsCacheKey).
		WithContext(ctx).
		WithHashField(field)

	var cached Statistics
	found, err := cache.Get(&cached)
	if err != nil {
		log.Warn("failed to read statistics cache", "field", field, "error", err)
	}
	metrics.RecordStatisticsCache(found)
	if found {
		return cached, nil
	}

	stats, err := sc.compute(ctx, start, utils.EndOfDay(end))
	if err != nil {
		return Statistics{}, log.Err("failed to compute statistics", err, "from", from, "to", to)
	}

	if err := cache.WithStruct(stats).WithTTL(CacheTTL).Set(); err != nil {
		log.Warn("failed to cache statistics", "field", field, "error", err)
	}

	return stats, nil
}

func (sc *StatisticsController) dateRange(from, to string) (time.Time, time.Time, error) {
	today := startOfDay(sc.now().In(sc.location))

	end := today
	if to != "" {
		parsed, err := time.ParseInLocation(dateLayout, to, sc.location)
		if err != nil {
			return time.Time{}, time.Time{}, ErrInvalidRange
		}
		end = parsed
	}

	start := startOfDay(end.Add(-DefaultRange))
	if from != "" {
		parsed, err := time.ParseInLocation(dateLayout, from, sc.location)
		if err != nil {
			return time.Time{}, time.Time{}, ErrInvalidRange
		}
		start = parsed
	}

	if start.After(end) {
		return time.Time{}, time.Time{}, ErrInvalidRange
	}
	return start, end, nil
}

func (sc *StatisticsController) compute(ctx context.Context, start, end time.Time) (Statistics, error) {
	stats := Statistics{
		From:          start.Format(dateLayout),
		To:            end.Format(dateLayout),
		TestsByType:   []TypeCount{},
		TestsByDay:    []DayCount{},
		AverageScores: []TypeAverage{},
	}

	totalSubjects, err := sc.subjectRepo.Count(ctx)
	if err != nil {
		return Statistics{}, err
	}
	stats.TotalSubjects = totalSubjects

	aggregates, err := sc.statisticsRepo.TypeAggregates(ctx, start, end)
	if err != nil {
		return Statistics{}, err
	}
	for _, agg := range aggregates {
		name := agg.TestType.DisplayName()
		stats.TotalTests += agg.Count
		stats.TestsByType = append(stats.TestsByType, TypeCount{Type: agg.TestType, Name: name, Count: agg.Count})
		stats.AverageScores = append(stats.AverageScores, TypeAverage{Type: agg.TestType, Name: name, Average: agg.Average})
	}

	instants, err := sc.statisticsRepo.TestedAt(ctx, start, end)
	if err != nil {
		return Statistics{}, err
	}
	stats.TestsByDay = bucketByDay(instants, sc.location)

	risks, err := sc.statisticsRepo.RiskDistribution(ctx, start, end)
	if err != nil {
		return Statistics{}, err
	}
	stats.SPPBDistribution = fillRiskLevels(risks)

	return stats, nil
}

func bucketByDay(instants []time.Time, location *time.Location) []DayCount {
	counts := make(map[string]int64)
	for _, instant := range instants {
		counts[instant.In(location).Format(dayLabelLayout)]++
	}

	days := make([]DayCount, 0, len(counts))
	for date, count := range counts {
		days = append(days, DayCount{Date: date, Count: count})
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Date < days[j].Date })
	return days
}

// fillRiskLevels always reports the three known levels, in severity order.
func fillRiskLevels(rows []RiskCount) []RiskCount {
	counts := make(map[RiskLevel]int64, len(rows))
	for _, row := range rows {
		counts[row.Level] += row.Count
	}

	distribution := make([]RiskCount, 0, len(riskLevels))
	for _, level := range riskLevels {
		distribution = append(distribution, RiskCount{Level: level, Count: counts[level]})
	}
	return distribution
}

func (sc *StatisticsController) Dashboard(ctx context.Context) (DashboardSummary, error) {
	log := sc.log.Function("Dashboard")

	cache := database.NewCacheBuilder(sc.dashboardCache, services.DashboardCacheKey).WithContext(ctx)

	var cached DashboardSummary
	found, err := cache.Get(&cached)
	if err != nil {
		log.Warn("failed to read dashboard cache", "error", err)
	}
	if found {
		return cached, nil
	}

	members, err := sc.memberRepo.Count(ctx)
	if err != nil {
		return DashboardSummary{}, log.Err("failed to count members", err)
	}
	subjects, err := sc.subjectRepo.Count(ctx)
	if err != nil {
		return DashboardSummary{}, log.Err("failed to count subjects", err)
	}
	tests, err := sc.testResultRepo.Count(ctx)
	if err != nil {
		return DashboardSummary{}, log.Err("failed to count test results", err)
	}

	summary := DashboardSummary{Members: members, Subjects: subjects, Tests: tests}
	if err := cache.WithStruct(summary).WithTTL(DashboardTTL).Set(); err != nil {
		log.Warn("failed to cache dashboard", "error", err)
	}

	return summary, nil
}

func (sc *StatisticsController) SyncLogs(ctx context.Context, page Page) (Paginated[*SyncLog], error) {
	log := sc.log.Function("SyncLogs")

	logs, total, err := sc.syncLogRepo.List(ctx, page)
	if err != nil {
		return Paginated[*SyncLog]{}, log.Err("failed to list sync logs", err)
	}

	return NewPaginated(logs, total, page), nil
}

func (sc *StatisticsController) TestTypes() []TestTypeInfo {
	return TestTypes
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
