package repositories

import (
	"context"
	"errors"
	"time"

	"fitadmin/internal/database"
	"fitadmin/internal/logger"
	. "fitadmin/internal/models"
	"fitadmin/internal/services"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// testResultSyncColumns are replaced on a repeated sync of the same ulid.
var testResultSyncColumns = []string{
	"subject_id", "subject_ulid", "test_type", "test_name", "result_value", "result_unit",
	"hls_stream_name", "hls_start_time", "hls_end_time", "device_id", "tested_at",
	"synced_at", "raw_data", "updated_at",
}

type TestResultRepository interface {
	Upsert(ctx context.Context, result *TestResult) error
	GetByULID(ctx context.Context, ulid string) (*TestResult, error)
	ListForSync(ctx context.Context, subjectULID string, since *time.Time, limit int) ([]*TestResult, error)
	List(ctx context.Context, filter TestResultFilter, page Page) ([]*TestResult, int64, error)
	ListBySubject(ctx context.Context, subjectID, subjectULID string) ([]TestResult, error)
	LinkSubject(ctx context.Context, subjectID, subjectULID string) (int64, error)
	Count(ctx context.Context) (int64, error)
}

type testResultRepository struct {
	db  database.DB
	log logger.Logger
}

func NewTestResult(db database.DB) TestResultRepository {
	return &testResultRepository{
		db:  db,
		log: logger.New("testResultRepository"),
	}
}

func (r *testResultRepository) getDB(ctx context.Context) *gorm.DB {
	if tx, ok := services.GetTransaction(ctx); ok {
		return tx
	}
	return r.db.SQLWithContext(ctx)
}

func (r *testResultRepository) Upsert(ctx context.Context, result *TestResult) error {
	log := r.log.Function("Upsert")

	err := r.getDB(ctx).Omit(clause.Associations).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "ulid"}},
		DoUpdates: clause.AssignmentColumns(testResultSyncColumns),
	}).Create(result).Error
	if err != nil {
		return log.Err("failed to upsert test result", err, "ulid", result.ULID)
	}

	return nil
}

func (r *testResultRepository) GetByULID(ctx context.Context, ulid string) (*TestResult, error) {
	log := r.log.Function("GetByULID")

	var result TestResult
	err := r.getDB(ctx).Preload("Subject").Where("ulid = ?", ulid).First(&result).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, log.Err("failed to get test result", err, "ulid", ulid)
	}

	return &result, nil
}

func (r *testResultRepository) ListForSync(
	ctx context.Context,
	subjectULID string,
	since *time.Time,
	limit int,
) ([]*TestResult, error) {
	log := r.log.Function("ListForSync")

	query := r.getDB(ctx).Order("tested_at DESC").Limit(limit)
	if subjectULID != "" {
		query = query.Where("subject_ulid = ?", subjectULID)
	}
	if since != nil {
		query = query.Where("synced_at >= ?", since.UTC())
	}

	var results []*TestResult
	if err := query.Find(&results).Error; err != nil {
		return nil, log.Err("failed to list test results for sync", err)
	}

	return results, nil
}

func (r *testResultRepository) List(ctx context.Context, filter TestResultFilter, page Page) ([]*TestResult, int64, error) {
	log := r.log.Function("List")

	query := r.getDB(ctx).Model(&TestResult{})
	if filter.TestType != "" {
		query = query.Where("test_type = ?", filter.TestType)
	}
	if filter.SubjectULID != "" {
		query = query.Where("subject_ulid = ?", filter.SubjectULID)
	}
	if filter.DateFrom != nil {
		query = query.Where("tested_at >= ?", filter.DateFrom.UTC())
	}
	if filter.DateTo != nil {
		query = query.Where("tested_at <= ?", filter.DateTo.UTC())
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, log.Err("failed to count test results", err)
	}

	var results []*TestResult
	err := query.Preload("Subject").
		Order("tested_at DESC").
		Offset(page.Offset()).
		Limit(page.PageSize).
		Find(&results).Error
	if err != nil {
		return nil, 0, log.Err("failed to list test results", err)
	}

	return results, total, nil
}

// ListBySubject matches on either key since devices may sync results before
// the subject they reference.
func (r *testResultRepository) ListBySubject(ctx context.Context, subjectID, subjectULID string) ([]TestResult, error) {
	log := r.log.Function("ListBySubject")

	var results []TestResult
	err := r.getDB(ctx).
		Where("subject_id = ? OR subject_ulid = ?", subjectID, subjectULID).
		Order("tested_at DESC").
		Find(&results).Error
	if err != nil {
		return nil, log.Err("failed to list subject test results", err, "subjectULID", subjectULID)
	}

	return results, nil
}

// LinkSubject fills in subject_id on results that arrived before their
// subject.
func (r *testResultRepository) LinkSubject(ctx context.Context, subjectID, subjectULID string) (int64, error) {
	log := r.log.Function("LinkSubject")

	result := r.getDB(ctx).Model(&TestResult{}).
		Where("subject_ulid = ? AND subject_id IS NULL", subjectULID).
		UpdateColumn("subject_id", subjectID)
	if result.Error != nil {
		return 0, log.Err("failed to link orphaned test results", result.Error, "subjectULID", subjectULID)
	}

	return result.RowsAffected, nil
}

func (r *testResultRepository) Count(ctx context.Context) (int64, error) {
	var total int64
	if err := r.getDB(ctx).Model(&TestResult{}).Count(&total).Error; err != nil {
		return 0, r.log.Function("Count").Err("failed to count test results", err)
	}
	return total, nil
}
