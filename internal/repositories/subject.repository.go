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

var ErrNotFound = errors.New("record not found")

// subjectSyncColumns are overwritten when a device re-sends a subject.
// test_count, created_by and deleted_at are owned by the dashboard.
var subjectSyncColumns = []string{
	"name", "id_number", "gender", "birth_date", "age", "height", "weight", "updated_at",
}

type SubjectRepository interface {
	Upsert(ctx context.Context, subject *Subject) error
	Create(ctx context.Context, subject *Subject) error
	Update(ctx context.Context, subject *Subject) error
	SoftDelete(ctx context.Context, ulid string) error
	GetByULID(ctx context.Context, ulid string) (*Subject, error)
	GetIDByULID(ctx context.Context, ulid string) (string, error)
	ListForSync(ctx context.Context, since *time.Time, limit int) ([]*Subject, error)
	List(ctx context.Context, filter SubjectFilter, page Page) ([]*Subject, int64, error)
	RecountTests(ctx context.Context, subjectID string) error
	Count(ctx context.Context) (int64, error)
}

type subjectRepository struct {
	db  database.DB
	log logger.Logger
}

func NewSubject(db database.DB) SubjectRepository {
	return &subjectRepository{
		db:  db,
		log: logger.New("subjectRepository"),
	}
}

func (r *subjectRepository) getDB(ctx context.Context) *gorm.DB {
	if tx, ok := services.GetTransaction(ctx); ok {
		return tx
	}
	return r.db.SQLWithContext(ctx)
}

// Upsert inserts or replaces the device-owned columns of the subject keyed by
// ulid. A soft-deleted subject stays deleted.
func (r *subjectRepository) Upsert(ctx context.Context, subject *Subject) error {
	log := r.log.Function("Upsert")

	err := r.getDB(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "ulid"}},
		DoUpdates: clause.AssignmentColumns(subjectSyncColumns),
	}).Create(subject).Error
	if err != nil {
		return log.Err("failed to upsert subject", err, "ulid", subject.ULID)
	}

	return nil
}

func (r *subjectRepository) Create(ctx context.Context, subject *Subject) error {
	log := r.log.Function("Create")

	if err := r.getDB(ctx).Create(subject).Error; err != nil {
		return log.Err("failed to create subject", err, "ulid", subject.ULID)
	}

	return nil
}

func (r *subjectRepository) Update(ctx context.Context, subject *Subject) error {
	log := r.log.Function("Update")

	err := r.getDB(ctx).Model(subject).Select(subjectSyncColumns).Updates(subject).Error
	if err != nil {
		return log.Err("failed to update subject", err, "ulid", subject.ULID)
	}

	return nil
}

func (r *subjectRepository) SoftDelete(ctx context.Context, ulid string) error {
	log := r.log.Function("SoftDelete")

	result := r.getDB(ctx).Where("ulid = ?", ulid).Delete(&Subject{})
	if result.Error != nil {
		return log.Err("failed to delete subject", result.Error, "ulid", ulid)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

func (r *subjectRepository) GetByULID(ctx context.Context, ulid string) (*Subject, error) {
	log := r.log.Function("GetByULID")

	var subject Subject
	err := r.getDB(ctx).Preload("Creator").Where("ulid = ?", ulid).First(&subject).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, log.Err("failed to get subject", err, "ulid", ulid)
	}

	return &subject, nil
}

// GetIDByULID includes soft-deleted subjects so results still link to them.
func (r *subjectRepository) GetIDByULID(ctx context.Context, ulid string) (string, error) {
	log := r.log.Function("GetIDByULID")

	var ids []string
	err := r.getDB(ctx).Unscoped().Model(&Subject{}).
		Where("ulid = ?", ulid).
		Limit(1).
		Pluck("id", &ids).Error
	if err != nil {
		return "", log.Err("failed to resolve subject ulid", err, "ulid", ulid)
	}
	if len(ids) == 0 {
		return "", ErrNotFound
	}

	return ids[0], nil
}

func (r *subjectRepository) ListForSync(ctx context.Context, since *time.Time, limit int) ([]*Subject, error) {
	log := r.log.Function("ListForSync")

	query := r.getDB(ctx).Order("updated_at DESC").Limit(limit)
	if since != nil {
		query = query.Where("updated_at >= ?", since.UTC())
	}

	var subjects []*Subject
	if err := query.Find(&subjects).Error; err != nil {
		return nil, log.Err("failed to list subjects for sync", err)
	}

	return subjects, nil
}

func (r *subjectRepository) List(ctx context.Context, filter SubjectFilter, page Page) ([]*Subject, int64, error) {
	log := r.log.Function("List")

	query := r.getDB(ctx).Model(&Subject{})
	if filter.Gender != "" {
		query = query.Where("gender = ?", filter.Gender)
	}
	if filter.Keyword != "" {
		like := "%" + filter.Keyword + "%"
		query = query.Where("name LIKE ? OR id_number LIKE ?", like, like)
	}
	if filter.CreatedDate != "" {
		if day, err := time.Parse("2006-01-02", filter.CreatedDate); err == nil {
			query = query.Where("created_at >= ? AND created_at < ?", day, day.AddDate(0, 0, 1))
		}
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, log.Err("failed to count subjects", err)
	}

	var subjects []*Subject
	err := query.Order("created_at DESC").
		Offset(page.Offset()).
		Limit(page.PageSize).
		Find(&subjects).Error
	if err != nil {
		return nil, 0, log.Err("failed to list subjects", err)
	}

	return subjects, total, nil
}

func (r *subjectRepository) RecountTests(ctx context.Context, subjectID string) error {
	log := r.log.Function("RecountTests")

	count := r.getDB(ctx).Model(&TestResult{}).Select("COUNT(*)").Where("subject_id = ?", subjectID)
	err := r.getDB(ctx).Model(&Subject{}).
		Unscoped().
		Where("id = ?", subjectID).
		UpdateColumn("test_count", count).Error
	if err != nil {
		return log.Err("failed to recount subject tests", err, "subjectID", subjectID)
	}

	return nil
}

func (r *subjectRepository) Count(ctx context.Context) (int64, error) {
	var total int64
	if err := r.getDB(ctx).Model(&Subject{}).Count(&total).Error; err != nil {
		return 0, r.log.Function("Count").Err("failed to count subjects", err)
	}
	return total, nil
}
