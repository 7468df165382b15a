package repositories

import (
	"context"

	"fitadmin/internal/database"
	"fitadmin/internal/logger"
	. "fitadmin/internal/models"
	"fitadmin/internal/services"

	"gorm.io/gorm"
)

// SyncLogRepository is append-only.
type SyncLogRepository interface {
	Create(ctx context.Context, syncLog *SyncLog) error
	List(ctx context.Context, page Page) ([]*SyncLog, int64, error)
}

type syncLogRepository struct {
	db  database.DB
	log logger.Logger
}

func NewSyncLog(db database.DB) SyncLogRepository {
	return &syncLogRepository{
		db:  db,
		log: logger.New("syncLogRepository"),
	}
}

func (r *syncLogRepository) getDB(ctx context.Context) *gorm.DB {
	if tx, ok := services.GetTransaction(ctx); ok {
		return tx
	}
	return r.db.SQLWithContext(ctx)
}

func (r *syncLogRepository) Create(ctx context.Context, syncLog *SyncLog) error {
	log := r.log.Function("Create")

	if err := r.getDB(ctx).Create(syncLog).Error; err != nil {
		return log.Err("failed to create sync log", err, "syncType", syncLog.SyncType, "status", syncLog.Status)
	}

	return nil
}

func (r *syncLogRepository) List(ctx context.Context, page Page) ([]*SyncLog, int64, error) {
	log := r.log.Function("List")

	var total int64
	if err := r.getDB(ctx).Model(&SyncLog{}).Count(&total).Error; err != nil {
		return nil, 0, log.Err("failed to count sync logs", err)
	}

	var syncLogs []*SyncLog
	err := r.getDB(ctx).
		Order("synced_at DESC").
		Offset(page.Offset()).
		Limit(page.PageSize).
		Find(&syncLogs).Error
	if err != nil {
		return nil, 0, log.Err("failed to list sync logs", err)
	}

	return syncLogs, total, nil
}
