package models

import (
	"time"

	"gorm.io/gorm"
)

type SyncSource string

const (
	SyncSourceDevice   SyncSource = "android_app"
	SyncSourceWebAdmin SyncSource = "web_admin"
)

type SyncType string

const (
	SyncTypeSubjects    SyncType = "subjects"
	SyncTypeTestResults SyncType = "test_results"
	SyncTypeFull        SyncType = "full"
)

type SyncStatus string

const (
	SyncStatusSuccess SyncStatus = "success"
	SyncStatusPartial SyncStatus = "partial"
	SyncStatusFailed  SyncStatus = "failed"
)

// SyncStatusFor derives the batch status from the error count. An empty batch
// has no errors and is a success.
func SyncStatusFor(errorCount, total int) SyncStatus {
	switch {
	case errorCount == 0:
		return SyncStatusSuccess
	case errorCount < total:
		return SyncStatusPartial
	default:
		return SyncStatusFailed
	}
}

// SyncLog is append-only: one row per batch call.
type SyncLog struct {
	ID            string     `gorm:"type:varchar(64);primaryKey"             json:"id"`
	Source        SyncSource `gorm:"type:varchar(20);not null"               json:"source"`
	DeviceID      *string    `gorm:"column:device_id;type:varchar(64)"       json:"device_id,omitempty"`
	SyncType      SyncType   `gorm:"column:sync_type;type:varchar(20);not null" json:"sync_type"`
	RecordsSynced int        `gorm:"column:records_synced;not null"          json:"records_synced"`
	Status        SyncStatus `gorm:"type:varchar(10);not null"               json:"status"`
	ErrorMessage  *string    `gorm:"column:error_message;type:text"          json:"error_message,omitempty"`
	SyncedAt      time.Time  `gorm:"column:synced_at;not null;index"         json:"synced_at"`
}

func (s *SyncLog) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = NewID()
	}
	return nil
}

// RecordError is one per-record failure inside a batch.
type RecordError struct {
	ULID  string `json:"ulid"`
	Error string `json:"error"`
}

type SyncSubjectItem struct {
	ULID      string   `json:"ulid"       validate:"required,max=26"`
	Name      string   `json:"name"       validate:"required,max=255"`
	IDNumber  *string  `json:"id_number"  validate:"omitempty,max=32"`
	Gender    *string  `json:"gender"     validate:"omitempty,oneof=male female"`
	BirthDate *string  `json:"birth_date"`
	Age       *int     `json:"age"        validate:"omitempty,min=0,max=150"`
	Height    *float64 `json:"height"`
	Weight    *float64 `json:"weight"`
}

type SyncResultItem struct {
	ULID          string   `json:"ulid"            validate:"required,max=26"`
	SubjectULID   string   `json:"subject_ulid"    validate:"max=26"`
	TestType      string   `json:"test_type"       validate:"required,testtype"`
	TestName      *string  `json:"test_name"`
	ResultValue   float64  `json:"result_value"`
	ResultUnit    string   `json:"result_unit"`
	HLSStreamName *string  `json:"hls_stream_name"`
	HLSStartTime  *string  `json:"hls_start_time"`
	HLSEndTime    *string  `json:"hls_end_time"`
	DeviceID      *string  `json:"device_id"`
	TestedAt      string   `json:"tested_at"       validate:"required"`
}

type SyncResponse struct {
	Success bool          `json:"success"`
	Synced  int           `json:"synced"`
	Total   int           `json:"total"`
	Errors  []RecordError `json:"errors,omitempty"`
}
