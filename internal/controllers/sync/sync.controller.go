package syncController

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"fitadmin/internal/events"
	"fitadmin/internal/logger"
	"fitadmin/internal/metrics"
	. "fitadmin/internal/models"
	"fitadmin/internal/repositories"
	"fitadmin/internal/services"
	"fitadmin/internal/utils"
	"fitadmin/internal/validation"

	"github.com/goccy/go-json"
)

const (
	DefaultListLimit = 100
	MaxListLimit     = 1000
)

var ErrMalformedBatch = errors.New("invalid request format")

// Batch is a decoded envelope. Records stay raw until each is reconciled so
// one bad record cannot fail the whole call.
type Batch struct {
	DeviceID *string
	Subjects []json.RawMessage
	Results  []json.RawMessage
}

type SyncController struct {
	subjectRepo        repositories.SubjectRepository
	testResultRepo     repositories.TestResultRepository
	syncLogRepo        repositories.SyncLogRepository
	transactionService *services.TransactionService
	cacheInvalidation  *services.CacheInvalidationService
	now                func() time.Time
	log                logger.Logger
}

func New(
	subjectRepo repositories.SubjectRepository,
	testResultRepo repositories.TestResultRepository,
	syncLogRepo repositories.SyncLogRepository,
	transactionService *services.TransactionService,
	cacheInvalidation *services.CacheInvalidationService,
) *SyncController {
	return &SyncController{
		subjectRepo:        subjectRepo,
		testResultRepo:     testResultRepo,
		syncLogRepo:        syncLogRepo,
		transactionService: transactionService,
		cacheInvalidation:  cacheInvalidation,
		now:                func() time.Time { return time.Now().UTC() },
		log:                logger.New("SyncController"),
	}
}

func (sc *SyncController) WithClock(now func() time.Time) *SyncController {
	sc.now = now
	return sc
}

// DecodeBatch checks the envelope only. Every named field that is present
// must be a JSON array and at least one must be present.
func DecodeBatch(body []byte, fields ...string) (Batch, error) {
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(body, &envelope); err != nil || envelope == nil {
		return Batch{}, ErrMalformedBatch
	}

	var batch Batch
	if raw, ok := envelope["device_id"]; ok && !isNull(raw) {
		var deviceID string
		if err := json.Unmarshal(raw, &deviceID); err != nil {
			return Batch{}, ErrMalformedBatch
		}
		if deviceID != "" {
			batch.DeviceID = &deviceID
		}
	}

	found := false
	for _, field := range fields {
		raw, ok := envelope[field]
		if !ok || isNull(raw) {
			continue
		}
		if !bytes.HasPrefix(bytes.TrimSpace(raw), []byte("[")) {
			return Batch{}, ErrMalformedBatch
		}

		var records []json.RawMessage
		if err := json.Unmarshal(raw, &records); err != nil {
			return Batch{}, ErrMalformedBatch
		}
		if records == nil {
			records = []json.RawMessage{}
		}

		switch field {
		case "subjects":
			batch.Subjects = records
		case "results":
			batch.Results = records
		}
		found = true
	}

	if !found {
		return Batch{}, ErrMalformedBatch
	}
	return batch, nil
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

func (sc *SyncController) SyncSubjects(ctx context.Context, source SyncSource, body []byte) (SyncResponse, error) {
	batch, err := DecodeBatch(body, "subjects")
	if err != nil {
		return SyncResponse{}, err
	}
	return sc.sync(ctx, source, SyncTypeSubjects, batch), nil
}

func (sc *SyncController) SyncResults(ctx context.Context, source SyncSource, body []byte) (SyncResponse, error) {
	batch, err := DecodeBatch(body, "results")
	if err != nil {
		return SyncResponse{}, err
	}
	return sc.sync(ctx, source, SyncTypeTestResults, batch), nil
}

// SyncFull reconciles subjects before results so results can link to
// subjects from the same batch.
func (sc *SyncController) SyncFull(ctx context.Context, source SyncSource, body []byte) (SyncResponse, error) {
	batch, err := DecodeBatch(body, "subjects", "results")
	if err != nil {
		return SyncResponse{}, err
	}
	return sc.sync(ctx, source, SyncTypeFull, batch), nil
}

// reconciled accumulates the fold over a batch.
type reconciled struct {
	synced int
	total  int
	errors []RecordError
}

func (acc *reconciled) add(ulid string, err error) {
	acc.total++
	if err != nil {
		acc.errors = append(acc.errors, RecordError{ULID: ulid, Error: err.Error()})
		return
	}
	acc.synced++
}

func (sc *SyncController) sync(ctx context.Context, source SyncSource, syncType SyncType, batch Batch) SyncResponse {
	log := sc.log.Function("sync")
	started := time.Now()
	syncedAt := sc.now()

	var acc reconciled
	for _, raw := range batch.Subjects {
		ulid, err := sc.reconcileSubject(ctx, raw)
		acc.add(ulid, err)
	}
	for _, raw := range batch.Results {
		ulid, err := sc.reconcileResult(ctx, raw, batch.DeviceID, syncedAt)
		acc.add(ulid, err)
	}

	status := SyncStatusFor(len(acc.errors), acc.total)
	sc.writeSyncLog(ctx, source, syncType, batch.DeviceID, acc, status, syncedAt)
	metrics.RecordSyncBatch(string(syncType), string(status), acc.total, len(acc.errors), time.Since(started))

	if acc.synced > 0 && sc.cacheInvalidation != nil {
		data := map[string]any{
			"syncType": syncType,
			"synced":   acc.synced,
			"total":    acc.total,
			"status":   status,
		}
		if batch.DeviceID != nil {
			data["deviceId"] = *batch.DeviceID
		}
		if err := sc.cacheInvalidation.InvalidateRecords(ctx, events.TypeSyncCompleted, data); err != nil {
			log.Warn("cached aggregates may be stale after sync", "syncType", syncType, "synced", acc.synced, "error", err)
		}
	}

	log.Info("Sync batch reconciled",
		"syncType", syncType,
		"source", source,
		"synced", acc.synced,
		"total", acc.total,
		"status", status,
	)

	return SyncResponse{
		Success: true,
		Synced:  acc.synced,
		Total:   acc.total,
		Errors:  acc.errors,
	}
}

// writeSyncLog failures are logged, not returned: the records are already
// committed and the device must not resend them because of the audit row.
func (sc *SyncController) writeSyncLog(
	ctx context.Context,
	source SyncSource,
	syncType SyncType,
	deviceID *string,
	acc reconciled,
	status SyncStatus,
	syncedAt time.Time,
) {
	log := sc.log.Function("writeSyncLog")

	syncLog := &SyncLog{
		Source:        source,
		DeviceID:      deviceID,
		SyncType:      syncType,
		RecordsSynced: acc.synced,
		Status:        status,
		SyncedAt:      syncedAt,
	}
	if len(acc.errors) > 0 {
		detail, err := json.Marshal(acc.errors)
		if err != nil {
			log.Er("failed to marshal record errors", err)
		} else {
			message := string(detail)
			syncLog.ErrorMessage = &message
		}
	}

	if err := sc.syncLogRepo.Create(ctx, syncLog); err != nil {
		log.Er("failed to write sync log", err, "syncType", syncType, "status", status)
	}
}

func (sc *SyncController) reconcileSubject(ctx context.Context, raw json.RawMessage) (string, error) {
	var item SyncSubjectItem
	if err := json.Unmarshal(raw, &item); err != nil {
		return recoverULID(raw), fmt.Errorf("invalid record: %w", err)
	}
	if err := validation.ValidateStruct(&item); err != nil {
		return item.ULID, err
	}

	birthDate, ok := utils.NormalizeBirthDate(item.BirthDate)
	if !ok {
		return item.ULID, fmt.Errorf("invalid birth_date %q", *item.BirthDate)
	}

	subject := &Subject{
		ULID:      item.ULID,
		Name:      strings.TrimSpace(item.Name),
		IDNumber:  item.IDNumber,
		BirthDate: birthDate,
		Age:       item.Age,
		Height:    item.Height,
		Weight:    item.Weight,
	}
	if item.Gender != nil {
		gender := Gender(*item.Gender)
		subject.Gender = &gender
	}

	err := sc.transactionService.Execute(ctx, func(txCtx context.Context) error {
		if err := sc.subjectRepo.Upsert(txCtx, subject); err != nil {
			return err
		}

		subjectID, err := sc.subjectRepo.GetIDByULID(txCtx, subject.ULID)
		if err != nil {
			return err
		}

		linked, err := sc.testResultRepo.LinkSubject(txCtx, subjectID, subject.ULID)
		if err != nil {
			return err
		}
		if linked > 0 {
			return sc.subjectRepo.RecountTests(txCtx, subjectID)
		}
		return nil
	})
	return item.ULID, err
}

func (sc *SyncController) reconcileResult(
	ctx context.Context,
	raw json.RawMessage,
	batchDeviceID *string,
	syncedAt time.Time,
) (string, error) {
	var item SyncResultItem
	if err := json.Unmarshal(raw, &item); err != nil {
		return recoverULID(raw), fmt.Errorf("invalid record: %w", err)
	}
	if err := validation.ValidateStruct(&item); err != nil {
		return item.ULID, err
	}

	result, err := buildTestResult(item, raw, batchDeviceID, syncedAt)
	if err != nil {
		return item.ULID, err
	}

	err = sc.transactionService.Execute(ctx, func(txCtx context.Context) error {
		if item.SubjectULID != "" {
			subjectID, err := sc.subjectRepo.GetIDByULID(txCtx, item.SubjectULID)
			switch {
			case err == nil:
				result.SubjectID = &subjectID
			case errors.Is(err, repositories.ErrNotFound):
				// Subject not synced yet; the ulid alone is kept and linked later.
			default:
				return err
			}
		}

		var previousSubjectID *string
		existing, err := sc.testResultRepo.GetByULID(txCtx, result.ULID)
		switch {
		case err == nil:
			previousSubjectID = existing.SubjectID
		case !errors.Is(err, repositories.ErrNotFound):
			return err
		}

		if err := sc.testResultRepo.Upsert(txCtx, result); err != nil {
			return err
		}

		if result.SubjectID != nil {
			if err := sc.subjectRepo.RecountTests(txCtx, *result.SubjectID); err != nil {
				return err
			}
		}
		// A result moved to another subject (or to an unknown one) leaves the
		// previous owner's count stale.
		if previousSubjectID != nil && (result.SubjectID == nil || *previousSubjectID != *result.SubjectID) {
			return sc.subjectRepo.RecountTests(txCtx, *previousSubjectID)
		}
		return nil
	})
	return item.ULID, err
}

func buildTestResult(
	item SyncResultItem,
	raw json.RawMessage,
	batchDeviceID *string,
	syncedAt time.Time,
) (*TestResult, error) {
	testedAt, ok := utils.ParseTimestamp(item.TestedAt)
	if !ok {
		return nil, fmt.Errorf("invalid tested_at %q", item.TestedAt)
	}

	hlsStart, err := optionalTimestamp("hls_start_time", item.HLSStartTime)
	if err != nil {
		return nil, err
	}
	hlsEnd, err := optionalTimestamp("hls_end_time", item.HLSEndTime)
	if err != nil {
		return nil, err
	}

	testType := TestType(item.TestType)
	info, _ := LookupTestType(testType)

	unit := item.ResultUnit
	if unit == "" {
		unit = info.Unit
	}
	testName := item.TestName
	if testName == nil || *testName == "" {
		testName = &info.Name
	}

	deviceID := batchDeviceID
	if deviceID == nil {
		deviceID = item.DeviceID
	}

	return &TestResult{
		ULID:          item.ULID,
		SubjectULID:   item.SubjectULID,
		TestType:      testType,
		TestName:      testName,
		ResultValue:   item.ResultValue,
		ResultUnit:    unit,
		HLSStreamName: item.HLSStreamName,
		HLSStartTime:  hlsStart,
		HLSEndTime:    hlsEnd,
		DeviceID:      deviceID,
		TestedAt:      testedAt,
		SyncedAt:      &syncedAt,
		RawData:       append(json.RawMessage(nil), raw...),
	}, nil
}

func optionalTimestamp(field string, value *string) (*time.Time, error) {
	if value == nil || strings.TrimSpace(*value) == "" {
		return nil, nil
	}
	parsed, ok := utils.ParseTimestamp(*value)
	if !ok {
		return nil, fmt.Errorf("invalid %s %q", field, *value)
	}
	return &parsed, nil
}

// recoverULID pulls a string ulid out of a record that failed to decode.
func recoverULID(raw json.RawMessage) string {
	var partial struct {
		ULID any `json:"ulid"`
	}
	if err := json.Unmarshal(raw, &partial); err != nil {
		return ""
	}
	if ulid, ok := partial.ULID.(string); ok {
		return ulid
	}
	return ""
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return DefaultListLimit
	}
	if limit > MaxListLimit {
		return MaxListLimit
	}
	return limit
}

func (sc *SyncController) ListSubjects(ctx context.Context, since *time.Time, limit int) ([]*Subject, error) {
	log := sc.log.Function("ListSubjects")

	subjects, err := sc.subjectRepo.ListForSync(ctx, since, clampLimit(limit))
	if err != nil {
		return nil, log.Err("failed to list subjects", err)
	}
	return subjects, nil
}

func (sc *SyncController) ListResults(
	ctx context.Context,
	subjectULID string,
	since *time.Time,
	limit int,
) ([]*TestResult, error) {
	log := sc.log.Function("ListResults")

	results, err := sc.testResultRepo.ListForSync(ctx, subjectULID, since, clampLimit(limit))
	if err != nil {
		return nil, log.Err("failed to list test results", err)
	}
	return results, nil
}
