package syncController

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"fitadmin/config"
	"fitadmin/internal/database"
	"fitadmin/internal/events"
	. "fitadmin/internal/models"
	"fitadmin/internal/repositories"
	"fitadmin/internal/services"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, 1, 1, 10, 5, 0, 0, time.UTC)

type harness struct {
	db         database.DB
	controller *SyncController
	subjects   repositories.SubjectRepository
	results    repositories.TestResultRepository
	syncLogs   repositories.SyncLogRepository
	events     []events.Event
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	db, err := database.New(config.Config{DatabaseDbPath: filepath.Join(t.TempDir(), "sync.db")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	h := &harness{
		db:       db,
		subjects: repositories.NewSubject(db),
		results:  repositories.NewTestResult(db),
		syncLogs: repositories.NewSyncLog(db),
	}

	bus := events.New()
	_, err = bus.Subscribe(events.ChannelDashboard, func(e events.Event) { h.events = append(h.events, e) })
	require.NoError(t, err)

	calls := 0
	h.controller = New(
		h.subjects,
		h.results,
		h.syncLogs,
		services.NewTransactionService(db),
		services.NewCacheInvalidationService(db, bus),
	).WithClock(func() time.Time {
		at := fixedNow.Add(time.Duration(calls) * time.Minute)
		calls++
		return at
	})

	return h
}

func (h *harness) syncLogsFor(t *testing.T) []*SyncLog {
	t.Helper()
	logs, _, err := h.syncLogs.List(context.Background(), NewPage(1, 100))
	require.NoError(t, err)
	return logs
}

func TestDecodeBatch(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		fields  []string
		wantErr bool
		records int
	}{
		{"results array", `{"device_id":"px-001","results":[{},{}]}`, []string{"results"}, false, 2},
		{"empty array", `{"results":[]}`, []string{"results"}, false, 0},
		{"missing field", `{"device_id":"px-001"}`, []string{"results"}, true, 0},
		{"null field", `{"results":null}`, []string{"results"}, true, 0},
		{"object instead of array", `{"results":{"ulid":"R1"}}`, []string{"results"}, true, 0},
		{"string instead of array", `{"results":"R1"}`, []string{"results"}, true, 0},
		{"not an object", `[{"ulid":"R1"}]`, []string{"results"}, true, 0},
		{"not json", `results=1`, []string{"results"}, true, 0},
		{"numeric device id", `{"device_id":7,"results":[]}`, []string{"results"}, true, 0},
		{"full with only subjects", `{"subjects":[{}]}`, []string{"subjects", "results"}, false, 1},
		{"full with bad results", `{"subjects":[],"results":5}`, []string{"subjects", "results"}, true, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			batch, err := DecodeBatch([]byte(tt.body), tt.fields...)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrMalformedBatch)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.records, len(batch.Subjects)+len(batch.Results))
		})
	}
}

func TestSyncResults_EndToEnd(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	body := `{"device_id":"px-001","results":[{"ulid":"R1","subject_ulid":"S1","test_type":"sit_stand","result_value":12.5,"result_unit":"秒","tested_at":"2024-01-01T10:00:30Z"}]}`

	resp, err := h.controller.SyncResults(ctx, SyncSourceDevice, []byte(body))
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Equal(t, 1, resp.Synced)
	assert.Equal(t, 1, resp.Total)
	assert.Empty(t, resp.Errors)

	stored, err := h.results.GetByULID(ctx, "R1")
	require.NoError(t, err)
	assert.Equal(t, "S1", stored.SubjectULID)
	assert.Nil(t, stored.SubjectID, "unknown subject leaves internal key unset")
	require.NotNil(t, stored.SyncedAt)
	assert.True(t, fixedNow.Equal(*stored.SyncedAt))
	assert.Equal(t, "px-001", *stored.DeviceID)
	assert.Equal(t, "椅子坐站測試", *stored.TestName)
	assert.JSONEq(t, `{"ulid":"R1","subject_ulid":"S1","test_type":"sit_stand","result_value":12.5,"result_unit":"秒","tested_at":"2024-01-01T10:00:30Z"}`, string(stored.RawData))

	logs := h.syncLogsFor(t)
	require.Len(t, logs, 1)
	assert.Equal(t, SyncStatusSuccess, logs[0].Status)
	assert.Equal(t, SyncTypeTestResults, logs[0].SyncType)
	assert.Equal(t, SyncSourceDevice, logs[0].Source)
	assert.Equal(t, 1, logs[0].RecordsSynced)
	assert.Nil(t, logs[0].ErrorMessage)

	require.Len(t, h.events, 1)
	assert.Equal(t, events.TypeSyncCompleted, h.events[0].Type)
}

func TestSyncResults_IdempotentResend(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	body := []byte(`{"device_id":"px-001","results":[
		{"ulid":"R1","test_type":"sit_stand","result_value":12.5,"tested_at":"2024-01-01T10:00:30Z"},
		{"ulid":"R2","test_type":"walk_speed","result_value":1.1,"tested_at":"2024-01-01T10:02:00Z"}
	]}`)

	for i := 0; i < 2; i++ {
		resp, err := h.controller.SyncResults(ctx, SyncSourceDevice, body)
		require.NoError(t, err)
		assert.Equal(t, 2, resp.Synced)
		assert.Equal(t, 2, resp.Total)
	}

	total, err := h.results.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, h.syncLogsFor(t), 2, "one audit row per call")

	r2, err := h.results.GetByULID(ctx, "R2")
	require.NoError(t, err)
	assert.Equal(t, "m/s", r2.ResultUnit, "canonical unit fills a missing unit")
}

func TestSyncResults_PartialAndFailed(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantSynced int
		wantTotal  int
		wantErrors []string
		wantStatus SyncStatus
	}{
		{
			name: "partial",
			body: `{"results":[
				{"ulid":"R1","test_type":"sit_stand","result_value":1,"tested_at":"2024-01-01T10:00:30Z"},
				{"ulid":"R2","test_type":"jumping","result_value":1,"tested_at":"2024-01-01T10:00:30Z"},
				{"ulid":"R3","test_type":"sit_stand","result_value":1,"tested_at":"yesterday"},
				{"ulid":"R4","test_type":"one_leg_stand","result_value":"fast","tested_at":"2024-01-01T10:00:30Z"}
			]}`,
			wantSynced: 1,
			wantTotal:  4,
			wantErrors: []string{"R2", "R3", "R4"},
			wantStatus: SyncStatusPartial,
		},
		{
			name: "failed",
			body: `{"results":[
				{"test_type":"sit_stand","tested_at":"2024-01-01T10:00:30Z"},
				{"ulid":"R2","test_type":"sit_stand","tested_at":"2024-01-01T10:00:30Z","hls_start_time":"soon"},
				"not an object"
			]}`,
			wantSynced: 0,
			wantTotal:  3,
			wantErrors: []string{"", "R2", ""},
			wantStatus: SyncStatusFailed,
		},
		{
			name:       "empty batch",
			body:       `{"results":[]}`,
			wantSynced: 0,
			wantTotal:  0,
			wantStatus: SyncStatusSuccess,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)

			resp, err := h.controller.SyncResults(context.Background(), SyncSourceDevice, []byte(tt.body))
			require.NoError(t, err)
			assert.True(t, resp.Success)
			assert.Equal(t, tt.wantSynced, resp.Synced)
			assert.Equal(t, tt.wantTotal, resp.Total)

			require.Len(t, resp.Errors, len(tt.wantErrors))
			for i, ulid := range tt.wantErrors {
				assert.Equal(t, ulid, resp.Errors[i].ULID, "errors keep input order")
				assert.NotEmpty(t, resp.Errors[i].Error)
			}

			logs := h.syncLogsFor(t)
			require.Len(t, logs, 1)
			assert.Equal(t, tt.wantStatus, logs[0].Status)
			assert.Equal(t, tt.wantSynced, logs[0].RecordsSynced)

			if len(tt.wantErrors) > 0 {
				require.NotNil(t, logs[0].ErrorMessage)
				var detail []RecordError
				require.NoError(t, json.Unmarshal([]byte(*logs[0].ErrorMessage), &detail))
				assert.Equal(t, resp.Errors, detail)
			}
		})
	}
}

// failingResults writes the row and then reports a store error for one ulid,
// so the surrounding transaction has something to roll back.
type failingResults struct {
	repositories.TestResultRepository
	failULID string
}

func (f *failingResults) Upsert(ctx context.Context, result *TestResult) error {
	if err := f.TestResultRepository.Upsert(ctx, result); err != nil {
		return err
	}
	if result.ULID == f.failULID {
		return errors.New("disk I/O error")
	}
	return nil
}

func TestSyncResults_StoreFailureRollsBackRecord(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.controller.SyncSubjects(ctx, SyncSourceDevice, []byte(`{"subjects":[{"ulid":"S1","name":"王小明"}]}`))
	require.NoError(t, err)

	controller := New(
		h.subjects,
		&failingResults{TestResultRepository: h.results, failULID: "R2"},
		h.syncLogs,
		services.NewTransactionService(h.db),
		nil,
	).WithClock(func() time.Time { return fixedNow.Add(time.Hour) })

	resp, err := controller.SyncResults(ctx, SyncSourceDevice, []byte(`{"results":[
		{"ulid":"R1","subject_ulid":"S1","test_type":"sit_stand","result_value":1,"tested_at":"2024-01-01T10:00:30Z"},
		{"ulid":"R2","subject_ulid":"S1","test_type":"sit_stand","result_value":2,"tested_at":"2024-01-01T10:01:30Z"},
		{"ulid":"R3","subject_ulid":"S1","test_type":"walk_speed","result_value":1.2,"tested_at":"2024-01-01T10:02:30Z"}
	]}`))
	require.NoError(t, err)
	assert.Equal(t, 2, resp.Synced)
	assert.Equal(t, 3, resp.Total)
	require.Len(t, resp.Errors, 1)
	assert.Equal(t, "R2", resp.Errors[0].ULID)
	assert.Contains(t, resp.Errors[0].Error, "disk I/O error")

	_, err = h.results.GetByULID(ctx, "R2")
	assert.ErrorIs(t, err, repositories.ErrNotFound, "failed record is rolled back")

	subject, err := h.subjects.GetByULID(ctx, "S1")
	require.NoError(t, err)
	assert.Equal(t, 2, subject.TestCount)

	logs := h.syncLogsFor(t)
	require.Len(t, logs, 2)
	assert.Equal(t, SyncStatusPartial, logs[0].Status)
	assert.Equal(t, 2, logs[0].RecordsSynced)
}

func TestSyncResults_MovingResultRecountsBothSubjects(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.controller.SyncSubjects(ctx, SyncSourceDevice, []byte(`{"subjects":[{"ulid":"SA","name":"A"},{"ulid":"SB","name":"B"}]}`))
	require.NoError(t, err)

	testCount := func(ulid string) int {
		t.Helper()
		subject, err := h.subjects.GetByULID(ctx, ulid)
		require.NoError(t, err)
		return subject.TestCount
	}

	steps := []struct {
		name        string
		subjectULID string
		wantA       int
		wantB       int
	}{
		{"assigned to SA", "SA", 1, 0},
		{"moved to SB", "SB", 0, 1},
		{"moved to an unknown subject", "SX", 0, 0},
		{"back to SA", "SA", 1, 0},
	}

	for _, step := range steps {
		body := `{"results":[{"ulid":"R1","subject_ulid":"` + step.subjectULID +
			`","test_type":"sit_stand","result_value":1,"tested_at":"2024-01-01T10:00:30Z"}]}`
		resp, err := h.controller.SyncResults(ctx, SyncSourceDevice, []byte(body))
		require.NoError(t, err, step.name)
		require.Equal(t, 1, resp.Synced, step.name)

		assert.Equal(t, step.wantA, testCount("SA"), step.name)
		assert.Equal(t, step.wantB, testCount("SB"), step.name)
	}
}

func TestSyncResults_MalformedBatchWritesNothing(t *testing.T) {
	h := newHarness(t)

	_, err := h.controller.SyncResults(context.Background(), SyncSourceDevice, []byte(`{"device_id":"px-001"}`))
	assert.ErrorIs(t, err, ErrMalformedBatch)
	assert.Empty(t, h.syncLogsFor(t))
	assert.Empty(t, h.events)
}

func TestSyncSubjects_LinksEarlierResults(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.controller.SyncResults(ctx, SyncSourceDevice, []byte(`{"results":[
		{"ulid":"R1","subject_ulid":"S1","test_type":"sit_stand","result_value":12.5,"tested_at":"2024-01-01T10:00:30Z"},
		{"ulid":"R2","subject_ulid":"S1","test_type":"walk_speed","result_value":0.9,"tested_at":"2024-01-01T10:03:30Z"}
	]}`))
	require.NoError(t, err)

	resp, err := h.controller.SyncSubjects(ctx, SyncSourceDevice, []byte(`{"device_id":"px-001","subjects":[
		{"ulid":"S1","name":"王小明","gender":"male","birth_date":"1950/06/15","age":73},
		{"ulid":"S2","name":"","gender":"male"},
		{"ulid":"S3","name":"林小姐","gender":"unknown"},
		{"ulid":"S4","name":"陳先生","birth_date":"someday"}
	]}`))
	require.NoError(t, err)
	assert.Equal(t, 1, resp.Synced)
	assert.Equal(t, 4, resp.Total)
	require.Len(t, resp.Errors, 3)

	subject, err := h.subjects.GetByULID(ctx, "S1")
	require.NoError(t, err)
	assert.Equal(t, "1950-06-15", *subject.BirthDate)
	assert.Equal(t, 2, subject.TestCount)

	r1, err := h.results.GetByULID(ctx, "R1")
	require.NoError(t, err)
	require.NotNil(t, r1.SubjectID)
	assert.Equal(t, subject.ID, *r1.SubjectID)

	logs := h.syncLogsFor(t)
	require.Len(t, logs, 2)
	assert.Equal(t, SyncTypeSubjects, logs[0].SyncType)
	assert.Equal(t, SyncStatusPartial, logs[0].Status)
}

func TestSyncFull_SubjectsBeforeResults(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	resp, err := h.controller.SyncFull(ctx, SyncSourceWebAdmin, []byte(`{
		"device_id":"px-002",
		"results":[{"ulid":"R9","subject_ulid":"S9","test_type":"gait_standing","result_value":4,"tested_at":"2024-01-01T10:00:30Z"}],
		"subjects":[{"ulid":"S9","name":"張先生"}]
	}`))
	require.NoError(t, err)
	assert.Equal(t, 2, resp.Synced)
	assert.Equal(t, 2, resp.Total)

	result, err := h.results.GetByULID(ctx, "R9")
	require.NoError(t, err)
	require.NotNil(t, result.SubjectID)
	assert.Equal(t, "度", result.ResultUnit)

	subject, err := h.subjects.GetByULID(ctx, "S9")
	require.NoError(t, err)
	assert.Equal(t, 1, subject.TestCount)

	logs := h.syncLogsFor(t)
	require.Len(t, logs, 1)
	assert.Equal(t, SyncTypeFull, logs[0].SyncType)
	assert.Equal(t, SyncSourceWebAdmin, logs[0].Source)
	assert.Equal(t, 2, logs[0].RecordsSynced)
}

func TestListForSync(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.controller.SyncSubjects(ctx, SyncSourceDevice, []byte(`{"subjects":[{"ulid":"S1","name":"A"},{"ulid":"S2","name":"B"}]}`))
	require.NoError(t, err)
	require.NoError(t, h.subjects.SoftDelete(ctx, "S2"))

	subjects, err := h.controller.ListSubjects(ctx, nil, 0)
	require.NoError(t, err)
	require.Len(t, subjects, 1)
	assert.Equal(t, "S1", subjects[0].ULID)

	future := time.Now().Add(time.Hour)
	subjects, err = h.controller.ListSubjects(ctx, &future, 10)
	require.NoError(t, err)
	assert.Empty(t, subjects)

	results, err := h.controller.ListResults(ctx, "S1", nil, 5000)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestClampLimit(t *testing.T) {
	assert.Equal(t, DefaultListLimit, clampLimit(0))
	assert.Equal(t, DefaultListLimit, clampLimit(-3))
	assert.Equal(t, 7, clampLimit(7))
	assert.Equal(t, MaxListLimit, clampLimit(MaxListLimit+1))
}
