package models

import (
	"encoding/json"
	"time"
)

type TestType string

const (
	TestTypeSitStand        TestType = "sit_stand"
	TestTypeWalkSpeed       TestType = "walk_speed"
	TestTypeBalanceFoot     TestType = "balance_foot"
	TestTypeBalanceHalfFoot TestType = "balance_half_foot"
	TestTypeBalanceHeelToe  TestType = "balance_heel_toe"
	TestTypeOneLegStand     TestType = "one_leg_stand"
	TestTypeFunctionalReach TestType = "functional_reach"
	TestTypeGaitStanding    TestType = "gait_standing"
)

type TestTypeInfo struct {
	Type TestType `json:"type"`
	Name string   `json:"name"`
	Unit string   `json:"unit"`
}

// TestTypes is ordered as the dashboard presents them.
var TestTypes = []TestTypeInfo{
	{TestTypeSitStand, "椅子坐站測試", "秒"},
	{TestTypeWalkSpeed, "步行速度測試", "m/s"},
	{TestTypeBalanceFoot, "平衡測試-雙腳並排", "秒"},
	{TestTypeBalanceHalfFoot, "平衡測試-半腳並排", "秒"},
	{TestTypeBalanceHeelToe, "平衡測試-足跟對足尖", "秒"},
	{TestTypeOneLegStand, "單腳站立測試", "秒"},
	{TestTypeFunctionalReach, "功能性前伸測試", "cm"},
	{TestTypeGaitStanding, "步態分析", "度"},
}

func LookupTestType(t TestType) (TestTypeInfo, bool) {
	for _, info := range TestTypes {
		if info.Type == t {
			return info, true
		}
	}
	return TestTypeInfo{}, false
}

// DisplayName falls back to the raw value for types outside the catalog.
func (t TestType) DisplayName() string {
	if info, ok := LookupTestType(t); ok {
		return info.Name
	}
	return string(t)
}

type TestResult struct {
	BaseUUIDModel
	ULID          string          `gorm:"column:ulid;type:varchar(26);uniqueIndex;not null" json:"ulid"`
	SubjectID     *string         `gorm:"column:subject_id;type:varchar(64);index"          json:"subject_id,omitempty"`
	Subject       *Subject        `gorm:"foreignKey:SubjectID"                              json:"subject,omitempty"`
	SubjectULID   string          `gorm:"column:subject_ulid;type:varchar(26);index"        json:"subject_ulid"`
	TestType      TestType        `gorm:"column:test_type;type:varchar(32);not null;index"  json:"test_type"`
	TestName      *string         `gorm:"column:test_name;type:varchar(255)"                json:"test_name,omitempty"`
	ResultValue   float64         `gorm:"column:result_value;not null"                      json:"result_value"`
	ResultUnit    string          `gorm:"column:result_unit;type:varchar(16)"               json:"result_unit"`
	HLSStreamName *string         `gorm:"column:hls_stream_name;type:varchar(255)"          json:"hls_stream_name,omitempty"`
	HLSStartTime  *time.Time      `gorm:"column:hls_start_time"                             json:"hls_start_time,omitempty"`
	HLSEndTime    *time.Time      `gorm:"column:hls_end_time"                               json:"hls_end_time,omitempty"`
	DeviceID      *string         `gorm:"column:device_id;type:varchar(64)"                 json:"device_id,omitempty"`
	TestedAt      time.Time       `gorm:"column:tested_at;not null;index"                   json:"tested_at"`
	SyncedAt      *time.Time      `gorm:"column:synced_at;index"                            json:"synced_at,omitempty"`
	RawData       json.RawMessage `gorm:"column:raw_data;type:text"                         json:"raw_data,omitempty"`
}

type TestResultFilter struct {
	SubjectULID string
	TestType    string
	DateFrom    *time.Time
	DateTo      *time.Time
}
