package models

import "time"

type RiskLevel string

const (
	RiskLevelLow      RiskLevel = "low"
	RiskLevelModerate RiskLevel = "moderate"
	RiskLevelHigh     RiskLevel = "high"
)

// SPPBAssessment is produced outside this service; it is only counted here.
type SPPBAssessment struct {
	ID                string    `gorm:"type:varchar(64);primaryKey"          json:"id"`
	SubjectID         string    `gorm:"column:subject_id;type:varchar(64);index;not null" json:"subject_id"`
	ChairStandScore   int       `gorm:"column:chair_stand_score"            json:"chair_stand_score"`
	WalkingSpeedScore int       `gorm:"column:walking_speed_score"          json:"walking_speed_score"`
	BalanceScore      int       `gorm:"column:balance_score"                json:"balance_score"`
	TotalScore        int       `gorm:"column:total_score"                  json:"total_score"`
	RiskLevel         RiskLevel `gorm:"column:risk_level;type:varchar(10)"  json:"risk_level"`
	AssessedAt        time.Time `gorm:"column:assessed_at;not null;index"   json:"assessed_at"`
	CreatedAt         time.Time `gorm:"autoCreateTime"                      json:"created_at"`
}

func (SPPBAssessment) TableName() string {
	return "sppb_assessments"
}

type TypeCount struct {
	Type  TestType `json:"type"`
	Name  string   `json:"name"`
	Count int64    `json:"count"`
}

type DayCount struct {
	Date  string `json:"date"`
	Count int64  `json:"count"`
}

type TypeAverage struct {
	Type    TestType `json:"type"`
	Name    string   `json:"name"`
	Average float64  `json:"average"`
}

type RiskCount struct {
	Level RiskLevel `json:"level"`
	Count int64     `json:"count"`
}

type Statistics struct {
	From             string        `json:"from"`
	To               string        `json:"to"`
	TotalSubjects    int64         `json:"totalSubjects"`
	TotalTests       int64         `json:"totalTests"`
	TestsByType      []TypeCount   `json:"testsByType"`
	TestsByDay       []DayCount    `json:"testsByDay"`
	AverageScores    []TypeAverage `json:"averageScores"`
	SPPBDistribution []RiskCount   `json:"sppbDistribution"`
}

type DashboardSummary struct {
	Members  int64 `json:"members"`
	Subjects int64 `json:"subjects"`
	Tests    int64 `json:"tests"`
}
