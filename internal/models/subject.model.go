package models

type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
)

type Subject struct {
	BaseUUIDModel
	ULID      string   `gorm:"column:ulid;type:varchar(26);uniqueIndex;not null" json:"ulid"`
	Name      string   `gorm:"type:varchar(255);not null"                        json:"name"`
	IDNumber  *string  `gorm:"column:id_number;type:varchar(32)"                 json:"id_number,omitempty"`
	Gender    *Gender  `gorm:"type:varchar(10)"                                  json:"gender,omitempty"`
	BirthDate *string  `gorm:"column:birth_date;type:varchar(10)"                json:"birth_date,omitempty"` // YYYY-MM-DD
	Age       *int     `gorm:"type:int"                                          json:"age,omitempty"`
	Height    *float64 `gorm:"type:real"                                         json:"height,omitempty"` // cm
	Weight    *float64 `gorm:"type:real"                                         json:"weight,omitempty"` // kg
	TestCount int      `gorm:"column:test_count;not null;default:0"              json:"test_count"`
	CreatedBy *string  `gorm:"column:created_by;type:varchar(64)"                json:"created_by,omitempty"`
	Creator   *Member  `gorm:"foreignKey:CreatedBy"                              json:"creator,omitempty"`
}

type SubjectFilter struct {
	Keyword     string
	Gender      string
	CreatedDate string // YYYY-MM-DD
}

type SubjectRequest struct {
	Name      string   `json:"name"       validate:"required,max=255"`
	IDNumber  *string  `json:"id_number"  validate:"omitempty,max=32"`
	Gender    *string  `json:"gender"     validate:"omitempty,oneof=male female"`
	BirthDate *string  `json:"birth_date"`
	Age       *int     `json:"age"        validate:"omitempty,min=0,max=150"`
	Height    *float64 `json:"height"     validate:"omitempty,gt=0"`
	Weight    *float64 `json:"weight"     validate:"omitempty,gt=0"`
}

type SubjectDetail struct {
	Subject
	Results []TestResult `json:"results"`
}
