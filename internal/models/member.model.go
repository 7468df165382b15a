package models

import "time"

type MemberRole string

const (
	MemberRoleAdmin    MemberRole = "admin"
	MemberRoleOperator MemberRole = "operator"
	MemberRoleViewer   MemberRole = "viewer"
)

type MemberStatus string

const (
	MemberStatusActive   MemberStatus = "active"
	MemberStatusInactive MemberStatus = "inactive"
	MemberStatusPending  MemberStatus = "pending"
)

type Member struct {
	BaseUUIDModel
	Email        string       `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	Name         string       `gorm:"type:varchar(255);not null"             json:"name"`
	Role         MemberRole   `gorm:"type:varchar(20);not null"              json:"role"`
	Status       MemberStatus `gorm:"type:varchar(20);not null"              json:"status"`
	Notes        *string      `gorm:"type:text"                              json:"notes,omitempty"`
	PasswordHash string       `gorm:"column:password_hash;not null"          json:"-"`
}

type MemberSession struct {
	Token     string    `gorm:"type:varchar(64);primaryKey"         json:"token"`
	MemberID  string    `gorm:"column:member_id;type:varchar(64);index;not null" json:"member_id"`
	ExpiresAt time.Time `gorm:"column:expires_at;not null"          json:"expires_at"`
	CreatedAt time.Time `gorm:"autoCreateTime"                      json:"created_at"`
}

type MemberFilter struct {
	Keyword string
	Status  string
}

type LoginRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required"`
}
