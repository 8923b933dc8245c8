package models

import "time"

type Role string

const (
	RoleAdmin   Role = "admin"
	RoleManager Role = "manager"
	RoleAgent   Role = "agent"
	RoleUser    Role = "user"
)

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleManager, RoleAgent, RoleUser:
		return true
	}
	return false
}

type UserStatus string

const (
	UserStatusActive    UserStatus = "ACTIVE"
	UserStatusInactive  UserStatus = "INACTIVE"
	UserStatusSuspended UserStatus = "SUSPENDED"
)

func (s UserStatus) Valid() bool {
	switch s {
	case UserStatusActive, UserStatusInactive, UserStatusSuspended:
		return true
	}
	return false
}

type User struct {
	Base
	FirstName     string     `gorm:"not null" json:"firstName"`
	LastName      string     `gorm:"not null" json:"lastName"`
	Email         string     `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash  string     `gorm:"not null" json:"-"`
	Phone         string     `json:"phone,omitempty"`
	Avatar        string     `json:"avatar,omitempty"`
	Role          Role       `gorm:"type:varchar(20);default:'agent';index" json:"role"`
	Status        UserStatus `gorm:"type:varchar(20);default:'ACTIVE';index" json:"status"`
	EmailVerified bool       `gorm:"default:false" json:"emailVerified"`
	LastLoginAt   *time.Time `json:"lastLoginAt,omitempty"`

	// SHA-256 of the raw reset token; the raw value is only ever mailed.
	ResetPasswordToken  string     `gorm:"index" json:"-"`
	ResetPasswordExpire *time.Time `json:"-"`
}

func (User) TableName() string {
	return "users"
}

func (u *User) FullName() string {
	return joinName(u.FirstName, u.LastName)
}

func (u *User) IsActive() bool {
	return u.Status == UserStatusActive
}
