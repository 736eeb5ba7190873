package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AccessLevel is the authorisation tier of a user.
type AccessLevel string

const (
	AccessAdministrator AccessLevel = "Administrator"
	AccessWorker        AccessLevel = "Worker"
	AccessUser          AccessLevel = "User"
	AccessSystem        AccessLevel = "System"
)

// ParseAccessLevel matches a level name case-insensitively.
func ParseAccessLevel(raw string) (AccessLevel, bool) {
	for _, l := range []AccessLevel{AccessAdministrator, AccessWorker, AccessUser, AccessSystem} {
		if strings.EqualFold(strings.TrimSpace(raw), string(l)) {
			return l, true
		}
	}
	return "", false
}

// IsStaff reports whether the level may manage the fleet and other users' rentals.
func (l AccessLevel) IsStaff() bool {
	return l == AccessAdministrator || l == AccessWorker || l == AccessSystem
}

// User is an account. Disabling (Enabled=false) is the only form of deletion.
type User struct {
	ID                 uuid.UUID   `json:"id" gorm:"type:char(36);primaryKey"`
	Name               string      `json:"name" gorm:"size:255;not null"`
	Email              string      `json:"email" gorm:"uniqueIndex;size:255;not null"`
	Address            string      `json:"address" gorm:"size:512"`
	PhoneNumber        string      `json:"phoneNumber" gorm:"size:64"`
	AccessLevel        AccessLevel `json:"accessLevel" gorm:"type:varchar(20);not null;default:'User'"`
	PasswordHash       string      `json:"-" gorm:"size:255;not null"` // Never expose in JSON
	Enabled            bool        `json:"enabled" gorm:"not null;index"`
	Description        string      `json:"description" gorm:"type:text"`
	RefreshToken       string      `json:"-" gorm:"size:255;index"`
	RefreshTokenExpiry *time.Time  `json:"-"`
	CreatedAt          time.Time   `json:"createdAt"`
	UpdatedAt          time.Time   `json:"updatedAt"`
}

// BeforeCreate sets UUID before creating the record.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}
