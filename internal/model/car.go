package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Car is a rentable vehicle. Available is a hint kept in step with rental
// status; booking conflicts are always decided from CarRent intervals.
// RentalHold is true while an in-process rental, not staff, owns Available.
type Car struct {
	ID          uuid.UUID      `json:"id" gorm:"type:char(36);primaryKey"`
	PlateNumber string         `json:"plateNumber" gorm:"size:32;not null;uniqueIndex"`
	Type        string         `json:"type" gorm:"size:255;not null"`
	Odometer    int            `json:"odometer" gorm:"not null;default:0"`
	Available   bool           `json:"available" gorm:"not null;index"`
	RentalHold  bool           `json:"-" gorm:"not null;default:false"`
	CategoryID  *uuid.UUID     `json:"categoryId,omitempty" gorm:"type:char(36);index"`
	Description string         `json:"description" gorm:"type:text"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
	DeletedAt   gorm.DeletedAt `json:"-" gorm:"index"`
}

// BeforeCreate sets UUID before creating the record.
func (c *Car) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}
