package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CarRent binds a rent to a car for an inclusive date interval.
type CarRent struct {
	ID        uuid.UUID `json:"id" gorm:"type:char(36);primaryKey"`
	RentID    uuid.UUID `json:"rentId" gorm:"type:char(36);not null;index"`
	CarID     uuid.UUID `json:"carId" gorm:"type:char(36);not null;index:idx_car_rents_car_start,priority:1"`
	StartDate time.Time `json:"startDate" gorm:"not null;index:idx_car_rents_car_start,priority:2"`
	EndDate   time.Time `json:"endDate" gorm:"not null"`
}

// BeforeCreate sets UUID before creating the record.
func (cr *CarRent) BeforeCreate(tx *gorm.DB) error {
	if cr.ID == uuid.Nil {
		cr.ID = uuid.New()
	}
	return nil
}

// CarRentDetail is a CarRent joined with the fields of its parent Rent.
type CarRentDetail struct {
	CarRent
	RenterID        uuid.UUID
	Status          RentStatus
	ApplicationTime time.Time
	Owed            int
}
