package model

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RentStatus represents the lifecycle state of a rental.
type RentStatus string

const (
	RentStatusRequest   RentStatus = "Request"
	RentStatusInProcess RentStatus = "InProcess"
	RentStatusReturned  RentStatus = "Returned"
	RentStatusCancelled RentStatus = "Cancelled"
)

var rentTransitions = map[RentStatus][]RentStatus{
	RentStatusRequest:   {RentStatusInProcess, RentStatusCancelled},
	RentStatusInProcess: {RentStatusReturned, RentStatusCancelled},
}

// Valid reports whether s is one of the known statuses.
func (s RentStatus) Valid() bool {
	switch s {
	case RentStatusRequest, RentStatusInProcess, RentStatusReturned, RentStatusCancelled:
		return true
	}
	return false
}

// IsTerminal reports whether no further transition is allowed from s.
func (s RentStatus) IsTerminal() bool {
	return s == RentStatusReturned || s == RentStatusCancelled
}

// CanTransitionTo reports whether s -> next is an allowed step.
func (s RentStatus) CanTransitionTo(next RentStatus) bool {
	for _, allowed := range rentTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// ParseRentStatus accepts a status name (any case) or its numeric code 1-4.
func ParseRentStatus(raw string) (RentStatus, bool) {
	raw = strings.TrimSpace(raw)
	if n, err := strconv.Atoi(raw); err == nil {
		switch n {
		case 1:
			return RentStatusRequest, true
		case 2:
			return RentStatusInProcess, true
		case 3:
			return RentStatusReturned, true
		case 4:
			return RentStatusCancelled, true
		}
		return "", false
	}
	for _, s := range []RentStatus{RentStatusRequest, RentStatusInProcess, RentStatusReturned, RentStatusCancelled} {
		if strings.EqualFold(raw, string(s)) {
			return s, true
		}
	}
	return "", false
}

// Rent is the rental header: who, when, how much and where it stands.
type Rent struct {
	ID              uuid.UUID  `json:"id" gorm:"type:char(36);primaryKey"`
	RenterID        uuid.UUID  `json:"renterId" gorm:"type:char(36);not null;index"`
	Status          RentStatus `json:"status" gorm:"type:varchar(20);not null;default:'Request';index"`
	ApplicationTime time.Time  `json:"applicationTime" gorm:"not null;index"`
	Owed            int        `json:"owed" gorm:"not null;default:0"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}

// BeforeCreate sets UUID before creating the record.
func (r *Rent) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}
