package model

import (
	"time"

	"github.com/google/uuid"
)

// CarView is a car enriched with its category at read time.
type CarView struct {
	ID           uuid.UUID  `json:"id"`
	PlateNumber  string     `json:"plateNumber"`
	Type         string     `json:"type"`
	Odometer     int        `json:"odometer"`
	Available    bool       `json:"available"`
	Description  string     `json:"description"`
	CategoryID   *uuid.UUID `json:"categoryId,omitempty"`
	CategoryName string     `json:"categoryName"`
	DailyRate    int        `json:"dailyRate"`
}

// RentView is a rental with the renter's display name.
type RentView struct {
	ID              uuid.UUID  `json:"id"`
	RenterID        uuid.UUID  `json:"renterId"`
	RenterName      string     `json:"renterName"`
	Status          RentStatus `json:"status"`
	ApplicationTime time.Time  `json:"applicationTime"`
	Owed            int        `json:"owed"`
}

// CarRentView merges a CarRent with its Rent; used for history and invoices.
type CarRentView struct {
	Index           int        `json:"index"`
	RentID          uuid.UUID  `json:"rentId"`
	RenterID        uuid.UUID  `json:"renterId"`
	CarID           uuid.UUID  `json:"carId"`
	Status          RentStatus `json:"status"`
	ApplicationTime time.Time  `json:"applicationTime"`
	Owed            int        `json:"owed"`
	StartDate       time.Time  `json:"startDate"`
	EndDate         time.Time  `json:"endDate"`
}

// NewCarRentView builds the merged projection for position index.
func NewCarRentView(detail CarRentDetail, index int) CarRentView {
	return CarRentView{
		Index:           index,
		RentID:          detail.RentID,
		RenterID:        detail.RenterID,
		CarID:           detail.CarID,
		Status:          detail.Status,
		ApplicationTime: detail.ApplicationTime,
		Owed:            detail.Owed,
		StartDate:       detail.StartDate,
		EndDate:         detail.EndDate,
	}
}

// UserView is the public projection of a user.
type UserView struct {
	ID          uuid.UUID   `json:"id"`
	Name        string      `json:"name"`
	Email       string      `json:"email"`
	Address     string      `json:"address"`
	PhoneNumber string      `json:"phoneNumber"`
	AccessLevel AccessLevel `json:"accessLevel"`
	Description string      `json:"description"`
	Enabled     bool        `json:"enabled"`
}

// NewUserView strips account secrets from u.
func NewUserView(u User) UserView {
	return UserView{
		ID:          u.ID,
		Name:        u.Name,
		Email:       u.Email,
		Address:     u.Address,
		PhoneNumber: u.PhoneNumber,
		AccessLevel: u.AccessLevel,
		Description: u.Description,
		Enabled:     u.Enabled,
	}
}
